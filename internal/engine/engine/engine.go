package engine

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pm100/fresh/internal/engine/buffer"
	"github.com/pm100/fresh/internal/engine/enginerr"
	"github.com/pm100/fresh/internal/engine/interval"
	"github.com/pm100/fresh/internal/engine/render"
	"github.com/pm100/fresh/internal/engine/tracking"
	"github.com/pm100/fresh/internal/engine/viewstate"
)

// BufferID identifies one open Buffer. It is the same type viewstate's
// SplitViewState carries, so a split's BufferID can be used directly as
// an engine buffer-table key without conversion.
type BufferID = viewstate.BufferID

// SplitID identifies one split's view onto a buffer.
type SplitID uint64

// bufferEntry is one row of the engine's buffer table: the Buffer itself
// plus the bookkeeping the façade needs that buffer.Buffer does not carry
// on its own (read-only override, independent of IsPoisoned).
type bufferEntry struct {
	buf      *buffer.Buffer
	readOnly bool
	tracker  *tracking.Tracker
}

// Engine owns every open Buffer and every split's SplitViewState, and is
// the command surface every outer layer (terminal UI, scripting, tests)
// drives the editor through. It generalizes the teacher's engine.Engine,
// which wrapped exactly one buffer and one cursor set, into tables keyed
// by opaque ids, guarded by a single RWMutex the way the teacher's own
// Engine guards its one buffer.
type Engine struct {
	mu sync.RWMutex

	buffers map[BufferID]*bufferEntry
	splits  map[SplitID]*viewstate.SplitViewState

	activeSplit SplitID
	nextBuffer  BufferID
	nextSplit   SplitID

	events   chan Event
	logger   Logger
	renderer *render.Renderer
}

// Option configures an Engine at construction, following the functional-
// option idiom the buffer and editlog packages already use.
type Option func(*Engine)

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithEventBuffer sets the capacity of the event channel. The default is
// 64; a drained-too-slowly channel drops events rather than blocking.
func WithEventBuffer(n int) Option {
	return func(e *Engine) { e.events = make(chan Event, n) }
}

// New returns an Engine with no open buffers and no splits.
func New(opts ...Option) *Engine {
	e := &Engine{
		buffers:    make(map[BufferID]*bufferEntry),
		splits:     make(map[SplitID]*viewstate.SplitViewState),
		events:     make(chan Event, 64),
		logger:     noopLogger{},
		renderer:   render.New(),
		nextBuffer: 1,
		nextSplit:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- buffer lifecycle ---

// OpenString opens a virtual or pre-loaded buffer from in-memory text,
// returning its id. Used both for :virtual buffers and for tests that
// don't want to touch the filesystem.
func (e *Engine) OpenString(text string, kind buffer.Kind, path string) BufferID {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf := buffer.FromString(text, buffer.WithKind(kind), buffer.WithPath(path), buffer.WithDetectedLineEnding(text))
	id := e.nextBuffer
	e.nextBuffer++
	e.buffers[id] = &bufferEntry{buf: buf, tracker: tracking.NewTracker()}
	e.logger.Info("engine: opened buffer %d path=%q", id, path)
	e.emit(Event{Kind: EventBufferOpened, BufferID: id})
	return id
}

// OpenReader opens a file-backed buffer by reading r fully.
func (e *Engine) OpenReader(r io.Reader, path string) (BufferID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, err := buffer.FromReader(r, buffer.WithKind(buffer.KindFile), buffer.WithPath(path))
	if err != nil {
		e.emit(Event{Kind: EventError, Scope: "buffer.open", Message: err.Error()})
		return 0, err
	}
	id := e.nextBuffer
	e.nextBuffer++
	e.buffers[id] = &bufferEntry{buf: buf, tracker: tracking.NewTracker()}
	e.logger.Info("engine: opened buffer %d path=%q", id, path)
	e.emit(Event{Kind: EventBufferOpened, BufferID: id})
	return id, nil
}

// Close drops a buffer from the table. Splits still pointing at it are
// left as-is; rendering a dangling split is the caller's responsibility
// to avoid (close its splits first).
func (e *Engine) Close(id BufferID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.bufferLocked(id); err != nil {
		return err
	}
	delete(e.buffers, id)
	e.emit(Event{Kind: EventBufferClosed, BufferID: id})
	return nil
}

// Save writes a buffer's full content to its backing path, or to path if
// given (a "Save As"). Virtual buffers, which have no backing file, are
// refused. On success the buffer's path is updated to the save target and
// EventBufferSaved is emitted.
func (e *Engine) Save(id BufferID, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return err
	}
	if entry.buf.Kind() == buffer.KindVirtual {
		return enginerr.VirtualBuffer
	}
	target := path
	if target == "" {
		target = entry.buf.Path()
	}

	f, err := os.Create(target)
	if err != nil {
		e.emit(Event{Kind: EventError, BufferID: id, Scope: "buffer.save", ErrKind: "io", Message: err.Error()})
		return fmt.Errorf("%w: %v", enginerr.IOError, err)
	}
	defer f.Close()
	if _, err := entry.buf.WriteTo(f); err != nil {
		e.emit(Event{Kind: EventError, BufferID: id, Scope: "buffer.save", ErrKind: "io", Message: err.Error()})
		return fmt.Errorf("%w: %v", enginerr.IOError, err)
	}

	entry.buf.SetPath(target)
	e.logger.Info("engine: saved buffer %d to %q", id, target)
	e.emit(Event{Kind: EventBufferSaved, BufferID: id})
	return nil
}

// Revert discards unsaved edits by rereading a buffer's backing file from
// disk, clearing its undo log and markers. Virtual buffers are refused,
// having nothing on disk to reread.
func (e *Engine) Revert(id BufferID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return err
	}
	if entry.buf.Kind() == buffer.KindVirtual {
		return enginerr.VirtualBuffer
	}

	f, err := os.Open(entry.buf.Path())
	if err != nil {
		e.emit(Event{Kind: EventError, BufferID: id, Scope: "buffer.revert", ErrKind: "io", Message: err.Error()})
		return fmt.Errorf("%w: %v", enginerr.IOError, err)
	}
	defer f.Close()
	if err := entry.buf.Revert(f); err != nil {
		e.emit(Event{Kind: EventError, BufferID: id, Scope: "buffer.revert", ErrKind: "io", Message: err.Error()})
		return err
	}

	entry.readOnly = false
	entry.tracker = tracking.NewTracker()
	for _, vs := range e.splits {
		if vs.BufferID == id {
			vs.Cursors.Clear(0)
		}
	}
	e.emit(Event{Kind: EventBufferChanged, BufferID: id, Revision: entry.buf.RevisionID()})
	return nil
}

func (e *Engine) bufferLocked(id BufferID) (*bufferEntry, error) {
	entry, ok := e.buffers[id]
	if !ok {
		return nil, enginerr.NoSuchBuffer
	}
	return entry, nil
}

// Buffer returns the underlying *buffer.Buffer for direct read access
// (rendering, search), erroring if id is not open.
func (e *Engine) Buffer(id BufferID) (*buffer.Buffer, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return nil, err
	}
	return entry.buf, nil
}

// SetReadOnly marks a buffer read-only (or lifts the mark). A poisoned
// buffer is always treated as read-only regardless of this flag.
func (e *Engine) SetReadOnly(id BufferID, readOnly bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return err
	}
	entry.readOnly = readOnly
	return nil
}

func (e *Engine) checkWritableLocked(entry *bufferEntry) error {
	if entry.buf.IsPoisoned() {
		return enginerr.ReadOnly
	}
	if entry.readOnly {
		return enginerr.ReadOnly
	}
	return nil
}

// --- editing ---

// Insert applies an insertion to the named buffer, isolating any failure
// to that buffer: a poisoned buffer is marked read-only and reported via
// an EventError, but other open buffers are unaffected.
func (e *Engine) Insert(id BufferID, at buffer.ByteOffset, text string) error {
	return e.edit(id, func(buf *buffer.Buffer) (buffer.EditResult, error) {
		return buf.Insert(at, text)
	})
}

// Delete applies a deletion to the named buffer.
func (e *Engine) Delete(id BufferID, start, end buffer.ByteOffset) error {
	return e.edit(id, func(buf *buffer.Buffer) (buffer.EditResult, error) {
		return buf.Delete(start, end)
	})
}

// Replace applies a replace-range edit to the named buffer.
func (e *Engine) Replace(id BufferID, start, end buffer.ByteOffset, text string) error {
	return e.edit(id, func(buf *buffer.Buffer) (buffer.EditResult, error) {
		return buf.Replace(start, end, text)
	})
}

// edit runs one mutation against a buffer, reacting every split viewing
// that buffer, emitting BufferChanged, and poisoning+isolating the
// buffer on failure rather than letting a bad edit touch any other one.
func (e *Engine) edit(id BufferID, apply func(*buffer.Buffer) (buffer.EditResult, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return err
	}
	if err := e.checkWritableLocked(entry); err != nil {
		return err
	}

	res, err := apply(entry.buf)
	if err != nil {
		if entry.buf.IsPoisoned() {
			entry.readOnly = true
			e.logger.Error("engine: buffer %d poisoned: %v", id, entry.buf.PoisonCause())
			e.emit(Event{Kind: EventError, BufferID: id, Scope: "buffer.edit", ErrKind: "poisoned", Message: err.Error()})
		}
		return err
	}

	deleted := int64(res.OldRange.Len())
	inserted := int64(res.NewRange.Len())
	for _, vs := range e.splits {
		if vs.BufferID != id {
			continue
		}
		vs.OnEdit(entry.buf, res.OldRange.Start, deleted, inserted, viewstate.AffinityRight)
	}

	rev := entry.buf.RevisionID()
	if newText, terr := entry.buf.TextRange(res.NewRange.Start, res.NewRange.End); terr == nil {
		entry.tracker.RecordChange(rev, tracking.FromEditResult(res, newText, rev), entry.buf.Snapshot())
	}

	e.emit(Event{Kind: EventBufferChanged, BufferID: id, Range: res.NewRange, Revision: rev})
	return nil
}

// --- undo/redo/grouping ---

// Undo reverts the most recent undo group on the named buffer, reacting
// every split viewing that buffer to each reverted op in turn, the same
// way edit() does for a live edit.
func (e *Engine) Undo(id BufferID) error {
	return e.withUndoRedo(id, (*buffer.Buffer).Undo)
}

// Redo re-applies the most recently undone group on the named buffer,
// reacting every split viewing that buffer the same way Undo does.
func (e *Engine) Redo(id BufferID) error {
	return e.withUndoRedo(id, (*buffer.Buffer).Redo)
}

func (e *Engine) BeginGroup(id BufferID, description string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return err
	}
	return entry.buf.BeginGroup(description)
}

func (e *Engine) EndGroup(id BufferID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return err
	}
	return entry.buf.EndGroup()
}

// withUndoRedo runs fn (Buffer.Undo or Buffer.Redo), then fans out every
// replayed delta to each split viewing the buffer exactly as edit() does
// for a live edit, so cursors and viewports stay consistent with the
// reverted or reapplied text rather than sitting at stale byte offsets.
func (e *Engine) withUndoRedo(id BufferID, fn func(*buffer.Buffer) ([]buffer.UndoDelta, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return err
	}
	deltas, err := fn(entry.buf)
	if err != nil {
		return err
	}

	for _, d := range deltas {
		for _, vs := range e.splits {
			if vs.BufferID != id {
				continue
			}
			vs.OnEdit(entry.buf, d.At, d.DeletedLen, d.InsertedLen, viewstate.AffinityRight)
		}
	}

	e.emit(Event{Kind: EventBufferChanged, BufferID: id, Revision: entry.buf.RevisionID()})
	return nil
}

// --- markers ---

// AddMarker inserts a marker on the named buffer and reports it via
// EventMarkerChanged.
func (e *Engine) AddMarker(id BufferID, start, end buffer.ByteOffset, payload interval.Payload) (buffer.MarkerID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return 0, err
	}
	mid := entry.buf.AddMarker(start, end, payload)
	e.emit(Event{Kind: EventMarkerChanged, BufferID: id, Markers: []buffer.MarkerID{mid}})
	return mid, nil
}

// RemoveMarker deletes a marker from the named buffer.
func (e *Engine) RemoveMarker(id BufferID, marker buffer.MarkerID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return err
	}
	entry.buf.RemoveMarker(marker)
	e.emit(Event{Kind: EventMarkerChanged, BufferID: id, Markers: []buffer.MarkerID{marker}})
	return nil
}

// QueryMarkers returns every marker overlapping [start, end) on the named
// buffer.
func (e *Engine) QueryMarkers(id BufferID, start, end buffer.ByteOffset) ([]buffer.Marker, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return nil, err
	}
	return entry.buf.QueryMarkers(start, end), nil
}

// --- splits ---

// CreateSplit opens a new split viewing bufID, sized rows x cols, and
// makes it the active split if it is the first one created.
func (e *Engine) CreateSplit(bufID BufferID, rows, cols uint32, wrap bool) (SplitID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.bufferLocked(bufID); err != nil {
		return 0, err
	}
	id := e.nextSplit
	e.nextSplit++
	e.splits[id] = viewstate.New(bufID, rows, cols, wrap)
	if len(e.splits) == 1 {
		e.activeSplit = id
	}
	e.emit(Event{Kind: EventViewChanged, SplitID: id, BufferID: bufID})
	return id, nil
}

// CloseSplit removes a split. If it was the active split, the engine
// picks an arbitrary remaining split (or none) as the new active one.
func (e *Engine) CloseSplit(id SplitID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.splitLocked(id); err != nil {
		return err
	}
	delete(e.splits, id)
	if e.activeSplit == id {
		e.activeSplit = 0
		for other := range e.splits {
			e.activeSplit = other
			break
		}
	}
	e.emit(Event{Kind: EventViewChanged, SplitID: id})
	return nil
}

func (e *Engine) splitLocked(id SplitID) (*viewstate.SplitViewState, error) {
	vs, ok := e.splits[id]
	if !ok {
		return nil, enginerr.NoSuchSplit
	}
	return vs, nil
}

// Focus makes id the active split.
func (e *Engine) Focus(id SplitID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.splitLocked(id); err != nil {
		return err
	}
	e.activeSplit = id
	e.emit(Event{Kind: EventViewChanged, SplitID: id})
	return nil
}

// ActiveSplit returns the currently focused split id, or 0 if none.
func (e *Engine) ActiveSplit() SplitID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeSplit
}

// Resize sets a split's row/column size directly (the terminal UI owns
// the split tree's layout math; the engine just records the result).
func (e *Engine) Resize(id SplitID, rows, cols uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	vs, err := e.splitLocked(id)
	if err != nil {
		return err
	}
	vs.Viewport.Rows, vs.Viewport.Cols = rows, cols
	e.emit(Event{Kind: EventViewChanged, SplitID: id})
	return nil
}

// --- cursor / viewport passthroughs ---

// SplitView returns a split's view state and owning buffer, for callers
// (cursor commands, the renderer) that need both together.
func (e *Engine) SplitView(id SplitID) (*viewstate.SplitViewState, *buffer.Buffer, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	vs, err := e.splitLocked(id)
	if err != nil {
		return nil, nil, err
	}
	entry, err := e.bufferLocked(vs.BufferID)
	if err != nil {
		return nil, nil, err
	}
	return vs, entry.buf, nil
}

// MoveCaret moves every cursor of the named split, honoring extend.
func (e *Engine) MoveCaret(id SplitID, kind viewstate.MoveKind, arg int64, extend bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	vs, err := e.splitLocked(id)
	if err != nil {
		return err
	}
	entry, err := e.bufferLocked(vs.BufferID)
	if err != nil {
		return err
	}
	vs.MoveCaret(entry.buf, kind, arg, extend)
	e.emit(Event{Kind: EventViewChanged, SplitID: id})
	return nil
}

// ScrollSplit scrolls a split's viewport by whole rows/columns.
func (e *Engine) ScrollSplit(id SplitID, deltaRows, deltaCols int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	vs, err := e.splitLocked(id)
	if err != nil {
		return err
	}
	entry, err := e.bufferLocked(vs.BufferID)
	if err != nil {
		return err
	}
	vs.Scroll(entry.buf, deltaRows, deltaCols)
	e.emit(Event{Kind: EventViewChanged, SplitID: id})
	return nil
}

// Render produces one frame for a split: its buffer's visible text
// composed with the caller-supplied overlays and style resolver into a
// styled cell grid, sized to the split's own viewport. query and resolve
// may be nil to render with no overlays and the Renderer's default style.
func (e *Engine) Render(id SplitID, query render.OverlayQuery, resolve render.StyleResolver) (*render.Grid, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	vs, err := e.splitLocked(id)
	if err != nil {
		return nil, err
	}
	entry, err := e.bufferLocked(vs.BufferID)
	if err != nil {
		return nil, err
	}
	if query == nil {
		query = func(_, _ buffer.ByteOffset) []render.Overlay { return nil }
	}
	return e.renderer.Render(entry.buf, vs, query, resolve), nil
}

// --- change tracking ---

// CreateSnapshot records a named checkpoint of a buffer's current state,
// so a later DiffSinceSnapshot/ComputeDiffSinceSnapshot call can report what
// happened after it without re-diffing the whole document.
func (e *Engine) CreateSnapshot(id BufferID, name string) (tracking.SnapshotID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return 0, err
	}
	return entry.tracker.CreateSnapshot(name, entry.buf.Snapshot(), entry.buf.RevisionID()), nil
}

// ChangesSince returns every recorded change to a buffer after rev, in
// chronological order.
func (e *Engine) ChangesSince(id BufferID, rev buffer.RevisionID) ([]tracking.Change, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return nil, err
	}
	return entry.tracker.ChangesSince(rev), nil
}

// DiffSinceSnapshot reports the changes recorded since a named checkpoint
// was taken, without recomputing a line diff.
func (e *Engine) DiffSinceSnapshot(id BufferID, snap tracking.SnapshotID) ([]tracking.Change, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return nil, err
	}
	return entry.tracker.DiffSinceSnapshot(snap)
}

// ComputeDiffSinceSnapshot computes a line-level diff from a named
// checkpoint to the buffer's current state.
func (e *Engine) ComputeDiffSinceSnapshot(id BufferID, snap tracking.SnapshotID, opts tracking.DiffOptions) (tracking.DiffResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, err := e.bufferLocked(id)
	if err != nil {
		return tracking.DiffResult{}, err
	}
	return entry.tracker.ComputeDiffSinceSnapshot(snap, entry.buf.Snapshot(), opts)
}
