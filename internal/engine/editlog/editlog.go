// Package editlog implements the EditLog: a grouped undo/redo stack of
// reverse operations, following the same Push/Undo/Redo/BeginGroup/
// EndGroup shape as the teacher's history package but storing raw
// Insert/Delete reverse ops against a ChunkTree instead of Command
// objects bound to a rope+cursor pair.
package editlog

import (
	"sync"
	"time"

	"github.com/pm100/fresh/internal/engine/enginerr"
)

// OpKind distinguishes the two reverse-op shapes the spec allows.
type OpKind uint8

const (
	OpInsert OpKind = iota
	OpDelete
)

// Op is one primitive reverse operation: insert Text at At, or delete
// the range [At, At+len(Text)).
type Op struct {
	Kind OpKind
	At   int64
	Text string
}

// Applier is the narrow surface EditLog needs from a Buffer to replay
// undo/redo ops. Buffer implements it directly against its ChunkTree.
type Applier interface {
	ApplyInsert(at int64, text string) error
	ApplyDelete(at, end int64) error
}

func (op Op) apply(a Applier) error {
	switch op.Kind {
	case OpInsert:
		return a.ApplyInsert(op.At, op.Text)
	case OpDelete:
		return a.ApplyDelete(op.At, op.At+int64(len(op.Text)))
	default:
		return nil
	}
}

// Group is one undo unit: every edit performed between BeginGroup and
// EndGroup (or a single edit, auto-grouped) collapses to one undo/redo
// step. UndoOps is kept in the exact order needed to undo the group
// (last-applied edit's reverse first); RedoOps is kept in original
// chronological order so redo replays the edits exactly as they
// happened.
type Group struct {
	ID          int64
	Description string
	UndoOps     []Op
	RedoOps     []Op
	Timestamp   time.Time
}

// Log is the EditLog: grouped undo/redo stacks bounded by entry count
// and by an approximate memory budget, matching the teacher history's
// maxEntries trimming but also trimming on accumulated op text size so a
// handful of huge pastes can't balloon memory the way pure entry-count
// capping would miss.
type Log struct {
	mu sync.Mutex

	undoStack []*Group
	redoStack []*Group

	grouping  bool
	groupDesc string
	pending   *Group
	nextID    int64

	maxGroups int
	maxBytes  int64
	bytesUsed int64
}

// Option configures a Log at construction.
type Option func(*Log)

// WithMaxGroups bounds the number of undo groups retained.
func WithMaxGroups(n int) Option {
	return func(l *Log) { l.maxGroups = n }
}

// WithMaxBytes bounds the approximate memory held by retained op text.
func WithMaxBytes(n int64) Option {
	return func(l *Log) { l.maxBytes = n }
}

// New creates an EditLog with the given options.
func New(opts ...Option) *Log {
	l := &Log{maxGroups: 1000, maxBytes: 64 << 20, nextID: 1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BeginGroup opens an edit group. Returns GroupAlreadyOpen if one is
// already in progress.
func (l *Log) BeginGroup(description string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.grouping {
		return enginerr.GroupAlreadyOpen
	}
	l.grouping = true
	l.groupDesc = description
	l.pending = &Group{ID: l.nextID, Description: description, Timestamp: now()}
	return nil
}

// EndGroup closes the current edit group and pushes it onto the undo
// stack. Returns NoActiveGroup if no group is open. An empty group (no
// edits occurred between BeginGroup and EndGroup) is discarded silently.
func (l *Log) EndGroup() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.grouping {
		return enginerr.NoActiveGroup
	}
	l.grouping = false
	g := l.pending
	l.pending = nil
	if g == nil || len(g.RedoOps) == 0 {
		return nil
	}
	l.nextID++
	l.pushLocked(g)
	return nil
}

// CancelGroup discards the current group's bookkeeping without undoing
// edits already applied to the buffer — mirrors the teacher history's
// CancelGroup, including its caveat that already-executed edits are not
// rolled back by this call alone.
func (l *Log) CancelGroup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.grouping = false
	l.pending = nil
}

// RecordInsert records that text was inserted at at, as the next step of
// the current group (or of a new single-op group, auto-opened and
// closed if no group is active).
func (l *Log) RecordInsert(at int64, text string) {
	l.record(Op{Kind: OpInsert, At: at, Text: text}, Op{Kind: OpDelete, At: at, Text: text})
}

// RecordDelete records that removed was deleted starting at at.
func (l *Log) RecordDelete(at int64, removed string) {
	l.record(Op{Kind: OpDelete, At: at, Text: removed}, Op{Kind: OpInsert, At: at, Text: removed})
}

func (l *Log) record(redo, undo Op) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.grouping {
		l.pending.RedoOps = append(l.pending.RedoOps, redo)
		l.pending.UndoOps = append([]Op{undo}, l.pending.UndoOps...)
		return
	}

	l.nextID++
	g := &Group{
		ID:        l.nextID,
		RedoOps:   []Op{redo},
		UndoOps:   []Op{undo},
		Timestamp: now(),
	}
	l.pushLocked(g)
}

func (l *Log) pushLocked(g *Group) {
	l.undoStack = append(l.undoStack, g)
	l.redoStack = nil

	l.bytesUsed += groupBytes(g)
	for (l.maxGroups > 0 && len(l.undoStack) > l.maxGroups) || (l.maxBytes > 0 && l.bytesUsed > l.maxBytes && len(l.undoStack) > 1) {
		oldest := l.undoStack[0]
		l.undoStack = l.undoStack[1:]
		l.bytesUsed -= groupBytes(oldest)
	}
}

func groupBytes(g *Group) int64 {
	var n int64
	for _, op := range g.RedoOps {
		n += int64(len(op.Text))
	}
	return n
}

// Undo applies the most recent group's UndoOps via a, moving it to the
// redo stack, and returns the ops as applied (in order) so a caller that
// needs to react every dependent view (cursor adjustment) can replay the
// same deltas applying them produced. Returns NothingToUndo if the undo
// stack is empty.
func (l *Log) Undo(a Applier) ([]Op, error) {
	l.mu.Lock()
	if len(l.undoStack) == 0 {
		l.mu.Unlock()
		return nil, enginerr.NothingToUndo
	}
	g := l.undoStack[len(l.undoStack)-1]
	l.undoStack = l.undoStack[:len(l.undoStack)-1]
	l.mu.Unlock()

	for _, op := range g.UndoOps {
		if err := op.apply(a); err != nil {
			l.mu.Lock()
			l.undoStack = append(l.undoStack, g)
			l.mu.Unlock()
			return nil, err
		}
	}

	l.mu.Lock()
	l.redoStack = append(l.redoStack, g)
	l.mu.Unlock()
	return g.UndoOps, nil
}

// Redo re-applies the most recently undone group's RedoOps via a, and
// returns the ops as applied. Returns NothingToRedo if the redo stack is
// empty.
func (l *Log) Redo(a Applier) ([]Op, error) {
	l.mu.Lock()
	if len(l.redoStack) == 0 {
		l.mu.Unlock()
		return nil, enginerr.NothingToRedo
	}
	g := l.redoStack[len(l.redoStack)-1]
	l.redoStack = l.redoStack[:len(l.redoStack)-1]
	l.mu.Unlock()

	for _, op := range g.RedoOps {
		if err := op.apply(a); err != nil {
			l.mu.Lock()
			l.redoStack = append(l.redoStack, g)
			l.mu.Unlock()
			return nil, err
		}
	}

	l.mu.Lock()
	l.undoStack = append(l.undoStack, g)
	l.mu.Unlock()
	return g.RedoOps, nil
}

func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undoStack) > 0
}

func (l *Log) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.redoStack) > 0
}

// Clear discards all undo/redo history.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.undoStack = nil
	l.redoStack = nil
	l.bytesUsed = 0
	l.grouping = false
	l.pending = nil
}

var timeNow = time.Now

func now() time.Time { return timeNow() }
