package buffer

import (
	"fmt"

	"github.com/pm100/fresh/internal/engine/chunktree"
	"github.com/pm100/fresh/internal/engine/editlog"
)

// Edit represents a text edit operation.
// It specifies a range to replace and the new text.
type Edit struct {
	Range   Range  // The range to replace
	NewText string // The replacement text
}

// NewEdit creates a new Edit.
func NewEdit(r Range, newText string) Edit {
	return Edit{Range: r, NewText: newText}
}

// NewInsert creates an Edit that inserts text at a position.
func NewInsert(offset ByteOffset, text string) Edit {
	return Edit{Range: Range{Start: offset, End: offset}, NewText: text}
}

// NewDelete creates an Edit that deletes a range of text.
func NewDelete(start, end ByteOffset) Edit {
	return Edit{Range: Range{Start: start, End: end}, NewText: ""}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("Insert(%d, %q)", e.Range.Start, e.NewText)
	}
	if e.NewText == "" {
		return fmt.Sprintf("Delete%s", e.Range.String())
	}
	return fmt.Sprintf("Replace%s with %q", e.Range.String(), e.NewText)
}

// IsInsert returns true if this is a pure insertion (empty range).
func (e Edit) IsInsert() bool { return e.Range.IsEmpty() && e.NewText != "" }

// IsDelete returns true if this is a pure deletion (empty replacement).
func (e Edit) IsDelete() bool { return !e.Range.IsEmpty() && e.NewText == "" }

// IsReplace returns true if this replaces existing text with new text.
func (e Edit) IsReplace() bool { return !e.Range.IsEmpty() && e.NewText != "" }

// IsNoOp returns true if this edit does nothing.
func (e Edit) IsNoOp() bool { return e.Range.IsEmpty() && e.NewText == "" }

// Delta returns the change in buffer length caused by this edit.
func (e Edit) Delta() ByteOffset { return ByteOffset(len(e.NewText)) - e.Range.Len() }

// EditResult contains information about an applied edit.
type EditResult struct {
	OldRange Range  // The original range that was modified
	NewRange Range  // The resulting range after the edit
	OldText  string // The text that was replaced (if any)
	Delta    int64  // Change in buffer length
}

// --- mutation ---

// Insert inserts text at offset, recording the edit in the undo log and
// adjusting every marker and line anchor to account for it.
func (b *Buffer) Insert(offset ByteOffset, text string) (EditResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(Range{Start: offset, End: offset}, text, true)
}

// Delete removes [start, end), recording the edit in the undo log.
func (b *Buffer) Delete(start, end ByteOffset) (EditResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(Range{Start: start, End: end}, "", true)
}

// Replace removes [start, end) and inserts text in its place, recorded as
// one undo step.
func (b *Buffer) Replace(start, end ByteOffset, text string) (EditResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(Range{Start: start, End: end}, text, true)
}

// ApplyEdit applies a single Edit value.
func (b *Buffer) ApplyEdit(edit Edit) (EditResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(edit.Range, edit.NewText, true)
}

// ApplyEdits applies a sequence of edits as a single undo group. Edits are
// applied in order against offsets as they exist at the time each edit is
// reached; callers composing edits against a single original snapshot must
// order them back-to-front themselves.
func (b *Buffer) ApplyEdits(edits []Edit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkPoisonedLocked(); err != nil {
		return err
	}
	if err := b.log.BeginGroup("batch edit"); err != nil {
		return err
	}
	for _, e := range edits {
		if _, err := b.applyLocked(e.Range, e.NewText, true); err != nil {
			b.log.CancelGroup()
			return err
		}
	}
	return b.log.EndGroup()
}

// applyLocked performs one replace-range edit against the tree, the
// interval tree of markers, the line index, and (when record is true) the
// undo log, bumping the revision on success. b.mu must already be held.
func (b *Buffer) applyLocked(r Range, newText string, record bool) (EditResult, error) {
	if err := b.checkPoisonedLocked(); err != nil {
		return EditResult{}, err
	}
	start, end := chunktree.ByteOffset(r.Start), chunktree.ByteOffset(r.End)
	oldText, err := b.tree.Read(start, end)
	if err != nil {
		return EditResult{}, err
	}

	newTree, err := b.tree.Replace(start, end, newText)
	if err != nil {
		return EditResult{}, err
	}
	b.tree = newTree

	deletedLen := int64(r.Len())
	newLen := int64(len(newText))
	b.markers.AdjustForEdit(int64(r.Start), deletedLen, newLen)
	b.lines.OnEdit(int64(r.Start), oldText, newText)

	if record {
		b.recordLocked(r.Start, oldText, newText)
	}
	b.revision++

	return EditResult{
		OldRange: r,
		NewRange: Range{Start: r.Start, End: r.Start + ByteOffset(len(newText))},
		OldText:  oldText,
		Delta:    int64(len(newText)) - int64(r.Len()),
	}, nil
}

// recordLocked records one replace-range edit in chronological order (the
// removal of oldText, then the insertion of newText), so that undo replays
// a delete of whatever was inserted followed by an insert of whatever was
// removed: the two-op decomposition the undo log needs since it only knows
// Insert and Delete reverse ops, never Replace. When no group is open, a
// replace gets a group of its own so both ops form one undo step.
func (b *Buffer) recordLocked(at ByteOffset, oldText, newText string) {
	if len(oldText) > 0 && len(newText) > 0 {
		if err := b.log.BeginGroup("replace"); err == nil {
			defer b.log.EndGroup()
		}
	}
	if len(oldText) > 0 {
		b.log.RecordDelete(int64(at), oldText)
	}
	if len(newText) > 0 {
		b.log.RecordInsert(int64(at), newText)
	}
}

// ApplyInsert and ApplyDelete implement editlog.Applier so the undo log can
// replay reverse ops directly against this buffer without re-recording them.
func (b *Buffer) ApplyInsert(at int64, text string) error {
	start := chunktree.ByteOffset(at)
	newTree, err := b.tree.Insert(start, text)
	if err != nil {
		b.poison(err)
		return err
	}
	b.tree = newTree
	b.markers.AdjustForEdit(at, 0, int64(len(text)))
	b.lines.OnEdit(at, "", text)
	b.revision++
	return nil
}

func (b *Buffer) ApplyDelete(at, end int64) error {
	start, stop := chunktree.ByteOffset(at), chunktree.ByteOffset(end)
	removed, err := b.tree.Read(start, stop)
	if err != nil {
		b.poison(err)
		return err
	}
	newTree, err := b.tree.Delete(start, stop)
	if err != nil {
		b.poison(err)
		return err
	}
	b.tree = newTree
	b.markers.AdjustForEdit(at, end-at, 0)
	b.lines.OnEdit(at, removed, "")
	b.revision++
	return nil
}

// poison marks the buffer unusable after a replay invariant violation: the
// undo log and the tree have diverged and no further edit can be trusted.
func (b *Buffer) poison(cause error) {
	b.poisoned = true
	b.poisonCause = cause
}

// PoisonCause returns the error that poisoned the buffer, if any.
func (b *Buffer) PoisonCause() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.poisonCause
}

// IsPoisoned reports whether the buffer has been poisoned.
func (b *Buffer) IsPoisoned() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.poisoned
}

// --- undo/redo ---

// BeginGroup opens an undo group; edits made until EndGroup collapse into
// one undo step.
func (b *Buffer) BeginGroup(description string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log.BeginGroup(description)
}

// EndGroup closes the current undo group.
func (b *Buffer) EndGroup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log.EndGroup()
}

// UndoDelta describes one primitive reverse op as it was replayed by Undo
// or Redo, in the same (at, deletedLen, insertedLen) shape a live edit
// reports, so a caller holding views onto this buffer can react each one
// through the exact path a direct edit would.
type UndoDelta struct {
	At          ByteOffset
	DeletedLen  int64
	InsertedLen int64
}

func deltasFromOps(ops []editlog.Op) []UndoDelta {
	if len(ops) == 0 {
		return nil
	}
	deltas := make([]UndoDelta, len(ops))
	for i, op := range ops {
		d := UndoDelta{At: ByteOffset(op.At)}
		switch op.Kind {
		case editlog.OpInsert:
			d.InsertedLen = int64(len(op.Text))
		case editlog.OpDelete:
			d.DeletedLen = int64(len(op.Text))
		}
		deltas[i] = d
	}
	return deltas
}

// Undo reverts the most recent undo group, returning the ops it replayed
// in the order applied.
func (b *Buffer) Undo() ([]UndoDelta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkPoisonedLocked(); err != nil {
		return nil, err
	}
	ops, err := b.log.Undo(b)
	if err != nil {
		return nil, err
	}
	return deltasFromOps(ops), nil
}

// Redo re-applies the most recently undone group, returning the ops it
// replayed in the order applied.
func (b *Buffer) Redo() ([]UndoDelta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkPoisonedLocked(); err != nil {
		return nil, err
	}
	ops, err := b.log.Redo(b)
	if err != nil {
		return nil, err
	}
	return deltasFromOps(ops), nil
}

func (b *Buffer) CanUndo() bool {
	return b.log.CanUndo()
}

func (b *Buffer) CanRedo() bool {
	return b.log.CanRedo()
}

