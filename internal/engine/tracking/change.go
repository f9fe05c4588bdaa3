package tracking

import (
	"fmt"
	"strings"

	"github.com/pm100/fresh/internal/engine/buffer"
)

// ChangeKind categorizes one recorded edit.
type ChangeKind uint8

const (
	ChangeInsert ChangeKind = iota
	ChangeDelete
	ChangeReplace
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Change is one recorded edit: where it landed in the old text (Range),
// where the replacement landed in the new text (NewRange), and the text on
// both sides of the edit.
type Change struct {
	Kind       ChangeKind
	Range      buffer.Range // in the text before the edit
	NewRange   buffer.Range // in the text after the edit
	OldText    string
	NewText    string
	RevisionID RevisionID
}

// NewInsertChange builds a Change representing a point insertion.
func NewInsertChange(offset buffer.ByteOffset, text string, revID RevisionID) Change {
	return Change{
		Kind:       ChangeInsert,
		Range:      buffer.Range{Start: offset, End: offset},
		NewRange:   buffer.Range{Start: offset, End: offset + buffer.ByteOffset(len(text))},
		NewText:    text,
		RevisionID: revID,
	}
}

// NewDeleteChange builds a Change representing a deletion of [start, end).
func NewDeleteChange(start, end buffer.ByteOffset, oldText string, revID RevisionID) Change {
	return Change{
		Kind:       ChangeDelete,
		Range:      buffer.Range{Start: start, End: end},
		NewRange:   buffer.Range{Start: start, End: start},
		OldText:    oldText,
		RevisionID: revID,
	}
}

// NewReplaceChange builds a Change representing [start, end) replaced by
// newText.
func NewReplaceChange(start, end buffer.ByteOffset, oldText, newText string, revID RevisionID) Change {
	return Change{
		Kind:       ChangeReplace,
		Range:      buffer.Range{Start: start, End: end},
		NewRange:   buffer.Range{Start: start, End: start + buffer.ByteOffset(len(newText))},
		OldText:    oldText,
		NewText:    newText,
		RevisionID: revID,
	}
}

func (c Change) IsInsert() bool  { return c.Kind == ChangeInsert }
func (c Change) IsDelete() bool  { return c.Kind == ChangeDelete }
func (c Change) IsReplace() bool { return c.Kind == ChangeReplace }

// FromEditResult builds a Change from an engine.edit call's outcome: the
// kind falls out of whether the old range was empty (insert) or the new
// text is empty (delete), replace otherwise.
func FromEditResult(res buffer.EditResult, newText string, rev RevisionID) Change {
	kind := ChangeReplace
	switch {
	case res.OldRange.IsEmpty():
		kind = ChangeInsert
	case newText == "":
		kind = ChangeDelete
	}
	return Change{
		Kind:       kind,
		Range:      res.OldRange,
		NewRange:   res.NewRange,
		OldText:    res.OldText,
		NewText:    newText,
		RevisionID: rev,
	}
}

func (c Change) String() string {
	switch c.Kind {
	case ChangeInsert:
		return fmt.Sprintf("insert %q at %d", truncate(c.NewText, 20), c.Range.Start)
	case ChangeDelete:
		return fmt.Sprintf("delete %q at %s", truncate(c.OldText, 20), c.Range)
	default:
		return fmt.Sprintf("replace %q with %q at %s", truncate(c.OldText, 10), truncate(c.NewText, 10), c.Range)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// Delta is the byte delta this change applied: positive if the buffer
// grew, negative if it shrank.
func (c Change) Delta() int64 { return int64(len(c.NewText)) - int64(len(c.OldText)) }

// Invert returns the change that undoes c, swapping old and new text and
// ranges but leaving RevisionID as-is (inverting does not create a new
// revision on its own).
func (c Change) Invert() Change {
	kind := c.Kind
	switch c.Kind {
	case ChangeInsert:
		kind = ChangeDelete
	case ChangeDelete:
		kind = ChangeInsert
	}
	return Change{
		Kind:       kind,
		Range:      c.NewRange,
		NewRange:   c.Range,
		OldText:    c.NewText,
		NewText:    c.OldText,
		RevisionID: c.RevisionID,
	}
}

// ChangeSet is an ordered run of changes between two revisions, used to
// summarize a burst of edits for a caller that only wants the gist.
type ChangeSet struct {
	Changes       []Change
	StartRevision RevisionID
	EndRevision   RevisionID
}

func NewChangeSet(startRevision RevisionID) *ChangeSet {
	return &ChangeSet{StartRevision: startRevision, EndRevision: startRevision}
}

func (cs *ChangeSet) Add(c Change) {
	cs.Changes = append(cs.Changes, c)
	cs.EndRevision = c.RevisionID
}

func (cs *ChangeSet) IsEmpty() bool { return len(cs.Changes) == 0 }

func (cs *ChangeSet) TotalDelta() int64 {
	var delta int64
	for _, c := range cs.Changes {
		delta += c.Delta()
	}
	return delta
}

// Summary renders a one-line human-readable gist of the set, e.g.
// "3 inserts (+42 bytes), 2 deletes (-7 bytes)".
func (cs *ChangeSet) Summary() string {
	if cs.IsEmpty() {
		return "no changes"
	}
	var inserts, deletes, replaces int
	var inserted, deleted int64
	for _, c := range cs.Changes {
		switch c.Kind {
		case ChangeInsert:
			inserts++
			inserted += int64(len(c.NewText))
		case ChangeDelete:
			deletes++
			deleted += int64(len(c.OldText))
		case ChangeReplace:
			replaces++
			inserted += int64(len(c.NewText))
			deleted += int64(len(c.OldText))
		}
	}
	var parts []string
	if inserts > 0 {
		parts = append(parts, fmt.Sprintf("%d inserts (+%d bytes)", inserts, inserted))
	}
	if deletes > 0 {
		parts = append(parts, fmt.Sprintf("%d deletes (-%d bytes)", deletes, deleted))
	}
	if replaces > 0 {
		parts = append(parts, fmt.Sprintf("%d replaces", replaces))
	}
	return strings.Join(parts, ", ")
}

// trackedChange pairs a change with the revision it produced, the unit
// the Tracker's ring buffer stores.
type trackedChange struct {
	revision RevisionID
	change   Change
}
