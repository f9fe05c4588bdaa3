package editlog

import "testing"

// fakeDoc is a minimal Applier backed by a plain string, enough to drive
// Undo/Redo without pulling in the buffer package (which itself depends
// on editlog).
type fakeDoc struct {
	text string
}

func (d *fakeDoc) ApplyInsert(at int64, text string) error {
	d.text = d.text[:at] + text + d.text[at:]
	return nil
}

func (d *fakeDoc) ApplyDelete(at, end int64) error {
	d.text = d.text[:at] + d.text[end:]
	return nil
}

func TestRecordInsertThenUndo(t *testing.T) {
	log := New()
	doc := &fakeDoc{text: "hello world"}

	doc.text = "hello, world"
	log.RecordInsert(5, ",")

	if !log.CanUndo() {
		t.Fatal("expected an undoable entry after RecordInsert")
	}
	if _, err := log.Undo(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.text != "hello world" {
		t.Errorf("expected undo to remove the inserted comma, got %q", doc.text)
	}
}

func TestUndoThenRedo(t *testing.T) {
	log := New()
	doc := &fakeDoc{text: "hello world"}

	doc.text = "hello, world"
	log.RecordInsert(5, ",")

	if _, err := log.Undo(doc); err != nil {
		t.Fatalf("unexpected error on undo: %v", err)
	}
	if !log.CanRedo() {
		t.Fatal("expected a redoable entry after undo")
	}
	if _, err := log.Redo(doc); err != nil {
		t.Fatalf("unexpected error on redo: %v", err)
	}
	if doc.text != "hello, world" {
		t.Errorf("expected redo to reapply the insert, got %q", doc.text)
	}
}

func TestUndoWithNothingToUndo(t *testing.T) {
	log := New()
	doc := &fakeDoc{text: "x"}
	if _, err := log.Undo(doc); err == nil {
		t.Error("expected an error undoing an empty log")
	}
}

func TestBeginGroupCollapsesMultipleEditsToOneUndoStep(t *testing.T) {
	log := New()
	doc := &fakeDoc{text: "abc"}

	if err := log.BeginGroup("batch"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc.text = "Xabc"
	log.RecordInsert(0, "X")
	doc.text = "XabcY"
	log.RecordInsert(4, "Y")
	if err := log.EndGroup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := log.Undo(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.text != "abc" {
		t.Errorf("expected one undo to remove both grouped edits, got %q", doc.text)
	}
	if log.CanUndo() {
		t.Error("expected no further undo entries after undoing the single group")
	}
}

func TestCancelGroupDropsRecordedOps(t *testing.T) {
	log := New()
	doc := &fakeDoc{text: "abc"}

	if err := log.BeginGroup("aborted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc.text = "Xabc"
	log.RecordInsert(0, "X")
	log.CancelGroup()

	if log.CanUndo() {
		t.Error("expected a cancelled group to leave no undo entry")
	}
}

func TestBeginGroupTwiceIsAnError(t *testing.T) {
	log := New()
	if err := log.BeginGroup("outer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := log.BeginGroup("inner"); err == nil {
		t.Error("expected an error beginning a group while one is already open")
	}
}

func TestEndGroupWithoutBeginIsAnError(t *testing.T) {
	log := New()
	if err := log.EndGroup(); err == nil {
		t.Error("expected an error ending a group that was never begun")
	}
}

func TestMaxGroupsTrimsOldestEntries(t *testing.T) {
	log := New(WithMaxGroups(2))
	doc := &fakeDoc{text: ""}

	doc.text = "a"
	log.RecordInsert(0, "a")
	doc.text = "ab"
	log.RecordInsert(1, "b")
	doc.text = "abc"
	log.RecordInsert(2, "c")

	undone := 0
	for log.CanUndo() {
		if _, err := log.Undo(doc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		undone++
	}
	if undone != 2 {
		t.Errorf("expected only 2 retained undo groups, got %d", undone)
	}
}
