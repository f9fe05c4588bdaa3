package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pm100/fresh/internal/engine/buffer"
	"github.com/pm100/fresh/internal/engine/enginerr"
	"github.com/pm100/fresh/internal/engine/interval"
	"github.com/pm100/fresh/internal/engine/viewstate"
)

func TestOpenStringThenInsertEmitsEvents(t *testing.T) {
	e := New()
	id := e.OpenString("hello\nworld", buffer.KindVirtual, "")

	drain(t, e, EventBufferOpened)

	if err := e.Insert(id, 5, "!"); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	drain(t, e, EventBufferChanged)

	buf, err := e.Buffer(id)
	if err != nil {
		t.Fatalf("Buffer error = %v", err)
	}
	if got := buf.Text(); got != "hello!\nworld" {
		t.Fatalf("Text = %q, want %q", got, "hello!\nworld")
	}
}

func TestCloseUnknownBufferIsNoSuchBuffer(t *testing.T) {
	e := New()
	if err := e.Close(99); !errors.Is(err, enginerr.NoSuchBuffer) {
		t.Fatalf("Close error = %v, want NoSuchBuffer", err)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	e := New()
	id := e.OpenString("abc", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	if err := e.Insert(id, 3, "def"); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	drain(t, e, EventBufferChanged)

	if err := e.Undo(id); err != nil {
		t.Fatalf("Undo error = %v", err)
	}
	drain(t, e, EventBufferChanged)
	buf, _ := e.Buffer(id)
	if got := buf.Text(); got != "abc" {
		t.Fatalf("after undo Text = %q, want abc", got)
	}

	if err := e.Redo(id); err != nil {
		t.Fatalf("Redo error = %v", err)
	}
	drain(t, e, EventBufferChanged)
	if got := buf.Text(); got != "abcdef" {
		t.Fatalf("after redo Text = %q, want abcdef", got)
	}
}

func TestBeginGroupCollapsesEditsIntoOneUndo(t *testing.T) {
	e := New()
	id := e.OpenString("", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	if err := e.BeginGroup(id, "type word"); err != nil {
		t.Fatalf("BeginGroup error = %v", err)
	}
	for _, ch := range []string{"a", "b", "c"} {
		buf, _ := e.Buffer(id)
		if err := e.Insert(id, buf.Len(), ch); err != nil {
			t.Fatalf("Insert error = %v", err)
		}
		drain(t, e, EventBufferChanged)
	}
	if err := e.EndGroup(id); err != nil {
		t.Fatalf("EndGroup error = %v", err)
	}

	buf, _ := e.Buffer(id)
	if got := buf.Text(); got != "abc" {
		t.Fatalf("Text = %q, want abc", got)
	}

	if err := e.Undo(id); err != nil {
		t.Fatalf("Undo error = %v", err)
	}
	drain(t, e, EventBufferChanged)
	if got := buf.Text(); got != "" {
		t.Fatalf("after one undo Text = %q, want empty (whole group reverted)", got)
	}
}

func TestEditOnOneBufferDoesNotAffectAnother(t *testing.T) {
	e := New()
	a := e.OpenString("aaa", buffer.KindVirtual, "")
	b := e.OpenString("bbb", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)
	drain(t, e, EventBufferOpened)

	// Delete past the end of a's content is rejected as an out-of-range
	// read before any mutation happens; b's table entry is never touched.
	err := e.Delete(a, 0, 100)
	if err == nil {
		t.Fatalf("expected an error deleting out of range")
	}

	bufB, _ := e.Buffer(b)
	if got := bufB.Text(); got != "bbb" {
		t.Fatalf("buffer b was affected by a's failure: %q", got)
	}

	if err := e.Insert(b, 0, "X"); err != nil {
		t.Fatalf("Insert on unaffected buffer b error = %v", err)
	}
}

func TestMarkerAddQueryRemove(t *testing.T) {
	e := New()
	id := e.OpenString("hello world", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	mid, err := e.AddMarker(id, 0, 5, interval.Payload{Kind: interval.KindPosition, Name: "cursor-a"})
	if err != nil {
		t.Fatalf("AddMarker error = %v", err)
	}
	drain(t, e, EventMarkerChanged)

	markers, err := e.QueryMarkers(id, 0, 11)
	if err != nil {
		t.Fatalf("QueryMarkers error = %v", err)
	}
	if len(markers) != 1 || markers[0].ID != mid {
		t.Fatalf("unexpected markers: %+v", markers)
	}

	if err := e.RemoveMarker(id, mid); err != nil {
		t.Fatalf("RemoveMarker error = %v", err)
	}
	drain(t, e, EventMarkerChanged)

	markers, _ = e.QueryMarkers(id, 0, 11)
	if len(markers) != 0 {
		t.Fatalf("expected no markers after remove, got %+v", markers)
	}
}

func TestCreateSplitFocusAndResize(t *testing.T) {
	e := New()
	id := e.OpenString("abc", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	split, err := e.CreateSplit(id, 24, 80, false)
	if err != nil {
		t.Fatalf("CreateSplit error = %v", err)
	}
	drain(t, e, EventViewChanged)
	if e.ActiveSplit() != split {
		t.Fatalf("first split should become active")
	}

	if err := e.Resize(split, 10, 40); err != nil {
		t.Fatalf("Resize error = %v", err)
	}
	drain(t, e, EventViewChanged)

	vs, _, err := e.SplitView(split)
	if err != nil {
		t.Fatalf("SplitView error = %v", err)
	}
	if vs.Viewport.Rows != 10 || vs.Viewport.Cols != 40 {
		t.Fatalf("unexpected viewport after resize: %+v", vs.Viewport)
	}

	if err := e.CloseSplit(split); err != nil {
		t.Fatalf("CloseSplit error = %v", err)
	}
	drain(t, e, EventViewChanged)
	if e.ActiveSplit() != 0 {
		t.Fatalf("ActiveSplit after closing the only split = %d, want 0", e.ActiveSplit())
	}
}

func TestMoveCaretAdvancesCursorOnActiveSplit(t *testing.T) {
	e := New()
	id := e.OpenString("hello\nworld", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)
	split, err := e.CreateSplit(id, 24, 80, false)
	if err != nil {
		t.Fatalf("CreateSplit error = %v", err)
	}
	drain(t, e, EventViewChanged)

	if err := e.MoveCaret(split, viewstate.MoveLineDown, 0, false); err != nil {
		t.Fatalf("MoveCaret error = %v", err)
	}
	drain(t, e, EventViewChanged)

	vs, _, _ := e.SplitView(split)
	if vs.Cursors.Primary().Caret() == 0 {
		t.Fatalf("expected caret to move off line start")
	}
}

func TestEditReactsEveryViewingSplit(t *testing.T) {
	e := New()
	id := e.OpenString("0123456789", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)
	splitA, _ := e.CreateSplit(id, 24, 80, false)
	drain(t, e, EventViewChanged)
	splitB, _ := e.CreateSplit(id, 24, 80, false)
	drain(t, e, EventViewChanged)

	vsA, _, _ := e.SplitView(splitA)
	vsA.Cursors.Set([]viewstate.Selection{{Anchor: 8, Head: 8, Primary: true}})
	vsB, _, _ := e.SplitView(splitB)
	vsB.Cursors.Set([]viewstate.Selection{{Anchor: 8, Head: 8, Primary: true}})

	if err := e.Insert(id, 0, "XX"); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	drain(t, e, EventBufferChanged)

	if got := vsA.Cursors.Primary().Caret(); got != 10 {
		t.Fatalf("split A caret = %d, want 10", got)
	}
	if got := vsB.Cursors.Primary().Caret(); got != 10 {
		t.Fatalf("split B caret = %d, want 10", got)
	}
}

func TestSetReadOnlyBlocksEdits(t *testing.T) {
	e := New()
	id := e.OpenString("abc", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	if err := e.SetReadOnly(id, true); err != nil {
		t.Fatalf("SetReadOnly error = %v", err)
	}
	if err := e.Insert(id, 0, "X"); !errors.Is(err, enginerr.ReadOnly) {
		t.Fatalf("Insert on read-only buffer error = %v, want ReadOnly", err)
	}
}

func TestTrackerRecordsEditsPerBuffer(t *testing.T) {
	e := New()
	id := e.OpenString("hello", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	if _, err := e.CreateSnapshot(id, "before"); err != nil {
		t.Fatalf("CreateSnapshot error = %v", err)
	}

	if err := e.Insert(id, 5, " world"); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	drain(t, e, EventBufferChanged)

	changes, err := e.ChangesSince(id, 0)
	if err != nil {
		t.Fatalf("ChangesSince error = %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	if changes[0].NewText != " world" {
		t.Fatalf("changes[0].NewText = %q, want %q", changes[0].NewText, " world")
	}
}

func TestUndoRestoresBufferAndEveryAttachedSplitCursor(t *testing.T) {
	// Mirrors spec scenario S5: primary caret at 3, secondary at 7 in
	// "0123456789"; insert "_" at each cursor as one group; undo must
	// restore both the buffer text and both cursor positions.
	e := New()
	id := e.OpenString("0123456789", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	split, err := e.CreateSplit(id, 24, 80, false)
	if err != nil {
		t.Fatalf("CreateSplit error = %v", err)
	}
	drain(t, e, EventViewChanged)

	vs, _, _ := e.SplitView(split)
	vs.Cursors.Set([]viewstate.Selection{
		{Anchor: 3, Head: 3, Primary: true},
		{Anchor: 7, Head: 7},
	})

	if err := e.BeginGroup(id, "multi-cursor insert"); err != nil {
		t.Fatalf("BeginGroup error = %v", err)
	}
	if err := e.Insert(id, 3, "_"); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	drain(t, e, EventBufferChanged)
	if err := e.Insert(id, 8, "_"); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	drain(t, e, EventBufferChanged)
	if err := e.EndGroup(id); err != nil {
		t.Fatalf("EndGroup error = %v", err)
	}

	buf, _ := e.Buffer(id)
	if got := buf.Text(); got != "012_345_6789" {
		t.Fatalf("Text after grouped insert = %q, want %q", got, "012_345_6789")
	}
	cursors := vs.Cursors.All()
	if len(cursors) != 2 || cursors[0].Caret() != 4 || cursors[1].Caret() != 9 {
		t.Fatalf("cursors after grouped insert = %+v, want carets 4 and 9", cursors)
	}

	if err := e.Undo(id); err != nil {
		t.Fatalf("Undo error = %v", err)
	}
	drain(t, e, EventBufferChanged)

	if got := buf.Text(); got != "0123456789" {
		t.Fatalf("Text after undo = %q, want %q", got, "0123456789")
	}
	cursors = vs.Cursors.All()
	if len(cursors) != 2 || cursors[0].Caret() != 3 || cursors[1].Caret() != 7 {
		t.Fatalf("cursors after undo = %+v, want carets 3 and 7 (restored)", cursors)
	}
}

func TestDiffSinceSnapshotUnknownIDErrors(t *testing.T) {
	e := New()
	id := e.OpenString("hello", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	if _, err := e.DiffSinceSnapshot(id, 999); err == nil {
		t.Fatal("DiffSinceSnapshot with unknown snapshot id: want error, got nil")
	}
}

func TestSaveRefusesVirtualBuffer(t *testing.T) {
	e := New()
	id := e.OpenString("scratch", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	if err := e.Save(id, ""); !errors.Is(err, enginerr.VirtualBuffer) {
		t.Fatalf("Save on virtual buffer error = %v, want VirtualBuffer", err)
	}
}

func TestSaveWritesFileAndRevertRereadsIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("on disk"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	e := New()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open seed file: %v", err)
	}
	id, err := e.OpenReader(f, path)
	f.Close()
	if err != nil {
		t.Fatalf("OpenReader error = %v", err)
	}
	drain(t, e, EventBufferOpened)

	if err := e.Insert(id, 2, "XX"); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	drain(t, e, EventBufferChanged)

	if err := e.Save(id, ""); err != nil {
		t.Fatalf("Save error = %v", err)
	}
	drain(t, e, EventBufferSaved)

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(saved) != "onXX disk" {
		t.Fatalf("saved file content = %q, want %q", saved, "onXX disk")
	}

	if err := os.WriteFile(path, []byte("changed externally"), 0o644); err != nil {
		t.Fatalf("rewrite seed file: %v", err)
	}
	if err := e.Revert(id); err != nil {
		t.Fatalf("Revert error = %v", err)
	}
	drain(t, e, EventBufferChanged)

	buf, _ := e.Buffer(id)
	if got := buf.Text(); got != "changed externally" {
		t.Fatalf("Text after revert = %q, want %q", got, "changed externally")
	}
}

func TestRenderProducesGridSizedToViewport(t *testing.T) {
	e := New()
	id := e.OpenString("hello\nworld", buffer.KindVirtual, "")
	drain(t, e, EventBufferOpened)

	split, err := e.CreateSplit(id, 4, 10, false)
	if err != nil {
		t.Fatalf("CreateSplit error = %v", err)
	}
	drain(t, e, EventViewChanged)

	grid, err := e.Render(split, nil, nil)
	if err != nil {
		t.Fatalf("Render error = %v", err)
	}
	if grid.Rows != 4 || grid.Cols != 10 {
		t.Fatalf("grid dims = %dx%d, want 4x10", grid.Rows, grid.Cols)
	}
}

// drain reads the next event off e's channel and fails the test if it
// doesn't match want or never arrives.
func drain(t *testing.T, e *Engine, want EventKind) {
	t.Helper()
	select {
	case ev := <-e.events:
		if ev.Kind != want {
			t.Fatalf("event kind = %s, want %s", ev.Kind, want)
		}
	default:
		t.Fatalf("expected a %s event, channel empty", want)
	}
}
