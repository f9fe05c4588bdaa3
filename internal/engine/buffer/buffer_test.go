package buffer

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pm100/fresh/internal/engine/enginerr"
	"github.com/pm100/fresh/internal/engine/interval"
)

func TestNew(t *testing.T) {
	b := New()

	if !b.IsEmpty() {
		t.Error("new buffer should be empty")
	}
	if b.Len() != 0 {
		t.Errorf("expected length 0, got %d", b.Len())
	}
	if b.LineCount() != 1 {
		t.Errorf("expected 1 line, got %d", b.LineCount())
	}
}

func TestFromString(t *testing.T) {
	text := "Hello, World!"
	b := FromString(text)

	if b.Text() != text {
		t.Errorf("expected %q, got %q", text, b.Text())
	}
	if b.Len() != ByteOffset(len(text)) {
		t.Errorf("expected length %d, got %d", len(text), b.Len())
	}
}

func TestFromReader(t *testing.T) {
	b, err := FromReader(strings.NewReader("line1\nline2"))
	if err != nil {
		t.Fatalf("FromReader failed: %v", err)
	}
	if b.Text() != "line1\nline2" {
		t.Errorf("expected %q, got %q", "line1\nline2", b.Text())
	}
}

func TestFromStringMultiline(t *testing.T) {
	text := "line1\nline2\nline3"
	b := FromString(text)

	if b.LineCount() != 3 {
		t.Errorf("expected 3 lines, got %d", b.LineCount())
	}
	for i, want := range []string{"line1", "line2", "line3"} {
		if got := b.LineText(uint32(i)); got != want {
			t.Errorf("LineText(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestInsert(t *testing.T) {
	b := FromString("Hello World")

	res, err := b.Insert(5, ",")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if res.NewRange.End != 6 {
		t.Errorf("expected end position 6, got %d", res.NewRange.End)
	}
	if b.Text() != "Hello, World" {
		t.Errorf("expected 'Hello, World', got %q", b.Text())
	}
}

func TestInsertAtStartAndEnd(t *testing.T) {
	b := FromString("World")
	if _, err := b.Insert(0, "Hello "); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if b.Text() != "Hello World" {
		t.Errorf("expected 'Hello World', got %q", b.Text())
	}

	b = FromString("Hello")
	if _, err := b.Insert(5, " World"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if b.Text() != "Hello World" {
		t.Errorf("expected 'Hello World', got %q", b.Text())
	}
}

func TestInsertOutOfRange(t *testing.T) {
	b := FromString("Hello")

	_, err := b.Insert(100, "X")
	if !errors.Is(err, enginerr.InvalidOffset) {
		t.Errorf("expected InvalidOffset, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	b := FromString("Hello, World!")

	if _, err := b.Delete(5, 7); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if b.Text() != "HelloWorld!" {
		t.Errorf("expected 'HelloWorld!', got %q", b.Text())
	}
}

func TestDeleteInvalidRange(t *testing.T) {
	b := FromString("Hello")

	if _, err := b.Delete(0, 100); !errors.Is(err, enginerr.InvalidOffset) {
		t.Errorf("expected InvalidOffset, got %v", err)
	}
}

func TestReplace(t *testing.T) {
	b := FromString("Hello World")

	res, err := b.Replace(6, 11, "Go")
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if res.NewRange.End != 8 {
		t.Errorf("expected end position 8, got %d", res.NewRange.End)
	}
	if b.Text() != "Hello Go" {
		t.Errorf("expected 'Hello Go', got %q", b.Text())
	}
}

func TestApplyEdit(t *testing.T) {
	b := FromString("Hello World")

	edit := NewEdit(Range{Start: 0, End: 5}, "Hi")
	result, err := b.ApplyEdit(edit)
	if err != nil {
		t.Fatalf("apply edit failed: %v", err)
	}
	if b.Text() != "Hi World" {
		t.Errorf("expected 'Hi World', got %q", b.Text())
	}
	if result.OldText != "Hello" {
		t.Errorf("expected old text 'Hello', got %q", result.OldText)
	}
	if result.Delta != -3 {
		t.Errorf("expected delta -3, got %d", result.Delta)
	}
}

func TestApplyEditsBackToFront(t *testing.T) {
	b := FromString("Hello World")

	// Later edits first so earlier offsets stay valid as the batch applies.
	edits := []Edit{
		NewEdit(Range{Start: 6, End: 11}, "Go"),
		NewEdit(Range{Start: 0, End: 5}, "Goodbye"),
	}

	if err := b.ApplyEdits(edits); err != nil {
		t.Fatalf("apply edits failed: %v", err)
	}
	if b.Text() != "Goodbye Go" {
		t.Errorf("expected 'Goodbye Go', got %q", b.Text())
	}
}

func TestLineOperations(t *testing.T) {
	text := "first line\nsecond line\nthird line"
	b := FromString(text)

	if b.LineCount() != 3 {
		t.Errorf("expected 3 lines, got %d", b.LineCount())
	}

	tests := []struct {
		line     uint32
		expected string
	}{
		{0, "first line"},
		{1, "second line"},
		{2, "third line"},
	}
	for _, tt := range tests {
		if got := b.LineText(tt.line); got != tt.expected {
			t.Errorf("LineText(%d) = %q, want %q", tt.line, got, tt.expected)
		}
	}
}

func TestLineCountEstimatedIsAlwaysExact(t *testing.T) {
	b := FromString("first line\nsecond line\nthird line")
	count, estimated := b.LineCountEstimated()
	if count != 3 || estimated {
		t.Errorf("LineCountEstimated() = %d/estimated=%v, want 3/false", count, estimated)
	}
}

func TestLineStartEnd(t *testing.T) {
	text := "abc\ndefgh\nij"
	b := FromString(text)

	tests := []struct {
		line          uint32
		expectedStart ByteOffset
		expectedEnd   ByteOffset
	}{
		{0, 0, 3},
		{1, 4, 9},
		{2, 10, 12},
	}
	for _, tt := range tests {
		if start := b.LineStartOffset(tt.line); start != tt.expectedStart {
			t.Errorf("LineStartOffset(%d) = %d, want %d", tt.line, start, tt.expectedStart)
		}
		if end := b.LineEndOffset(tt.line); end != tt.expectedEnd {
			t.Errorf("LineEndOffset(%d) = %d, want %d", tt.line, end, tt.expectedEnd)
		}
	}
}

func TestOffsetToPointAndBack(t *testing.T) {
	text := "abc\ndefgh\nij"
	b := FromString(text)

	tests := []struct {
		offset ByteOffset
		point  Point
	}{
		{0, Point{Line: 0, Column: 0}},
		{2, Point{Line: 0, Column: 2}},
		{3, Point{Line: 0, Column: 3}},
		{4, Point{Line: 1, Column: 0}},
		{7, Point{Line: 1, Column: 3}},
		{10, Point{Line: 2, Column: 0}},
	}
	for _, tt := range tests {
		if got := b.OffsetToPoint(tt.offset); got != tt.point {
			t.Errorf("OffsetToPoint(%d) = %v, want %v", tt.offset, got, tt.point)
		}
		if got := b.PointToOffset(tt.point); got != tt.offset {
			t.Errorf("PointToOffset(%v) = %d, want %d", tt.point, got, tt.offset)
		}
	}
}

func TestUTF16Conversion(t *testing.T) {
	text := "a\U0001F600b" // emoji is a surrogate pair in UTF-16
	b := FromString(text)

	if p := b.OffsetToPointUTF16(0); p.Column != 0 {
		t.Errorf("expected UTF-16 column 0 for 'a', got %d", p.Column)
	}
	if p := b.OffsetToPointUTF16(1); p.Column != 1 {
		t.Errorf("expected UTF-16 column 1 for emoji start, got %d", p.Column)
	}
	if p := b.OffsetToPointUTF16(5); p.Column != 3 {
		t.Errorf("expected UTF-16 column 3 for 'b', got %d", p.Column)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	b := FromString("Hello")
	snap := b.Snapshot()

	if _, err := b.Insert(5, " World"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if snap.Text() != "Hello" {
		t.Errorf("snapshot should have 'Hello', got %q", snap.Text())
	}
	if b.Text() != "Hello World" {
		t.Errorf("buffer should have 'Hello World', got %q", b.Text())
	}
}

func TestSnapshotOperations(t *testing.T) {
	text := "abc\ndefgh\nij"
	b := FromString(text)
	snap := b.Snapshot()

	if snap.Len() != ByteOffset(len(text)) {
		t.Errorf("expected len %d, got %d", len(text), snap.Len())
	}
	if snap.LineCount() != 3 {
		t.Errorf("expected 3 lines, got %d", snap.LineCount())
	}
	if snap.LineText(1) != "defgh" {
		t.Errorf("expected 'defgh', got %q", snap.LineText(1))
	}
	if p := snap.OffsetToPoint(7); p.Line != 1 || p.Column != 3 {
		t.Errorf("expected (1:3), got %v", p)
	}
}

func TestLineEndingNormalization(t *testing.T) {
	b := FromString("line1\r\nline2\r\n")
	if b.Text() != "line1\nline2\n" {
		t.Errorf("CRLF not normalized to LF: got %q", b.Text())
	}

	b = FromString("line1\rline2\r")
	if b.Text() != "line1\nline2\n" {
		t.Errorf("CR not normalized to LF: got %q", b.Text())
	}
}

func TestWithCRLFLineEnding(t *testing.T) {
	b := FromString("line1\nline2", WithCRLF())

	if b.Text() != "line1\r\nline2" {
		t.Errorf("expected CRLF, got %q", b.Text())
	}

	// Only construction and Revert normalize; Insert stores text as given.
	if _, err := b.Insert(b.Len(), "\nline3"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	expected := "line1\r\nline2\nline3"
	if b.Text() != expected {
		t.Errorf("expected %q, got %q", expected, b.Text())
	}
}

func TestRevisionID(t *testing.T) {
	b := New()
	rev1 := b.RevisionID()

	if _, err := b.Insert(0, "Hello"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	rev2 := b.RevisionID()
	if rev1 == rev2 {
		t.Error("revision ID should change after insert")
	}

	if _, err := b.Delete(0, 5); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	rev3 := b.RevisionID()
	if rev2 == rev3 {
		t.Error("revision ID should change after delete")
	}
}

func TestUndoRedo(t *testing.T) {
	b := FromString("Hello")

	if _, err := b.Insert(5, " World"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if b.Text() != "Hello World" {
		t.Fatalf("expected 'Hello World', got %q", b.Text())
	}

	if _, err := b.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if b.Text() != "Hello" {
		t.Errorf("expected 'Hello' after undo, got %q", b.Text())
	}

	if _, err := b.Redo(); err != nil {
		t.Fatalf("redo failed: %v", err)
	}
	if b.Text() != "Hello World" {
		t.Errorf("expected 'Hello World' after redo, got %q", b.Text())
	}

	if _, err := b.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if _, err := b.Undo(); !errors.Is(err, enginerr.NothingToUndo) {
		t.Errorf("expected NothingToUndo, got %v", err)
	}
}

func TestUndoGroupCollapsesToOneStep(t *testing.T) {
	b := FromString("")

	if err := b.BeginGroup("type word"); err != nil {
		t.Fatalf("begin group failed: %v", err)
	}
	for _, ch := range "abc" {
		if _, err := b.Insert(b.Len(), string(ch)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	if err := b.EndGroup(); err != nil {
		t.Fatalf("end group failed: %v", err)
	}

	if b.Text() != "abc" {
		t.Fatalf("expected 'abc', got %q", b.Text())
	}
	if _, err := b.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if b.Text() != "" {
		t.Errorf("one undo should revert the whole group, got %q", b.Text())
	}
}

func TestReplaceDecomposesIntoTwoUndoOps(t *testing.T) {
	b := FromString("Hello World")

	if _, err := b.Replace(6, 11, "Go"); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if b.Text() != "Hello Go" {
		t.Fatalf("expected 'Hello Go', got %q", b.Text())
	}
	if _, err := b.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if b.Text() != "Hello World" {
		t.Errorf("expected 'Hello World' after undoing replace, got %q", b.Text())
	}
}

func TestMarkerTracksInsertion(t *testing.T) {
	b := FromString("Hello World")

	id := b.AddMarker(6, 11, interval.Payload{Kind: interval.KindPosition})
	if _, err := b.Insert(0, "Say: "); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	m, err := b.GetMarker(id)
	if err != nil {
		t.Fatalf("GetMarker failed: %v", err)
	}
	if m.Start != 11 || m.End != 16 {
		t.Errorf("marker should shift by inserted length, got [%d,%d)", m.Start, m.End)
	}
}

func TestConcurrentRead(t *testing.T) {
	b := FromString("Hello World")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Text()
			_ = b.Len()
			_ = b.LineCount()
		}()
	}
	wg.Wait()
}

func TestConcurrentReadWrite(t *testing.T) {
	b := FromString("Hello")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				b.Insert(0, "X")
			}
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = b.Text()
			}
		}()
	}
	wg.Wait()

	xCount := strings.Count(b.Text(), "X")
	if xCount != 100 {
		t.Errorf("expected 100 X's, got %d", xCount)
	}
}

func TestDetectLineEnding(t *testing.T) {
	tests := []struct {
		text     string
		expected LineEnding
	}{
		{"no newlines", LineEndingLF},
		{"unix\nstyle\n", LineEndingLF},
		{"windows\r\nstyle\r\n", LineEndingCRLF},
		{"old mac\rstyle\r", LineEndingCR},
		{"mixed\r\nmore\nlines", LineEndingCRLF},
	}
	for _, tt := range tests {
		if got := DetectLineEnding(tt.text); got != tt.expected {
			t.Errorf("DetectLineEnding(%q) = %v, want %v", tt.text, got, tt.expected)
		}
	}
}

func TestPointOperations(t *testing.T) {
	p1 := Point{Line: 1, Column: 5}
	p2 := Point{Line: 1, Column: 10}
	p3 := Point{Line: 2, Column: 0}

	if !p1.Before(p2) {
		t.Error("p1 should be before p2")
	}
	if !p2.Before(p3) {
		t.Error("p2 should be before p3")
	}
	if p2.Before(p1) {
		t.Error("p2 should not be before p1")
	}
	if p1.Compare(p1) != 0 {
		t.Error("point should equal itself")
	}
}

func TestRangeOperations(t *testing.T) {
	r1 := Range{Start: 0, End: 10}
	r2 := Range{Start: 5, End: 15}
	r3 := Range{Start: 20, End: 30}

	if !r1.Overlaps(r2) {
		t.Error("r1 should overlap r2")
	}
	if r1.Overlaps(r3) {
		t.Error("r1 should not overlap r3")
	}
	if !r1.Contains(5) {
		t.Error("r1 should contain 5")
	}
	if r1.Contains(10) {
		t.Error("r1 should not contain 10 (exclusive end)")
	}

	if i := r1.Intersect(r2); i.Start != 5 || i.End != 10 {
		t.Errorf("intersection should be [5:10), got %v", i)
	}
	if u := r1.Union(r2); u.Start != 0 || u.End != 15 {
		t.Errorf("union should be [0:15), got %v", u)
	}
}

func TestEditOperations(t *testing.T) {
	insert := NewInsert(5, "Hello")
	if !insert.IsInsert() {
		t.Error("should be insert")
	}
	del := NewDelete(0, 5)
	if !del.IsDelete() {
		t.Error("should be delete")
	}
	replace := NewEdit(Range{Start: 0, End: 5}, "World")
	if !replace.IsReplace() {
		t.Error("should be replace")
	}
	if insert.Delta() != 5 {
		t.Errorf("insert delta should be 5, got %d", insert.Delta())
	}
	if del.Delta() != -5 {
		t.Errorf("delete delta should be -5, got %d", del.Delta())
	}
}
