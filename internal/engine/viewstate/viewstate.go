package viewstate

import (
	"strings"
	"unicode"

	"github.com/pm100/fresh/internal/engine/buffer"
)

// BufferID identifies the Buffer a split is viewing. The engine façade
// owns the authoritative buffer table; SplitViewState only carries the
// id so it stays independent of any one Buffer instance.
type BufferID uint64

// SplitViewState is the per-split state a terminal pane keeps over one
// Buffer: its cursor set and its scroll position, generalized from the
// teacher's cursor package plus a Viewport carried alongside it.
type SplitViewState struct {
	BufferID BufferID
	Cursors  *CursorSet
	Viewport Viewport
}

// New returns a split view with a single cursor at offset 0 and an
// unscrolled viewport sized rows x cols.
func New(bufID BufferID, rows, cols uint32, wrap bool) *SplitViewState {
	return &SplitViewState{
		BufferID: bufID,
		Cursors:  NewCursorSet(0),
		Viewport: Viewport{Rows: rows, Cols: cols, Wrap: wrap},
	}
}

// OnEdit reacts to an edit on the owning buffer: every cursor and the
// viewport's TopByte are adjusted by the same rule, so a render triggered
// right after an edit never observes a cursor or scroll position that
// point into text that no longer exists.
func (vs *SplitViewState) OnEdit(buf *buffer.Buffer, at ByteOffset, deletedLen, insertedLen int64, aff Affinity) {
	vs.Cursors.AdjustForEdit(at, deletedLen, insertedLen, aff)
	vs.Viewport = vs.Viewport.AdjustForEdit(buf, at, deletedLen, insertedLen, aff)
}

// Scroll moves the viewport by whole rows/columns.
func (vs *SplitViewState) Scroll(buf *buffer.Buffer, deltaRows, deltaCols int64) {
	vs.Viewport = vs.Viewport.Scroll(buf, deltaRows, deltaCols)
}

// EnsureVisible scrolls just enough that the primary caret is on screen.
func (vs *SplitViewState) EnsureVisible(buf *buffer.Buffer) {
	vs.Viewport = vs.Viewport.EnsureVisible(buf, vs.Cursors.Primary().Caret())
}

// MoveKind selects a move_caret variant.
type MoveKind int

const (
	MoveDelta MoveKind = iota
	MoveAbsolute
	MoveLineCol
	MoveWordForward
	MoveWordBackward
	MoveLineUp
	MoveLineDown
	MoveLineStart
	MoveLineEnd
	MoveDocStart
	MoveDocEnd
)

// MoveCaret moves every cursor in the set according to kind, collapsing
// selections unless extend is true (the same code path extend_selection
// uses — a selecting move is a non-collapsing move_caret).
//
//   - MoveDelta: arg is a signed byte delta applied to the caret.
//   - MoveAbsolute: arg is an absolute byte offset.
//   - MoveLineCol: line is p.Line, column is arg (used as a column count).
//   - MoveWordForward/Backward: arg is ignored, moves to the next/previous
//     word boundary.
//   - MoveLineUp/Down: moves one visual line, honoring PreferredColumn.
//   - MoveLineStart/End, MoveDocStart/End: arg is ignored.
func (vs *SplitViewState) MoveCaret(buf *buffer.Buffer, kind MoveKind, arg int64, extend bool) {
	vs.Cursors.MapInPlace(func(s Selection) Selection {
		return moveOne(buf, s, kind, arg, extend)
	})
}

func moveOne(buf *buffer.Buffer, s Selection, kind MoveKind, arg int64, extend bool) Selection {
	caret := s.Head
	clampOff := func(off int64) ByteOffset {
		if off < 0 {
			return 0
		}
		max := int64(buf.Len())
		if off > max {
			return ByteOffset(max)
		}
		return ByteOffset(off)
	}

	var target ByteOffset
	vertical := false
	preferredCol := s.PreferredColumn
	if s.HasPreferredColumn {
		preferredCol = s.PreferredColumn
	} else {
		preferredCol = buf.OffsetToPoint(caret).Column
	}

	switch kind {
	case MoveDelta:
		target = clampOff(int64(caret) + arg)
	case MoveAbsolute:
		target = clampOff(arg)
	case MoveLineCol:
		p := buf.OffsetToPoint(caret)
		col := arg
		if col < 0 {
			col = 0
		}
		target = buf.PointToOffset(buffer.Point{Line: p.Line, Column: uint32(col)})
	case MoveWordForward:
		target = nextWordBoundary(buf, caret)
	case MoveWordBackward:
		target = prevWordBoundary(buf, caret)
	case MoveLineUp:
		target = moveVertical(buf, s, -1)
		vertical = true
	case MoveLineDown:
		target = moveVertical(buf, s, 1)
		vertical = true
	case MoveLineStart:
		p := buf.OffsetToPoint(caret)
		target = buf.LineStartOffset(p.Line)
	case MoveLineEnd:
		p := buf.OffsetToPoint(caret)
		target = buf.LineEndOffset(p.Line)
	case MoveDocStart:
		target = 0
	case MoveDocEnd:
		target = buf.Len()
	default:
		target = caret
	}

	if extend {
		s = s.ExtendTo(target)
	} else {
		s = s.MoveTo(target)
	}
	if vertical {
		s = s.WithPreferredColumn(preferredCol)
	}
	return s
}

// moveVertical moves one visual line up (dir<0) or down (dir>0), aiming
// for the cursor's PreferredColumn (or its current column, the first time)
// and clamping to the target line's length.
func moveVertical(buf *buffer.Buffer, s Selection, dir int) ByteOffset {
	p := buf.OffsetToPoint(s.Head)
	col := p.Column
	if s.HasPreferredColumn {
		col = s.PreferredColumn
	}

	lineCount := buf.LineCount()
	line := int64(p.Line) + int64(dir)
	if line < 0 {
		return 0
	}
	if line >= int64(lineCount) {
		return buf.Len()
	}

	lineLen := uint32(len(buf.LineText(uint32(line))))
	if col > lineLen {
		col = lineLen
	}
	return buf.PointToOffset(buffer.Point{Line: uint32(line), Column: col})
}

// ExtendSelection is MoveCaret with extend always true — a named alias
// matching the external command surface's separate extend_selection verb.
func (vs *SplitViewState) ExtendSelection(buf *buffer.Buffer, kind MoveKind, arg int64) {
	vs.MoveCaret(buf, kind, arg, true)
}

// AddCursorAbove and AddCursorBelow clone the primary cursor one visual
// line up/down, at the same preferred column, and add it to the set
// (merging if it collides with an existing cursor).
func (vs *SplitViewState) AddCursorAbove(buf *buffer.Buffer) { vs.addCursorVertical(buf, -1) }
func (vs *SplitViewState) AddCursorBelow(buf *buffer.Buffer) { vs.addCursorVertical(buf, 1) }

func (vs *SplitViewState) addCursorVertical(buf *buffer.Buffer, dir int) {
	primary := vs.Cursors.Primary()
	at := moveVertical(buf, primary, dir)
	p := buf.OffsetToPoint(primary.Head)
	newCursor := NewCursor(at).WithPreferredColumn(p.Column)
	vs.Cursors.Add(newCursor)
}

// AddCursorAtMatch adds a cursor whose selection spans the next
// occurrence of text after the primary cursor, wrapping around the
// document once.
func (vs *SplitViewState) AddCursorAtMatch(buf *buffer.Buffer, text string) bool {
	if text == "" {
		return false
	}
	primary := vs.Cursors.Primary()
	full := buf.Text()
	start := int(primary.End())
	if start > len(full) {
		start = len(full)
	}

	idx := strings.Index(full[start:], text)
	if idx < 0 {
		idx = strings.Index(full, text)
		if idx < 0 {
			return false
		}
	} else {
		idx += start
	}

	match := Selection{Anchor: ByteOffset(idx), Head: ByteOffset(idx + len(text))}
	vs.Cursors.Add(match)
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func nextWordBoundary(buf *buffer.Buffer, from ByteOffset) ByteOffset {
	end := buf.Len()
	off := from
	for off < end {
		r, n := buf.RuneAt(off)
		if n == 0 {
			break
		}
		if !isWordRune(r) {
			off += ByteOffset(n)
			break
		}
		off += ByteOffset(n)
	}
	for off < end {
		r, n := buf.RuneAt(off)
		if n == 0 || isWordRune(r) {
			break
		}
		off += ByteOffset(n)
	}
	return off
}

func prevWordBoundary(buf *buffer.Buffer, from ByteOffset) ByteOffset {
	if from <= 0 {
		return 0
	}
	text := buf.Text()
	runes := []rune(text[:from])
	i := len(runes)
	for i > 0 && !isWordRune(runes[i-1]) {
		i--
	}
	for i > 0 && isWordRune(runes[i-1]) {
		i--
	}
	return ByteOffset(len(string(runes[:i])))
}
