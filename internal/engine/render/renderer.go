package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/pm100/fresh/internal/engine/buffer"
	"github.com/pm100/fresh/internal/engine/viewstate"
)

// Renderer turns a Buffer snapshot and a SplitViewState into a Grid. It
// holds no buffer- or split-specific state; every field here is a
// rendering *setting* (tab width), generalizing the teacher's
// internal/renderer package (which threaded the same settings through
// its layout engine) into the single pure entry point spec §4.7
// describes: Render(split) twice with no intervening command returns an
// identical Grid.
type Renderer struct {
	tabWidth int
}

// Option configures a Renderer, matching the functional-option idiom
// buffer.Option and editlog's WithMaxGroups already use in this module.
type Option func(*Renderer)

// WithTabWidth overrides the default tab width of 4 columns.
func WithTabWidth(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.tabWidth = n
		}
	}
}

// New returns a Renderer with a default tab width of 4.
func New(opts ...Option) *Renderer {
	r := &Renderer{tabWidth: 4}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// cellSpan records which screen cell a byte range of the original line
// landed in, so a caret's byte offset can be placed on the grid without
// re-deriving column math the cluster loop already did.
type cellSpan struct {
	start, end buffer.ByteOffset // original, pre-tab-expansion byte range
	row, col   int
}

// Render computes the visible grid for one split: it consults the
// viewport to find the visible byte range, streams that range line by
// line from buf, wraps or clips each logical line per the viewport's Wrap
// flag, and merges overlays from query into each cell's base style from
// resolve. It does not mutate buf or vs.
func (r *Renderer) Render(buf *buffer.Buffer, vs *viewstate.SplitViewState, query OverlayQuery, resolve StyleResolver) *Grid {
	vp := vs.Viewport
	rows, cols := int(vp.Rows), int(vp.Cols)
	grid := NewGrid(rows, cols)
	if rows == 0 || cols == 0 {
		return grid
	}

	topPoint := buf.OffsetToPoint(vp.TopByte)
	line := topPoint.Line
	lineCount := buf.LineCount()

	grid.Cursor = CursorPos{Visible: false}

	row := 0
	var spans []cellSpan
	for row < rows && line < lineCount {
		lineStart := buf.LineStartOffset(line)
		lineEnd := buf.LineEndOffset(line)
		text := buf.LineText(line)
		overlays := query(lineStart, lineEnd)

		var lineSpans []cellSpan
		if vp.Wrap {
			row, lineSpans = r.renderWrapped(grid, row, rows, cols, text, lineStart, overlays, resolve)
		} else {
			row, lineSpans = r.renderClipped(grid, row, cols, text, lineStart, int(vp.LeftColumn), overlays, resolve)
		}
		spans = append(spans, lineSpans...)
		line++
	}

	r.placeCursors(grid, vs, spans)
	return grid
}

// expandTabs replaces tabs with spaces up to the next tab stop, returning
// the expanded text alongside, for each rune emitted, the original byte
// offset it came from (so cursor placement can map back through tab
// expansion without re-running it).
func (r *Renderer) expandTabs(line string, lineStart buffer.ByteOffset) (string, []buffer.ByteOffset) {
	var out []rune
	var origin []buffer.ByteOffset
	col := 0
	off := lineStart
	for _, ch := range line {
		n := 1
		if ch == '\t' {
			n = r.tabWidth - (col % r.tabWidth)
		}
		for i := 0; i < n; i++ {
			if ch == '\t' {
				out = append(out, ' ')
			} else {
				out = append(out, ch)
			}
			origin = append(origin, off)
		}
		col += n
		off += buffer.ByteOffset(len(string(ch)))
	}
	// Trailing sentinel so a caret at the line's end (past the last rune)
	// still resolves to a column.
	origin = append(origin, off)
	return string(out), origin
}

// renderClipped renders one logical line into a single row, honoring the
// viewport's horizontal scroll (leftColumn) by skipping columns before
// emitting cells.
func (r *Renderer) renderClipped(grid *Grid, row, cols int, text string, lineStart buffer.ByteOffset, leftColumn int, overlays []Overlay, resolve StyleResolver) (int, []cellSpan) {
	expanded, origin := r.expandTabs(text, lineStart)
	clusters := segmentLine(expanded)

	// LeftColumn is a byte offset from lineStart, the same unit
	// buffer.Point.Column uses everywhere else in this module (including
	// viewstate's own EnsureVisible), not a count of terminal cells —
	// clusters starting before that cut point are skipped outright.
	cutPoint := lineStart + buffer.ByteOffset(leftColumn)

	var spans []cellSpan
	col := 0
	runeIdx := 0
	for _, cl := range clusters {
		clusterRunes := len([]rune(cl.text))
		startOff := origin[runeIdx]
		endOff := origin[runeIdx+clusterRunes]
		runeIdx += clusterRunes

		if startOff < cutPoint {
			continue
		}
		if col >= cols {
			break
		}
		style := resolveCellStyle(resolve, overlays, startOff, byteSpanLen(startOff, endOff))
		cell := Cell{Rune: firstRune([]rune(cl.text)), Width: cl.width, Style: style}
		grid.Set(row, col, cell)
		spans = append(spans, cellSpan{start: startOff, end: endOff, row: row, col: col})
		col++
		for w := 1; w < cl.width && col < cols; w++ {
			grid.Set(row, col, ContinuationCell().WithStyle(style))
			col++
		}
	}
	spans = append(spans, cellSpan{start: lineStart + buffer.ByteOffset(len(text)), end: lineStart + buffer.ByteOffset(len(text)) + 1, row: row, col: col})
	return row + 1, spans
}

// renderWrapped renders one logical line across as many rows as needed
// to fit its clusters within cols, capped at rows so a very long line
// can't overrun the grid.
func (r *Renderer) renderWrapped(grid *Grid, row, rows, cols int, text string, lineStart buffer.ByteOffset, overlays []Overlay, resolve StyleResolver) (int, []cellSpan) {
	expanded, origin := r.expandTabs(text, lineStart)
	clusters := segmentLine(expanded)

	var spans []cellSpan
	col := 0
	runeIdx := 0
	for _, cl := range clusters {
		clusterRunes := len([]rune(cl.text))
		startOff := origin[runeIdx]
		endOff := origin[runeIdx+clusterRunes]
		runeIdx += clusterRunes

		if col+cl.width > cols {
			row++
			col = 0
			if row >= rows {
				return row, spans
			}
		}
		style := resolveCellStyle(resolve, overlays, startOff, byteSpanLen(startOff, endOff))
		cell := Cell{Rune: firstRune([]rune(cl.text)), Width: cl.width, Style: style}
		grid.Set(row, col, cell)
		spans = append(spans, cellSpan{start: startOff, end: endOff, row: row, col: col})
		col++
		for w := 1; w < cl.width && col < cols; w++ {
			grid.Set(row, col, ContinuationCell().WithStyle(style))
			col++
		}
	}
	spans = append(spans, cellSpan{start: lineStart + buffer.ByteOffset(len(text)), end: lineStart + buffer.ByteOffset(len(text)) + 1, row: row, col: col})
	return row + 1, spans
}

func byteSpanLen(start, end buffer.ByteOffset) int {
	if n := int(end - start); n > 0 {
		return n
	}
	return 1
}

// placeCursors finds, for each cursor in vs, the span its caret falls in
// and records the grid position: the primary cursor becomes the grid's
// hardware cursor, every other cursor's cell is reverse-videoed in
// place.
func (r *Renderer) placeCursors(grid *Grid, vs *viewstate.SplitViewState, spans []cellSpan) {
	vs.Cursors.ForEach(func(_ int, s viewstate.Selection) {
		caret := s.Caret()
		for _, sp := range spans {
			if caret < sp.start || caret >= sp.end {
				continue
			}
			if s.Primary {
				grid.Cursor = CursorPos{Row: sp.row, Col: sp.col, Visible: true}
				return
			}
			invertCell(grid, sp.row, sp.col)
			grid.SecondaryRows = append(grid.SecondaryRows, CursorPos{Row: sp.row, Col: sp.col, Visible: true})
			return
		}
	})
}

func invertCell(grid *Grid, row, col int) {
	if row < 0 || row >= grid.Rows || col < 0 || col >= grid.Cols {
		return
	}
	c := grid.Cells[row][col]
	fg, bg, attr := c.Style.TStyle.Decompose()
	c.Style.TStyle = applyAttrs(tcell.StyleDefault.Foreground(bg).Background(fg), attr)
	grid.Set(row, col, c)
}

func firstRune(runes []rune) rune {
	if len(runes) == 0 {
		return ' '
	}
	return runes[0]
}
