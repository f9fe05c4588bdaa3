package render

// Grid is the Renderer's output: rows x cols of Cell, plus the hardware
// cursor position the host should report to the terminal.
type Grid struct {
	Rows, Cols int
	Cells      [][]Cell

	Cursor        CursorPos
	SecondaryRows []CursorPos
}

// CursorPos is a caret's position in the grid's own row/column space
// (already adjusted for scroll), or Visible=false if it scrolled off
// screen.
type CursorPos struct {
	Row, Col int
	Visible  bool
}

// NewGrid returns a grid filled with empty cells.
func NewGrid(rows, cols int) *Grid {
	g := &Grid{Rows: rows, Cols: cols, Cells: make([][]Cell, rows)}
	for r := range g.Cells {
		row := make([]Cell, cols)
		for c := range row {
			row[c] = EmptyCell()
		}
		g.Cells[r] = row
	}
	return g
}

// Set places a cell at (row, col), a no-op outside the grid's bounds.
func (g *Grid) Set(row, col int, c Cell) {
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols {
		return
	}
	g.Cells[row][col] = c
}

// Equals compares two grids cell-by-cell, used by tests asserting
// Renderer purity (same inputs render identically).
func (g *Grid) Equals(other *Grid) bool {
	if g.Rows != other.Rows || g.Cols != other.Cols {
		return false
	}
	for r := range g.Cells {
		for c := range g.Cells[r] {
			a, b := g.Cells[r][c], other.Cells[r][c]
			if a.Rune != b.Rune || a.Width != b.Width || a.Style.TStyle != b.Style.TStyle {
				return false
			}
		}
	}
	return true
}
