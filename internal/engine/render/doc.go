// Package render implements the Renderer: a pure function from a Buffer
// snapshot, a SplitViewState, an overlay query, and a style resolver to a
// grid of styled cells. It generalizes the teacher's internal/renderer
// (Cell/Style/Color hand-rolled types) onto the ecosystem types the rest
// of this corpus uses for a terminal cell: a cell's Style wraps a real
// tcell.Style, overlay blending at equal priority goes through
// go-colorful's Lab blend, and column width comes from uniseg grapheme
// clusters combined with x/text/width's East-Asian fold instead of the
// teacher's hand-rolled rune-range table.
package render
