package render

import (
	"sort"

	"github.com/pm100/fresh/internal/engine/buffer"
)

// Overlay is one style contribution over a byte range: a selection
// highlight, a search match, a diagnostic squiggle, a syntax token. Two
// overlays of equal Priority blend where they overlap; a higher-priority
// one simply wins.
type Overlay struct {
	Range    buffer.Range
	Style    Style
	Priority int
}

// OverlayQuery returns every overlay intersecting [start, end), the
// Renderer's hook into the IntervalTree-backed marker set (or any other
// overlay source a caller wants to compose in, such as a live selection
// that isn't stored as a marker).
type OverlayQuery func(start, end buffer.ByteOffset) []Overlay

// StyleResolver returns the base (pre-overlay) style in effect at a byte
// offset — ordinarily a syntax highlighter's token style, a constant
// DefaultStyle() if none is wired.
type StyleResolver func(off buffer.ByteOffset) Style

// resolveCellStyle computes one cell's final style: the resolver's base
// style with every overlay covering [off, off+width) folded in, lowest
// priority first so MergeStyle's tie-break (equal-priority blend) sees
// overlays in a stable order.
func resolveCellStyle(resolve StyleResolver, overlays []Overlay, off buffer.ByteOffset, byteLen int) Style {
	style := DefaultStyle()
	if resolve != nil {
		style = resolve(off)
	}

	end := off + buffer.ByteOffset(byteLen)
	var covering []Overlay
	for _, ov := range overlays {
		if ov.Range.Start < end && off < ov.Range.End {
			covering = append(covering, ov)
		}
	}
	sort.SliceStable(covering, func(i, j int) bool { return covering[i].Priority < covering[j].Priority })
	for _, ov := range covering {
		style = MergeStyle(style, Style{TStyle: ov.Style.TStyle, Priority: ov.Priority})
	}
	return style
}
