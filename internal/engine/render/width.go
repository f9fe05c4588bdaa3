package render

import (
	"github.com/rivo/uniseg"
	"golang.org/x/text/width"
)

// cluster is one grapheme cluster's text and the number of terminal
// columns it occupies.
type cluster struct {
	text  string
	width int
}

// segmentLine splits a line's text into grapheme clusters with their
// display widths, using uniseg so combining marks and multi-rune emoji
// measure as one cell instead of one-per-rune. uniseg's own width figure
// is widened to 2 for a single-rune cluster that x/text/width reports as
// East Asian wide or fullwidth, covering terminal fonts that render
// those glyphs full-width even when uniseg's default table calls them
// ambiguous-width.
func segmentLine(line string) []cluster {
	var out []cluster
	state := -1
	for len(line) > 0 {
		var (
			seg string
			w   int
		)
		seg, line, w, state = uniseg.FirstGraphemeClusterInString(line, state)
		out = append(out, cluster{text: seg, width: adjustWidth(seg, w)})
	}
	return out
}

func adjustWidth(seg string, uniwidth int) int {
	runes := []rune(seg)
	if len(runes) != 1 {
		return uniwidth
	}
	switch width.LookupRune(runes[0]).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		if uniwidth < 2 {
			return 2
		}
	}
	return uniwidth
}

// lineWidth returns a line's total display width in columns.
func lineWidth(line string) int {
	total := 0
	for _, c := range segmentLine(line) {
		total += c.width
	}
	return total
}
