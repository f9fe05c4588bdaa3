package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Style is the Renderer's per-cell style: a real tcell.Style plus the
// overlay priority that last won it, so MergeStyle can tell a tie (two
// overlays of equal priority covering the same cell) from a strict
// override (a later, higher-priority overlay).
type Style struct {
	TStyle   tcell.Style
	Priority int
}

// DefaultStyle is the unstyled terminal default.
func DefaultStyle() Style {
	return Style{TStyle: tcell.StyleDefault}
}

// MergeStyle applies an overlay style on top of a base style per the
// "merge styles by priority, later overlays win on ties" rule: a
// strictly higher-priority overlay simply replaces the base; an
// equal-priority overlay whose background differs from the base's is
// blended via go-colorful's Lab blend instead of one flatly replacing
// the other, so two same-priority highlight overlays (e.g. a search
// match under a selection) compose instead of flickering between
// whichever was queried last.
func MergeStyle(base, overlay Style) Style {
	if overlay.Priority > base.Priority {
		return overlay
	}
	if overlay.Priority < base.Priority {
		return base
	}

	baseFg, baseBg, baseAttr := base.TStyle.Decompose()
	overFg, overBg, overAttr := overlay.TStyle.Decompose()

	fg := baseFg
	if overFg != tcell.ColorDefault {
		fg = overFg
	}

	bg := baseBg
	switch {
	case overBg == tcell.ColorDefault:
		// overlay carries no background opinion, keep base's.
	case baseBg == tcell.ColorDefault:
		bg = overBg
	case baseBg == overBg:
		bg = baseBg
	default:
		bg = blendColors(baseBg, overBg, 0.5)
	}

	merged := tcell.StyleDefault.Foreground(fg).Background(bg)
	merged = applyAttrs(merged, baseAttr|overAttr)
	return Style{TStyle: merged, Priority: base.Priority}
}

// blendColors blends two tcell colors in CIE-Lab space via go-colorful,
// avoiding the visually uneven results of a naive linear RGB average.
func blendColors(a, b tcell.Color, t float64) tcell.Color {
	ar, ag, ab := a.RGB()
	br, bg, bb := b.RGB()
	ca := colorful.Color{R: float64(ar) / 255, G: float64(ag) / 255, B: float64(ab) / 255}
	cb := colorful.Color{R: float64(br) / 255, G: float64(bg) / 255, B: float64(bb) / 255}
	blended := ca.BlendLab(cb, t).Clamped()
	return tcell.NewRGBColor(
		int32(blended.R*255),
		int32(blended.G*255),
		int32(blended.B*255),
	)
}

func applyAttrs(s tcell.Style, attr tcell.AttrMask) tcell.Style {
	return s.
		Bold(attr&tcell.AttrBold != 0).
		Italic(attr&tcell.AttrItalic != 0).
		Underline(attr&tcell.AttrUnderline != 0).
		Reverse(attr&tcell.AttrReverse != 0).
		Blink(attr&tcell.AttrBlink != 0).
		Dim(attr&tcell.AttrDim != 0).
		StrikeThrough(attr&tcell.AttrStrikeThrough != 0)
}
