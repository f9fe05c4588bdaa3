// Package interval implements the IntervalTree: a balanced, augmented
// binary tree of markers over byte-offset intervals, with lazy delta
// propagation so that a single edit shifts every marker to its right in
// O(log N) instead of touching each one individually.
//
// The balancing and lazy-propagation technique is the same one
// chunktree's node uses to keep per-subtree TextSummary aggregates
// correct without rescanning text: here the aggregate is a pair of
// (min start, max end) bounds instead of a byte count, and the "pending"
// field absorbed at a subtree root is a signed delta rather than a
// summary, but the shape of the trick — settle on descent, accumulate
// while skipping untouched subtrees — is identical.
package interval

// MarkerID uniquely identifies a marker within one IntervalTree.
type MarkerID uint64

// Affinity controls what happens to an interval's edge when an edit is
// inserted exactly at that edge.
type Affinity uint8

const (
	// AffinityLeft means an insertion exactly at the edge does not move
	// it: the edge stays before the new text, so text inserted at a
	// start edge lands inside the marker and at an end edge outside it.
	AffinityLeft Affinity = iota
	// AffinityRight means an insertion exactly at the edge moves it past
	// the inserted text, so text inserted at a start edge lands outside
	// the marker and at an end edge inside it (a point marker with both
	// edges right-affine tracks the insertion).
	AffinityRight
)

// PayloadKind distinguishes the three marker payload shapes the spec
// names, so callers and the LineIndex/Renderer can recover which kind of
// marker they are looking at without a type switch on every caller.
type PayloadKind uint8

const (
	KindPosition PayloadKind = iota
	KindLine
	KindOverlay
)

// Payload carries the data a marker wears beyond its interval. Exactly
// one of the typed fields is meaningful, selected by Kind.
type Payload struct {
	Kind    PayloadKind
	Name    string // cursor/bookmark identity for KindPosition
	LineTag string // diagnostic/breakpoint tag for KindLine
	Overlay OverlayStyle
}

// OverlayStyle is the style payload for a KindOverlay marker (a
// highlight, a diagnostic squiggle, a selection decoration). The actual
// terminal styling lives in the render package; this is just the
// priority and a symbolic class the renderer's style resolver looks up.
type OverlayStyle struct {
	Class    string
	Priority int32
}

// Marker is one entry in the IntervalTree.
type Marker struct {
	ID            MarkerID
	Start, End    int64 // half-open byte interval [Start, End)
	StartAffinity Affinity
	EndAffinity   Affinity
	Payload       Payload
}

// DefaultAffinity returns the conventional affinity pair for a payload
// kind: cursors/points stick to the right of an insertion at their
// location, line markers stick left, and overlay ranges grow to absorb
// text typed at either of their edges.
func DefaultAffinity(kind PayloadKind) (start, end Affinity) {
	switch kind {
	case KindPosition:
		return AffinityRight, AffinityRight
	case KindLine:
		return AffinityLeft, AffinityLeft
	case KindOverlay:
		return AffinityLeft, AffinityRight
	default:
		return AffinityLeft, AffinityRight
	}
}

func (m Marker) isPoint() bool { return m.Start == m.End }
