package interval

// adjustForEdit rewrites every marker in the subtree rooted at n to
// account for a ChunkTree edit that replaced [at, at+deletedLen) with
// delta extra bytes (delta may be negative). Markers entirely to the
// right of the edited span shift by delta without being visited
// individually; markers entirely to the left are untouched; markers
// overlapping the edited span, or with an edge exactly at a pure
// insertion point, are visited and adjusted per endpoint affinity.
func adjustForEdit(n *node, at, deletedLen int64, delta int64) *node {
	if n == nil {
		return nil
	}
	editEnd := at + deletedLen

	if n.lo > editEnd || (n.lo == editEnd && deletedLen > 0) {
		n.addDelta(delta)
		return n
	}
	if n.hi < at || (n.hi == at && deletedLen > 0) {
		return n
	}

	n.settle()
	n.marker = adjustMarker(n.marker, at, editEnd, delta)
	n.left = adjustForEdit(n.left, at, deletedLen, delta)
	n.right = adjustForEdit(n.right, at, deletedLen, delta)
	n.recomputeBounds()
	return n
}

// adjustMarker applies the edit to a single marker's interval.
func adjustMarker(m Marker, at, editEnd int64, delta int64) Marker {
	m.Start = adjustEndpoint(m.Start, at, editEnd, delta, m.StartAffinity)
	m.End = adjustEndpoint(m.End, at, editEnd, delta, m.EndAffinity)
	if m.End < m.Start {
		m.End = m.Start
	}
	return m
}

// adjustEndpoint computes the new position of one interval edge.
//
//   - strictly left of the edit: unaffected.
//   - strictly right of the edited span (>= editEnd): shifts by delta.
//   - exactly at an insertion point (at == editEnd, pure insert): the
//     affinity decides whether the edge is pushed past the new text.
//   - inside a deleted span, or at the edit point of a replace with a
//     real deletion: collapses to at, since that text no longer exists.
func adjustEndpoint(off, at, editEnd int64, delta int64, aff Affinity) int64 {
	switch {
	case off < at:
		return off
	case off == at && editEnd == at:
		if aff == AffinityRight {
			return off + delta
		}
		return off
	case off >= editEnd:
		return off + delta
	default:
		return at
	}
}
