package interval

import (
	"github.com/pm100/fresh/internal/engine/enginerr"
)

// Tree is an IntervalTree: a mutable collection of Markers over byte
// offsets, kept consistent with a companion ChunkTree's edits via
// AdjustForEdit.
type Tree struct {
	root *node
	next MarkerID
}

// New returns an empty IntervalTree.
func New() *Tree {
	return &Tree{next: 1}
}

// Insert adds a marker with the given interval, payload, and affinity,
// returning its assigned ID. A zero-length interval (Start == End) is a
// point marker (used for cursors and line markers).
func (t *Tree) Insert(start, end int64, payload Payload, startAff, endAff Affinity) MarkerID {
	id := t.next
	t.next++
	m := Marker{
		ID:            id,
		Start:         start,
		End:           end,
		StartAffinity: startAff,
		EndAffinity:   endAff,
		Payload:       payload,
	}
	t.root = insert(t.root, m)
	return id
}

// Remove deletes the marker with the given id. Removing an id that does
// not exist is a no-op — the tree does not require callers to track
// whether a marker already collapsed away, matching the spec's
// "deletion collapse is not automatic removal" rule: a collapsed marker
// (Start == End after an edit) still exists and must be explicitly
// removed if the caller no longer wants it.
func (t *Tree) Remove(id MarkerID) {
	t.root, _, _ = removeByID(t.root, id)
}

// Get returns the marker with the given id.
func (t *Tree) Get(id MarkerID) (Marker, error) {
	m, ok := getByID(t.root, id)
	if !ok {
		return Marker{}, enginerr.NoSuchMarker
	}
	return m, nil
}

// Query returns every marker overlapping [start, end), in start order.
func (t *Tree) Query(start, end int64) []Marker {
	var out []Marker
	visitInRange(t.root, start, end, func(m Marker) bool {
		out = append(out, m)
		return true
	})
	return out
}

// VisitInRange calls visit for every marker overlapping [start, end) in
// start order, stopping early if visit returns false.
func (t *Tree) VisitInRange(start, end int64, visit func(Marker) bool) {
	visitInRange(t.root, start, end, visit)
}

// AdjustForEdit updates every marker for an edit that replaced
// deletedLen bytes at offset at with newLen bytes.
func (t *Tree) AdjustForEdit(at int64, deletedLen int64, newLen int64) {
	delta := newLen - deletedLen
	if delta == 0 && deletedLen == 0 {
		return
	}
	t.root = adjustForEdit(t.root, at, deletedLen, delta)
}

// Len returns the number of markers currently in the tree.
func (t *Tree) Len() int { return countNodes(t.root) }
