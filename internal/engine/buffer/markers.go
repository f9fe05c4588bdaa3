package buffer

import "github.com/pm100/fresh/internal/engine/interval"

// MarkerID identifies a marker added to a Buffer's interval tree.
type MarkerID = interval.MarkerID

// Marker is one entry in the Buffer's interval tree, exposed in Buffer's
// own ByteOffset type.
type Marker struct {
	ID            MarkerID
	Start, End    ByteOffset
	StartAffinity interval.Affinity
	EndAffinity   interval.Affinity
	Payload       interval.Payload
}

func fromIntervalMarker(m interval.Marker) Marker {
	return Marker{
		ID:            m.ID,
		Start:         ByteOffset(m.Start),
		End:           ByteOffset(m.End),
		StartAffinity: m.StartAffinity,
		EndAffinity:   m.EndAffinity,
		Payload:       m.Payload,
	}
}

// AddMarker inserts a marker over [start, end) using the conventional
// affinity pair for payload.Kind, returning its ID.
func (b *Buffer) AddMarker(start, end ByteOffset, payload interval.Payload) MarkerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	startAff, endAff := interval.DefaultAffinity(payload.Kind)
	return b.markers.Insert(int64(start), int64(end), payload, startAff, endAff)
}

// AddMarkerWithAffinity inserts a marker with explicit per-edge affinity.
func (b *Buffer) AddMarkerWithAffinity(start, end ByteOffset, payload interval.Payload, startAff, endAff interval.Affinity) MarkerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.markers.Insert(int64(start), int64(end), payload, startAff, endAff)
}

// RemoveMarker deletes a marker. A marker that has collapsed to zero
// width still exists and is removed; removing an id that no longer
// exists is a no-op.
func (b *Buffer) RemoveMarker(id MarkerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markers.Remove(id)
}

// GetMarker looks up a single marker by id.
func (b *Buffer) GetMarker(id MarkerID) (Marker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, err := b.markers.Get(id)
	if err != nil {
		return Marker{}, err
	}
	return fromIntervalMarker(m), nil
}

// QueryMarkers returns every marker overlapping [start, end), in start
// order.
func (b *Buffer) QueryMarkers(start, end ByteOffset) []Marker {
	b.mu.RLock()
	defer b.mu.RUnlock()
	raw := b.markers.Query(int64(start), int64(end))
	out := make([]Marker, len(raw))
	for i, m := range raw {
		out[i] = fromIntervalMarker(m)
	}
	return out
}

// MarkerCount returns the number of markers currently tracked.
func (b *Buffer) MarkerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.markers.Len()
}
