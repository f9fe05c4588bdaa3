package viewstate

import "sort"

// CursorSet is an ordered, auto-normalizing multi-cursor container,
// generalized from the teacher's cursor.CursorSet with an explicit
// Primary flag (rather than "index 0 is primary") so normalize can track
// which cursor survives a merge per the spec's "primary wins caret" rule.
type CursorSet struct {
	selections []Selection
}

// NewCursorSet returns a set with a single primary cursor at at.
func NewCursorSet(at ByteOffset) *CursorSet {
	return &CursorSet{selections: []Selection{{Anchor: at, Head: at, Primary: true}}}
}

func (cs *CursorSet) Count() int   { return len(cs.selections) }
func (cs *CursorSet) IsMulti() bool { return len(cs.selections) > 1 }

// All returns a defensive copy of the ordered selections.
func (cs *CursorSet) All() []Selection {
	out := make([]Selection, len(cs.selections))
	copy(out, cs.selections)
	return out
}

// Primary returns the designated primary cursor.
func (cs *CursorSet) Primary() Selection {
	if i := cs.primaryIndex(); i >= 0 {
		return cs.selections[i]
	}
	return Selection{}
}

func (cs *CursorSet) primaryIndex() int {
	for i, s := range cs.selections {
		if s.Primary {
			return i
		}
	}
	if len(cs.selections) > 0 {
		return 0
	}
	return -1
}

// Clear collapses the set back to a single primary cursor at at.
func (cs *CursorSet) Clear(at ByteOffset) {
	cs.selections = []Selection{{Anchor: at, Head: at, Primary: true}}
}

// Add inserts a new cursor and renormalizes (sorting, merging touching
// selections).
func (cs *CursorSet) Add(s Selection) {
	cs.selections = append(cs.selections, s)
	cs.normalize()
}

// Set replaces the whole set and renormalizes.
func (cs *CursorSet) Set(selections []Selection) {
	cs.selections = append([]Selection(nil), selections...)
	cs.normalize()
}

// MapInPlace applies fn to every selection, then renormalizes — the shape
// every movement command uses (move each cursor, then merge any that now
// collide).
func (cs *CursorSet) MapInPlace(fn func(Selection) Selection) {
	for i := range cs.selections {
		cs.selections[i] = fn(cs.selections[i])
	}
	cs.normalize()
}

// ForEach visits every selection in order without mutating the set.
func (cs *CursorSet) ForEach(fn func(index int, s Selection)) {
	for i, s := range cs.selections {
		fn(i, s)
	}
}

// normalize sorts selections by start offset, merges any that touch or
// overlap, and ensures exactly one selection carries Primary.
func (cs *CursorSet) normalize() {
	if len(cs.selections) == 0 {
		return
	}
	sort.SliceStable(cs.selections, func(i, j int) bool {
		si, sj := cs.selections[i].Start(), cs.selections[j].Start()
		if si != sj {
			return si < sj
		}
		return cs.selections[i].End() < cs.selections[j].End()
	})

	merged := cs.selections[:1]
	for _, s := range cs.selections[1:] {
		last := merged[len(merged)-1]
		if last.Touches(s) {
			merged[len(merged)-1] = last.Merge(s)
			continue
		}
		merged = append(merged, s)
	}
	cs.selections = merged

	seenPrimary := false
	for i := range cs.selections {
		if cs.selections[i].Primary {
			if seenPrimary {
				cs.selections[i].Primary = false
			} else {
				seenPrimary = true
			}
		}
	}
	if !seenPrimary {
		cs.selections[0].Primary = true
	}
}

// Clone returns an independent copy of the set.
func (cs *CursorSet) Clone() *CursorSet {
	return &CursorSet{selections: cs.All()}
}
