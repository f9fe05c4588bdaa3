package viewstate

import "github.com/pm100/fresh/internal/engine/buffer"

// ByteOffset and Point are aliases onto buffer's position types, following
// the teacher's cursor package convention of aliasing rather than wrapping
// when no new methods need attaching one layer up from buffer.
type ByteOffset = buffer.ByteOffset
type Point = buffer.Point

// Selection is one cursor: Head is the caret, Anchor the other end of the
// selection (equal to Head for a collapsed cursor). PreferredColumn
// remembers the visual column a vertical move should aim for even as it
// crosses lines shorter than that column; it is cleared by any horizontal
// move or explicit MoveTo. Primary marks the cursor whose caret the split
// reports as its hardware cursor position.
type Selection struct {
	Anchor             ByteOffset
	Head               ByteOffset
	PreferredColumn    uint32
	HasPreferredColumn bool
	Primary            bool
}

// NewCursor returns a collapsed cursor at the given offset.
func NewCursor(at ByteOffset) Selection {
	return Selection{Anchor: at, Head: at}
}

func (s Selection) Caret() ByteOffset { return s.Head }

// Start and End return the selection's range regardless of direction.
func (s Selection) Start() ByteOffset {
	if s.Anchor < s.Head {
		return s.Anchor
	}
	return s.Head
}

func (s Selection) End() ByteOffset {
	if s.Anchor > s.Head {
		return s.Anchor
	}
	return s.Head
}

func (s Selection) Range() (ByteOffset, ByteOffset) { return s.Start(), s.End() }

func (s Selection) IsEmpty() bool { return s.Anchor == s.Head }

func (s Selection) Len() ByteOffset { return s.End() - s.Start() }

// MoveTo collapses the selection to a new caret, clearing PreferredColumn.
func (s Selection) MoveTo(at ByteOffset) Selection {
	s.Anchor, s.Head = at, at
	s.HasPreferredColumn = false
	return s
}

// ExtendTo moves only the caret, keeping Anchor fixed, clearing
// PreferredColumn.
func (s Selection) ExtendTo(at ByteOffset) Selection {
	s.Head = at
	s.HasPreferredColumn = false
	return s
}

// WithPreferredColumn returns s with its preferred column set, for vertical
// moves to consult on the next hop.
func (s Selection) WithPreferredColumn(col uint32) Selection {
	s.PreferredColumn = col
	s.HasPreferredColumn = true
	return s
}

func (s Selection) Collapse() Selection { s.Anchor = s.Head; return s }

func (s Selection) CollapseToStart() Selection {
	p := s.Start()
	s.Anchor, s.Head = p, p
	return s
}

func (s Selection) CollapseToEnd() Selection {
	p := s.End()
	s.Anchor, s.Head = p, p
	return s
}

// Overlaps reports whether the two selections share a byte.
func (s Selection) Overlaps(o Selection) bool {
	aStart, aEnd := s.Range()
	bStart, bEnd := o.Range()
	return aStart < bEnd && bStart < aEnd
}

// Touches reports whether the two selections overlap or are adjacent,
// the condition under which the merge rule collapses them into one cursor.
func (s Selection) Touches(o Selection) bool {
	aStart, aEnd := s.Range()
	bStart, bEnd := o.Range()
	return aStart <= bEnd && bStart <= aEnd
}

// Merge combines two touching selections into one spanning both. The
// result keeps whichever cursor is Primary, and that cursor's direction
// (which end its Head sat on) decides the merged selection's direction.
func (s Selection) Merge(o Selection) Selection {
	aStart, aEnd := s.Range()
	bStart, bEnd := o.Range()
	start, end := aStart, aEnd
	if bStart < start {
		start = bStart
	}
	if bEnd > end {
		end = bEnd
	}

	backward := s.Head < s.Anchor
	primary := s.Primary || o.Primary
	if o.Primary {
		backward = o.Head < o.Anchor
	} else if s.Primary {
		backward = s.Head < s.Anchor
	}

	m := Selection{Primary: primary}
	if backward {
		m.Anchor, m.Head = end, start
	} else {
		m.Anchor, m.Head = start, end
	}
	return m
}

func (s Selection) Equals(o Selection) bool {
	return s.Anchor == o.Anchor && s.Head == o.Head
}
