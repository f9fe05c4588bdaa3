package chunktree

// Cursor walks a ChunkTree tracking both byte offset and line/column,
// letting Buffer and LineIndex convert between the two without
// re-scanning from the start of the tree on every call.
type Cursor struct {
	tree   ChunkTree
	offset ByteOffset
	point  Point
}

// NewCursor creates a cursor positioned at the start of tree.
func NewCursor(tree ChunkTree) Cursor {
	return Cursor{tree: tree}
}

// Offset returns the cursor's current byte offset.
func (c *Cursor) Offset() ByteOffset { return c.offset }

// Point returns the cursor's current line/column.
func (c *Cursor) Point() Point { return c.point }

// SeekOffset moves the cursor to offset, recomputing its line/column by
// scanning the text between the cursor's current position and offset.
// Callers that repeatedly seek nearby offsets get an amortized win over
// re-deriving the point from scratch each time.
func (c *Cursor) SeekOffset(offset ByteOffset) bool {
	if offset > c.tree.Len() {
		return false
	}
	if offset == c.offset {
		return true
	}
	if offset > c.offset {
		s, err := c.tree.Read(c.offset, offset)
		if err != nil {
			return false
		}
		for i := 0; i < len(s); i++ {
			if s[i] == '\n' {
				c.point.Line++
				c.point.Column = 0
			} else {
				c.point.Column++
			}
		}
	} else {
		// Walking backward is rare (callers normally seek forward); fall
		// back to rescanning forward from the start of the tree.
		c.offset = 0
		c.point = Point{}
		return c.SeekOffset(offset)
	}
	c.offset = offset
	return true
}

// SeekLine moves the cursor to the start of the given 0-indexed line.
func (c *Cursor) SeekLine(line uint32) bool {
	if line >= c.tree.LineCount() {
		return false
	}
	if c.tree.root == nil {
		c.offset, c.point = 0, Point{}
		return line == 0
	}

	n := c.tree.root
	var offset ByteOffset
	target := line
	for !n.isLeaf() {
		idx, rel := n.findChildByLine(target)
		for i := 0; i < idx; i++ {
			offset += n.childSummaries[i].Bytes
		}
		n = n.children[idx]
		target = rel
	}

	// n is a leaf; target is the line number relative to this leaf.
	var lineNo uint32
	for _, chunk := range n.chunks {
		if lineNo == target {
			c.offset = offset
			c.point = Point{Line: line, Column: 0}
			return true
		}
		data := chunk.String()
		for i := 0; i < len(data); i++ {
			if data[i] == '\n' {
				lineNo++
				if lineNo == target {
					c.offset = offset + ByteOffset(i) + 1
					c.point = Point{Line: line, Column: 0}
					return true
				}
			}
		}
		offset += ByteOffset(chunk.Len())
	}

	c.offset = offset
	c.point = Point{Line: line, Column: 0}
	return true
}
