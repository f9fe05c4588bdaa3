// Package chunktree implements the ChunkTree: a balanced, persistent
// B+ tree of immutable text chunks. Every mutating method returns a new
// ChunkTree value sharing structure with its receiver, so a caller holds
// an O(1) snapshot simply by keeping the old value around; Buffer uses
// this to apply edits atomically by assigning the new root only once the
// mutation has succeeded, so a failed edit leaves the old root in place.
package chunktree

import (
	"io"
	"strings"

	"github.com/pm100/fresh/internal/engine/enginerr"
)

// ChunkTree is an immutable view over a byte sequence.
type ChunkTree struct {
	root *node
}

// Empty returns a ChunkTree with no text.
func Empty() ChunkTree {
	return ChunkTree{root: newLeafNode()}
}

// FromString builds a ChunkTree from a string.
func FromString(s string) ChunkTree {
	if len(s) == 0 {
		return Empty()
	}
	return buildFromChunks(splitIntoChunks(s))
}

// FromReader streams r into a ChunkTree without materializing the whole
// input as one string first.
func FromReader(r io.Reader) (ChunkTree, error) {
	var b Builder
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.WriteString(string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return ChunkTree{}, err
		}
	}
	return b.Build(), nil
}

func buildFromChunks(chunks []Chunk) ChunkTree {
	if len(chunks) == 0 {
		return Empty()
	}
	var leaves []*node
	for i := 0; i < len(chunks); i += MaxChunksPerLeaf {
		end := i + MaxChunksPerLeaf
		if end > len(chunks) {
			end = len(chunks)
		}
		leafChunks := make([]Chunk, end-i)
		copy(leafChunks, chunks[i:end])
		leaves = append(leaves, newLeafNodeWithChunks(leafChunks))
	}
	nodes := leaves
	for len(nodes) > 1 {
		var parents []*node
		for i := 0; i < len(nodes); i += MaxChildren {
			end := i + MaxChildren
			if end > len(nodes) {
				end = len(nodes)
			}
			children := make([]*node, end-i)
			copy(children, nodes[i:end])
			parents = append(parents, newInternalNode(children))
		}
		nodes = parents
	}
	if len(nodes) == 0 {
		return Empty()
	}
	return ChunkTree{root: nodes[0]}
}

// Len returns the byte length of the whole tree.
func (t ChunkTree) Len() ByteOffset {
	if t.root == nil {
		return 0
	}
	return t.root.length()
}

// LineCount returns the number of lines (newline count + 1).
func (t ChunkTree) LineCount() uint32 {
	if t.root == nil {
		return 1
	}
	return t.root.lineCount()
}

// IsEmpty reports whether the tree holds no text.
func (t ChunkTree) IsEmpty() bool { return t.Len() == 0 }

// String materializes the entire tree as one string. For large buffers,
// prefer Read over a bounded range.
func (t ChunkTree) String() string {
	if t.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(t.Len()))
	t.root.appendTo(&sb)
	return sb.String()
}

// Read returns the text in [start, end). Returns InvalidOffset if the
// range falls outside the tree or is inverted, NotACharBoundary if
// either edge splits a UTF-8 sequence.
func (t ChunkTree) Read(start, end ByteOffset) (string, error) {
	if start > end || end > t.Len() {
		return "", enginerr.AtOffset(enginerr.InvalidOffset, int64(end))
	}
	if !t.IsCharBoundary(start) {
		return "", enginerr.AtOffset(enginerr.NotACharBoundary, int64(start))
	}
	if !t.IsCharBoundary(end) {
		return "", enginerr.AtOffset(enginerr.NotACharBoundary, int64(end))
	}
	if t.root == nil || start >= end {
		return "", nil
	}
	return t.root.textInRange(start, end), nil
}

// IsCharBoundary reports whether offset falls on a UTF-8 rune boundary
// (or at the start/end of the tree).
func (t ChunkTree) IsCharBoundary(offset ByteOffset) bool {
	if offset == 0 || offset == t.Len() {
		return true
	}
	if offset > t.Len() {
		return false
	}
	// The byte immediately at offset must not be a continuation byte.
	b, ok := t.byteAt(offset)
	if !ok {
		return true
	}
	return isCharStart(b)
}

// CharBoundaryBefore returns the largest offset <= want that lies on a
// char boundary.
func (t ChunkTree) CharBoundaryBefore(want ByteOffset) ByteOffset {
	if want > t.Len() {
		want = t.Len()
	}
	for want > 0 && !t.IsCharBoundary(want) {
		want--
	}
	return want
}

func (t ChunkTree) byteAt(offset ByteOffset) (byte, bool) {
	if t.root == nil || offset >= t.Len() {
		return 0, false
	}
	n := t.root
	for !n.isLeaf() {
		idx, childOffset := n.findChildByOffset(offset)
		n = n.children[idx]
		offset = childOffset
	}
	for _, c := range n.chunks {
		cl := ByteOffset(c.Len())
		if offset < cl {
			return c.String()[offset], true
		}
		offset -= cl
	}
	return 0, false
}

// Insert returns a new tree with text inserted at offset. Returns
// InvalidOffset if offset > Len, NotACharBoundary if offset splits a rune.
func (t ChunkTree) Insert(offset ByteOffset, text string) (ChunkTree, error) {
	if offset > t.Len() {
		return t, enginerr.AtOffset(enginerr.InvalidOffset, int64(offset))
	}
	if !t.IsCharBoundary(offset) {
		return t, enginerr.AtOffset(enginerr.NotACharBoundary, int64(offset))
	}
	if len(text) == 0 {
		return t, nil
	}
	if t.root == nil || t.Len() == 0 {
		return FromString(text), nil
	}
	if offset == 0 {
		return FromString(text).Concat(t), nil
	}
	if offset >= t.Len() {
		return t.Concat(FromString(text)), nil
	}
	left, right := t.splitAt(offset)
	return left.Concat(FromString(text)).Concat(right), nil
}

// Delete returns a new tree with [start, end) removed.
func (t ChunkTree) Delete(start, end ByteOffset) (ChunkTree, error) {
	if start > end || end > t.Len() {
		return t, enginerr.AtOffset(enginerr.InvalidOffset, int64(end))
	}
	if !t.IsCharBoundary(start) {
		return t, enginerr.AtOffset(enginerr.NotACharBoundary, int64(start))
	}
	if !t.IsCharBoundary(end) {
		return t, enginerr.AtOffset(enginerr.NotACharBoundary, int64(end))
	}
	if t.root == nil || start == end {
		return t, nil
	}

	treeLen := t.Len()
	if start == 0 && end >= treeLen {
		return Empty(), nil
	}
	if start == 0 {
		_, right := t.splitAt(end)
		return right, nil
	}
	if end >= treeLen {
		left, _ := t.splitAt(start)
		return left, nil
	}
	left, temp := t.splitAt(start)
	_, right := temp.splitAt(end - start)
	return left.Concat(right), nil
}

// Replace returns a new tree with [start, end) replaced by text.
func (t ChunkTree) Replace(start, end ByteOffset, text string) (ChunkTree, error) {
	if start == end {
		return t.Insert(start, text)
	}
	if len(text) == 0 {
		return t.Delete(start, end)
	}
	deleted, err := t.Delete(start, end)
	if err != nil {
		return t, err
	}
	return deleted.Insert(start, text)
}

func (t ChunkTree) splitAt(offset ByteOffset) (ChunkTree, ChunkTree) {
	if t.root == nil || offset == 0 {
		return Empty(), t
	}
	if offset >= t.Len() {
		return t, Empty()
	}
	l, r := t.root.split(offset)
	return ChunkTree{root: l}, ChunkTree{root: r}
}

// Concat joins two trees.
func (t ChunkTree) Concat(other ChunkTree) ChunkTree {
	if t.root == nil || t.Len() == 0 {
		return other
	}
	if other.root == nil || other.Len() == 0 {
		return t
	}
	return ChunkTree{root: concatNodes(t.root, other.root)}
}

// Summary returns the TextSummary for the whole tree.
func (t ChunkTree) Summary() TextSummary {
	if t.root == nil {
		return TextSummary{Flags: FlagASCII}
	}
	return t.root.summary
}

// LineStartOffset returns the byte offset of the start of a 0-indexed line.
func (t ChunkTree) LineStartOffset(line uint32) ByteOffset {
	if t.root == nil || line == 0 {
		return 0
	}
	if line >= t.LineCount() {
		return t.Len()
	}
	c := NewCursor(t)
	if c.SeekLine(line) {
		return c.Offset()
	}
	return t.Len()
}

// LineEndOffset returns the byte offset just past the last byte of a
// line, not including its newline.
func (t ChunkTree) LineEndOffset(line uint32) ByteOffset {
	if t.root == nil {
		return 0
	}
	lineCount := t.LineCount()
	if line >= lineCount {
		return t.Len()
	}
	if line == lineCount-1 {
		return t.Len()
	}
	next := t.LineStartOffset(line + 1)
	if next > 0 {
		return next - 1
	}
	return 0
}

// LineText returns the text of a line without its newline.
func (t ChunkTree) LineText(line uint32) string {
	start := t.LineStartOffset(line)
	end := t.LineEndOffset(line)
	s, _ := t.Read(start, end)
	return s
}

// OffsetToPoint converts a byte offset to a line/column position.
func (t ChunkTree) OffsetToPoint(offset ByteOffset) Point {
	if t.root == nil || offset == 0 {
		return Point{}
	}
	if offset >= t.Len() {
		lastLine := t.LineCount() - 1
		return Point{Line: lastLine, Column: uint32(t.Len() - t.LineStartOffset(lastLine))}
	}
	c := NewCursor(t)
	c.SeekOffset(offset)
	return c.Point()
}

// PointToOffset converts a line/column position to a byte offset.
func (t ChunkTree) PointToOffset(p Point) ByteOffset {
	if t.root == nil {
		return 0
	}
	lineStart := t.LineStartOffset(p.Line)
	lineEnd := t.LineEndOffset(p.Line)
	lineLen := lineEnd - lineStart
	if ByteOffset(p.Column) >= lineLen {
		return lineEnd
	}
	return lineStart + ByteOffset(p.Column)
}

// Height reports the tree height, for diagnostics and balance tests.
func (t ChunkTree) Height() int {
	if t.root == nil {
		return 0
	}
	return int(t.root.height) + 1
}

// ChunkCount reports the number of leaf chunks, for diagnostics.
func (t ChunkTree) ChunkCount() int {
	if t.root == nil {
		return 0
	}
	return countChunks(t.root)
}

// Equals compares two trees by content rather than structure.
func (t ChunkTree) Equals(other ChunkTree) bool {
	if t.Len() != other.Len() {
		return false
	}
	a, b := t.String(), other.String()
	return a == b
}
