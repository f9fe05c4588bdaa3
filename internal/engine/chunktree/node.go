package chunktree

import "strings"

// Node shape constants, carried from the teacher's rope B+ tree unchanged:
// a leaf holds up to MaxChunksPerLeaf chunks, an internal node holds up to
// MaxChildren subtrees.
const (
	MaxChildren      = 8
	MaxChunksPerLeaf = 4
)

// node is one node of the balanced B+ tree backing a ChunkTree. Leaves
// (height == 0) hold chunks directly; internal nodes hold child subtrees
// plus a per-child summary so seeking by offset or line never has to
// descend into a subtree it can skip.
type node struct {
	height  uint8
	summary TextSummary

	children       []*node
	childSummaries []TextSummary

	chunks []Chunk
}

func newLeafNode() *node {
	return &node{height: 0, chunks: make([]Chunk, 0, MaxChunksPerLeaf)}
}

func newLeafNodeWithChunks(chunks []Chunk) *node {
	n := &node{height: 0, chunks: chunks}
	n.recomputeSummary()
	return n
}

func newInternalNode(children []*node) *node {
	if len(children) == 0 {
		return newLeafNode()
	}
	height := children[0].height + 1
	summaries := make([]TextSummary, len(children))
	var total TextSummary
	for i, c := range children {
		summaries[i] = c.summary
		total = total.Add(c.summary)
	}
	return &node{height: height, summary: total, children: children, childSummaries: summaries}
}

func (n *node) isLeaf() bool      { return n.height == 0 }
func (n *node) length() ByteOffset { return n.summary.Bytes }
func (n *node) lineCount() uint32  { return n.summary.Lines + 1 }

func (n *node) recomputeSummary() {
	if n.isLeaf() {
		n.summary = TextSummary{Flags: FlagASCII}
		for _, c := range n.chunks {
			n.summary = n.summary.Add(c.Summary())
		}
		return
	}
	n.summary = TextSummary{Flags: FlagASCII}
	n.childSummaries = make([]TextSummary, len(n.children))
	for i, c := range n.children {
		n.childSummaries[i] = c.summary
		n.summary = n.summary.Add(c.summary)
	}
}

func (n *node) clone() *node {
	if n.isLeaf() {
		chunks := make([]Chunk, len(n.chunks))
		copy(chunks, n.chunks)
		return &node{height: 0, summary: n.summary, chunks: chunks}
	}
	children := make([]*node, len(n.children))
	copy(children, n.children)
	summaries := make([]TextSummary, len(n.childSummaries))
	copy(summaries, n.childSummaries)
	return &node{height: n.height, summary: n.summary, children: children, childSummaries: summaries}
}

func (n *node) appendTo(sb *strings.Builder) {
	if n.isLeaf() {
		for _, c := range n.chunks {
			sb.WriteString(c.String())
		}
		return
	}
	for _, c := range n.children {
		c.appendTo(sb)
	}
}

func (n *node) textInRange(start, end ByteOffset) string {
	if start >= end || start >= n.length() {
		return ""
	}
	if end > n.length() {
		end = n.length()
	}
	var sb strings.Builder
	sb.Grow(int(end - start))
	n.appendRange(&sb, start, end)
	return sb.String()
}

func (n *node) appendRange(sb *strings.Builder, start, end ByteOffset) {
	if start >= end {
		return
	}
	if n.isLeaf() {
		offset := ByteOffset(0)
		for _, c := range n.chunks {
			chunkLen := ByteOffset(c.Len())
			chunkEnd := offset + chunkLen
			if chunkEnd <= start {
				offset = chunkEnd
				continue
			}
			if offset >= end {
				break
			}
			sliceStart := 0
			if start > offset {
				sliceStart = int(start - offset)
			}
			sliceEnd := c.Len()
			if end < chunkEnd {
				sliceEnd = int(end - offset)
			}
			sb.WriteString(c.String()[sliceStart:sliceEnd])
			offset = chunkEnd
		}
		return
	}

	offset := ByteOffset(0)
	for i, c := range n.children {
		childLen := n.childSummaries[i].Bytes
		childEnd := offset + childLen
		if childEnd <= start {
			offset = childEnd
			continue
		}
		if offset >= end {
			break
		}
		childStart := ByteOffset(0)
		if start > offset {
			childStart = start - offset
		}
		childEndAdj := childLen
		if end < childEnd {
			childEndAdj = end - offset
		}
		c.appendRange(sb, childStart, childEndAdj)
		offset = childEnd
	}
}

func (n *node) split(offset ByteOffset) (*node, *node) {
	if offset <= 0 {
		return newLeafNode(), n.clone()
	}
	if offset >= n.length() {
		return n.clone(), newLeafNode()
	}
	if n.isLeaf() {
		return n.splitLeaf(offset)
	}
	return n.splitInternal(offset)
}

func (n *node) splitLeaf(offset ByteOffset) (*node, *node) {
	var leftChunks, rightChunks []Chunk
	cur := ByteOffset(0)
	for _, c := range n.chunks {
		chunkLen := ByteOffset(c.Len())
		switch {
		case cur+chunkLen <= offset:
			leftChunks = append(leftChunks, c)
		case cur >= offset:
			rightChunks = append(rightChunks, c)
		default:
			left, right := c.Split(int(offset - cur))
			if !left.IsEmpty() {
				leftChunks = append(leftChunks, left)
			}
			if !right.IsEmpty() {
				rightChunks = append(rightChunks, right)
			}
		}
		cur += chunkLen
	}
	return newLeafNodeWithChunks(leftChunks), newLeafNodeWithChunks(rightChunks)
}

func (n *node) splitInternal(offset ByteOffset) (*node, *node) {
	var leftChildren, rightChildren []*node
	cur := ByteOffset(0)
	for i, c := range n.children {
		childLen := n.childSummaries[i].Bytes
		switch {
		case cur+childLen <= offset:
			leftChildren = append(leftChildren, c)
		case cur >= offset:
			rightChildren = append(rightChildren, c)
		default:
			l, r := c.split(offset - cur)
			if l.length() > 0 {
				leftChildren = append(leftChildren, l)
			}
			if r.length() > 0 {
				rightChildren = append(rightChildren, r)
			}
		}
		cur += childLen
	}
	return buildNodeFromChildren(leftChildren), buildNodeFromChildren(rightChildren)
}

func buildNodeFromChildren(children []*node) *node {
	if len(children) == 0 {
		return newLeafNode()
	}
	if len(children) == 1 {
		return children[0]
	}
	if len(children) <= MaxChildren {
		return newInternalNode(children)
	}
	var parents []*node
	for i := 0; i < len(children); i += MaxChildren {
		end := i + MaxChildren
		if end > len(children) {
			end = len(children)
		}
		parents = append(parents, newInternalNode(children[i:end]))
	}
	return buildNodeFromChildren(parents)
}

func concatNodes(left, right *node) *node {
	if left == nil || left.length() == 0 {
		if right == nil {
			return newLeafNode()
		}
		return right
	}
	if right == nil || right.length() == 0 {
		return left
	}

	if left.isLeaf() && right.isLeaf() {
		return concatLeaves(left, right)
	}

	for left.height < right.height {
		left = newInternalNode([]*node{left})
	}
	for right.height < left.height {
		right = newInternalNode([]*node{right})
	}
	return mergeNodes(left, right)
}

func concatLeaves(left, right *node) *node {
	total := len(left.chunks) + len(right.chunks)
	if total <= MaxChunksPerLeaf {
		chunks := make([]Chunk, 0, total)
		chunks = append(chunks, left.chunks...)
		chunks = append(chunks, right.chunks...)
		return newLeafNodeWithChunks(chunks)
	}
	return newInternalNode([]*node{left.clone(), right.clone()})
}

func mergeNodes(left, right *node) *node {
	if left.isLeaf() {
		return concatLeaves(left, right)
	}
	all := make([]*node, 0, len(left.children)+len(right.children))
	all = append(all, left.children...)
	all = append(all, right.children...)
	if len(all) <= MaxChildren {
		return newInternalNode(all)
	}
	return buildNodeFromChildren(all)
}

func (n *node) findChildByOffset(offset ByteOffset) (int, ByteOffset) {
	if n.isLeaf() {
		return -1, 0
	}
	cur := ByteOffset(0)
	for i, s := range n.childSummaries {
		if cur+s.Bytes > offset {
			return i, offset - cur
		}
		cur += s.Bytes
	}
	last := len(n.children) - 1
	return last, offset - (n.summary.Bytes - n.childSummaries[last].Bytes)
}

func (n *node) findChildByLine(line uint32) (int, uint32) {
	if n.isLeaf() {
		return -1, 0
	}
	cur := uint32(0)
	for i, s := range n.childSummaries {
		if cur+s.Lines >= line {
			return i, line - cur
		}
		cur += s.Lines
	}
	last := len(n.children) - 1
	lastStart := n.summary.Lines - n.childSummaries[last].Lines
	return last, line - lastStart
}

func countChunks(n *node) int {
	if n.isLeaf() {
		return len(n.chunks)
	}
	count := 0
	for _, c := range n.children {
		count += countChunks(c)
	}
	return count
}
