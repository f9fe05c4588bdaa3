package buffer

import (
	"unicode/utf8"

	"github.com/pm100/fresh/internal/engine/chunktree"
)

// Snapshot is a read-only view of a buffer's text at a point in time. It
// holds its own ChunkTree value, so it is safe for concurrent access and
// never changes even if the originating Buffer is mutated afterward —
// ChunkTree's persistence is what makes this free: a snapshot is just a
// copy of a small root pointer, not a copy of the text.
type Snapshot struct {
	tree       chunktree.ChunkTree
	revisionID RevisionID
	lineEnding LineEnding
	tabWidth   int
}

// Snapshot captures the buffer's current state.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Snapshot{
		tree:       b.tree,
		revisionID: b.revision,
		lineEnding: b.lineEnding,
		tabWidth:   b.tabWidth,
	}
}

func (s *Snapshot) Text() string { return s.tree.String() }

func (s *Snapshot) TextRange(start, end ByteOffset) string {
	text, _ := s.tree.Read(chunktree.ByteOffset(start), chunktree.ByteOffset(end))
	return text
}

func (s *Snapshot) Len() ByteOffset { return ByteOffset(s.tree.Len()) }

func (s *Snapshot) LineCount() uint32 { return s.tree.LineCount() }

func (s *Snapshot) LineText(line uint32) string { return s.tree.LineText(line) }

func (s *Snapshot) LineLen(line uint32) int {
	start := s.tree.LineStartOffset(line)
	end := s.tree.LineEndOffset(line)
	return int(end - start)
}

func (s *Snapshot) RuneAt(offset ByteOffset) (rune, int) {
	off := chunktree.ByteOffset(offset)
	treeLen := s.tree.Len()
	if off >= treeLen {
		return utf8.RuneError, 0
	}
	end := off + 4
	if end > treeLen {
		end = treeLen
	}
	str, err := s.tree.Read(off, end)
	if err != nil {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(str)
}

func (s *Snapshot) OffsetToPoint(offset ByteOffset) Point {
	p := s.tree.OffsetToPoint(chunktree.ByteOffset(offset))
	return Point{Line: p.Line, Column: p.Column}
}

func (s *Snapshot) PointToOffset(point Point) ByteOffset {
	p := chunktree.Point{Line: point.Line, Column: point.Column}
	return ByteOffset(s.tree.PointToOffset(p))
}

func (s *Snapshot) OffsetToPointUTF16(offset ByteOffset) PointUTF16 {
	off := chunktree.ByteOffset(offset)
	point := s.tree.OffsetToPoint(off)
	lineStart := s.tree.LineStartOffset(point.Line)
	lineText, _ := s.tree.Read(lineStart, off)
	return PointUTF16{Line: point.Line, Column: utf16ColumnFromString(lineText)}
}

func (s *Snapshot) PointUTF16ToOffset(point PointUTF16) ByteOffset {
	lineStart := s.tree.LineStartOffset(point.Line)
	lineEnd := s.tree.LineEndOffset(point.Line)
	lineText, _ := s.tree.Read(lineStart, lineEnd)
	return ByteOffset(lineStart) + ByteOffset(byteOffsetFromUTF16Column(lineText, point.Column))
}

func (s *Snapshot) LineStartOffset(line uint32) ByteOffset {
	return ByteOffset(s.tree.LineStartOffset(line))
}

func (s *Snapshot) LineEndOffset(line uint32) ByteOffset {
	return ByteOffset(s.tree.LineEndOffset(line))
}

func (s *Snapshot) RevisionID() RevisionID { return s.revisionID }

func (s *Snapshot) IsEmpty() bool { return s.tree.IsEmpty() }

func (s *Snapshot) LineEnding() LineEnding { return s.lineEnding }

func (s *Snapshot) TabWidth() int { return s.tabWidth }
