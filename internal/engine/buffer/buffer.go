// Package buffer implements Buffer: the composition of a ChunkTree, an
// IntervalTree of markers, a LineIndex, and an EditLog into one atomic
// editable document, following the same RWMutex-guarded-value-type
// wrapper shape the teacher's own buffer.Buffer uses around its rope.
package buffer

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pm100/fresh/internal/engine/chunktree"
	"github.com/pm100/fresh/internal/engine/editlog"
	"github.com/pm100/fresh/internal/engine/enginerr"
	"github.com/pm100/fresh/internal/engine/interval"
	"github.com/pm100/fresh/internal/engine/lineindex"
)

// ByteOffset is a byte position into a Buffer's text.
type ByteOffset int64

// Point is a 0-indexed line/column position, column measured in bytes.
type Point struct {
	Line   uint32
	Column uint32
}

func (p Point) Compare(other Point) int {
	switch {
	case p.Line != other.Line:
		if p.Line < other.Line {
			return -1
		}
		return 1
	case p.Column != other.Column:
		if p.Column < other.Column {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func (p Point) Before(other Point) bool { return p.Compare(other) < 0 }
func (p Point) After(other Point) bool  { return p.Compare(other) > 0 }
func (p Point) String() string          { return fmt.Sprintf("(%d:%d)", p.Line, p.Column) }

// PointUTF16 is a line/UTF-16-column position, the coordinate system LSP
// clients use.
type PointUTF16 struct {
	Line   uint32
	Column uint32
}

func (p PointUTF16) Compare(other PointUTF16) int {
	switch {
	case p.Line != other.Line:
		if p.Line < other.Line {
			return -1
		}
		return 1
	case p.Column != other.Column:
		if p.Column < other.Column {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func (p PointUTF16) String() string { return fmt.Sprintf("(%d:%d utf16)", p.Line, p.Column) }

// Kind distinguishes on-disk buffers from virtual ones (scratch views,
// generated diffs) that have no backing file and refuse Save.
type Kind uint8

const (
	KindFile Kind = iota
	KindVirtual
)

// LineEnding mirrors the teacher's three-way line ending model.
type LineEnding uint8

const (
	LineEndingLF LineEnding = iota
	LineEndingCRLF
	LineEndingCR
)

func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// RevisionID is bumped on every successful mutation so callers can cheaply
// tell whether a cached view of the buffer is stale.
type RevisionID uint64

// Buffer is the unit of editable text the engine façade manages. All
// methods are safe for concurrent use.
type Buffer struct {
	mu sync.RWMutex

	kind Kind
	path string

	tree    chunktree.ChunkTree
	markers *interval.Tree
	lines   *lineindex.LineIndex
	log     *editlog.Log

	revision   RevisionID
	lineEnding LineEnding
	tabWidth   int

	poisoned    bool
	poisonCause error
}

// New creates an empty Buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		tree:       chunktree.Empty(),
		markers:    interval.New(),
		lineEnding: LineEndingLF,
		tabWidth:   4,
		log:        editlog.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lines = lineindex.New(b.tree)
	return b
}

// FromString creates a Buffer with initial content, normalizing line
// endings to the buffer's configured style first.
func FromString(s string, opts ...Option) *Buffer {
	b := New(opts...)
	b.tree = chunktree.FromString(b.normalizeLineEndings(s))
	b.lines = lineindex.New(b.tree)
	return b
}

// FromReader creates a Buffer by reading r fully (required to normalize
// line endings split across read boundaries, same caveat the teacher's
// NewBufferFromReader documents).
func FromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	b := New(opts...)
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, enginerr.AtOffset(enginerr.StorageUnavailable, 0)
	}
	b.tree = chunktree.FromString(b.normalizeLineEndings(string(data)))
	b.lines = lineindex.New(b.tree)
	return b, nil
}

func (b *Buffer) normalizeLineEndings(s string) string {
	switch b.lineEnding {
	case LineEndingCRLF:
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
		return strings.ReplaceAll(s, "\n", "\r\n")
	case LineEndingCR:
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ReplaceAll(s, "\n", "\r")
	default:
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ReplaceAll(s, "\r", "\n")
	}
}

// --- read operations ---

func (b *Buffer) checkPoisonedLocked() error {
	if b.poisoned {
		return enginerr.BufferPoisoned
	}
	return nil
}

// Kind reports whether the buffer is backed by a file or virtual.
func (b *Buffer) Kind() Kind {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.kind
}

// Path returns the buffer's backing path, empty for virtual buffers.
func (b *Buffer) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// SetPath updates the buffer's backing path, for "Save As" retargeting a
// file buffer to a new location.
func (b *Buffer) SetPath(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.path = path
}

// Text returns the full buffer content. Prefer TextRange for large
// buffers.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.String()
}

// TextRange returns the text in [start, end).
func (b *Buffer) TextRange(start, end ByteOffset) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.Read(chunktree.ByteOffset(start), chunktree.ByteOffset(end))
}

// Len returns the buffer's byte length.
func (b *Buffer) Len() ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ByteOffset(b.tree.Len())
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	count, _ := b.lines.LineCount(b.tree)
	return count
}

// LineCountEstimated is LineCount plus whether that count is only an
// estimate. ChunkTree tracks an exact line count for any subtree, so
// this package always reports false, but the signature gives callers a
// single place to start trusting an estimate if the underlying tree
// ever stops being able to offer one cheaply.
func (b *Buffer) LineCountEstimated() (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lines.LineCount(b.tree)
}

// LineText returns one line's text, without its newline. The line's
// start is resolved through the line index, so a line number far from
// anything previously discovered may land on an approximate line.
func (b *Buffer) LineText(line uint32) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start := b.lineStartOffsetLocked(line)
	end := b.lineEndOffsetLocked(line)
	s, _ := b.tree.Read(chunktree.ByteOffset(start), chunktree.ByteOffset(end))
	return s
}

// RuneAt decodes the rune starting at offset.
func (b *Buffer) RuneAt(offset ByteOffset) (rune, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	off := chunktree.ByteOffset(offset)
	treeLen := b.tree.Len()
	if off >= treeLen {
		return utf8.RuneError, 0
	}
	end := off + 4
	if end > treeLen {
		end = treeLen
	}
	s, err := b.tree.Read(off, end)
	if err != nil {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s)
}

// OffsetToPoint converts a byte offset to line/column, resolving the
// line through the line index rather than asking the tree directly.
func (b *Buffer) OffsetToPoint(offset ByteOffset) Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.offsetToPointLocked(offset)
}

func (b *Buffer) offsetToPointLocked(offset ByteOffset) Point {
	line, _ := b.lines.ByteToLine(b.tree, int64(offset))
	lineStart, _ := b.lines.LineToByte(b.tree, line)
	return Point{Line: line, Column: uint32(int64(offset) - lineStart)}
}

// PointToOffset converts line/column to a byte offset.
func (b *Buffer) PointToOffset(p Point) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pointToOffsetLocked(p)
}

func (b *Buffer) pointToOffsetLocked(p Point) ByteOffset {
	lineStart, _ := b.lines.LineToByte(b.tree, p.Line)
	return ByteOffset(lineStart) + ByteOffset(p.Column)
}

// OffsetToPointUTF16 converts a byte offset to an LSP-style UTF-16
// line/column position.
func (b *Buffer) OffsetToPointUTF16(offset ByteOffset) PointUTF16 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	point := b.offsetToPointLocked(offset)
	lineStart, _ := b.lines.LineToByte(b.tree, point.Line)
	lineText, _ := b.tree.Read(chunktree.ByteOffset(lineStart), chunktree.ByteOffset(offset))
	return PointUTF16{Line: point.Line, Column: utf16ColumnFromString(lineText)}
}

// PointUTF16ToOffset converts an LSP-style position to a byte offset.
func (b *Buffer) PointUTF16ToOffset(p PointUTF16) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lineStart := b.lineStartOffsetLocked(p.Line)
	lineEnd := b.lineEndOffsetLocked(p.Line)
	lineText, _ := b.tree.Read(chunktree.ByteOffset(lineStart), chunktree.ByteOffset(lineEnd))
	return lineStart + ByteOffset(byteOffsetFromUTF16Column(lineText, p.Column))
}

func utf16ColumnFromString(s string) uint32 {
	var col uint32
	for _, r := range s {
		if r >= 0x10000 {
			col += 2
		} else {
			col++
		}
	}
	return col
}

func byteOffsetFromUTF16Column(line string, utf16Col uint32) int {
	var col uint32
	var byteOffset int
	for _, r := range line {
		if col >= utf16Col {
			break
		}
		if r >= 0x10000 {
			col += 2
		} else {
			col++
		}
		byteOffset += utf8.RuneLen(r)
	}
	return byteOffset
}

// LineStartOffset / LineEndOffset return a line's byte boundaries.
func (b *Buffer) LineStartOffset(line uint32) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineStartOffsetLocked(line)
}

func (b *Buffer) LineEndOffset(line uint32) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEndOffsetLocked(line)
}

func (b *Buffer) lineStartOffsetLocked(line uint32) ByteOffset {
	start, _ := b.lines.LineToByte(b.tree, line)
	return ByteOffset(start)
}

// lineEndOffsetLocked returns the byte offset just past a line's last
// byte, not including its newline, mirroring ChunkTree's own
// LineEndOffset but resolving the next line's start through the line
// index instead of the tree directly.
func (b *Buffer) lineEndOffsetLocked(line uint32) ByteOffset {
	count, _ := b.lines.LineCount(b.tree)
	if count == 0 || line+1 >= count {
		return ByteOffset(b.tree.Len())
	}
	next, _ := b.lines.LineToByte(b.tree, line+1)
	if next > 0 {
		return ByteOffset(next - 1)
	}
	return 0
}

func (b *Buffer) RevisionID() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

func (b *Buffer) IsEmpty() bool { return b.Len() == 0 }

func (b *Buffer) LineEnding() LineEnding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

func (b *Buffer) TabWidth() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tabWidth
}

// WriteTo writes the full buffer content to w, for the engine façade's
// Save command.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := io.WriteString(w, b.tree.String())
	return int64(n), err
}

// Revert replaces the buffer's content with a fresh read from r, clearing
// the undo/redo log and every marker: the reloaded text shares no byte
// offsets with whatever was on screen before, so nothing from the old
// state can be trusted to still apply. Mirrors the engine façade's Revert
// command (discard unsaved edits, reread the backing file).
func (b *Buffer) Revert(r io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return enginerr.AtOffset(enginerr.StorageUnavailable, 0)
	}
	b.tree = chunktree.FromString(b.normalizeLineEndings(string(data)))
	b.markers = interval.New()
	b.lines = lineindex.New(b.tree)
	b.log.Clear()
	b.poisoned = false
	b.poisonCause = nil
	b.revision++
	return nil
}
