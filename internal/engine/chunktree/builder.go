package chunktree

import (
	"io"
	"strings"
)

// Builder accumulates text efficiently before producing a ChunkTree in a
// single bottom-up build, avoiding the O(log N) cost of inserting chunk
// by chunk when the caller already knows the whole payload (loading a
// file, for instance).
type Builder struct {
	chunks   []Chunk
	buf      strings.Builder
	totalLen int
}

// WriteString appends s.
func (b *Builder) WriteString(s string) {
	if len(s) == 0 {
		return
	}
	b.totalLen += len(s)
	b.buf.WriteString(s)
	if b.buf.Len() >= MaxChunkSize*2 {
		b.flush()
	}
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	b.WriteString(string(p))
	return len(p), nil
}

func (b *Builder) flush() {
	if b.buf.Len() == 0 {
		return
	}
	s := b.buf.String()
	b.buf.Reset()
	b.chunks = append(b.chunks, splitIntoChunks(s)...)
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return b.totalLen }

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.chunks = b.chunks[:0]
	b.buf.Reset()
	b.totalLen = 0
}

// Build produces a ChunkTree from everything written so far and resets
// the builder.
func (b *Builder) Build() ChunkTree {
	b.flush()
	if len(b.chunks) == 0 {
		b.Reset()
		return Empty()
	}
	chunks := b.chunks
	b.Reset()
	return buildFromChunks(chunks)
}

// ReadFrom implements io.ReaderFrom.
func (b *Builder) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.WriteString(string(buf[:n]))
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
