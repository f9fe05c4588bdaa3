package session

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

const formatVersion = 1

var magic = []byte("FRSS") // FResh Session

// Persistence errors.
var (
	ErrInvalidFormat   = errors.New("invalid session format")
	ErrVersionMismatch = errors.New("session version mismatch")
)

// maxStringLength guards readString against allocating an absurd buffer
// from a truncated or corrupt file.
const maxStringLength = 16 * 1024 * 1024

// BufferKind mirrors buffer.Kind without importing the buffer package,
// keeping session a leaf dependency the engine façade wires up rather than
// session depending upward on buffer.
type BufferKind uint8

const (
	BufferKindFile BufferKind = iota
	BufferKindVirtual
)

// BufferState is one entry in the persisted buffer list: enough to reopen
// a file-backed buffer, or recreate an empty placeholder for a virtual one
// (virtual buffer content itself is not persisted).
type BufferState struct {
	Path string
	Kind BufferKind
}

// CursorState is one persisted cursor: Anchor/Head bytes plus whether it
// was the split's primary cursor.
type CursorState struct {
	Anchor  int64
	Head    int64
	Primary bool
}

// SplitState is one persisted split's view over a buffer: which buffer
// (by index into State.Buffers), its scroll position, and its cursor set.
type SplitState struct {
	BufferIndex uint32
	TopByte     int64
	LeftColumn  uint32
	Rows        uint32
	Cols        uint32
	Wrap        bool
	Cursors     []CursorState
}

// State is the full persisted session: every open buffer, every split
// viewing them, and which split had focus.
type State struct {
	Buffers     []BufferState
	Splits      []SplitState
	ActiveSplit uint32
}

// Save writes the session in the wire format described in the package
// doc comment.
//
//	[4 bytes] magic "FRSS"
//	[4 bytes] version (little endian)
//	[4 bytes] active split index
//	[4 bytes] buffer count
//	  [buffers...]
//	    [4 bytes] path length, [n bytes] path
//	    [1 byte]  kind
//	[4 bytes] split count
//	  [splits...]
//	    [4 bytes] buffer index
//	    [8 bytes] top byte
//	    [4 bytes] left column
//	    [4 bytes] rows
//	    [4 bytes] cols
//	    [1 byte]  wrap
//	    [4 bytes] cursor count
//	      [cursors...]
//	        [8 bytes] anchor
//	        [8 bytes] head
//	        [1 byte]  primary
func Save(w io.Writer, s *State) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(formatVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, s.ActiveSplit); err != nil {
		return err
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(s.Buffers))); err != nil {
		return err
	}
	for _, b := range s.Buffers {
		if err := writeBuffer(bw, b); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(s.Splits))); err != nil {
		return err
	}
	for _, sp := range s.Splits {
		if err := writeSplit(bw, sp); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load restores a session from the wire format Save writes.
func Load(r io.Reader) (*State, error) {
	br := bufio.NewReader(r)

	gotMagic := make([]byte, 4)
	if _, err := io.ReadFull(br, gotMagic); err != nil {
		return nil, err
	}
	if string(gotMagic) != string(magic) {
		return nil, ErrInvalidFormat
	}

	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, ErrVersionMismatch
	}

	s := &State{}
	if err := binary.Read(br, binary.LittleEndian, &s.ActiveSplit); err != nil {
		return nil, err
	}

	var bufCount uint32
	if err := binary.Read(br, binary.LittleEndian, &bufCount); err != nil {
		return nil, err
	}
	s.Buffers = make([]BufferState, bufCount)
	for i := range s.Buffers {
		b, err := readBuffer(br)
		if err != nil {
			return nil, err
		}
		s.Buffers[i] = b
	}

	var splitCount uint32
	if err := binary.Read(br, binary.LittleEndian, &splitCount); err != nil {
		return nil, err
	}
	s.Splits = make([]SplitState, splitCount)
	for i := range s.Splits {
		sp, err := readSplit(br)
		if err != nil {
			return nil, err
		}
		s.Splits[i] = sp
	}

	return s, nil
}

func writeBuffer(w *bufio.Writer, b BufferState) error {
	if err := writeString(w, b.Path); err != nil {
		return err
	}
	return w.WriteByte(byte(b.Kind))
}

func readBuffer(r *bufio.Reader) (BufferState, error) {
	var b BufferState
	path, err := readString(r)
	if err != nil {
		return b, err
	}
	kind, err := r.ReadByte()
	if err != nil {
		return b, err
	}
	b.Path = path
	b.Kind = BufferKind(kind)
	return b, nil
}

func writeSplit(w *bufio.Writer, sp SplitState) error {
	if err := binary.Write(w, binary.LittleEndian, sp.BufferIndex); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, sp.TopByte); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, sp.LeftColumn); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, sp.Rows); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, sp.Cols); err != nil {
		return err
	}
	var wrap byte
	if sp.Wrap {
		wrap = 1
	}
	if err := w.WriteByte(wrap); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(sp.Cursors))); err != nil {
		return err
	}
	for _, c := range sp.Cursors {
		if err := writeCursor(w, c); err != nil {
			return err
		}
	}
	return nil
}

func readSplit(r *bufio.Reader) (SplitState, error) {
	var sp SplitState
	if err := binary.Read(r, binary.LittleEndian, &sp.BufferIndex); err != nil {
		return sp, err
	}
	if err := binary.Read(r, binary.LittleEndian, &sp.TopByte); err != nil {
		return sp, err
	}
	if err := binary.Read(r, binary.LittleEndian, &sp.LeftColumn); err != nil {
		return sp, err
	}
	if err := binary.Read(r, binary.LittleEndian, &sp.Rows); err != nil {
		return sp, err
	}
	if err := binary.Read(r, binary.LittleEndian, &sp.Cols); err != nil {
		return sp, err
	}
	wrap, err := r.ReadByte()
	if err != nil {
		return sp, err
	}
	sp.Wrap = wrap != 0

	var cursorCount uint32
	if err := binary.Read(r, binary.LittleEndian, &cursorCount); err != nil {
		return sp, err
	}
	sp.Cursors = make([]CursorState, cursorCount)
	for i := range sp.Cursors {
		c, err := readCursor(r)
		if err != nil {
			return sp, err
		}
		sp.Cursors[i] = c
	}
	return sp, nil
}

func writeCursor(w *bufio.Writer, c CursorState) error {
	if err := binary.Write(w, binary.LittleEndian, c.Anchor); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.Head); err != nil {
		return err
	}
	var primary byte
	if c.Primary {
		primary = 1
	}
	return w.WriteByte(primary)
}

func readCursor(r *bufio.Reader) (CursorState, error) {
	var c CursorState
	if err := binary.Read(r, binary.LittleEndian, &c.Anchor); err != nil {
		return c, err
	}
	if err := binary.Read(r, binary.LittleEndian, &c.Head); err != nil {
		return c, err
	}
	primary, err := r.ReadByte()
	if err != nil {
		return c, err
	}
	c.Primary = primary != 0
	return c, nil
}

func writeString(w *bufio.Writer, s string) error {
	if len(s) > maxStringLength {
		return ErrInvalidFormat
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bufio.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	if length > maxStringLength {
		return "", ErrInvalidFormat
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// SaveToFile persists the session to path, matching the teacher index
// package's SaveToFile/LoadFromFile convenience wrappers.
func SaveToFile(path string, s *State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Save(f, s)
}

// LoadFromFile restores a session previously written by SaveToFile.
func LoadFromFile(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
