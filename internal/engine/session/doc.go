// Package session persists and restores the editor's open-buffer list and
// per-split view state (scroll position, cursors) between runs. The wire
// format is a binary stream modeled directly on the teacher's
// internal/project/index persistence code: a magic header, a version,
// and a flat sequence of fixed-width little-endian fields plus
// length-prefixed strings, read back with the same bufio.Reader/ReadFull
// discipline. Fields carry no tags: the layout is fixed per version, and
// Load rejects any version other than the one Save writes.
package session
