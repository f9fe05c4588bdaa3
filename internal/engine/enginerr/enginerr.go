// Package enginerr holds the sentinel error values shared by every engine
// package. It follows the flat var-block idiom the rest of this module uses
// for errors rather than a code/category framework.
package enginerr

import (
	"errors"
	"fmt"
)

var (
	// InvalidOffset is returned when a byte offset falls outside [0, len].
	InvalidOffset = errors.New("enginerr: invalid offset")
	// NotACharBoundary is returned when an offset splits a UTF-8 sequence.
	NotACharBoundary = errors.New("enginerr: offset is not a char boundary")
	// NoSuchMarker is returned when a MarkerID is not present in the tree.
	NoSuchMarker = errors.New("enginerr: no such marker")
	// NoSuchBuffer is returned when a BufferID is not known to the engine.
	NoSuchBuffer = errors.New("enginerr: no such buffer")
	// NoSuchSplit is returned when a SplitID is not known to the engine.
	NoSuchSplit = errors.New("enginerr: no such split")
	// StorageUnavailable is returned when the backing store for a buffer
	// (file, virtual provider) cannot service a read or write.
	StorageUnavailable = errors.New("enginerr: storage unavailable")
	// IOError wraps a failure talking to the filesystem during open/save.
	IOError = errors.New("enginerr: io error")
	// BufferPoisoned is returned by edits, undo and redo on a buffer once
	// replaying an undo or redo op has failed partway and left the text
	// and the edit log out of step; Revert clears the condition.
	BufferPoisoned = errors.New("enginerr: buffer poisoned")
	// Cancelled is returned when a context passed to a long-running
	// operation is cancelled before completion.
	Cancelled = errors.New("enginerr: operation cancelled")
	// DeadlineExceeded is returned when a context's deadline lapses
	// before a long-running operation completes.
	DeadlineExceeded = errors.New("enginerr: deadline exceeded")
	// NothingToUndo / NothingToRedo are returned when the edit log has no
	// entry on the requested side of the stack.
	NothingToUndo = errors.New("enginerr: nothing to undo")
	NothingToRedo = errors.New("enginerr: nothing to redo")
	// NoActiveGroup is returned by EndGroup when BeginGroup was never
	// called; BeginGroup returns GroupAlreadyOpen when a group is
	// already open.
	NoActiveGroup    = errors.New("enginerr: no active edit group")
	GroupAlreadyOpen = errors.New("enginerr: edit group already open")
	// ReadOnly is returned by write operations on a buffer the engine has
	// marked read-only, whether by explicit request or because a prior
	// failure poisoned it.
	ReadOnly = errors.New("enginerr: buffer is read-only")
	// VirtualBuffer is returned by Save and Revert on a buffer with no
	// backing file.
	VirtualBuffer = errors.New("enginerr: buffer is virtual and has no backing file")
)

// OffsetError attaches the byte offset at fault to a sentinel so callers can
// both errors.Is against the sentinel and recover the offset that caused it.
type OffsetError struct {
	Err    error
	Offset int64
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("%s: offset %d", e.Err, e.Offset)
}

func (e *OffsetError) Unwrap() error { return e.Err }

// AtOffset wraps err with the offset that triggered it.
func AtOffset(err error, offset int64) error {
	return &OffsetError{Err: err, Offset: offset}
}
