package engine

import "github.com/pm100/fresh/internal/engine/buffer"

// EventKind distinguishes the external-interface events the spec names.
type EventKind int

const (
	EventBufferOpened EventKind = iota
	EventBufferSaved
	EventBufferClosed
	EventBufferChanged
	EventViewChanged
	EventMarkerChanged
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventBufferOpened:
		return "BufferOpened"
	case EventBufferSaved:
		return "BufferSaved"
	case EventBufferClosed:
		return "BufferClosed"
	case EventBufferChanged:
		return "BufferChanged"
	case EventViewChanged:
		return "ViewChanged"
	case EventMarkerChanged:
		return "MarkerChanged"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is one notification emitted on the Engine's event channel. Only
// the fields relevant to Kind are populated; this single flat struct
// replaces the teacher's separate per-topic event types and its trie-
// based dispatcher (internal/event), which is overkill for the fixed,
// small event vocabulary the spec names.
type Event struct {
	Kind     EventKind
	BufferID BufferID
	SplitID  SplitID
	Range    buffer.Range
	Revision buffer.RevisionID
	Markers  []buffer.MarkerID

	// Error fields, populated only when Kind == EventError.
	Scope   string
	ErrKind string
	Message string
}

// Events returns the channel Engine publishes notifications on. The
// channel is buffered; a caller that stops draining it will eventually
// cause Engine to drop events rather than block the main worker (logged
// at Warn via the configured Logger).
func (e *Engine) Events() <-chan Event { return e.events }

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("engine: dropping event %s, event channel full", ev.Kind)
	}
}
