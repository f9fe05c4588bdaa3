// Package engine implements the Engine façade: the single entry point
// that owns every open Buffer and every split's SplitViewState, and
// exposes the editor's command surface over them. It generalizes the
// teacher's internal/engine/engine.go, which wrapped exactly one Buffer
// plus one CursorSet, into a buffer table and a split table keyed by
// opaque ids, following the same RWMutex-guarded-façade shape and the
// same re-export-common-types convention the teacher's engine.go uses.
package engine
