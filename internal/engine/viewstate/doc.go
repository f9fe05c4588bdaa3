// Package viewstate implements SplitViewState: the per-view cursor set,
// selection anchors, and viewport that a terminal split keeps over one
// Buffer. It is modeled on the teacher's cursor package (CursorSet,
// Selection, the Transform* edit-reaction helpers), generalized with a
// preferred column for vertical movement and an explicit primary flag so
// the merge rule can say which cursor wins a caret collision, matching
// the spec's "ordered set of Cursor by caret; a designated primary."
package viewstate
