// Package tracking keeps a bounded history of edits and named checkpoints
// against a buffer's revisions, so an external consumer — an AI context
// builder, a "what changed since I last looked" plugin hook — can query
// deltas without re-diffing the whole document on every call.
//
// A Tracker never watches a buffer on its own. The engine façade feeds it
// one Change per successful edit, via RecordChange, and hands it a
// *buffer.Snapshot to pin alongside each revision and named checkpoint.
// Pinning a Snapshot is O(1): it is a small value wrapping a persistent
// ChunkTree root, not a copy of the document's text.
package tracking
