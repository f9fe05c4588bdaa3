package tracking

import (
	"time"

	"github.com/pm100/fresh/internal/engine/buffer"
)

// RevisionID aliases buffer.RevisionID so callers never convert between
// the two.
type RevisionID = buffer.RevisionID

// Revision pins a buffer's state at one revision: the snapshot itself plus
// when it was recorded.
type Revision struct {
	ID        RevisionID
	Timestamp time.Time
	snap      *buffer.Snapshot
}

// NewRevision wraps a snapshot with its revision id.
func NewRevision(id RevisionID, snap *buffer.Snapshot) *Revision {
	return &Revision{ID: id, Timestamp: time.Now(), snap: snap}
}

func (r *Revision) Snapshot() *buffer.Snapshot { return r.snap }
func (r *Revision) Text() string               { return r.snap.Text() }
func (r *Revision) Len() buffer.ByteOffset      { return r.snap.Len() }
func (r *Revision) LineCount() uint32           { return r.snap.LineCount() }

// revisionStore is a bounded map of revisions, evicting the oldest entry
// once it grows past maxEntries so a long editing session doesn't pin an
// unbounded number of ChunkTree roots alive.
type revisionStore struct {
	revisions  map[RevisionID]*Revision
	maxEntries int
}

func newRevisionStore(maxEntries int) *revisionStore {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &revisionStore{revisions: make(map[RevisionID]*Revision), maxEntries: maxEntries}
}

func (rs *revisionStore) Add(rev *Revision) {
	rs.revisions[rev.ID] = rev
	for len(rs.revisions) > rs.maxEntries {
		var oldest RevisionID
		for id := range rs.revisions {
			if oldest == 0 || id < oldest {
				oldest = id
			}
		}
		delete(rs.revisions, oldest)
	}
}

func (rs *revisionStore) Get(id RevisionID) (*Revision, bool) {
	rev, ok := rs.revisions[id]
	return rev, ok
}

func (rs *revisionStore) Len() int { return len(rs.revisions) }

func (rs *revisionStore) Clear() { rs.revisions = make(map[RevisionID]*Revision) }
