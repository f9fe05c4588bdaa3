package tracking

import (
	"sync"

	"github.com/pm100/fresh/internal/engine/buffer"
)

const (
	DefaultMaxChanges   = 10000
	DefaultMaxRevisions = 100
)

// TrackerOption configures a Tracker at construction time.
type TrackerOption func(*Tracker)

// WithMaxChanges sets the ring buffer capacity. Only meaningful at
// construction: applying it later discards any recorded changes.
func WithMaxChanges(maxChanges int) TrackerOption {
	return func(t *Tracker) {
		t.maxChanges = maxChanges
		t.changes = make([]trackedChange, maxChanges)
	}
}

// WithMaxRevisions sets how many past revisions stay pinned for diffing.
func WithMaxRevisions(maxRevisions int) TrackerOption {
	return func(t *Tracker) { t.revisions = newRevisionStore(maxRevisions) }
}

// Tracker records a bounded history of changes against one buffer, plus
// named snapshots of its state, so a caller can ask "what changed since
// revision N" or "what changed since I took this checkpoint" without
// re-diffing the whole document. Safe for concurrent use.
type Tracker struct {
	mu sync.RWMutex

	changes    []trackedChange
	head       int
	count      int
	maxChanges int

	revisions *revisionStore
	snapshots *SnapshotManager
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		maxChanges: DefaultMaxChanges,
		changes:    make([]trackedChange, DefaultMaxChanges),
		revisions:  newRevisionStore(DefaultMaxRevisions),
		snapshots:  NewSnapshotManager(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordChange appends one change to the history and pins snap as the
// revision state produced by it.
func (t *Tracker) RecordChange(rev RevisionID, change Change, snap *buffer.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordChangeLocked(rev, change)
	t.revisions.Add(NewRevision(rev, snap))
}

func (t *Tracker) recordChangeLocked(rev RevisionID, change Change) {
	idx := (t.head + t.count) % t.maxChanges
	if t.count < t.maxChanges {
		t.count++
	} else {
		t.head = (t.head + 1) % t.maxChanges
	}
	t.changes[idx] = trackedChange{revision: rev, change: change}
}

// ChangesSince returns changes recorded after rev, in chronological order.
func (t *Tracker) ChangesSince(rev RevisionID) []Change {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changesSinceLocked(rev)
}

func (t *Tracker) changesSinceLocked(rev RevisionID) []Change {
	var result []Change
	for i := 0; i < t.count; i++ {
		idx := (t.head + i) % t.maxChanges
		if tc := t.changes[idx]; tc.revision > rev {
			result = append(result, tc.change)
		}
	}
	return result
}

// ChangesBetween returns changes with startRev < revision <= endRev.
func (t *Tracker) ChangesBetween(startRev, endRev RevisionID) []Change {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []Change
	for i := 0; i < t.count; i++ {
		idx := (t.head + i) % t.maxChanges
		if tc := t.changes[idx]; tc.revision > startRev && tc.revision <= endRev {
			result = append(result, tc.change)
		}
	}
	return result
}

// LatestChanges returns the n most recent changes, oldest first.
func (t *Tracker) LatestChanges(n int) []Change {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n > t.count {
		n = t.count
	}
	result := make([]Change, n)
	for i := 0; i < n; i++ {
		idx := (t.head + t.count - 1 - i) % t.maxChanges
		if idx < 0 {
			idx += t.maxChanges
		}
		result[n-1-i] = t.changes[idx].change
	}
	return result
}

func (t *Tracker) ChangeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// CreateSnapshot records a named checkpoint of the buffer's current state.
func (t *Tracker) CreateSnapshot(name string, snap *buffer.Snapshot, rev RevisionID) SnapshotID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshots.Create(name, snap, rev)
}

func (t *Tracker) GetSnapshot(id SnapshotID) (*Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.snapshots.Get(id)
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snap, nil
}

func (t *Tracker) GetSnapshotByName(name string) (*Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.snapshots.GetByName(name)
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snap, nil
}

func (t *Tracker) DeleteSnapshot(id SnapshotID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshots.Delete(id)
}

func (t *Tracker) ListSnapshots() []*Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshots.List()
}

func (t *Tracker) SnapshotCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshots.Count()
}

// DiffSinceSnapshot returns the recorded changes since a snapshot was
// taken, without recomputing a line diff.
func (t *Tracker) DiffSinceSnapshot(id SnapshotID) ([]Change, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.snapshots.Get(id)
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return t.changesSinceLocked(snap.Revision), nil
}

// ComputeDiffSinceSnapshot computes a line-level diff from a snapshot to
// the buffer's current state.
func (t *Tracker) ComputeDiffSinceSnapshot(id SnapshotID, current *buffer.Snapshot, opts DiffOptions) (DiffResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.snapshots.Get(id)
	if !ok {
		return DiffResult{}, ErrSnapshotNotFound
	}
	return ComputeLineDiff(snap.Buffer(), current, opts), nil
}

// ComputeDiffBetweenSnapshots computes a line-level diff between two
// named checkpoints.
func (t *Tracker) ComputeDiffBetweenSnapshots(fromID, toID SnapshotID, opts DiffOptions) (DiffResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	from, ok := t.snapshots.Get(fromID)
	if !ok {
		return DiffResult{}, ErrSnapshotNotFound
	}
	to, ok := t.snapshots.Get(toID)
	if !ok {
		return DiffResult{}, ErrSnapshotNotFound
	}
	return ComputeLineDiff(from.Buffer(), to.Buffer(), opts), nil
}

func (t *Tracker) GetSnapshotText(id SnapshotID) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.snapshots.Get(id)
	if !ok {
		return "", ErrSnapshotNotFound
	}
	return snap.Text(), nil
}

func (t *Tracker) GetRevision(id RevisionID) (*Revision, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revisions.Get(id)
}

func (t *Tracker) RevisionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revisions.Len()
}

// Clear drops all tracked changes, revisions, and snapshots.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.head = 0
	t.count = 0
	t.revisions.Clear()
	t.snapshots.Clear()
}

// BuildChangeSet collects changes since sinceRev into a ChangeSet a
// caller can summarize in one line.
func (t *Tracker) BuildChangeSet(sinceRev RevisionID) *ChangeSet {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cs := NewChangeSet(sinceRev)
	for i := 0; i < t.count; i++ {
		idx := (t.head + i) % t.maxChanges
		if tc := t.changes[idx]; tc.revision > sinceRev {
			cs.Add(tc.change)
		}
	}
	return cs
}

// BuildChangeSetBetween collects changes with startRev < revision <= endRev.
func (t *Tracker) BuildChangeSetBetween(startRev, endRev RevisionID) *ChangeSet {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cs := NewChangeSet(startRev)
	for i := 0; i < t.count; i++ {
		idx := (t.head + i) % t.maxChanges
		if tc := t.changes[idx]; tc.revision > startRev && tc.revision <= endRev {
			cs.Add(tc.change)
		}
	}
	return cs
}
