package tracking

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pm100/fresh/internal/engine/buffer"
)

// ErrSnapshotNotFound is returned when a lookup by ID or name misses.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotID names a checkpoint.
type SnapshotID uint64

var snapshotIDCounter uint64

// NewSnapshotID allocates a process-wide unique snapshot id.
func NewSnapshotID() SnapshotID {
	return SnapshotID(atomic.AddUint64(&snapshotIDCounter, 1))
}

// Snapshot is a named, immutable checkpoint of a buffer's state. Taking one
// is O(1): it pins a *buffer.Snapshot, not a copy of the text.
type Snapshot struct {
	ID        SnapshotID
	Name      string
	Timestamp time.Time
	Revision  RevisionID
	snap      *buffer.Snapshot
}

// NewSnapshot wraps a buffer snapshot under a name and revision.
func NewSnapshot(name string, snap *buffer.Snapshot, revision RevisionID) *Snapshot {
	return &Snapshot{
		ID:        NewSnapshotID(),
		Name:      name,
		Timestamp: time.Now(),
		Revision:  revision,
		snap:      snap,
	}
}

func (s *Snapshot) Buffer() *buffer.Snapshot { return s.snap }
func (s *Snapshot) Text() string             { return s.snap.Text() }
func (s *Snapshot) Len() buffer.ByteOffset   { return s.snap.Len() }
func (s *Snapshot) LineCount() uint32        { return s.snap.LineCount() }
func (s *Snapshot) Age() time.Duration       { return time.Since(s.Timestamp) }

// SnapshotManager holds named checkpoints for one buffer. All methods are
// safe for concurrent use.
type SnapshotManager struct {
	mu        sync.RWMutex
	snapshots map[SnapshotID]*Snapshot
	byName    map[string]*Snapshot
}

func NewSnapshotManager() *SnapshotManager {
	return &SnapshotManager{
		snapshots: make(map[SnapshotID]*Snapshot),
		byName:    make(map[string]*Snapshot),
	}
}

// Create records a new named snapshot, replacing any existing snapshot
// under the same name.
func (sm *SnapshotManager) Create(name string, snap *buffer.Snapshot, revision RevisionID) SnapshotID {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if existing, ok := sm.byName[name]; ok {
		delete(sm.snapshots, existing.ID)
	}

	s := NewSnapshot(name, snap, revision)
	sm.snapshots[s.ID] = s
	if name != "" {
		sm.byName[name] = s
	}
	return s.ID
}

func (sm *SnapshotManager) Get(id SnapshotID) (*Snapshot, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.snapshots[id]
	return s, ok
}

func (sm *SnapshotManager) GetByName(name string) (*Snapshot, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.byName[name]
	return s, ok
}

func (sm *SnapshotManager) Delete(id SnapshotID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.snapshots[id]; ok {
		if s.Name != "" {
			delete(sm.byName, s.Name)
		}
		delete(sm.snapshots, id)
	}
}

func (sm *SnapshotManager) DeleteByName(name string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.byName[name]; ok {
		delete(sm.snapshots, s.ID)
		delete(sm.byName, name)
	}
}

// List returns all snapshots ordered oldest first.
func (sm *SnapshotManager) List() []*Snapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]*Snapshot, 0, len(sm.snapshots))
	for _, s := range sm.snapshots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (sm *SnapshotManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.snapshots)
}

func (sm *SnapshotManager) Clear() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.snapshots = make(map[SnapshotID]*Snapshot)
	sm.byName = make(map[string]*Snapshot)
}

func (sm *SnapshotManager) Names() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	names := make([]string, 0, len(sm.byName))
	for name := range sm.byName {
		names = append(names, name)
	}
	return names
}

// PruneKeepN removes the oldest snapshots, keeping only the n most recent,
// and returns how many were removed.
func (sm *SnapshotManager) PruneKeepN(n int) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.snapshots) <= n {
		return 0
	}

	ordered := make([]*Snapshot, 0, len(sm.snapshots))
	for _, s := range sm.snapshots {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Timestamp.After(ordered[j].Timestamp) })

	removed := 0
	for i := n; i < len(ordered); i++ {
		s := ordered[i]
		if s.Name != "" {
			delete(sm.byName, s.Name)
		}
		delete(sm.snapshots, s.ID)
		removed++
	}
	return removed
}
