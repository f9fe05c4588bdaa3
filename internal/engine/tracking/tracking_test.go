package tracking

import (
	"testing"
	"time"

	"github.com/pm100/fresh/internal/engine/buffer"
)

func testRevisionID(n uint64) RevisionID { return RevisionID(n) }

func snapOf(text string) *buffer.Snapshot {
	return buffer.FromString(text).Snapshot()
}

func TestChangeConstructors(t *testing.T) {
	t.Run("insert", func(t *testing.T) {
		c := NewInsertChange(10, "hello", testRevisionID(1))
		if c.Kind != ChangeInsert {
			t.Errorf("expected ChangeInsert, got %v", c.Kind)
		}
		if c.Range.Start != 10 || c.Range.End != 10 {
			t.Errorf("expected range [10:10), got %v", c.Range)
		}
		if c.NewRange.Start != 10 || c.NewRange.End != 15 {
			t.Errorf("expected new range [10:15), got %v", c.NewRange)
		}
		if c.Delta() != 5 {
			t.Errorf("expected delta 5, got %d", c.Delta())
		}
	})

	t.Run("delete", func(t *testing.T) {
		c := NewDeleteChange(10, 15, "hello", testRevisionID(2))
		if c.Kind != ChangeDelete {
			t.Errorf("expected ChangeDelete, got %v", c.Kind)
		}
		if c.NewRange.Start != 10 || c.NewRange.End != 10 {
			t.Errorf("expected new range [10:10), got %v", c.NewRange)
		}
		if c.Delta() != -5 {
			t.Errorf("expected delta -5, got %d", c.Delta())
		}
	})

	t.Run("replace", func(t *testing.T) {
		c := NewReplaceChange(10, 15, "hello", "world!", testRevisionID(3))
		if c.Kind != ChangeReplace {
			t.Errorf("expected ChangeReplace, got %v", c.Kind)
		}
		if c.NewRange.Start != 10 || c.NewRange.End != 16 {
			t.Errorf("expected new range [10:16), got %v", c.NewRange)
		}
		if c.Delta() != 1 {
			t.Errorf("expected delta 1, got %d", c.Delta())
		}
	})

	t.Run("invert", func(t *testing.T) {
		inverted := NewInsertChange(10, "hello", testRevisionID(1)).Invert()
		if inverted.Kind != ChangeDelete {
			t.Errorf("expected inverted kind ChangeDelete, got %v", inverted.Kind)
		}
		if inverted.OldText != "hello" || inverted.NewText != "" {
			t.Errorf("expected inverted old=hello new=empty, got old=%q new=%q", inverted.OldText, inverted.NewText)
		}
	})
}

func TestFromEditResult(t *testing.T) {
	res := buffer.EditResult{
		OldRange: buffer.Range{Start: 5, End: 10},
		NewRange: buffer.Range{Start: 5, End: 8},
		OldText:  "hello",
		Delta:    -2,
	}
	c := FromEditResult(res, "hi!", testRevisionID(1))
	if c.Kind != ChangeReplace {
		t.Errorf("expected ChangeReplace, got %v", c.Kind)
	}
	if c.OldText != "hello" || c.NewText != "hi!" {
		t.Errorf("expected old=hello new=hi!, got old=%q new=%q", c.OldText, c.NewText)
	}
}

func TestChangeSet(t *testing.T) {
	cs := NewChangeSet(testRevisionID(1))
	if !cs.IsEmpty() {
		t.Error("new change set should be empty")
	}

	cs.Add(NewInsertChange(0, "hello", testRevisionID(2)))
	cs.Add(NewInsertChange(5, " world", testRevisionID(3)))

	if cs.IsEmpty() {
		t.Error("change set should not be empty")
	}
	if len(cs.Changes) != 2 {
		t.Errorf("expected 2 changes, got %d", len(cs.Changes))
	}
	if cs.TotalDelta() != 11 {
		t.Errorf("expected total delta 11, got %d", cs.TotalDelta())
	}
	if cs.EndRevision != testRevisionID(3) {
		t.Errorf("expected end revision 3, got %d", cs.EndRevision)
	}
	if cs.Summary() == "" {
		t.Error("summary should not be empty")
	}
}

func TestRevisionStore(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		store := newRevisionStore(10)
		store.Add(NewRevision(testRevisionID(1), snapOf("test")))

		got, ok := store.Get(testRevisionID(1))
		if !ok {
			t.Fatal("revision not found")
		}
		if got.Text() != "test" {
			t.Errorf("expected text 'test', got %q", got.Text())
		}
	})

	t.Run("capacity limit", func(t *testing.T) {
		store := newRevisionStore(3)
		for i := 1; i <= 5; i++ {
			store.Add(NewRevision(testRevisionID(uint64(i)), snapOf("test")))
		}
		if store.Len() != 3 {
			t.Errorf("expected 3 revisions, got %d", store.Len())
		}
		if _, ok := store.Get(testRevisionID(1)); ok {
			t.Error("revision 1 should have been evicted")
		}
		if _, ok := store.Get(testRevisionID(2)); ok {
			t.Error("revision 2 should have been evicted")
		}
	})
}

func TestSnapshotManager(t *testing.T) {
	t.Run("create and get", func(t *testing.T) {
		sm := NewSnapshotManager()
		id := sm.Create("test", snapOf("hello"), testRevisionID(1))

		snap, ok := sm.Get(id)
		if !ok {
			t.Fatal("snapshot not found by ID")
		}
		if snap.Text() != "hello" {
			t.Errorf("expected text 'hello', got %q", snap.Text())
		}

		byName, ok := sm.GetByName("test")
		if !ok {
			t.Fatal("snapshot not found by name")
		}
		if byName.ID != id {
			t.Error("IDs should match")
		}
	})

	t.Run("replace by name", func(t *testing.T) {
		sm := NewSnapshotManager()
		id1 := sm.Create("test", snapOf("first"), testRevisionID(1))
		id2 := sm.Create("test", snapOf("second"), testRevisionID(2))

		if sm.Count() != 1 {
			t.Errorf("expected 1 snapshot, got %d", sm.Count())
		}
		if _, ok := sm.Get(id1); ok {
			t.Error("old snapshot should be removed")
		}
		snap, ok := sm.Get(id2)
		if !ok || snap.Text() != "second" {
			t.Errorf("expected surviving snapshot text 'second', got %q (ok=%v)", snap.Text(), ok)
		}
	})

	t.Run("delete", func(t *testing.T) {
		sm := NewSnapshotManager()
		id := sm.Create("test", snapOf("hello"), testRevisionID(1))
		sm.Delete(id)
		if sm.Count() != 0 {
			t.Errorf("expected 0 snapshots, got %d", sm.Count())
		}
	})

	t.Run("prune keeps most recent", func(t *testing.T) {
		sm := NewSnapshotManager()
		for i := 0; i < 5; i++ {
			sm.Create("", snapOf("test"), testRevisionID(uint64(i)))
			time.Sleep(time.Millisecond)
		}
		removed := sm.PruneKeepN(2)
		if removed != 3 {
			t.Errorf("expected 3 removed, got %d", removed)
		}
		if sm.Count() != 2 {
			t.Errorf("expected 2 remaining, got %d", sm.Count())
		}
	})
}

func TestTrackerRecordAndQuery(t *testing.T) {
	tracker := NewTracker()

	c1 := NewInsertChange(0, "hi ", testRevisionID(1))
	tracker.RecordChange(testRevisionID(1), c1, snapOf("hi "))

	c2 := NewInsertChange(3, "world", testRevisionID(2))
	tracker.RecordChange(testRevisionID(2), c2, snapOf("hi world"))

	if changes := tracker.ChangesSince(testRevisionID(0)); len(changes) != 2 {
		t.Errorf("expected 2 changes, got %d", len(changes))
	}
	if changes := tracker.ChangesSince(testRevisionID(1)); len(changes) != 1 {
		t.Errorf("expected 1 change after revision 1, got %d", len(changes))
	}
}

func TestTrackerLatestChanges(t *testing.T) {
	tracker := NewTracker()
	for i := 1; i <= 5; i++ {
		c := NewInsertChange(0, "x", testRevisionID(uint64(i)))
		tracker.RecordChange(testRevisionID(uint64(i)), c, snapOf("x"))
	}

	latest := tracker.LatestChanges(3)
	if len(latest) != 3 {
		t.Errorf("expected 3 changes, got %d", len(latest))
	}
	if latest[0].RevisionID != testRevisionID(3) {
		t.Errorf("expected first change revision 3, got %d", latest[0].RevisionID)
	}
}

func TestTrackerSnapshotIntegration(t *testing.T) {
	tracker := NewTracker()
	snapID := tracker.CreateSnapshot("before_edit", snapOf("hello"), testRevisionID(0))

	c := NewInsertChange(5, " world", testRevisionID(1))
	tracker.RecordChange(testRevisionID(1), c, snapOf("hello world"))

	changes, err := tracker.DiffSinceSnapshot(snapID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 1 {
		t.Errorf("expected 1 change, got %d", len(changes))
	}
}

func TestTrackerComputeDiffSinceSnapshot(t *testing.T) {
	tracker := NewTracker()
	snapID := tracker.CreateSnapshot("before", snapOf("line1\nline2"), testRevisionID(0))

	result, err := tracker.ComputeDiffSinceSnapshot(snapID, snapOf("line1\nmodified"), DefaultDiffOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasChanges() {
		t.Error("expected changes between before and after snapshots")
	}
}

func TestTrackerBuildChangeSet(t *testing.T) {
	tracker := NewTracker()
	for i := 1; i <= 3; i++ {
		c := NewInsertChange(buffer.ByteOffset(i-1), "x", testRevisionID(uint64(i)))
		tracker.RecordChange(testRevisionID(uint64(i)), c, snapOf("xxx"[:i]))
	}

	cs := tracker.BuildChangeSet(testRevisionID(0))
	if len(cs.Changes) != 3 {
		t.Errorf("expected 3 changes in set, got %d", len(cs.Changes))
	}
	if cs.TotalDelta() != 3 {
		t.Errorf("expected total delta 3, got %d", cs.TotalDelta())
	}
}

func TestTrackerRingBufferOverflow(t *testing.T) {
	tracker := NewTracker(WithMaxChanges(5))
	for i := 1; i <= 10; i++ {
		c := NewInsertChange(0, "x", testRevisionID(uint64(i)))
		tracker.RecordChange(testRevisionID(uint64(i)), c, snapOf("x"))
	}

	if tracker.ChangeCount() != 5 {
		t.Errorf("expected 5 changes (max), got %d", tracker.ChangeCount())
	}

	changes := tracker.ChangesSince(testRevisionID(0))
	if len(changes) != 5 {
		t.Errorf("expected 5 changes, got %d", len(changes))
	}
	if changes[0].RevisionID != testRevisionID(6) {
		t.Errorf("expected oldest remaining revision 6, got %d", changes[0].RevisionID)
	}
}

func TestComputeLineDiff(t *testing.T) {
	t.Run("identical content", func(t *testing.T) {
		result := ComputeLineDiff(snapOf("hello\nworld"), snapOf("hello\nworld"), DefaultDiffOptions())
		if result.HasChanges() {
			t.Error("identical content should have no changes")
		}
	})

	t.Run("simple insert", func(t *testing.T) {
		result := ComputeLineDiff(snapOf("line1\nline3"), snapOf("line1\nline2\nline3"), DefaultDiffOptions())
		if !result.HasChanges() {
			t.Error("should have changes")
		}
	})

	t.Run("simple delete", func(t *testing.T) {
		result := ComputeLineDiff(snapOf("line1\nline2\nline3"), snapOf("line1\nline3"), DefaultDiffOptions())
		if !result.HasChanges() {
			t.Error("should have changes")
		}
	})

	t.Run("string diff", func(t *testing.T) {
		result := ComputeLineDiffStrings("a\nb\nc", "a\nX\nc", DefaultDiffOptions())
		if !result.HasChanges() {
			t.Error("should have changes")
		}
	})

	t.Run("ignore case", func(t *testing.T) {
		result := ComputeLineDiffStrings("HELLO", "hello", DiffOptions{IgnoreCase: true})
		if result.HasChanges() {
			t.Error("should have no changes with case ignored")
		}
	})

	t.Run("ignore whitespace", func(t *testing.T) {
		result := ComputeLineDiffStrings("  hello  ", "hello", DiffOptions{IgnoreWhitespace: true})
		if result.HasChanges() {
			t.Error("should have no changes with whitespace ignored")
		}
	})
}

func TestUnifiedDiff(t *testing.T) {
	result := ComputeLineDiff(snapOf("line1\nline2\nline3"), snapOf("line1\nmodified\nline3"), DefaultDiffOptions())
	unified := UnifiedDiff(result, "old.txt", "new.txt")
	if unified == "" {
		t.Error("unified diff should not be empty")
	}
}

func BenchmarkTrackerRecordChange(b *testing.B) {
	tracker := NewTracker()
	snap := snapOf("hello world")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := NewInsertChange(0, "x", testRevisionID(uint64(i)))
		tracker.RecordChange(testRevisionID(uint64(i)), c, snap)
	}
}

func BenchmarkLineDiffSmall(b *testing.B) {
	oldSnap := snapOf("line1\nline2\nline3\nline4\nline5")
	newSnap := snapOf("line1\nmodified\nline3\nline4\nline5")
	opts := DefaultDiffOptions()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ComputeLineDiff(oldSnap, newSnap, opts)
	}
}
