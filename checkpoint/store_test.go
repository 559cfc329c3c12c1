package checkpoint

import (
	"strings"
	"testing"
	"time"
)

func TestNew_IDSortable(t *testing.T) {
	a := newCheckpointID(time.Unix(100, 5))
	b := newCheckpointID(time.Unix(100, 6))
	c := newCheckpointID(time.Unix(101, 0))

	if !(a < b && b < c) {
		t.Errorf("checkpoint IDs not ordered: %q %q %q", a, b, c)
	}
	if !strings.HasPrefix(a, "cp_") {
		t.Errorf("ID %q missing cp_ prefix", a)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	cp := New("sync_1700000000_ab12", []string{"n1", "n2"}, []string{"n3"})
	cp.Metadata = map[string]any{"dataset_id": "ds-9"}

	if err := store.Save(cp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(cp.OperationID, cp.CheckpointID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.OperationID != cp.OperationID {
		t.Errorf("OperationID = %q, want %q", got.OperationID, cp.OperationID)
	}
	if got.CheckpointID != cp.CheckpointID {
		t.Errorf("CheckpointID = %q, want %q", got.CheckpointID, cp.CheckpointID)
	}
	if len(got.CompletedItems) != 2 || got.CompletedItems[0] != "n1" {
		t.Errorf("CompletedItems = %v", got.CompletedItems)
	}
	if len(got.PendingItems) != 1 || got.PendingItems[0] != "n3" {
		t.Errorf("PendingItems = %v", got.PendingItems)
	}
	if got.Metadata["dataset_id"] != "ds-9" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
	if !got.Timestamp.Equal(cp.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, cp.Timestamp)
	}
}

func TestStore_FindLatest(t *testing.T) {
	store := NewStore(t.TempDir())
	opID := "transfer_1700000000_cd34"

	older := New(opID, []string{"n1"}, []string{"n2", "n3"})
	older.CheckpointID = newCheckpointID(time.Unix(1000, 0))
	if err := store.Save(older); err != nil {
		t.Fatalf("Save(older) error = %v", err)
	}

	newer := New(opID, []string{"n1", "n2"}, []string{"n3"})
	newer.CheckpointID = newCheckpointID(time.Unix(2000, 0))
	if err := store.Save(newer); err != nil {
		t.Fatalf("Save(newer) error = %v", err)
	}

	got, err := store.FindLatest(opID)
	if err != nil {
		t.Fatalf("FindLatest() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindLatest() = nil, want newer checkpoint")
	}
	if got.CheckpointID != newer.CheckpointID {
		t.Errorf("FindLatest() = %q, want %q", got.CheckpointID, newer.CheckpointID)
	}
	if len(got.CompletedItems) != 2 {
		t.Errorf("CompletedItems = %v, want latest snapshot", got.CompletedItems)
	}
}

func TestStore_FindLatestNone(t *testing.T) {
	store := NewStore(t.TempDir())

	got, err := store.FindLatest("missing_op")
	if err != nil {
		t.Fatalf("FindLatest() error = %v", err)
	}
	if got != nil {
		t.Errorf("FindLatest() = %v, want nil", got)
	}
}

func TestStore_FindLatestIgnoresOtherOperations(t *testing.T) {
	store := NewStore(t.TempDir())

	mine := New("op_a", []string{"x"}, nil)
	other := New("op_b", []string{"y"}, nil)
	if err := store.Save(mine); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(other); err != nil {
		t.Fatal(err)
	}

	got, err := store.FindLatest("op_a")
	if err != nil {
		t.Fatalf("FindLatest() error = %v", err)
	}
	if got == nil || got.OperationID != "op_a" {
		t.Errorf("FindLatest() = %v, want op_a checkpoint", got)
	}
}

func TestStore_SaveCreatesDir(t *testing.T) {
	dir := t.TempDir() + "/nested/checkpoints"
	store := NewStore(dir)

	cp := New("op", nil, []string{"n1"})
	if err := store.Save(cp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.FindLatest("op")
	if err != nil || got == nil {
		t.Fatalf("FindLatest() = %v, %v", got, err)
	}
}
