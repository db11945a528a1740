package util

import "testing"

func TestRingBufferUnderCapacity(t *testing.T) {
	r := NewRingBuffer[int](4)
	r.Push(1)
	r.Push(2)

	got := r.Snapshot()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("snapshot = %v", got)
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	r := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	got := r.Snapshot()
	if len(got) != 3 || got[0] != 3 || got[1] != 4 || got[2] != 5 {
		t.Fatalf("snapshot = %v, want [3 4 5]", got)
	}
}

func TestRingBufferEmpty(t *testing.T) {
	r := NewRingBuffer[string](2)
	if got := r.Snapshot(); len(got) != 0 {
		t.Fatalf("snapshot = %v, want empty", got)
	}
}

func TestRingBufferSnapshotIsCopy(t *testing.T) {
	r := NewRingBuffer[int](2)
	r.Push(1)
	snap := r.Snapshot()
	snap[0] = 99
	if got := r.Snapshot(); got[0] != 1 {
		t.Fatalf("buffer mutated through snapshot: %v", got)
	}
}
