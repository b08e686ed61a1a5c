package scheduler

import (
	"testing"
	"time"
)

func TestHeapPushPopOrdering(t *testing.T) {
	h := &fireHeap{}

	t1 := time.Now().Add(3 * time.Hour)
	t2 := time.Now().Add(1 * time.Hour)
	t3 := time.Now().Add(2 * time.Hour)

	heapPush(h, fireEvent{ID: 3, TriggerAt: t1})
	heapPush(h, fireEvent{ID: 1, TriggerAt: t2})
	heapPush(h, fireEvent{ID: 2, TriggerAt: t3})

	// Pops come back in ascending TriggerAt order (min-heap)
	for _, want := range []int64{1, 2, 3} {
		if got := heapPop(h).ID; got != want {
			t.Errorf("expected id %d, got %d", want, got)
		}
	}
}

func TestHeapDuplicateTriggerTimes(t *testing.T) {
	h := &fireHeap{}
	sameTime := time.Now().Add(1 * time.Hour)

	heapPush(h, fireEvent{ID: 1, TriggerAt: sameTime})
	heapPush(h, fireEvent{ID: 2, TriggerAt: sameTime})
	heapPush(h, fireEvent{ID: 3, TriggerAt: sameTime})

	if h.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", h.Len())
	}

	// All three pop without error; any order is valid for equal times
	seen := map[int64]bool{}
	for h.Len() > 0 {
		e := heapPop(h)
		if seen[e.ID] {
			t.Errorf("duplicate pop for id %d", e.ID)
		}
		seen[e.ID] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 distinct items, got %d", len(seen))
	}
}

func TestHeapRemoveByID(t *testing.T) {
	h := &fireHeap{}

	heapPush(h, fireEvent{ID: 1, TriggerAt: time.Now().Add(1 * time.Hour)})
	heapPush(h, fireEvent{ID: 2, TriggerAt: time.Now().Add(2 * time.Hour)})
	heapPush(h, fireEvent{ID: 3, TriggerAt: time.Now().Add(3 * time.Hour)})

	if !heapRemoveByID(h, 2) {
		t.Error("expected removal to succeed")
	}
	if h.Len() != 2 {
		t.Errorf("expected 2 items after removal, got %d", h.Len())
	}
	if first := heapPop(h); first.ID != 1 {
		t.Errorf("expected id 1, got %d", first.ID)
	}
	if second := heapPop(h); second.ID != 3 {
		t.Errorf("expected id 3, got %d", second.ID)
	}
}

func TestHeapRemoveByIDNotFound(t *testing.T) {
	h := &fireHeap{}
	heapPush(h, fireEvent{ID: 1, TriggerAt: time.Now()})

	if heapRemoveByID(h, 99) {
		t.Error("expected removal to fail for unknown id")
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 item to remain, got %d", h.Len())
	}
}
