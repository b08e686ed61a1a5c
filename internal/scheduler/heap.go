package scheduler

import (
	"container/heap"
	"time"
)

// fireEvent is a pending schedule occurrence in the scheduler heap. The
// heap is in-memory only and rebuilt from the store on daemon restart.
type fireEvent struct {
	// ID is the schedule this occurrence belongs to.
	ID int64
	// TriggerAt is the wall-clock time the schedule should fire.
	TriggerAt time.Time
	// Cron is the schedule's expression, used to compute the occurrence
	// after this one.
	Cron string
}

// fireHeap implements container/heap.Interface for fireEvent, sorted by
// TriggerAt (earliest first — min-heap).
type fireHeap []fireEvent

func (h fireHeap) Len() int           { return len(h) }
func (h fireHeap) Less(i, j int) bool { return h[i].TriggerAt.Before(h[j].TriggerAt) }
func (h fireHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *fireHeap) Push(x any) {
	*h = append(*h, x.(fireEvent))
}

func (h *fireHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPush adds an event to the heap, maintaining the heap invariant.
func heapPush(h *fireHeap, e fireEvent) {
	heap.Push(h, e)
}

// heapPop removes and returns the event with the earliest TriggerAt.
// Panics if the heap is empty.
func heapPop(h *fireHeap) fireEvent {
	return heap.Pop(h).(fireEvent)
}

// heapRemoveByID removes the first event with the given schedule id.
// Returns true if an event was found and removed.
func heapRemoveByID(h *fireHeap, id int64) bool {
	for i, e := range *h {
		if e.ID == id {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
