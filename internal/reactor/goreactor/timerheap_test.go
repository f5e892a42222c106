package goreactor

import (
	"container/heap"
	"testing"
	"time"
)

func TestTimerHeapOrdersByDeadline(t *testing.T) {
	now := time.Now()
	var h timerHeap
	heap.Init(&h)

	heap.Push(&h, &timerEntry{id: 1, deadline: now.Add(3 * time.Second)})
	heap.Push(&h, &timerEntry{id: 2, deadline: now.Add(1 * time.Second)})
	heap.Push(&h, &timerEntry{id: 3, deadline: now.Add(2 * time.Second)})

	var order []uint64
	for h.Len() > 0 {
		order = append(order, heap.Pop(&h).(*timerEntry).id)
	}

	want := []uint64{2, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("got %d entries, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("pop order[%d] = %d, want %d (full order %v)", i, order[i], want[i], order)
		}
	}
}

func TestTimerHeapRemoveByID(t *testing.T) {
	now := time.Now()
	var h timerHeap
	heap.Init(&h)

	heap.Push(&h, &timerEntry{id: 1, deadline: now.Add(1 * time.Second)})
	heap.Push(&h, &timerEntry{id: 2, deadline: now.Add(2 * time.Second)})
	heap.Push(&h, &timerEntry{id: 3, deadline: now.Add(3 * time.Second)})

	h.removeByID(2)

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 after removing one entry", h.Len())
	}
	for _, e := range h {
		if e.id == 2 {
			t.Fatal("removeByID(2) left id 2 in the heap")
		}
	}
}

func TestTimerHeapRemoveByIDMissingIsNoop(t *testing.T) {
	var h timerHeap
	heap.Init(&h)
	heap.Push(&h, &timerEntry{id: 1, deadline: time.Now()})

	h.removeByID(999) // Never existed; must not panic or corrupt the heap

	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (unaffected by removing an unknown id)", h.Len())
	}
}
