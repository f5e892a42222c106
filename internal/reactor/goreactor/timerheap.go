package goreactor

import (
	"container/heap"
	"time"
)

// timerEntry is one pending ArmTimer call, ordered by deadline in a min-heap.
type timerEntry struct {
	id       uint64
	deadline time.Time
	handler  func()
	index    int // heap.Interface bookkeeping, maintained by Swap
}

// timerHeap implements container/heap.Interface, soonest deadline first.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	entry := x.(*timerEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return entry
}

// removeByID removes the entry with the given id, if still pending. No-op otherwise (already
// fired or never existed).
func (h *timerHeap) removeByID(id uint64) {
	for i, entry := range *h {
		if entry.id == id {
			heap.Remove(h, i)
			return
		}
	}
}
