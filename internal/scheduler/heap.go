package scheduler

import (
	"container/heap"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// entry is the store-owned record of a pending alarm.
// It sits in two heaps at once: the global due heap and its group heap.
type entry struct {
	alarm alarm.Alarm

	// index is the position in the global due heap, -1 when detached.
	index int
	// groupIndex is the position in the group heap, -1 when detached.
	groupIndex int
}

// entryHeap is a min-heap of entries ordered by alarm.Before.
// setIndex keeps the per-heap position of every entry current so that
// heap.Remove and heap.Fix run in O(log n).
type entryHeap struct {
	items    []*entry
	setIndex func(e *entry, i int)
}

func newDueHeap() *entryHeap {
	return &entryHeap{
		setIndex: func(e *entry, i int) { e.index = i },
	}
}

func newGroupHeap() *entryHeap {
	return &entryHeap{
		setIndex: func(e *entry, i int) { e.groupIndex = i },
	}
}

func (h *entryHeap) Len() int { return len(h.items) }

func (h *entryHeap) Less(i, j int) bool {
	return h.items[i].alarm.Before(&h.items[j].alarm)
}

func (h *entryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.setIndex(h.items[i], i)
	h.setIndex(h.items[j], j)
}

func (h *entryHeap) Push(x any) {
	e, _ := x.(*entry)
	h.setIndex(e, len(h.items))
	h.items = append(h.items, e)
}

func (h *entryHeap) Pop() any {
	n := len(h.items)
	e := h.items[n-1]
	h.items[n-1] = nil // allow GC
	h.setIndex(e, -1)
	h.items = h.items[:n-1]

	return e
}

// peek returns the minimum entry without removing it.
func (h *entryHeap) peek() *entry {
	if len(h.items) == 0 {
		return nil
	}

	return h.items[0]
}

// remove detaches the entry at position i.
func (h *entryHeap) remove(i int) {
	heap.Remove(h, i)
}
