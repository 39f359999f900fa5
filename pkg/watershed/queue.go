package watershed

import "container/heap"

// entry is one pending pixel of the flood, keyed by its own intensity.
type entry struct {
	key   float64
	index int
}

// entryHeap orders entries by ascending key, then ascending linear index,
// so equal-intensity pixels leave the queue in scan order.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].index < h[j].index
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// floodQueue is the min-priority queue consumed by the flooding loop.
type floodQueue struct {
	h entryHeap
}

func newFloodQueue(capacity int) *floodQueue {
	return &floodQueue{h: make(entryHeap, 0, capacity)}
}

func (q *floodQueue) push(key float64, index int) { heap.Push(&q.h, entry{key: key, index: index}) }

func (q *floodQueue) pop() entry { return heap.Pop(&q.h).(entry) }

// top returns the lowest pending entry without removing it. The queue must
// not be empty.
func (q *floodQueue) top() entry { return q.h[0] }

func (q *floodQueue) size() int { return len(q.h) }
