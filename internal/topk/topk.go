// Package topk keeps the K largest-scoring vertex results seen so far,
// modeled directly on the teacher's utility/heap.VertexHeap plus
// master.go's getAllResults (build a heap of all results, pop the top 25).
// ElGA's client keeps a bounded version of the same structure instead of
// buffering every response: push is O(log K) and the heap never grows
// past K.
package topk

import "container/heap"

// Result is one scored vertex response (QUERY/workload reply).
type Result struct {
	Vertex uint64
	Score  float64
}

type minHeap []Result

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(Result)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// TopK retains the K highest-scoring Results pushed into it, evicting the
// current minimum once full (a bounded min-heap, so membership is O(log K)).
type TopK struct {
	k int
	h minHeap
}

func New(k int) *TopK {
	return &TopK{k: k}
}

// Push offers r for inclusion in the top K.
func (t *TopK) Push(r Result) {
	if t.k <= 0 {
		return
	}
	if len(t.h) < t.k {
		heap.Push(&t.h, r)
		return
	}
	if len(t.h) > 0 && r.Score > t.h[0].Score {
		t.h[0] = r
		heap.Fix(&t.h, 0)
	}
}

// Results drains the heap in descending score order.
func (t *TopK) Results() []Result {
	tmp := make(minHeap, len(t.h))
	copy(tmp, t.h)
	out := make([]Result, len(tmp))
	for i := len(tmp) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&tmp).(Result)
	}
	return out
}

func (t *TopK) Len() int { return len(t.h) }
