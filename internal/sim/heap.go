package sim

import "container/heap"

// WaitingHeap is a min-heap over (leavingCycle, payload), grounded on
// satacc/wating_task.rs's WaitingTask<T>. Used by caches (keyed by tag in
// WithFixedLatency, by request in WithDRAM) and the mesh ICNT (keyed by message) to hold in-flight latencies.
type WaitingHeap[T any] struct {
	items waitingItems[T]
}

type waitingItem[T any] struct {
	task         T
	leavingCycle uint64
}

type waitingItems[T any] []waitingItem[T]

func (h waitingItems[T]) Len() int            { return len(h) }
func (h waitingItems[T]) Less(i, j int) bool  { return h[i].leavingCycle < h[j].leavingCycle }
func (h waitingItems[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *waitingItems[T]) Push(x any)         { *h = append(*h, x.(waitingItem[T])) }
func (h *waitingItems[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func NewWaitingHeap[T any]() *WaitingHeap[T] {
	return &WaitingHeap[T]{}
}

func (w *WaitingHeap[T]) Push(task T, leavingCycle uint64) {
	heap.Push(&w.items, waitingItem[T]{task: task, leavingCycle: leavingCycle})
}

// Pop removes and returns the minimum-leaving-cycle entry.
func (w *WaitingHeap[T]) Pop() (leavingCycle uint64, task T, ok bool) {
	if len(w.items) == 0 {
		return 0, task, false
	}
	item := heap.Pop(&w.items).(waitingItem[T])
	return item.leavingCycle, item.task, true
}

func (w *WaitingHeap[T]) Peek() (leavingCycle uint64, task T, ok bool) {
	if len(w.items) == 0 {
		return 0, task, false
	}
	return w.items[0].leavingCycle, w.items[0].task, true
}

func (w *WaitingHeap[T]) Len() int      { return len(w.items) }
func (w *WaitingHeap[T]) IsEmpty() bool { return len(w.items) == 0 }
