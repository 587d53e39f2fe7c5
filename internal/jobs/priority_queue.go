package jobs

import (
	"container/heap"
	"errors"
	"sync"
)

// ErrNilWorkUnit is returned when attempting to push a nil work unit.
var ErrNilWorkUnit = errors.New("cannot push nil work unit")

// Priority levels for work units.
// Higher values are processed first.
const (
	PriorityLow    = 0  // Background/optional operations
	PriorityNormal = 10 // Per-question recognition (header, objective, subjective)
	PriorityHigh   = 20 // Schedule-level operations (decompose, match, result, adjudication retries)
)

// PriorityForStage returns the appropriate priority for a given stage or item key.
// Schedule-level operations get PriorityHigh so a schedule waiting on a structural
// step is never starved behind a backlog of per-question recognition units.
// This function handles both exact matches and prefix-based patterns.
func PriorityForStage(stageOrKey string) int {
	// Check exact matches first (most common)
	switch stageOrKey {
	// Schedule-level operations - high priority
	case "decompose", "match", "result", "stats", "adjudicate":
		return PriorityHigh

	// Per-question recognition - normal priority
	case "header", "objective", "subjective":
		return PriorityNormal
	}

	// Check prefix patterns for dynamic keys
	if len(stageOrKey) >= 4 {
		switch {
		// Schedule-level prefixes - high priority
		case hasPrefix(stageOrKey, "split_"),
			hasPrefix(stageOrKey, "stats_"),
			hasPrefix(stageOrKey, "adjudicate_"):
			return PriorityHigh

		// Per-paper prefixes - normal priority
		case hasPrefix(stageOrKey, "paper_"),
			hasPrefix(stageOrKey, "question_"):
			return PriorityNormal
		}
	}

	// Default to normal
	return PriorityNormal
}

// hasPrefix is a simple helper to avoid importing strings package.
func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// PriorityQueue is a thread-safe priority queue for work units.
// Work units with higher Priority values are dequeued first.
// When priorities are equal, work units are processed in FIFO order.
type PriorityQueue struct {
	mu     sync.Mutex
	items  workUnitHeap
	seq    uint64        // Sequence number for FIFO ordering within same priority
	notify chan struct{} // Signaled when items are pushed
}

// NewPriorityQueue creates a new priority queue.
func NewPriorityQueue() *PriorityQueue {
	pq := &PriorityQueue{
		items:  make(workUnitHeap, 0),
		notify: make(chan struct{}, 1), // Buffered to avoid blocking Push
	}
	heap.Init(&pq.items)
	return pq
}

// Push adds a work unit to the queue.
// Returns an error if unit is nil.
func (pq *PriorityQueue) Push(unit *WorkUnit) error {
	if unit == nil {
		return ErrNilWorkUnit
	}

	pq.mu.Lock()
	pq.seq++
	item := &workUnitItem{
		unit: unit,
		seq:  pq.seq,
	}
	heap.Push(&pq.items, item)
	pq.mu.Unlock()

	// Signal waiting consumers (non-blocking)
	select {
	case pq.notify <- struct{}{}:
	default:
		// Channel already has a pending notification
	}
	return nil
}

// Pop removes and returns the highest priority work unit.
// Blocks until an item is available or the done channel is closed.
// Returns nil if done is closed while waiting.
func (pq *PriorityQueue) Pop(done <-chan struct{}) *WorkUnit {
	for {
		// Try to get an item
		pq.mu.Lock()
		if pq.items.Len() > 0 {
			item := heap.Pop(&pq.items).(*workUnitItem)
			pq.mu.Unlock()
			return item.unit
		}
		pq.mu.Unlock()

		// Wait for notification or cancellation
		select {
		case <-done:
			return nil
		case <-pq.notify:
			// Item may have been pushed, loop to check
		}
	}
}

// TryPop attempts to pop without blocking.
// Returns nil if queue is empty.
func (pq *PriorityQueue) TryPop() *WorkUnit {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if pq.items.Len() == 0 {
		return nil
	}

	item := heap.Pop(&pq.items).(*workUnitItem)
	return item.unit
}

// Len returns the number of items in the queue.
func (pq *PriorityQueue) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.items.Len()
}

// Stats returns queue statistics by priority level.
func (pq *PriorityQueue) Stats() PriorityQueueStats {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	stats := PriorityQueueStats{
		Total: pq.items.Len(),
	}

	for _, item := range pq.items {
		switch {
		case item.unit.Priority >= PriorityHigh:
			stats.High++
		case item.unit.Priority >= PriorityNormal:
			stats.Normal++
		default:
			stats.Low++
		}
	}

	return stats
}

// PriorityQueueStats reports queue depth by priority level.
type PriorityQueueStats struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Normal int `json:"normal"`
	Low    int `json:"low"`
}

// workUnitItem wraps a WorkUnit with sequence number for heap ordering.
type workUnitItem struct {
	unit *WorkUnit
	seq  uint64 // For FIFO ordering within same priority
}

// workUnitHeap implements heap.Interface for work units.
// Higher priority items come first. Equal priorities use FIFO (lower seq first).
type workUnitHeap []*workUnitItem

func (h workUnitHeap) Len() int { return len(h) }

func (h workUnitHeap) Less(i, j int) bool {
	// Higher priority comes first (max-heap behavior)
	if h[i].unit.Priority != h[j].unit.Priority {
		return h[i].unit.Priority > h[j].unit.Priority
	}
	// Same priority: lower sequence number (earlier) comes first (FIFO)
	return h[i].seq < h[j].seq
}

func (h workUnitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *workUnitHeap) Push(x any) {
	*h = append(*h, x.(*workUnitItem))
}

func (h *workUnitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // Avoid memory leak
	*h = old[0 : n-1]
	return item
}
