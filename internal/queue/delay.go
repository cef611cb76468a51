package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/roms-labs/ingest-svc/internal/service/models/message"
)

// delayHeap orders messages by release time. Ties are broken by insertion
// order so that equal release times keep FIFO behavior.
type delayHeap struct {
	mu    sync.Mutex
	items delayItems
	seq   uint64
}

type delayItem struct {
	msg         message.InboundMessage
	availableAt time.Time
	seq         uint64
}

type delayItems []delayItem

func (d delayItems) Len() int { return len(d) }

func (d delayItems) Less(i, j int) bool {
	if d[i].availableAt.Equal(d[j].availableAt) {
		return d[i].seq < d[j].seq
	}

	return d[i].availableAt.Before(d[j].availableAt)
}

func (d delayItems) Swap(i, j int) { d[i], d[j] = d[j], d[i] }

func (d *delayItems) Push(x any) {
	*d = append(*d, x.(delayItem))
}

func (d *delayItems) Pop() any {
	old := *d
	n := len(old)
	item := old[n-1]
	*d = old[:n-1]

	return item
}

func newDelayHeap() *delayHeap {
	return &delayHeap{}
}

func (h *delayHeap) push(msg message.InboundMessage, availableAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	heap.Push(&h.items, delayItem{
		msg:         msg,
		availableAt: availableAt,
		seq:         h.seq,
	})
}

// popDue removes the earliest message whose release time has passed.
func (h *delayHeap) popDue(now time.Time) (message.InboundMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == 0 || h.items[0].availableAt.After(now) {
		return message.InboundMessage{}, false
	}

	item := heap.Pop(&h.items).(delayItem)

	return item.msg, true
}

// nextFireTime returns the earliest release time in the heap.
func (h *delayHeap) nextFireTime() (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == 0 {
		return time.Time{}, false
	}

	return h.items[0].availableAt, true
}

func (h *delayHeap) drain() []message.InboundMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := make([]message.InboundMessage, 0, len(h.items))
	for len(h.items) > 0 {
		item := heap.Pop(&h.items).(delayItem)
		msgs = append(msgs, item.msg)
	}

	return msgs
}

func (h *delayHeap) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.items)
}
