package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Toast is a user-facing achievement notification.
type Toast struct {
	ID          string    `json:"id"`
	Slot        string    `json:"slot"`
	Achievement string    `json:"achievement"`
	Title       string    `json:"title"`
	At          time.Time `json:"at"`
}

// Sink accepts toasts without blocking. It reports false when the toast was
// dropped.
type Sink interface {
	Push(t Toast) bool
}

// Queue is a bounded in-process toast buffer.
type Queue struct {
	ch      chan Toast
	dropped atomic.Int64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{ch: make(chan Toast, size)}
}

func (q *Queue) Push(t Toast) bool {
	select {
	case q.ch <- t:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

func (q *Queue) C() <-chan Toast {
	return q.ch
}

// Drain empties the queue without waiting.
func (q *Queue) Drain() []Toast {
	var out []Toast
	for {
		select {
		case t := <-q.ch:
			out = append(out, t)
		default:
			return out
		}
	}
}

func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Hub fans toasts out to every subscriber. Slow subscribers lose toasts
// rather than stall the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[*Queue]string
	size int
}

func NewHub(buffer int) *Hub {
	return &Hub{subs: map[*Queue]string{}, size: buffer}
}

// Subscribe registers a queue for one slot, or every slot when slot is empty.
// The returned func unsubscribes.
func (h *Hub) Subscribe(slot string) (*Queue, func()) {
	q := NewQueue(h.size)
	h.mu.Lock()
	h.subs[q] = slot
	h.mu.Unlock()
	return q, func() {
		h.mu.Lock()
		delete(h.subs, q)
		h.mu.Unlock()
	}
}

func (h *Hub) Push(t Toast) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := false
	for q, slot := range h.subs {
		if slot != "" && slot != t.Slot {
			continue
		}
		if q.Push(t) {
			delivered = true
		}
	}
	return delivered
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// SlotNotifier adapts a Sink to the engine's achievement callback.
type SlotNotifier struct {
	Slot  string
	Sink  Sink
	Title func(id string) string
	Now   func() time.Time
}

func (n SlotNotifier) AchievementUnlocked(id string) {
	if n.Sink == nil {
		return
	}
	title := id
	if n.Title != nil {
		title = n.Title(id)
	}
	now := time.Now().UTC()
	if n.Now != nil {
		now = n.Now()
	}
	n.Sink.Push(Toast{
		ID:          uuid.NewString(),
		Slot:        n.Slot,
		Achievement: id,
		Title:       title,
		At:          now,
	})
}

// Multi pushes to several sinks.
type Multi []Sink

func (m Multi) Push(t Toast) bool {
	ok := false
	for _, s := range m {
		if s != nil && s.Push(t) {
			ok = true
		}
	}
	return ok
}
