package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Trace reports one executed frame, successful or not. Traces exist for
// observability only; the engine never blocks on a slow subscriber.
type Trace struct {
	Frame Frame
	Err   error
	Time  time.Time
}

// traceBuffer is the per-subscriber channel depth. A subscriber that falls
// further behind misses traces rather than stalling the bridge loop.
const traceBuffer = 16

type traceHub struct {
	mu          sync.Mutex
	subscribers map[string]chan Trace
}

func newTraceHub() *traceHub {
	return &traceHub{subscribers: make(map[string]chan Trace)}
}

func (h *traceHub) subscribe() (string, chan Trace) {
	id := uuid.NewString()
	ch := make(chan Trace, traceBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[id] = ch
	return id, ch
}

func (h *traceHub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

func (h *traceHub) publish(t Trace) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- t:
		default:
			// full channel: drop rather than block the bridge loop
		}
	}
}
