package catalog

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Hub fans snapshots out to subscribers. Each subscriber channel holds at
// most one pending snapshot; a newer one replaces it.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan State]struct{}
	latest State
	has    bool

	gauge prometheus.Gauge
}

func NewHub(gauge prometheus.Gauge) *Hub {
	return &Hub{
		subs:  make(map[chan State]struct{}),
		gauge: gauge,
	}
}

func (h *Hub) Subscribe(ctx context.Context, initial State) <-chan State {
	ch := make(chan State, 1)

	h.mu.Lock()
	if h.has && h.latest.Version > initial.Version {
		initial = h.latest
	}
	ch <- initial.Clone()
	h.subs[ch] = struct{}{}
	h.setGaugeLocked()
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.setGaugeLocked()
		h.mu.Unlock()
	}()

	return ch
}

// Publish delivers st to every subscriber. Snapshots older than the last
// published one are dropped.
func (h *Hub) Publish(st State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.has && st.Version <= h.latest.Version {
		return
	}
	h.latest = st.Clone()
	h.has = true

	for ch := range h.subs {
		next := st.Clone()
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) setGaugeLocked() {
	if h.gauge != nil {
		h.gauge.Set(float64(len(h.subs)))
	}
}
