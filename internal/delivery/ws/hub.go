package ws

import (
	"encoding/json"
	"sync"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/metrics"
	"github.com/Vovarama1992/voicenotes/internal/ports"
)

// Subscriber receives serialized events. Deliver must not block; an error
// means the subscriber is gone and it will be dropped from the hub.
type Subscriber interface {
	Deliver(payload []byte) error
	Close()
}

// Hub is the live-channel event bus. Every broadcast goes to all current
// subscribers; one failing subscriber never affects the others.
type Hub struct {
	metrics *metrics.Metrics
	log     *logger.ZapLogger

	mu   sync.RWMutex
	subs map[Subscriber]struct{}
}

var _ ports.EventPublisher = (*Hub)(nil)

func NewHub(m *metrics.Metrics, log *logger.ZapLogger) *Hub {
	return &Hub{
		metrics: m,
		log:     log,
		subs:    make(map[Subscriber]struct{}),
	}
}

func (h *Hub) Subscribe(sub Subscriber) {
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	h.metrics.SetSubscribers(n)
	h.log.Log(logger.LogEntry{
		Level:   "debug",
		Message: "hub subscribe",
		Fields:  map[string]any{"subscribers": n},
	})
}

// Unsubscribe removes and closes sub. Unknown subscribers are ignored.
func (h *Hub) Unsubscribe(sub Subscriber) {
	if h.remove(sub) {
		h.log.Log(logger.LogEntry{
			Level:   "debug",
			Message: "hub unsubscribe",
			Fields:  map[string]any{"subscribers": h.Len()},
		})
	}
}

func (h *Hub) Broadcast(ev ports.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "event marshal failed",
			Error:   err,
			Fields:  map[string]any{"type": string(ev.EventType())},
		})
		return
	}
	h.metrics.RecordBroadcast(string(ev.EventType()))

	h.mu.RLock()
	snapshot := make([]Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	for _, sub := range snapshot {
		if err := sub.Deliver(payload); err != nil {
			if h.remove(sub) {
				h.metrics.RecordSubscriberPruned()
				h.log.Log(logger.LogEntry{
					Level:   "debug",
					Message: "hub pruned subscriber",
					Error:   err,
					Fields:  map[string]any{"type": string(ev.EventType())},
				})
			}
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(sub Subscriber) bool {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	n := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return false
	}
	sub.Close()
	h.metrics.SetSubscribers(n)
	return true
}
