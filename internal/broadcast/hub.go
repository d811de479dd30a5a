package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"water_monitor/internal/logger"
	"water_monitor/internal/metrics"
)

const defaultClientBuffer = 32

// Envelope is the wire format of every realtime message.
type Envelope struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	TS   time.Time `json:"ts"`
}

// Publisher is anything that can push an event to subscribers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) bool
}

func encode(eventType string, payload any, now time.Time) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, Data: payload, TS: now.UTC()})
}

// Subscription is one subscriber's message queue. C is closed when the
// subscriber is dropped or unsubscribes.
type Subscription struct {
	hub  *Hub
	send chan []byte
}

// C yields encoded envelopes.
func (s *Subscription) C() <-chan []byte { return s.send }

// Close detaches the subscription from the hub. Safe to call more than once.
func (s *Subscription) Close() { s.hub.remove(s, false) }

// Hub fans events out to in-process subscribers (websocket clients). Publish
// never blocks: a subscriber whose queue is full is disconnected.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	bufSize int
	now     func() time.Time
	log     *logger.Logger
}

var _ Publisher = (*Hub)(nil)

func NewHub(bufSize int, log *logger.Logger) *Hub {
	if bufSize <= 0 {
		bufSize = defaultClientBuffer
	}
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		bufSize: bufSize,
		now:     time.Now,
		log:     logger.OrNop(log),
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{hub: h, send: make(chan []byte, h.bufSize)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.WebsocketClients.Set(float64(n))
	return s
}

// Len returns the number of current subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish reports whether at least one subscriber queued the event.
func (h *Hub) Publish(ctx context.Context, eventType string, payload any) bool {
	msg, err := encode(eventType, payload, h.now())
	if err != nil {
		h.log.Errorw("broadcast_encode_failed", "event", eventType, "err", err)
		return false
	}

	h.mu.Lock()
	delivered := false
	var slow []*Subscription
	for s := range h.subs {
		select {
		case s.send <- msg:
			delivered = true
		default:
			slow = append(slow, s)
		}
	}
	h.mu.Unlock()

	for _, s := range slow {
		h.remove(s, true)
	}
	return delivered
}

func (h *Hub) remove(s *Subscription, slow bool) {
	h.mu.Lock()
	if _, ok := h.subs[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, s)
	close(s.send)
	n := len(h.subs)
	h.mu.Unlock()

	metrics.WebsocketClients.Set(float64(n))
	if slow {
		metrics.WebsocketDropsTotal.Inc()
		h.log.Warnw("broadcast_slow_subscriber_dropped", "remaining", n)
	}
}
