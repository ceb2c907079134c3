// Package realtime pushes committed reservation events to connected staff
// screens over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/iliyamo/restaurant-table-reservation/internal/logger"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
)

// Message is the frame written to every subscriber.
type Message struct {
	Topic string                 `json:"topic"`
	Event queue.ReservationEvent `json:"event"`
}

// TopicFor is the topic an event is broadcast on: one per service date.
func TopicFor(date string) string { return "reservations." + date }

// Hub fans events out to clients.  A client subscribes to one date topic
// or, with no date, to everything.  Slow clients whose buffer is full are
// dropped rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
	global map[*Client]struct{}
	log    *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		topics: make(map[string]map[*Client]struct{}),
		global: make(map[*Client]struct{}),
		log:    log,
	}
}

// Attach registers c for topic, or for every topic when topic is empty.
func (h *Hub) Attach(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.topic = topic
	if topic == "" {
		h.global[c] = struct{}{}
	} else {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[*Client]struct{})
		}
		h.topics[topic][c] = struct{}{}
	}
	h.log.Debug(h.log.WithFields(context.Background(), map[string]any{"actor": c.actorID, "topic": topic}), "ws client attached")
}

func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
}

func (h *Hub) detachLocked(c *Client) {
	if subs, ok := h.topics[c.topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, c.topic)
		}
	}
	delete(h.global, c)
	c.close()
}

// Clients reports how many clients are attached.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.global)
	for _, subs := range h.topics {
		n += len(subs)
	}
	return n
}

// Publish broadcasts ev to its date topic and to global subscribers.  It
// never blocks on a client.  Sends happen under the read lock so a client
// cannot be closed mid-send.
func (h *Hub) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	topic := TopicFor(ev.Date)
	data, err := json.Marshal(Message{Topic: topic, Event: ev})
	if err != nil {
		return err
	}

	var slow []*Client
	h.mu.RLock()
	deliver := func(c *Client) {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	for c := range h.topics[topic] {
		deliver(c)
	}
	for c := range h.global {
		deliver(c)
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn(h.log.WithField(ctx, "actor", c.actorID), "ws send buffer full, dropping client")
		h.Detach(c)
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.topics {
		for c := range subs {
			h.detachLocked(c)
		}
	}
	for c := range h.global {
		h.detachLocked(c)
	}
}
