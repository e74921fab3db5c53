// Package ws is the realtime gateway: websocket clients watch doctors' queues
// and receive a fresh snapshot after every change.
package ws

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"medqueue/internal/models"
	"medqueue/internal/queue"
)

const broadcastBuffer = 256

// Hub tracks clients and the doctors they watch. The maps are only modified
// by the Run loop.
type Hub struct {
	// doctorID -> watching clients
	watchers map[uint]map[*Client]struct{}
	clients  map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	broadcast  chan delivery
	direct     chan delivery
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        zerolog.Logger
}

type subscription struct {
	client   *Client
	doctorID uint
	watch    bool
	// receives whether a watch added a new subscription; may be nil
	added chan<- bool
}

type delivery struct {
	client   *Client // set for direct replies
	doctorID uint
	payload  []byte
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		watchers:   make(map[uint]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		broadcast:  make(chan delivery, broadcastBuffer),
		direct:     make(chan delivery, broadcastBuffer),
		done:       make(chan struct{}),
		log:        logger.With().Str("component", "ws").Logger(),
	}
}

// Run processes hub events until ctx is cancelled. Every remaining client is
// disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			connectedClients.Inc()
		case c := <-h.unregister:
			h.drop(c)
		case s := <-h.subscribe:
			added := h.applySubscription(s)
			if s.added != nil {
				s.added <- added
			}
		case d := <-h.direct:
			h.deliverTo(d.client, d.payload)
		case d := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.watchers[d.doctorID]))
			for c := range h.watchers[d.doctorID] {
				targets = append(targets, c)
			}
			h.mu.RUnlock()
			for _, c := range targets {
				h.deliverTo(c, d.payload)
			}
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
	h.mu.RLock()
	remaining := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		remaining = append(remaining, c)
	}
	h.mu.RUnlock()
	for _, c := range remaining {
		h.drop(c)
	}
}

// deliverTo hands payload to a client. A client that cannot keep up is
// disconnected.
func (h *Hub) deliverTo(c *Client, payload []byte) {
	h.mu.RLock()
	_, ok := h.clients[c]
	h.mu.RUnlock()
	if !ok {
		droppedTotal.Inc()
		return
	}
	select {
	case c.send <- payload:
	default:
		droppedTotal.Inc()
		h.log.Warn().Str("client_id", c.ID).Msg("send buffer full, dropping client")
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for doctorID := range c.doctors {
		h.unwatchLocked(c, doctorID)
	}
	delete(h.clients, c)
	close(c.send)
	connectedClients.Dec()
}

func (h *Hub) applySubscription(s subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[s.client]; !ok {
		return false
	}
	if !s.watch {
		h.unwatchLocked(s.client, s.doctorID)
		return false
	}
	if _, ok := s.client.doctors[s.doctorID]; ok {
		return false
	}
	if h.watchers[s.doctorID] == nil {
		h.watchers[s.doctorID] = make(map[*Client]struct{})
	}
	h.watchers[s.doctorID][s.client] = struct{}{}
	s.client.doctors[s.doctorID] = struct{}{}
	return true
}

func (h *Hub) unwatchLocked(c *Client, doctorID uint) {
	delete(c.doctors, doctorID)
	if set, ok := h.watchers[doctorID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.watchers, doctorID)
		}
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Watch subscribes c to a doctor's queue. Broadcasts issued after Watch
// returns reach c.
func (h *Hub) Watch(c *Client, doctorID uint) {
	select {
	case h.subscribe <- subscription{client: c, doctorID: doctorID, watch: true}:
	case <-h.done:
	}
}

// WatchNew is Watch that also reports whether c was not already watching
// doctorID, so the caller can undo exactly what it added.
func (h *Hub) WatchNew(c *Client, doctorID uint) bool {
	added := make(chan bool, 1)
	select {
	case h.subscribe <- subscription{client: c, doctorID: doctorID, watch: true, added: added}:
	case <-h.done:
		return false
	}
	select {
	case ok := <-added:
		return ok
	case <-h.done:
		return false
	}
}

func (h *Hub) Unwatch(c *Client, doctorID uint) {
	select {
	case h.subscribe <- subscription{client: c, doctorID: doctorID}:
	case <-h.done:
	}
}

// Broadcast queues payload for every watcher of doctorID without blocking.
func (h *Hub) Broadcast(doctorID uint, payload []byte) {
	h.enqueue(h.broadcast, delivery{doctorID: doctorID, payload: payload})
}

// Send queues a reply for a single client without blocking.
func (h *Hub) Send(c *Client, payload []byte) {
	h.enqueue(h.direct, delivery{client: c, payload: payload})
}

func (h *Hub) enqueue(ch chan delivery, d delivery) {
	select {
	case <-h.done:
		droppedTotal.Inc()
		return
	default:
	}
	select {
	case ch <- d:
	default:
		droppedTotal.Inc()
		h.log.Warn().Uint("doctor_id", d.doctorID).Msg("hub buffer full, message dropped")
	}
}

// QueueUpdated implements queue.Notifier.
func (h *Hub) QueueUpdated(doctorID uint, snap queue.Snapshot) {
	payload, err := encode(EventQueueUpdated, "", QueueData{Queue: snap})
	if err != nil {
		h.log.Error().Err(err).Msg("encode queueUpdated")
		return
	}
	h.Broadcast(doctorID, payload)
}

// PatientCalled implements queue.Notifier.
func (h *Hub) PatientCalled(doctorID uint, entry models.QueueEntry) {
	payload, err := encode(EventPatientCalled, "", EntryData{Entry: &entry})
	if err != nil {
		h.log.Error().Err(err).Msg("encode patientCalled")
		return
	}
	h.Broadcast(doctorID, payload)
}

// WatchedDoctors lists the doctors with at least one watcher.
func (h *Hub) WatchedDoctors() []uint {
	h.mu.RLock()
	ids := make([]uint, 0, len(h.watchers))
	for id := range h.watchers {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h *Hub) WatcherCount(doctorID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[doctorID])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
