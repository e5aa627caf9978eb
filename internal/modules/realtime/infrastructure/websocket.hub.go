package infrastructure

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

const defaultSendBuffer = 64

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithSendBuffer sets the per-connection outgoing queue length.
func WithSendBuffer(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.sendBuffer = size
		}
	}
}

// WithInvocationRate limits how many hub methods a single client may invoke.
// A zero limit disables rate limiting.
func WithInvocationRate(limit float64, burst int) HubOption {
	return func(h *Hub) {
		if limit <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		h.invocationRate = rate.Limit(limit)
		h.invocationBurst = burst
	}
}

// Hub owns the live connections of one named hub together with its group
// registry, lifecycle tracker and invocation processor.
type Hub struct {
	name            string
	registry        *GroupRegistry
	lifecycle       *LifecycleTracker
	invocations     *InvocationProcessor
	sendBuffer      int
	invocationRate  rate.Limit
	invocationBurst int

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(name string, opts ...HubOption) *Hub {
	registry := NewGroupRegistry(name)
	h := &Hub{
		name:        name,
		registry:    registry,
		lifecycle:   NewLifecycleTracker(name, registry),
		invocations: NewInvocationProcessor(name),
		sendBuffer:  defaultSendBuffer,
		clients:     make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Name() string                      { return h.name }
func (h *Hub) Registry() *GroupRegistry          { return h.registry }
func (h *Hub) Invocations() *InvocationProcessor { return h.invocations }

// AttachClient registers c as a live connection. It starts in no topic.
func (h *Hub) AttachClient(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.lifecycle.OnConnect(c.id)
}

func (h *Hub) detachClient(c *Client, cause error) {
	h.mu.Lock()
	existing, ok := h.clients[c.id]
	if ok && existing == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	if !ok || existing != c {
		return
	}
	c.close()
	h.lifecycle.OnDisconnect(c.id, cause)
}

// dropLateMemberships removes topics joined by c after it was detached.
func (h *Hub) dropLateMemberships(c *Client) {
	h.mu.RLock()
	_, attached := h.clients[c.id]
	h.mu.RUnlock()
	if attached {
		return
	}
	h.registry.RemoveConnection(c.id)
}

// ConnectionIDs returns the ids of every attached connection.
func (h *Hub) ConnectionIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// ConnectionCount returns the number of attached connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues data for one connection without blocking. A connection whose
// queue is full is detached so it cannot hold back other recipients.
func (h *Hub) Send(connectionID string, data []byte) error {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownConnection, connectionID)
	}
	if err := c.enqueue(data); err != nil {
		if err == errSendBufferFull {
			slog.Warn("websocket send buffer full", slog.String("hub", h.name), slog.String("connectionId", connectionID))
			go h.detachClient(c, err)
		}
		return err
	}
	return nil
}

// Shutdown detaches every connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.detachClient(c, nil)
	}
	slog.Info("hub shut down", slog.String("hub", h.name), slog.Int("connections", len(clients)))
}

var _ port.ConnectionDirectory = (*Hub)(nil)
