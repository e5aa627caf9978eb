package infrastructure

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

type topicMembers struct {
	mu          sync.RWMutex
	connections map[string]struct{}
}

// GroupRegistry keeps the live connection set of every topic of one hub.
// The topic table lock is only taken exclusively to create or drop a topic;
// membership changes lock the individual topic.
type GroupRegistry struct {
	hub string

	mu     sync.RWMutex
	topics map[string]*topicMembers

	// memberships is the reverse index used to purge a connection on disconnect.
	membershipsMu sync.Mutex
	memberships   map[string]map[string]struct{}
}

func NewGroupRegistry(hub string) *GroupRegistry {
	return &GroupRegistry{
		hub:         hub,
		topics:      make(map[string]*topicMembers),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Join adds connectionID to topic. Joining twice is the same as joining once.
func (r *GroupRegistry) Join(topic, connectionID string) error {
	if !domain.ValidTopic(topic) {
		return domain.ErrInvalidTopic
	}
	if strings.TrimSpace(connectionID) == "" {
		return domain.ErrUnknownConnection
	}

	r.mu.RLock()
	members, ok := r.topics[topic]
	if ok {
		members.mu.Lock()
		members.connections[connectionID] = struct{}{}
		members.mu.Unlock()
	}
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		members, ok = r.topics[topic]
		if !ok {
			members = &topicMembers{connections: make(map[string]struct{})}
			r.topics[topic] = members
		}
		members.mu.Lock()
		members.connections[connectionID] = struct{}{}
		members.mu.Unlock()
		r.mu.Unlock()
	}

	r.membershipsMu.Lock()
	if r.memberships[connectionID] == nil {
		r.memberships[connectionID] = make(map[string]struct{})
	}
	r.memberships[connectionID][topic] = struct{}{}
	r.membershipsMu.Unlock()

	slog.Debug("group join", slog.String("hub", r.hub), slog.String("topic", topic), slog.String("connectionId", connectionID))
	return nil
}

// Leave removes connectionID from topic. Leaving a topic the connection is not in is a no-op.
func (r *GroupRegistry) Leave(topic, connectionID string) {
	r.leave(topic, connectionID)

	r.membershipsMu.Lock()
	if topics, ok := r.memberships[connectionID]; ok {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(r.memberships, connectionID)
		}
	}
	r.membershipsMu.Unlock()
}

func (r *GroupRegistry) leave(topic, connectionID string) {
	r.mu.RLock()
	members, ok := r.topics[topic]
	empty := false
	if ok {
		members.mu.Lock()
		delete(members.connections, connectionID)
		empty = len(members.connections) == 0
		members.mu.Unlock()
	}
	r.mu.RUnlock()

	if empty {
		r.dropIfEmpty(topic)
	}
}

func (r *GroupRegistry) dropIfEmpty(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.topics[topic]
	if !ok {
		return
	}
	members.mu.RLock()
	empty := len(members.connections) == 0
	members.mu.RUnlock()
	if empty {
		delete(r.topics, topic)
	}
}

// Subscribers returns a sorted snapshot of the connections joined to topic.
func (r *GroupRegistry) Subscribers(topic string) []string {
	r.mu.RLock()
	members, ok := r.topics[topic]
	if !ok {
		r.mu.RUnlock()
		return []string{}
	}
	members.mu.RLock()
	ids := make([]string, 0, len(members.connections))
	for id := range members.connections {
		ids = append(ids, id)
	}
	members.mu.RUnlock()
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// RemoveConnection drops every membership held by connectionID and reports how many were removed.
func (r *GroupRegistry) RemoveConnection(connectionID string) int {
	r.membershipsMu.Lock()
	topics := r.memberships[connectionID]
	delete(r.memberships, connectionID)
	r.membershipsMu.Unlock()

	for topic := range topics {
		r.leave(topic, connectionID)
	}
	if len(topics) > 0 {
		slog.Debug("group memberships purged", slog.String("hub", r.hub), slog.String("connectionId", connectionID), slog.Int("topics", len(topics)))
	}
	return len(topics)
}

// TopicsOf returns the topics connectionID is currently joined to.
func (r *GroupRegistry) TopicsOf(connectionID string) []string {
	r.membershipsMu.Lock()
	topics := make([]string, 0, len(r.memberships[connectionID]))
	for topic := range r.memberships[connectionID] {
		topics = append(topics, topic)
	}
	r.membershipsMu.Unlock()
	sort.Strings(topics)
	return topics
}

// Topics returns the topics that currently have at least one subscriber.
func (r *GroupRegistry) Topics() []string {
	r.mu.RLock()
	topics := make([]string, 0, len(r.topics))
	for topic := range r.topics {
		topics = append(topics, topic)
	}
	r.mu.RUnlock()
	sort.Strings(topics)
	return topics
}

var _ port.GroupRegistry = (*GroupRegistry)(nil)
