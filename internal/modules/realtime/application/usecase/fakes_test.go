package usecase

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

type fakeRegistry struct {
	mu     sync.Mutex
	topics map[string]map[string]struct{}
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{topics: make(map[string]map[string]struct{})}
}

func (r *fakeRegistry) Join(topic, connectionID string) error {
	if !domain.ValidTopic(topic) {
		return domain.ErrInvalidTopic
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.topics[topic] == nil {
		r.topics[topic] = make(map[string]struct{})
	}
	r.topics[topic][connectionID] = struct{}{}
	return nil
}

func (r *fakeRegistry) Leave(topic, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.topics[topic], connectionID)
}

func (r *fakeRegistry) Subscribers(topic string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.topics[topic]))
	for id := range r.topics[topic] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *fakeRegistry) RemoveConnection(connectionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for _, members := range r.topics {
		if _, ok := members[connectionID]; ok {
			delete(members, connectionID)
			removed++
		}
	}
	return removed
}

var errConnectionGone = errors.New("connection gone")

// fakeDirectory records every frame per connection. Connections listed in
// failing reject writes.
type fakeDirectory struct {
	mu      sync.Mutex
	ids     []string
	failing map[string]bool
	frames  map[string][][]byte
}

func newFakeDirectory(ids ...string) *fakeDirectory {
	return &fakeDirectory{ids: ids, failing: make(map[string]bool), frames: make(map[string][][]byte)}
}

func (d *fakeDirectory) ConnectionIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

func (d *fakeDirectory) Send(connectionID string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failing[connectionID] {
		return errConnectionGone
	}
	d.frames[connectionID] = append(d.frames[connectionID], append([]byte(nil), data...))
	return nil
}

type decodedMessage struct {
	Hub       string            `json:"hub"`
	Topic     string            `json:"topic"`
	Event     string            `json:"event"`
	Arguments []json.RawMessage `json:"arguments"`
}

func (d *fakeDirectory) messages(t *testing.T, connectionID string) []decodedMessage {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]decodedMessage, 0, len(d.frames[connectionID]))
	for _, frame := range d.frames[connectionID] {
		var msg decodedMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

func (d *fakeDirectory) events(t *testing.T, connectionID string) []string {
	t.Helper()
	msgs := d.messages(t, connectionID)
	events := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, msg.Event)
	}
	return events
}
