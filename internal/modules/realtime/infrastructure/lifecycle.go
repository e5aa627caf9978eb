package infrastructure

import (
	"log/slog"
	"sync/atomic"
)

// MembershipPurger removes every topic membership of a connection.
type MembershipPurger interface {
	RemoveConnection(connectionID string) int
}

// LifecycleTracker observes connect and disconnect events of one hub and makes
// sure a detached connection does not linger as a subscriber.
type LifecycleTracker struct {
	hub       string
	purger    MembershipPurger
	connected atomic.Int64
}

func NewLifecycleTracker(hub string, purger MembershipPurger) *LifecycleTracker {
	return &LifecycleTracker{hub: hub, purger: purger}
}

// OnConnect records the attach. A new connection starts in zero topics.
func (t *LifecycleTracker) OnConnect(connectionID string) {
	count := t.connected.Add(1)
	slog.Info("hub client connected", slog.String("hub", t.hub), slog.String("connectionId", connectionID), slog.Int64("connections", count))
}

// OnDisconnect records the detach, distinguishing clean closes from errors, and
// purges the connection from every topic.
func (t *LifecycleTracker) OnDisconnect(connectionID string, cause error) {
	count := t.connected.Add(-1)
	purged := 0
	if t.purger != nil {
		purged = t.purger.RemoveConnection(connectionID)
	}
	if cause != nil {
		slog.Warn("hub client disconnected with error", slog.String("hub", t.hub), slog.String("connectionId", connectionID), slog.Int("topicsPurged", purged), slog.Int64("connections", count), slog.Any("error", cause))
		return
	}
	slog.Info("hub client disconnected", slog.String("hub", t.hub), slog.String("connectionId", connectionID), slog.Int("topicsPurged", purged), slog.Int64("connections", count))
}

// Connected returns the number of attached connections.
func (t *LifecycleTracker) Connected() int64 {
	return t.connected.Load()
}
