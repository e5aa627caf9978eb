package port

import (
	"context"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// GroupRegistry tracks which connections of a hub are subscribed to which topics.
type GroupRegistry interface {
	Join(topic, connectionID string) error
	Leave(topic, connectionID string)
	Subscribers(topic string) []string
	RemoveConnection(connectionID string) int
}

// ConnectionDirectory resolves connection ids to live transport connections.
// Send must not block on a slow connection.
type ConnectionDirectory interface {
	ConnectionIDs() []string
	Send(connectionID string, data []byte) error
}

// Relay is the send side of a hub used by domain services and the periodic publisher.
type Relay interface {
	Broadcast(ctx context.Context, event string, args ...any) error
	SendToTopic(ctx context.Context, topic, event string, args ...any) error
	SendToTopics(ctx context.Context, topics []string, event string, args ...any) error
	SendToMachineTopic(ctx context.Context, kind domain.RelationKind, machineID domain.MachineID, event string, args ...any) error
}
