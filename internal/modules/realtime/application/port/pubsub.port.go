package port

import (
	"context"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// PubSubPort consumes external domain events (Kafka).
type PubSubPort interface {
	Consume(ctx context.Context, handler func(*domain.IngestEvent) error) error
}

// TopicHandler is implemented by handlers registered per Kafka topic.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, event *domain.IngestEvent) error
}
