package infrastructure

import (
	"context"
	"log/slog"
	"sort"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// HandlerRegistry routes consumed events to the handler bound to their Kafka topic.
type HandlerRegistry struct {
	handlers map[string]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	r.handlers[h.Topic()] = h
}

// Topics lists the Kafka topics that have a handler.
func (r *HandlerRegistry) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

func (r *HandlerRegistry) Dispatch(ctx context.Context, event *domain.IngestEvent) error {
	if event == nil {
		return nil
	}
	if handler, ok := r.handlers[event.Source]; ok {
		return handler.Handle(ctx, event)
	}
	slog.Debug("no handler for kafka topic", slog.String("kafkaTopic", event.Source), slog.String("event", event.Event))
	return nil
}
