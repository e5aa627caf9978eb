package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/usecase"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// IngestStreamHandler forwards events of one Kafka topic to the ingest router.
// Events without a hub inherit the hub the topic is bound to.
type IngestStreamHandler struct {
	kafkaTopic    string
	defaultHub    string
	allowedEvents map[string]struct{}
	router        *usecase.IngestRouter
}

func NewIngestStreamHandler(kafkaTopic, defaultHub string, allowedEvents []string, router *usecase.IngestRouter) *IngestStreamHandler {
	eventSet := make(map[string]struct{}, len(allowedEvents))
	for _, e := range allowedEvents {
		if v := strings.TrimSpace(strings.ToLower(e)); v != "" {
			eventSet[v] = struct{}{}
		}
	}
	return &IngestStreamHandler{
		kafkaTopic:    strings.TrimSpace(kafkaTopic),
		defaultHub:    domain.NormalizeHub(defaultHub),
		allowedEvents: eventSet,
		router:        router,
	}
}

func (h *IngestStreamHandler) Topic() string { return h.kafkaTopic }

// Handle routes the event. Unknown or malformed events are logged and dropped so
// one bad record does not stall the consumer.
func (h *IngestStreamHandler) Handle(ctx context.Context, event *domain.IngestEvent) error {
	if event == nil {
		return nil
	}
	if len(h.allowedEvents) > 0 {
		if _, ok := h.allowedEvents[strings.ToLower(strings.TrimSpace(event.Event))]; !ok {
			return nil
		}
	}
	if strings.TrimSpace(event.Hub) == "" {
		event.Hub = h.defaultHub
	}

	err := h.router.Route(ctx, event)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, usecase.ErrUnknownIngestEvent), errors.Is(err, usecase.ErrInvalidIngestPayload):
		slog.Warn("ingest-stream event dropped", slog.String("kafkaTopic", h.kafkaTopic), slog.String("hub", event.Hub), slog.String("event", event.Event), slog.Any("error", err))
		return nil
	default:
		return err
	}
}

var _ port.TopicHandler = (*IngestStreamHandler)(nil)
