package broker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/infrastructure"
)

// StartKafkaConsumers runs one consumer per topic and blocks until ctx is done.
func StartKafkaConsumers(
	ctx context.Context,
	registry *infrastructure.HandlerRegistry,
	brokers []string,
	groupID string,
	topics []string,
) error {
	if len(brokers) == 0 || len(topics) == 0 {
		slog.Info("kafka consumers disabled", slog.Int("brokers", len(brokers)), slog.Int("topics", len(topics)))
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range topics {
		consumer := NewKafkaConsumer(brokers, groupID, topic)
		slog.Info("kafka consumer started", slog.String("topic", topic), slog.String("groupId", groupID))
		g.Go(func() error {
			return consumer.Consume(gctx, func(event *domain.IngestEvent) error {
				return registry.Dispatch(gctx, event)
			})
		})
	}
	return g.Wait()
}
