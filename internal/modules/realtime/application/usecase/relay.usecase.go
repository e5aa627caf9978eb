package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// RelayUseCase delivers notification envelopes to the connections of one hub.
// It never changes subscription state.
type RelayUseCase struct {
	hub       string
	registry  port.GroupRegistry
	directory port.ConnectionDirectory
	now       func() time.Time
}

func NewRelayUseCase(hub string, registry port.GroupRegistry, directory port.ConnectionDirectory) *RelayUseCase {
	return &RelayUseCase{hub: hub, registry: registry, directory: directory, now: time.Now}
}

// Hub returns the name of the hub the relay delivers to.
func (uc *RelayUseCase) Hub() string { return uc.hub }

// Broadcast delivers to every connection attached to the hub regardless of subscriptions.
func (uc *RelayUseCase) Broadcast(_ context.Context, event string, args ...any) error {
	msg := domain.NewMessage(uc.hub, domain.TopicAll, event, uc.now(), args...)
	return uc.deliver(msg, uc.directory.ConnectionIDs())
}

// SendToTopic delivers to the current subscribers of topic. A topic without
// subscribers is a silent no-op.
func (uc *RelayUseCase) SendToTopic(_ context.Context, topic, event string, args ...any) error {
	if !domain.ValidTopic(topic) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTopic, topic)
	}
	subscribers := uc.registry.Subscribers(topic)
	if len(subscribers) == 0 {
		slog.Debug("relay topic without subscribers", slog.String("hub", uc.hub), slog.String("topic", topic), slog.String("event", event))
		return nil
	}
	msg := domain.NewMessage(uc.hub, topic, event, uc.now(), args...)
	return uc.deliver(msg, subscribers)
}

// SendToTopics delivers to the union of the subscribers of topics. A connection
// joined to several of the topics receives the envelope once, tagged with the
// first matching topic.
func (uc *RelayUseCase) SendToTopics(_ context.Context, topics []string, event string, args ...any) error {
	for _, topic := range topics {
		if !domain.ValidTopic(topic) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidTopic, topic)
		}
	}
	at := uc.now()
	seen := make(map[string]struct{})
	for _, topic := range topics {
		subscribers := uc.registry.Subscribers(topic)
		recipients := make([]string, 0, len(subscribers))
		for _, id := range subscribers {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			recipients = append(recipients, id)
		}
		if len(recipients) == 0 {
			continue
		}
		msg := domain.NewMessage(uc.hub, topic, event, at, args...)
		if err := uc.deliver(msg, recipients); err != nil {
			return err
		}
	}
	return nil
}

// SendToMachineTopic builds the topic for kind and machineID and delegates to SendToTopic.
func (uc *RelayUseCase) SendToMachineTopic(ctx context.Context, kind domain.RelationKind, machineID domain.MachineID, event string, args ...any) error {
	topic := domain.MachineRelationTopic(kind, machineID)
	if topic == "" {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRelation, kind)
	}
	return uc.SendToTopic(ctx, topic, event, args...)
}

func (uc *RelayUseCase) deliver(msg *domain.Message, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("relay marshal error", slog.String("hub", uc.hub), slog.String("event", msg.Event), slog.Any("error", err))
		return fmt.Errorf("encode %s: %w", msg.Event, err)
	}

	failed := 0
	for _, id := range recipients {
		if err := uc.directory.Send(id, data); err != nil {
			failed++
			slog.Warn("relay delivery failed", slog.String("hub", uc.hub), slog.String("topic", msg.Topic), slog.String("event", msg.Event), slog.String("connectionId", id), slog.Any("error", fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, err)))
		}
	}
	slog.Debug("relay delivered", slog.String("hub", uc.hub), slog.String("topic", msg.Topic), slog.String("event", msg.Event), slog.Int("recipients", len(recipients)), slog.Int("failed", failed))
	return nil
}

var _ port.Relay = (*RelayUseCase)(nil)
