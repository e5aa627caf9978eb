package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// ErrUndecodableMessage is returned for Kafka records that carry no JSON payload.
var ErrUndecodableMessage = errors.New("undecodable kafka message")

const readRetryDelay = time.Second

type KafkaConsumer struct {
	reader *kafka.Reader
	now    func() time.Time
}

func NewKafkaConsumer(brokers []string, groupID string, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
		now: time.Now,
	}
}

// Consume reads records until ctx is cancelled. Handler errors are logged and
// the record is skipped.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(*domain.IngestEvent) error) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}
		event, err := decodeIngestEvent(m, c.now())
		if err != nil {
			slog.Warn("kafka message dropped",
				slog.String("topic", m.Topic),
				slog.Int64("offset", m.Offset),
				slog.Any("error", err),
			)
			continue
		}
		slog.Debug("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("hub", event.Hub),
			slog.String("event", event.Event),
		)
		if err := handler(event); err != nil {
			slog.Warn("kafka handler error", slog.String("topic", m.Topic), slog.Any("error", err))
		}
	}
}

type rawEvent struct {
	Hub       string            `json:"hub"`
	Event     string            `json:"event"`
	MachineID *domain.MachineID `json:"machineId"`
	Data      json.RawMessage   `json:"data"`
}

// decodeIngestEvent accepts either an envelope {"hub","event","machineId","data"}
// or a bare JSON payload. Missing hub and event names fall back to the "hub" and
// "event" record headers; the event name finally falls back to the last dotted
// segment of the Kafka topic. A "machineId" header routes bare payloads.
func decodeIngestEvent(m kafka.Message, receivedAt time.Time) (*domain.IngestEvent, error) {
	value := bytes.TrimSpace(m.Value)
	if len(value) == 0 || !json.Valid(value) {
		return nil, fmt.Errorf("%w: topic %s offset %d", ErrUndecodableMessage, m.Topic, m.Offset)
	}

	event := &domain.IngestEvent{Source: m.Topic, ReceivedAt: receivedAt.UTC()}

	var envelope rawEvent
	if err := json.Unmarshal(value, &envelope); err == nil && len(envelope.Data) > 0 {
		event.Hub = strings.TrimSpace(envelope.Hub)
		event.Event = strings.TrimSpace(envelope.Event)
		event.MachineID = envelope.MachineID
		event.Data = envelope.Data
	} else {
		event.Data = json.RawMessage(value)
	}
	if event.MachineID == nil {
		if raw := header(m, "machineId"); raw != "" {
			id, err := domain.ParseMachineID(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: machineId header %q", ErrUndecodableMessage, raw)
			}
			event.MachineID = &id
		}
	}

	event.Hub = firstNonEmpty(event.Hub, header(m, "hub"))
	event.Event = firstNonEmpty(event.Event, header(m, "event"), lastTopicSegment(m.Topic))
	return event, nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Key, key) {
			return strings.TrimSpace(string(h.Value))
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func lastTopicSegment(topic string) string {
	if idx := strings.LastIndex(topic, "."); idx >= 0 {
		topic = topic[idx+1:]
	}
	return strings.TrimSpace(topic)
}

var _ port.PubSubPort = (*KafkaConsumer)(nil)
