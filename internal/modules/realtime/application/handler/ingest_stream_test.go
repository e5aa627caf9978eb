package handler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/usecase"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

type recordingRelay struct {
	topics []string
	events []string
}

func (r *recordingRelay) Broadcast(_ context.Context, event string, _ ...any) error {
	r.topics = append(r.topics, domain.TopicAll)
	r.events = append(r.events, event)
	return nil
}

func (r *recordingRelay) SendToTopic(_ context.Context, topic, event string, _ ...any) error {
	r.topics = append(r.topics, topic)
	r.events = append(r.events, event)
	return nil
}

func (r *recordingRelay) SendToTopics(_ context.Context, topics []string, event string, _ ...any) error {
	r.topics = append(r.topics, topics...)
	r.events = append(r.events, event)
	return nil
}

func (r *recordingRelay) SendToMachineTopic(ctx context.Context, kind domain.RelationKind, machineID domain.MachineID, event string, args ...any) error {
	return r.SendToTopic(ctx, domain.MachineRelationTopic(kind, machineID), event, args...)
}

func TestIngestStreamHandler_UsesDefaultHub(t *testing.T) {
	t.Parallel()

	relay := &recordingRelay{}
	router := usecase.NewIngestRouter(nil, usecase.NewLogNotifier(relay), nil, nil)
	h := NewIngestStreamHandler("machine.logs", "logs", nil, router)

	event := &domain.IngestEvent{Event: "NewLogEntry", Data: json.RawMessage(`{"machineId":5,"level":"ERROR","message":"jam"}`)}
	if err := h.Handle(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Hub != domain.HubLog {
		t.Fatalf("expected default hub, got %q", event.Hub)
	}
	if len(relay.topics) != 2 || relay.topics[0] != "Machine_5_Logs" || relay.topics[1] != "LogLevel_ERROR" {
		t.Fatalf("unexpected topics: %v", relay.topics)
	}
}

func TestIngestStreamHandler_DropsUnroutableEvents(t *testing.T) {
	t.Parallel()

	relay := &recordingRelay{}
	router := usecase.NewIngestRouter(nil, usecase.NewLogNotifier(relay), nil, nil)
	h := NewIngestStreamHandler("machine.logs", "log", nil, router)

	cases := map[string]*domain.IngestEvent{
		"unknown event": {Event: "Rotated", Data: json.RawMessage(`{}`)},
		"bad payload":   {Event: "NewLogEntry", Data: json.RawMessage(`[]`)},
		"nil":           nil,
	}
	for name, event := range cases {
		if err := h.Handle(context.Background(), event); err != nil {
			t.Fatalf("%s: expected drop, got %v", name, err)
		}
	}
	if len(relay.events) != 0 {
		t.Fatalf("nothing should be relayed: %v", relay.events)
	}
}

func TestIngestStreamHandler_FiltersEvents(t *testing.T) {
	t.Parallel()

	relay := &recordingRelay{}
	router := usecase.NewIngestRouter(nil, nil, usecase.NewCommandNotifier(relay), nil)
	h := NewIngestStreamHandler("machine.commands", "command", []string{"NewCommand"}, router)
	ctx := context.Background()

	if err := h.Handle(ctx, &domain.IngestEvent{Event: "CommandCreated", Data: json.RawMessage(`{"id":1}`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Handle(ctx, &domain.IngestEvent{Event: "newcommand", Data: json.RawMessage(`{"id":2,"machineId":3}`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(relay.events) != 1 || relay.events[0] != domain.EventNewCommand {
		t.Fatalf("unexpected events: %v", relay.events)
	}
	if h.Topic() != "machine.commands" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}
}
