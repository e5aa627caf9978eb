package infrastructure

import (
	"context"
	"testing"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

type countingHandler struct {
	topic string
	seen  []*domain.IngestEvent
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(_ context.Context, event *domain.IngestEvent) error {
	h.seen = append(h.seen, event)
	return nil
}

func TestHandlerRegistry_DispatchesBySource(t *testing.T) {
	t.Parallel()

	logs := &countingHandler{topic: "machine.logs"}
	commands := &countingHandler{topic: "machine.commands"}
	registry := NewHandlerRegistry()
	registry.Register(logs)
	registry.Register(commands)

	ctx := context.Background()
	if err := registry.Dispatch(ctx, &domain.IngestEvent{Source: "machine.logs", Event: "NewLogEntry"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.Dispatch(ctx, &domain.IngestEvent{Source: "unbound.topic", Event: "X"}); err != nil {
		t.Fatalf("unbound topics must be ignored, got %v", err)
	}
	if err := registry.Dispatch(ctx, nil); err != nil {
		t.Fatalf("nil events must be ignored, got %v", err)
	}

	if len(logs.seen) != 1 || len(commands.seen) != 0 {
		t.Fatalf("unexpected dispatch: logs=%d commands=%d", len(logs.seen), len(commands.seen))
	}
	if got := registry.Topics(); len(got) != 2 || got[0] != "machine.commands" {
		t.Fatalf("unexpected topics: %v", got)
	}
}
