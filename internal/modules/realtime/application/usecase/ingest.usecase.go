package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

var (
	// ErrUnknownIngestEvent is returned when no route exists for an event's hub and name.
	ErrUnknownIngestEvent = errors.New("unknown ingest event")
	// ErrInvalidIngestPayload is returned when the event data is not JSON or lacks a routing key.
	ErrInvalidIngestPayload = errors.New("invalid ingest payload")
)

// ingestRoute relays args, the event data split into arguments, using keys to
// pick the recipients.
type ingestRoute func(ctx context.Context, keys routingKeys, args []any) error

// IngestRouter relays state changes reported by domain services through the
// typed notifiers. Kafka handlers and the REST ingestion endpoint share it.
//
// Event data is never re-encoded: a JSON array is spread into positional
// arguments, any other value is a single argument, and every argument reaches
// clients with the bytes the producer sent. Only the routing keys are read.
type IngestRouter struct {
	routes   map[string]ingestRoute
	recorder port.IngestRecorder
}

// NewIngestRouter registers the routes of every non-nil notifier.
func NewIngestRouter(machines *MachineNotifier, logs *LogNotifier, commands *CommandNotifier, alerts *AlertNotifier) *IngestRouter {
	r := &IngestRouter{routes: make(map[string]ingestRoute)}
	if machines != nil {
		r.registerMachineRoutes(machines)
	}
	if logs != nil {
		r.handle(domain.HubLog, domain.EventNewLogEntry, func(ctx context.Context, keys routingKeys, args []any) error {
			id, err := keys.machine()
			if err != nil {
				return err
			}
			return logs.NewLogEntry(ctx, id, keys.level(), args...)
		})
	}
	if commands != nil {
		r.registerCommandRoutes(commands)
	}
	if alerts != nil {
		r.registerAlertRoutes(alerts)
	}
	return r
}

// WithRecorder makes the router persist every routable event before relaying it.
// Recorder failures are logged and do not block delivery.
func (r *IngestRouter) WithRecorder(recorder port.IngestRecorder) *IngestRouter {
	r.recorder = recorder
	return r
}

func (r *IngestRouter) handle(hub, event string, route ingestRoute) {
	r.routes[domain.IngestKey(hub, event)] = route
}

// Keys lists the registered "hub.event" routing keys.
func (r *IngestRouter) Keys() []string {
	keys := make([]string, 0, len(r.routes))
	for key := range r.routes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Route reads the routing keys of the event and calls the matching notifier.
func (r *IngestRouter) Route(ctx context.Context, event *domain.IngestEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidIngestPayload)
	}
	key := event.Key()
	route, ok := r.routes[key]
	if !ok {
		return fmt.Errorf("%w: hub=%q event=%q", ErrUnknownIngestEvent, event.Hub, event.Event)
	}
	args, err := ingestArgs(event.Data)
	if err != nil {
		return err
	}
	keys, err := readRoutingKeys(event.Data)
	if err != nil {
		return err
	}
	if event.MachineID != nil {
		keys.MachineID = event.MachineID
	}
	keys.data = bytes.TrimSpace(event.Data)

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, event); err != nil {
			slog.Warn("ingest record failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	if err := route(ctx, keys, args); err != nil {
		slog.Warn("ingest route failed", slog.String("key", key), slog.String("source", event.Source), slog.Any("error", err))
		return err
	}
	slog.Debug("ingest routed", slog.String("key", key), slog.String("source", event.Source), slog.Int("arguments", len(args)))
	return nil
}

func (r *IngestRouter) registerMachineRoutes(n *MachineNotifier) {
	r.handle(domain.HubMachine, domain.EventMachineStatusUpdated, func(ctx context.Context, _ routingKeys, args []any) error {
		return n.StatusUpdated(ctx, args...)
	})
	// The machine list is a single argument, never spread.
	r.handle(domain.HubMachine, domain.EventMachineStatusUpdate, func(ctx context.Context, keys routingKeys, _ []any) error {
		return n.MachineList(ctx, keys.data)
	})
	r.handle(domain.HubMachine, domain.EventMachineHeartbeatReceived, func(ctx context.Context, keys routingKeys, args []any) error {
		// Heartbeats are also sent positionally as [machineId, timestamp].
		id, err := keys.machineOrFirst(args)
		if err != nil {
			return err
		}
		return n.HeartbeatReceived(ctx, id, args...)
	})
	r.handle(domain.HubMachine, domain.EventMachineMetricsUpdated, func(ctx context.Context, keys routingKeys, args []any) error {
		id, err := keys.machine()
		if err != nil {
			return err
		}
		return n.MetricsUpdated(ctx, id, args...)
	})
}

func (r *IngestRouter) registerCommandRoutes(n *CommandNotifier) {
	r.handle(domain.HubCommand, domain.EventNewCommand, func(ctx context.Context, keys routingKeys, args []any) error {
		id, err := keys.machine()
		if err != nil {
			return err
		}
		return n.NewCommand(ctx, id, args...)
	})
	r.handle(domain.HubCommand, domain.EventCommandExecutionResult, func(ctx context.Context, keys routingKeys, args []any) error {
		id, err := keys.machine()
		if err != nil {
			return err
		}
		return n.ExecutionResult(ctx, id, args...)
	})
	r.handle(domain.HubCommand, domain.EventCommandCreated, func(ctx context.Context, _ routingKeys, args []any) error {
		return n.Created(ctx, args...)
	})
	r.handle(domain.HubCommand, domain.EventCommandStatusUpdated, func(ctx context.Context, _ routingKeys, args []any) error {
		return n.StatusUpdated(ctx, args...)
	})
	r.handle(domain.HubCommand, domain.EventBatchCommandProgress, func(ctx context.Context, _ routingKeys, args []any) error {
		return n.BatchProgress(ctx, args...)
	})
}

func (r *IngestRouter) registerAlertRoutes(n *AlertNotifier) {
	single := func(send func(context.Context, any) error) ingestRoute {
		return func(ctx context.Context, _ routingKeys, args []any) error {
			if len(args) == 1 {
				return send(ctx, args[0])
			}
			return send(ctx, args)
		}
	}
	r.handle(domain.HubNotification, domain.EventAlertReceived, single(n.Alert))
	r.handle(domain.HubNotification, domain.EventSystemNotification, single(n.SystemNotification))
	r.handle(domain.HubNotification, domain.EventDashboardUpdated, single(n.DashboardUpdated))
	r.handle(domain.HubNotification, domain.EventMachineHealthAlert, single(n.MachineHealthAlert))
	r.handle(domain.HubNotification, domain.EventPerformanceAlert, single(n.PerformanceAlert))
	r.handle(domain.HubNotification, domain.EventMaintenanceReminder, single(n.MaintenanceReminder))
}

// ingestArgs splits event data into relay arguments without decoding them.
func ingestArgs(data json.RawMessage) ([]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty data", ErrInvalidIngestPayload)
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: data is not JSON", ErrInvalidIngestPayload)
	}
	if trimmed[0] != '[' {
		return []any{json.RawMessage(trimmed)}, nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIngestPayload, err)
	}
	args := make([]any, len(elements))
	for i, element := range elements {
		args[i] = element
	}
	return args, nil
}

// routingKeys are the only members of event data the router reads.
type routingKeys struct {
	MachineID *domain.MachineID `json:"machineId"`
	Level     any               `json:"level"`

	data json.RawMessage
}

// level returns the log level when it was sent as a string. Numeric levels
// have no level topic.
func (k routingKeys) level() string {
	level, _ := k.Level.(string)
	return level
}

func (k routingKeys) machine() (domain.MachineID, error) {
	if k.MachineID == nil {
		return 0, fmt.Errorf("%w: machineId is required", ErrInvalidIngestPayload)
	}
	return *k.MachineID, nil
}

func (k routingKeys) machineOrFirst(args []any) (domain.MachineID, error) {
	if k.MachineID != nil || len(args) == 0 {
		return k.machine()
	}
	raw, ok := args[0].(json.RawMessage)
	if !ok {
		return k.machine()
	}
	var id domain.MachineID
	if err := json.Unmarshal(raw, &id); err != nil || bytes.Equal(raw, []byte("null")) {
		return k.machine()
	}
	return id, nil
}

// readRoutingKeys looks for machineId and level in an object payload or in the
// object elements of an array payload; the first element carrying a key wins.
func readRoutingKeys(data json.RawMessage) (routingKeys, error) {
	trimmed := bytes.TrimSpace(data)
	var keys routingKeys
	switch trimmed[0] {
	case '{':
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return keys, fmt.Errorf("%w: %w", ErrInvalidIngestPayload, err)
		}
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return keys, fmt.Errorf("%w: %w", ErrInvalidIngestPayload, err)
		}
		for _, element := range elements {
			element = bytes.TrimSpace(element)
			if len(element) == 0 || element[0] != '{' {
				continue
			}
			var found routingKeys
			if err := json.Unmarshal(element, &found); err != nil {
				return keys, fmt.Errorf("%w: %w", ErrInvalidIngestPayload, err)
			}
			if keys.MachineID == nil {
				keys.MachineID = found.MachineID
			}
			if keys.level() == "" {
				keys.Level = found.Level
			}
		}
	}
	return keys, nil
}
