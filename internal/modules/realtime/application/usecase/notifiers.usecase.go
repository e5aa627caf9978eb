package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// The notifiers below only pick the recipients of an event. Arguments are
// relayed as given; a json.RawMessage reaches the client byte for byte.

// MachineNotifier pushes machine state changes through the machine hub relay.
type MachineNotifier struct {
	relay port.Relay
}

func NewMachineNotifier(relay port.Relay) *MachineNotifier {
	return &MachineNotifier{relay: relay}
}

// StatusUpdated is broadcast so every dashboard sees status flips.
func (n *MachineNotifier) StatusUpdated(ctx context.Context, args ...any) error {
	return n.relay.Broadcast(ctx, domain.EventMachineStatusUpdated, args...)
}

func (n *MachineNotifier) HeartbeatReceived(ctx context.Context, machineID domain.MachineID, args ...any) error {
	return n.relay.SendToMachineTopic(ctx, domain.RelationStatus, machineID, domain.EventMachineHeartbeatReceived, args...)
}

func (n *MachineNotifier) MetricsUpdated(ctx context.Context, machineID domain.MachineID, args ...any) error {
	return n.relay.SendToMachineTopic(ctx, domain.RelationStatus, machineID, domain.EventMachineMetricsUpdated, args...)
}

// MachineList broadcasts a machine list pushed by the backend outside the polling cycle.
func (n *MachineNotifier) MachineList(ctx context.Context, args ...any) error {
	return n.relay.Broadcast(ctx, domain.EventMachineStatusUpdate, args...)
}

// LogNotifier routes log entries to the machine log topic and the level topic
// of the log hub. A connection joined to both receives a single copy.
type LogNotifier struct {
	relay   port.Relay
	updates port.Relay
}

func NewLogNotifier(relay port.Relay) *LogNotifier {
	return &LogNotifier{relay: relay}
}

// WithLogUpdates also fans entries out to the LogUpdates groups of the machine hub.
func (n *LogNotifier) WithLogUpdates(machines port.Relay) *LogNotifier {
	n.updates = machines
	return n
}

// NewLogEntry relays entry to every matching topic. level is used verbatim;
// an empty level only reaches machine topics.
func (n *LogNotifier) NewLogEntry(ctx context.Context, machineID domain.MachineID, level string, args ...any) error {
	topics := []string{domain.MachineLogsTopic(machineID)}
	if level != "" {
		topics = append(topics, domain.LogLevelTopic(level))
	}
	err := n.relay.SendToTopics(ctx, topics, domain.EventNewLogEntry, args...)
	if n.updates != nil {
		err = errors.Join(err, n.updates.SendToTopics(ctx, domain.LogUpdatesTopics(level, machineID), domain.EventNewLogEntry, args...))
	}
	return err
}

// CommandNotifier pushes command lifecycle events through the command hub relay.
type CommandNotifier struct {
	relay port.Relay
}

func NewCommandNotifier(relay port.Relay) *CommandNotifier {
	return &CommandNotifier{relay: relay}
}

func (n *CommandNotifier) StatusUpdated(ctx context.Context, args ...any) error {
	return n.relay.Broadcast(ctx, domain.EventCommandStatusUpdated, args...)
}

func (n *CommandNotifier) NewCommand(ctx context.Context, machineID domain.MachineID, args ...any) error {
	return n.relay.SendToMachineTopic(ctx, domain.RelationCommands, machineID, domain.EventNewCommand, args...)
}

func (n *CommandNotifier) ExecutionResult(ctx context.Context, machineID domain.MachineID, args ...any) error {
	return n.relay.SendToMachineTopic(ctx, domain.RelationCommands, machineID, domain.EventCommandExecutionResult, args...)
}

func (n *CommandNotifier) Created(ctx context.Context, args ...any) error {
	return n.relay.Broadcast(ctx, domain.EventCommandCreated, args...)
}

func (n *CommandNotifier) BatchProgress(ctx context.Context, args ...any) error {
	return n.relay.Broadcast(ctx, domain.EventBatchCommandProgress, args...)
}

// AlertNotifier broadcasts operator facing notifications. Every payload
// carries a timestamp set at send time: object payloads get a "timestamp"
// member with their other members untouched, anything else is wrapped as
// {"data": payload, "timestamp": ...}.
type AlertNotifier struct {
	relay port.Relay
	now   func() time.Time
}

func NewAlertNotifier(relay port.Relay) *AlertNotifier {
	return &AlertNotifier{relay: relay, now: time.Now}
}

func (n *AlertNotifier) Alert(ctx context.Context, payload any) error {
	return n.broadcastStamped(ctx, domain.EventAlertReceived, payload)
}

func (n *AlertNotifier) SystemNotification(ctx context.Context, payload any) error {
	return n.broadcastStamped(ctx, domain.EventSystemNotification, payload)
}

// DashboardUpdated always wraps data, matching what dashboards expect.
func (n *AlertNotifier) DashboardUpdated(ctx context.Context, data any) error {
	return n.relay.Broadcast(ctx, domain.EventDashboardUpdated, domain.StampedData{Data: data, Timestamp: n.now().UTC()})
}

func (n *AlertNotifier) MachineHealthAlert(ctx context.Context, payload any) error {
	return n.broadcastStamped(ctx, domain.EventMachineHealthAlert, payload)
}

func (n *AlertNotifier) PerformanceAlert(ctx context.Context, payload any) error {
	return n.broadcastStamped(ctx, domain.EventPerformanceAlert, payload)
}

func (n *AlertNotifier) MaintenanceReminder(ctx context.Context, payload any) error {
	return n.broadcastStamped(ctx, domain.EventMaintenanceReminder, payload)
}

func (n *AlertNotifier) broadcastStamped(ctx context.Context, event string, payload any) error {
	stamped, err := stampPayload(payload, n.now().UTC())
	if err != nil {
		return fmt.Errorf("stamp %s: %w", event, err)
	}
	return n.relay.Broadcast(ctx, event, stamped)
}

func stampPayload(payload any, at time.Time) (any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.StampedData{Data: payload, Timestamp: at}, nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	stamp, err := json.Marshal(at)
	if err != nil {
		return nil, err
	}
	members[domain.TimestampField] = stamp
	return members, nil
}
