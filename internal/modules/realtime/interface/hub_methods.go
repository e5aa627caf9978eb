package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/infrastructure"
)

// ErrSnapshotsDisabled is reported by snapshot methods when the hub runs without a snapshot source.
var ErrSnapshotsDisabled = errors.New("snapshots are not configured")

// RegisterHubMethods binds the client-callable methods of hub. Snapshot
// methods of the machine hub read through snapshots, which may be nil.
func RegisterHubMethods(hub *infrastructure.Hub, snapshots port.SnapshotSource) {
	m := &hubMethods{hub: hub, snapshots: snapshots, now: time.Now}
	p := hub.Invocations()
	switch hub.Name() {
	case domain.HubMachine:
		p.Register("JoinGroup", m.joinGroup)
		p.Register("LeaveGroup", m.leaveGroup)
		// Kept for older dashboards: the machine list they expect on MachineUpdates
		// is broadcast to every connection by the periodic publisher.
		p.Register("SubscribeToMachineUpdates", m.joinFixed(domain.TopicMachineUpdates))
		p.Register("SubscribeToLogs", m.subscribeToLogs)
		p.Register("SubscribeToMachine", m.joinMachine(domain.MachineTopic))
		p.Register("SubscribeToDashboard", m.subscribeToDashboard)
		p.Register("RequestMachineStatus", m.requestMachineStatus)
	case domain.HubLog:
		p.Register("JoinMachineLogGroup", m.joinMachine(domain.MachineLogsTopic))
		p.Register("LeaveMachineLogGroup", m.leaveMachine(domain.MachineLogsTopic))
		p.Register("JoinLogLevelGroup", m.joinLogLevel)
		p.Register("LeaveLogLevelGroup", m.leaveLogLevel)
	case domain.HubCommand:
		p.Register("JoinMachineCommandGroup", m.joinMachine(domain.MachineCommandsTopic))
		p.Register("LeaveMachineCommandGroup", m.leaveMachine(domain.MachineCommandsTopic))
	}
	slog.Debug("hub methods registered", slog.String("hub", hub.Name()), slog.Any("methods", p.Methods()))
}

type hubMethods struct {
	hub       *infrastructure.Hub
	snapshots port.SnapshotSource
	now       func() time.Time
}

func (m *hubMethods) join(caller infrastructure.Caller, topic string) error {
	if err := m.hub.Registry().Join(topic, caller.ID()); err != nil {
		return fmt.Errorf("%w: %w", infrastructure.ErrInvalidArguments, err)
	}
	return nil
}

func (m *hubMethods) reply(caller infrastructure.Caller, event string, args ...any) error {
	return caller.SendMessage(domain.NewMessage(m.hub.Name(), "", event, m.now(), args...))
}

func (m *hubMethods) joinGroup(_ context.Context, caller infrastructure.Caller, args infrastructure.Args) error {
	topic, err := args.String(0)
	if err != nil {
		return err
	}
	return m.join(caller, strings.TrimSpace(topic))
}

func (m *hubMethods) leaveGroup(_ context.Context, caller infrastructure.Caller, args infrastructure.Args) error {
	topic, err := args.String(0)
	if err != nil {
		return err
	}
	m.hub.Registry().Leave(strings.TrimSpace(topic), caller.ID())
	return nil
}

func (m *hubMethods) joinFixed(topic string) infrastructure.MethodHandler {
	return func(_ context.Context, caller infrastructure.Caller, _ infrastructure.Args) error {
		return m.join(caller, topic)
	}
}

func (m *hubMethods) joinMachine(topicOf func(domain.MachineID) string) infrastructure.MethodHandler {
	return func(_ context.Context, caller infrastructure.Caller, args infrastructure.Args) error {
		id, err := args.MachineID(0)
		if err != nil {
			return err
		}
		return m.join(caller, topicOf(id))
	}
}

func (m *hubMethods) leaveMachine(topicOf func(domain.MachineID) string) infrastructure.MethodHandler {
	return func(_ context.Context, caller infrastructure.Caller, args infrastructure.Args) error {
		id, err := args.MachineID(0)
		if err != nil {
			return err
		}
		m.hub.Registry().Leave(topicOf(id), caller.ID())
		return nil
	}
}

// Log levels are taken verbatim: "Error" and "ERROR" are different groups.
func (m *hubMethods) joinLogLevel(_ context.Context, caller infrastructure.Caller, args infrastructure.Args) error {
	level, err := args.String(0)
	if err != nil {
		return err
	}
	return m.join(caller, domain.LogLevelTopic(level))
}

func (m *hubMethods) leaveLogLevel(_ context.Context, caller infrastructure.Caller, args infrastructure.Args) error {
	level, err := args.String(0)
	if err != nil {
		return err
	}
	m.hub.Registry().Leave(domain.LogLevelTopic(level), caller.ID())
	return nil
}

// subscribeToLogs joins the LogUpdates group narrowed by an optional level and
// an optional machine id, e.g. LogUpdates_ERROR_5.
func (m *hubMethods) subscribeToLogs(_ context.Context, caller infrastructure.Caller, args infrastructure.Args) error {
	level, _, err := args.OptionalString(0)
	if err != nil {
		return err
	}
	var machineID *domain.MachineID
	raw, ok, err := args.OptionalString(1)
	if err != nil {
		return err
	}
	if ok && strings.TrimSpace(raw) != "" {
		id, err := domain.ParseMachineID(raw)
		if err != nil {
			return fmt.Errorf("%w: argument 1 is not a machine id", infrastructure.ErrInvalidArguments)
		}
		machineID = &id
	}
	return m.join(caller, domain.LogUpdatesTopic(level, machineID))
}

// subscribeToDashboard joins DashboardUpdates and sends the current stats to
// the caller. The membership is kept when the stats cannot be read.
func (m *hubMethods) subscribeToDashboard(ctx context.Context, caller infrastructure.Caller, _ infrastructure.Args) error {
	if err := m.join(caller, domain.TopicDashboardUpdates); err != nil {
		return err
	}
	if m.snapshots == nil {
		return ErrSnapshotsDisabled
	}
	stats, err := m.snapshots.GetDashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("dashboard stats: %w", err)
	}
	return m.reply(caller, domain.EventDashboardStats, stats)
}

// requestMachineStatus sends MachineStatusUpdate to the caller only: the full
// list without an argument, or a one element list for a known machine.
func (m *hubMethods) requestMachineStatus(ctx context.Context, caller infrastructure.Caller, args infrastructure.Args) error {
	if m.snapshots == nil {
		return ErrSnapshotsDisabled
	}
	raw, ok, err := args.OptionalString(0)
	if err != nil {
		return err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		machines, err := m.snapshots.GetAllMachines(ctx)
		if err != nil {
			return fmt.Errorf("machine list: %w", err)
		}
		return m.reply(caller, domain.EventMachineStatusUpdate, machines)
	}

	id, err := domain.ParseMachineID(raw)
	if err != nil {
		return fmt.Errorf("%w: argument 0 is not a machine id", infrastructure.ErrInvalidArguments)
	}
	machine, err := m.snapshots.GetMachine(ctx, id)
	if errors.Is(err, port.ErrSnapshotNotFound) {
		slog.Debug("machine status requested for unknown machine", slog.String("connectionId", caller.ID()), slog.Int64("machineId", int64(id)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("machine %d: %w", id, err)
	}
	return m.reply(caller, domain.EventMachineStatusUpdate, []domain.MachineSummary{*machine})
}
