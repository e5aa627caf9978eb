package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// UpsertMachine inserts or replaces the descriptive columns of a machine.
func (s *Store) UpsertMachine(ctx context.Context, m domain.MachineSummary) error {
	online := 0
	if m.IsOnline {
		online = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (machine_id, name, station_name, line_name, status, ip_address, is_online, last_heartbeat, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(machine_id) DO UPDATE SET
			name = excluded.name,
			station_name = excluded.station_name,
			line_name = excluded.line_name,
			status = excluded.status,
			ip_address = excluded.ip_address,
			is_online = excluded.is_online,
			last_heartbeat = excluded.last_heartbeat,
			updated_at = excluded.updated_at`,
		int64(m.MachineID), m.Name, m.StationName, m.LineName, string(m.Status), m.IPAddress, online, formatTime(m.LastHeartbeat), formatTime(s.now()))
	return err
}

func (s *Store) setMachineStatus(ctx context.Context, id domain.MachineID, status domain.MachineStatus) error {
	online := 0
	if status == domain.MachineStatusOnline {
		online = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (machine_id, status, is_online, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(machine_id) DO UPDATE SET
			status = excluded.status,
			is_online = excluded.is_online,
			updated_at = excluded.updated_at`,
		int64(id), string(status), online, formatTime(s.now()))
	return err
}

func (s *Store) touchHeartbeat(ctx context.Context, id domain.MachineID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (machine_id, status, is_online, last_heartbeat, updated_at) VALUES (?, 'Online', 1, ?, ?)
		ON CONFLICT(machine_id) DO UPDATE SET
			is_online = 1,
			status = CASE WHEN status = 'Offline' THEN 'Online' ELSE status END,
			last_heartbeat = excluded.last_heartbeat,
			updated_at = excluded.updated_at`,
		int64(id), formatTime(at), formatTime(s.now()))
	return err
}

// AddLogEntry appends a log entry. A zero timestamp is replaced by the current time.
func (s *Store) AddLogEntry(ctx context.Context, entry domain.LogEntry) error {
	at := entry.Timestamp
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_entries (machine_id, level, message, exception, logged_at) VALUES (?, ?, ?, ?, ?)`,
		int64(entry.MachineID), entry.Level, entry.Message, entry.Exception, formatTime(at))
	return err
}

// SaveCommand inserts or replaces a command.
func (s *Store) SaveCommand(ctx context.Context, cmd domain.Command) error {
	created := cmd.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	executed := ""
	if cmd.ExecutedAt != nil {
		executed = formatTime(*cmd.ExecutedAt)
	}
	status := cmd.Status
	if status == domain.CommandStatusUnknown {
		status = domain.CommandStatusPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commands (id, machine_id, command_type, command_data, status, result, error_message, created_at, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			error_message = excluded.error_message,
			executed_at = excluded.executed_at`,
		cmd.ID, int64(cmd.MachineID), cmd.CommandType, cmd.CommandData, string(status), cmd.Result, cmd.ErrorMessage, formatTime(created), executed)
	return err
}

func (s *Store) updateCommandStatus(ctx context.Context, id int64, status domain.CommandStatus, result, errMsg string) error {
	executed := ""
	if status == domain.CommandStatusCompleted || status == domain.CommandStatusFailed {
		executed = formatTime(s.now())
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE commands SET status = ?, result = ?, error_message = ?,
			executed_at = CASE WHEN ? != '' AND executed_at = '' THEN ? ELSE executed_at END
		WHERE id = ?`,
		string(status), result, errMsg, executed, executed, id)
	return err
}

// Record projects a state change reported by a domain service. Events that do
// not change machine, log or command state are ignored. Object payloads are
// read by member name, array payloads by position in the argument list the
// hub method sends. Statuses are normalized here only; clients receive the
// payload as produced.
func (s *Store) Record(ctx context.Context, event *domain.IngestEvent) error {
	if event == nil || len(bytes.TrimSpace(event.Data)) == 0 {
		return nil
	}
	var err error
	switch event.Key() {
	case domain.IngestKey(domain.HubMachine, domain.EventMachineStatusUpdated):
		var p struct {
			MachineID domain.MachineID `json:"machineId"`
			Status    any              `json:"status"`
		}
		if err = decodeFields(event.Data, &p, &p.MachineID, &p.Status); err == nil {
			err = s.setMachineStatus(ctx, machineOf(p.MachineID, event), domain.NormalizeMachineStatus(p.Status))
		}
	case domain.IngestKey(domain.HubMachine, domain.EventMachineHeartbeatReceived):
		var p struct {
			MachineID domain.MachineID `json:"machineId"`
			Timestamp time.Time        `json:"timestamp"`
		}
		if err = decodeFields(event.Data, &p, &p.MachineID, &p.Timestamp); err == nil {
			if p.Timestamp.IsZero() {
				p.Timestamp = s.now()
			}
			err = s.touchHeartbeat(ctx, machineOf(p.MachineID, event), p.Timestamp)
		}
	case domain.IngestKey(domain.HubMachine, domain.EventMachineStatusUpdate):
		var machines []domain.MachineSummary
		if machines, err = decodeMachines(event.Data); err == nil {
			for _, m := range machines {
				m.Status = domain.NormalizeMachineStatus(string(m.Status))
				if err = s.UpsertMachine(ctx, m); err != nil {
					break
				}
			}
		}
	case domain.IngestKey(domain.HubLog, domain.EventNewLogEntry):
		var entry domain.LogEntry
		if err = json.Unmarshal(event.Data, &entry); err == nil {
			entry.MachineID = machineOf(entry.MachineID, event)
			err = s.AddLogEntry(ctx, entry)
		}
	case domain.IngestKey(domain.HubCommand, domain.EventNewCommand), domain.IngestKey(domain.HubCommand, domain.EventCommandCreated):
		var cmd domain.Command
		if err = json.Unmarshal(event.Data, &cmd); err == nil {
			cmd.MachineID = machineOf(cmd.MachineID, event)
			cmd.Status = domain.NormalizeCommandStatus(string(cmd.Status))
			err = s.SaveCommand(ctx, cmd)
		}
	case domain.IngestKey(domain.HubCommand, domain.EventCommandStatusUpdated), domain.IngestKey(domain.HubCommand, domain.EventCommandExecutionResult):
		var p struct {
			CommandID    int64  `json:"commandId"`
			Status       any    `json:"status"`
			Result       string `json:"result"`
			ErrorMessage string `json:"errorMessage"`
		}
		if err = decodeFields(event.Data, &p, &p.CommandID, &p.Status, &p.Result, &p.ErrorMessage); err == nil {
			err = s.updateCommandStatus(ctx, p.CommandID, domain.NormalizeCommandStatus(p.Status), p.Result, p.ErrorMessage)
		}
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("record %s: %w", event.Key(), err)
	}
	return nil
}

// machineOf falls back to the machine id carried by the event itself.
func machineOf(id domain.MachineID, event *domain.IngestEvent) domain.MachineID {
	if id == 0 && event.MachineID != nil {
		return *event.MachineID
	}
	return id
}

// decodeFields fills object from an object payload, or positional from the
// elements of an array payload. Missing and null elements are left unset.
func decodeFields(data json.RawMessage, object any, positional ...any) error {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] != '[' {
		return json.Unmarshal(trimmed, object)
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return err
	}
	for i, target := range positional {
		if i >= len(elements) {
			break
		}
		if bytes.Equal(elements[i], []byte("null")) {
			continue
		}
		if err := json.Unmarshal(elements[i], target); err != nil {
			return err
		}
	}
	return nil
}

// decodeMachines accepts a machine list or a single machine.
func decodeMachines(data json.RawMessage) ([]domain.MachineSummary, error) {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '{' {
		var m domain.MachineSummary
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, err
		}
		return []domain.MachineSummary{m}, nil
	}
	var machines []domain.MachineSummary
	if err := json.Unmarshal(trimmed, &machines); err != nil {
		return nil, err
	}
	return machines, nil
}

var _ port.IngestRecorder = (*Store)(nil)
