package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MachineID identifies a machine in the management backend.
type MachineID int64

func (id MachineID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// UnmarshalJSON accepts a JSON number or a numeric string, since the
// management backend serializes machine ids as strings.
func (id *MachineID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		parsed, err := ParseMachineID(raw)
		if err != nil {
			return fmt.Errorf("machine id %q: %w", raw, err)
		}
		*id = parsed
		return nil
	}
	var value int64
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return fmt.Errorf("machine id %s: %w", trimmed, err)
	}
	*id = MachineID(value)
	return nil
}

// MachineSummary is the list projection pushed to dashboards.
type MachineSummary struct {
	MachineID     MachineID      `json:"machineId"`
	Name          string         `json:"name"`
	StationName   string         `json:"stationName"`
	LineName      string         `json:"lineName"`
	Status        MachineStatus  `json:"status"`
	IPAddress     string         `json:"ipAddress"`
	LastHeartbeat time.Time      `json:"lastHeartbeat"`
	IsOnline      bool           `json:"isOnline"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// DashboardStats aggregates platform counters for the dashboard view.
type DashboardStats struct {
	TotalMachines          int       `json:"totalMachines"`
	OnlineMachines         int       `json:"onlineMachines"`
	OfflineMachines        int       `json:"offlineMachines"`
	TotalLogsToday         int64     `json:"totalLogsToday"`
	TotalErrors            int64     `json:"totalErrors"`
	TotalWarnings          int64     `json:"totalWarnings"`
	PendingCommands        int       `json:"pendingCommands"`
	CompletedCommandsToday int       `json:"completedCommandsToday"`
	AverageResponseTime    float64   `json:"averageResponseTime"`
	LastUpdated            time.Time `json:"lastUpdated"`
}
