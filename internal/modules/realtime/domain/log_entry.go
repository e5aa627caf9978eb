package domain

import "time"

// LogEntry is a machine log line forwarded to log hub subscribers.
type LogEntry struct {
	ID         int64          `json:"id"`
	MachineID  MachineID      `json:"machineId"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Exception  string         `json:"exception,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
