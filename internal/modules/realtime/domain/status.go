package domain

import "strings"

// MachineStatus represents the connectivity state of a machine as exposed by the REST API.
type MachineStatus string

const (
	MachineStatusUnknown     MachineStatus = ""
	MachineStatusOnline      MachineStatus = "Online"
	MachineStatusOffline     MachineStatus = "Offline"
	MachineStatusError       MachineStatus = "Error"
	MachineStatusMaintenance MachineStatus = "Maintenance"
)

var allowedMachineStatuses = map[string]MachineStatus{
	"ONLINE":      MachineStatusOnline,
	"OFFLINE":     MachineStatusOffline,
	"ERROR":       MachineStatusError,
	"MAINTENANCE": MachineStatusMaintenance,
}

// NormalizeMachineStatus returns the canonical MachineStatus for the given input.
// Unknown statuses are returned trimmed to avoid data loss.
func NormalizeMachineStatus(value any) MachineStatus {
	s, ok := value.(string)
	if !ok {
		return MachineStatusUnknown
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return MachineStatusUnknown
	}
	if status, ok := allowedMachineStatuses[strings.ToUpper(trimmed)]; ok {
		return status
	}
	return MachineStatus(trimmed)
}

// CommandStatus represents the execution state of a machine command.
type CommandStatus string

const (
	CommandStatusUnknown   CommandStatus = ""
	CommandStatusPending   CommandStatus = "Pending"
	CommandStatusSent      CommandStatus = "Sent"
	CommandStatusExecuting CommandStatus = "Executing"
	CommandStatusCompleted CommandStatus = "Completed"
	CommandStatusFailed    CommandStatus = "Failed"
)

var allowedCommandStatuses = map[string]CommandStatus{
	"PENDING":   CommandStatusPending,
	"SENT":      CommandStatusSent,
	"EXECUTING": CommandStatusExecuting,
	"COMPLETED": CommandStatusCompleted,
	"FAILED":    CommandStatusFailed,
}

// NormalizeCommandStatus returns the canonical CommandStatus for the given input.
func NormalizeCommandStatus(value any) CommandStatus {
	s, ok := value.(string)
	if !ok {
		return CommandStatusUnknown
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return CommandStatusUnknown
	}
	if status, ok := allowedCommandStatuses[strings.ToUpper(trimmed)]; ok {
		return status
	}
	return CommandStatus(trimmed)
}
