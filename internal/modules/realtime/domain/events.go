package domain

import "strings"

// Hub names.
const (
	HubMachine      = "machine"
	HubLog          = "log"
	HubCommand      = "command"
	HubNotification = "notification"
)

// Events raised on every hub.
const (
	EventConnected           = "Connected"
	EventPong                = "Pong"
	EventInvocationCompleted = "InvocationCompleted"
	EventInvocationError     = "InvocationError"
)

// Machine hub events.
const (
	EventMachineStatusUpdated     = "MachineStatusUpdated"
	EventMachineHeartbeatReceived = "MachineHeartbeatReceived"
	EventMachineMetricsUpdated    = "MachineMetricsUpdated"
	EventMachineStatusUpdate      = "MachineStatusUpdate"
	EventDashboardStats           = "DashboardStats"
)

// Log hub events.
const (
	EventNewLogEntry = "NewLogEntry"
)

// Command hub events.
const (
	EventCommandStatusUpdated   = "CommandStatusUpdated"
	EventNewCommand             = "NewCommand"
	EventCommandExecutionResult = "CommandExecutionResult"
	EventCommandCreated         = "CommandCreated"
	EventBatchCommandProgress   = "BatchCommandProgress"
)

// Notification hub events.
const (
	EventAlertReceived       = "AlertReceived"
	EventSystemNotification  = "SystemNotification"
	EventDashboardUpdated    = "DashboardUpdated"
	EventMachineHealthAlert  = "MachineHealthAlert"
	EventPerformanceAlert    = "PerformanceAlert"
	EventMaintenanceReminder = "MaintenanceReminder"
)

// NormalizeHub maps user supplied hub names (route params, config) onto the canonical hub name.
func NormalizeHub(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "machine", "machines", "machinehub":
		return HubMachine
	case "log", "logs", "loghub":
		return HubLog
	case "command", "commands", "commandhub":
		return HubCommand
	case "notification", "notifications", "notificationhub":
		return HubNotification
	default:
		return ""
	}
}

// Hubs lists every hub served by the relay.
func Hubs() []string {
	return []string{HubMachine, HubLog, HubCommand, HubNotification}
}
