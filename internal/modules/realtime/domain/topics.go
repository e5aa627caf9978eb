package domain

import (
	"strconv"
	"strings"
)

const (
	// TopicAll is the implicit topic every attached connection belongs to.
	TopicAll = "all"

	TopicMachineUpdates   = "MachineUpdates"
	TopicDashboardUpdates = "DashboardUpdates"
	// TopicLogUpdates is the machine hub group receiving every log entry.
	TopicLogUpdates = "LogUpdates"

	machineTopicPrefix  = "Machine_"
	logLevelTopicPrefix = "LogLevel_"
	commandsTopicSuffix = "_Commands"
	logsTopicSuffix     = "_Logs"
)

// RelationKind selects which per-machine topic a notification targets.
type RelationKind string

const (
	RelationCommands RelationKind = "commands"
	RelationLogs     RelationKind = "logs"
	RelationStatus   RelationKind = "status"
)

// MachineCommandsTopic returns the topic carrying command traffic for a machine.
func MachineCommandsTopic(id MachineID) string {
	return machineTopicPrefix + id.String() + commandsTopicSuffix
}

// MachineLogsTopic returns the topic carrying log entries for a machine.
func MachineLogsTopic(id MachineID) string {
	return machineTopicPrefix + id.String() + logsTopicSuffix
}

// MachineTopic returns the per-machine status topic.
func MachineTopic(id MachineID) string {
	return machineTopicPrefix + id.String()
}

// LogLevelTopic returns the topic for a log level. The level is used verbatim so
// that distinct inputs never share a topic.
func LogLevelTopic(level string) string {
	return logLevelTopicPrefix + level
}

// LogUpdatesTopic returns the machine hub log group for an optional level and
// machine id: "LogUpdates", "LogUpdates_{level}", "LogUpdates_{id}" or
// "LogUpdates_{level}_{id}". The level is used verbatim.
func LogUpdatesTopic(level string, machineID *MachineID) string {
	topic := TopicLogUpdates
	if level != "" {
		topic += "_" + level
	}
	if machineID != nil {
		topic += "_" + machineID.String()
	}
	return topic
}

// LogUpdatesTopics lists every machine hub log group an entry for machineID
// at level belongs to.
func LogUpdatesTopics(level string, machineID MachineID) []string {
	topics := []string{TopicLogUpdates, LogUpdatesTopic("", &machineID)}
	if level != "" {
		topics = append(topics, LogUpdatesTopic(level, nil), LogUpdatesTopic(level, &machineID))
	}
	return topics
}

// MachineRelationTopic resolves the topic for a relation kind and machine.
// Unknown kinds yield an empty topic, which the relay rejects.
func MachineRelationTopic(kind RelationKind, id MachineID) string {
	switch RelationKind(strings.ToLower(strings.TrimSpace(string(kind)))) {
	case RelationCommands:
		return MachineCommandsTopic(id)
	case RelationLogs:
		return MachineLogsTopic(id)
	case RelationStatus:
		return MachineTopic(id)
	default:
		return ""
	}
}

// ValidTopic reports whether topic can be used as a subscription key.
func ValidTopic(topic string) bool {
	return strings.TrimSpace(topic) != ""
}

// ParseMachineID converts the textual form used by clients into a MachineID.
func ParseMachineID(raw string) (MachineID, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return MachineID(value), nil
}
