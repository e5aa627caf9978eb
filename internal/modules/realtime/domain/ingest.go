package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// IngestEvent is a state change reported by a domain service, either over Kafka
// or through the REST ingestion endpoint. Data is relayed as is; MachineID,
// when set, routes events whose data does not carry a machineId member.
type IngestEvent struct {
	Hub        string          `json:"hub"`
	Event      string          `json:"event"`
	MachineID  *MachineID      `json:"machineId,omitempty"`
	Data       json.RawMessage `json:"data"`
	Source     string          `json:"-"`
	ReceivedAt time.Time       `json:"-"`
}

// Key returns the routing key "hub.event" used by the ingest router.
func (e IngestEvent) Key() string {
	return IngestKey(e.Hub, e.Event)
}

// IngestKey builds the canonical routing key for hub and event.
func IngestKey(hub, event string) string {
	normalizedHub := NormalizeHub(hub)
	trimmedEvent := strings.TrimSpace(event)
	if normalizedHub == "" || trimmedEvent == "" {
		return ""
	}
	return normalizedHub + "." + strings.ToLower(trimmedEvent)
}
