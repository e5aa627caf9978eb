package domain

import (
	"strings"
	"time"
)

// Message is the notification envelope written to hub connections.
// Arguments are relayed verbatim; the relay never inspects them.
type Message struct {
	Hub       string    `json:"hub"`
	Topic     string    `json:"topic,omitempty"`
	Event     string    `json:"event"`
	Arguments []any     `json:"arguments"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds an envelope stamped with at (UTC).
func NewMessage(hub, topic, event string, at time.Time, args ...any) *Message {
	if args == nil {
		args = []any{}
	}
	return &Message{
		Hub:       strings.TrimSpace(hub),
		Topic:     strings.TrimSpace(topic),
		Event:     strings.TrimSpace(event),
		Arguments: args,
		Timestamp: at.UTC(),
	}
}
