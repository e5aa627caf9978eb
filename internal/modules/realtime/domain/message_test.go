package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewMessageStampsUTCAndKeepsArguments(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("ICT", 7*60*60)
	at := time.Date(2025, time.March, 3, 9, 30, 0, 0, loc)
	msg := NewMessage(" command ", " Machine_5_Commands ", " NewCommand ", at, map[string]any{"id": 1}, "extra")

	if msg.Hub != HubCommand {
		t.Fatalf("unexpected hub: %s", msg.Hub)
	}
	if msg.Topic != "Machine_5_Commands" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if msg.Event != EventNewCommand {
		t.Fatalf("unexpected event: %s", msg.Event)
	}
	if !msg.Timestamp.Equal(at) || msg.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp not normalized to UTC: %s", msg.Timestamp)
	}
	if len(msg.Arguments) != 2 {
		t.Fatalf("expected 2 arguments got %d", len(msg.Arguments))
	}
}

func TestNewMessageWithoutArgumentsEncodesEmptyArray(t *testing.T) {
	t.Parallel()

	msg := NewMessage(HubMachine, "", EventPong, time.Unix(0, 0))
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	args, ok := decoded["arguments"].([]any)
	if !ok || len(args) != 0 {
		t.Fatalf("expected empty arguments array, got %#v", decoded["arguments"])
	}
	if _, ok := decoded["topic"]; ok {
		t.Fatal("expected topic to be omitted when empty")
	}
}

func TestIngestKey(t *testing.T) {
	t.Parallel()

	cases := map[[2]string]string{
		{"Commands", "NewCommand"}: "command.newcommand",
		{"logs", " NewLogEntry "}:  "log.newlogentry",
		{"unknown", "NewCommand"}:  "",
		{"machine", ""}:            "",
	}
	for input, expected := range cases {
		if actual := IngestKey(input[0], input[1]); actual != expected {
			t.Fatalf("IngestKey(%q, %q) expected %q got %q", input[0], input[1], expected, actual)
		}
	}
}
