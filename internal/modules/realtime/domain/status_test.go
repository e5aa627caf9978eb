package domain

import "testing"

func TestNormalizeMachineStatus(t *testing.T) {
	cases := map[any]MachineStatus{
		"online":      MachineStatusOnline,
		" OFFLINE ":   MachineStatusOffline,
		"Maintenance": MachineStatusMaintenance,
		"":            MachineStatusUnknown,
		"Calibrating": MachineStatus("Calibrating"),
		42:            MachineStatusUnknown,
	}
	for input, expected := range cases {
		if actual := NormalizeMachineStatus(input); actual != expected {
			t.Fatalf("NormalizeMachineStatus(%v) expected %q got %q", input, expected, actual)
		}
	}
}

func TestNormalizeCommandStatus(t *testing.T) {
	cases := map[any]CommandStatus{
		"pending":   CommandStatusPending,
		"COMPLETED": CommandStatusCompleted,
		" failed ":  CommandStatusFailed,
		nil:         CommandStatusUnknown,
		"Queued":    CommandStatus("Queued"),
	}
	for input, expected := range cases {
		if actual := NormalizeCommandStatus(input); actual != expected {
			t.Fatalf("NormalizeCommandStatus(%v) expected %q got %q", input, expected, actual)
		}
	}
}
