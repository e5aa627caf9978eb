package normalization

import (
	"testing"
	"time"
)

func TestAsInt64(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   any
		want int64
	}{
		"float":   {float64(42), 42},
		"int":     {7, 7},
		"string":  {" 19 ", 19},
		"garbage": {"x", 0},
		"nil":     {nil, 0},
	}
	for name, tc := range cases {
		if got := AsInt64(tc.in); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", name, tc.want, got)
		}
	}
}

func TestAsTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	for _, raw := range []string{"2025-06-01T10:30:00Z", "2025-06-01T17:30:00+07:00", "2025-06-01T10:30:00", "2025-06-01 10:30:00"} {
		if got := AsTime(raw); !got.Equal(want) {
			t.Fatalf("AsTime(%q) = %v", raw, got)
		}
	}
	if got := AsTime("yesterday"); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
}

func TestLookupIgnoresCase(t *testing.T) {
	t.Parallel()

	m := map[string]any{"MachineId": 3.0, "name": "Press"}
	if got := AsInt64(Lookup(m, "machineId")); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := AsString(Lookup(m, "Name")); got != "Press" {
		t.Fatalf("expected Press, got %q", got)
	}
	if Lookup(nil, "x") != nil {
		t.Fatal("expected nil for nil map")
	}
}

func TestSliceFromPayload(t *testing.T) {
	t.Parallel()

	bare := []any{1.0, 2.0}
	cases := map[string]struct {
		in   any
		want int
	}{
		"bare":          {bare, 2},
		"data":          {map[string]any{"data": bare}, 2},
		"items":         {map[string]any{"Items": bare}, 2},
		"nested page":   {map[string]any{"data": map[string]any{"items": bare}}, 2},
		"object":        {map[string]any{"id": 1.0}, 0},
		"not a payload": {"x", 0},
	}
	for name, tc := range cases {
		if got := len(SliceFromPayload(tc.in)); got != tc.want {
			t.Fatalf("%s: expected %d items, got %d", name, tc.want, got)
		}
	}
}

func TestMapFromPayload(t *testing.T) {
	t.Parallel()

	inner := map[string]any{"totalMachines": 3.0}
	if got := MapFromPayload(map[string]any{"data": inner}); got["totalMachines"] != 3.0 {
		t.Fatalf("expected unwrapped map, got %v", got)
	}
	if got := MapFromPayload(inner); got["totalMachines"] != 3.0 {
		t.Fatalf("expected map unchanged, got %v", got)
	}
	if MapFromPayload([]any{}) != nil {
		t.Fatal("expected nil for non-map payload")
	}
}
