package auth

import (
	"net/http/httptest"
	"testing"
)

func TestExtractToken(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		target string
		header string
		want   string
	}{
		"bearer header":        {target: "/hubs/machine", header: "Bearer abc", want: "abc"},
		"lowercase bearer":     {target: "/hubs/machine", header: "bearer  abc ", want: "abc"},
		"header wins":          {target: "/hubs/machine?access_token=q", header: "Bearer h", want: "h"},
		"access_token query":   {target: "/hubs/log?access_token=q1&token=q2", want: "q1"},
		"token query":          {target: "/hubs/log?token=q2", want: "q2"},
		"basic header ignored": {target: "/hubs/log", header: "Basic Zm9v", want: ""},
		"none":                 {target: "/hubs/log", want: ""},
	}
	for name, tc := range cases {
		req := httptest.NewRequest("GET", tc.target, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := ExtractToken(req); got != tc.want {
			t.Fatalf("%s: expected %q got %q", name, tc.want, got)
		}
	}
	if got := ExtractToken(nil); got != "" {
		t.Fatalf("nil request: expected empty token got %q", got)
	}
}
