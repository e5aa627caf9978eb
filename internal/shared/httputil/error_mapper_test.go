package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

var (
	errNotFound = errors.New("not found")
	errBad      = errors.New("bad input")
)

func TestErrorMapper_Map(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper(ErrorMapping{Error: errBad, Status: http.StatusBadRequest, Message: "invalid"}).
		WithMapping(errNotFound, http.StatusNotFound, "missing").
		WithDefault(http.StatusBadGateway, "upstream failed")

	cases := map[string]struct {
		err  error
		want HTTPErrorInfo
	}{
		"nil":      {err: nil, want: HTTPErrorInfo{Status: http.StatusOK}},
		"wrapped":  {err: fmt.Errorf("lookup: %w", errNotFound), want: HTTPErrorInfo{Status: http.StatusNotFound, Message: "missing"}},
		"direct":   {err: errBad, want: HTTPErrorInfo{Status: http.StatusBadRequest, Message: "invalid"}},
		"deadline": {err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), want: HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}},
		"canceled": {err: context.Canceled, want: HTTPErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}},
		"other":    {err: errors.New("boom"), want: HTTPErrorInfo{Status: http.StatusBadGateway, Message: "upstream failed"}},
	}
	for name, tc := range cases {
		if got := mapper.Map(tc.err); got != tc.want {
			t.Fatalf("%s: expected %+v got %+v", name, tc.want, got)
		}
	}
}

func TestQuickMap_DefaultsToInternalError(t *testing.T) {
	t.Parallel()

	got := QuickMap(errors.New("boom"), ErrorMapping{Error: errBad, Status: http.StatusBadRequest, Message: "invalid"})
	if got.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", got.Status)
	}
	if got := QuickMap(errBad, ErrorMapping{Error: errBad, Status: http.StatusBadRequest, Message: "invalid"}); got.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", got.Status)
	}
}
