package routing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteErrorJSONEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/employees/api/employees", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()

	WriteError(rec, req, RouteClassInternalAPI, http.StatusUnprocessableEntity, "invalid_form", "name is required")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Code != "invalid_form" || env.Message != "name is required" {
		t.Fatalf("envelope=%+v", env)
	}
	if env.TraceID != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace_id=%q", env.TraceID)
	}
	if env.Meta.Path != "/employees/api/employees" || env.Meta.Method != http.MethodPost {
		t.Fatalf("meta=%+v", env.Meta)
	}
}

func TestWriteErrorPlainTextForUI(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/somewhere", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, RouteClassUI, http.StatusNotFound, "not_found", "not found")

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q", ct)
	}
}

func TestTraceIDFromRequest(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "junk", want: ""},
		{header: "00-00000000000000000000000000000000-00f067aa0ba902b7-01", want: ""},
		{header: "00-ZZf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", want: ""},
		{header: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", want: "4bf92f3577b34da6a3ce929d0e0e4736"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("traceparent", tc.header)
		}
		if got := traceIDFromRequest(req); got != tc.want {
			t.Errorf("header %q: got %q want %q", tc.header, got, tc.want)
		}
	}
}
