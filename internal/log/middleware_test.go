package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func bufferedLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func serve(handler http.Handler) {
	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestMiddlewareInstallsContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferedLogger(&buf, ComponentApp)

	var got *Logger
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	serve(handler)

	if got != logger {
		t.Errorf("FromContext returned %p, want the installed logger %p", got, logger)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected a usable fallback logger")
	}
	if logger.Component() != "unknown" {
		t.Errorf("fallback component = %q", logger.Component())
	}
}

func TestRequestIDMiddlewareEnrichesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferedLogger(&buf, ComponentApp)

	extract := func(r *http.Request) string { return "req-42" }
	handler := Middleware(logger)(RequestIDMiddleware(extract)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		})))
	serve(handler)

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("log line missing request id: %s", buf.String())
	}
}

func TestComponentMiddlewareRetags(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferedLogger(&buf, ComponentApp)

	handler := Middleware(logger)(ComponentMiddleware(ComponentHTTP)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		})))
	serve(handler)

	if !strings.Contains(buf.String(), "component=http") {
		t.Errorf("log line missing retagged component: %s", buf.String())
	}
}

func TestStructuredLoggerPrefersContextLogger(t *testing.T) {
	var fallback, fromCtx bytes.Buffer
	sl := NewStructuredLogger(bufferedLogger(&fallback, ComponentRecord))

	ctx := WithLogger(context.Background(), bufferedLogger(&fromCtx, ComponentRecord))
	sl.LogRecordSaved(ctx, "2024-03-05", 4)

	out := fromCtx.String()
	if !strings.Contains(out, "date=2024-03-05") || !strings.Contains(out, "net_points=4") {
		t.Errorf("context logger missing record fields: %s", out)
	}
	if fallback.Len() != 0 {
		t.Errorf("fallback logger written despite context logger: %s", fallback.String())
	}
}

func TestStructuredLoggerFallsBack(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferedLogger(&buf, ComponentHTTP))

	sl.LogError(context.Background(), "Request failed", errors.New("disk full"), NewFields().WithOperation(OpSave))

	out := buf.String()
	if !strings.Contains(out, "disk full") || !strings.Contains(out, "operation=save") {
		t.Errorf("fallback log line incomplete: %s", out)
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{500, "level=ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(bufferedLogger(&buf, ComponentHTTP))
		req := httptest.NewRequest(http.MethodGet, "/api/records", nil)

		sl.LogHTTPEnd(context.Background(), req, tt.status, 12, "127.0.0.1")

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: want %s in %s", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "status_code="+strconv.Itoa(tt.status)) {
			t.Errorf("status %d: missing status_code field: %s", tt.status, out)
		}
	}
}
