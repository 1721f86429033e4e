package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"droptrack/internal/core"
	"droptrack/internal/httpapi"
	"droptrack/internal/service"
	"droptrack/internal/store"
)

func newTestBackend(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.NewRecords(store.NewMemory(), nil)
	srv := httpapi.NewServer(":0", svc, httpapi.Options{
		SessionSecret: "0123456789abcdef0123456789abcdef",
		Auth: httpapi.AuthOptions{
			Username:   "admin",
			Password:   "secret",
			SessionTTL: time.Hour,
		},
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func newLoggedInClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Login(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return c
}

func TestClientAuthFlow(t *testing.T) {
	ts := newTestBackend(t)
	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := c.Records(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized before login, got %v", err)
	}

	if err := c.Login(ctx, "admin", "bad"); err == nil {
		t.Fatal("login with wrong password succeeded")
	}
	if err := c.Login(ctx, "admin", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	authed, err := c.CheckAuth(ctx)
	if err != nil || !authed {
		t.Fatalf("CheckAuth = %v, %v", authed, err)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := c.Records(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestClientRecordRoundTrip(t *testing.T) {
	ts := newTestBackend(t)
	c := newLoggedInClient(t, ts)
	ctx := context.Background()

	saved, err := c.SaveRecord(ctx, map[string]any{
		"date":           "2024-03-15",
		"points_trading": 5,
		"income":         "12.5",
	})
	if err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if saved.NetPoints != 7 {
		t.Errorf("net points = %d, want 7", saved.NetPoints)
	}

	got, err := c.Record(ctx, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got == nil || !got.Income.Equal(saved.Income) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	absent, err := c.Record(ctx, core.NewDate(2024, 3, 16))
	if err != nil {
		t.Fatalf("Record absent: %v", err)
	}
	if absent != nil {
		t.Errorf("expected nil for absent day, got %+v", absent)
	}

	months, err := c.FetchMonth(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("FetchMonth: %v", err)
	}
	if len(months) != 1 || !months[0].Date.Equal(core.NewDate(2024, 3, 15)) {
		t.Fatalf("FetchMonth = %+v", months)
	}

	if err := c.DeleteRecord(ctx, core.NewDate(2024, 3, 15)); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if err := c.DeleteRecord(ctx, core.NewDate(2024, 3, 15)); err == nil {
		t.Fatal("deleting an absent day should fail")
	}
}

func TestClientRecordsByCreation(t *testing.T) {
	ts := newTestBackend(t)
	c := newLoggedInClient(t, ts)
	ctx := context.Background()

	if _, err := c.SaveRecord(ctx, map[string]any{"date": "2024-03-15"}); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	now := time.Now()
	records, err := c.RecordsByCreation(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecordsByCreation: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected the fresh record inside the window, got %d", len(records))
	}

	records, err = c.RecordsByCreation(ctx, now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("RecordsByCreation: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty window, got %d", len(records))
	}
}

func TestClientExport(t *testing.T) {
	ts := newTestBackend(t)
	c := newLoggedInClient(t, ts)
	ctx := context.Background()

	if _, err := c.SaveRecord(ctx, map[string]any{"date": "2024-03-15"}); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	data, err := c.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(data) < 4 || data[0] != 'P' || data[1] != 'K' {
		t.Error("export payload is not a zip archive")
	}
}
