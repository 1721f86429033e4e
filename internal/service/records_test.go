package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"droptrack/internal/core"
	"droptrack/internal/store"
)

func payload(t *testing.T, raw string) map[string]json.RawMessage {
	t.Helper()
	var p map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return p
}

func newService() (*Records, *store.Memory) {
	mem := store.NewMemory()
	return NewRecords(mem, nil), mem
}

func TestSaveAppliesDefaultsAndNet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	saved, err := svc.Save(ctx, payload(t, `{"date":"2024-03-05","volume":100,"points_trading":5,"points_consumed":1,"loss":3.5,"income":10}`))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.PointsBalance != 2 {
		t.Errorf("points_balance = %d, want default 2", saved.PointsBalance)
	}
	if saved.NetPoints != 6 {
		t.Errorf("net_points = %d, want 6", saved.NetPoints)
	}
	if saved.ID == 0 {
		t.Error("expected assigned ID")
	}
}

func TestSaveMissingDate(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Save(context.Background(), payload(t, `{"volume":100}`))
	if !errors.Is(err, core.ErrMissingDate) {
		t.Errorf("err = %v, want ErrMissingDate", err)
	}
}

func TestSaveOverwritesSameDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	if _, err := svc.Save(ctx, payload(t, `{"date":"2024-03-05","income":10,"points_trading":5}`)); err != nil {
		t.Fatal(err)
	}
	saved, err := svc.Save(ctx, payload(t, `{"date":"2024-03-05","income":20}`))
	if err != nil {
		t.Fatal(err)
	}

	// Full overwrite: the omitted points_trading reverts to its default.
	if saved.PointsTrading != 0 {
		t.Errorf("points_trading = %d, want 0 after overwrite", saved.PointsTrading)
	}

	got, err := svc.Get(ctx, core.NewDate(2024, 3, 5))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Income.String() != "20" {
		t.Errorf("stored income = %v, want 20", got)
	}

	all, _ := svc.All(ctx)
	if len(all) != 1 {
		t.Errorf("records = %d, want 1 (upsert, not insert)", len(all))
	}
}

func TestGetEmptyDate(t *testing.T) {
	svc, _ := newService()
	got, err := svc.Get(context.Background(), core.NewDate(2024, 3, 5))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty date, got %+v", got)
	}
}

func TestMonthlyStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	for _, raw := range []string{
		`{"date":"2024-03-05","volume":100,"points_trading":5,"points_consumed":1,"loss":3.5,"income":10}`,
		`{"date":"2024-03-01","income":1}`,
		`{"date":"2024-04-02","income":2}`,
	} {
		if _, err := svc.Save(ctx, payload(t, raw)); err != nil {
			t.Fatal(err)
		}
	}

	march, err := svc.MonthlyStats(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("MonthlyStats: %v", err)
	}
	if len(march) != 2 {
		t.Fatalf("march = %d records, want 2", len(march))
	}
	if march[0].Date.String() != "2024-03-01" {
		t.Errorf("order = %s first, want 2024-03-01", march[0].Date)
	}
	if march[1].NetPoints != 6 {
		t.Errorf("net_points = %d, want 6", march[1].NetPoints)
	}

	april, err := svc.MonthlyStats(ctx, 2024, 4)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range april {
		if r.Date.String() == "2024-03-05" {
			t.Error("april stats include a march record")
		}
	}

	if _, err := svc.MonthlyStats(ctx, 2024, 13); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestByCreationShiftsToUTC(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewRecords(mem, nil)

	created := time.Date(2024, 3, 5, 0, 30, 0, 0, time.UTC)
	mem.SetClock(func() time.Time { return created })
	if _, err := svc.Save(ctx, payload(t, `{"date":"2024-03-05"}`)); err != nil {
		t.Fatal(err)
	}

	// The UTC+8 wall clock reads 08:30 at that instant; a local window of
	// [08:00, 09:00] must cover it after the shift.
	dayStart := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC).UnixMilli()
	dayEnd := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC).UnixMilli()

	got, err := svc.ByCreation(ctx, dayStart, dayEnd)
	if err != nil {
		t.Fatalf("ByCreation: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}

	// Without the shift the same window misses the record.
	got, err = svc.ByCreation(ctx, dayStart+9*3600*1000, dayEnd+9*3600*1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("records = %d, want 0 outside shifted window", len(got))
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	err := svc.Delete(ctx, core.NewDate(2024, 3, 5))
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("delete absent: err = %v, want ErrNotFound", err)
	}

	if _, err := svc.Save(ctx, payload(t, `{"date":"2024-03-05"}`)); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, core.NewDate(2024, 3, 5)); err != nil {
		t.Errorf("delete existing: %v", err)
	}

	got, err := svc.Get(ctx, core.NewDate(2024, 3, 5))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("record still readable after delete")
	}
}

func TestAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	for _, raw := range []string{
		`{"date":"2024-03-05"}`,
		`{"date":"2024-03-20"}`,
	} {
		if _, err := svc.Save(ctx, payload(t, raw)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all[0].Date.String() != "2024-03-20" {
		t.Errorf("first = %s, want newest date", all[0].Date)
	}
}
