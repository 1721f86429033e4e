package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNetPoints(t *testing.T) {
	r := DailyRecord{PointsBalance: 2, PointsTrading: 5, PointsConsumed: 1}
	if got := r.Net(); got != 6 {
		t.Errorf("Net() = %d, want 6", got)
	}
	if got := r.WithNet().NetPoints; got != 6 {
		t.Errorf("WithNet().NetPoints = %d, want 6", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 3 || d.Day() != 5 {
		t.Errorf("got %d-%d-%d", d.Year(), d.Month(), d.Day())
	}
	if d.String() != "2024-03-05" {
		t.Errorf("String() = %q", d.String())
	}

	if _, err := ParseDate("05/03/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if _, err := ParseDate(""); err == nil {
		t.Error("expected error for empty date")
	}
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2024, 4, 3).AddDays(-15)
	if d.String() != "2024-03-19" {
		t.Errorf("AddDays(-15) = %s, want 2024-03-19", d)
	}
}

func TestBuildRecordDefaults(t *testing.T) {
	payload := map[string]json.RawMessage{
		"date": json.RawMessage(`"2024-03-05"`),
	}
	r, err := BuildRecord(payload)
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if !r.Volume.IsZero() || !r.Loss.IsZero() || !r.Income.IsZero() {
		t.Errorf("money fields should default to 0, got %v/%v/%v", r.Volume, r.Loss, r.Income)
	}
	if r.PointsBalance != 2 {
		t.Errorf("points_balance default = %d, want 2", r.PointsBalance)
	}
	if r.PointsTrading != 0 || r.PointsConsumed != 0 {
		t.Errorf("points defaults = %d/%d, want 0/0", r.PointsTrading, r.PointsConsumed)
	}
	if r.NetPoints != 2 {
		t.Errorf("NetPoints = %d, want 2", r.NetPoints)
	}
}

func TestBuildRecordLooseInput(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, r DailyRecord)
	}{
		{
			name:    "quoted numbers",
			payload: `{"date":"2024-03-05","volume":"100.5","points_trading":"5"}`,
			check: func(t *testing.T, r DailyRecord) {
				if r.Volume.String() != "100.5" {
					t.Errorf("volume = %s", r.Volume)
				}
				if r.PointsTrading != 5 {
					t.Errorf("points_trading = %d", r.PointsTrading)
				}
			},
		},
		{
			name:    "non numeric falls back to default",
			payload: `{"date":"2024-03-05","points_balance":"abc","volume":"-"}`,
			check: func(t *testing.T, r DailyRecord) {
				if r.PointsBalance != 2 {
					t.Errorf("points_balance = %d, want default 2", r.PointsBalance)
				}
				if !r.Volume.IsZero() {
					t.Errorf("volume = %s, want default 0", r.Volume)
				}
			},
		},
		{
			name:    "null values",
			payload: `{"date":"2024-03-05","income":null,"points_consumed":null}`,
			check: func(t *testing.T, r DailyRecord) {
				if !r.Income.IsZero() || r.PointsConsumed != 0 {
					t.Errorf("null fields should default, got %s/%d", r.Income, r.PointsConsumed)
				}
			},
		},
		{
			name:    "full timestamp date",
			payload: `{"date":"2024-03-05T00:00:00.000Z"}`,
			check: func(t *testing.T, r DailyRecord) {
				if r.Date.String() != "2024-03-05" {
					t.Errorf("date = %s", r.Date)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]json.RawMessage
			if err := json.Unmarshal([]byte(tt.payload), &payload); err != nil {
				t.Fatalf("unmarshal payload: %v", err)
			}
			r, err := BuildRecord(payload)
			if err != nil {
				t.Fatalf("BuildRecord: %v", err)
			}
			tt.check(t, r)
		})
	}
}

func TestBuildRecordMissingDate(t *testing.T) {
	for _, payload := range []string{`{}`, `{"date":""}`, `{"date":"bogus"}`, `{"volume":5}`} {
		var p map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if _, err := BuildRecord(p); !errors.Is(err, ErrMissingDate) {
			t.Errorf("payload %s: err = %v, want ErrMissingDate", payload, err)
		}
	}
}

func TestValidateNegativeAmount(t *testing.T) {
	var p map[string]json.RawMessage
	if err := json.Unmarshal([]byte(`{"date":"2024-03-05","loss":-1}`), &p); err != nil {
		t.Fatal(err)
	}
	r, err := BuildRecord(p)
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if err := r.Validate(); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("Validate() = %v, want ErrNegativeAmount", err)
	}
}

func TestShiftedUTC(t *testing.T) {
	// 2024-03-05 08:00 read as a UTC+8 wall clock is 2024-03-05 00:00 UTC.
	ms := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC).UnixMilli()
	got := ShiftedUTC(ms)
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ShiftedUTC = %v, want %v", got, want)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	r := DailyRecord{Date: NewDate(2024, 3, 5)}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back DailyRecord
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Date.Equal(r.Date) {
		t.Errorf("round trip date = %s, want %s", back.Date, r.Date)
	}
}
