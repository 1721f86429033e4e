package calendar

import (
	"testing"
	"time"

	"droptrack/internal/core"

	"github.com/shopspring/decimal"
)

func TestMonthGridLayout(t *testing.T) {
	tests := []struct {
		name   string
		key    MonthKey
		blanks int
		days   int
	}{
		{"march 2024 starts friday", MonthKey{2024, 3}, 5, 31},
		{"september 2024 starts sunday", MonthKey{2024, 9}, 0, 30},
		{"february leap year", MonthKey{2024, 2}, 4, 29},
		{"february non leap", MonthKey{2023, 2}, 3, 28},
	}

	r := NewRenderer(NewMonthCache(), fixedToday(2024, 6, 15))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := r.Month(tt.key)
			if grid.LeadingBlanks != tt.blanks {
				t.Errorf("leading blanks = %d, want %d", grid.LeadingBlanks, tt.blanks)
			}
			if len(grid.Days) != tt.days {
				t.Errorf("days = %d, want %d", len(grid.Days), tt.days)
			}
		})
	}
}

func TestMonthGridCells(t *testing.T) {
	cache := NewMonthCache()
	d := core.NewDate(2024, 6, 10)
	recorded := rec(d, 2, 4, 1)
	recorded.Income = decimal.RequireFromString("33.5")
	cache.Merge(KeyOf(d), []core.DailyRecord{recorded})

	r := NewRenderer(cache, fixedToday(2024, 6, 15))
	grid := r.Month(MonthKey{Year: 2024, Month: 6})

	cell := grid.Days[9] // day 10
	if !cell.HasRecord || cell.NetPoints != 5 {
		t.Fatalf("day 10 cell = %+v", cell)
	}
	if cell.Income != "33.50U" {
		t.Errorf("income rendered %q, want 33.50U", cell.Income)
	}
	if cell.Loss != "-" {
		t.Errorf("zero loss rendered %q, want -", cell.Loss)
	}

	empty := grid.Days[1] // day 2, no record
	if empty.HasRecord || empty.Income != "-" || empty.Loss != "-" {
		t.Errorf("empty cell = %+v", empty)
	}

	if !grid.Days[14].IsToday {
		t.Error("day 15 should be marked today")
	}
	if grid.Days[14].Inert {
		t.Error("today must accept input")
	}
	if !grid.Days[15].Inert {
		t.Error("day 16 is in the future and must be inert")
	}
	if grid.Days[13].Inert {
		t.Error("past days must accept input")
	}
}

func TestMonthGridFutureCellHidesCachedMetrics(t *testing.T) {
	cache := NewMonthCache()
	future := core.NewDate(2024, 6, 20)
	recorded := rec(future, 2, 4, 1)
	recorded.Income = decimal.RequireFromString("33.5")
	cache.Merge(KeyOf(future), []core.DailyRecord{recorded})

	r := NewRenderer(cache, fixedToday(2024, 6, 15))
	grid := r.Month(MonthKey{Year: 2024, Month: 6})

	cell := grid.Days[19] // day 20
	if !cell.Inert {
		t.Fatal("day 20 should be inert")
	}
	if cell.HasRecord || cell.NetPoints != 0 {
		t.Errorf("inert cell exposes record data: %+v", cell)
	}
	if cell.Income != "-" || cell.Loss != "-" {
		t.Errorf("inert cell shows amounts: income=%q loss=%q", cell.Income, cell.Loss)
	}
}

func TestRendererYear(t *testing.T) {
	r := NewRenderer(NewMonthCache(), fixedToday(2024, 6, 15))
	grids := r.Year(2024)
	if len(grids) != 12 {
		t.Fatalf("expected 12 grids, got %d", len(grids))
	}
	if grids[0].Title != "2024-01" || grids[11].Title != "2024-12" {
		t.Errorf("titles = %s .. %s", grids[0].Title, grids[11].Title)
	}
}

func TestClassifyPress(t *testing.T) {
	recorded := DayCell{HasRecord: true}
	empty := DayCell{}
	future := DayCell{Inert: true, HasRecord: true}

	tests := []struct {
		name string
		cell DayCell
		held time.Duration
		want PressAction
	}{
		{"tap edits", recorded, 100 * time.Millisecond, ActionEdit},
		{"hold deletes recorded day", recorded, 600 * time.Millisecond, ActionDelete},
		{"hold on empty day edits", empty, 600 * time.Millisecond, ActionEdit},
		{"tap on empty day edits", empty, 50 * time.Millisecond, ActionEdit},
		{"future day ignores everything", future, time.Second, ActionNone},
		{"threshold boundary deletes", recorded, LongPressThreshold, ActionDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cell.Classify(tt.held); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.held, got, tt.want)
			}
		})
	}
}
