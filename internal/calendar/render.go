package calendar

import (
	"time"

	"droptrack/internal/core"
)

// LongPressThreshold separates an edit tap from a delete hold on a day cell.
const LongPressThreshold = 500 * time.Millisecond

// PressAction is what a completed press on a day cell means.
type PressAction int

const (
	ActionNone PressAction = iota
	ActionEdit
	ActionDelete
)

// DayCell is one renderable cell of a month grid.
type DayCell struct {
	Day       int
	Date      core.Date
	HasRecord bool
	Record    core.DailyRecord
	Income    string // "12.50U" or "-"
	Loss      string
	NetPoints int
	IsToday   bool
	Inert     bool // future days take no input
}

// MonthGrid is one month laid out for a Sunday-first calendar: the number of
// blank cells before day 1, then the day cells in order.
type MonthGrid struct {
	Key           MonthKey
	Title         string
	LeadingBlanks int
	Days          []DayCell
}

// Renderer builds month grids from cached data.
type Renderer struct {
	cache *MonthCache
	today func() core.Date
}

func NewRenderer(cache *MonthCache, today func() core.Date) *Renderer {
	if today == nil {
		today = core.Today
	}
	return &Renderer{cache: cache, today: today}
}

// Month builds the grid for one month. Days are rendered whether or not the
// month has been fetched; an unfetched month is simply all-empty cells.
func (r *Renderer) Month(key MonthKey) MonthGrid {
	first := core.NewDate(key.Year, key.Month, 1)
	today := r.today()
	days := r.cache.Month(key)

	grid := MonthGrid{
		Key:           key,
		Title:         key.String(),
		LeadingBlanks: int(first.Weekday()),
	}

	for day := 1; day <= daysIn(key.Year, key.Month); day++ {
		cell := DayCell{
			Day:  day,
			Date: core.NewDate(key.Year, key.Month, day),
		}
		cell.IsToday = cell.Date.Equal(today)
		cell.Inert = cell.Date.After(today)
		// Future days never show metrics, even when the cache holds data
		// for them.
		if rec, ok := days[day]; ok && !cell.Inert {
			cell.HasRecord = true
			cell.Record = rec
			cell.NetPoints = rec.Net()
		}
		cell.Income = formatAmount(cell.HasRecord, cell.Record.Income.StringFixed(2))
		cell.Loss = formatAmount(cell.HasRecord, cell.Record.Loss.StringFixed(2))
		grid.Days = append(grid.Days, cell)
	}
	return grid
}

// Year builds the full twelve-month strip for one year.
func (r *Renderer) Year(year int) []MonthGrid {
	grids := make([]MonthGrid, 0, 12)
	for month := 1; month <= 12; month++ {
		grids = append(grids, r.Month(MonthKey{Year: year, Month: month}))
	}
	return grids
}

// Classify maps a press duration on a cell to its action. Inert cells
// swallow all presses; a hold past the threshold on a recorded day means
// delete, anything else opens the editor.
func (c DayCell) Classify(held time.Duration) PressAction {
	if c.Inert {
		return ActionNone
	}
	if held >= LongPressThreshold && c.HasRecord {
		return ActionDelete
	}
	return ActionEdit
}

func formatAmount(has bool, fixed string) string {
	if !has || fixed == "0.00" {
		return "-"
	}
	return fixed + "U"
}

func daysIn(year, month int) int {
	// Day 0 of the next month normalizes to this month's last day.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
