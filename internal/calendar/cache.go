package calendar

import (
	"fmt"
	"sync"

	"droptrack/internal/core"
)

// MonthKey identifies one calendar month. Month runs 1-12.
type MonthKey struct {
	Year  int
	Month int
}

// KeyOf returns the month containing d.
func KeyOf(d core.Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// MonthCache holds fetched records keyed by month, then by day of month.
// It is never authoritative: any month can be reconciled by re-fetch, and
// every mutation is a whole-day replacement, so merges need no field-level
// coordination.
type MonthCache struct {
	mu     sync.Mutex
	months map[MonthKey]map[int]core.DailyRecord
}

func NewMonthCache() *MonthCache {
	return &MonthCache{months: make(map[MonthKey]map[int]core.DailyRecord)}
}

// Merge stores fetched records into their month. Days present in records
// replace cached entries; other cached days of the month stay untouched.
// Merging an empty fetch still marks the month as fetched.
func (c *MonthCache) Merge(key MonthKey, records []core.DailyRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	month, ok := c.months[key]
	if !ok {
		month = make(map[int]core.DailyRecord)
		c.months[key] = month
	}
	for _, r := range records {
		month[r.Date.Day()] = r
	}
}

// Has reports whether the month has been fetched at least once.
func (c *MonthCache) Has(key MonthKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.months[key]
	return ok
}

// Month returns a copy of one month's entries, day of month to record.
func (c *MonthCache) Month(key MonthKey) map[int]core.DailyRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	month, ok := c.months[key]
	if !ok {
		return nil
	}
	out := make(map[int]core.DailyRecord, len(month))
	for day, r := range month {
		out[day] = r
	}
	return out
}

// Get returns the cached record for a single date.
func (c *MonthCache) Get(d core.Date) (core.DailyRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	month, ok := c.months[KeyOf(d)]
	if !ok {
		return core.DailyRecord{}, false
	}
	r, ok := month[d.Day()]
	return r, ok
}

// Remove drops a single day entry, returning the removed record.
func (c *MonthCache) Remove(d core.Date) (core.DailyRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	month, ok := c.months[KeyOf(d)]
	if !ok {
		return core.DailyRecord{}, false
	}
	r, ok := month[d.Day()]
	if ok {
		delete(month, d.Day())
	}
	return r, ok
}

// Each visits every cached record across all months.
func (c *MonthCache) Each(fn func(MonthKey, core.DailyRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, month := range c.months {
		for _, r := range month {
			fn(key, r)
		}
	}
}

// Clear drops every cached month.
func (c *MonthCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.months = make(map[MonthKey]map[int]core.DailyRecord)
}
