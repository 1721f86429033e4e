package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"droptrack/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Fetcher loads one month of records from the source of truth. Fetches must
// be idempotent: the manager re-issues them freely and merges whatever
// arrives, so a stale response is at worst a redundant refresh.
type Fetcher interface {
	FetchMonth(ctx context.Context, year, month int) ([]core.DailyRecord, error)
}

var (
	// ErrNavigationInFlight rejects a year switch while one is pending.
	// There is no queueing and no cancellation: exactly one transition at
	// a time.
	ErrNavigationInFlight = errors.New("year transition already in flight")
)

// DefaultLookbackDays is the rolling net-points window, today inclusive.
const DefaultLookbackDays = 15

// scrollBatch is how many further months one scroll threshold crossing may
// fetch within the active year.
const scrollBatch = 2

// Config configures a window Manager.
type Config struct {
	Fetcher      Fetcher
	Today        func() core.Date // defaults to core.Today
	LookbackDays int              // defaults to DefaultLookbackDays
}

// MonthStats is the statistics panel content for one visible month plus the
// rolling lookback total that is independent of month boundaries.
type MonthStats struct {
	Income      decimal.Decimal
	Loss        decimal.Decimal
	NetPoints   int
	LookbackNet int
}

// ViewState is a debounced scroll snapshot reported by the view layer: the
// scroll geometry and the vertical extent of each rendered month.
type ViewState struct {
	ScrollTop      float64
	ViewportHeight float64
	ContentHeight  float64
	Months         []MonthExtent
}

// MonthExtent is one rendered month's position inside the scroll content.
type MonthExtent struct {
	Key    MonthKey
	Top    float64
	Height float64
}

// ScrollUpdate reports what a scroll tick changed.
type ScrollUpdate struct {
	Visible        MonthKey
	VisibleChanged bool
	Stats          MonthStats
	Fetched        []MonthKey
}

// Manager keeps the sparse month cache consistent with the remote store
// while the user scrolls, jumps years, edits and deletes. Exported methods
// are safe for concurrent use; the mutex guards only the view state and the
// in-flight flags, never a fetch.
type Manager struct {
	fetcher  Fetcher
	cache    *MonthCache
	today    func() core.Date
	lookback int

	mu         sync.Mutex
	activeYear int
	visible    MonthKey
	navigating bool
	loading    bool
}

func NewManager(cfg Config) *Manager {
	today := cfg.Today
	if today == nil {
		today = core.Today
	}
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	return &Manager{
		fetcher:  cfg.Fetcher,
		cache:    NewMonthCache(),
		today:    today,
		lookback: lookback,
	}
}

// Cache exposes the month cache for rendering.
func (m *Manager) Cache() *MonthCache { return m.cache }

// ActiveYear returns the year currently rendered across all twelve months.
func (m *Manager) ActiveYear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeYear
}

// Visible returns the month whose grid occupies the viewport midpoint.
func (m *Manager) Visible() MonthKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

func (m *Manager) beginNavigation() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.navigating {
		return false
	}
	m.navigating = true
	return true
}

func (m *Manager) endNavigation() {
	m.mu.Lock()
	m.navigating = false
	m.mu.Unlock()
}

// Init loads the current year and points the view at today's month.
func (m *Manager) Init(ctx context.Context) error {
	if !m.beginNavigation() {
		return ErrNavigationInFlight
	}
	defer m.endNavigation()

	today := m.today()
	m.mu.Lock()
	m.activeYear = today.Year()
	m.visible = KeyOf(today)
	year := m.activeYear
	m.mu.Unlock()

	if err := m.fetchYear(ctx, year); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	return nil
}

// SwitchYear moves the active year by delta (usually ±1), re-fetching all
// twelve months. A switch arriving while another is in flight is rejected
// outright. On failure the transition aborts but months that already
// resolved stay merged.
func (m *Manager) SwitchYear(ctx context.Context, delta int) error {
	if !m.beginNavigation() {
		slog.DebugContext(ctx, "Year switch rejected, transition in flight")
		return ErrNavigationInFlight
	}
	defer m.endNavigation()

	m.mu.Lock()
	m.activeYear += delta
	year := m.activeYear
	m.mu.Unlock()

	// The view restarts from a clean slate for the new year; stale months
	// from the old window would otherwise leak into the lookback total.
	m.cache.Clear()

	if err := m.fetchYear(ctx, year); err != nil {
		return fmt.Errorf("switch to year %d: %w", year, err)
	}

	m.mu.Lock()
	m.visible = MonthKey{Year: year, Month: 1}
	m.mu.Unlock()
	return nil
}

// fetchYear issues one concurrent fetch per month of the year, plus the
// trailing months of the previous year when today sits close enough to the
// year start that the lookback window reaches back across it. Completion is
// gated on every fetch settling; the first error aborts.
func (m *Manager) fetchYear(ctx context.Context, year int) error {
	g, gctx := errgroup.WithContext(ctx)

	for month := 1; month <= 12; month++ {
		key := MonthKey{Year: year, Month: month}
		g.Go(func() error {
			return m.fetchAndMerge(gctx, key)
		})
	}

	today := m.today()
	horizon := today.AddDate(0, -3, 0)
	if horizon.Year() < year {
		for month := int(horizon.Month()); month <= 12; month++ {
			key := MonthKey{Year: year - 1, Month: month}
			g.Go(func() error {
				return m.fetchAndMerge(gctx, key)
			})
		}
	}

	return g.Wait()
}

func (m *Manager) fetchAndMerge(ctx context.Context, key MonthKey) error {
	records, err := m.fetcher.FetchMonth(ctx, key.Year, key.Month)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", key, err)
	}
	m.cache.Merge(key, records)
	return nil
}

// HandleScroll processes one debounced scroll tick: it loads further months
// when the view nears the bottom of the content, then re-resolves which
// month occupies the viewport midpoint, refreshing its data and statistics
// when it changed.
func (m *Manager) HandleScroll(ctx context.Context, view ViewState) (ScrollUpdate, error) {
	update := ScrollUpdate{Visible: m.Visible()}

	fetched, err := m.loadAhead(ctx, view)
	update.Fetched = fetched
	if err != nil {
		return update, err
	}

	midpoint := view.ScrollTop + view.ViewportHeight/2
	for _, ext := range view.Months {
		if ext.Top <= midpoint && midpoint < ext.Top+ext.Height {
			if ext.Key != update.Visible {
				m.mu.Lock()
				m.visible = ext.Key
				m.mu.Unlock()
				update.Visible = ext.Key
				update.VisibleChanged = true

				// Cheap idempotent refresh of the newly visible month.
				if err := m.fetchAndMerge(ctx, ext.Key); err != nil {
					return update, err
				}
				if err := m.ensureLookback(ctx); err != nil {
					return update, err
				}
				update.Stats = m.Stats(ext.Key)
			}
			break
		}
	}

	return update, nil
}

// loadAhead fetches up to scrollBatch not-yet-fetched months of the active
// year once the remaining scroll distance drops under one viewport height.
// It never crosses into the next year and is serialized behind the loading
// flag, so overlapping scroll ticks cannot double-fetch a boundary.
func (m *Manager) loadAhead(ctx context.Context, view ViewState) ([]MonthKey, error) {
	remaining := view.ContentHeight - (view.ScrollTop + view.ViewportHeight)
	if remaining >= view.ViewportHeight {
		return nil, nil
	}

	m.mu.Lock()
	if m.loading || m.navigating {
		m.mu.Unlock()
		return nil, nil
	}
	m.loading = true
	year := m.activeYear
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	var fetched []MonthKey
	for month := 1; month <= 12 && len(fetched) < scrollBatch; month++ {
		key := MonthKey{Year: year, Month: month}
		if m.cache.Has(key) {
			continue
		}
		if err := m.fetchAndMerge(ctx, key); err != nil {
			return fetched, err
		}
		fetched = append(fetched, key)
	}
	return fetched, nil
}

// Stats computes the visible-month totals plus the rolling lookback net.
func (m *Manager) Stats(key MonthKey) MonthStats {
	stats := MonthStats{Income: decimal.Zero, Loss: decimal.Zero}

	for _, r := range m.cache.Month(key) {
		stats.Income = stats.Income.Add(r.Income)
		stats.Loss = stats.Loss.Add(r.Loss)
		stats.NetPoints += r.Net()
	}

	cutoff := m.today().AddDays(-m.lookback)
	m.cache.Each(func(_ MonthKey, r core.DailyRecord) {
		if !r.Date.Before(cutoff) {
			stats.LookbackNet += r.Net()
		}
	})

	return stats
}

// VisibleStats is Stats for the currently visible month.
func (m *Manager) VisibleStats() MonthStats {
	return m.Stats(m.Visible())
}

// ensureLookback fetches the month containing the lookback cutoff when the
// window reaches into a month the cache has not seen, merging only the days
// inside the window.
func (m *Manager) ensureLookback(ctx context.Context) error {
	today := m.today()
	cutoff := today.AddDays(-m.lookback)
	key := KeyOf(cutoff)
	if key == KeyOf(today) || m.cache.Has(key) {
		return nil
	}

	records, err := m.fetcher.FetchMonth(ctx, key.Year, key.Month)
	if err != nil {
		return fmt.Errorf("fetch lookback month %s: %w", key, err)
	}

	inWindow := records[:0:0]
	for _, r := range records {
		if !r.Date.Before(cutoff) && !r.Date.After(today) {
			inWindow = append(inWindow, r)
		}
	}
	m.cache.Merge(key, inWindow)
	return nil
}

// RecordSaved reconciles the cache after a save. The submitted form data is
// never merged optimistically; the affected month (and the visible month,
// when different) is re-fetched so cache state derives from the store.
func (m *Manager) RecordSaved(ctx context.Context, d core.Date) (MonthStats, error) {
	saved := KeyOf(d)
	if err := m.fetchAndMerge(ctx, saved); err != nil {
		return MonthStats{}, err
	}
	if visible := m.Visible(); visible != saved {
		if err := m.fetchAndMerge(ctx, visible); err != nil {
			return MonthStats{}, err
		}
	}
	if err := m.ensureLookback(ctx); err != nil {
		return MonthStats{}, err
	}
	return m.VisibleStats(), nil
}

// RecordDeleted removes the day locally, with no re-fetch. When the deleted
// day belongs to the visible month the refreshed statistics are returned.
func (m *Manager) RecordDeleted(d core.Date) (MonthStats, bool) {
	m.cache.Remove(d)
	if KeyOf(d) != m.Visible() {
		return MonthStats{}, false
	}
	return m.VisibleStats(), true
}

// Prefill returns the edit form seed for a date: the cached record when one
// exists, otherwise a fresh record with the field defaults.
func (m *Manager) Prefill(d core.Date) core.DailyRecord {
	if r, ok := m.cache.Get(d); ok {
		return r
	}
	return core.DailyRecord{Date: d, PointsBalance: 2}.WithNet()
}
