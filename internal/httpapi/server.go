package httpapi

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"droptrack/internal/core"
	applog "droptrack/internal/log"
	"droptrack/internal/service"
	appweb "droptrack/web"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

// AuthOptions carries credential and session settings for the API.
type AuthOptions struct {
	Username     string
	Password     string
	PasswordHash string
	SessionTTL   time.Duration
}

// Options configures a Server beyond its listen address.
type Options struct {
	Development    bool
	SessionSecret  string
	Auth           AuthOptions
	StatsCacheSize int
	StatsCacheTTL  time.Duration
}

type Server struct {
	http.Server
	records  *service.Records
	sessions *sessions.CookieStore
	auth     AuthOptions

	loginLimiter *rateLimiter
	writeLimiter *rateLimiter

	// LRU cache for monthly stats, keyed by "year-month"
	statsCache *lruCache[[]core.DailyRecord]

	development bool

	logger  *applog.Logger
	httpLog *applog.StructuredLogger

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, records *service.Records, opts Options) *Server {
	if opts.StatsCacheSize <= 0 {
		opts.StatsCacheSize = 64
	}
	if opts.StatsCacheTTL <= 0 {
		opts.StatsCacheTTL = 5 * time.Minute
	}
	if opts.Auth.SessionTTL <= 0 {
		opts.Auth.SessionTTL = 24 * time.Hour
	}

	store := sessions.NewCookieStore([]byte(opts.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.Auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger := applog.New(applog.Config{Component: applog.ComponentApp})

	s := &Server{
		records:          records,
		sessions:         store,
		auth:             opts.Auth,
		logger:           logger,
		httpLog:          applog.NewStructuredLogger(logger),
		loginLimiter:     newRateLimiter(10, time.Minute),
		writeLimiter:     newRateLimiter(60, time.Minute),
		statsCache:       newLRUCache[[]core.DailyRecord](opts.StatsCacheSize, opts.StatsCacheTTL),
		development:      opts.Development,
		stopCacheCleanup: make(chan struct{}),
	}

	router := mux.NewRouter()

	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/api/logout", s.handleLogout).Methods(http.MethodPost)
	router.HandleFunc("/api/check-auth", s.handleCheckAuth).Methods(http.MethodGet)

	router.HandleFunc("/api/records", s.requireAuth(s.handleSaveRecord)).Methods(http.MethodPost)
	router.HandleFunc("/api/records/{id:[0-9]+}", s.requireAuth(s.handleSaveRecord)).Methods(http.MethodPut)
	router.HandleFunc("/api/records", s.requireAuth(s.handleListRecords)).Methods(http.MethodGet)

	// Literal segments must register ahead of the {date} pattern.
	router.HandleFunc("/api/records-by-time", s.requireAuth(s.handleRecordsByTime)).Methods(http.MethodGet)
	router.HandleFunc("/api/records/{date}", s.requireAuth(s.handleGetRecord)).Methods(http.MethodGet)
	router.HandleFunc("/api/records/{date}", s.requireAuth(s.handleDeleteRecord)).Methods(http.MethodDelete)

	router.HandleFunc("/api/stats/{year:[0-9]+}/{month:[0-9]+}", s.requireAuth(s.handleMonthStats)).Methods(http.MethodGet)
	router.HandleFunc("/api/export", s.requireAuth(s.handleExport)).Methods(http.MethodGet)

	// Static frontend (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		router.PathPrefix("/").Handler(http.FileServer(http.FS(sub)))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.withObservability(router),
	}

	go s.startCacheCleanup()

	return s
}

// startCacheCleanup runs periodic cleanup for the stats cache.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.statsCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "stats_entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.loginLimiter.stop()
		s.writeLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func statsCacheKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateStats(d core.Date) {
	s.statsCache.Delete(statsCacheKey(d.Year(), d.Month()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondData(w, r, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
