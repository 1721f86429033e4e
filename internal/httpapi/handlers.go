package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"droptrack/internal/core"
	applog "droptrack/internal/log"

	"github.com/gorilla/mux"
)

// handleSaveRecord upserts the day named in the body. The PUT variant keeps
// old clients working; the path id is ignored because days are addressed by
// date, not by row id.
func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)
	if !s.writeLimiter.allow(clientIP) {
		slog.WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
		w.Header().Set("Retry-After", "60")
		s.writeJSON(w, r, http.StatusTooManyRequests, envelope{Success: false, Message: "rate limit exceeded"})
		return
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	record, err := s.records.Save(r.Context(), payload)
	if err != nil {
		if errors.Is(err, core.ErrMissingDate) || errors.Is(err, core.ErrNegativeAmount) {
			s.respondError(w, r, http.StatusBadRequest, "invalid record", err)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "failed to save record", err)
		return
	}

	s.invalidateStats(record.Date)
	s.httpLog.LogRecordSaved(r.Context(), record.Date.String(), record.NetPoints)
	s.respondData(w, r, record)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.All(r.Context())
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to list records", err)
		return
	}
	if records == nil {
		records = []core.DailyRecord{}
	}
	s.respondData(w, r, records)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid date", err)
		return
	}

	record, err := s.records.Get(r.Context(), date)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to load record", err)
		return
	}
	if record == nil {
		// An empty day is an explicit null, not an absent key.
		s.respondData(w, r, json.RawMessage("null"))
		return
	}
	s.respondData(w, r, record)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)
	if !s.writeLimiter.allow(clientIP) {
		slog.WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
		w.Header().Set("Retry-After", "60")
		s.writeJSON(w, r, http.StatusTooManyRequests, envelope{Success: false, Message: "rate limit exceeded"})
		return
	}

	date, err := core.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid date", err)
		return
	}

	if err := s.records.Delete(r.Context(), date); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.writeJSON(w, r, http.StatusNotFound, envelope{Success: false, Message: "record not found"})
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "failed to delete record", err)
		return
	}

	s.invalidateStats(date)
	s.respondMessage(w, r, "record deleted")
}

func (s *Server) handleMonthStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid year", err)
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid month", err)
		return
	}

	key := statsCacheKey(year, month)
	if records, found := s.statsCache.Get(key); found {
		slog.DebugContext(r.Context(), "Stats cache hit", applog.FieldYear, year, applog.FieldMonth, month)
		s.respondData(w, r, records)
		return
	}

	records, err := s.records.MonthlyStats(r.Context(), year, month)
	if err != nil {
		if errors.Is(err, core.ErrInvalidDate) {
			s.respondError(w, r, http.StatusBadRequest, "invalid month request", err)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "failed to load month stats", err)
		return
	}
	if records == nil {
		records = []core.DailyRecord{}
	}

	s.statsCache.Set(key, records)
	s.respondData(w, r, records)
}

// handleRecordsByTime lists records whose creation timestamps fall inside a
// millisecond range expressed in UTC+8 wall-clock time.
func (s *Server) handleRecordsByTime(w http.ResponseWriter, r *http.Request) {
	startMs, err := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid startTime", err)
		return
	}
	endMs, err := strconv.ParseInt(r.URL.Query().Get("endTime"), 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid endTime", err)
		return
	}

	records, err := s.records.ByCreation(r.Context(), startMs, endMs)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to query records", err)
		return
	}
	if records == nil {
		records = []core.DailyRecord{}
	}
	s.respondData(w, r, records)
}
