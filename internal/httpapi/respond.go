package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	applog "droptrack/internal/log"
)

// envelope is the wire shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.ErrorContext(r.Context(), "Response encoding failed", "error", err, "url", r.URL.Path)
	}
}

func (s *Server) respondData(w http.ResponseWriter, r *http.Request, data any) {
	s.writeJSON(w, r, http.StatusOK, envelope{Success: true, Data: data})
}

func (s *Server) respondMessage(w http.ResponseWriter, r *http.Request, message string) {
	s.writeJSON(w, r, http.StatusOK, envelope{Success: true, Message: message})
}

// respondError hides failure detail outside development.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, public string, err error) {
	if err != nil {
		s.httpLog.LogError(r.Context(), "Request failed", err, applog.LogFields{
			applog.FieldStatusCode: status,
			applog.FieldPath:       r.URL.Path,
		})
	}
	msg := public
	if s.development && err != nil {
		msg = public + ": " + err.Error()
	}
	s.writeJSON(w, r, status, envelope{Success: false, Message: msg})
}
