package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	applog "droptrack/internal/log"

	"golang.org/x/crypto/bcrypt"
)

const sessionName = "droptrack_session"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) authenticated(r *http.Request) bool {
	session, err := s.sessions.Get(r, sessionName)
	if err != nil {
		return false
	}
	auth, ok := session.Values["authenticated"].(bool)
	return ok && auth
}

// checkCredentials verifies the submitted pair without leaking which half
// failed through timing: both comparisons always run.
func (s *Server) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.auth.Username)) == 1

	var passOK bool
	if s.auth.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(s.auth.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(s.auth.Password)) == 1
	}

	return userOK && passOK
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)
	if !s.loginLimiter.allow(clientIP) {
		slog.WarnContext(r.Context(), "Login rate limit exceeded", applog.FieldClientIP, clientIP)
		w.Header().Set("Retry-After", "60")
		s.writeJSON(w, r, http.StatusTooManyRequests, envelope{Success: false, Message: "too many login attempts"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if !s.checkCredentials(req.Username, req.Password) {
		slog.WarnContext(r.Context(), "Login failed", applog.FieldClientIP, clientIP)
		s.writeJSON(w, r, http.StatusUnauthorized, envelope{Success: false, Message: "invalid credentials"})
		return
	}

	session, _ := s.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = req.Username
	session.Options.MaxAge = int(s.auth.SessionTTL.Seconds())
	session.Options.HttpOnly = true
	session.Options.SameSite = http.SameSiteLaxMode
	session.Options.Path = "/"
	if err := session.Save(r, w); err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "session error", err)
		return
	}

	slog.InfoContext(r.Context(), "Login succeeded",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldClientIP, clientIP)
	s.respondMessage(w, r, "logged in")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	delete(session.Values, "username")
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "session error", err)
		return
	}
	s.respondMessage(w, r, "logged out")
}

func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r, sessionName)
	if err == nil {
		if auth, ok := session.Values["authenticated"].(bool); ok && auth {
			username, _ := session.Values["username"].(string)
			s.respondData(w, r, map[string]any{"authenticated": true, "username": username})
			return
		}
	}
	s.respondData(w, r, map[string]any{"authenticated": false, "username": nil})
}
