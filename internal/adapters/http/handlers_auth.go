package web

import (
	"errors"
	"net/http"
	"time"

	"gymtrack/internal/adapters/http/middleware"
	"gymtrack/internal/application/orchestrators"
)

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"uptime_s": int(time.Since(s.started).Seconds()),
		"requests": s.perf.Snapshot(time.Now().Add(-15*time.Minute), 5),
	}
	if s.deps.DBStats != nil {
		stats := s.deps.DBStats()
		body["db"] = map[string]int64{"queries": stats.Total, "slow_queries": stats.Slow}
	}
	writeJSON(w, http.StatusOK, body)
}

// handleLoginForm handles GET /login
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, http.StatusOK, "login.html", map[string]any{
		"GymName": s.deps.GymName,
	})
}

// handleLogin handles POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	input := orchestrators.LoginInput{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
		AccountStore: s.deps.AccountStore,
		Clock:        s.deps.Clock,
		Audit:        s.deps.AuditStore,
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, orchestrators.ErrAccountLocked) {
			status = http.StatusTooManyRequests
		}
		renderTemplate(w, r, status, "login.html", map[string]any{
			"GymName":  s.deps.GymName,
			"Username": input.Username,
			"Error":    err.Error(),
		})
		return
	}

	if err := s.sessions.Create(w, r, middleware.Session{
		AccountID: result.AccountID,
		Username:  result.Username,
		Role:      result.Role,
	}); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout handles POST /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(w, r); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
