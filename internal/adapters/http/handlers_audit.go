package web

import (
	"net/http"
	"strconv"
	"time"

	auditStore "gymtrack/internal/adapters/storage/audit"
	"gymtrack/internal/domain/audit"
)

type auditEventJSON struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Category    string `json:"category"`
	Action      string `json:"action"`
	Actor       string `json:"actor"`
	ResourceID  string `json:"resource_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// handleAPIAudit handles GET /api/audit?category=&actor=&member=&limit=
func (s *Server) handleAPIAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.AuditStore == nil {
		writeJSONError(w, http.StatusNotFound, "audit log is not enabled")
		return
	}
	q := r.URL.Query()
	filter := auditStore.Filter{
		Category:   audit.Category(q.Get("category")),
		Actor:      q.Get("actor"),
		ResourceID: q.Get("member"),
	}
	switch filter.Category {
	case "", audit.CategoryAccount, audit.CategoryMember, audit.CategoryReminder:
	default:
		writeJSONError(w, http.StatusBadRequest, "category must be account, member or reminder")
		return
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = n
	}

	events, err := s.deps.AuditStore.List(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]auditEventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, auditEventJSON{
			ID:          e.ID,
			Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
			Category:    string(e.Category),
			Action:      string(e.Action),
			Actor:       e.Actor,
			ResourceID:  e.ResourceID,
			Description: e.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
