package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gymtrack/internal/adapters/http/middleware"
	"gymtrack/internal/adapters/storage/notification"
	"gymtrack/internal/application/listutil"
	"gymtrack/internal/application/orchestrators"
	"gymtrack/internal/application/projections"
	"gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
	domainNotification "gymtrack/internal/domain/notification"
)

// memberJSON is the API representation of a member.
type memberJSON struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email,omitempty"`
	Plan       string  `json:"plan"`
	StartDate  string  `json:"start_date"`
	ExpiryDate string  `json:"expiry_date"`
	RecordedBy string  `json:"recorded_by,omitempty"`
	RecordedAt *string `json:"recorded_at,omitempty"`
	DaysLeft   *int    `json:"days_left,omitempty"`
	Status     string  `json:"status,omitempty"`
}

func toMemberJSON(rec member.Record) memberJSON {
	m := memberJSON{
		ID:         rec.ID,
		Name:       rec.Name,
		Phone:      rec.Phone,
		Email:      rec.Email,
		Plan:       string(rec.Plan),
		StartDate:  membership.FormatDate(rec.StartDate),
		ExpiryDate: membership.FormatDate(rec.ExpiryDate),
		RecordedBy: rec.RecordedBy,
	}
	if !rec.RecordedAt.IsZero() {
		at := rec.RecordedAt.UTC().Format(time.RFC3339)
		m.RecordedAt = &at
	}
	return m
}

// memberRequest is the body of POST and PUT /api/members.
type memberRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Plan       string `json:"plan"`
	StartDate  string `json:"start_date"`
	ExpiryDate string `json:"expiry_date"`
}

func (m memberRequest) input() orchestrators.MemberInput {
	return orchestrators.MemberInput{
		Name:       m.Name,
		Phone:      m.Phone,
		Email:      m.Email,
		Plan:       m.Plan,
		StartDate:  m.StartDate,
		ExpiryDate: m.ExpiryDate,
	}
}

// writeMemberError maps orchestrator errors to API responses.
func writeMemberError(w http.ResponseWriter, err error) {
	var verr *orchestrators.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": verr.Err.Error(), "field": verr.Field})
	case errors.Is(err, member.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "member not found")
	default:
		internalError(w, err)
	}
}

// parseWindow reads ?window=N, falling back to the configured window.
func (s *Server) parseWindow(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return s.deps.WindowDays, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 366 {
		return 0, errors.New("window must be a whole number of days between 0 and 366")
	}
	return n, nil
}

// handleAPIListMembers handles GET /api/members?q=&window=&page=&per_page=
func (s *Server) handleAPIListMembers(w http.ResponseWriter, r *http.Request) {
	window, err := s.parseWindow(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := projections.QueryMemberList(r.Context(), projections.MemberListQuery{Query: r.URL.Query().Get("q"), WindowDays: window}, projections.MemberListDeps{
		MemberStore: s.deps.MemberStore,
		Clock:       s.deps.Clock,
		Location:    s.deps.Location,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	rows := list.Members
	var page *listutil.PageInfo
	if pp, ok, err := listutil.ParsePageParams(r.URL.Query()); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	} else if ok {
		info := listutil.NewPageInfo(pp, len(rows))
		start, end := info.Bounds()
		rows = rows[start:end]
		page = &info
	}

	members := make([]memberJSON, 0, len(rows))
	for _, row := range rows {
		m := toMemberJSON(row.Record)
		if row.HasExpiry {
			days := row.DaysLeft
			m.DaysLeft = &days
		}
		m.Status = row.Status
		members = append(members, m)
	}
	body := map[string]any{
		"today":   membership.FormatDate(list.Today),
		"total":   list.Total,
		"count":   len(members),
		"members": members,
	}
	if page != nil {
		body["page"] = page
	}
	writeJSON(w, http.StatusOK, body)
}

// handleAPIAddMember handles POST /api/members
func (s *Server) handleAPIAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := strictDecode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	rec, err := orchestrators.ExecuteAddMember(r.Context(), orchestrators.AddMemberInput{MemberInput: req.input(), RecordedBy: sess.Username, Actor: sess.Username}, s.memberDeps())
	if err != nil {
		writeMemberError(w, err)
		return
	}
	w.Header().Set("Location", "/api/members/"+rec.ID)
	writeJSON(w, http.StatusCreated, toMemberJSON(rec))
}

// handleAPIGetMember handles GET /api/members/{id}
func (s *Server) handleAPIGetMember(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.MemberStore.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMemberError(w, err)
		return
	}
	m := toMemberJSON(rec)
	today := membership.Today(s.deps.Clock.Now(), s.deps.Location)
	if days, ok := rec.DaysRemaining(today); ok {
		m.DaysLeft = &days
	}
	m.Status = rec.Status(today, s.deps.WindowDays)
	writeJSON(w, http.StatusOK, m)
}

// handleAPIUpdateMember handles PUT /api/members/{id}
func (s *Server) handleAPIUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := strictDecode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	rec, err := orchestrators.ExecuteUpdateMember(r.Context(), orchestrators.UpdateMemberInput{
		ID:          chi.URLParam(r, "id"),
		MemberInput: req.input(),
		UpdatedBy:   sess.Username,
	}, s.memberDeps())
	if err != nil {
		writeMemberError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberJSON(rec))
}

// handleAPIDeleteMember handles DELETE /api/members/{id}
func (s *Server) handleAPIDeleteMember(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	err := orchestrators.ExecuteDeleteMember(r.Context(), orchestrators.DeleteMemberInput{ID: chi.URLParam(r, "id"), DeletedBy: sess.Username}, s.memberDeps())
	if err != nil {
		writeMemberError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expiringJSON struct {
	memberJSON
	DaysLeft int `json:"days_left"`
}

type skippedJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
	Value  string `json:"value,omitempty"`
}

func toSkippedJSON(skipped []projections.SkippedMember) []skippedJSON {
	out := make([]skippedJSON, 0, len(skipped))
	for _, sk := range skipped {
		out = append(out, skippedJSON{ID: sk.ID, Name: sk.Name, Phone: sk.Phone, Reason: sk.Reason, Value: sk.Value})
	}
	return out
}

// handleAPIReminders handles GET /api/reminders?window=
func (s *Server) handleAPIReminders(w http.ResponseWriter, r *http.Request) {
	window, err := s.parseWindow(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := projections.QueryExpiringMembers(r.Context(), projections.ExpiringQuery{WindowDays: window}, projections.ExpiringDeps{
		MemberStore: s.deps.MemberStore,
		Clock:       s.deps.Clock,
		Location:    s.deps.Location,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	members := make([]expiringJSON, 0, len(res.Members))
	for _, m := range res.Members {
		members = append(members, expiringJSON{memberJSON: toMemberJSON(m.Record), DaysLeft: m.DaysLeft})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"today":       membership.FormatDate(res.Today),
		"window_days": res.WindowDays,
		"members":     members,
		"skipped":     toSkippedJSON(res.Skipped),
	})
}

// sendRemindersRequest is the optional body of POST /api/reminders/send.
type sendRemindersRequest struct {
	WindowDays *int     `json:"window_days"`
	Channels   []string `json:"channels"`
	DryRun     bool     `json:"dry_run"`
}

type outcomeJSON struct {
	MemberID  string `json:"member_id"`
	Name      string `json:"name"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient,omitempty"`
	DaysLeft  int    `json:"days_left"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleAPISendReminders handles POST /api/reminders/send
func (s *Server) handleAPISendReminders(w http.ResponseWriter, r *http.Request) {
	var req sendRemindersRequest
	if err := strictDecode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	input := orchestrators.SendRemindersInput{
		WindowDays:  s.deps.WindowDays,
		Channels:    s.deps.Channels,
		DryRun:      req.DryRun,
		TriggeredBy: sess.Username,
	}
	if req.WindowDays != nil {
		if *req.WindowDays < 0 {
			writeJSONError(w, http.StatusBadRequest, "window_days cannot be negative")
			return
		}
		input.WindowDays = *req.WindowDays
	}
	if len(req.Channels) > 0 {
		for _, c := range req.Channels {
			if !domainNotification.IsValidChannel(c) {
				writeJSONError(w, http.StatusBadRequest, domainNotification.ErrInvalidChannel.Error())
				return
			}
		}
		input.Channels = req.Channels
	}

	res, err := orchestrators.ExecuteSendReminders(r.Context(), input, orchestrators.SendRemindersDeps{
		MemberStore:        s.deps.MemberStore,
		NotificationStore:  s.deps.NotificationStore,
		Sender:             s.deps.Sender,
		Renderer:           s.deps.Renderer,
		Clock:              s.deps.Clock,
		Location:           s.deps.Location,
		GymName:            s.deps.GymName,
		DefaultCountryCode: s.deps.DefaultCountryCode,
		Audit:              s.deps.AuditStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	outcomes := make([]outcomeJSON, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		outcomes = append(outcomes, outcomeJSON{
			MemberID:  o.MemberID,
			Name:      o.MemberName,
			Channel:   o.Channel,
			Recipient: o.Recipient,
			DaysLeft:  o.DaysLeft,
			Status:    o.Status,
			Attempts:  o.Attempts,
			Error:     o.Error,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"today":        membership.FormatDate(res.Today),
		"dry_run":      res.DryRun,
		"considered":   res.Considered,
		"sent":         res.Sent,
		"failed":       res.Failed,
		"simulated":    res.Simulated,
		"already_sent": res.AlreadySent,
		"no_contact":   res.NoContact,
		"skipped":      toSkippedJSON(res.Skipped),
		"outcomes":     outcomes,
	})
}

type notificationJSON struct {
	ID         string `json:"id"`
	MemberID   string `json:"member_id"`
	Channel    string `json:"channel"`
	Recipient  string `json:"recipient"`
	ExpiryDate string `json:"expiry_date"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	ProviderID string `json:"provider_id,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	SentAt     string `json:"sent_at,omitempty"`
}

// handleAPINotifications handles GET /api/notifications?limit=
func (s *Server) handleAPINotifications(w http.ResponseWriter, r *http.Request) {
	limit := notification.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	list, err := s.deps.NotificationStore.ListRecent(r.Context(), limit)
	if err != nil {
		internalError(w, err)
		return
	}

	out := make([]notificationJSON, 0, len(list))
	for _, n := range list {
		nj := notificationJSON{
			ID:         n.ID,
			MemberID:   n.MemberID,
			Channel:    n.Channel,
			Recipient:  n.Recipient,
			ExpiryDate: membership.FormatDate(n.ExpiryDate),
			Status:     n.Status,
			Attempts:   n.Attempts,
			ProviderID: n.ProviderID,
			Error:      n.Error,
			CreatedAt:  n.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !n.SentAt.IsZero() {
			nj.SentAt = n.SentAt.UTC().Format(time.RFC3339)
		}
		out = append(out, nj)
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}
