package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gymtrack/internal/adapters/http/middleware"
	"gymtrack/internal/application/orchestrators"
	"gymtrack/internal/application/projections"
	"gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
)

func (s *Server) memberDeps() orchestrators.MemberDeps {
	return orchestrators.MemberDeps{
		MemberStore: s.deps.MemberStore,
		Calculator:  s.deps.Calculator,
		Clock:       s.deps.Clock,
		Location:    s.deps.Location,
		Audit:       s.deps.AuditStore,
	}
}

// dashboardForm is the add-member form state, refilled after a rejected submit.
type dashboardForm struct {
	orchestrators.MemberInput
	Field string
	Error string
}

// renderDashboard renders the member list, the add form and the reminders panel.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, form dashboardForm) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	list, err := projections.QueryMemberList(ctx, projections.MemberListQuery{Query: query, WindowDays: s.deps.WindowDays}, projections.MemberListDeps{
		MemberStore: s.deps.MemberStore,
		Clock:       s.deps.Clock,
		Location:    s.deps.Location,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	expiring, err := projections.QueryExpiringMembers(ctx, projections.ExpiringQuery{WindowDays: s.deps.WindowDays}, projections.ExpiringDeps{
		MemberStore: s.deps.MemberStore,
		Clock:       s.deps.Clock,
		Location:    s.deps.Location,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	if form.StartDate == "" && form.Error == "" {
		form.StartDate = membership.FormatDate(list.Today)
	}
	renderTemplate(w, r, status, "dashboard.html", map[string]any{
		"GymName":  s.deps.GymName,
		"Query":    query,
		"List":     list,
		"Expiring": expiring,
		"Plans":    membership.Plans,
		"Form":     form,
		"Flashes":  s.sessions.Flashes(w, r),
	})
}

// handleDashboard handles GET /
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK, dashboardForm{})
}

// handleAddMember handles POST /members
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	in := orchestrators.MemberInput{
		Name:       r.FormValue("name"),
		Phone:      r.FormValue("phone"),
		Email:      r.FormValue("email"),
		Plan:       r.FormValue("plan"),
		StartDate:  r.FormValue("start_date"),
		ExpiryDate: r.FormValue("expiry_date"),
	}
	rec, err := orchestrators.ExecuteAddMember(r.Context(), orchestrators.AddMemberInput{
		MemberInput: in,
		RecordedBy:  r.FormValue("recorded_by"),
		Actor:       sess.Username,
	}, s.memberDeps())
	var verr *orchestrators.ValidationError
	if errors.As(err, &verr) {
		s.renderDashboard(w, r, http.StatusUnprocessableEntity, dashboardForm{MemberInput: in, Field: verr.Field, Error: verr.Err.Error()})
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	_ = s.sessions.AddFlash(w, r, fmt.Sprintf("Added %s, membership ends %s.", rec.Name, membership.FormatDate(rec.ExpiryDate)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDeleteMember handles POST /members/{id}/delete
func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	id := chi.URLParam(r, "id")

	err := orchestrators.ExecuteDeleteMember(r.Context(), orchestrators.DeleteMemberInput{ID: id, DeletedBy: sess.Username}, s.memberDeps())
	if errors.Is(err, member.ErrNotFound) {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	_ = s.sessions.AddFlash(w, r, "Member deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
