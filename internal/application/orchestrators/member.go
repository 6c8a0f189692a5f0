package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gymtrack/internal/domain/audit"
	"gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
	"gymtrack/internal/platform/clock"
)

// MemberStoreForWrite defines the store interface needed by the member orchestrators.
type MemberStoreForWrite interface {
	Get(ctx context.Context, id string) (member.Record, error)
	Save(ctx context.Context, rec member.Record) error
	Delete(ctx context.Context, id string) error
}

// ValidationError reports which form field was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MemberInput carries the user-entered member fields. Dates are text as typed.
type MemberInput struct {
	Name       string
	Phone      string
	Email      string
	Plan       string
	StartDate  string // empty means today
	ExpiryDate string // required for the custom plan, ignored otherwise
}

// AddMemberInput carries input for AddMember.
// RecordedBy is shown on the member list; Actor is the signed-in user and is what the audit log records.
type AddMemberInput struct {
	MemberInput
	RecordedBy string
	Actor      string
}

// UpdateMemberInput carries input for UpdateMember.
type UpdateMemberInput struct {
	ID string
	MemberInput
	UpdatedBy string
}

// DeleteMemberInput carries input for DeleteMember.
type DeleteMemberInput struct {
	ID        string
	DeletedBy string
}

// MemberDeps holds dependencies for the member orchestrators.
type MemberDeps struct {
	MemberStore MemberStoreForWrite
	Calculator  membership.Calculator
	Clock       clock.Clock
	Location    *time.Location
	GenerateID  func() string
	Audit       AuditRecorder
}

// buildRecord turns form input into a validated record with its expiry set.
// PRE: none
// POST: returns a record passing member.Validate, or a *ValidationError
func buildRecord(in MemberInput, deps MemberDeps) (member.Record, error) {
	rec := member.Record{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
		Email: strings.TrimSpace(in.Email),
	}

	plan, err := membership.ParsePlan(in.Plan)
	if err != nil {
		return member.Record{}, &ValidationError{Field: "plan", Err: err}
	}
	rec.Plan = plan

	if strings.TrimSpace(in.StartDate) == "" {
		rec.StartDate = membership.Today(now(deps.Clock), deps.Location)
	} else if rec.StartDate, err = membership.ParseDate(in.StartDate); err != nil {
		return member.Record{}, &ValidationError{Field: "start_date", Err: err}
	}

	if plan == membership.PlanCustom {
		if strings.TrimSpace(in.ExpiryDate) == "" {
			return member.Record{}, &ValidationError{Field: "expiry_date", Err: membership.ErrCustomPlan}
		}
		if rec.ExpiryDate, err = membership.ParseDate(in.ExpiryDate); err != nil {
			return member.Record{}, &ValidationError{Field: "expiry_date", Err: err}
		}
	} else if rec.ExpiryDate, err = deps.Calculator.ComputeExpiry(rec.StartDate, plan); err != nil {
		return member.Record{}, &ValidationError{Field: "plan", Err: err}
	}

	if err := rec.Validate(); err != nil {
		return member.Record{}, &ValidationError{Field: fieldFor(err), Err: err}
	}
	return rec, nil
}

func fieldFor(err error) string {
	switch {
	case errors.Is(err, member.ErrEmptyName), errors.Is(err, member.ErrNameTooLong):
		return "name"
	case errors.Is(err, member.ErrEmptyPhone), errors.Is(err, member.ErrPhoneTooLong):
		return "phone"
	case errors.Is(err, member.ErrInvalidEmail):
		return "email"
	case errors.Is(err, member.ErrMissingStartDate):
		return "start_date"
	case errors.Is(err, member.ErrMissingExpiryDate), errors.Is(err, member.ErrExpiryBeforeStart):
		return "expiry_date"
	case errors.Is(err, membership.ErrUnknownPlan):
		return "plan"
	}
	return "member"
}

// ExecuteAddMember records a new member.
// PRE: input.Actor is the signed-in username
// POST: Record saved with a new ID; expiry computed unless the plan is custom
func ExecuteAddMember(ctx context.Context, input AddMemberInput, deps MemberDeps) (member.Record, error) {
	rec, err := buildRecord(input.MemberInput, deps)
	if err != nil {
		return member.Record{}, err
	}
	rec.ID = newID(deps.GenerateID)
	rec.RecordedBy = input.RecordedBy
	if rec.RecordedBy == "" {
		rec.RecordedBy = input.Actor
	}
	rec.RecordedAt = now(deps.Clock)

	if err := deps.MemberStore.Save(ctx, rec); err != nil {
		return member.Record{}, fmt.Errorf("save member: %w", err)
	}

	slog.Info("member_event", "event", "member_added",
		"member_id", rec.ID,
		"plan", rec.Plan,
		"expiry", membership.FormatDate(rec.ExpiryDate),
		"recorded_by", rec.RecordedBy,
		"by", input.Actor,
	)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor, audit.CategoryMember, audit.ActionCreate, rec.RecordedAt).
		WithResource(rec.ID).
		WithDescription(fmt.Sprintf("added %s, %s until %s", rec.Name, rec.Plan.Label(), membership.FormatDate(rec.ExpiryDate))))
	return rec, nil
}

// ExecuteUpdateMember overwrites a member's fields and recomputes the expiry.
// PRE: input.ID names an existing member
// POST: Record replaced; RecordedBy and RecordedAt keep their original values,
// since they describe when the member was first recorded. The audit log holds the update.
func ExecuteUpdateMember(ctx context.Context, input UpdateMemberInput, deps MemberDeps) (member.Record, error) {
	existing, err := deps.MemberStore.Get(ctx, input.ID)
	if err != nil {
		return member.Record{}, err
	}

	rec, err := buildRecord(input.MemberInput, deps)
	if err != nil {
		return member.Record{}, err
	}
	rec.ID = existing.ID
	rec.RecordedBy = existing.RecordedBy
	rec.RecordedAt = existing.RecordedAt

	if err := deps.MemberStore.Save(ctx, rec); err != nil {
		return member.Record{}, fmt.Errorf("save member: %w", err)
	}

	slog.Info("member_event", "event", "member_updated",
		"member_id", rec.ID,
		"plan", rec.Plan,
		"expiry", membership.FormatDate(rec.ExpiryDate),
		"by", input.UpdatedBy,
	)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.UpdatedBy, audit.CategoryMember, audit.ActionUpdate, now(deps.Clock)).
		WithResource(rec.ID).
		WithDescription(fmt.Sprintf("updated %s, %s until %s", rec.Name, rec.Plan.Label(), membership.FormatDate(rec.ExpiryDate))))
	return rec, nil
}

// ExecuteDeleteMember removes a member.
// PRE: input.ID is non-empty
// POST: Record removed, or member.ErrNotFound returned
func ExecuteDeleteMember(ctx context.Context, input DeleteMemberInput, deps MemberDeps) error {
	if err := deps.MemberStore.Delete(ctx, input.ID); err != nil {
		return err
	}
	slog.Info("member_event", "event", "member_deleted", "member_id", input.ID, "by", input.DeletedBy)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.DeletedBy, audit.CategoryMember, audit.ActionDelete, now(deps.Clock)).
		WithResource(input.ID))
	return nil
}
