package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymtrack/internal/domain/member"
	"gymtrack/internal/domain/membership"
	"gymtrack/internal/platform/clock"
)

func newMemberDeps(store *mockMemberStore, policy membership.Policy) MemberDeps {
	ids := 0
	return MemberDeps{
		MemberStore: store,
		Calculator:  membership.NewCalculator(policy),
		Clock:       clock.NewFixed(time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)),
		Location:    time.UTC,
		GenerateID: func() string {
			ids++
			return "m" + string(rune('0'+ids))
		},
	}
}

func TestExecuteAddMember_ComputesExpiry(t *testing.T) {
	tests := []struct {
		name   string
		policy membership.Policy
		input  MemberInput
		want   string
	}{
		{"calendar month clamps", membership.PolicyCalendar, MemberInput{Name: "Asha", Phone: "98", Plan: "monthly", StartDate: "2024-01-31"}, "2024-02-29"},
		{"fixed thirty days", membership.PolicyFixedDays, MemberInput{Name: "Asha", Phone: "98", Plan: "monthly", StartDate: "2024-01-31"}, "2024-03-01"},
		{"empty start is today", membership.PolicyCalendar, MemberInput{Name: "Asha", Phone: "98", Plan: "yearly"}, "2025-01-31"},
		{"typed expiry ignored", membership.PolicyCalendar, MemberInput{Name: "Asha", Phone: "98", Plan: "quarterly", StartDate: "2024-01-15", ExpiryDate: "2030-01-01"}, "2024-04-15"},
		{"custom keeps typed expiry", membership.PolicyCalendar, MemberInput{Name: "Asha", Phone: "98", Plan: "custom", StartDate: "2024-01-15", ExpiryDate: "15/03/2024"}, "2024-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockMemberStore{}
			rec, err := ExecuteAddMember(context.Background(), AddMemberInput{MemberInput: tt.input, RecordedBy: "admin"}, newMemberDeps(store, tt.policy))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := membership.FormatDate(rec.ExpiryDate); got != tt.want {
				t.Errorf("expiry = %s, want %s", got, tt.want)
			}
			if rec.ID != "m1" || rec.RecordedBy != "admin" || rec.RecordedAt.IsZero() {
				t.Errorf("record = %+v", rec)
			}
			if len(store.records) != 1 {
				t.Errorf("expected 1 saved record, got %d", len(store.records))
			}
		})
	}
}

func TestExecuteAddMember_ValidationFields(t *testing.T) {
	tests := []struct {
		name  string
		input MemberInput
		field string
	}{
		{"missing name", MemberInput{Phone: "98", Plan: "monthly"}, "name"},
		{"missing phone", MemberInput{Name: "Asha", Plan: "monthly"}, "phone"},
		{"bad email", MemberInput{Name: "Asha", Phone: "98", Email: "nope", Plan: "monthly"}, "email"},
		{"unknown plan", MemberInput{Name: "Asha", Phone: "98", Plan: "weekly"}, "plan"},
		{"bad start date", MemberInput{Name: "Asha", Phone: "98", Plan: "monthly", StartDate: "someday"}, "start_date"},
		{"custom without expiry", MemberInput{Name: "Asha", Phone: "98", Plan: "custom"}, "expiry_date"},
		{"custom expiry before start", MemberInput{Name: "Asha", Phone: "98", Plan: "custom", StartDate: "2024-02-01", ExpiryDate: "2024-01-01"}, "expiry_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockMemberStore{}
			_, err := ExecuteAddMember(context.Background(), AddMemberInput{MemberInput: tt.input}, newMemberDeps(store, membership.PolicyCalendar))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q (%v)", verr.Field, tt.field, verr.Err)
			}
			if len(store.records) != 0 {
				t.Error("invalid member was saved")
			}
		})
	}
}

func TestExecuteUpdateMember(t *testing.T) {
	recordedAt := time.Date(2023, 12, 1, 8, 0, 0, 0, time.UTC)
	store := &mockMemberStore{records: []member.Record{{
		ID: "m1", Name: "Asha", Phone: "98", Plan: membership.PlanMonthly,
		StartDate: day("2023-12-01"), ExpiryDate: day("2024-01-01"),
		RecordedBy: "trainer", RecordedAt: recordedAt,
	}}}
	deps := newMemberDeps(store, membership.PolicyCalendar)

	rec, err := ExecuteUpdateMember(context.Background(), UpdateMemberInput{
		ID:          "m1",
		MemberInput: MemberInput{Name: "Asha K", Phone: "98", Plan: "quarterly", StartDate: "2024-01-01"},
		UpdatedBy:   "admin",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Name != "Asha K" || !rec.ExpiryDate.Equal(day("2024-04-01")) {
		t.Errorf("record = %+v", rec)
	}
	if rec.RecordedBy != "trainer" || !rec.RecordedAt.Equal(recordedAt) {
		t.Errorf("recorded fields changed: %q %v", rec.RecordedBy, rec.RecordedAt)
	}
	if len(store.records) != 1 || store.records[0].Name != "Asha K" {
		t.Errorf("store = %+v", store.records)
	}

	_, err = ExecuteUpdateMember(context.Background(), UpdateMemberInput{ID: "ghost", MemberInput: MemberInput{Name: "x", Phone: "1", Plan: "monthly"}}, deps)
	if !errors.Is(err, member.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExecuteDeleteMember(t *testing.T) {
	store := &mockMemberStore{records: []member.Record{{ID: "m1", Name: "Asha"}, {ID: "m2", Name: "Ravi"}}}
	deps := newMemberDeps(store, membership.PolicyCalendar)

	if err := ExecuteDeleteMember(context.Background(), DeleteMemberInput{ID: "m1", DeletedBy: "admin"}, deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.records) != 1 || store.records[0].ID != "m2" {
		t.Errorf("store = %+v", store.records)
	}
	if err := ExecuteDeleteMember(context.Background(), DeleteMemberInput{ID: "m1"}, deps); !errors.Is(err, member.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
