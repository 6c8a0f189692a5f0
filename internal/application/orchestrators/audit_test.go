package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gymtrack/internal/domain/account"
	"gymtrack/internal/domain/audit"
	"gymtrack/internal/domain/membership"
	"gymtrack/internal/domain/notification"
)

func TestMemberOrchestrators_RecordAudit(t *testing.T) {
	store := &mockMemberStore{}
	rec := &mockAudit{}
	deps := newMemberDeps(store, membership.PolicyCalendar)
	deps.Audit = rec
	ctx := context.Background()

	added, err := ExecuteAddMember(ctx, AddMemberInput{MemberInput: MemberInput{Name: "Asha", Phone: "98", Plan: "monthly", StartDate: "2024-01-15"}, RecordedBy: "trainer", Actor: "trainer"}, deps)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ExecuteUpdateMember(ctx, UpdateMemberInput{ID: added.ID, MemberInput: MemberInput{Name: "Asha", Phone: "97", Plan: "yearly", StartDate: "2024-01-15"}, UpdatedBy: "admin"}, deps); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := ExecuteDeleteMember(ctx, DeleteMemberInput{ID: added.ID, DeletedBy: "admin"}, deps); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(rec.events) != 3 {
		t.Fatalf("recorded %d events, want 3", len(rec.events))
	}
	wantActions := []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete}
	wantActors := []string{"trainer", "admin", "admin"}
	for i, e := range rec.events {
		if e.Category != audit.CategoryMember || e.Action != wantActions[i] || e.Actor != wantActors[i] || e.ResourceID != added.ID {
			t.Errorf("event %d = %+v", i, e)
		}
	}
	if !strings.Contains(rec.events[0].Description, "Asha") || !strings.Contains(rec.events[1].Description, "2025-01-15") {
		t.Errorf("descriptions = %q / %q", rec.events[0].Description, rec.events[1].Description)
	}
}

func TestExecuteAddMember_AuditActorIsNotTheRecordedByText(t *testing.T) {
	store := &mockMemberStore{}
	rec := &mockAudit{}
	deps := newMemberDeps(store, membership.PolicyCalendar)
	deps.Audit = rec

	added, err := ExecuteAddMember(context.Background(), AddMemberInput{
		MemberInput: MemberInput{Name: "Asha", Phone: "98", Plan: "monthly"},
		RecordedBy:  "admin",
		Actor:       "trainer",
	}, deps)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.RecordedBy != "admin" {
		t.Errorf("RecordedBy = %q, want the typed text", added.RecordedBy)
	}
	if len(rec.events) != 1 || rec.events[0].Actor != "trainer" {
		t.Fatalf("events = %+v, want actor trainer", rec.events)
	}
}

func TestExecuteAddMember_RecordedByDefaultsToActor(t *testing.T) {
	deps := newMemberDeps(&mockMemberStore{}, membership.PolicyCalendar)
	added, err := ExecuteAddMember(context.Background(), AddMemberInput{
		MemberInput: MemberInput{Name: "Asha", Phone: "98", Plan: "monthly"},
		Actor:       "trainer",
	}, deps)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.RecordedBy != "trainer" {
		t.Errorf("RecordedBy = %q, want trainer", added.RecordedBy)
	}
}

func TestRecordAudit_FailureDoesNotFailOperation(t *testing.T) {
	store := &mockMemberStore{}
	deps := newMemberDeps(store, membership.PolicyCalendar)
	deps.Audit = &mockAudit{saveErr: errors.New("disk full")}

	if _, err := ExecuteAddMember(context.Background(), AddMemberInput{MemberInput: MemberInput{Name: "Asha", Phone: "98", Plan: "monthly"}, RecordedBy: "admin"}, deps); err != nil {
		t.Fatalf("audit failure leaked into the operation: %v", err)
	}
	if len(store.records) != 1 {
		t.Errorf("member not saved")
	}
}

func TestExecuteLogin_RecordsAudit(t *testing.T) {
	store := newMockAccountStore(makeAccount(t, "admin", "correct-horse", account.RoleAdmin))
	rec := &mockAudit{}
	deps := LoginDeps{AccountStore: store, Audit: rec}

	if _, err := ExecuteLogin(context.Background(), LoginInput{Username: "admin", Password: "nope-nope"}, deps); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	if _, err := ExecuteLogin(context.Background(), LoginInput{Username: "admin", Password: "correct-horse"}, deps); err != nil {
		t.Fatalf("login: %v", err)
	}
	// Unknown usernames are not attributed to anyone.
	_, _ = ExecuteLogin(context.Background(), LoginInput{Username: "ghost", Password: "whatever"}, deps)

	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(rec.events))
	}
	if rec.events[0].Action != audit.ActionLoginFailed || rec.events[1].Action != audit.ActionLogin {
		t.Errorf("actions = %s, %s", rec.events[0].Action, rec.events[1].Action)
	}
	if rec.events[1].Actor != "admin" || rec.events[1].ResourceID != "id-admin" {
		t.Errorf("login event = %+v", rec.events[1])
	}
}

func TestExecuteCreateUser_RecordsAudit(t *testing.T) {
	rec := &mockAudit{}
	deps := CreateUserDeps{AccountStore: newMockAccountStore(), Audit: rec}

	if err := ExecuteSeedAdmin(context.Background(), deps, "admin", "long-enough"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := ExecuteCreateUser(context.Background(), CreateUserInput{Username: "sam", Password: "long-enough", Role: account.RoleTrainer, CreatedBy: "admin"}, deps); err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(rec.events))
	}
	if rec.events[0].Actor != audit.ActorSystem || rec.events[1].Actor != "admin" {
		t.Errorf("actors = %q, %q", rec.events[0].Actor, rec.events[1].Actor)
	}
	if rec.events[1].Description != "created trainer sam" {
		t.Errorf("description = %q", rec.events[1].Description)
	}
}

func TestExecuteImportMembers_RecordsAuditUnlessDryRun(t *testing.T) {
	path := writeCSV(t, "Name,Phone,Start_Date,End_Date\nAsha,98,2024-03-01,2024-04-01\n")
	rec := &mockAudit{}
	deps := importDeps(&mockMemberStore{})
	deps.Audit = rec

	if _, err := ExecuteImportMembers(context.Background(), ImportMembersInput{Path: path, RecordedBy: "front desk", Actor: "cli", DryRun: true}, deps); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("dry run recorded %d events", len(rec.events))
	}
	if _, err := ExecuteImportMembers(context.Background(), ImportMembersInput{Path: path, RecordedBy: "front desk", Actor: "cli"}, deps); err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionImport || rec.events[0].Actor != "cli" {
		t.Fatalf("events = %+v", rec.events)
	}
	if rec.events[0].Description != "imported 1 of 1 rows from legacy.csv" {
		t.Errorf("description = %q", rec.events[0].Description)
	}
}

func TestExecuteSendReminders_RecordsAuditWhenSomethingWasSent(t *testing.T) {
	_, _, _, deps := reminderFixture()
	rec := &mockAudit{}
	deps.Audit = rec
	input := SendRemindersInput{WindowDays: 3, Channels: []string{notification.ChannelEmail}, TriggeredBy: "admin"}

	if _, err := ExecuteSendReminders(context.Background(), input, deps); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Everything was already sent, so the second run is not recorded.
	if _, err := ExecuteSendReminders(context.Background(), input, deps); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}
	e := rec.events[0]
	if e.Category != audit.CategoryReminder || e.Actor != "admin" || e.Description != "sent 1, failed 0, window 3 days" {
		t.Errorf("event = %+v", e)
	}
}
