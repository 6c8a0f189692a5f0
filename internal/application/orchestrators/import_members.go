package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	memberStore "gymtrack/internal/adapters/storage/member"
	domain "gymtrack/internal/domain/member"
	"gymtrack/internal/domain/audit"
	"gymtrack/internal/domain/membership"
	"gymtrack/internal/platform/clock"
)

// ImportMembersInput names the file to import and the import options.
// RecordedBy fills rows that name no recorder; Actor is who runs the import and goes to the audit log.
// PRE: Path is an .xlsx or .csv file with a Name and End_Date column; RecordedBy and Actor are non-empty.
// POST: Returns aggregate counts and per-row errors; writes are skipped when DryRun=true.
// INVARIANT: Existing members are never deleted or overwritten. Every imported row gets a fresh ID.
type ImportMembersInput struct {
	Path       string
	RecordedBy string
	Actor      string
	DryRun     bool
}

// ImportMembersResult holds aggregate counts and per-row errors from an import run.
type ImportMembersResult struct {
	Total   int
	Created int
	Skipped int
	Errors  []ImportMembersRowError
	DryRun  bool
}

// ImportMembersRowError describes a validation or processing error for a single row.
type ImportMembersRowError struct {
	Row     int
	Name    string
	Message string
}

// MemberStoreForImport defines the store interface needed by ImportMembers.
type MemberStoreForImport interface {
	List(ctx context.Context) ([]domain.Record, error)
	Save(ctx context.Context, rec domain.Record) error
}

// ImportMembersDeps holds external dependencies for the import orchestrator.
type ImportMembersDeps struct {
	MemberStore MemberStoreForImport
	Calculator  membership.Calculator
	Clock       clock.Clock
	ReadFile    func(path string) ([]domain.Record, memberStore.LoadReport, error)
	Audit       AuditRecorder
	GenerateID  func() string
}

func duplicateKey(r domain.Record) string {
	return strings.ToLower(strings.TrimSpace(r.Name)) + "|" + strings.TrimSpace(r.Phone)
}

// ExecuteImportMembers reads a legacy member file and adds its rows to the store.
// Rows with a known plan but no end date get one from the calculator.
// PRE: input.Path exists
// POST: valid, non-duplicate rows are saved unless DryRun; every rejected row is reported
func ExecuteImportMembers(ctx context.Context, input ImportMembersInput, deps ImportMembersDeps) (ImportMembersResult, error) {
	read := deps.ReadFile
	if read == nil {
		read = memberStore.ReadFile
	}
	records, report, err := read(input.Path)
	if err != nil {
		return ImportMembersResult{}, err
	}

	existing, err := deps.MemberStore.List(ctx)
	if err != nil {
		return ImportMembersResult{}, err
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[duplicateKey(r)] = true
	}

	bad := map[int][]string{}
	for _, issue := range report.Issues {
		bad[issue.Row] = append(bad[issue.Row], fmt.Sprintf("%s %q: %v", issue.Column, issue.Value, issue.Err))
	}

	result := ImportMembersResult{DryRun: input.DryRun, Total: len(records)}
	at := now(deps.Clock)
	reject := func(row int, rec domain.Record, msg string) {
		result.Skipped++
		result.Errors = append(result.Errors, ImportMembersRowError{Row: row, Name: rec.Name, Message: msg})
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		row := i + 1
		if msgs, ok := bad[row]; ok {
			reject(row, rec, strings.Join(msgs, "; "))
			continue
		}
		if rec.ExpiryDate.IsZero() && !rec.StartDate.IsZero() && rec.Plan != membership.PlanCustom {
			expiry, err := deps.Calculator.ComputeExpiry(rec.StartDate, rec.Plan)
			if err != nil {
				reject(row, rec, err.Error())
				continue
			}
			rec.ExpiryDate = expiry
		}
		if err := rec.Validate(); err != nil {
			reject(row, rec, err.Error())
			continue
		}
		key := duplicateKey(rec)
		if seen[key] {
			reject(row, rec, "member with this name and phone already exists")
			continue
		}
		seen[key] = true

		// IDs in legacy files are not ours; reusing one would replace a stored member.
		rec.ID = newID(deps.GenerateID)
		if rec.RecordedBy == "" {
			rec.RecordedBy = input.RecordedBy
		}
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = at
		}
		if !input.DryRun {
			if err := deps.MemberStore.Save(ctx, rec); err != nil {
				reject(row, rec, "save failed: "+err.Error())
				continue
			}
		}
		result.Created++
	}

	slog.Info("member_event", "event", "members_imported",
		"path", input.Path,
		"total", result.Total,
		"created", result.Created,
		"skipped", result.Skipped,
		"dry_run", input.DryRun,
		"by", input.Actor,
	)
	if !input.DryRun {
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor, audit.CategoryMember, audit.ActionImport, at).
			WithDescription(fmt.Sprintf("imported %d of %d rows from %s", result.Created, result.Total, filepath.Base(input.Path))))
	}
	return result, nil
}
