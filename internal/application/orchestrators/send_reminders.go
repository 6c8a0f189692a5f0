package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gymtrack/internal/adapters/notify"
	"gymtrack/internal/application/projections"
	"gymtrack/internal/domain/audit"
	"gymtrack/internal/domain/notification"
	"gymtrack/internal/platform/clock"
)

// NotificationStoreForReminders defines the store interface needed by SendReminders.
type NotificationStoreForReminders interface {
	Save(ctx context.Context, n notification.Notification) error
	FindSent(ctx context.Context, memberID string, expiry time.Time, channel string) (bool, error)
	Claim(ctx context.Context, n notification.Notification) (bool, error)
}

// reminderRunSlot admits one sending run per process at a time. Runs in
// other processes are kept apart by NotificationStoreForReminders.Claim.
var reminderRunSlot = make(chan struct{}, 1)

// SendRemindersInput carries input for a reminder run.
type SendRemindersInput struct {
	WindowDays  int
	Channels    []string
	DryRun      bool
	TriggeredBy string // username; empty for scheduled runs
}

// ReminderOutcome is what happened to one member on one channel.
type ReminderOutcome struct {
	MemberID   string
	MemberName string
	Channel    string
	Recipient  string
	DaysLeft   int
	Status     string // sent, failed, simulated, already_sent, no_contact, dry_run
	Attempts   int
	Error      string
}

// Outcome statuses beyond the notification lifecycle.
const (
	OutcomeAlreadySent = "already_sent"
	OutcomeNoContact   = "no_contact"
	OutcomeDryRun      = "dry_run"
)

// SendRemindersResult summarises a reminder run.
type SendRemindersResult struct {
	Today       time.Time
	Considered  int // expiring members
	Sent        int
	Failed      int
	Simulated   int // accepted by a noop sender; not counted as delivered
	AlreadySent int
	NoContact   int
	Skipped     []projections.SkippedMember
	Outcomes    []ReminderOutcome
	DryRun      bool
}

// SendRemindersDeps holds dependencies for SendReminders.
type SendRemindersDeps struct {
	MemberStore        projections.MemberLister
	NotificationStore  NotificationStoreForReminders
	Sender             notify.Sender
	Renderer           *ReminderRenderer
	Clock              clock.Clock
	Location           *time.Location
	GymName            string
	DefaultCountryCode string
	GenerateID         func() string
	Audit              AuditRecorder
}

// ExecuteSendReminders notifies members whose membership expires within the window.
// A (member, expiry, channel) triple that was already delivered, or that
// another run is delivering, is not sent again.
// PRE: deps.Sender already retries transient failures
// POST: every attempt's outcome is persisted; one member's failure never stops the run
func ExecuteSendReminders(ctx context.Context, input SendRemindersInput, deps SendRemindersDeps) (SendRemindersResult, error) {
	if !input.DryRun {
		select {
		case reminderRunSlot <- struct{}{}:
			defer func() { <-reminderRunSlot }()
		case <-ctx.Done():
			return SendRemindersResult{}, ctx.Err()
		}
	}

	expiring, err := projections.QueryExpiringMembers(ctx, projections.ExpiringQuery{WindowDays: input.WindowDays}, projections.ExpiringDeps{
		MemberStore: deps.MemberStore,
		Clock:       deps.Clock,
		Location:    deps.Location,
	})
	if err != nil {
		return SendRemindersResult{}, err
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = NewReminderRenderer()
	}

	result := SendRemindersResult{
		Today:      expiring.Today,
		Considered: len(expiring.Members),
		Skipped:    expiring.Skipped,
		DryRun:     input.DryRun,
	}

	for _, m := range expiring.Members {
		msg, err := renderer.Render(ReminderData{
			GymName:    deps.GymName,
			MemberName: m.Name,
			PlanLabel:  m.Plan.Label(),
			ExpiryDate: m.ExpiryDate,
			Today:      expiring.Today,
			DaysLeft:   m.DaysLeft,
		})
		if err != nil {
			return result, err
		}

		for _, channel := range input.Channels {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			out := ReminderOutcome{MemberID: m.ID, MemberName: m.Name, Channel: channel, DaysLeft: m.DaysLeft}

			out.Recipient = recipientFor(channel, m.Email, m.Phone, deps.DefaultCountryCode)
			if out.Recipient == "" {
				out.Status = OutcomeNoContact
				result.NoContact++
				result.Outcomes = append(result.Outcomes, out)
				continue
			}

			if input.DryRun {
				sent, err := deps.NotificationStore.FindSent(ctx, m.ID, m.ExpiryDate, channel)
				switch {
				case err != nil:
					slog.Error("reminder_dedupe_failed", "member_id", m.ID, "channel", channel, "error", err)
					out.Status = notification.StatusFailed
					out.Error = err.Error()
					result.Failed++
				case sent:
					out.Status = OutcomeAlreadySent
					result.AlreadySent++
				default:
					out.Status = OutcomeDryRun
				}
				result.Outcomes = append(result.Outcomes, out)
				continue
			}

			n := notification.Notification{
				ID:         newID(deps.GenerateID),
				MemberID:   m.ID,
				Channel:    channel,
				Recipient:  out.Recipient,
				Body:       msg.Text,
				ExpiryDate: m.ExpiryDate,
				Status:     notification.StatusPending,
				CreatedAt:  now(deps.Clock),
			}
			if channel == notification.ChannelEmail {
				n.Subject = msg.Subject
			}
			if err := n.Validate(); err != nil {
				slog.Error("reminder_invalid", "member_id", m.ID, "channel", channel, "error", err)
				out.Status = notification.StatusFailed
				out.Error = err.Error()
				result.Failed++
				result.Outcomes = append(result.Outcomes, out)
				continue
			}

			claimed, err := deps.NotificationStore.Claim(ctx, n)
			if err != nil {
				slog.Error("reminder_dedupe_failed", "member_id", m.ID, "channel", channel, "error", err)
				out.Status = notification.StatusFailed
				out.Error = err.Error()
				result.Failed++
				result.Outcomes = append(result.Outcomes, out)
				continue
			}
			if !claimed {
				out.Status = OutcomeAlreadySent
				result.AlreadySent++
				result.Outcomes = append(result.Outcomes, out)
				continue
			}

			res, sendErr := deps.Sender.Send(ctx, notify.Message{
				Channel: channel,
				To:      out.Recipient,
				Subject: msg.Subject,
				Text:    msg.Text,
				HTML:    msg.HTML,
			})
			out.Attempts = res.Attempts
			switch {
			case sendErr != nil:
				n.MarkFailed(sendErr, res.Attempts)
				out.Status = notification.StatusFailed
				out.Error = sendErr.Error()
				result.Failed++
				slog.Warn("reminder_failed", "member_id", m.ID, "channel", channel, "attempts", res.Attempts, "error", sendErr)
			case res.Simulated:
				n.MarkSimulated(res.ProviderID, now(deps.Clock))
				out.Status = notification.StatusSimulated
				result.Simulated++
				slog.Info("reminder_simulated", "member_id", m.ID, "channel", channel, "days_left", m.DaysLeft)
			default:
				if err := n.MarkSent(res.ProviderID, max(res.Attempts, 1), now(deps.Clock)); err != nil {
					// The provider accepted the message; keep the claim so it is not resent.
					slog.Error("reminder_state_invalid", "member_id", m.ID, "channel", channel, "error", err)
				}
				out.Status = notification.StatusSent
				result.Sent++
				slog.Info("reminder_sent", "member_id", m.ID, "channel", channel, "days_left", m.DaysLeft, "provider_id", res.ProviderID)
			}

			// The outcome is recorded even when ctx was cancelled mid-send.
			if err := deps.NotificationStore.Save(context.WithoutCancel(ctx), n); err != nil {
				slog.Error("reminder_record_failed", "member_id", m.ID, "channel", channel, "error", err)
			}
			result.Outcomes = append(result.Outcomes, out)

			if errors.Is(sendErr, context.Canceled) || errors.Is(sendErr, context.DeadlineExceeded) {
				return result, sendErr
			}
		}
	}

	slog.Info("reminder_run",
		"today", expiring.Today.Format("2006-01-02"),
		"window_days", input.WindowDays,
		"considered", result.Considered,
		"sent", result.Sent,
		"failed", result.Failed,
		"simulated", result.Simulated,
		"already_sent", result.AlreadySent,
		"no_contact", result.NoContact,
		"skipped", len(result.Skipped),
		"dry_run", input.DryRun,
	)
	if !input.DryRun && result.Sent+result.Failed > 0 {
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.TriggeredBy, audit.CategoryReminder, audit.ActionSend, now(deps.Clock)).
			WithDescription(fmt.Sprintf("sent %d, failed %d, window %d days", result.Sent, result.Failed, input.WindowDays)))
	}
	return result, nil
}

// recipientFor picks the member address for channel.
func recipientFor(channel, email, phone, countryCode string) string {
	switch channel {
	case notification.ChannelEmail:
		return strings.TrimSpace(email)
	case notification.ChannelSMS, notification.ChannelWhatsApp:
		return notify.NormalizePhone(phone, countryCode)
	}
	return ""
}
