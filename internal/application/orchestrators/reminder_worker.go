package orchestrators

import (
	"context"
	"log/slog"
	"time"
)

// reminderRunTimeout bounds one scheduled reminder run.
const reminderRunTimeout = 5 * time.Minute

// RunReminderWorker sends reminders every interval until ctx is done.
// A failed run is logged and the next tick tries again. Delivered reminders
// are skipped, and a run started elsewhere (an admin request, the remind
// command) waits for or skips the reminders this worker holds.
// PRE: interval > 0
// POST: Returns when ctx is cancelled
func RunReminderWorker(ctx context.Context, interval time.Duration, input SendRemindersInput, deps SendRemindersDeps) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("reminder_worker_started", "interval", interval.String(), "window_days", input.WindowDays)
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, reminderRunTimeout)
			res, err := ExecuteSendReminders(runCtx, input, deps)
			cancel()
			if err != nil {
				slog.Error("reminder_worker_run_failed", "error", err.Error())
				continue
			}
			slog.Info("reminder_worker_run",
				"considered", res.Considered,
				"sent", res.Sent,
				"failed", res.Failed,
				"simulated", res.Simulated,
				"already_sent", res.AlreadySent,
			)
		case <-ctx.Done():
			slog.Info("reminder_worker_stopped")
			return
		}
	}
}
