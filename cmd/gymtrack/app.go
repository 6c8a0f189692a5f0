package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gymtrack/internal/adapters/notify"
	"gymtrack/internal/adapters/storage"
	accountStore "gymtrack/internal/adapters/storage/account"
	auditStore "gymtrack/internal/adapters/storage/audit"
	memberStore "gymtrack/internal/adapters/storage/member"
	notificationStore "gymtrack/internal/adapters/storage/notification"
	"gymtrack/internal/application/orchestrators"
	"gymtrack/internal/config"
	"gymtrack/internal/domain/membership"
	"gymtrack/internal/domain/notification"
	"gymtrack/internal/platform/clock"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg           *config.Config
	db            *storage.TimedDB
	members       memberStore.Store
	accounts      *accountStore.SQLiteStore
	notifications *notificationStore.SQLiteStore
	audit         *auditStore.SQLiteStore
	sender        notify.Sender
	calc          membership.Calculator
	clock         clock.Clock
}

// setupLogger installs the default slog handler described by cfg.
func setupLogger(w io.Writer, cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// openApp loads configuration and opens the stores.
// POST: caller must Close the returned app
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(os.Stderr, cfg.Log)

	db, err := storage.Open(cfg.Core.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	timed := storage.NewTimedDB(db, 0)

	members, err := openMemberStore(cfg, timed)
	if err != nil {
		timed.Close()
		return nil, err
	}

	a := &app{
		cfg:           cfg,
		db:            timed,
		members:       members,
		accounts:      accountStore.NewSQLiteStore(timed),
		notifications: notificationStore.NewSQLiteStore(timed),
		audit:         auditStore.NewSQLiteStore(timed),
		sender:        buildSender(cfg),
		calc:          membership.NewCalculator(cfg.Policy()),
		clock:         clock.NewSystemClock(),
	}

	seed := orchestrators.CreateUserDeps{AccountStore: a.accounts, Clock: a.clock, Audit: a.audit}
	if err := orchestrators.ExecuteSeedAdmin(ctx, seed, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}
	return a, nil
}

func openMemberStore(cfg *config.Config, db *storage.TimedDB) (memberStore.Store, error) {
	var (
		s   memberStore.Store
		err error
	)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s = memberStore.NewSQLiteStore(db)
	case config.BackendCSV:
		s, err = memberStore.NewCSVStore(cfg.StorePath())
	default:
		s, err = memberStore.NewXLSXStore(cfg.StorePath())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open member store: %w", err)
	}
	slog.Info("member_store_opened", "backend", cfg.Store.Backend, "path", cfg.StorePath())

	if r, ok := s.(memberStore.Reporter); ok {
		if report := r.Report(); report.HasIssues() {
			for _, issue := range report.Issues {
				slog.Warn("member_store_issue", "issue", issue.String())
			}
		}
	}
	return s, nil
}

// buildSender registers a provider for every channel that has credentials.
// Outside production, configured channels without credentials get a noop
// sender. In production they stay unregistered so their reminders fail and
// are retried once credentials are set.
func buildSender(cfg *config.Config) notify.Sender {
	policy := notify.RetryPolicy{
		Attempts: uint(cfg.Reminder.MaxAttempts),
		Delay:    cfg.Reminder.RetryDelay,
	}
	router := notify.NewRouter()

	if cfg.Resend.ApiKey != "" {
		router.Register(notification.ChannelEmail,
			notify.WithRetry(notify.NewResendSender(cfg.Resend.ApiKey, cfg.Resend.From, cfg.Resend.ReplyTo), policy))
		slog.Info("notify_configured", "channel", notification.ChannelEmail, "provider", "resend")
	}
	tw := cfg.Twilio
	if tw.AccountSID != "" && tw.AuthToken != "" {
		if tw.From != "" {
			router.Register(notification.ChannelSMS,
				notify.WithRetry(notify.NewSMSSender(tw.AccountSID, tw.AuthToken, tw.From), policy))
			slog.Info("notify_configured", "channel", notification.ChannelSMS, "provider", "twilio")
		}
		if tw.WhatsAppFrom != "" {
			router.Register(notification.ChannelWhatsApp,
				notify.WithRetry(notify.NewWhatsAppSender(tw.AccountSID, tw.AuthToken, tw.WhatsAppFrom), policy))
			slog.Info("notify_configured", "channel", notification.ChannelWhatsApp, "provider", "twilio")
		}
	}

	for _, ch := range cfg.Channels() {
		if router.Has(ch) {
			continue
		}
		if cfg.IsProduction() {
			slog.Warn("notify_disabled", "channel", ch, "hint", "provider credentials are not set")
			continue
		}
		router.Register(ch, notify.NewNoopSender())
		slog.Info("notify_configured", "channel", ch, "provider", "noop")
	}
	return router
}

func (a *app) reminderDeps() orchestrators.SendRemindersDeps {
	return orchestrators.SendRemindersDeps{
		MemberStore:        a.members,
		NotificationStore:  a.notifications,
		Sender:             a.sender,
		Renderer:           orchestrators.NewReminderRenderer(),
		Clock:              a.clock,
		Location:           a.cfg.Location(),
		GymName:            a.cfg.Core.GymName,
		DefaultCountryCode: a.cfg.Twilio.DefaultCountryCode,
		Audit:              a.audit,
	}
}

// Close releases the database.
func (a *app) Close() error {
	return a.db.Close()
}
