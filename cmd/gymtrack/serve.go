package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v3"

	web "gymtrack/internal/adapters/http"
	"gymtrack/internal/application/orchestrators"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the web app and the scheduled reminder loop",
		Action: runServe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (overrides GYMTRACK_ADDR)",
			},
			&cli.StringSliceFlag{
				Name:  "trusted-origin",
				Usage: "extra origin allowed to post forms, e.g. gym.example.com",
			},
		},
		Description: `
Environment variables:
	GYMTRACK_ADDR                 (default: :8080)
	GYMTRACK_ENV                  (default: development)
	GYMTRACK_DB_PATH              (default: gymtrack.db)
	GYMTRACK_STORE_BACKEND        (xlsx, csv or sqlite; default: xlsx)
	GYMTRACK_STORE_PATH           (default: members.xlsx)
	GYMTRACK_SESSION_SECRET       (required in production)
	GYMTRACK_CSRF_KEY             (64 hex characters; required in production)
	GYMTRACK_REMINDER_INTERVAL    (default: 0s, disabled)
`,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	srv := web.NewServer(web.Deps{
		MemberStore:        a.members,
		AccountStore:       a.accounts,
		NotificationStore:  a.notifications,
		AuditStore:         a.audit,
		Sender:             a.sender,
		Calculator:         a.calc,
		Clock:              a.clock,
		Location:           cfg.Location(),
		GymName:            cfg.Core.GymName,
		WindowDays:         cfg.Reminder.WindowDays,
		Channels:           cfg.Channels(),
		DefaultCountryCode: cfg.Twilio.DefaultCountryCode,
		DBStats:            a.db.Stats,
	}, web.Options{
		SessionSecret:  []byte(cfg.Core.SessionSecret),
		CSRFKey:        cfg.CSRFKeyBytes(),
		SecureCookies:  cfg.IsProduction(),
		RateLimit:      cfg.Core.RateLimit,
		TrustedOrigins: cmd.StringSlice("trusted-origin"),
	})

	addr := cfg.Core.Addr
	if v := strings.TrimSpace(cmd.String("addr")); v != "" {
		addr = v
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		srv.Run(ctx)
	}()

	if interval := cfg.Reminder.Interval; interval > 0 {
		input := orchestrators.SendRemindersInput{
			WindowDays: cfg.Reminder.WindowDays,
			Channels:   cfg.Channels(),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			orchestrators.RunReminderWorker(ctx, interval, input, a.reminderDeps())
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting",
			"addr", addr,
			"env", cfg.Core.Env,
			"backend", cfg.Store.Backend,
			"policy", cfg.Core.ExpiryPolicy,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("server_stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	stop()
	wg.Wait()
	return runErr
}
