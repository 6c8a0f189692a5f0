package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy bounds how hard a send is retried.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy is three attempts with exponential backoff from two seconds.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 2 * time.Second, MaxDelay: 30 * time.Second}

// RetryingSender retries transient failures of the wrapped Sender.
type RetryingSender struct {
	next   Sender
	policy RetryPolicy
}

// WithRetry wraps next so failed sends are retried with exponential backoff.
func WithRetry(next Sender, policy RetryPolicy) *RetryingSender {
	if policy.Attempts == 0 {
		policy.Attempts = DefaultRetryPolicy.Attempts
	}
	if policy.MaxDelay == 0 {
		policy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return &RetryingSender{next: next, policy: policy}
}

// Send calls the wrapped sender until it succeeds or attempts run out.
// Configuration errors are not retried.
// POST: Result.Attempts counts every call, on success and on failure
func (s *RetryingSender) Send(ctx context.Context, msg Message) (Result, error) {
	var res Result
	attempts := 0
	err := retry.Do(func() error {
		attempts++
		r, err := s.next.Send(ctx, msg)
		if err != nil {
			if errors.Is(err, ErrChannelNotConfigured) || errors.Is(err, ErrNoRecipient) {
				return retry.Unrecoverable(err)
			}
			return err
		}
		res = r
		return nil
	},
		retry.Attempts(s.policy.Attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(s.policy.Delay),
		retry.MaxDelay(s.policy.MaxDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("notify_retry",
				"channel", msg.Channel,
				"to", msg.To,
				"attempt", n+1,
				"error", err,
			)
		}),
		retry.Context(ctx),
	)
	res.Attempts = attempts
	return res, err
}
