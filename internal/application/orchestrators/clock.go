package orchestrators

import (
	"time"

	"github.com/google/uuid"

	"gymtrack/internal/platform/clock"
)

func now(c clock.Clock) time.Time {
	if c == nil {
		return time.Now()
	}
	return c.Now()
}

func newID(gen func() string) string {
	if gen == nil {
		return uuid.NewString()
	}
	return gen()
}
