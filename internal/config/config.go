package config

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"gymtrack/internal/domain/membership"
	"gymtrack/internal/domain/notification"
)

// Store backends
const (
	BackendXLSX   = "xlsx"
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

type CoreConfig struct {
	Addr          string `env:"ADDR, default=:8080"`
	Env           string `env:"ENV, default=development"`
	Timezone      string `env:"TIMEZONE, default=Asia/Kolkata"`
	DBPath        string `env:"DB_PATH, default=gymtrack.db"`
	GymName       string `env:"GYM_NAME, default=Gym Membership Tracker"`
	ExpiryPolicy  string `env:"EXPIRY_POLICY, default=calendar"`
	SessionSecret string `env:"SESSION_SECRET"`
	CSRFKey       string `env:"CSRF_KEY"` // 64 hex characters
	RateLimit     int    `env:"RATE_LIMIT, default=10"`
}

type StoreConfig struct {
	Backend string `env:"BACKEND, default=xlsx"`
	Path    string `env:"PATH"`
}

type ReminderConfig struct {
	WindowDays  int           `env:"WINDOW_DAYS, default=3"`
	Interval    time.Duration `env:"INTERVAL, default=0s"`
	Channels    string        `env:"CHANNELS, default=email"`
	MaxAttempts int           `env:"MAX_ATTEMPTS, default=3"`
	RetryDelay  time.Duration `env:"RETRY_DELAY, default=2s"`
}

type AdminConfig struct {
	Username string `env:"USERNAME, default=admin"`
	Password string `env:"PASSWORD"`
}

type ResendConfig struct {
	ApiKey  string `env:"API_KEY"`
	From    string `env:"FROM, default=Gym <noreply@example.com>"`
	ReplyTo string `env:"REPLY_TO"`
}

type TwilioConfig struct {
	AccountSID         string `env:"ACCOUNT_SID"`
	AuthToken          string `env:"AUTH_TOKEN"`
	From               string `env:"FROM"`
	WhatsAppFrom       string `env:"WHATSAPP_FROM"`
	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE, default=+91"`
}

type LogConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=text"`
}

type Config struct {
	Core     CoreConfig     `env:",prefix=GYMTRACK_"`
	Store    StoreConfig    `env:",prefix=GYMTRACK_STORE_"`
	Reminder ReminderConfig `env:",prefix=GYMTRACK_REMINDER_"`
	Admin    AdminConfig    `env:",prefix=GYMTRACK_ADMIN_"`
	Resend   ResendConfig   `env:",prefix=GYMTRACK_RESEND_"`
	Twilio   TwilioConfig   `env:",prefix=GYMTRACK_TWILIO_"`
	Log      LogConfig      `env:",prefix=GYMTRACK_LOG_"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// LoadConfigFrom reads the configuration from a fixed map. Used by tests.
func LoadConfigFrom(ctx context.Context, env map[string]string) (*Config, error) {
	return load(ctx, envconfig.MapLookuper(env))
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether GYMTRACK_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Core.Env == "production"
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendXLSX, BackendCSV, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("GYMTRACK_STORE_BACKEND must be xlsx, csv or sqlite, got %q", c.Store.Backend))
	}
	if _, err := membership.ParsePolicy(c.Core.ExpiryPolicy); err != nil {
		errs = append(errs, fmt.Errorf("GYMTRACK_EXPIRY_POLICY: %w", err))
	}
	if _, err := time.LoadLocation(c.Core.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("GYMTRACK_TIMEZONE: %w", err))
	}
	if c.Reminder.WindowDays < 0 {
		errs = append(errs, errors.New("GYMTRACK_REMINDER_WINDOW_DAYS cannot be negative"))
	}
	if c.Reminder.MaxAttempts < 1 {
		errs = append(errs, errors.New("GYMTRACK_REMINDER_MAX_ATTEMPTS must be at least 1"))
	}
	if _, err := notification.ParseChannels(c.Reminder.Channels); err != nil {
		errs = append(errs, fmt.Errorf("GYMTRACK_REMINDER_CHANNELS: %w", err))
	}
	if c.Core.CSRFKey != "" {
		if key, err := hex.DecodeString(c.Core.CSRFKey); err != nil || len(key) != 32 {
			errs = append(errs, errors.New("GYMTRACK_CSRF_KEY must be 64 hex characters (32 bytes)"))
		}
	}
	if c.IsProduction() {
		if c.Core.SessionSecret == "" {
			errs = append(errs, errors.New("GYMTRACK_SESSION_SECRET is required in production"))
		}
		if c.Core.CSRFKey == "" {
			errs = append(errs, errors.New("GYMTRACK_CSRF_KEY is required in production"))
		}
	}
	return errors.Join(errs...)
}

// Location returns the time zone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Core.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Policy returns the configured expiry policy.
func (c *Config) Policy() membership.Policy {
	p, err := membership.ParsePolicy(c.Core.ExpiryPolicy)
	if err != nil {
		return membership.DefaultPolicy
	}
	return p
}

// Channels returns the configured reminder channels.
func (c *Config) Channels() []string {
	ch, _ := notification.ParseChannels(c.Reminder.Channels)
	return ch
}

// StorePath returns the member file path, defaulting by backend.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch strings.ToLower(c.Store.Backend) {
	case BackendCSV:
		return "members.csv"
	case BackendSQLite:
		return c.Core.DBPath
	}
	return "members.xlsx"
}

// CSRFKeyBytes decodes GYMTRACK_CSRF_KEY. It returns nil when unset.
func (c *Config) CSRFKeyBytes() []byte {
	if c.Core.CSRFKey == "" {
		return nil
	}
	key, err := hex.DecodeString(c.Core.CSRFKey)
	if err != nil {
		return nil
	}
	return key
}
