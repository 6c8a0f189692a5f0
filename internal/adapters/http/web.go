package web

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gymtrack/internal/adapters/http/middleware"
	"gymtrack/internal/adapters/http/perf"
	"gymtrack/internal/adapters/notify"
	"gymtrack/internal/adapters/storage"
	accountStore "gymtrack/internal/adapters/storage/account"
	auditStore "gymtrack/internal/adapters/storage/audit"
	memberStore "gymtrack/internal/adapters/storage/member"
	notificationStore "gymtrack/internal/adapters/storage/notification"
	"gymtrack/internal/application/orchestrators"
	"gymtrack/internal/domain/account"
	"gymtrack/internal/domain/membership"
	"gymtrack/internal/platform/clock"
)

// Deps holds the stores and services the handlers use.
type Deps struct {
	MemberStore       memberStore.Store
	AccountStore      accountStore.Store
	NotificationStore notificationStore.Store
	AuditStore        auditStore.Store // optional
	Sender            notify.Sender
	Renderer          *orchestrators.ReminderRenderer
	Calculator        membership.Calculator
	Clock             clock.Clock
	Location          *time.Location

	GymName            string
	WindowDays         int
	Channels           []string
	DefaultCountryCode string

	// DBStats reports sqlite query counters on /healthz. Optional.
	DBStats func() storage.QueryStats
}

// Options configures the middleware stack.
type Options struct {
	SessionSecret  []byte // signs the session cookie; random per start when empty
	CSRFKey        []byte // 32 bytes; random per start when empty
	SecureCookies  bool   // set in production, where the app is served over TLS
	RateLimit      int    // requests per second per IP
	SlowRequest    time.Duration
	TrustedOrigins []string
}

// Server carries the router and its background work.
type Server struct {
	deps     Deps
	sessions *middleware.SessionStore
	perf     *perf.Collector
	limiter  *middleware.RateLimiter
	started  time.Time
	handler  http.Handler
}

// randomKey returns key, or a fresh random key when key is empty.
// Sessions and CSRF tokens made with a random key do not survive a restart.
func randomKey(name string, key []byte) []byte {
	if len(key) > 0 {
		return key
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	slog.Warn("random_key_generated", "key", name, "hint", "sessions will not survive a restart")
	return key
}

// NewServer wires HTTP handlers for the app.
func NewServer(deps Deps, opts Options) *Server {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystemClock()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Renderer == nil {
		deps.Renderer = orchestrators.NewReminderRenderer()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}

	hashKey := randomKey("session_secret", opts.SessionSecret)
	blockKey := sha256.Sum256(hashKey)
	s := &Server{
		deps:     deps,
		sessions: middleware.NewSessionStore(hashKey, blockKey[:], opts.SecureCookies),
		perf:     perf.NewCollector(perf.DefaultRingSize),
		limiter:  middleware.NewRateLimiter(opts.RateLimit, time.Second),
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Timing(s.perf, opts.SlowRequest))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit(s.limiter))
	r.Use(middleware.CSRF(randomKey("csrf_key", opts.CSRFKey), opts.SecureCookies, opts.TrustedOrigins))
	r.Use(middleware.Auth(s.sessions))

	s.routes(r)
	s.handler = r
	return s
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", s.handleDashboard)
		r.Post("/members", s.handleAddMember)
		r.With(middleware.RequireRole(account.RoleAdmin)).Post("/members/{id}/delete", s.handleDeleteMember)

		r.Route("/api", func(r chi.Router) {
			r.Get("/members", s.handleAPIListMembers)
			r.Post("/members", s.handleAPIAddMember)
			r.Get("/members/{id}", s.handleAPIGetMember)
			r.Put("/members/{id}", s.handleAPIUpdateMember)
			r.With(middleware.RequireRole(account.RoleAdmin)).Delete("/members/{id}", s.handleAPIDeleteMember)
			r.Get("/reminders", s.handleAPIReminders)
			r.With(middleware.RequireRole(account.RoleAdmin)).Post("/reminders/send", s.handleAPISendReminders)
			r.Get("/notifications", s.handleAPINotifications)
			r.With(middleware.RequireRole(account.RoleAdmin)).Get("/audit", s.handleAPIAudit)
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run performs background upkeep until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.limiter.Run(ctx)
}
