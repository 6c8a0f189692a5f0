package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"

	domainAccount "gymtrack/internal/domain/account"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const accountContextKey contextKey = "account"

const (
	sessionCookieName = "gymtrack_session"
	sessionMaxAge     = 24 * time.Hour
)

// Session represents an authenticated staff session.
type Session struct {
	AccountID string
	Username  string
	Role      string
	CreatedAt time.Time
}

// SessionStore keeps sessions in a signed and encrypted cookie.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore creates a cookie-backed session store.
// PRE: hashKey is at least 32 bytes; blockKey is nil or 16/24/32 bytes
// POST: Cookies are HttpOnly, SameSite=Lax and Secure when secure is true
func NewSessionStore(hashKey, blockKey []byte, secure bool) *SessionStore {
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Create starts a session for the account and writes the cookie.
// PRE: sess.AccountID and sess.Role are non-empty
// POST: Session cookie is set on w
func (ss *SessionStore) Create(w http.ResponseWriter, r *http.Request, sess Session) error {
	s, _ := ss.store.Get(r, sessionCookieName) // a stale cookie yields a fresh session
	s.Values["account_id"] = sess.AccountID
	s.Values["username"] = sess.Username
	s.Values["role"] = sess.Role
	s.Values["created_at"] = time.Now().Unix()
	return s.Save(r, w)
}

// Get reads the session from the request cookie.
// POST: Returns false for missing, tampered or expired sessions
func (ss *SessionStore) Get(r *http.Request) (Session, bool) {
	s, err := ss.store.Get(r, sessionCookieName)
	if err != nil || s.IsNew {
		return Session{}, false
	}
	id, _ := s.Values["account_id"].(string)
	role, _ := s.Values["role"].(string)
	created, _ := s.Values["created_at"].(int64)
	if id == "" || role == "" {
		return Session{}, false
	}
	sess := Session{AccountID: id, Role: role, CreatedAt: time.Unix(created, 0)}
	sess.Username, _ = s.Values["username"].(string)
	if time.Since(sess.CreatedAt) > sessionMaxAge {
		return Session{}, false
	}
	return sess, true
}

// Delete expires the session cookie.
func (ss *SessionStore) Delete(w http.ResponseWriter, r *http.Request) error {
	s, _ := ss.store.Get(r, sessionCookieName)
	s.Values = map[interface{}]interface{}{}
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

// AddFlash queues a one-off message shown on the next page render.
func (ss *SessionStore) AddFlash(w http.ResponseWriter, r *http.Request, msg string) error {
	s, _ := ss.store.Get(r, sessionCookieName)
	s.AddFlash(msg)
	return s.Save(r, w)
}

// Flashes pops queued messages. The cookie is rewritten only when there were any.
func (ss *SessionStore) Flashes(w http.ResponseWriter, r *http.Request) []string {
	s, err := ss.store.Get(r, sessionCookieName)
	if err != nil {
		return nil
	}
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = s.Save(r, w)
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if m, ok := f.(string); ok {
			out = append(out, m)
		}
	}
	return out
}

// Auth returns middleware that reads the session cookie and sets the account in context.
// It does not block unauthenticated requests; RequireAuth and RequireRole do.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, ok := sessions.Get(r); ok {
				r = r.WithContext(ContextWithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// unauthenticated redirects browsers to the login page and answers API clients with 401.
func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"authentication required"}` + "\n"))
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// RequireAuth returns middleware that blocks unauthenticated requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that blocks requests from users without one of the specified roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSessionFromContext(r.Context())
			if !ok {
				unauthenticated(w, r)
				return
			}
			if !roleSet[session.Role] {
				if isAPI(r) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					w.Write([]byte(`{"error":"forbidden"}` + "\n"))
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(accountContextKey).(Session)
	return session, ok
}

// IsAdmin checks if the current session is an admin.
func IsAdmin(ctx context.Context) bool {
	session, ok := GetSessionFromContext(ctx)
	return ok && session.Role == domainAccount.RoleAdmin
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, accountContextKey, sess)
}
