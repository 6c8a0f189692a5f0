package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gymtrack/internal/domain/account"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request within the interval should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other IPs have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Error("bucket should refill after the interval")
	}

	now = now.Add(10 * time.Minute)
	rl.evict(5 * time.Minute)
	if len(rl.visitors) != 0 {
		t.Errorf("idle visitors not evicted: %d left", len(rl.visitors))
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:" + []string{"5000", "5001"}[i] // same IP, different ports
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Errorf("request %d status = %d, want %d", i, rr.Code, want)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestCSRF_RejectsFormWithoutToken(t *testing.T) {
	handler := CSRF(make([]byte, 32), false, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("POST", "/members", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("form POST status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("POST", "/api/members", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("JSON POST status = %d, want 200", rr.Code)
	}
}

func TestCSRF_APIExemption(t *testing.T) {
	handler := CSRF(make([]byte, 32), false, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		want        int
	}{
		{"api delete without body", "DELETE", "/api/members/m1", "", http.StatusOK},
		{"api post without body", "POST", "/api/reminders/send", "", http.StatusOK},
		{"api json", "PUT", "/api/members/m1", "application/json; charset=utf-8", http.StatusOK},
		{"api form post", "POST", "/api/members", "application/x-www-form-urlencoded", http.StatusForbidden},
		{"api text/plain post", "POST", "/api/reminders/send", "text/plain", http.StatusForbidden},
		{"api multipart post", "POST", "/api/members", "multipart/form-data; boundary=x", http.StatusForbidden},
		{"json outside api", "POST", "/members", "application/json", http.StatusForbidden},
		{"bodyless post outside api", "POST", "/logout", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := NewSessionStore([]byte("0123456789abcdef0123456789abcdef"), nil, false)

	rr := httptest.NewRecorder()
	if err := store.Create(rr, httptest.NewRequest("POST", "/login", nil), Session{AccountID: "a1", Username: "admin", Role: account.RoleAdmin}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	sess, ok := store.Get(req)
	if !ok || sess.AccountID != "a1" || sess.Username != "admin" || sess.Role != account.RoleAdmin {
		t.Errorf("Get = %+v, %v", sess, ok)
	}

	tampered := httptest.NewRequest("GET", "/", nil)
	tampered.AddCookie(&http.Cookie{Name: cookies[0].Name, Value: cookies[0].Value + "x"})
	if _, ok := store.Get(tampered); ok {
		t.Error("tampered cookie accepted")
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(account.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	tests := []struct {
		name    string
		path    string
		session *Session
		want    int
	}{
		{"anonymous page", "/", nil, http.StatusSeeOther},
		{"anonymous api", "/api/members", nil, http.StatusUnauthorized},
		{"trainer api", "/api/members/1", &Session{AccountID: "t", Role: account.RoleTrainer}, http.StatusForbidden},
		{"admin api", "/api/members/1", &Session{AccountID: "a", Role: account.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("DELETE", tt.path, nil)
			if tt.session != nil {
				req = req.WithContext(ContextWithSession(req.Context(), *tt.session))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
