package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/csrf"

	"gymtrack/internal/adapters/http/middleware"
	"gymtrack/internal/domain/membership"
)

//go:embed templates/*.html
var templateFS embed.FS

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// relativeDays describes a day count the way staff say it: "today", "in 3 days", "2 days ago".
func relativeDays(today time.Time, days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	case -1:
		return "yesterday"
	}
	return humanize.RelTime(today, today.AddDate(0, 0, days), "from now", "ago")
}

func renderTemplate(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())

	funcMap := template.FuncMap{
		"currentUser": func() string { return sess.Username },
		"currentRole": func() string { return sess.Role },
		"isLoggedIn":  func() bool { return loggedIn },
		"isAdmin":     func() bool { return middleware.IsAdmin(r.Context()) },
		"csrfField":   func() template.HTML { return csrf.TemplateField(r) },
		"date":        membership.FormatDate,
		"relDays":     relativeDays,
		"ago":         humanize.Time,
		"comma":       func(n int) string { return humanize.Comma(int64(n)) },
		"plural": func(n int, singular, pluralForm string) string {
			if n == 1 {
				return singular
			}
			return pluralForm
		},
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
