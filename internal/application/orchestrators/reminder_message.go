package orchestrators

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// ReminderData is what reminder templates can refer to.
type ReminderData struct {
	GymName    string
	MemberName string
	PlanLabel  string
	ExpiryDate time.Time
	Today      time.Time
	DaysLeft   int
}

// ReminderMessage is a rendered reminder for every channel.
type ReminderMessage struct {
	Subject string
	Text    string // SMS and WhatsApp body, and the email plain-text part
	HTML    string // email body
}

const (
	defaultSubject = `Your {{.GymName}} membership expires {{when .}}`

	defaultEmailMarkdown = `Hi {{.MemberName}},

Your **{{.PlanLabel}}** membership at {{.GymName}} expires **{{when .}}**, on {{date .ExpiryDate}}.

Please renew at the front desk to keep training without a break.

See you at the gym!
`

	defaultText = `Hi {{.MemberName}}, your {{.GymName}} membership expires {{when .}} ({{date .ExpiryDate}}). Please renew at the front desk to keep training.`
)

// ReminderRenderer renders reminder text from templates.
// Email bodies are markdown and converted to HTML with raw HTML escaped.
type ReminderRenderer struct {
	subject *template.Template
	email   *template.Template
	text    *template.Template
	md      goldmark.Markdown
}

// whenPhrase describes the expiry relative to today, e.g. "in 3 days".
func whenPhrase(d ReminderData) string {
	switch d.DaysLeft {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	}
	return "in " + strings.TrimSuffix(humanize.RelTime(d.Today, d.ExpiryDate, "", ""), " ")
}

var reminderFuncs = template.FuncMap{
	"when": whenPhrase,
	"date": func(t time.Time) string { return t.Format("Mon, 2 Jan 2006") },
}

// NewReminderRenderer parses the built-in templates.
func NewReminderRenderer() *ReminderRenderer {
	return &ReminderRenderer{
		subject: template.Must(template.New("subject").Funcs(reminderFuncs).Parse(defaultSubject)),
		email:   template.Must(template.New("email").Funcs(reminderFuncs).Parse(defaultEmailMarkdown)),
		text:    template.Must(template.New("text").Funcs(reminderFuncs).Parse(defaultText)),
		md: goldmark.New(
			goldmark.WithRendererOptions(
				goldmarkHTML.WithHardWraps(),
			),
		),
	}
}

// Render produces the subject, plain text and HTML for d.
func (r *ReminderRenderer) Render(d ReminderData) (ReminderMessage, error) {
	var msg ReminderMessage
	var buf bytes.Buffer

	if err := r.subject.Execute(&buf, d); err != nil {
		return msg, err
	}
	msg.Subject = buf.String()

	buf.Reset()
	if err := r.text.Execute(&buf, d); err != nil {
		return msg, err
	}
	msg.Text = buf.String()

	buf.Reset()
	if err := r.email.Execute(&buf, d); err != nil {
		return msg, err
	}
	var html bytes.Buffer
	if err := r.md.Convert(buf.Bytes(), &html); err != nil {
		return msg, err
	}
	msg.HTML = html.String()
	return msg, nil
}
