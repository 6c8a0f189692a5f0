package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Message is one reminder addressed to a single recipient on one channel.
type Message struct {
	Channel string // email, sms or whatsapp
	To      string // email address or E.164 phone number
	Subject string // email only
	Text    string
	HTML    string // email only; Text is used when empty
}

// Result is the provider's acknowledgement of a send.
type Result struct {
	ProviderID string    // Provider's message ID for tracking
	SentAt     time.Time // When the send was accepted
	Attempts   int       // Calls made to the provider, including the successful one
	Simulated  bool      // Nothing was delivered; the sender only logged the message
}

// Sender delivers messages through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// Errors
var (
	ErrChannelNotConfigured = errors.New("no sender configured for channel")
	ErrNoRecipient          = errors.New("message has no recipient")
)

// Router dispatches each message to the sender registered for its channel.
type Router struct {
	senders map[string]Sender
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{senders: map[string]Sender{}}
}

// Register sets the sender for channel, replacing any previous one.
func (r *Router) Register(channel string, s Sender) *Router {
	r.senders[channel] = s
	return r
}

// Has reports whether channel has a sender.
func (r *Router) Has(channel string) bool {
	_, ok := r.senders[channel]
	return ok
}

// Send delivers msg through the sender registered for msg.Channel.
// PRE: msg.To is non-empty
// POST: returns ErrChannelNotConfigured when no sender is registered
func (r *Router) Send(ctx context.Context, msg Message) (Result, error) {
	if msg.To == "" {
		return Result{}, ErrNoRecipient
	}
	s, ok := r.senders[msg.Channel]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrChannelNotConfigured, msg.Channel)
	}
	return s.Send(ctx, msg)
}

// NormalizePhone renders a stored phone number in E.164 form. Numbers
// without a leading "+" get countryCode prepended, and a single trunk "0"
// is dropped first. Returns "" when no digits remain.
func NormalizePhone(phone, countryCode string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		return "+" + d
	}
	d = strings.TrimPrefix(d, "0")
	cc := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if cc != "" && strings.HasPrefix(d, cc) && len(d) > 10 {
		return "+" + d
	}
	return "+" + cc + d
}
