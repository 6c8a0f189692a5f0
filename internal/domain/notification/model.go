package notification

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Channel constants
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Status constants for the notification lifecycle.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusSimulated = "simulated" // accepted by a sender that delivers nothing
)

// ValidChannels lists the supported delivery channels.
var ValidChannels = []string{ChannelEmail, ChannelSMS, ChannelWhatsApp}

// Domain errors.
var (
	ErrEmptyMemberID  = errors.New("member_id is required")
	ErrEmptyRecipient = errors.New("recipient is required")
	ErrEmptyBody      = errors.New("body is required")
	ErrInvalidChannel = errors.New("channel must be one of: email, sms, whatsapp")
	ErrAlreadySent    = errors.New("notification has already been sent")
)

// Notification is one reminder delivered (or attempted) to a member.
type Notification struct {
	ID         string
	MemberID   string
	Channel    string
	Recipient  string // email address or E.164 phone number
	Subject    string
	Body       string
	ExpiryDate time.Time // the expiry this reminder was about
	Status     string
	Attempts   int
	ProviderID string // message id returned by the provider
	Error      string
	CreatedAt  time.Time
	SentAt     time.Time
}

// ParseChannels splits a comma-separated channel list, dropping blanks.
func ParseChannels(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		c := strings.ToLower(strings.TrimSpace(part))
		if c == "" {
			continue
		}
		if !IsValidChannel(c) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidChannel, c)
		}
		out = append(out, c)
	}
	return out, nil
}

// IsValidChannel reports whether c is a supported channel.
func IsValidChannel(c string) bool {
	for _, v := range ValidChannels {
		if v == c {
			return true
		}
	}
	return false
}

// Validate checks that the Notification has valid data.
// PRE: Notification struct is populated
// POST: Returns nil if valid, error otherwise
func (n *Notification) Validate() error {
	if n.MemberID == "" {
		return ErrEmptyMemberID
	}
	if !IsValidChannel(n.Channel) {
		return ErrInvalidChannel
	}
	if strings.TrimSpace(n.Recipient) == "" {
		return ErrEmptyRecipient
	}
	if strings.TrimSpace(n.Body) == "" {
		return ErrEmptyBody
	}
	if n.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	return nil
}

// MarkSent records a successful delivery.
// PRE: Notification is not already sent
// POST: Status is sent, ProviderID and SentAt set, Error cleared
func (n *Notification) MarkSent(providerID string, attempts int, at time.Time) error {
	if n.Status == StatusSent {
		return ErrAlreadySent
	}
	n.Status = StatusSent
	n.ProviderID = providerID
	n.Attempts = attempts
	n.SentAt = at
	n.Error = ""
	return nil
}

// MarkFailed records a delivery that failed after all attempts.
func (n *Notification) MarkFailed(err error, attempts int) {
	n.Status = StatusFailed
	n.Attempts = attempts
	if err != nil {
		n.Error = err.Error()
	}
}

// MarkSimulated records a send that reached no one. A simulated reminder
// does not count as delivered, so a later run sends it for real.
func (n *Notification) MarkSimulated(providerID string, at time.Time) {
	n.Status = StatusSimulated
	n.ProviderID = providerID
	n.Attempts = 1
	n.SentAt = at
	n.Error = ""
}

// IsSent returns true once the notification has been delivered.
func (n *Notification) IsSent() bool {
	return n.Status == StatusSent
}
