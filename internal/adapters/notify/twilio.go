package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const whatsAppPrefix = "whatsapp:"

// messageAPI is the part of the Twilio client used here.
type messageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends SMS or WhatsApp messages via the Twilio Messages API.
type TwilioSender struct {
	api      messageAPI
	from     string
	whatsApp bool
}

func newTwilioAPI(accountSID, authToken string) messageAPI {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return client.Api
}

// NewSMSSender creates a sender for plain SMS from the given number.
// PRE: from is an E.164 number owned by the account
func NewSMSSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{api: newTwilioAPI(accountSID, authToken), from: from}
}

// NewWhatsAppSender creates a sender for WhatsApp from the given number.
// PRE: from is a WhatsApp-enabled sender on the account
func NewWhatsAppSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{api: newTwilioAPI(accountSID, authToken), from: from, whatsApp: true}
}

func (s *TwilioSender) channel() string {
	if s.whatsApp {
		return "whatsapp"
	}
	return "sms"
}

func (s *TwilioSender) address(number string) string {
	if s.whatsApp && !strings.HasPrefix(number, whatsAppPrefix) {
		return whatsAppPrefix + number
	}
	return number
}

// Send posts msg.Text to the recipient. The Twilio client is synchronous,
// so ctx is only checked before the call.
// POST: returns the message SID on success
func (s *TwilioSender) Send(ctx context.Context, msg Message) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.address(msg.To))
	params.SetFrom(s.address(s.from))
	params.SetBody(msg.Text)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		slog.Error("twilio_send_failed", "channel", s.channel(), "error", err, "to", msg.To)
		return Result{}, fmt.Errorf("twilio %s send failed: %w", s.channel(), err)
	}

	var sid string
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Info("twilio_sent", "channel", s.channel(), "message_sid", sid, "to", msg.To)
	return Result{ProviderID: sid, SentAt: time.Now()}, nil
}
