package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeSender struct {
	mu    sync.Mutex
	errs  []error // returned in order; nil once exhausted
	calls []Message
}

func (f *fakeSender) Send(_ context.Context, msg Message) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return Result{}, err
		}
	}
	return Result{ProviderID: "id-" + msg.To, SentAt: time.Now()}, nil
}

type fakeEmails struct {
	got *resend.SendEmailRequest
	err error
}

func (f *fakeEmails) SendWithContext(_ context.Context, p *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "re_123"}, nil
}

type fakeMessages struct {
	got *twilioApi.CreateMessageParams
	err error
}

func (f *fakeMessages) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

var fastRetry = RetryPolicy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestRouter_DispatchesByChannel(t *testing.T) {
	email, sms := &fakeSender{}, &fakeSender{}
	r := NewRouter().Register("email", email).Register("sms", sms)

	_, err := r.Send(context.Background(), Message{Channel: "sms", To: "+919800000001", Text: "hi"})
	require.NoError(t, err)
	assert.Len(t, sms.calls, 1)
	assert.Empty(t, email.calls)
	assert.True(t, r.Has("email"))
	assert.False(t, r.Has("whatsapp"))

	_, err = r.Send(context.Background(), Message{Channel: "whatsapp", To: "+919800000001"})
	assert.ErrorIs(t, err, ErrChannelNotConfigured)

	_, err = r.Send(context.Background(), Message{Channel: "email"})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &fakeSender{errs: []error{errors.New("503"), errors.New("timeout")}}
	s := WithRetry(inner, fastRetry)

	res, err := s.Send(context.Background(), Message{Channel: "email", To: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "id-a@b.c", res.ProviderID)
}

func TestWithRetry_GivesUp(t *testing.T) {
	boom := errors.New("provider down")
	inner := &fakeSender{errs: []error{boom, boom, boom, boom}}
	s := WithRetry(inner, fastRetry)

	res, err := s.Send(context.Background(), Message{Channel: "email", To: "a@b.c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, inner.calls, 3)
}

func TestWithRetry_DoesNotRetryConfigurationErrors(t *testing.T) {
	s := WithRetry(NewRouter(), fastRetry)
	res, err := s.Send(context.Background(), Message{Channel: "sms", To: "+91"})
	assert.ErrorIs(t, err, ErrChannelNotConfigured)
	assert.Equal(t, 1, res.Attempts)
}

func TestWithRetry_Defaults(t *testing.T) {
	s := WithRetry(&fakeSender{}, RetryPolicy{})
	assert.Equal(t, DefaultRetryPolicy.Attempts, s.policy.Attempts)
	assert.Equal(t, DefaultRetryPolicy.MaxDelay, s.policy.MaxDelay)
}

func TestResendSender_Send(t *testing.T) {
	api := &fakeEmails{}
	s := &ResendSender{emails: api, from: "Gym <noreply@gym.test>", replyTo: "desk@gym.test"}

	res, err := s.Send(context.Background(), Message{
		Channel: "email",
		To:      "asha@example.com",
		Subject: "Your membership expires soon",
		Text:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "re_123", res.ProviderID)
	require.NotNil(t, api.got)
	assert.Equal(t, []string{"asha@example.com"}, api.got.To)
	assert.Equal(t, "Gym <noreply@gym.test>", api.got.From)
	assert.Equal(t, "<p>html</p>", api.got.Html)
	assert.Equal(t, "desk@gym.test", api.got.ReplyTo)

	api.err = errors.New("invalid api key")
	_, err = s.Send(context.Background(), Message{To: "asha@example.com"})
	assert.ErrorContains(t, err, "invalid api key")
}

func TestTwilioSender_SMS(t *testing.T) {
	api := &fakeMessages{}
	s := &TwilioSender{api: api, from: "+15550001111"}

	res, err := s.Send(context.Background(), Message{Channel: "sms", To: "+919800000001", Text: "Renew soon"})
	require.NoError(t, err)
	assert.Equal(t, "SM123", res.ProviderID)
	assert.Equal(t, "+919800000001", *api.got.To)
	assert.Equal(t, "+15550001111", *api.got.From)
	assert.Equal(t, "Renew soon", *api.got.Body)
}

func TestTwilioSender_WhatsAppPrefixesNumbers(t *testing.T) {
	api := &fakeMessages{}
	s := &TwilioSender{api: api, from: "whatsapp:+14155238886", whatsApp: true}

	_, err := s.Send(context.Background(), Message{Channel: "whatsapp", To: "+919800000001", Text: "Renew soon"})
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+919800000001", *api.got.To)
	assert.Equal(t, "whatsapp:+14155238886", *api.got.From)
}

func TestTwilioSender_Errors(t *testing.T) {
	api := &fakeMessages{err: errors.New("21211 invalid 'To'")}
	s := &TwilioSender{api: api, from: "+1555"}
	_, err := s.Send(context.Background(), Message{To: "bad", Text: "x"})
	assert.ErrorContains(t, err, "twilio sms send failed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Send(ctx, Message{To: "+1", Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoopSender(t *testing.T) {
	res, err := NewNoopSender().Send(context.Background(), Message{Channel: "email", To: "a@b.c"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ProviderID)
	assert.True(t, res.Simulated)

	res, err = WithRetry(NewNoopSender(), RetryPolicy{Attempts: 2}).Send(context.Background(), Message{Channel: "email", To: "a@b.c"})
	require.NoError(t, err)
	assert.True(t, res.Simulated, "retry wrapper must keep the simulated flag")
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		phone, cc, want string
	}{
		{"9800000001", "+91", "+919800000001"},
		{"098000 00001", "+91", "+919800000001"},
		{"+1 (555) 000-1111", "+91", "+15550001111"},
		{"919800000001", "+91", "+919800000001"},
		{"", "+91", ""},
		{"n/a", "+91", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.phone, tt.cc), "NormalizePhone(%q)", tt.phone)
	}
}
