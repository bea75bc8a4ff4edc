package mailer

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (s *fakeSender) Send(email *mail.SGMailV3) (*rest.Response, error) {
	s.sent = append(s.sent, email)
	if s.err != nil {
		return nil, s.err
	}
	status := s.status
	if status == 0 {
		status = 202
	}
	return &rest.Response{StatusCode: status}, nil
}

func newTestMailer(t *testing.T, conf *Config) (*Mailer, *fakeSender, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	if conf.SendGridAPIKey == "" {
		conf.SendGridAPIKey = "SG.test"
	}
	if conf.From == "" {
		conf.From = "no-reply@example.org"
	}
	m, err := New(conf, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	s := new(fakeSender)
	m.client = s
	return m, s, logs
}

func plainText(email *mail.SGMailV3) string {
	for _, c := range email.Content {
		if c.Type == "text/plain" {
			return c.Value
		}
	}
	return ""
}

func TestLink(t *testing.T) {
	m, _, _ := newTestMailer(t, &Config{PublicURL: "https://login.example.org"})
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeNew, "https://login.example.org/verify_email_address?token=a+b%2Fc"},
		{TypeAdd, "https://login.example.org/add_email_address?token=a+b%2Fc"},
		{TypeReset, "https://login.example.org/verify_email_address?token=a+b%2Fc"},
	}
	for _, tt := range tests {
		got, err := m.Link(tt.typ, "a b/c")
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Error(tt.typ, "Expect", tt.want, "got", got)
		}
	}
	if _, err := m.Link(Type("bogus"), "secret"); err == nil {
		t.Error("Expect an error for an unknown email type")
	}
}

func TestSendNewUserEmail(t *testing.T) {
	m, s, _ := newTestMailer(t, &Config{
		PublicURL: "https://login.example.org",
		FromName:  "Persona",
	})
	m.SendNewUserEmail("alice@example.com", "https://rp.example.com:8443", "s3cret")

	if len(s.sent) != 1 {
		t.Fatal("Expect 1 email", "got", len(s.sent))
	}
	email := s.sent[0]
	if email.Subject != "Confirm email address for Persona" {
		t.Error("Unexpected subject", email.Subject)
	}
	if email.From.Address != "no-reply@example.org" || email.From.Name != "Persona" {
		t.Error("Unexpected sender", email.From)
	}
	if to := email.Personalizations[0].To[0].Address; to != "alice@example.com" {
		t.Error("Expect", "alice@example.com", "got", to)
	}
	body := plainText(email)
	if !strings.Contains(body, "https://login.example.org/verify_email_address?token=s3cret") {
		t.Error("Expect the landing link in", body)
	}
	// the site is shown by hostname only
	if !strings.Contains(body, "sign-in to rp.example.com.") {
		t.Error("Expect the site's hostname in", body)
	}
	if email.MailSettings != nil {
		t.Error("Expect no mail settings outside sandbox mode")
	}
}

func TestSendForgotPasswordEmail(t *testing.T) {
	m, s, _ := newTestMailer(t, &Config{
		PublicURL:   "https://login.example.org",
		SandboxMode: true,
	})
	m.SendForgotPasswordEmail("alice@example.com", "https://rp.example.com", "s3cret")
	m.SendAddAddressEmail("bob@example.com", "https://rp.example.com", "t0ken")

	if len(s.sent) != 2 {
		t.Fatal("Expect 2 emails", "got", len(s.sent))
	}
	if s.sent[0].Subject != "Reset Persona password" {
		t.Error("Unexpected subject", s.sent[0].Subject)
	}
	if !strings.Contains(plainText(s.sent[1]), "/add_email_address?token=t0ken") {
		t.Error("Expect the add address link in", plainText(s.sent[1]))
	}
	for _, email := range s.sent {
		ms := email.MailSettings
		if ms == nil || ms.SandboxMode == nil || ms.SandboxMode.Enable == nil ||
			!*ms.SandboxMode.Enable {
			t.Error("Expect sandbox mode to be enabled")
		}
	}
}

func TestInterceptor(t *testing.T) {
	m, s, _ := newTestMailer(t, &Config{PublicURL: "https://login.example.org"})
	var gotEmail, gotSite, gotSecret string
	m.SetInterceptor(func(email, site, secret string) {
		gotEmail, gotSite, gotSecret = email, site, secret
	})
	m.SendNewUserEmail("alice@example.com", "http://rp.example.com", "s3cret")
	if gotEmail != "alice@example.com" || gotSite != "rp.example.com" || gotSecret != "s3cret" {
		t.Error("Unexpected interception", gotEmail, gotSite, gotSecret)
	}
	if len(s.sent) != 0 {
		t.Error("Expect intercepted emails not to be sent")
	}
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	m, err := New(&Config{
		PublicURL:      "https://login.example.org",
		EmailToConsole: true,
	}, WithConsole(&out))
	if err != nil {
		t.Fatal(err)
	}
	m.SendNewUserEmail("alice@example.com", "https://rp.example.com", "s3cret")
	want := "\nVERIFICATION URL:\nhttps://login.example.org/verify_email_address?token=s3cret\n\n"
	if out.String() != want {
		t.Error("Expect", want, "got", out.String())
	}
}

func TestDeliveryErrorsAreLogged(t *testing.T) {
	m, s, logs := newTestMailer(t, &Config{PublicURL: "https://login.example.org"})
	s.err = errors.New("connection refused")
	m.SendNewUserEmail("alice@example.com", "https://rp.example.com", "s3cret")
	s.err = nil
	s.status = 400
	m.SendNewUserEmail("alice@example.com", "https://rp.example.com", "s3cret")

	if n := logs.FilterMessage("error sending email").Len(); n != 2 {
		t.Error("Expect 2 logged delivery errors", "got", n)
	}
}

func TestRecipientThrottle(t *testing.T) {
	m, s, logs := newTestMailer(t, &Config{
		PublicURL:     "https://login.example.org",
		RatePerSecond: 1,
		Burst:         2,
	})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		m.SendNewUserEmail("alice@example.com", "https://rp.example.com", "s3cret")
	}
	// other recipients have their own budget
	m.SendNewUserEmail("bob@example.com", "https://rp.example.com", "s3cret")
	if len(s.sent) != 3 {
		t.Error("Expect 3 emails", "got", len(s.sent))
	}
	if n := logs.FilterMessage("too many emails, dropping").Len(); n != 1 {
		t.Error("Expect 1 dropped email", "got", n)
	}

	now = now.Add(time.Second)
	m.SendNewUserEmail("Alice@example.com", "https://rp.example.com", "s3cret")
	if len(s.sent) != 4 {
		t.Error("Expect the bucket to refill", "got", len(s.sent))
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(&Config{PublicURL: "https://login.example.org"}); err == nil {
		t.Error("Expect an error without a SendGrid API key")
	}
	if _, err := New(&Config{EmailToConsole: true}); err == nil {
		t.Error("Expect an error without a public url")
	}
}
