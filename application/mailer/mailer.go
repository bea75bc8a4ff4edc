// Package mailer sends the emails that carry verification secrets: new
// account confirmation, additional address confirmation and password
// reset.
//
// Sending never fails from the caller's point of view. Delivery errors,
// throttled recipients and unknown email types are logged and dropped.
package mailer

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rodneysullivan/browserid/protocol"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// A Type selects the template and landing page of an email.
type Type string

const (
	TypeNew   Type = "new"
	TypeAdd   Type = "add"
	TypeReset Type = "reset"
)

type emailTemplate struct {
	landing string
	subject string
	body    *template.Template
}

var templates = map[Type]*emailTemplate{
	TypeNew: {
		landing: "verify_email_address",
		subject: "Confirm email address for Persona",
		body: template.Must(template.New("new").Parse(
			`Thanks for verifying your email address. This message is being sent to you to complete your sign-in to {{.Site}}.

Finish registration by clicking this link: {{.Link}}

If you are NOT trying to sign into this site, just ignore this email.
`)),
	},
	TypeAdd: {
		landing: "add_email_address",
		subject: "Confirm email address for Persona",
		body: template.Must(template.New("add").Parse(
			`Thanks for verifying your email address. This message is being sent to you to complete your sign-in to {{.Site}}.

Finish adding this address by clicking this link: {{.Link}}

If you are NOT trying to sign into this site, just ignore this email.
`)),
	},
	TypeReset: {
		landing: "verify_email_address",
		subject: "Reset Persona password",
		body: template.Must(template.New("reset").Parse(
			`Forgot your password for {{.Site}}? No problem.

Click this link to reset it: {{.Link}}

If you did NOT ask to reset your password, just ignore this email.
`)),
	},
}

// An Interceptor receives the email, the site's hostname and the secret
// of every message instead of the message being delivered.
type Interceptor func(email, site, secret string)

// sender is the part of *sendgrid.Client the mailer uses.
type sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// A Mailer builds and delivers verification emails.
type Mailer struct {
	conf     *Config
	logger   *zap.Logger
	client   sender
	throttle *throttle
	console  io.Writer
	now      func() time.Time

	interceptor Interceptor
}

// An Option configures a Mailer.
type Option func(*Mailer)

// WithLogger sets the logger delivery problems are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Mailer) { m.logger = logger }
}

// WithConsole sets where links are printed in console mode.
func WithConsole(w io.Writer) Option {
	return func(m *Mailer) { m.console = w }
}

// New creates a Mailer. Unless conf asks for console output, it needs a
// SendGrid API key and a sender address.
func New(conf *Config, opts ...Option) (*Mailer, error) {
	if _, err := url.Parse(conf.PublicURL); err != nil || conf.PublicURL == "" {
		return nil, fmt.Errorf("Invalid public url %q", conf.PublicURL)
	}
	m := &Mailer{
		conf:     conf,
		logger:   zap.NewNop(),
		throttle: newThrottle(conf.RatePerSecond, conf.Burst, 0),
		console:  os.Stdout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !conf.EmailToConsole {
		if conf.SendGridAPIKey == "" || conf.From == "" {
			return nil, fmt.Errorf("A SendGrid API key and a sender address are required")
		}
		m.client = sendgrid.NewSendClient(conf.SendGridAPIKey)
	}
	return m, nil
}

// SetInterceptor routes every later message to f instead of delivering
// it. A nil f restores delivery.
func (m *Mailer) SetInterceptor(f Interceptor) {
	m.interceptor = f
}

// SendNewUserEmail asks email to confirm a new account created from site.
func (m *Mailer) SendNewUserEmail(email, site, secret string) {
	m.send(TypeNew, email, site, secret)
}

// SendAddAddressEmail asks email to confirm its addition to an account.
func (m *Mailer) SendAddAddressEmail(email, site, secret string) {
	m.send(TypeAdd, email, site, secret)
}

// SendForgotPasswordEmail sends email a password reset link.
func (m *Mailer) SendForgotPasswordEmail(email, site, secret string) {
	m.send(TypeReset, email, site, secret)
}

// Link returns the landing page link carrying secret for typ.
func (m *Mailer) Link(typ Type, secret string) (string, error) {
	tmpl, ok := templates[typ]
	if !ok {
		return "", fmt.Errorf("unknown email type: %s", typ)
	}
	return strings.TrimSuffix(m.conf.PublicURL, "/") + "/" + tmpl.landing +
		"?token=" + url.QueryEscape(secret), nil
}

func (m *Mailer) send(typ Type, email, site, secret string) {
	tmpl, ok := templates[typ]
	if !ok {
		m.logger.Error("unknown email type", zap.String("type", string(typ)))
		return
	}
	link, _ := m.Link(typ, secret)
	site = protocol.Hostname(site)

	if m.interceptor != nil {
		m.interceptor(email, site, secret)
		return
	}
	if !m.throttle.allow(email, m.now()) {
		m.logger.Warn("too many emails, dropping",
			zap.String("type", string(typ)), zap.String("to", email))
		return
	}
	if m.conf.EmailToConsole {
		fmt.Fprintf(m.console, "\nVERIFICATION URL:\n%s\n\n", link)
		return
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, struct{ Link, Site string }{link, site}); err != nil {
		m.logger.Error("cannot render email", zap.String("type", string(typ)), zap.Error(err))
		return
	}
	from := mail.NewEmail(m.conf.FromName, m.conf.From)
	to := mail.NewEmail("", email)
	message := mail.NewSingleEmail(from, tmpl.subject, to, body.String(), "")
	if m.conf.SandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.SetMailSettings(ms)
	}

	res, err := m.client.Send(message)
	if err == nil && res != nil && res.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	if err != nil {
		m.logger.Error("error sending email",
			zap.String("type", string(typ)), zap.String("to", email), zap.Error(err))
	}
}
