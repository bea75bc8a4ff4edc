package mailer

// A Config describes how verification emails are built and delivered.
type Config struct {
	// PublicURL is the base of the links sent to users.
	PublicURL string `toml:"public_url"`
	// From is the sender address; FromName its display name.
	From     string `toml:"from"`
	FromName string `toml:"from_name,omitempty"`
	// SendGridAPIKey authenticates deliveries.
	SendGridAPIKey string `toml:"sendgrid_api_key,omitempty"`
	// EmailToConsole prints verification links instead of sending mail.
	EmailToConsole bool `toml:"email_to_console,omitempty"`
	// SandboxMode asks SendGrid to validate messages without
	// delivering them.
	SandboxMode bool `toml:"sandbox_mode,omitempty"`
	// RatePerSecond and Burst bound the emails sent to a single
	// recipient. A zero rate disables the limit.
	RatePerSecond float64 `toml:"rate_per_second,omitempty"`
	Burst         int     `toml:"burst,omitempty"`
}
