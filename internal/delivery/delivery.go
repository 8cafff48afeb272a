// Package delivery hands composed messages to one of two outbound
// transports: authenticated SMTP submission with the caller's own
// credentials, or the Mailgun HTTP API with a process-wide key. The
// transport is chosen once at startup by configuration presence, not
// per request.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Request is one outbound message. To and Subject are required; the
// rest is optional. Username/Password are the caller's submission
// credentials, used by the SMTP transport and as the from-identity
// fallback.
type Request struct {
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	Text     string
	HTML     string
	Username string
	Password string
}

// Result reports a successful hand-off to the transport.
type Result struct {
	MessageID string `json:"messageId"`
	Transport string `json:"transport"`
}

// Sender delivers one message. Implementations must validate before
// any network I/O and preserve provider error bodies verbatim.
type Sender interface {
	Send(ctx context.Context, req Request) (*Result, error)
}

// Config holds the process-wide outbound settings. Presence of the
// Mailgun key and domain selects the HTTP transport; otherwise SMTP
// submission is used.
type Config struct {
	SMTPHost string
	SMTPPort int
	// SMTPImplicitTLS selects implicit TLS (port 465 style) instead
	// of STARTTLS submission.
	SMTPImplicitTLS bool

	MailgunAPIKey  string
	MailgunDomain  string
	MailgunBaseURL string

	// DefaultFrom is the from-identity fallback when a request names
	// neither a From address nor credentials.
	DefaultFrom string

	Timeout time.Duration
}

// DefaultTimeout bounds one delivery attempt when the configuration
// does not say otherwise.
const DefaultTimeout = 30 * time.Second

// NewSender selects the delivery transport from the configuration.
func NewSender(cfg Config, log zerolog.Logger) Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "" {
		return newMailgunSender(cfg, log)
	}
	return newSMTPSender(cfg, log)
}

// ValidationError reports missing required fields. It is raised before
// any network call and maps to HTTP 400.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "Missing required fields: " + strings.Join(e.Missing, ", ")
}

// IsValidationError reports whether err chains to a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// DeliveryError reports a rejection by the transport. Message carries
// the provider's error body verbatim for diagnostics.
type DeliveryError struct {
	Transport string
	Message   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %s", e.Transport, e.Message)
}

// validate enforces the required fields shared by both transports.
func validate(req Request) error {
	var missing []string
	if len(req.To) == 0 {
		missing = append(missing, "to")
	}
	if req.Subject == "" {
		missing = append(missing, "subject")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// fromAddress resolves the sender identity: explicit From, then the
// caller's mail identity, then the configured fallback.
func fromAddress(req Request, cfg Config) string {
	if req.From != "" {
		return req.From
	}
	if req.Username != "" {
		return req.Username
	}
	return cfg.DefaultFrom
}
