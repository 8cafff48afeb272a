package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// smtpSender submits messages over SMTP with the caller's credentials.
type smtpSender struct {
	cfg Config
	log zerolog.Logger
}

func newSMTPSender(cfg Config, log zerolog.Logger) *smtpSender {
	return &smtpSender{cfg: cfg, log: log.With().Str("transport", "smtp").Logger()}
}

// Send validates, composes and submits the message. The caller's
// username doubles as the envelope sender when no From is given.
func (s *smtpSender) Send(_ context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Username == "" || req.Password == "" {
		return nil, &ValidationError{Missing: []string{"username", "password"}}
	}

	from := fromAddress(req, s.cfg)
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.SMTPHost)
	body := composeMessage(from, req, messageID)

	recipients := append([]string{}, req.To...)
	recipients = append(recipients, req.Cc...)
	recipients = append(recipients, req.Bcc...)

	addr := net.JoinHostPort(s.cfg.SMTPHost, fmt.Sprintf("%d", s.cfg.SMTPPort))

	var err error
	if s.cfg.SMTPImplicitTLS {
		err = s.sendWithTLS(addr, req, from, recipients, body)
	} else {
		err = s.sendWithStartTLS(addr, req, from, recipients, body)
	}
	if err != nil {
		return nil, &DeliveryError{Transport: "smtp", Message: err.Error()}
	}

	s.log.Info().Int("recipients", len(recipients)).Msg("message submitted")
	return &Result{MessageID: messageID, Transport: "smtp"}, nil
}

// sendWithTLS submits over an implicit TLS connection.
func (s *smtpSender) sendWithTLS(addr string, req Request, from string, recipients []string, body string) error {
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	conn, err := tls.DialWithDialer(
		&net.Dialer{Timeout: s.cfg.Timeout}, "tcp", addr, tlsConfig,
	)
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	// The dial timeout does not cover the SMTP conversation itself.
	if err := conn.SetDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("setting deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", req.Username, req.Password, s.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	return submit(client, from, recipients, body)
}

// sendWithStartTLS submits using STARTTLS on the submission port.
func (s *smtpSender) sendWithStartTLS(addr string, req Request, from string, recipients []string, body string) error {
	conn, err := net.DialTimeout("tcp", addr, s.cfg.Timeout)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	if err := conn.SetDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("setting deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", req.Username, req.Password, s.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	return submit(client, from, recipients, body)
}

// submit runs the MAIL/RCPT/DATA sequence on an authenticated client.
func submit(client *smtp.Client, from string, recipients []string, body string) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write([]byte(body)); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}

	return client.Quit()
}

// composeMessage builds the RFC 5322 message. Both text and HTML parts
// produce a multipart/alternative body; Bcc recipients appear only in
// the envelope.
func composeMessage(from string, req Request, messageID string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(req.To, ", ")))
	if len(req.Cc) > 0 {
		msg.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(req.Cc, ", ")))
	}
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", req.Subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	msg.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case req.Text != "" && req.HTML != "":
		boundary := "alt-" + uuid.NewString()
		msg.WriteString(fmt.Sprintf(
			"Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary,
		))
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(req.Text)
		msg.WriteString(fmt.Sprintf("\r\n--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(req.HTML)
		msg.WriteString(fmt.Sprintf("\r\n--%s--\r\n", boundary))
	case req.HTML != "":
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(req.HTML)
	default:
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(req.Text)
	}

	return msg.String()
}
