package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message/mail"
)

// normalizeSummary parses a raw message into its summary-level record.
// A failure is returned as a ParseError for the caller to log and
// skip; it must never abort the surrounding batch.
func normalizeSummary(raw RawMessage) (EmailSummary, error) {
	body, err := parseBody(raw.Body)
	if err != nil {
		return EmailSummary{}, &ParseError{UID: uint32(raw.UID), Err: err}
	}

	summary := summaryFromEnvelope(raw)
	summary.Preview = preview(body.text, body.html)
	summary.HasAttachments = len(body.attachments) > 0
	return summary, nil
}

// normalizeFull parses a raw message into its full-detail record,
// adding complete bodies, cc and attachment metadata to the summary
// fields. A message whose body section came back empty is returned
// with envelope fields only.
func normalizeFull(raw RawMessage) (*Email, error) {
	body := &parsedBody{}
	if len(raw.Body) > 0 {
		var err error
		body, err = parseBody(raw.Body)
		if err != nil {
			return nil, &ParseError{UID: uint32(raw.UID), Err: err}
		}
	}

	email := &Email{
		EmailSummary: summaryFromEnvelope(raw),
		Cc:           []string{},
		TextBody:     body.text,
		HTMLBody:     body.html,
		Attachments:  body.attachments,
	}
	email.Preview = preview(body.text, body.html)
	email.HasAttachments = len(body.attachments) > 0

	if raw.Envelope != nil {
		for _, cc := range raw.Envelope.Cc {
			email.Cc = append(email.Cc, cc.Addr())
		}
	}
	if email.Attachments == nil {
		email.Attachments = []Attachment{}
	}
	return email, nil
}

// summaryFromEnvelope lifts the protocol attributes (envelope, flags,
// UID) into the normalized record. Body-derived fields are filled by
// the callers.
func summaryFromEnvelope(raw RawMessage) EmailSummary {
	summary := EmailSummary{
		UID:     uint32(raw.UID),
		Subject: DefaultSubject,
		To:      []string{},
		Flags:   []string{},
	}

	if env := raw.Envelope; env != nil {
		summary.Date = env.Date
		if env.Subject != "" {
			summary.Subject = env.Subject
		}
		if len(env.From) > 0 {
			from := env.From[0]
			if from.Name != "" {
				summary.From = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				summary.From = from.Addr()
			}
		}
		for _, to := range env.To {
			summary.To = append(summary.To, to.Addr())
		}
	}

	if len(raw.Flags) > 0 {
		summary.Flags = flagStrings(raw.Flags)
	}
	return summary
}

// parsedBody holds the MIME parts extracted from one raw message.
type parsedBody struct {
	text        string
	html        string
	attachments []Attachment
}

// parseBody walks the MIME structure of a raw RFC 5322 message,
// extracting the text/plain part, the text/html part and attachment
// metadata. Attachment content is read only to measure it.
func parseBody(raw []byte) (*parsedBody, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	body := &parsedBody{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			content, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				body.text = string(content)
			case strings.HasPrefix(contentType, "text/html"):
				body.html = string(content)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			content, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			body.attachments = append(body.attachments, Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int64(len(content)),
			})
		}
	}

	return body, nil
}

// preview derives the summary preview: the plain-text body truncated
// to PreviewLength characters, falling back to the HTML body as raw
// markup, or empty when the message has neither.
func preview(text, html string) string {
	if text != "" {
		return truncate(text, PreviewLength)
	}
	if html != "" {
		return truncate(html, PreviewLength)
	}
	return ""
}

// truncate keeps the first n characters (runes, not bytes) of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// flagStrings converts protocol flags for the wire representation.
func flagStrings(flags []imap.Flag) []string {
	out := make([]string, 0, len(flags))
	for _, flag := range flags {
		out = append(out, string(flag))
	}
	return out
}
