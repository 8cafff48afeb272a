package mailbox

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textMessage(body string) []byte {
	return []byte("From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: greetings\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body)
}

func htmlMessage(body string) []byte {
	return []byte("From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: greetings\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" + body)
}

func testEnvelope() *imap.Envelope {
	return &imap.Envelope{
		Date:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Subject: "greetings",
		From: []imap.Address{
			{Name: "Alice", Mailbox: "alice", Host: "example.com"},
		},
		To: []imap.Address{
			{Mailbox: "bob", Host: "example.com"},
		},
		Cc: []imap.Address{
			{Mailbox: "carol", Host: "example.com"},
		},
	}
}

func TestNormalizeSummaryPreviewIsTruncatedPrefix(t *testing.T) {
	body := strings.Repeat("abcde ", 100) // 600 chars
	raw := RawMessage{
		UID:      42,
		Envelope: testEnvelope(),
		Flags:    []imap.Flag{imap.FlagSeen},
		Body:     textMessage(body),
	}

	summary, err := normalizeSummary(raw)
	require.NoError(t, err)

	assert.Equal(t, uint32(42), summary.UID)
	assert.Equal(t, "greetings", summary.Subject)
	assert.Equal(t, "Alice <alice@example.com>", summary.From)
	assert.Equal(t, []string{"bob@example.com"}, summary.To)
	assert.Equal(t, []string{"\\Seen"}, summary.Flags)
	assert.False(t, summary.HasAttachments)

	// The preview is an exact 200-character prefix of the source body.
	assert.Len(t, []rune(summary.Preview), PreviewLength)
	assert.True(t, strings.HasPrefix(body, summary.Preview))
}

func TestNormalizeSummaryShortBodyKeptWhole(t *testing.T) {
	raw := RawMessage{UID: 1, Envelope: testEnvelope(), Body: textMessage("short body")}

	summary, err := normalizeSummary(raw)
	require.NoError(t, err)
	assert.Equal(t, "short body", summary.Preview)
}

func TestNormalizeSummaryHTMLFallback(t *testing.T) {
	html := "<p>" + strings.Repeat("x", 300) + "</p>"
	raw := RawMessage{UID: 2, Envelope: testEnvelope(), Body: htmlMessage(html)}

	summary, err := normalizeSummary(raw)
	require.NoError(t, err)

	// Raw markup, untranslated, truncated like text.
	assert.True(t, strings.HasPrefix(html, summary.Preview))
	assert.Len(t, []rune(summary.Preview), PreviewLength)
	assert.True(t, strings.HasPrefix(summary.Preview, "<p>"))
}

func TestNormalizeSummaryDefaultSubject(t *testing.T) {
	env := testEnvelope()
	env.Subject = ""
	raw := RawMessage{UID: 3, Envelope: env, Body: textMessage("hi")}

	summary, err := normalizeSummary(raw)
	require.NoError(t, err)
	assert.Equal(t, DefaultSubject, summary.Subject)
}

func TestNormalizeSummaryCorruptBody(t *testing.T) {
	raw := RawMessage{UID: 7, Envelope: testEnvelope(), Body: []byte("\x00\x01 not a header")}

	_, err := normalizeSummary(raw)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, uint32(7), parseErr.UID)
}

func TestNormalizeFull(t *testing.T) {
	body := "--frontier\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"plain part\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		"<b>html part</b>\r\n" +
		"--frontier\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
		"\r\n" +
		"%PDF-1.4 fake content\r\n" +
		"--frontier--\r\n"
	msg := []byte("From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: greetings\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=frontier\r\n" +
		"\r\n" + body)

	raw := RawMessage{UID: 9, Envelope: testEnvelope(), Body: msg}

	email, err := normalizeFull(raw)
	require.NoError(t, err)

	assert.Equal(t, "plain part", strings.TrimRight(email.TextBody, "\r\n"))
	assert.Equal(t, "<b>html part</b>", strings.TrimRight(email.HTMLBody, "\r\n"))
	assert.Equal(t, []string{"carol@example.com"}, email.Cc)
	assert.True(t, email.HasAttachments)

	require.Len(t, email.Attachments, 1)
	att := email.Attachments[0]
	assert.Equal(t, "report.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Greater(t, att.Size, int64(0))
}

func TestNormalizeFullEmptyBodySection(t *testing.T) {
	// Some servers return no body section for a message; the envelope
	// data alone still makes a valid record.
	raw := RawMessage{UID: 11, Envelope: testEnvelope()}

	email, err := normalizeFull(raw)
	require.NoError(t, err)

	assert.Equal(t, uint32(11), email.UID)
	assert.Equal(t, "greetings", email.Subject)
	assert.Equal(t, []string{"carol@example.com"}, email.Cc)
	assert.Empty(t, email.TextBody)
	assert.Empty(t, email.HTMLBody)
	assert.Empty(t, email.Preview)
	assert.False(t, email.HasAttachments)
	assert.NotNil(t, email.Attachments)
}

func TestPreviewPrecedence(t *testing.T) {
	assert.Equal(t, "text", preview("text", "<p>html</p>"))
	assert.Equal(t, "<p>html</p>", preview("", "<p>html</p>"))
	assert.Equal(t, "", preview("", ""))
}

func TestTruncateRuneSafe(t *testing.T) {
	s := strings.Repeat("é", 250)
	out := truncate(s, PreviewLength)
	assert.Len(t, []rune(out), PreviewLength)
	assert.True(t, strings.HasPrefix(s, out))
}
