package mailbox

import (
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// PreviewLength is the number of characters of body text included in a
// summary-level message record.
const PreviewLength = 200

// DefaultSubject is substituted when a message carries no Subject header.
const DefaultSubject = "(No Subject)"

// Credentials authenticate one IMAP or SMTP session. They are supplied
// per request and never persisted or logged.
type Credentials struct {
	Username string
	Password string
}

// Folder is one mailbox in the flattened folder listing.
type Folder struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Delimiter   string   `json:"delimiter"`
	Flags       []string `json:"flags"`
	HasChildren bool     `json:"hasChildren"`
}

// Attachment holds metadata about a message attachment. Content is
// never downloaded, only described.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// EmailSummary is the summary-level normalized record returned by
// listing and search operations.
type EmailSummary struct {
	UID            uint32    `json:"uid"`
	Date           time.Time `json:"date"`
	From           string    `json:"from"`
	To             []string  `json:"to"`
	Subject        string    `json:"subject"`
	Preview        string    `json:"preview"`
	HasAttachments bool      `json:"hasAttachments"`
	Flags          []string  `json:"flags"`
}

// Email is the full-detail record returned by single-message retrieval.
// It extends the summary with complete bodies, cc and attachment
// metadata.
type Email struct {
	EmailSummary

	Cc          []string     `json:"cc"`
	TextBody    string       `json:"textBody"`
	HTMLBody    string       `json:"htmlBody"`
	Attachments []Attachment `json:"attachments"`
}

// RawMessage is the transient per-message fetch result: protocol
// attributes plus the buffered raw RFC 5322 bytes. It exists only
// between fetch and normalization.
type RawMessage struct {
	UID      imap.UID
	Flags    []imap.Flag
	Envelope *imap.Envelope
	Body     []byte
}

// SearchQuery holds the caller-supplied filters for a criteria search.
// All populated fields are combined with AND semantics server-side; a
// zero SearchQuery matches every message in the folder.
type SearchQuery struct {
	Text    string
	From    string
	To      string
	Subject string
	Since   time.Time
	Before  time.Time
}

// IsZero reports whether no filter at all was supplied.
func (q SearchQuery) IsZero() bool {
	return q.Text == "" && q.From == "" && q.To == "" && q.Subject == "" &&
		q.Since.IsZero() && q.Before.IsZero()
}

// rawFromBuffer extracts a RawMessage from a collected fetch buffer.
func rawFromBuffer(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) RawMessage {
	raw := RawMessage{
		UID:      buf.UID,
		Flags:    buf.Flags,
		Envelope: buf.Envelope,
	}
	if section != nil {
		raw.Body = buf.FindBodySection(section)
	}
	return raw
}
