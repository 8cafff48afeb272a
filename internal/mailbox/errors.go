package mailbox

import (
	"errors"
	"fmt"
)

// AuthError indicates that the IMAP server rejected the supplied
// credentials. The server's own diagnostic is preserved in Message.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %s", e.Username, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ConnectionError indicates that the IMAP connection could not be
// established (dial, TLS handshake, or greeting).
type ConnectionError struct {
	Addr    string
	Message string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %s", e.Addr, e.Message)
}

// IsConnectionError reports whether err chains to a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// MailboxNotFoundError indicates that a SELECT failed because the
// requested mailbox does not exist on the server.
type MailboxNotFoundError struct {
	Mailbox string
}

func (e *MailboxNotFoundError) Error() string {
	return fmt.Sprintf("mailbox %q not found", e.Mailbox)
}

// IsMailboxNotFound reports whether err chains to a MailboxNotFoundError.
func IsMailboxNotFound(err error) bool {
	var nfErr *MailboxNotFoundError
	return errors.As(err, &nfErr)
}

// NotFoundError indicates that a message UID resolved to nothing in the
// selected mailbox.
type NotFoundError struct {
	UID     uint32
	Mailbox string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("message UID %d not found in %s", e.UID, e.Mailbox)
}

// IsNotFound reports whether err chains to a NotFoundError.
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}

// ParseError indicates that a single fetched message could not be
// normalized. Callers log and skip it; it never fails a batch.
type ParseError struct {
	UID uint32
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing message UID %d: %v", e.UID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
