package mailbox

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"
)

// ServerConfig holds the IMAP endpoint settings. It is built once at
// startup and injected; the session manager itself is stateless.
type ServerConfig struct {
	Host string
	Port int

	// ConnectTimeout bounds the TCP dial, TLS handshake and server
	// greeting. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

// DefaultConnectTimeout bounds connection establishment when the
// configuration does not say otherwise.
const DefaultConnectTimeout = 30 * time.Second

// Session is one authenticated IMAP connection scoped to a single
// logical operation. Callers must Close it on every path after a
// successful Dial.
type Session struct {
	client  *imapclient.Client
	mailbox string
	log     zerolog.Logger
}

// Dialer opens short-lived IMAP sessions against a fixed server with
// per-call credentials.
type Dialer struct {
	cfg ServerConfig
	log zerolog.Logger
}

// NewDialer creates a session dialer for the given IMAP endpoint.
func NewDialer(cfg ServerConfig, log zerolog.Logger) *Dialer {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	return &Dialer{cfg: cfg, log: log}
}

// Dial connects to the IMAP server over implicit TLS, waits for the
// greeting and authenticates with the supplied credentials. The
// returned session must be closed by the caller; on error no session
// is left open.
func (d *Dialer) Dial(creds Credentials) (*Session, error) {
	addr := net.JoinHostPort(d.cfg.Host, fmt.Sprintf("%d", d.cfg.Port))

	dialer := &net.Dialer{Timeout: d.cfg.ConnectTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
		ServerName: d.cfg.Host,
	})
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Message: err.Error()}
	}

	client := imapclient.New(conn, nil)

	// Bound the greeting phase too; a connected-but-silent server
	// must not stall the request forever.
	_ = conn.SetDeadline(time.Now().Add(d.cfg.ConnectTimeout))
	if err := client.WaitGreeting(); err != nil {
		_ = client.Close()
		return nil, &ConnectionError{Addr: addr, Message: err.Error()}
	}
	_ = conn.SetDeadline(time.Time{})

	if err := client.Login(creds.Username, creds.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{Username: creds.Username, Message: err.Error()}
	}

	return &Session{
		client: client,
		log:    d.log.With().Str("imap_host", d.cfg.Host).Logger(),
	}, nil
}

// Select opens the named mailbox. Listing and search operations select
// read-only so fetches do not flip \Seen flags. Returns the selection
// metadata, which carries the total message count.
func (s *Session) Select(mailbox string, readOnly bool) (*imap.SelectData, error) {
	data, err := s.client.Select(mailbox, &imap.SelectOptions{ReadOnly: readOnly}).Wait()
	if err != nil {
		return nil, selectError(mailbox, err)
	}
	s.mailbox = mailbox
	return data, nil
}

// selectError maps a failed SELECT onto the error taxonomy: a NO
// status response means the mailbox does not exist.
func selectError(mailbox string, err error) error {
	var respErr *imap.Error
	if errors.As(err, &respErr) && respErr.Type == imap.StatusResponseTypeNo {
		return &MailboxNotFoundError{Mailbox: mailbox}
	}
	return fmt.Errorf("selecting %s: %w", mailbox, err)
}

// ListFolders issues LIST "" "*" and returns the raw listing in the
// order the server sent it.
func (s *Session) ListFolders() ([]*imap.ListData, error) {
	list, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}
	return list, nil
}

// Close logs out and releases the connection. Logout failures are
// logged, not returned; by then the operation's result is already
// decided.
func (s *Session) Close() {
	if err := s.client.Logout().Wait(); err != nil {
		s.log.Debug().Err(err).Msg("imap logout failed, closing connection")
		_ = s.client.Close()
	}
}
