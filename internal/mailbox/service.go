package mailbox

import (
	"context"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"
)

// Service executes one IMAP operation per call. Every call opens its
// own authenticated session with the caller's credentials and closes
// it before returning; nothing is pooled or reused across requests.
type Service struct {
	dialer *Dialer
	log    zerolog.Logger
}

// NewService creates a mailbox service for the given IMAP endpoint.
func NewService(cfg ServerConfig, log zerolog.Logger) *Service {
	return &Service{
		dialer: NewDialer(cfg, log),
		log:    log,
	}
}

// ListMailboxes returns the account's folder hierarchy flattened to a
// depth-first list with path, delimiter and flag metadata.
func (s *Service) ListMailboxes(_ context.Context, creds Credentials) ([]Folder, error) {
	session, err := s.dialer.Dial(creds)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	list, err := session.ListFolders()
	if err != nil {
		return nil, err
	}

	folders := Flatten(BuildTree(list), "")
	if folders == nil {
		folders = []Folder{}
	}
	return folders, nil
}

// RecentEmails returns up to limit summary records for the latest
// messages in the named mailbox, newest first.
func (s *Service) RecentEmails(_ context.Context, creds Credentials, mailboxName string, limit int) ([]EmailSummary, error) {
	session, err := s.dialer.Dial(creds)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	selected, err := session.Select(mailboxName, true)
	if err != nil {
		return nil, err
	}

	set, count, err := session.LocateRecent(limit, selected.NumMessages)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []EmailSummary{}, nil
	}

	return s.fetchSummaries(session, set, limit)
}

// SearchEmails runs a criteria search in the named mailbox and returns
// up to limit summary records, newest first. An empty query matches
// every message.
func (s *Service) SearchEmails(_ context.Context, creds Credentials, mailboxName string, query SearchQuery, limit int) ([]EmailSummary, error) {
	session, err := s.dialer.Dial(creds)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if _, err := session.Select(mailboxName, true); err != nil {
		return nil, err
	}

	set, count, err := session.LocateByQuery(query, limit)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []EmailSummary{}, nil
	}

	return s.fetchSummaries(session, set, limit)
}

// GetEmail fetches a single message by UID at full detail.
func (s *Service) GetEmail(_ context.Context, creds Credentials, mailboxName string, uid uint32) (*Email, error) {
	session, err := s.dialer.Dial(creds)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if _, err := session.Select(mailboxName, true); err != nil {
		return nil, err
	}

	raws, err := session.FetchRaw(imap.UIDSetNum(imap.UID(uid)), true)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, &NotFoundError{UID: uid, Mailbox: mailboxName}
	}

	return normalizeFull(raws[0])
}

// fetchSummaries retrieves the located identifiers and returns their
// summaries sorted newest first and capped at limit.
func (s *Service) fetchSummaries(session *Session, set imap.NumSet, limit int) ([]EmailSummary, error) {
	raws, err := session.FetchRaw(set, true)
	if err != nil {
		return nil, err
	}
	return assemble(s.normalizeBatch(raws), limit), nil
}

// normalizeBatch normalizes each message in isolation: a message that
// fails to parse is logged and skipped, never failing the batch.
func (s *Service) normalizeBatch(raws []RawMessage) []EmailSummary {
	summaries := make([]EmailSummary, 0, len(raws))
	for _, raw := range raws {
		summary, err := normalizeSummary(raw)
		if err != nil {
			s.log.Warn().Err(err).Uint32("uid", uint32(raw.UID)).
				Msg("skipping unparseable message")
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
