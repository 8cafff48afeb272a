package mailbox

import (
	"fmt"

	"github.com/emersion/go-imap/v2"
)

// FetchRaw retrieves the messages in set, uniformly for single- or
// multi-identifier sets. Each message's body section is buffered in
// full before the message is emitted; a protocol-level failure fails
// the whole fetch. Parse failures belong to the normalization stage
// and never surface here.
func (s *Session) FetchRaw(set imap.NumSet, includeBody bool) ([]RawMessage, error) {
	opts := &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	}

	var section *imap.FetchItemBodySection
	if includeBody {
		// Peek keeps read-only semantics: fetching must not flip \Seen.
		section = &imap.FetchItemBodySection{Peek: true}
		opts.BodySection = []*imap.FetchItemBodySection{section}
	}

	fetchCmd := s.client.Fetch(set, opts)
	defer fetchCmd.Close()

	var messages []RawMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			return nil, fmt.Errorf("collecting message from %s: %w", s.mailbox, err)
		}
		messages = append(messages, rawFromBuffer(buf, section))
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", s.mailbox, err)
	}

	return messages, nil
}
