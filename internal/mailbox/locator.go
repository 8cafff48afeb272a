package mailbox

import (
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
)

// RecencyWindowDays is the lookback applied by the recency intent.
// Combined with the last-N-of-ascending-UIDs truncation this is an
// approximation of "most recent" that assumes UID order correlates
// with arrival time; it is not a guarantee under UID renumbering.
const RecencyWindowDays = 30

// LocateRecent produces the identifier set for the "latest limit
// messages" intent: a UID search over the recency window, truncated to
// the last limit UIDs. When the window is empty but the mailbox is not
// (total > 0), it falls back to the trailing sequence-number range so
// dormant folders still return their addressable history.
func (s *Session) LocateRecent(limit int, total uint32) (imap.NumSet, int, error) {
	since := time.Now().AddDate(0, 0, -RecencyWindowDays)
	uids, err := s.SearchUIDs(&imap.SearchCriteria{Since: since})
	if err != nil {
		return nil, 0, err
	}

	uids = lastUIDs(uids, limit)
	if len(uids) > 0 {
		return imap.UIDSetNum(uids...), len(uids), nil
	}

	if total == 0 {
		return nil, 0, nil
	}

	start, stop := fallbackRange(total, limit)
	var seqSet imap.SeqSet
	seqSet.AddRange(start, stop)
	return seqSet, int(stop - start + 1), nil
}

// LocateByQuery produces the identifier set for an explicit criteria
// search, truncated to the last limit UIDs of the result. An empty
// query degenerates to the match-all criterion.
func (s *Session) LocateByQuery(q SearchQuery, limit int) (imap.NumSet, int, error) {
	uids, err := s.SearchUIDs(buildCriteria(q))
	if err != nil {
		return nil, 0, err
	}

	uids = lastUIDs(uids, limit)
	if len(uids) == 0 {
		return nil, 0, nil
	}
	return imap.UIDSetNum(uids...), len(uids), nil
}

// SearchUIDs runs UID SEARCH and returns the matching UIDs in the
// server's (ascending) order.
func (s *Session) SearchUIDs(criteria *imap.SearchCriteria) ([]imap.UID, error) {
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", s.mailbox, err)
	}
	return data.AllUIDs(), nil
}

// lastUIDs keeps the trailing n elements of an ascending UID list.
func lastUIDs(uids []imap.UID, n int) []imap.UID {
	if n > 0 && len(uids) > n {
		return uids[len(uids)-n:]
	}
	return uids
}

// fallbackRange is the trailing n sequence positions of a mailbox with
// total messages: max(1, total−n+1) … total.
func fallbackRange(total uint32, n int) (start, stop uint32) {
	start = 1
	if n > 0 && total > uint32(n) {
		start = total - uint32(n) + 1
	}
	return start, total
}

// buildCriteria maps caller-supplied filters onto IMAP SEARCH keys.
// Populated fields combine with implicit AND semantics on the server;
// a zero query yields the universal ALL criterion.
func buildCriteria(q SearchQuery) *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{}

	if q.Text != "" {
		criteria.Text = append(criteria.Text, q.Text)
	}
	if q.From != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key: "From", Value: q.From,
		})
	}
	if q.To != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key: "To", Value: q.To,
		})
	}
	if q.Subject != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key: "Subject", Value: q.Subject,
		})
	}
	if !q.Since.IsZero() {
		criteria.Since = q.Since
	}
	if !q.Before.IsZero() {
		criteria.Before = q.Before
	}

	return criteria
}
