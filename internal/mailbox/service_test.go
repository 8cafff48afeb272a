package mailbox

import (
	"fmt"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBatchSkipsUnparseableMessages(t *testing.T) {
	s := &Service{log: zerolog.Nop()}

	raws := make([]RawMessage, 0, 10)
	for i := 1; i <= 10; i++ {
		env := testEnvelope()
		env.Subject = fmt.Sprintf("message %d", i)
		env.Date = time.Date(2024, 3, i, 12, 0, 0, 0, time.UTC)
		body := textMessage(fmt.Sprintf("body %d", i))
		if i == 4 {
			body = []byte("\x00\x01 not a header")
		}
		raws = append(raws, RawMessage{UID: imap.UID(i), Envelope: env, Body: body})
	}

	summaries := s.normalizeBatch(raws)

	// The one corrupt message is dropped; the rest survive intact.
	require.Len(t, summaries, 9)
	for _, summary := range summaries {
		assert.NotEqual(t, uint32(4), summary.UID)
	}
}

func TestNormalizeBatchEmpty(t *testing.T) {
	s := &Service{log: zerolog.Nop()}
	assert.Empty(t, s.normalizeBatch(nil))
}
