package mailbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
}

func TestAssembleSortsDateDescending(t *testing.T) {
	batch := []EmailSummary{
		{UID: 1, Date: day(3)},
		{UID: 2, Date: day(9)},
		{UID: 3, Date: day(6)},
	}

	out := assemble(batch, 10)
	require.Len(t, out, 3)
	assert.Equal(t, uint32(2), out[0].UID)
	assert.Equal(t, uint32(3), out[1].UID)
	assert.Equal(t, uint32(1), out[2].UID)
}

func TestAssembleLimitCapsResult(t *testing.T) {
	var batch []EmailSummary
	for i := 1; i <= 5; i++ {
		batch = append(batch, EmailSummary{UID: uint32(i), Date: day(i)})
	}

	out := assemble(batch, 3)
	require.Len(t, out, 3)
	assert.Equal(t, uint32(5), out[0].UID)
	assert.Equal(t, uint32(4), out[1].UID)
	assert.Equal(t, uint32(3), out[2].UID)
}

func TestAssembleStableForEqualDates(t *testing.T) {
	d := day(1)
	batch := []EmailSummary{
		{UID: 10, Date: d},
		{UID: 11, Date: d},
		{UID: 12, Date: d},
	}

	out := assemble(batch, 0)
	assert.Equal(t, uint32(10), out[0].UID)
	assert.Equal(t, uint32(11), out[1].UID)
	assert.Equal(t, uint32(12), out[2].UID)
}

func TestAssembleMissingDatesSortLast(t *testing.T) {
	batch := []EmailSummary{
		{UID: 1},
		{UID: 2, Date: day(2)},
		{UID: 3},
		{UID: 4, Date: day(8)},
	}

	out := assemble(batch, 0)
	require.Len(t, out, 4)
	assert.Equal(t, uint32(4), out[0].UID)
	assert.Equal(t, uint32(2), out[1].UID)
	// Undated records keep their insertion order at the tail.
	assert.Equal(t, uint32(1), out[2].UID)
	assert.Equal(t, uint32(3), out[3].UID)
}

func TestAssembleZeroLimitReturnsAll(t *testing.T) {
	batch := []EmailSummary{{UID: 1, Date: day(1)}, {UID: 2, Date: day(2)}}
	assert.Len(t, assemble(batch, 0), 2)
}
