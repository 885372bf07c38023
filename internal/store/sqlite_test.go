package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *InteractionLog {
	t.Helper()
	log, err := NewInteractionLog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestInteractionLogRoundTrip(t *testing.T) {
	log := newTestLog(t)

	log.RecordSession("sess-1")
	log.RecordRecommendation("sess-1", "EX90", 14, `{"daily_distance":2}`)
	log.RecordExchange("sess-1", "How many seats?", "answered")
	log.RecordExchange("sess-1", "And the range?", "cancelled")

	recs, err := log.RecentRecommendations(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "EX90", recs[0].ProductID)
	assert.Equal(t, 14, recs[0].Score)
	assert.Equal(t, "sess-1", recs[0].SessionID)

	exchanges, err := log.RecentExchanges(10)
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	for _, e := range exchanges {
		assert.Equal(t, "sess-1", e.SessionID)
	}
}

func TestInteractionLogRejectsUnknownOutcome(t *testing.T) {
	log := newTestLog(t)

	log.RecordExchange("sess-1", "question", "exploded")

	exchanges, err := log.RecentExchanges(10)
	require.NoError(t, err)
	assert.Empty(t, exchanges, "outcome outside the known set is dropped by the schema check")
}

func TestNilInteractionLogIsNoOp(t *testing.T) {
	var log *InteractionLog

	log.RecordSession("sess-1")
	log.RecordRecommendation("sess-1", "EX90", 1, "{}")
	log.RecordExchange("sess-1", "q", "answered")
	require.NoError(t, log.Close())

	recs, err := log.RecentRecommendations(5)
	require.NoError(t, err)
	assert.Nil(t, recs)
}
