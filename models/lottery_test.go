package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotteryMirror_Expired(t *testing.T) {
	now := time.UnixMilli(10_000)

	assert.True(t, (&LotteryMirror{DeadlineMs: 5000}).Expired(now))
	assert.True(t, (&LotteryMirror{DeadlineMs: 10_000}).Expired(now), "deadline at now counts as elapsed")
	assert.False(t, (&LotteryMirror{DeadlineMs: 15_000}).Expired(now))
}

func TestIndexerCursor_JSONShape(t *testing.T) {
	cursor := IndexerCursor{TxDigest: "digestA", EventSeq: "3"}

	encoded, err := json.Marshal(cursor)
	require.NoError(t, err)

	// The field names are the ledger API's own, so the stored cursor can be
	// passed back verbatim as a query cursor.
	assert.JSONEq(t, `{"txDigest":"digestA","eventSeq":"3"}`, string(encoded))
}
