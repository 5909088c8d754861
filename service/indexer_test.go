package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"walottery/models"
	"walottery/sui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testEventType = "0xabc::lottery_creation::LotteryCreated"

func testIndexer(ledger *MockLedgerClient, lotteries *MockLotteryRepository, cursors *MockCursorRepository) *Indexer {
	return NewIndexer(ledger, lotteries, cursors, nil, IndexerConfig{
		EventType:    testEventType,
		BatchSize:    50,
		MaxPages:     10,
		PollInterval: time.Second,
	})
}

func creationEvent(lotteryID, txDigest, eventSeq string, deadlineMs int64) sui.Event {
	parsed := map[string]any{
		"creator":           "0xc0ffee",
		"deadline_ms":       strconv.FormatInt(deadlineMs, 10),
		"total_prize_units": "3",
	}
	if lotteryID != "" {
		parsed["lottery_id"] = lotteryID
	}
	return sui.Event{
		ID:          sui.EventID{TxDigest: txDigest, EventSeq: eventSeq},
		Type:        testEventType,
		ParsedJSON:  parsed,
		TimestampMs: "1700000000000",
		Raw:         json.RawMessage(`{"id":{"txDigest":"` + txDigest + `","eventSeq":"` + eventSeq + `"}}`),
	}
}

func TestIndexer_RunOnce_MirrorsAscendingPage(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	cursors := new(MockCursorRepository)
	indexer := testIndexer(ledger, lotteries, cursors)

	page := &sui.EventPage{
		Events: []sui.Event{
			creationEvent("0x1", "digestA", "0", 1000),
			creationEvent("0x2", "digestA", "1", 2000),
			creationEvent("0x3", "digestB", "0", 3000),
		},
		HasNextPage: false,
	}

	cursors.On("Get", ctx).Return(nil, nil)
	ledger.On("QueryEvents", ctx, testEventType, (*sui.EventID)(nil), 50).Return(page, nil)

	var upserted []string
	lotteries.On("Upsert", ctx, mock.AnythingOfType("*models.LotteryMirror")).
		Run(func(args mock.Arguments) {
			upserted = append(upserted, args.Get(1).(*models.LotteryMirror).LotteryID)
		}).
		Return(nil).Times(3)

	var savedCursors []models.IndexerCursor
	cursors.On("Save", ctx, mock.AnythingOfType("*models.IndexerCursor")).
		Run(func(args mock.Arguments) {
			savedCursors = append(savedCursors, *args.Get(1).(*models.IndexerCursor))
		}).
		Return(nil).Times(3)

	err := indexer.RunOnce(ctx)
	require.NoError(t, err)

	// Three distinct mirrors, processed in ledger order
	assert.Equal(t, []string{"0x1", "0x2", "0x3"}, upserted)

	// Cursor only ever moves forward and ends at the last event's position
	require.Len(t, savedCursors, 3)
	assert.Equal(t, models.IndexerCursor{TxDigest: "digestA", EventSeq: "0"}, savedCursors[0])
	assert.Equal(t, models.IndexerCursor{TxDigest: "digestA", EventSeq: "1"}, savedCursors[1])
	assert.Equal(t, models.IndexerCursor{TxDigest: "digestB", EventSeq: "0"}, savedCursors[2])

	ledger.AssertExpectations(t)
	lotteries.AssertExpectations(t)
	cursors.AssertExpectations(t)
}

func TestIndexer_RunOnce_ResumesFromSavedCursor(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	cursors := new(MockCursorRepository)
	indexer := testIndexer(ledger, lotteries, cursors)

	saved := &models.IndexerCursor{TxDigest: "digestA", EventSeq: "1"}
	cursors.On("Get", ctx).Return(saved, nil)

	ledger.On("QueryEvents", ctx, testEventType, &sui.EventID{TxDigest: "digestA", EventSeq: "1"}, 50).
		Return(&sui.EventPage{}, nil)

	err := indexer.RunOnce(ctx)
	require.NoError(t, err)

	lotteries.AssertNotCalled(t, "Upsert")
	cursors.AssertNotCalled(t, "Save")
	ledger.AssertExpectations(t)
}

func TestIndexer_RunOnce_SkipsEventWithoutLotteryID(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	cursors := new(MockCursorRepository)
	indexer := testIndexer(ledger, lotteries, cursors)

	page := &sui.EventPage{
		Events: []sui.Event{
			creationEvent("", "digestA", "0", 1000), // malformed, no lottery_id
			creationEvent("0x2", "digestA", "1", 2000),
		},
	}

	cursors.On("Get", ctx).Return(nil, nil)
	ledger.On("QueryEvents", ctx, testEventType, (*sui.EventID)(nil), 50).Return(page, nil)

	lotteries.On("Upsert", ctx, mock.MatchedBy(func(m *models.LotteryMirror) bool {
		return m.LotteryID == "0x2"
	})).Return(nil).Once()

	// The malformed event is skipped but still consumed: its position is
	// saved so it is never re-fetched.
	cursors.On("Save", ctx, &models.IndexerCursor{TxDigest: "digestA", EventSeq: "0"}).Return(nil).Once()
	cursors.On("Save", ctx, &models.IndexerCursor{TxDigest: "digestA", EventSeq: "1"}).Return(nil).Once()

	err := indexer.RunOnce(ctx)
	require.NoError(t, err)

	lotteries.AssertExpectations(t)
	cursors.AssertExpectations(t)
}

func TestIndexer_RunOnce_UpsertFailureLeavesCursorBehind(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	cursors := new(MockCursorRepository)
	indexer := testIndexer(ledger, lotteries, cursors)

	page := &sui.EventPage{
		Events: []sui.Event{
			creationEvent("0x1", "digestA", "0", 1000),
			creationEvent("0x2", "digestA", "1", 2000),
		},
	}

	cursors.On("Get", ctx).Return(nil, nil)
	ledger.On("QueryEvents", ctx, testEventType, (*sui.EventID)(nil), 50).Return(page, nil)

	lotteries.On("Upsert", ctx, mock.MatchedBy(func(m *models.LotteryMirror) bool {
		return m.LotteryID == "0x1"
	})).Return(nil).Once()
	lotteries.On("Upsert", ctx, mock.MatchedBy(func(m *models.LotteryMirror) bool {
		return m.LotteryID == "0x2"
	})).Return(errors.New("store unavailable")).Once()

	cursors.On("Save", ctx, &models.IndexerCursor{TxDigest: "digestA", EventSeq: "0"}).Return(nil).Once()

	err := indexer.RunOnce(ctx)
	require.Error(t, err)

	// The cursor was never advanced past the failed event, so the next
	// pass re-processes it instead of losing it.
	cursors.AssertNumberOfCalls(t, "Save", 1)
	lotteries.AssertExpectations(t)
}

func TestIndexer_RunOnce_FollowsPagination(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	cursors := new(MockCursorRepository)
	indexer := testIndexer(ledger, lotteries, cursors)

	first := &sui.EventPage{
		Events:      []sui.Event{creationEvent("0x1", "digestA", "0", 1000)},
		HasNextPage: true,
	}
	second := &sui.EventPage{
		Events:      []sui.Event{creationEvent("0x2", "digestB", "0", 2000)},
		HasNextPage: false,
	}

	cursors.On("Get", ctx).Return(nil, nil)
	ledger.On("QueryEvents", ctx, testEventType, (*sui.EventID)(nil), 50).Return(first, nil).Once()
	ledger.On("QueryEvents", ctx, testEventType, &sui.EventID{TxDigest: "digestA", EventSeq: "0"}, 50).
		Return(second, nil).Once()

	lotteries.On("Upsert", ctx, mock.AnythingOfType("*models.LotteryMirror")).Return(nil).Times(2)
	cursors.On("Save", ctx, mock.AnythingOfType("*models.IndexerCursor")).Return(nil).Times(2)

	err := indexer.RunOnce(ctx)
	require.NoError(t, err)

	ledger.AssertExpectations(t)
	lotteries.AssertExpectations(t)
}

func TestIndexer_RunOnce_QueryFailureIsRetryable(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	cursors := new(MockCursorRepository)
	indexer := testIndexer(ledger, lotteries, cursors)

	cursors.On("Get", ctx).Return(nil, nil)
	ledger.On("QueryEvents", ctx, testEventType, (*sui.EventID)(nil), 50).
		Return(nil, errors.New("rpc timeout"))

	err := indexer.RunOnce(ctx)
	require.Error(t, err)

	lotteries.AssertNotCalled(t, "Upsert")
	cursors.AssertNotCalled(t, "Save")
}

func TestIndexer_ParseCreationEvent(t *testing.T) {
	indexer := testIndexer(nil, nil, nil)

	event := creationEvent("0xbeef", "digestZ", "4", 1234)
	mirror := indexer.parseCreationEvent(&event)

	require.NotNil(t, mirror)
	assert.Equal(t, "0xbeef", mirror.LotteryID)
	assert.Equal(t, "0xc0ffee", mirror.Creator)
	assert.Equal(t, int64(1234), mirror.DeadlineMs)
	assert.Equal(t, int64(3), mirror.TotalPrizeUnits)
	assert.Equal(t, "digestZ", mirror.TxDigest)
	assert.Equal(t, int64(4), mirror.EventSeq)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), mirror.EmittedAt)
	assert.JSONEq(t, string(event.Raw), string(mirror.RawEvent))
}

func TestIndexer_ParseCreationEvent_DefaultsCreator(t *testing.T) {
	indexer := testIndexer(nil, nil, nil)

	event := sui.Event{
		ID:         sui.EventID{TxDigest: "digestY", EventSeq: "0"},
		ParsedJSON: map[string]any{"lottery_id": "0x9", "deadline_ms": "7"},
	}
	mirror := indexer.parseCreationEvent(&event)

	require.NotNil(t, mirror)
	assert.Equal(t, "0x0", mirror.Creator)
	assert.Equal(t, int64(7), mirror.DeadlineMs)
	assert.Zero(t, mirror.TotalPrizeUnits)
}
