package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"walottery/models"
	"walottery/sui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var watcherNow = time.UnixMilli(5_000_000).UTC()

func testWatcher(t *testing.T, ledger *MockLedgerClient, lotteries *MockLotteryRepository) *Watcher {
	t.Helper()

	signer, err := sui.NewSigner(strings.Repeat("01", 32))
	require.NoError(t, err)

	w := NewWatcher(ledger, lotteries, signer, nil, WatcherConfig{
		PackageID:    "0xabc",
		RandomID:     "0x8",
		ClockID:      "0x6",
		BatchSize:    25,
		GasBudget:    100_000_000,
		PollInterval: time.Minute,
	})
	w.now = func() time.Time { return watcherNow }
	return w
}

func expiredMirror(lotteryID string) *models.LotteryMirror {
	return &models.LotteryMirror{
		LotteryID:  lotteryID,
		Creator:    "0xc0ffee",
		DeadlineMs: watcherNow.UnixMilli() - 1000,
	}
}

func TestWatcher_RunOnce_SubmitsDrawForEligibleLottery(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return([]*models.LotteryMirror{expiredMirror("0x1")}, nil)

	ledger.On("GetLotteryState", ctx, "0x1").Return(&sui.LotteryState{
		DeadlineMs:       watcherNow.UnixMilli() - 1000,
		Settled:          false,
		ParticipantCount: 5,
	}, nil)

	ledger.On("MoveCall", ctx, watcher.signer, "0xabc", "lottery_creation", "draw",
		[]string{"0x1", "0x8", "0x6"}, uint64(100_000_000)).
		Return("drawDigest", nil).Once()

	err := watcher.RunOnce(ctx)
	require.NoError(t, err)

	ledger.AssertExpectations(t)
	lotteries.AssertExpectations(t)
}

func TestWatcher_RunOnce_SkipsLotteryWithoutParticipants(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return([]*models.LotteryMirror{expiredMirror("0x1")}, nil)

	ledger.On("GetLotteryState", ctx, "0x1").Return(&sui.LotteryState{
		DeadlineMs:       watcherNow.UnixMilli() - 1000,
		ParticipantCount: 0,
	}, nil)

	err := watcher.RunOnce(ctx)
	require.NoError(t, err)

	ledger.AssertNotCalled(t, "MoveCall")
}

func TestWatcher_RunOnce_SkipsAlreadySettledLottery(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return([]*models.LotteryMirror{expiredMirror("0x1")}, nil)

	ledger.On("GetLotteryState", ctx, "0x1").Return(&sui.LotteryState{
		DeadlineMs:       watcherNow.UnixMilli() - 1000,
		Settled:          true,
		ParticipantCount: 5,
	}, nil)

	err := watcher.RunOnce(ctx)
	require.NoError(t, err)

	ledger.AssertNotCalled(t, "MoveCall")
}

func TestWatcher_RunOnce_TrustsLiveDeadlineOverMirror(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	// Mirror says expired, but the ledger was extended past now.
	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return([]*models.LotteryMirror{expiredMirror("0x1")}, nil)

	ledger.On("GetLotteryState", ctx, "0x1").Return(&sui.LotteryState{
		DeadlineMs:       watcherNow.UnixMilli() + 60_000,
		ParticipantCount: 5,
	}, nil)

	err := watcher.RunOnce(ctx)
	require.NoError(t, err)

	ledger.AssertNotCalled(t, "MoveCall")
}

func TestWatcher_RunOnce_SkipsUnresolvableLottery(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return([]*models.LotteryMirror{expiredMirror("0x1")}, nil)

	ledger.On("GetLotteryState", ctx, "0x1").Return(nil, nil)

	err := watcher.RunOnce(ctx)
	require.NoError(t, err)

	ledger.AssertNotCalled(t, "MoveCall")
}

func TestWatcher_RunOnce_CandidateFailureDoesNotStopBatch(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return([]*models.LotteryMirror{expiredMirror("0x1"), expiredMirror("0x2")}, nil)

	ledger.On("GetLotteryState", ctx, "0x1").Return(nil, errors.New("rpc timeout"))
	ledger.On("GetLotteryState", ctx, "0x2").Return(&sui.LotteryState{
		DeadlineMs:       watcherNow.UnixMilli() - 1000,
		ParticipantCount: 2,
	}, nil)

	ledger.On("MoveCall", ctx, watcher.signer, "0xabc", "lottery_creation", "draw",
		mock.Anything, uint64(100_000_000)).
		Return("drawDigest", nil).Once()

	err := watcher.RunOnce(ctx)
	require.NoError(t, err)

	ledger.AssertExpectations(t)
}

func TestWatcher_RunOnce_SubmissionFailureLeavesCandidateForRetry(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return([]*models.LotteryMirror{expiredMirror("0x1")}, nil)

	ledger.On("GetLotteryState", ctx, "0x1").Return(&sui.LotteryState{
		DeadlineMs:       watcherNow.UnixMilli() - 1000,
		ParticipantCount: 3,
	}, nil)

	ledger.On("MoveCall", ctx, watcher.signer, "0xabc", "lottery_creation", "draw",
		mock.Anything, uint64(100_000_000)).
		Return("", errors.New("gas object busy"))

	// Nothing is recorded about the attempt; the lottery stays eligible and
	// the pass itself still succeeds.
	err := watcher.RunOnce(ctx)
	require.NoError(t, err)
}

func TestWatcher_RunOnce_ListFailureAbortsPass(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return(nil, errors.New("connection refused"))

	err := watcher.RunOnce(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list expired lotteries")

	ledger.AssertNotCalled(t, "GetLotteryState")
}

func TestWatcher_RunOnce_NoCandidatesIsANoop(t *testing.T) {
	ctx := context.Background()

	ledger := new(MockLedgerClient)
	lotteries := new(MockLotteryRepository)
	watcher := testWatcher(t, ledger, lotteries)

	lotteries.On("ListExpired", ctx, watcherNow, 25).
		Return([]*models.LotteryMirror{}, nil)

	err := watcher.RunOnce(ctx)
	require.NoError(t, err)

	ledger.AssertNotCalled(t, "GetLotteryState")
}
