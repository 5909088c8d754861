package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"walottery/events"
	"walottery/models"

	log "github.com/sirupsen/logrus"
)

// ErrLotteryNotFound is returned when a sync request names an identifier
// that does not resolve to a lottery object on-chain.
var ErrLotteryNotFound = errors.New("lottery not found on-chain")

// listLimit caps the lottery listing served to the UI.
const listLimit = 50

// SyncService backs the sync endpoint: it lets the UI opportunistically
// register a lottery it just created without waiting for the indexer, and
// serves the mirror listing.
type SyncService struct {
	ledger    LedgerClient
	lotteries LotteryRepository
	bus       *events.Bus
	now       func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(ledger LedgerClient, lotteries LotteryRepository, bus *events.Bus) *SyncService {
	return &SyncService{
		ledger:    ledger,
		lotteries: lotteries,
		bus:       bus,
		now:       time.Now,
	}
}

// ListLotteries returns the most recently mirrored lotteries, newest first
func (s *SyncService) ListLotteries(ctx context.Context) ([]*models.LotteryMirror, error) {
	lotteries, err := s.lotteries.ListRecent(ctx, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list lotteries: %w", err)
	}
	return lotteries, nil
}

// SyncLottery fetches a lottery's live on-chain metadata and upserts its
// mirror row. Returns ErrLotteryNotFound, without writing anything, when
// the identifier does not resolve on-chain.
func (s *SyncService) SyncLottery(ctx context.Context, lotteryID, txDigest string, eventSeq int64) error {
	metadata, err := s.ledger.GetLotteryMetadata(ctx, lotteryID)
	if err != nil {
		return fmt.Errorf("failed to fetch lottery metadata: %w", err)
	}
	if metadata == nil {
		return ErrLotteryNotFound
	}

	mirror := &models.LotteryMirror{
		LotteryID:       lotteryID,
		Creator:         metadata.Creator,
		DeadlineMs:      metadata.DeadlineMs,
		TotalPrizeUnits: metadata.TotalPrizeUnits,
		TxDigest:        txDigest,
		EventSeq:        eventSeq,
		EmittedAt:       s.now().UTC(),
		RawEvent:        metadata.Raw,
	}
	if err := s.lotteries.Upsert(ctx, mirror); err != nil {
		return fmt.Errorf("failed to upsert lottery %s: %w", lotteryID, err)
	}

	log.WithField("lotteryID", lotteryID).Info("Synced lottery from chain")

	if s.bus != nil {
		s.bus.Emit(ctx, events.LotterySyncedEvent{LotteryID: lotteryID})
	}

	return nil
}
