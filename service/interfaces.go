package service

import (
	"context"
	"time"

	"walottery/models"
	"walottery/sui"
)

// LotteryRepository defines lottery mirror persistence operations
type LotteryRepository interface {
	Upsert(ctx context.Context, lottery *models.LotteryMirror) error
	ListRecent(ctx context.Context, limit int) ([]*models.LotteryMirror, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.LotteryMirror, error)
}

// CursorRepository defines indexer cursor persistence operations
type CursorRepository interface {
	Get(ctx context.Context) (*models.IndexerCursor, error)
	Save(ctx context.Context, cursor *models.IndexerCursor) error
}

// LedgerClient defines the ledger gateway operations the core depends on:
// event queries in cursor order, live object reads, and signed Move calls.
// All errors from these operations are transient and retryable.
type LedgerClient interface {
	QueryEvents(ctx context.Context, eventType string, cursor *sui.EventID, limit int) (*sui.EventPage, error)
	GetLotteryState(ctx context.Context, lotteryID string) (*sui.LotteryState, error)
	GetLotteryMetadata(ctx context.Context, lotteryID string) (*sui.LotteryMetadata, error)
	MoveCall(ctx context.Context, signer *sui.Signer, packageID, module, function string, objectArgs []string, gasBudget uint64) (string, error)
}
