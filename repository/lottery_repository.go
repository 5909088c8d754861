package repository

import (
	"context"
	"fmt"
	"time"

	"walottery/database"
	"walottery/models"

	"github.com/jackc/pgx/v5"
)

// LotteryRepository implements lottery mirror data access
type LotteryRepository struct {
	q queryable
}

// NewLotteryRepository creates a new lottery repository
func NewLotteryRepository(db *database.DB) *LotteryRepository {
	return &LotteryRepository{q: db.Pool}
}

const lotteryColumns = `lottery_id, creator, deadline_ms, total_prize_units, tx_digest, event_seq, emitted_at, raw_event`

// Upsert inserts or replaces a lottery mirror row keyed by lottery_id.
// All fields are overwritten, so re-ingesting the same creation event is
// idempotent and the most recently processed ingestion wins.
func (r *LotteryRepository) Upsert(ctx context.Context, lottery *models.LotteryMirror) error {
	query := `
		INSERT INTO lotteries (lottery_id, creator, deadline_ms, total_prize_units, tx_digest, event_seq, emitted_at, raw_event)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lottery_id) DO UPDATE
		SET creator = EXCLUDED.creator,
		    deadline_ms = EXCLUDED.deadline_ms,
		    total_prize_units = EXCLUDED.total_prize_units,
		    tx_digest = EXCLUDED.tx_digest,
		    event_seq = EXCLUDED.event_seq,
		    emitted_at = EXCLUDED.emitted_at,
		    raw_event = EXCLUDED.raw_event
	`

	_, err := r.q.Exec(ctx, query,
		lottery.LotteryID,
		lottery.Creator,
		lottery.DeadlineMs,
		lottery.TotalPrizeUnits,
		lottery.TxDigest,
		lottery.EventSeq,
		lottery.EmittedAt,
		lottery.RawEvent,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert lottery %s: %w", lottery.LotteryID, err)
	}

	return nil
}

// ListRecent returns up to limit lottery mirrors, newest emitted_at first
func (r *LotteryRepository) ListRecent(ctx context.Context, limit int) ([]*models.LotteryMirror, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lotteries
		ORDER BY emitted_at DESC
		LIMIT $1
	`, lotteryColumns)

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent lotteries: %w", err)
	}
	defer rows.Close()

	return scanLotteries(rows)
}

// ListExpired returns up to limit lottery mirrors whose deadline has elapsed
// at the given time, oldest deadline first.
func (r *LotteryRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.LotteryMirror, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lotteries
		WHERE deadline_ms <= $1
		ORDER BY deadline_ms ASC
		LIMIT $2
	`, lotteryColumns)

	rows, err := r.q.Query(ctx, query, now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired lotteries: %w", err)
	}
	defer rows.Close()

	return scanLotteries(rows)
}

func scanLotteries(rows pgx.Rows) ([]*models.LotteryMirror, error) {
	var lotteries []*models.LotteryMirror
	for rows.Next() {
		var lottery models.LotteryMirror
		err := rows.Scan(
			&lottery.LotteryID,
			&lottery.Creator,
			&lottery.DeadlineMs,
			&lottery.TotalPrizeUnits,
			&lottery.TxDigest,
			&lottery.EventSeq,
			&lottery.EmittedAt,
			&lottery.RawEvent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lottery: %w", err)
		}
		lotteries = append(lotteries, &lottery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lotteries: %w", err)
	}

	return lotteries, nil
}
