package models

import (
	"encoding/json"
	"time"
)

// LotteryMirror is the off-chain read model for an on-chain lottery.
// One row per lottery, keyed by LotteryID; repeated ingestion replaces the
// row wholesale. Settlement state is never mirrored here, only the identity
// and deadline needed to drive the settlement watcher.
type LotteryMirror struct {
	LotteryID       string          `db:"lottery_id"`
	Creator         string          `db:"creator"`
	DeadlineMs      int64           `db:"deadline_ms"`
	TotalPrizeUnits int64           `db:"total_prize_units"`
	TxDigest        string          `db:"tx_digest"`
	EventSeq        int64           `db:"event_seq"`
	EmittedAt       time.Time       `db:"emitted_at"`
	RawEvent        json.RawMessage `db:"raw_event"`
}

// Expired reports whether the mirrored deadline has elapsed at the given time.
func (l *LotteryMirror) Expired(now time.Time) bool {
	return l.DeadlineMs <= now.UnixMilli()
}

// IndexerCursor is the opaque event-stream position issued by the ledger's
// event-query API. A nil *IndexerCursor means "start of history".
type IndexerCursor struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}
