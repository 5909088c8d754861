package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"walottery/events"
	"walottery/models"
	"walottery/sui"

	log "github.com/sirupsen/logrus"
)

// creationModule is the Move module that emits lottery creation events.
const creationModule = "lottery_creation"

// CreationEventType returns the fully qualified Move event type for
// lottery creation events published by the given package.
func CreationEventType(packageID string) string {
	return fmt.Sprintf("%s::%s::LotteryCreated", packageID, creationModule)
}

// IndexerConfig holds the indexer's tuning knobs
type IndexerConfig struct {
	EventType    string
	BatchSize    int
	MaxPages     int
	PollInterval time.Duration
}

// Indexer drains lottery creation events from the ledger into the mirror
// store, one event at a time, in ascending ledger order. The cursor is
// persisted after each successful upsert, so a crash mid-page re-processes
// at most one event and never loses one.
type Indexer struct {
	ledger    LedgerClient
	lotteries LotteryRepository
	cursors   CursorRepository
	bus       *events.Bus
	cfg       IndexerConfig
	now       func() time.Time
}

// NewIndexer creates a new event indexer
func NewIndexer(ledger LedgerClient, lotteries LotteryRepository, cursors CursorRepository, bus *events.Bus, cfg IndexerConfig) *Indexer {
	return &Indexer{
		ledger:    ledger,
		lotteries: lotteries,
		cursors:   cursors,
		bus:       bus,
		cfg:       cfg,
		now:       time.Now,
	}
}

// RunOnce performs a single indexing pass: fetch pages of events starting
// from the saved cursor and mirror each one in order. A returned error
// means the pass aborted mid-stream; the saved cursor still marks the last
// durably mirrored event, so the next pass resumes without loss.
func (ix *Indexer) RunOnce(ctx context.Context) error {
	cursor, err := ix.cursors.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cursor: %w", err)
	}

	for page := 0; page < ix.cfg.MaxPages; page++ {
		result, err := ix.ledger.QueryEvents(ctx, ix.cfg.EventType, cursorToEventID(cursor), ix.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to query events: %w", err)
		}
		if len(result.Events) == 0 {
			break
		}

		for i := range result.Events {
			event := &result.Events[i]

			mirror := ix.parseCreationEvent(event)
			if mirror != nil {
				if err := ix.lotteries.Upsert(ctx, mirror); err != nil {
					// Abort before touching the cursor: advancing it past an
					// event that was never mirrored would silently lose it.
					return fmt.Errorf("failed to mirror lottery %s: %w", mirror.LotteryID, err)
				}

				log.WithFields(log.Fields{
					"lotteryID": mirror.LotteryID,
					"txDigest":  mirror.TxDigest,
				}).Info("Mirrored lottery creation event")

				if ix.bus != nil {
					ix.bus.Emit(ctx, events.LotteryIndexedEvent{
						LotteryID:  mirror.LotteryID,
						TxDigest:   mirror.TxDigest,
						DeadlineMs: mirror.DeadlineMs,
					})
				}
			} else {
				log.WithFields(log.Fields{
					"txDigest": event.ID.TxDigest,
					"eventSeq": event.ID.EventSeq,
				}).Warn("Skipping lottery creation event without lottery_id")
			}

			cursor = &models.IndexerCursor{
				TxDigest: event.ID.TxDigest,
				EventSeq: event.ID.EventSeq,
			}
			if err := ix.cursors.Save(ctx, cursor); err != nil {
				// The mirror write above already succeeded, so stopping here
				// only causes a harmless re-processing of this event.
				return fmt.Errorf("failed to save cursor: %w", err)
			}
		}

		if !result.HasNextPage {
			break
		}
	}

	return nil
}

// parseCreationEvent normalizes a creation event into a mirror row.
// Returns nil when the payload lacks the lottery identity; such events are
// skipped, never fatal.
func (ix *Indexer) parseCreationEvent(event *sui.Event) *models.LotteryMirror {
	lotteryID := sui.FieldString(event.ParsedJSON["lottery_id"])
	if lotteryID == "" {
		return nil
	}

	creator := sui.FieldString(event.ParsedJSON["creator"])
	if creator == "" {
		creator = "0x0"
	}

	emittedAt := ix.now().UTC()
	if ms := sui.FieldInt64(event.TimestampMs); ms > 0 {
		emittedAt = time.UnixMilli(ms).UTC()
	}

	eventSeq, _ := strconv.ParseInt(event.ID.EventSeq, 10, 64)

	return &models.LotteryMirror{
		LotteryID:       lotteryID,
		Creator:         creator,
		DeadlineMs:      sui.FieldInt64(event.ParsedJSON["deadline_ms"]),
		TotalPrizeUnits: sui.FieldInt64(event.ParsedJSON["total_prize_units"]),
		TxDigest:        event.ID.TxDigest,
		EventSeq:        eventSeq,
		EmittedAt:       emittedAt,
		RawEvent:        event.Raw,
	}
}

// Start runs the indexer loop until the context is cancelled or the
// returned cleanup function is called. A failed pass is logged and retried
// on the next tick; an in-flight pass is never interrupted mid-event.
func (ix *Indexer) Start(ctx context.Context) func() {
	ticker := time.NewTicker(ix.cfg.PollInterval)
	stopChan := make(chan struct{})

	runPass := func() {
		if err := ix.RunOnce(ctx); err != nil {
			log.WithError(err).Error("Indexer pass failed, retrying next interval")
		}
	}

	go func() {
		log.WithFields(log.Fields{
			"eventType": ix.cfg.EventType,
			"interval":  ix.cfg.PollInterval,
		}).Info("Event indexer started")

		// Run immediately on startup
		runPass()

		for {
			select {
			case <-ctx.Done():
				log.Info("Event indexer shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Event indexer shutting down (stop requested)...")
				return
			case <-ticker.C:
				runPass()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

func cursorToEventID(cursor *models.IndexerCursor) *sui.EventID {
	if cursor == nil {
		return nil
	}
	return &sui.EventID{
		TxDigest: cursor.TxDigest,
		EventSeq: cursor.EventSeq,
	}
}
