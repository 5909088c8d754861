package service

import (
	"context"
	"fmt"
	"time"

	"walottery/events"
	"walottery/models"
	"walottery/sui"

	log "github.com/sirupsen/logrus"
)

// settlementFunction is the Move entry function that settles a lottery.
const settlementFunction = "draw"

// WatcherConfig holds the settlement watcher's tuning knobs
type WatcherConfig struct {
	PackageID    string
	RandomID     string
	ClockID      string
	BatchSize    int
	GasBudget    uint64
	PollInterval time.Duration
}

// Watcher periodically scans the mirror store for lotteries whose deadline
// has elapsed, re-verifies each one against live ledger state, and submits
// a settlement transaction for every candidate that is still eligible.
// Submission is at-least-once: a transaction that fails to land leaves the
// lottery eligible, so the next pass retries it.
type Watcher struct {
	ledger    LedgerClient
	lotteries LotteryRepository
	signer    *sui.Signer
	bus       *events.Bus
	cfg       WatcherConfig
	now       func() time.Time
}

// NewWatcher creates a new settlement watcher
func NewWatcher(ledger LedgerClient, lotteries LotteryRepository, signer *sui.Signer, bus *events.Bus, cfg WatcherConfig) *Watcher {
	return &Watcher{
		ledger:    ledger,
		lotteries: lotteries,
		signer:    signer,
		bus:       bus,
		cfg:       cfg,
		now:       time.Now,
	}
}

// RunOnce performs a single settlement pass. A listing failure aborts the
// pass; a failure on one candidate is logged and does not prevent the rest
// of the batch from being processed.
func (w *Watcher) RunOnce(ctx context.Context) error {
	candidates, err := w.lotteries.ListExpired(ctx, w.now(), w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list expired lotteries: %w", err)
	}
	if len(candidates) == 0 {
		log.Debug("No expired lotteries to settle")
		return nil
	}

	for _, candidate := range candidates {
		if err := w.processCandidate(ctx, candidate); err != nil {
			log.WithError(err).WithField("lotteryID", candidate.LotteryID).
				Error("Failed to process settlement candidate")
		}
	}

	return nil
}

// processCandidate re-verifies one candidate against live ledger state and
// submits its settlement when still eligible. The mirror row only nominated
// the candidate; every gate below is decided on live state.
func (w *Watcher) processCandidate(ctx context.Context, candidate *models.LotteryMirror) error {
	state, err := w.ledger.GetLotteryState(ctx, candidate.LotteryID)
	if err != nil {
		return fmt.Errorf("failed to fetch live state: %w", err)
	}
	if state == nil {
		log.WithField("lotteryID", candidate.LotteryID).Warn("Unable to load lottery on-chain, skipping")
		return nil
	}

	if state.Settled {
		log.WithField("lotteryID", candidate.LotteryID).Debug("Lottery already settled, skipping")
		return nil
	}

	// Trust the ledger's own deadline over the mirror; guards against clock
	// skew between this scheduler and ledger time.
	if state.DeadlineMs > w.now().UnixMilli() {
		log.WithField("lotteryID", candidate.LotteryID).Debug("Lottery deadline not yet elapsed on-chain, skipping")
		return nil
	}

	if state.ParticipantCount == 0 {
		log.WithField("lotteryID", candidate.LotteryID).Warn("Lottery has no participants, skipping draw")
		return nil
	}

	objectArgs := []string{candidate.LotteryID, w.cfg.RandomID, w.cfg.ClockID}
	digest, err := w.ledger.MoveCall(ctx, w.signer, w.cfg.PackageID, creationModule, settlementFunction, objectArgs, w.cfg.GasBudget)
	if err != nil {
		return fmt.Errorf("failed to submit draw: %w", err)
	}

	log.WithFields(log.Fields{
		"lotteryID": candidate.LotteryID,
		"digest":    digest,
	}).Info("Submitted settlement draw")

	if w.bus != nil {
		w.bus.Emit(ctx, events.SettlementSubmittedEvent{
			LotteryID: candidate.LotteryID,
			TxDigest:  digest,
		})
	}

	return nil
}

// Start runs the watcher loop until the context is cancelled or the
// returned cleanup function is called.
func (w *Watcher) Start(ctx context.Context) func() {
	ticker := time.NewTicker(w.cfg.PollInterval)
	stopChan := make(chan struct{})

	runPass := func() {
		if err := w.RunOnce(ctx); err != nil {
			log.WithError(err).Error("Watcher pass failed, retrying next interval")
		}
	}

	go func() {
		log.WithFields(log.Fields{
			"interval":  w.cfg.PollInterval,
			"batchSize": w.cfg.BatchSize,
			"operator":  w.signer.Address(),
		}).Info("Settlement watcher started")

		// Run immediately on startup
		runPass()

		for {
			select {
			case <-ctx.Done():
				log.Info("Settlement watcher shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settlement watcher shutting down (stop requested)...")
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
