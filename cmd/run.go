package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"walottery/api"
	"walottery/config"
	"walottery/database"
	"walottery/events"
	"walottery/repository"
	"walottery/service"
	"walottery/sui"

	log "github.com/sirupsen/logrus"
)

// Modes select which of the three workers a process runs. The workers can
// be deployed as separate processes sharing one database; ModeAll keeps
// single-process operation simple.
const (
	ModeAll     = "all"
	ModeIndexer = "indexer"
	ModeWatcher = "watcher"
	ModeAPI     = "api"
)

// Run initializes and starts the selected workers, blocking until the
// context is cancelled.
func Run(ctx context.Context, mode string) error {
	switch mode {
	case ModeAll, ModeIndexer, ModeWatcher, ModeAPI:
	default:
		return fmt.Errorf("unknown mode %q (expected all, indexer, watcher, or api)", mode)
	}

	// Load configuration
	cfg := config.Get()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.WithField("mode", mode).Info("Starting walottery workers...")

	// Resolve the fullnode URL
	nodeURL := cfg.FullnodeURL
	if nodeURL == "" {
		resolved, err := sui.FullnodeURL(cfg.Network)
		if err != nil {
			return err
		}
		nodeURL = resolved
	}
	ledger := sui.NewClient(nodeURL)
	log.WithField("url", nodeURL).Info("Using Sui fullnode")

	// The operator credential is required only when the watcher runs
	var signer *sui.Signer
	if mode == ModeAll || mode == ModeWatcher {
		if cfg.DrawPrivateKey == "" {
			return fmt.Errorf("LOTTERY_DRAW_PRIVATE_KEY is required to run the settlement watcher")
		}
		var err error
		signer, err = sui.NewSigner(cfg.DrawPrivateKey)
		if err != nil {
			return fmt.Errorf("failed to load LOTTERY_DRAW_PRIVATE_KEY: %w", err)
		}
		log.WithField("operator", signer.Address()).Info("Loaded settlement operator key")
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize event bus with a logging subscriber
	bus := events.NewBus()
	bus.Subscribe(events.EventTypeSettlementSubmitted, func(_ context.Context, event events.Event) {
		e := event.(events.SettlementSubmittedEvent)
		log.WithFields(log.Fields{
			"lotteryID": e.LotteryID,
			"txDigest":  e.TxDigest,
		}).Debug("Settlement submitted event observed")
	})

	// Initialize repositories and services
	lotteryRepo := repository.NewLotteryRepository(db)
	cursorRepo := repository.NewCursorRepository(db)

	var stops []func()

	if mode == ModeAll || mode == ModeIndexer {
		indexer := service.NewIndexer(ledger, lotteryRepo, cursorRepo, bus, service.IndexerConfig{
			EventType:    service.CreationEventType(cfg.PackageID),
			BatchSize:    cfg.IndexerBatchSize,
			MaxPages:     cfg.IndexerMaxPages,
			PollInterval: cfg.IndexerPollInterval,
		})
		stops = append(stops, indexer.Start(ctx))
	}

	if mode == ModeAll || mode == ModeWatcher {
		watcher := service.NewWatcher(ledger, lotteryRepo, signer, bus, service.WatcherConfig{
			PackageID:    cfg.PackageID,
			RandomID:     cfg.RandomID,
			ClockID:      cfg.ClockID,
			BatchSize:    cfg.WatcherBatchSize,
			GasBudget:    cfg.DrawGasBudget,
			PollInterval: cfg.WatcherPollInterval,
		})
		stops = append(stops, watcher.Start(ctx))
	}

	var srv *http.Server
	if mode == ModeAll || mode == ModeAPI {
		syncService := service.NewSyncService(ledger, lotteryRepo, bus)
		handler := api.NewLotteryHandler(syncService)
		router := api.NewRouter(handler, cfg.AllowedOrigins)

		srv = &http.Server{
			Addr:    ":" + cfg.ServerPort,
			Handler: router,
		}
		go func() {
			log.WithField("port", cfg.ServerPort).Info("Sync endpoint listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Fatal("Sync endpoint failed")
			}
		}()
	}

	// Wait for shutdown
	<-ctx.Done()
	log.Info("Shutting down...")

	// Stop the worker loops; each lets its in-flight unit of work finish
	for _, stop := range stops {
		stop()
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Sync endpoint shutdown failed")
		}
	}

	log.Info("Shutdown completed")
	return nil
}
