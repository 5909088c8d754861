package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Ledger configuration
	Network     string // mainnet, testnet, devnet, localnet
	FullnodeURL string // explicit node URL; overrides Network when set
	PackageID   string // walottery Move package, required
	ClockID     string // shared clock object passed to draw calls
	RandomID    string // shared randomness object passed to draw calls

	// Operator credential, required only for the settlement watcher
	DrawPrivateKey string

	// Database configuration
	DatabaseURL string

	// Indexer configuration
	IndexerPollInterval time.Duration
	IndexerBatchSize    int
	IndexerMaxPages     int

	// Watcher configuration
	WatcherPollInterval time.Duration
	WatcherBatchSize    int
	DrawGasBudget       uint64

	// Sync endpoint configuration
	ServerPort     string
	AllowedOrigins []string

	// Environment
	LogLevel    string
	Environment string // "development", "production", or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Network:     v.GetString("SUI_NETWORK"),
		FullnodeURL: v.GetString("SUI_FULLNODE_URL"),
		PackageID:   v.GetString("WALOTTERY_PACKAGE_ID"),
		ClockID:     v.GetString("SUI_CLOCK_ID"),
		RandomID:    v.GetString("SUI_RANDOM_ID"),

		DrawPrivateKey: v.GetString("LOTTERY_DRAW_PRIVATE_KEY"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		IndexerPollInterval: time.Duration(v.GetInt64("LOTTERY_INDEXER_POLL_INTERVAL_MS")) * time.Millisecond,
		IndexerBatchSize:    v.GetInt("LOTTERY_INDEXER_BATCH_SIZE"),
		IndexerMaxPages:     v.GetInt("LOTTERY_INDEXER_PAGES_PER_RUN"),

		WatcherPollInterval: time.Duration(v.GetInt64("LOTTERY_DRAW_POLL_INTERVAL_MS")) * time.Millisecond,
		WatcherBatchSize:    v.GetInt("LOTTERY_DRAW_BATCH_SIZE"),
		DrawGasBudget:       v.GetUint64("LOTTERY_DRAW_GAS_BUDGET"),

		ServerPort: v.GetString("SERVER_PORT"),

		LogLevel:    v.GetString("LOG_LEVEL"),
		Environment: v.GetString("ENVIRONMENT"),
	}

	if origins := v.GetString("LOTTERY_API_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}

	if config.Environment != "test" {
		// Validate required configuration. The operator signing key is
		// deliberately not checked here: it is only required by the
		// watcher, which validates it at its own startup.
		if config.PackageID == "" {
			return nil, fmt.Errorf("WALOTTERY_PACKAGE_ID is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// setDefaults registers the fallback values for optional settings
func setDefaults(v *viper.Viper) {
	v.SetDefault("SUI_NETWORK", "testnet")
	v.SetDefault("SUI_CLOCK_ID", "0x6")
	v.SetDefault("SUI_RANDOM_ID", "0x8")

	v.SetDefault("LOTTERY_INDEXER_POLL_INTERVAL_MS", 5000)
	v.SetDefault("LOTTERY_INDEXER_BATCH_SIZE", 50)
	v.SetDefault("LOTTERY_INDEXER_PAGES_PER_RUN", 10)

	v.SetDefault("LOTTERY_DRAW_POLL_INTERVAL_MS", 60000)
	v.SetDefault("LOTTERY_DRAW_BATCH_SIZE", 25)
	v.SetDefault("LOTTERY_DRAW_GAS_BUDGET", 100000000)

	v.SetDefault("SERVER_PORT", "8080")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")
}
