package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/blm-labs/blm/internal/config"
	"github.com/blm-labs/blm/internal/engine"
	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/source"
	"github.com/blm-labs/blm/internal/state"
	"github.com/blm-labs/blm/internal/tracker"
	"github.com/blm-labs/blm/internal/types"
	"github.com/blm-labs/blm/internal/web"
)

// main is the entry point for the BLM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("BLM Core Logic Starting...")

	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Strategy Parameters
	strategyParams, err := state.LoadActiveStrategyParameters(engine.DEFAULT_STRATEGY_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active strategy parameters, using defaults and saving.")
		defaultParams := config.DefaultStrategyParameters
		if _, err := state.SaveStrategyParameters(defaultParams, engine.DEFAULT_STRATEGY_CONFIG_NAME, engine.DEFAULT_STRATEGY_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default strategy parameters.")
		}
		strategyParams = &defaultParams
	}
	log.Info().Msg("Strategy parameters loaded successfully.")

	// --- Start Web Server ---
	webServer := web.NewWebServer(config.WebPort)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting BLM dashboard API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 2. Position Source Initialization (with Safety Switch) ---
	var src source.PositionSource
	switch config.Mode {
	case "sim":
		log.Info().Msg("Initializing BLM in SIM mode. Mutations stay in memory.")
		src = newSeededSimSource()
	case "live":
		log.Fatal().Msg("BLM_MODE is set to 'live' but no live position source is wired into this build. Halting to prevent accidental execution.")
	default:
		log.Fatal().Str("mode", config.Mode).Msg("Unknown BLM_MODE. Set BLM_MODE=sim to run.")
	}
	defer src.Close()

	// --- 3. Create Engine Instance with Dependency Injection ---
	store := state.NewStore()
	regimes := tracker.NewRegimeTracker(*strategyParams)
	snapshots := tracker.NewSnapshotStore(store, regimes, *strategyParams, src.BaseDecimals(), src.QuoteDecimals())
	fees := tracker.NewFeeAccrualLedger(store, *strategyParams)

	engineCfg := engine.Config{
		Source:              src,
		Snapshots:           snapshots,
		Fees:                fees,
		Operations:          store,
		Params:              *strategyParams,
		SourceRatePerSecond: config.SourceRatePerSecond,
		Settle: engine.SettlePolicy{
			MaxAttempts: config.SettleMaxAttempts,
			BaseDelay:   config.SettleBaseDelay,
		},
	}

	eng, err := engine.New(engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	log.Info().Msg("Engine instance created successfully")

	// --- 4. Start Main Loop ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("interval", config.LoopInterval.String()).Msg("Starting evaluation loop")
	eng.RunLoop(ctx, config.LoopInterval)

	log.Info().Msg("Shutdown complete")
}

// newSeededSimSource builds an in-memory source with a pair of bucketed
// positions so a fresh sim run has something to evaluate.
func newSeededSimSource() *source.SimSource {
	src := source.NewSimSource(config.BaseDecimals, config.QuoteDecimals, 150.0)

	src.SeedPosition(types.Position{
		Key:           "sim-pos-alpha",
		LowerBucketID: 100,
		UpperBucketID: 104,
		Buckets: []types.PriceBucket{
			{ID: 100, Price: 148.0, BaseAmount: sdkmath.NewInt(2_000_000_000), QuoteAmount: sdkmath.ZeroInt()},
			{ID: 101, Price: 149.0, BaseAmount: sdkmath.NewInt(1_500_000_000), QuoteAmount: sdkmath.ZeroInt()},
			{ID: 102, Price: 150.0, BaseAmount: sdkmath.NewInt(1_000_000_000), QuoteAmount: sdkmath.NewInt(50_000_000)},
			{ID: 103, Price: 151.0, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(120_000_000)},
			{ID: 104, Price: 152.0, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(180_000_000)},
		},
		UnclaimedFeeBase:  sdkmath.NewInt(5_000_000),
		UnclaimedFeeQuote: sdkmath.NewInt(2_000_000),
	})

	// Fully quote-sided with ascending amounts, eligible for a bid redeploy
	// once the price deviation gate passes.
	src.SeedPosition(types.Position{
		Key:           "sim-pos-beta",
		LowerBucketID: 90,
		UpperBucketID: 92,
		Buckets: []types.PriceBucket{
			{ID: 90, Price: 140.0, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(200_000_000)},
			{ID: 91, Price: 141.0, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(300_000_000)},
			{ID: 92, Price: 142.0, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(500_000_000)},
		},
		UnclaimedFeeBase:  sdkmath.ZeroInt(),
		UnclaimedFeeQuote: sdkmath.ZeroInt(),
	})

	return src
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
