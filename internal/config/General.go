package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Mode is the run mode safety switch: "live" or "sim".
	Mode string

	// LoopInterval is the evaluation tick interval.
	LoopInterval time.Duration

	// WebPort is the port for the read-only dashboard API.
	WebPort string

	// SettleMaxAttempts bounds the re-add retries after liquidity removal.
	SettleMaxAttempts int
	// SettleBaseDelay is the initial settlement wait between the two phases.
	SettleBaseDelay time.Duration

	// SourceRatePerSecond caps calls against the rate-limited position source.
	SourceRatePerSecond float64

	// BaseDecimals and QuoteDecimals are the token precisions used when
	// converting raw integer amounts to display values.
	BaseDecimals  int
	QuoteDecimals int
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// BLM_MODE is required; everything else falls back to a sane default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Mode, err = getEnv("BLM_MODE")
	if err != nil {
		return err
	}

	LoopInterval = time.Duration(getEnvAsIntDefault("LOOP_INTERVAL_SECONDS", 45)) * time.Second

	WebPort = os.Getenv("WEB_PORT")
	if WebPort == "" {
		WebPort = "8080"
	}

	SettleMaxAttempts = getEnvAsIntDefault("SETTLE_MAX_ATTEMPTS", 5)
	SettleBaseDelay = time.Duration(getEnvAsIntDefault("SETTLE_BASE_DELAY_MS", 2000)) * time.Millisecond

	SourceRatePerSecond = getEnvAsFloat64Default("SOURCE_RATE_PER_SECOND", 4)

	BaseDecimals = getEnvAsIntDefault("BASE_DECIMALS", 9)
	QuoteDecimals = getEnvAsIntDefault("QUOTE_DECIMALS", 6)

	log.Debug().
		Str("Mode", Mode).
		Dur("LoopInterval", LoopInterval).
		Str("WebPort", WebPort).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsIntDefault retrieves an environment variable as an int, falling back
// to the default when unset or invalid.
func getEnvAsIntDefault(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Int("default", defaultValue).Msg("Invalid integer environment variable, using default")
		return defaultValue
	}
	return value
}

// getEnvAsFloat64Default retrieves an environment variable as a float64,
// falling back to the default when unset or invalid.
func getEnvAsFloat64Default(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Float64("default", defaultValue).Msg("Invalid float environment variable, using default")
		return defaultValue
	}
	return value
}
