package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// TestDBConnection pings the database, for health checks.
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.Ping()
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id BIGSERIAL PRIMARY KEY,
			snapshot_timestamp TIMESTAMPTZ NOT NULL,
			total_value DOUBLE PRECISION NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			positions JSONB NOT NULL DEFAULT '[]'
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON snapshots (snapshot_timestamp DESC);

		CREATE TABLE IF NOT EXISTS operations (
			id BIGSERIAL PRIMARY KEY,
			operation_timestamp TIMESTAMPTZ NOT NULL,
			position_key TEXT NOT NULL,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			before_value DOUBLE PRECISION NOT NULL,
			after_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			amount_processed NUMERIC(78,0) NOT NULL,
			tx_ref TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_operations_timestamp ON operations (operation_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_operations_position ON operations (position_key);

		CREATE TABLE IF NOT EXISTS daily_pnl (
			pnl_date DATE PRIMARY KEY,
			open_value DOUBLE PRECISION NOT NULL,
			close_value DOUBLE PRECISION NOT NULL,
			high_value DOUBLE PRECISION NOT NULL,
			low_value DOUBLE PRECISION NOT NULL,
			pnl DOUBLE PRECISION NOT NULL,
			pnl_percent DOUBLE PRECISION NOT NULL,
			operation_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS claimed_fees (
			id BIGSERIAL PRIMARY KEY,
			claim_timestamp TIMESTAMPTZ NOT NULL,
			position_key TEXT NOT NULL,
			tx_ref TEXT NOT NULL UNIQUE,
			claimed_base NUMERIC(78,0) NOT NULL,
			claimed_quote NUMERIC(78,0) NOT NULL,
			claimed_base_value DOUBLE PRECISION NOT NULL,
			claimed_quote_value DOUBLE PRECISION NOT NULL,
			total_claimed_value DOUBLE PRECISION NOT NULL,
			price_at_claim DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_claimed_fees_timestamp ON claimed_fees (claim_timestamp DESC);

		CREATE TABLE IF NOT EXISTS accumulated_fees (
			position_key TEXT PRIMARY KEY,
			fee_base NUMERIC(78,0) NOT NULL DEFAULT 0,
			fee_quote NUMERIC(78,0) NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS position_price_history (
			id BIGSERIAL PRIMARY KEY,
			position_key TEXT NOT NULL,
			record_timestamp TIMESTAMPTZ NOT NULL,
			price_type TEXT NOT NULL,
			avg_price DOUBLE PRECISION NOT NULL,
			amount DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_price_history_position ON position_price_history (position_key, record_timestamp DESC);

		CREATE TABLE IF NOT EXISTS strategy_parameters (
			params_id BIGSERIAL PRIMARY KEY,
			version INTEGER NOT NULL,
			config_name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			monotonic_tolerance DOUBLE PRECISION NOT NULL,
			ask_regime_threshold DOUBLE PRECISION NOT NULL,
			bid_regime_threshold DOUBLE PRECISION NOT NULL,
			price_deviation_pct DOUBLE PRECISION NOT NULL,
			snapshot_interval_minutes DOUBLE PRECISION NOT NULL,
			global_claim_threshold DOUBLE PRECISION NOT NULL,
			per_position_claim_minimum DOUBLE PRECISION NOT NULL,
			reinvest_fees BOOLEAN NOT NULL
		);
	`

	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}

	log.Info().Msg("Database schema ensured")
	return nil
}
