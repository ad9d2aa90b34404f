// Package config provides configuration management.
//
// Configuration is loaded from environment variables (.env file first, via
// godotenv) with defaults sane enough to run a simulation out of the box;
// no variable is required, and venue credentials may be left empty in
// simulated mode.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration for one running instance, live or
// simulated.
type Config struct {
	DataDir  string // base directory for sqlite reference/event stores, always absolute
	LogLevel string // debug, info, warn, error
	Port     int    // read from the environment; no server in this repository listens on it

	// Venue credentials. Empty in simulated mode.
	VenueAPIKey    string
	VenueAPISecret string

	// Historical/analytical store DSNs (spec SPEC_FULL "domain stack":
	// ClickHouse for tick/trade archives, Postgres for reference entities).
	ClickHouseDSN string
	PostgresDSN   string

	// MLEndpointURL is the forecaster inference service address (spec
	// SPEC_FULL "InferenceClient").
	MLEndpointURL string

	// SimulationWindow paces the SyncBarrier in simulated runs; zero means
	// unpaced, as-fast-as-possible replay.
	SimulationWindow time.Duration

	// EventQueueCapacity sizes every subscriber's bounded channel.
	EventQueueCapacity int

	// ReconciliationTolerance bounds how far a venue-reported balance may
	// drift from the ledger's projection before a discrepancy is raised.
	ReconciliationTolerance string // parsed to core.Decimal by callers

	DevMode bool
}

// Load reads configuration from environment variables.
//
// 1. Loads .env if present (godotenv.Load() errors are ignored: no .env is
// fine in production).
// 2. Reads environment variables with defaults.
// 3. Resolves the data directory to an absolute path and creates it.
// 4. Validates the result.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("ARKIN_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                 absDataDir,
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		Port:                    getEnvAsInt("ARKIN_PORT", 8090),
		VenueAPIKey:             getEnv("VENUE_API_KEY", ""),
		VenueAPISecret:          getEnv("VENUE_API_SECRET", ""),
		ClickHouseDSN:           getEnv("CLICKHOUSE_DSN", ""),
		PostgresDSN:             getEnv("POSTGRES_DSN", ""),
		MLEndpointURL:           getEnv("ML_ENDPOINT_URL", "http://localhost:9100"),
		SimulationWindow:        time.Duration(getEnvAsInt("SIMULATION_WINDOW_MS", 0)) * time.Millisecond,
		EventQueueCapacity:      getEnvAsInt("EVENT_QUEUE_CAPACITY", 1024),
		ReconciliationTolerance: getEnv("RECONCILIATION_TOLERANCE", "0.01"),
		DevMode:                 getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// errors much later in startup.
func (c *Config) Validate() error {
	if c.EventQueueCapacity <= 0 {
		return fmt.Errorf("EVENT_QUEUE_CAPACITY must be positive, got %d", c.EventQueueCapacity)
	}
	return nil
}

// getEnv retrieves an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
