// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        // e.g. "8080"
	Env            string        // "development" | "production"
	ReadTimeout    time.Duration // default 10s
	WriteTimeout   time.Duration // default 10s
	AllowedOrigins string        // comma-separated CORS origins; "" = allow all
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
	MigrationsDir   string        // default "migrations"
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string // "postgres" | "memory"
}

// EngineConfig holds defaults applied to newly created markets when the
// request leaves a parameter out. Values are real numbers, not fixed point.
type EngineConfig struct {
	DefaultAlpha        decimal.Decimal // default 0.03
	DefaultMinLiquidity decimal.Decimal // default 1
	FeeRateBps          int             // default 50 (0.5 %)
	CollateralDecimals  int             // default 6
}

// BroadcastConfig holds WebSocket price-broadcast settings.
type BroadcastConfig struct {
	PriceInterval time.Duration // default 5s
	MaxMarkets    int           // active markets per tick, default 100
}

// RateLimitConfig holds the per-IP token bucket settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default 20
	Burst             int     // default 40
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Store     StoreConfig
	Engine    EngineConfig
	Broadcast BroadcastConfig
	RateLimit RateLimitConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all configuration values are present and valid.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StorePostgres:
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN must be set for the postgres store"))
		}
	case StoreMemory:
		if c.IsProd() {
			errs = append(errs, errors.New("STORE_BACKEND=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q",
			StorePostgres, StoreMemory, c.Store.Backend))
	}

	one := decimal.NewFromInt(1)
	if c.Engine.DefaultAlpha.IsNegative() || c.Engine.DefaultAlpha.GreaterThanOrEqual(one) {
		errs = append(errs, fmt.Errorf(
			"ENGINE_DEFAULT_ALPHA must be in [0, 1), got %s", c.Engine.DefaultAlpha))
	}
	if !c.Engine.DefaultMinLiquidity.IsPositive() {
		errs = append(errs, fmt.Errorf(
			"ENGINE_DEFAULT_MIN_LIQUIDITY must be positive, got %s", c.Engine.DefaultMinLiquidity))
	}
	if c.Engine.FeeRateBps < 0 || c.Engine.FeeRateBps > 1000 {
		errs = append(errs, fmt.Errorf(
			"ENGINE_FEE_RATE_BPS must be between 0 and 1000, got %d", c.Engine.FeeRateBps))
	}
	if c.Engine.CollateralDecimals < 0 || c.Engine.CollateralDecimals > 36 {
		errs = append(errs, fmt.Errorf(
			"ENGINE_COLLATERAL_DECIMALS must be between 0 and 36, got %d", c.Engine.CollateralDecimals))
	}

	if c.Broadcast.PriceInterval <= 0 {
		errs = append(errs, errors.New("BROADCAST_PRICE_INTERVAL must be positive"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails, so call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	// A .env file is optional; real environment variables win over it.
	if path := getEnv("ENV_FILE", ".env"); fileExists(path) {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:           getEnv("SERVER_PORT", "8080"),
		Env:            getEnv("ENVIRONMENT", "development"),
		ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "evetabi_amm"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		MigrationsDir:   getEnv("DB_MIGRATIONS_DIR", "migrations"),
	}

	cfg.Store = StoreConfig{Backend: getEnv("STORE_BACKEND", StorePostgres)}

	// ── Engine ────────────────────────────────────────────────────────────────
	alpha, err := getDecimal("ENGINE_DEFAULT_ALPHA", "0.03")
	if err != nil {
		return nil, fmt.Errorf("ENGINE_DEFAULT_ALPHA: %w", err)
	}
	minLiq, err := getDecimal("ENGINE_DEFAULT_MIN_LIQUIDITY", "1")
	if err != nil {
		return nil, fmt.Errorf("ENGINE_DEFAULT_MIN_LIQUIDITY: %w", err)
	}
	feeBps, err := getInt("ENGINE_FEE_RATE_BPS", 50)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_FEE_RATE_BPS: %w", err)
	}
	decimals, err := getInt("ENGINE_COLLATERAL_DECIMALS", 6)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_COLLATERAL_DECIMALS: %w", err)
	}

	cfg.Engine = EngineConfig{
		DefaultAlpha:        alpha,
		DefaultMinLiquidity: minLiq,
		FeeRateBps:          feeBps,
		CollateralDecimals:  decimals,
	}

	// ── Broadcast ─────────────────────────────────────────────────────────────
	maxMarkets, err := getInt("BROADCAST_MAX_MARKETS", 100)
	if err != nil {
		return nil, fmt.Errorf("BROADCAST_MAX_MARKETS: %w", err)
	}
	cfg.Broadcast = BroadcastConfig{
		PriceInterval: getDuration("BROADCAST_PRICE_INTERVAL", 5*time.Second),
		MaxMarkets:    maxMarkets,
	}

	// ── Rate limit ────────────────────────────────────────────────────────────
	rps, err := getFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	burst, err := getInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	cfg.RateLimit = RateLimitConfig{RequestsPerSecond: rps, Burst: burst}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getDecimal parses an env var as an exact decimal. Used for engine
// parameters, which must never pass through a float.
func getDecimal(key, defaultVal string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultVal))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q", getEnv(key, defaultVal))
	}
	return d, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Log warning and fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
