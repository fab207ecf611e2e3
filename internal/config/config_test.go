package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := load()
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if !cfg.Engine.DefaultAlpha.Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("DefaultAlpha = %s, want 0.03", cfg.Engine.DefaultAlpha)
	}
	if cfg.Engine.FeeRateBps != 50 || cfg.Engine.CollateralDecimals != 6 {
		t.Errorf("Engine = %+v, want 50 bps / 6 decimals", cfg.Engine)
	}
	if cfg.Broadcast.PriceInterval != 5*time.Second {
		t.Errorf("PriceInterval = %s, want 5s", cfg.Broadcast.PriceInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	body := "ENGINE_DEFAULT_ALPHA=0.05\nSTORE_BACKEND=memory\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	// godotenv never overrides variables already present.
	t.Setenv("ENGINE_FEE_RATE_BPS", "75")
	t.Cleanup(func() {
		os.Unsetenv("ENGINE_DEFAULT_ALPHA")
		os.Unsetenv("STORE_BACKEND")
	})

	cfg, err := load()
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if !cfg.Engine.DefaultAlpha.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("DefaultAlpha = %s, want 0.05 from env file", cfg.Engine.DefaultAlpha)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Engine.FeeRateBps != 75 {
		t.Errorf("FeeRateBps = %d, want 75", cfg.Engine.FeeRateBps)
	}
}

func TestLoad_InvalidDecimal(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("ENGINE_DEFAULT_ALPHA", "three percent")
	if _, err := load(); err == nil {
		t.Error("load() should fail on a malformed decimal")
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Env: "production"},
		Store:  StoreConfig{Backend: StoreMemory},
		Engine: EngineConfig{
			DefaultAlpha:        decimal.NewFromInt(1),
			DefaultMinLiquidity: decimal.Zero,
			FeeRateBps:          5000,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
		Broadcast: BroadcastConfig{PriceInterval: time.Second},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"memory", "ENGINE_DEFAULT_ALPHA", "ENGINE_DEFAULT_MIN_LIQUIDITY", "ENGINE_FEE_RATE_BPS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Env: "production"},
			Store:  StoreConfig{Backend: StorePostgres},
			DB:     DBConfig{DSN: "host=db user=amm dbname=amm sslmode=require"},
			Engine: EngineConfig{
				DefaultAlpha:        decimal.RequireFromString("0.03"),
				DefaultMinLiquidity: decimal.NewFromInt(1),
				FeeRateBps:          50,
			},
			RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
			Broadcast: BroadcastConfig{PriceInterval: time.Second},
		}
	}

	// The DSN on the config is what counts, not the environment.
	t.Setenv("DATABASE_DSN", "")
	if err := valid().Validate(); err != nil {
		t.Errorf("config with DSN should validate, got %v", err)
	}

	cfg := valid()
	cfg.DB.DSN = ""
	t.Setenv("DATABASE_DSN", "host=elsewhere")
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_DSN") {
		t.Errorf("empty DSN should fail validation, got %v", err)
	}
}
