package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// HTTP listen address, e.g. ":5000"
	Address         string        `env:"ADDRESS" envDefault:":5000"`
	GinMode         string        `env:"GIN_MODE" envDefault:"release"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Storage configuration
	WorkDir   string `env:"WORK_DIR" envDefault:"."`
	ImagesDir string `env:"IMAGES_DIR" envDefault:"imgs"`

	// QR encoding
	QRSize     int    `env:"QR_SIZE" envDefault:"256"`
	QRRecovery string `env:"QR_RECOVERY" envDefault:"medium"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Generation ledger, disabled when empty
	DatabaseURL string `env:"DATABASE_URL"`

	// Redis metadata cache, disabled when RedisAddr is empty
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"24h"`

	RecordTimeout time.Duration `env:"RECORD_TIMEOUT" envDefault:"2s"`

	// Temp-file sweeper
	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"@every 10m"`
	SweepMaxAge   time.Duration `env:"SWEEP_MAX_AGE" envDefault:"1h"`
}

// Load loads .env (if present) and parses environment variables into Config.
func Load() (Config, error) {
	// Load .env if available; ignore error if file does not exist
	_ = godotenv.Load()

	return Parse()
}

// Parse reads Config from the process environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot express.
func (c Config) Validate() error {
	if c.QRSize <= 0 {
		return fmt.Errorf("QR_SIZE must be positive, got %d", c.QRSize)
	}
	if c.ImagesDir == "" {
		return errors.New("IMAGES_DIR must not be empty")
	}
	if c.SweepMaxAge <= 0 {
		return fmt.Errorf("SWEEP_MAX_AGE must be positive, got %s", c.SweepMaxAge)
	}
	return nil
}

// StorageDir returns the directory generated images are written to
func (c Config) StorageDir() string {
	if filepath.IsAbs(c.ImagesDir) {
		return c.ImagesDir
	}
	return filepath.Join(c.WorkDir, c.ImagesDir)
}

// LedgerEnabled reports whether the Postgres generation ledger is configured
func (c Config) LedgerEnabled() bool {
	return c.DatabaseURL != ""
}

// CacheEnabled reports whether the Redis metadata cache is configured
func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
