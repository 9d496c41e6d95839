// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Environment variable names.
const (
	EnvDB          = "CONSOL_DB"
	EnvParallelism = "CONSOL_PARALLELISM"
	EnvNodeTimeout = "CONSOL_NODE_TIMEOUT"
	EnvGroupEntity = "CONSOL_GROUP_ENTITY"
	EnvTolerance   = "CONSOL_TOLERANCE"
	EnvRedisAddr   = "CONSOL_REDIS_ADDR"
	EnvLockTTL     = "CONSOL_LOCK_TTL"
	EnvHTTPAddr    = "CONSOL_HTTP_ADDR"
	EnvLogFormat   = "CONSOL_LOG_FORMAT"
)

// Config is the resolved runtime configuration.
type Config struct {
	DBPath      string          `json:"db_path" validate:"required"`
	Parallelism int             `json:"parallelism" validate:"gte=1,lte=256"`
	NodeTimeout time.Duration   `json:"node_timeout" validate:"gte=0"`
	GroupEntity string          `json:"group_entity" validate:"required"`
	Tolerance   decimal.Decimal `json:"tolerance" validate:"gte=0"`
	RedisAddr   string          `json:"redis_addr,omitempty"`
	LockTTL     time.Duration   `json:"lock_ttl" validate:"gt=0"`
	HTTPAddr    string          `json:"http_addr" validate:"required"`
	LogFormat   string          `json:"log_format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DBPath:      "consol.db",
		Parallelism: 4,
		NodeTimeout: 30 * time.Second,
		GroupEntity: "GROUP",
		Tolerance:   model.Tolerance,
		LockTTL:     5 * time.Minute,
		HTTPAddr:    ":8080",
		LogFormat:   "text",
	}
}

// Load reads the given .env files (".env" when none are named) into the
// process environment without overriding variables already set, then
// resolves the configuration. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv resolves the configuration from getenv over Default.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv(EnvDB); v != "" {
		cfg.DBPath = v
	}
	if v := getenv(EnvParallelism); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvParallelism, err)
		}
		cfg.Parallelism = n
	}
	if v := getenv(EnvNodeTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvNodeTimeout, err)
		}
		cfg.NodeTimeout = d
	}
	if v := getenv(EnvGroupEntity); v != "" {
		cfg.GroupEntity = model.NormalizeCode(v)
	}
	if v := getenv(EnvTolerance); v != "" {
		tol, err := decimal.NewFromString(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvTolerance, err)
		}
		cfg.Tolerance = tol
	}
	cfg.RedisAddr = getenv(EnvRedisAddr)
	if v := getenv(EnvLockTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLockTTL, err)
		}
		cfg.LockTTL = d
	}
	if v := getenv(EnvHTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	return model.Validate(c)
}
