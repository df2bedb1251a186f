// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/roxy/points-engine/internal/model"
)

// Config holds all server configuration.
type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisURL    string        `env:"REDIS_URL"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`

	// EnableFaucet exposes the native deposit route.
	EnableFaucet bool `env:"ENABLE_FAUCET" envDefault:"false"`

	Protocol ProtocolConfig
}

// ProtocolConfig seeds the protocol record on first start. It is ignored
// once the store holds a protocol.
type ProtocolConfig struct {
	Admin            string `env:"ADMIN_IDENTITY,required"`
	StartingPoints   uint64 `env:"STARTING_POINTS" envDefault:"1000"`
	MinEarnedForSell uint64 `env:"MIN_EARNED_FOR_SELL" envDefault:"10000"`
	ListingFee       uint64 `env:"LISTING_FEE" envDefault:"10000000"`
	ProtocolFeeBps   uint64 `env:"PROTOCOL_FEE_BPS" envDefault:"200"`
	AdminPointPrice  uint64 `env:"ADMIN_POINT_PRICE" envDefault:"1000"`
}

// Load reads an optional .env file, then parses and validates the
// environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse parses and validates the environment without touching .env.
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

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	p := c.Protocol
	if strings.TrimSpace(p.Admin) == "" {
		return errors.New("config: ADMIN_IDENTITY must not be blank")
	}
	if p.ProtocolFeeBps > model.MaxProtocolFeeBps {
		return fmt.Errorf("config: PROTOCOL_FEE_BPS %d exceeds %d", p.ProtocolFeeBps, model.MaxProtocolFeeBps)
	}
	if p.AdminPointPrice == 0 {
		return errors.New("config: ADMIN_POINT_PRICE must be positive")
	}
	if c.CacheTTL <= 0 {
		return errors.New("config: CACHE_TTL must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// InitialProtocol returns the protocol record to seed an empty store with.
func (c Config) InitialProtocol() model.Protocol {
	p := model.NewProtocol(c.Protocol.Admin)
	p.StartingPoints = c.Protocol.StartingPoints
	p.MinEarnedForSell = c.Protocol.MinEarnedForSell
	p.ListingFee = c.Protocol.ListingFee
	p.ProtocolFeeBps = c.Protocol.ProtocolFeeBps
	p.AdminPointPrice = c.Protocol.AdminPointPrice
	return p
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
