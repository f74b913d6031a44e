package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"auction-market/utils"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

type Config struct {
	Port     string
	LogLevel string

	StoreDriver  string
	PostgresConn string
	SQLitePath   string

	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	LockEditsAfterBids bool
	SeedDemoData       bool
}

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		utils.Warn("could not load .env file", map[string]any{"error": err.Error()})
	}

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		StoreDriver:    strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreMemory)),
		PostgresConn:   os.Getenv("POSTGRES_CONN"),
		SQLitePath:     getEnvOrDefault("SQLITE_PATH", "auction.db"),
		SessionBackend: strings.ToLower(getEnvOrDefault("SESSION_BACKEND", SessionsMemory)),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnvOrDefault("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getEnvOrDefault("SESSION_TTL", "1h")); err != nil {
		return nil, fmt.Errorf("config: invalid SESSION_TTL: %w", err)
	}
	if cfg.LockEditsAfterBids, err = strconv.ParseBool(getEnvOrDefault("LOCK_EDITS_AFTER_BIDS", "false")); err != nil {
		return nil, fmt.Errorf("config: invalid LOCK_EDITS_AFTER_BIDS: %w", err)
	}
	if cfg.SeedDemoData, err = strconv.ParseBool(getEnvOrDefault("SEED_DEMO_DATA", "false")); err != nil {
		return nil, fmt.Errorf("config: invalid SEED_DEMO_DATA: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.PostgresConn == "" {
			return errors.New("config: POSTGRES_CONN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.SessionBackend {
	case SessionsMemory, SessionsRedis:
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
