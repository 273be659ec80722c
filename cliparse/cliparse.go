// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = 3318
	DefaultBlockInterval = 2 * time.Second
	DefaultNodeURL       = "http://localhost:3318"
	DefaultTxTimeout     = 60 * time.Second
	DefaultTxPoll        = 500 * time.Millisecond
	DefaultReconcile     = 30 * time.Second
	DefaultPollCacheSize = 512
)

// Config is the chain node configuration.
type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	BlockInterval time.Duration
}

// ClientConfig configures pollctl and anything else built on the client package.
type ClientConfig struct {
	NodeURL           string
	KeystoreDir       string
	TxTimeout         time.Duration
	TxPollInterval    time.Duration
	ReconcileInterval time.Duration
	PollCacheSize     int
}

// LoadDotEnv loads .env from the working directory when present.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("pollchain", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.DurationVar(&cfg.BlockInterval, "block-interval", 0, "Time between blocks")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType != "sqlite" {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = "pollchain.db"
	}

	if cfg.BlockInterval == 0 {
		d, err := durationEnv("BLOCK_INTERVAL", DefaultBlockInterval)
		if err != nil {
			return Config{}, err
		}
		cfg.BlockInterval = d
	}
	if cfg.BlockInterval <= 0 {
		return Config{}, errors.New("block interval must be positive")
	}

	return cfg, nil
}

// ParseClientEnv reads the client configuration from the environment.
// Flags are layered on top by the caller.
func ParseClientEnv() (ClientConfig, error) {
	cfg := ClientConfig{
		NodeURL:     os.Getenv("NODE_URL"),
		KeystoreDir: os.Getenv("KEYSTORE_DIR"),
	}
	if cfg.NodeURL == "" {
		cfg.NodeURL = DefaultNodeURL
	}
	if cfg.KeystoreDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("KEYSTORE_DIR not set and no home directory: %w", err)
		}
		cfg.KeystoreDir = filepath.Join(home, ".pollchain", "keys")
	}

	var err error
	if cfg.TxTimeout, err = durationEnv("TX_TIMEOUT", DefaultTxTimeout); err != nil {
		return ClientConfig{}, err
	}
	if cfg.TxPollInterval, err = durationEnv("TX_POLL_INTERVAL", DefaultTxPoll); err != nil {
		return ClientConfig{}, err
	}
	if cfg.ReconcileInterval, err = durationEnv("RECONCILE_INTERVAL", DefaultReconcile); err != nil {
		return ClientConfig{}, err
	}

	cfg.PollCacheSize = DefaultPollCacheSize
	if s := os.Getenv("POLL_CACHE_SIZE"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return ClientConfig{}, errors.New("invalid POLL_CACHE_SIZE env variable")
		}
		cfg.PollCacheSize = n
	}

	return cfg, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", name)
	}
	return d, nil
}
