package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"tradequest/internal/game"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	Dir         string `yaml:"dir"`
	Compress    bool   `yaml:"compress"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
}

type ServerConfig struct {
	Addr          string  `yaml:"addr"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

type AutoplayConfig struct {
	Cron   string `yaml:"cron"`
	Slot   string `yaml:"slot"`
	Hours  int    `yaml:"hours"`
	Outbox string `yaml:"outbox"`
}

type Config struct {
	CatalogDir string         `yaml:"catalog_dir"`
	Seed       int64          `yaml:"seed"`
	LogLevel   string         `yaml:"log_level"`
	Store      StoreConfig    `yaml:"store"`
	Server     ServerConfig   `yaml:"server"`
	Autoplay   AutoplayConfig `yaml:"autoplay"`
	Tuning     game.Tuning    `yaml:"tuning"`
}

// DefaultPath is ~/.tradequest/config.yaml, or TQ_CONFIG when set.
func DefaultPath() string {
	if v := strings.TrimSpace(os.Getenv("TQ_CONFIG")); v != "" {
		return v
	}
	return filepath.Join(homeDir(), "config.yaml")
}

// Load reads the YAML file at path (a missing file is fine), applies TQ_*
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.CatalogDir = envDefault("TQ_CATALOG_DIR", cfg.CatalogDir)
	cfg.Seed = envInt64Default("TQ_SEED", cfg.Seed)
	cfg.LogLevel = envDefault("TQ_LOG_LEVEL", cfg.LogLevel)
	cfg.Store.Driver = strings.ToLower(envDefault("TQ_STORE_DRIVER", cfg.Store.Driver))
	cfg.Store.Dir = envDefault("TQ_STORE_DIR", cfg.Store.Dir)
	cfg.Store.Compress = envBoolDefault("TQ_STORE_COMPRESS", cfg.Store.Compress)
	cfg.Store.SQLitePath = envDefault("TQ_SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.DatabaseURL = envDefault("DATABASE_URL", cfg.Store.DatabaseURL)

	addr := strings.TrimSpace(os.Getenv("PORT"))
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
		cfg.Server.Addr = addr
	} else {
		cfg.Server.Addr = envDefault("TQ_SERVER_ADDR", cfg.Server.Addr)
	}
	cfg.Server.RatePerSecond = envFloatDefault("TQ_RATE_PER_SECOND", cfg.Server.RatePerSecond)
	cfg.Server.Burst = envIntDefault("TQ_RATE_BURST", cfg.Server.Burst)

	cfg.Autoplay.Cron = envDefault("TQ_AUTOPLAY_CRON", cfg.Autoplay.Cron)
	cfg.Autoplay.Slot = envDefault("TQ_AUTOPLAY_SLOT", cfg.Autoplay.Slot)
	cfg.Autoplay.Hours = envIntDefault("TQ_AUTOPLAY_HOURS", cfg.Autoplay.Hours)
	cfg.Autoplay.Outbox = envDefault("TQ_OUTBOX", cfg.Autoplay.Outbox)

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	home := homeDir()
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverFile
	}
	if c.Store.Dir == "" {
		c.Store.Dir = filepath.Join(home, "saves")
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = filepath.Join(home, "tradequest.db")
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RatePerSecond == 0 {
		c.Server.RatePerSecond = 20
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = 40
	}
	if c.Autoplay.Cron == "" {
		c.Autoplay.Cron = "0 0 * * * *"
	}
	if c.Autoplay.Hours == 0 {
		c.Autoplay.Hours = game.HoursPerDay
	}
	if c.Autoplay.Outbox == "" {
		c.Autoplay.Outbox = filepath.Join(home, "outbox.json")
	}
	c.Tuning = c.Tuning.WithDefaults()
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be file, sqlite or postgres: %q", c.Store.Driver)
	}
	if c.Server.RatePerSecond < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("server rate limits must not be negative")
	}
	if c.Autoplay.Hours < 0 {
		return fmt.Errorf("autoplay.hours must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	for _, m := range c.Tuning.DividendMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("tuning.dividend_months: %d is not a month", m)
		}
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

func homeDir() string {
	if v := strings.TrimSpace(os.Getenv("TQ_HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tradequest"
	}
	return filepath.Join(home, ".tradequest")
}

// HomeDir is the directory holding the config, saves and outbox.
func HomeDir() string {
	return homeDir()
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
