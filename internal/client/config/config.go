// Package config loads the client configuration from defaults, an optional
// YAML file, a .env file and YARDSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. YARDSYNC_SERVER_URL
const EnvPrefix = "YARDSYNC"

const (
	defaultServerURL = "http://localhost:8080"
	defaultConfigDir = ".yardsync"
	defaultLogLevel  = "warn"
)

// Storage backends
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the client configuration
type Config struct {
	ServerURL         string         `mapstructure:"server_url"`
	LogLevel          string         `mapstructure:"log_level"`
	MetricsAddr       string         `mapstructure:"metrics_addr"`
	ConfigDir         string         `mapstructure:"config_dir"`
	Storage           StorageConfig  `mapstructure:"storage"`
	Delivery          DeliveryConfig `mapstructure:"delivery"`
	Draft             DraftConfig    `mapstructure:"draft"`
	Queue             QueueConfig    `mapstructure:"queue"`
	Probe             ProbeConfig    `mapstructure:"probe"`
	SuccessMessageTTL time.Duration  `mapstructure:"success_message_ttl"`
	NoColor           bool           `mapstructure:"no_color"`
}

// StorageConfig selects and configures the local KV backend
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
	RedisDB       int    `mapstructure:"redis_db"`
	CapacityBytes int64  `mapstructure:"capacity_bytes"`
}

// DeliveryConfig bounds submission delivery
type DeliveryConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

// DraftConfig controls the draft slot
type DraftConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	AutosaveIdle time.Duration `mapstructure:"autosave_idle"`
}

// QueueConfig controls the offline queue
type QueueConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

// ProbeConfig controls the connectivity prober
type ProbeConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// New returns a viper instance with every default set and environment
// overrides enabled. Flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("server_url", defaultServerURL)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("config_dir", "")
	v.SetDefault("no_color", false)
	v.SetDefault("success_message_ttl", 5*time.Second)

	v.SetDefault("storage.backend", BackendBolt)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_prefix", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.capacity_bytes", int64(5<<20))

	v.SetDefault("queue.max_items", 50)
	v.SetDefault("draft.ttl", 7*24*time.Hour)
	v.SetDefault("draft.autosave_idle", 30*time.Second)
	v.SetDefault("delivery.timeout", 10*time.Second)
	v.SetDefault("delivery.rate_per_second", 0.0)
	v.SetDefault("probe.interval", 15*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (or config.yaml from the config directory when empty)
// and returns the validated configuration. A missing default file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	loadDotEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := v.GetString("config_dir"); dir != "" {
			v.AddConfigPath(dir)
		} else if dir, err := defaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.ConfigDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		cfg.ConfigDir = dir
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(cfg.ConfigDir, defaultFileName(cfg.Storage.Backend))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have no sensible fallback
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url must not be empty")
	}
	switch c.Storage.Backend {
	case BackendBolt, BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.CapacityBytes <= 0 {
		return errors.New("storage.capacity_bytes must be positive")
	}
	if c.Queue.MaxItems <= 0 {
		return errors.New("queue.max_items must be positive")
	}
	if c.Delivery.RatePerSecond < 0 {
		return errors.New("delivery.rate_per_second must not be negative")
	}
	return nil
}

// SlogLevel maps log_level to a slog level; unknown values mean warn
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// loadDotEnv loads .env from the working directory if present.
// Variables already set in the environment win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, defaultConfigDir), nil
}

func defaultFileName(backend string) string {
	if backend == BackendSQLite {
		return "yardsync.sqlite"
	}
	return "yardsync.db"
}
