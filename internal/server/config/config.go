// Package config loads the collector configuration: defaults, an optional
// YAML file and YARDSYNC_SERVER_* environment overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "YARDSYNC_SERVER_"

// minSecretLen is the shortest accepted HMAC secret
const minSecretLen = 32

// Config is the collector configuration
type Config struct {
	Addr            string          `yaml:"addr"`
	DBPath          string          `yaml:"db_path"`
	LogLevel        string          `yaml:"log_level"`
	JWTSecret       string          `yaml:"jwt_secret"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	LoginRateLimit  RateLimitConfig `yaml:"login_rate_limit"`
	TokenTTL        time.Duration   `yaml:"token_ttl"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
}

// RateLimitConfig is a per-client token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		DBPath:          "yardsync-collector.db",
		LogLevel:        "info",
		TokenTTL:        12 * time.Hour,
		ShutdownTimeout: 15 * time.Second,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		RateLimit:       RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
		// Вход ограничен строже: перебор паролей
		LoginRateLimit: RateLimitConfig{RequestsPerSecond: 0.2, Burst: 5},
	}
}

// Load reads the configuration like Read and validates the result
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads path (skipped when empty) over the defaults and applies the
// environment without validating. Used by the admin commands.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode rejects unknown keys
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides fields from YARDSYNC_SERVER_* variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ADDR":       &c.Addr,
		"DB_PATH":    &c.DBPath,
		"LOG_LEVEL":  &c.LogLevel,
		"JWT_SECRET": &c.JWTSecret,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TOKEN_TTL":        &c.TokenTTL,
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"READ_TIMEOUT":     &c.ReadTimeout,
		"WRITE_TIMEOUT":    &c.WriteTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}

	floats := map[string]*float64{
		"RATE_LIMIT_RPS":       &c.RateLimit.RequestsPerSecond,
		"LOGIN_RATE_LIMIT_RPS": &c.LoginRateLimit.RequestsPerSecond,
	}
	for name, dst := range floats {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = f
	}

	ints := map[string]*int{
		"RATE_LIMIT_BURST":       &c.RateLimit.Burst,
		"LOGIN_RATE_LIMIT_BURST": &c.LoginRateLimit.Burst,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if len(c.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("jwt_secret must be at least %d bytes (set %sJWT_SECRET)", minSecretLen, EnvPrefix))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.LoginRateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}
