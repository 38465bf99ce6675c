// Package config loads the service configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"WebStore/internal/catalog"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	minSecretLen = 32
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrMissingDSN    = errors.New("store dsn is required")
	ErrWeakSecret    = errors.New("jwt secret must be at least 32 chars")
)

type HTTPConfig struct {
	Addr              string `yaml:"addr"`
	Title             string `yaml:"title"`
	RateLimit         int    `yaml:"rate_limit"`
	RateWindowSeconds int    `yaml:"rate_window_seconds"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory | postgres | sqlite
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`

	// Seed replaces the built-in initial catalog when present.
	Seed *catalog.Seed `yaml:"seed"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:              ":8082",
			Title:             "Welcome to my web store",
			RateLimit:         60,
			RateWindowSeconds: 60,
		},
		Store:   StoreConfig{Driver: DriverMemory},
		Metrics: MetricsConfig{Enabled: true},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over Default(). An empty path or a missing file yields
// the defaults. Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. getenv is os.Getenv
// outside of tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := getenv("WEBSTORE_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := getenv("WEBSTORE_STORE"); v != "" {
		c.Store.Driver = v
	}
	if v := getenv("WEBSTORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := getenv("WEBSTORE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("WEBSTORE_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("METRICS_TOKEN"); v != "" {
		c.Metrics.Token = v
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: driver=%s", ErrMissingDSN, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minSecretLen {
		return ErrWeakSecret
	}
	return nil
}

func (c *Config) SeedOrDefault() catalog.Seed {
	if c.Seed != nil {
		return *c.Seed
	}
	return catalog.DefaultSeed()
}
