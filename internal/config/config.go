// Package config loads the service configuration from defaults, an optional YAML file,
// an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
}

type AuthConfig struct {
	AppName        string        `yaml:"app_name" env:"AUTH_APP_NAME"`
	ChallengeTTL   time.Duration `yaml:"challenge_ttl" env:"AUTH_CHALLENGE_TTL"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"AUTH_SWEEP_INTERVAL"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"AUTH_SESSION_TTL"`
	SigningKeyPath string        `yaml:"signing_key_path" env:"AUTH_SIGNING_KEY_PATH"`
}

type CookieConfig struct {
	Name   string `yaml:"name" env:"SESSION_COOKIE_NAME"`
	Domain string `yaml:"domain" env:"SESSION_COOKIE_DOMAIN"`
	Secure bool   `yaml:"secure" env:"SESSION_COOKIE_SECURE"`
}

type StoreConfig struct {
	Backend     string `yaml:"backend" env:"STORE_BACKEND"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"REDIS_PREFIX"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Config is the full service configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Cookie CookieConfig `yaml:"cookie"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":9000",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			AppName:       "SparksClub",
			ChallengeTTL:  5 * time.Minute,
			SweepInterval: 5 * time.Minute,
			SessionTTL:    7 * 24 * time.Hour,
		},
		Cookie: CookieConfig{
			Name:   "sparks_session",
			Secure: true,
		},
		Store: StoreConfig{
			Backend:     StoreMemory,
			RedisURL:    "redis://localhost:6379/0",
			RedisPrefix: "sparks:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. yamlPath and envFile are optional.
func Load(yamlPath, envFile string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		raw, err := os.ReadFile(yamlPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("failed to decode environment: %w", err)
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}
	if strings.TrimSpace(c.Auth.AppName) == "" {
		return errors.New("auth app name is required")
	}
	if c.Auth.ChallengeTTL <= 0 {
		return fmt.Errorf("challenge ttl must be positive, got %s", c.Auth.ChallengeTTL)
	}
	if c.Auth.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.Auth.SweepInterval)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.Auth.SessionTTL)
	}
	if c.Cookie.Name == "" {
		return errors.New("session cookie name is required")
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return errors.New("redis url is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
