// Package config loads server settings from .env, an optional YAML file and
// the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	devJWTSecret = "agricompass-dev-secret"
)

type Config struct {
	Port  string      `yaml:"port"`
	Store StoreConfig `yaml:"store"`
	Auth  AuthConfig  `yaml:"auth"`
	Log   LogConfig   `yaml:"log"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
}

type AuthConfig struct {
	JWTSecret  string  `yaml:"jwt_secret"`
	BcryptCost int     `yaml:"bcrypt_cost"`
	RateLimit  float64 `yaml:"rate_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Warnings are non-fatal findings collected by Load, reported by the caller
// once a logger exists.
type Warnings []string

func defaults() Config {
	return Config{
		Port: "8080",
		Store: StoreConfig{
			Driver: DriverPostgres,
			Host:   "localhost",
			Port:   "5432",
		},
		Auth: AuthConfig{
			BcryptCost: bcrypt.DefaultCost,
			RateLimit:  20,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path may be empty; CONFIG_FILE is used then.
func Load(path string) (Config, Warnings, error) {
	cfg := defaults()
	var warn Warnings

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, warn, fmt.Errorf("failed to read .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, warn, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, warn, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, warn, err
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.Store.Driver == DriverPostgres {
			return cfg, warn, errors.New("JWT_SECRET must be set when using the postgres store")
		}
		warn = append(warn, "JWT_SECRET not set; using an insecure development secret")
		cfg.Auth.JWTSecret = devJWTSecret
	}

	return cfg, warn, cfg.validate()
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Store.Host, "DB_HOST")
	setString(&cfg.Store.Port, "DB_PORT")
	setString(&cfg.Store.User, "DB_USER")
	setString(&cfg.Store.Password, "DB_PASSWORD")
	setString(&cfg.Store.Name, "DB_NAME")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BCRYPT_COST %q: %w", v, err)
		}
		cfg.Auth.BcryptCost = n
	}
	if v := os.Getenv("AUTH_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid AUTH_RATE_LIMIT %q: %w", v, err)
		}
		cfg.Auth.RateLimit = f
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.RateLimit <= 0 {
		return errors.New("auth rate limit must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// DSN returns the Postgres connection string.
func (s StoreConfig) DSN() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.User, s.Password),
		Host:   net.JoinHostPort(s.Host, s.Port),
		Path:   "/" + s.Name,
	}
	return u.String()
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }
