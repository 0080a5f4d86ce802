// Package config loads server and CLI settings from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"spendwise/internal/streak"
)

// Config is the application configuration. Values are layered: built-in
// defaults, then the YAML file named by CONFIG_FILE, then the environment.
type Config struct {
	Port            string        `yaml:"port" env:"PORT"`
	DBPath          string        `yaml:"db_path" env:"DB_PATH"`
	AdminUser       string        `yaml:"admin_user" env:"ADMIN_USER"`
	AdminPassword   string        `yaml:"-" env:"ADMIN_PASSWORD"`
	SecureCookie    bool          `yaml:"secure_cookie" env:"SECURE_COOKIE"`
	SessionDuration time.Duration `yaml:"session_duration" env:"SESSION_DURATION"`
	Log             LogConfig     `yaml:"log"`
	Rewards         RewardsConfig `yaml:"rewards"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// RewardsConfig controls how long minted vouchers stay usable.
type RewardsConfig struct {
	WeeklyValidity  time.Duration `yaml:"weekly_validity" env:"WEEKLY_VOUCHER_VALIDITY"`
	MonthlyValidity time.Duration `yaml:"monthly_validity" env:"MONTHLY_VOUCHER_VALIDITY"`
}

// Policy converts the rewards settings for the streak service.
func (r RewardsConfig) Policy() streak.Policy {
	return streak.Policy{WeeklyValidity: r.WeeklyValidity, MonthlyValidity: r.MonthlyValidity}
}

// Default returns the built-in configuration.
func Default() *Config {
	policy := streak.DefaultPolicy()
	return &Config{
		Port:            "8080",
		DBPath:          "spendwise.db",
		SessionDuration: 30 * 24 * time.Hour,
		Log:             LogConfig{Level: "info", Format: "text"},
		Rewards: RewardsConfig{
			WeeklyValidity:  policy.WeeklyValidity,
			MonthlyValidity: policy.MonthlyValidity,
		},
	}
}

// Load builds the configuration. Named env files must exist; with none
// given, a .env in the working directory is read if present. Variables
// already set in the process environment are never overridden by env files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if c.SessionDuration <= 0 {
		errs = append(errs, errors.New("SESSION_DURATION must be positive"))
	}
	if c.Rewards.WeeklyValidity <= 0 || c.Rewards.MonthlyValidity <= 0 {
		errs = append(errs, errors.New("voucher validity must be positive"))
	}
	if (c.AdminUser == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_USER and ADMIN_PASSWORD must be set together"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
