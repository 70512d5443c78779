// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// SportConfig describes one sport's fixed inventory and pricing.
// Amounts are whole credits per hour per court.
type SportConfig struct {
	Courts      int   `yaml:"courts"`
	RatePerHour int64 `yaml:"rate_per_hour"`
}

type FacilityConfig struct {
	Timezone    string                 `yaml:"timezone"`
	OpeningHour int                    `yaml:"opening_hour"`
	ClosingHour int                    `yaml:"closing_hour"`
	Sports      map[string]SportConfig `yaml:"sports"`
}

type BookingConfig struct {
	// Advance-notice buffers, minutes.
	CreateBufferMinutes int `yaml:"create_buffer_minutes"`
	ModifyBufferMinutes int `yaml:"modify_buffer_minutes"`

	MaxModifications int `yaml:"max_modifications"`

	// TTLs for the pending-booking sweep, minutes. Zero disables a sweep.
	UnpaidTTLMinutes        int `yaml:"unpaid_ttl_minutes"`
	AwaitingProofTTLMinutes int `yaml:"awaiting_proof_ttl_minutes"`
}

type LedgerConfig struct {
	PointsPerHour int64 `yaml:"points_per_hour"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Facility FacilityConfig `yaml:"facility"`
	Booking  BookingConfig  `yaml:"booking"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the facility's stock configuration; a config file
// overrides individual fields on top of it.
func Default() *Config {
	cfg := &Config{}
	cfg.App.Name = "courtledger"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.Database.Driver = "sqlite"
	cfg.Database.Filename = "data/courtledger.db"
	cfg.Facility = FacilityConfig{
		Timezone:    "Asia/Bangkok",
		OpeningHour: 8,
		ClosingHour: 22,
		Sports: map[string]SportConfig{
			"badminton":  {Courts: 4, RatePerHour: 12},
			"pickleball": {Courts: 2, RatePerHour: 15},
		},
	}
	cfg.Booking = BookingConfig{
		CreateBufferMinutes:     30,
		ModifyBufferMinutes:     120,
		MaxModifications:        2,
		UnpaidTTLMinutes:        30,
		AwaitingProofTTLMinutes: 24 * 60,
	}
	cfg.Ledger = LedgerConfig{PointsPerHour: 10}
	return cfg
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Filename == "" {
		return fmt.Errorf("database filename is required for sqlite")
	}
	if c.Facility.Timezone == "" {
		return fmt.Errorf("facility timezone is required")
	}
	if c.Facility.OpeningHour < 0 || c.Facility.OpeningHour > 23 {
		return fmt.Errorf("facility opening hour out of range: %d", c.Facility.OpeningHour)
	}
	if c.Facility.ClosingHour <= c.Facility.OpeningHour || c.Facility.ClosingHour > 24 {
		return fmt.Errorf("facility closing hour out of range: %d", c.Facility.ClosingHour)
	}
	if len(c.Facility.Sports) == 0 {
		return fmt.Errorf("at least one sport is required")
	}
	for name, sport := range c.Facility.Sports {
		if sport.Courts <= 0 {
			return fmt.Errorf("sport %s: court count must be positive", name)
		}
		if sport.RatePerHour <= 0 {
			return fmt.Errorf("sport %s: rate per hour must be positive", name)
		}
	}
	if c.Booking.CreateBufferMinutes < 0 || c.Booking.ModifyBufferMinutes < 0 {
		return fmt.Errorf("booking buffers must not be negative")
	}
	if c.Booking.MaxModifications < 0 {
		return fmt.Errorf("max modifications must not be negative")
	}
	return nil
}
