// Package config loads and saves the grandlivre.yaml project configuration.
// Secrets never live in the YAML file; the LLM API key comes from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file at the ledger root.
const FileName = "grandlivre.yaml"

// EnvAPIKey names the environment variable holding the LLM API key.
const EnvAPIKey = "GRANDLIVRE_API_KEY"

// Config represents the top-level grandlivre.yaml configuration.
type Config struct {
	Business   BusinessConfig   `yaml:"business" validate:"required"`
	Fiscal     FiscalConfig     `yaml:"fiscal"`
	Bank       BankConfig       `yaml:"bank"`
	Payroll    PayrollConfig    `yaml:"payroll"`
	LLM        LLMConfig        `yaml:"llm"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name" validate:"required"`
	EntityType string `yaml:"entity_type"`
	NEQ        string `yaml:"neq,omitempty"`
}

// FiscalConfig defines the fiscal year boundary as "MM-DD", e.g. "12-31".
type FiscalConfig struct {
	YearEnd string `yaml:"year_end" validate:"omitempty,len=5"`
}

// BankConfig maps the statement feed to the chart of accounts.
type BankConfig struct {
	Account   string `yaml:"account"`
	CSVFormat string `yaml:"csv_format"`
}

// PayrollConfig sets the pay schedule.
type PayrollConfig struct {
	PeriodsPerYear int `yaml:"periods_per_year" validate:"omitempty,gt=0"`
}

// LLMConfig points the classifier at its endpoint. The API key is read from
// the environment, never from this file.
type LLMConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// ThresholdsConfig overrides the routing confidence cutoffs.
type ThresholdsConfig struct {
	Direct float64 `yaml:"direct" validate:"omitempty,gt=0,lte=1"`
	Review float64 `yaml:"review" validate:"omitempty,gt=0,lte=1"`
}

var validate = validator.New()

// Load reads and validates a grandlivre.yaml file. A .env file beside it is
// loaded into the environment when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new Québec
// incorporated business.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:       businessName,
			EntityType: "inc",
		},
		Fiscal: FiscalConfig{YearEnd: "12-31"},
		Bank: BankConfig{
			Account:   "Assets:Bank:Checking",
			CSVFormat: "desjardins",
		},
		Payroll: PayrollConfig{PeriodsPerYear: 26},
		LLM: LLMConfig{
			Endpoint: "https://api.anthropic.com",
			Model:    "claude-sonnet-4-5",
		},
	}
}

// APIKey returns the LLM API key from the environment, empty if unset.
func (c *Config) APIKey() string {
	return os.Getenv(EnvAPIKey)
}

// FiscalYearEnd resolves the configured year-end for a given year, falling
// back to December 31.
func (c *Config) FiscalYearEnd(year int) time.Time {
	end := c.Fiscal.YearEnd
	if end == "" {
		end = "12-31"
	}
	t, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%s", year, end))
	if err != nil {
		return time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return t
}
