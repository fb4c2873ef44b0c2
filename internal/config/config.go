package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds paths and constants shared by every exercise
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DataDir    string `envconfig:"DATA_DIR" default:"excel-data"`
	ResultsDir string `envconfig:"RESULTS_DIR" default:"results"`
	CleanedDir string `envconfig:"CLEANED_DIR" default:"cleaned"`

	// Optional explicit inputs; empty means auto-detect in <DATA_DIR>/<exercise>/raw
	AdoptionInput    string `envconfig:"ADOPTION_INPUT"`
	DevelopmentInput string `envconfig:"DEVELOPMENT_INPUT"`
	IncomeInput      string `envconfig:"INCOME_INPUT"`
	PolygonInput     string `envconfig:"POLYGON_INPUT"`
	QuotaInput       string `envconfig:"QUOTA_INPUT"`

	// Embedded so their keys are read without a prefix
	IncomeConfig
	GeoConfig
	ChartConfig

	Workers int `envconfig:"WORKERS" default:"2"`
}

// IncomeConfig carries the living-income constants (CFA)
type IncomeConfig struct {
	Benchmark    float64 `envconfig:"LIVING_INCOME_BENCHMARK" default:"2500000"`
	PricePerKg   float64 `envconfig:"COCOA_PRICE_PER_KG" default:"1000"`
	PremiumPerKg float64 `envconfig:"PREMIUM_PER_KG" default:"40"`
	RevenueShare float64 `envconfig:"COCOA_REVENUE_SHARE" default:"0.72"`
	DemoFarmers  int     `envconfig:"DEMO_FARMERS" default:"200"`
	DemoSeed     uint64  `envconfig:"DEMO_SEED" default:"42"`
}

type GeoConfig struct {
	OverlapCleanThreshold float64 `envconfig:"OVERLAP_CLEAN_THRESHOLD" default:"50"`
	ForestLayer           string  `envconfig:"FOREST_LAYER"`
}

type ChartConfig struct {
	DPI int `envconfig:"CHART_DPI" default:"150"`
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	_ = godotenv.Load() // loads .env

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.IncomeConfig.Benchmark <= 0 {
		return errors.New("LIVING_INCOME_BENCHMARK must be positive")
	}
	if c.IncomeConfig.RevenueShare <= 0 || c.IncomeConfig.RevenueShare > 1 {
		return errors.New("COCOA_REVENUE_SHARE must be in (0,1]")
	}
	if c.GeoConfig.OverlapCleanThreshold <= 0 || c.GeoConfig.OverlapCleanThreshold > 100 {
		return errors.New("OVERLAP_CLEAN_THRESHOLD must be in (0,100]")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.ChartConfig.DPI <= 0 {
		c.ChartConfig.DPI = 150
	}
	return nil
}

// RawDir is where an exercise looks for its input spreadsheet
func (c *Config) RawDir(exercise string) string {
	return filepath.Join(c.DataDir, exercise, "raw")
}

// ResultsPath joins the results directory for an exercise
func (c *Config) ResultsPath(exercise string, parts ...string) string {
	return filepath.Join(append([]string{c.ResultsDir, exercise}, parts...)...)
}

func (c *Config) CleanedPath(exercise string, parts ...string) string {
	return filepath.Join(append([]string{c.CleanedDir, exercise}, parts...)...)
}
