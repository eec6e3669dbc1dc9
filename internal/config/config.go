// Package config loads smcmc settings from the environment. Call
// godotenv.Load first to pick up a .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/SiddharthanilPathak/GSoC-2023/batchmeans"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
	"github.com/SiddharthanilPathak/GSoC-2023/kde"
	"github.com/SiddharthanilPathak/GSoC-2023/sci"
)

// Config holds every tunable of a diagnostics run.
type Config struct {
	Alpha        float64
	Epsilon      float64
	Quantiles    []float64
	IncludeMeans bool
	Draws        int
	Seed         int64
	BatchSize    int
	// BatchRule names the batch-size rule used when BatchSize is 0
	BatchRule string
	Workers   int
	Method    string
	// MaxLag for the autocorrelation table, negative to skip it
	MaxLag    int
	OutputDir string
	LogLevel  string
}

// Default returns the configuration used when no variables are set.
func Default() *Config {
	return &Config{
		Alpha:        0.05,
		Epsilon:      0.05,
		Quantiles:    []float64{0.1, 0.9},
		IncludeMeans: true,
		Draws:        sci.DefaultDraws,
		BatchRule:    "ar",
		Method:       sci.MonteCarlo.String(),
		MaxLag:       -1,
		OutputDir:    ".",
		LogLevel:     "info",
	}
}

// Load reads configuration from environment variables and validates it.
// Unset variables keep their defaults; malformed ones are an error.
func Load() (*Config, error) {
	cfg := Default()
	var err error

	if cfg.Alpha, err = getEnvFloatOrDefault("SMCMC_ALPHA", cfg.Alpha); err != nil {
		return nil, err
	}
	if cfg.Epsilon, err = getEnvFloatOrDefault("SMCMC_EPSILON", cfg.Epsilon); err != nil {
		return nil, err
	}
	if cfg.Quantiles, err = getEnvFloatsOrDefault("SMCMC_QUANTILES", cfg.Quantiles); err != nil {
		return nil, err
	}
	if cfg.IncludeMeans, err = getEnvBoolOrDefault("SMCMC_INCLUDE_MEANS", cfg.IncludeMeans); err != nil {
		return nil, err
	}
	if cfg.Draws, err = getEnvIntOrDefault("SMCMC_DRAWS", cfg.Draws); err != nil {
		return nil, err
	}
	seed, err := getEnvIntOrDefault("SMCMC_SEED", 0)
	if err != nil {
		return nil, err
	}
	cfg.Seed = int64(seed)
	if cfg.BatchSize, err = getEnvIntOrDefault("SMCMC_BATCH_SIZE", cfg.BatchSize); err != nil {
		return nil, err
	}
	cfg.BatchRule = getEnvOrDefault("SMCMC_BATCH_RULE", cfg.BatchRule)
	if cfg.Workers, err = getEnvIntOrDefault("SMCMC_WORKERS", cfg.Workers); err != nil {
		return nil, err
	}
	if cfg.MaxLag, err = getEnvIntOrDefault("SMCMC_MAX_LAG", cfg.MaxLag); err != nil {
		return nil, err
	}
	cfg.Method = getEnvOrDefault("SMCMC_METHOD", cfg.Method)
	cfg.OutputDir = getEnvOrDefault("SMCMC_OUTPUT_DIR", cfg.OutputDir)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, diagerr.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// Validate rejects values no diagnostic accepts.
func (c *Config) Validate() error {
	if !(c.Alpha > 0 && c.Alpha < 1) {
		return diagerr.New(diagerr.InvalidParameter, "alpha %v outside (0, 1)", c.Alpha)
	}
	if !(c.Epsilon > 0 && c.Epsilon < 1) {
		return diagerr.New(diagerr.InvalidParameter, "epsilon %v outside (0, 1)", c.Epsilon)
	}
	if err := kde.ValidateLevels(c.Quantiles); err != nil {
		return err
	}
	if len(c.Quantiles) == 0 && !c.IncludeMeans {
		return diagerr.New(diagerr.DimensionMismatch, "no quantile levels and means excluded")
	}
	if c.Draws < 0 {
		return diagerr.New(diagerr.InvalidParameter, "negative draw count %d", c.Draws)
	}
	if c.BatchSize < 0 {
		return diagerr.New(diagerr.InvalidParameter, "negative batch size %d", c.BatchSize)
	}
	if c.Workers < 0 {
		return diagerr.New(diagerr.InvalidParameter, "negative worker count %d", c.Workers)
	}
	if _, err := c.CalibrationMethod(); err != nil {
		return err
	}
	if _, err := c.BatchSizer(); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return diagerr.New(diagerr.InvalidParameter, "output directory is required")
	}
	return nil
}

// CalibrationMethod returns the parsed Method.
func (c *Config) CalibrationMethod() (sci.Method, error) {
	return sci.ParseMethod(c.Method)
}

// BatchSizer returns the batch-size rule named by BatchRule.
func (c *Config) BatchSizer() (batchmeans.Sizer, error) {
	return batchmeans.ParseRule(c.BatchRule)
}

// ParseQuantiles parses a comma separated list of levels, e.g. "0.1,0.5,0.9".
// An empty string is an empty list.
func ParseQuantiles(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []float64{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		q, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, diagerr.New(diagerr.InvalidParameter, "quantile level %q is not a number", part)
		}
		out = append(out, q)
	}
	return out, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, diagerr.New(diagerr.InvalidParameter, "%s=%q is not an integer", key, value)
	}
	return intValue, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, diagerr.New(diagerr.InvalidParameter, "%s=%q is not a number", key, value)
	}
	return floatValue, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false, diagerr.New(diagerr.InvalidParameter, "%s=%q is not a boolean", key, value)
	}
	return boolValue, nil
}

func getEnvFloatsOrDefault(key string, defaultValue []float64) ([]float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	qs, err := ParseQuantiles(value)
	if err != nil {
		return nil, diagerr.Wrapf(err, "%s", key)
	}
	return qs, nil
}
