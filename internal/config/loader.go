// Package config provides configuration management for the Matchcast engine.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("MATCHCAST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration, tolerating a missing file and
// filling every engine constant with its hand-tuned default.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("MATCHCAST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If file doesn't exist, continue with defaults and environment variables

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers the documented engine constants. Their numeric
// optimality is a tuning decision; correctness does not depend on them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "matchcast")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.fetch_timeout_seconds", 5)
	v.SetDefault("provider.retry_attempts", 3)
	v.SetDefault("provider.rate_limit_per_second", 10.0)
	v.SetDefault("provider.circuit_breaker_max", 5)

	v.SetDefault("engine.elo_k_factor", 32.0)
	v.SetDefault("engine.elo_home_advantage", 100.0)
	v.SetDefault("engine.elo_draw_base", 0.30)
	v.SetDefault("engine.elo_draw_scale", 400.0)
	v.SetDefault("engine.bayes_prior_weight", 0.6)
	v.SetDefault("engine.bayes_likelihood_weight", 0.4)
	v.SetDefault("engine.monte_carlo_iterations", 10000)
	v.SetDefault("engine.monte_carlo_max_goals", 9)
	v.SetDefault("engine.form_sigmoid_steepness", 4.0)
	v.SetDefault("engine.cross_competition_discount", 0.7)

	v.SetDefault("backtest.lookback_days", 7)
	v.SetDefault("backtest.min_samples", 30)
	v.SetDefault("backtest.calibration_bucket_width", 0.1)
	v.SetDefault("backtest.calibration_min_bucket", 10)
	v.SetDefault("backtest.weight_error_floor", 0.05)
	v.SetDefault("backtest.pre_match_offset_hours", 2)

	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("cache.max_size", 10000)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("scheduler.enabled", true)
	// Monday 03:00 UTC, after the weekend card has settled
	v.SetDefault("scheduler.backtest_cron", "0 3 * * 1")
}
