// Package config provides configuration management for the Matchcast engine.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Provider  ProviderConfig  `mapstructure:"provider" validate:"required"`
	Engine    EngineConfig    `mapstructure:"engine" validate:"required"`
	Backtest  BacktestConfig  `mapstructure:"backtest" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache" validate:"required"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// ProviderConfig represents the upstream sports-data provider configuration
type ProviderConfig struct {
	BaseURL               string  `mapstructure:"base_url" validate:"required,url"`
	StreamURL             string  `mapstructure:"stream_url"`
	APIKey                string  `mapstructure:"api_key"`
	TimeoutSeconds        int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	FetchTimeoutSeconds   int     `mapstructure:"fetch_timeout_seconds" validate:"required,gt=0"`
	RetryAttempts         int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimitPerSecond    float64 `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	CircuitBreakerMax     int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
	TeamNewsStreamEnabled bool    `mapstructure:"team_news_stream_enabled"`
}

// EngineConfig holds the tuned constants of the prediction engine. These
// are hand-tuned rather than learned; they are configuration, not
// contracts, and every one can be overridden per environment.
type EngineConfig struct {
	// Elo parameters
	EloKFactor       float64 `mapstructure:"elo_k_factor" validate:"required,gt=0"`
	EloHomeAdvantage float64 `mapstructure:"elo_home_advantage" validate:"gte=0"`
	EloDrawBase      float64 `mapstructure:"elo_draw_base" validate:"required,probability"`
	EloDrawScale     float64 `mapstructure:"elo_draw_scale" validate:"required,gt=0"`

	// Bayesian blend exponents when market odds are available
	BayesPriorWeight      float64 `mapstructure:"bayes_prior_weight" validate:"gte=0,lte=1"`
	BayesLikelihoodWeight float64 `mapstructure:"bayes_likelihood_weight" validate:"gte=0,lte=1"`

	// Monte Carlo simulation
	MonteCarloIterations int   `mapstructure:"monte_carlo_iterations" validate:"required,gte=1000"`
	MonteCarloMaxGoals   int   `mapstructure:"monte_carlo_max_goals" validate:"required,gte=3"`
	MonteCarloSeed       int64 `mapstructure:"monte_carlo_seed"`

	// Form model logistic squash steepness
	FormSigmoidSteepness float64 `mapstructure:"form_sigmoid_steepness" validate:"required,gt=0"`

	// Cross-competition form reliability discount, in (0,1]
	CrossCompetitionDiscount float64 `mapstructure:"cross_competition_discount" validate:"required,gt=0,lte=1"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	LookbackDays         int     `mapstructure:"lookback_days" validate:"required,gt=0"`
	MinSamples           int     `mapstructure:"min_samples" validate:"required,gt=0"`
	CalibrationBucketW   float64 `mapstructure:"calibration_bucket_width" validate:"required,gt=0,lte=0.5"`
	CalibrationMinBucket int     `mapstructure:"calibration_min_bucket" validate:"required,gt=0"`
	WeightErrorFloor     float64 `mapstructure:"weight_error_floor" validate:"required,gt=0"`
	PreMatchOffsetHours  int     `mapstructure:"pre_match_offset_hours" validate:"required,gt=0"`
}

// CacheConfig represents prediction cache configuration
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds" validate:"required,gt=0"`
	MaxSize    int `mapstructure:"max_size" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig represents the weekly backtest schedule
type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	BacktestCron string `mapstructure:"backtest_cron" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
