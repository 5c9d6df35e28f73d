// Command server runs the prediction engine as a long-lived service: the
// HTTP API, the metrics endpoint, the team-news stream and the weekly
// backtest schedule.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourusername/matchcast/internal/backtest"
	"github.com/yourusername/matchcast/internal/cache"
	"github.com/yourusername/matchcast/internal/config"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/datasource"
	"github.com/yourusername/matchcast/internal/ensemble"
	"github.com/yourusername/matchcast/internal/features"
	"github.com/yourusername/matchcast/internal/health"
	"github.com/yourusername/matchcast/internal/logger"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/predictor"
	"github.com/yourusername/matchcast/internal/rating"
	"github.com/yourusername/matchcast/internal/repository"
	"github.com/yourusername/matchcast/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	awsSecret := flag.String("aws-secret", "", "AWS Secrets Manager secret name for credential overlay")
	awsRegion := flag.String("aws-region", "eu-west-2", "AWS region for Secrets Manager")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.NewLogger("info").Fatalf("Failed to load configuration: %v", err)
	}
	if *awsSecret != "" {
		if err := config.LoadSecretsFromAWS(cfg, *awsRegion, *awsSecret); err != nil {
			logger.NewLogger(cfg.App.LogLevel).Fatalf("Failed to load secrets: %v", err)
		}
	}

	log := logger.NewLogger(cfg.App.LogLevel)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}

	m := metrics.New()

	ratingStore := rating.NewStore(repos.Elo, cfg.Engine.EloKFactor, log)
	if err := ratingStore.Load(ctx); err != nil {
		log.Fatalf("Failed to load ratings: %v", err)
	}

	weights, err := ensemble.LoadWeightHolder(ctx, repos.WeightConfig, predictor.AllModelIDs(), log)
	if err != nil {
		log.Fatalf("Failed to load weight config: %v", err)
	}
	m.ActiveWeightVersion.Set(float64(weights.Current().Version))

	provider := datasource.NewFootballAPIProvider(
		cfg.Provider.BaseURL, cfg.Provider.APIKey,
		datasource.HTTPClientConfig{
			Timeout:           time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
			MaxRetries:        cfg.Provider.RetryAttempts,
			RetryWaitMin:      100 * time.Millisecond,
			RetryWaitMax:      10 * time.Second,
			RateLimit:         cfg.Provider.RateLimitPerSecond,
			CircuitBreakerMax: cfg.Provider.CircuitBreakerMax,
		}, log)
	defer provider.Close()

	builder := features.NewBuilder(provider, features.NewHistoricalStats(repos.TeamStats, repos.Fixture),
		time.Duration(cfg.Provider.FetchTimeoutSeconds)*time.Second,
		cfg.Engine.CrossCompetitionDiscount, log)
	predictionCache := cache.NewPredictionCache(
		time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.MaxSize, log)

	predictionService := ensemble.NewService(
		builder, predictor.BuildAll(cfg.Engine, ratingStore), weights,
		predictionCache, m,
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second, log)

	backtestEngine := backtest.NewEngine(repos, predictionService, weights, m, cfg.Backtest, log)

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(backtestEngine, log)
		if err := sched.Start(cfg.Scheduler.BacktestCron); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	}

	if cfg.Provider.TeamNewsStreamEnabled && cfg.Provider.StreamURL != "" {
		stream := datasource.NewTeamNewsStream(
			datasource.DefaultStreamConfig(cfg.Provider.StreamURL, cfg.Provider.APIKey),
			predictionCache, log)
		if err := stream.Start(ctx); err != nil {
			log.Fatalf("Failed to start team news stream: %v", err)
		}
		defer stream.Stop()
	}

	server := health.NewServer(cfg.Metrics.Port, cfg.Metrics.Path,
		db, repos.Fixture, predictionService, backtestEngine, m, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server failed: %v", err)
			stop()
		}
	}()

	log.WithField("environment", cfg.App.Environment).Info("Matchcast engine started")
	<-ctx.Done()

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP shutdown failed: %v", err)
	}
}
