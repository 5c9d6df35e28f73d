// Command backtest triggers a backtest run or inspects accuracy rollups
// from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/matchcast/internal/backtest"
	"github.com/yourusername/matchcast/internal/cache"
	"github.com/yourusername/matchcast/internal/config"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/datasource"
	"github.com/yourusername/matchcast/internal/ensemble"
	"github.com/yourusername/matchcast/internal/features"
	"github.com/yourusername/matchcast/internal/logger"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/predictor"
	"github.com/yourusername/matchcast/internal/rating"
	"github.com/yourusername/matchcast/internal/repository"
)

var (
	configPath   string
	lookbackDays int
	dryRun       bool
	window       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run backtests and inspect prediction accuracy",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay completed fixtures and re-learn model weights",
		RunE:  runBacktest,
	}
	runCmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "Override the configured lookback window")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Score the window without committing weights or records")

	accuracyCmd := &cobra.Command{
		Use:   "accuracy",
		Short: "Show the stored accuracy rollup for a window",
		RunE:  showAccuracy,
	}
	accuracyCmd.Flags().StringVar(&window, "window", "30d", "Accuracy window: 7d, 30d or all")

	rootCmd.AddCommand(runCmd, accuracyCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := engine.Run(cmd.Context(), backtest.RunOptions{
		LookbackDays: lookbackDays,
		DryRun:       dryRun,
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	return printJSON(report)
}

func showAccuracy(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := engine.GetAccuracySummary(cmd.Context(), models.AccuracyWindow(window))
	if err != nil {
		return fmt.Errorf("no accuracy summary for window %s: %w", window, err)
	}
	return printJSON(summary)
}

// buildEngine wires the full prediction pipeline the backtest replays
// through. The returned cleanup closes the database and provider.
func buildEngine(ctx context.Context) (*backtest.Engine, func(), error) {
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.NewLogger(cfg.App.LogLevel)

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	ratingStore := rating.NewStore(repos.Elo, cfg.Engine.EloKFactor, log)
	if err := ratingStore.Load(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	weights, err := ensemble.LoadWeightHolder(ctx, repos.WeightConfig, predictor.AllModelIDs(), log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	provider := datasource.NewFootballAPIProvider(
		cfg.Provider.BaseURL, cfg.Provider.APIKey, datasource.DefaultHTTPClientConfig(), log)

	builder := features.NewBuilder(provider, features.NewHistoricalStats(repos.TeamStats, repos.Fixture),
		time.Duration(cfg.Provider.FetchTimeoutSeconds)*time.Second,
		cfg.Engine.CrossCompetitionDiscount, log)

	m := metrics.New()
	service := ensemble.NewService(
		builder, predictor.BuildAll(cfg.Engine, ratingStore), weights,
		cache.NewPredictionCache(time.Minute, cfg.Cache.MaxSize, log), m,
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second, log)

	engine := backtest.NewEngine(repos, service, weights, m, cfg.Backtest, log)
	cleanup := func() {
		provider.Close()
		db.Close()
	}
	return engine, cleanup, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
