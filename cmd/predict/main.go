// Command predict computes a one-off prediction for a fixture and prints it
// as JSON. Useful for spot checks without running the full service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/matchcast/internal/cache"
	"github.com/yourusername/matchcast/internal/config"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/datasource"
	"github.com/yourusername/matchcast/internal/ensemble"
	"github.com/yourusername/matchcast/internal/features"
	"github.com/yourusername/matchcast/internal/logger"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/predictor"
	"github.com/yourusername/matchcast/internal/rating"
	"github.com/yourusername/matchcast/internal/repository"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	fixtureID := flag.String("fixture", "", "Fixture UUID to predict")
	asOfFlag := flag.String("as-of", "", "Optional as-of time (RFC3339), defaults to now")
	flag.Parse()

	log := logger.NewLogger("warn")
	if *fixtureID == "" {
		log.Fatal("A fixture UUID is required (-fixture)")
	}
	id, err := uuid.Parse(*fixtureID)
	if err != nil {
		log.Fatalf("Invalid fixture UUID: %v", err)
	}

	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		asOf, err = time.Parse(time.RFC3339, *asOfFlag)
		if err != nil {
			log.Fatalf("Invalid as-of time: %v", err)
		}
	}

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}

	ratingStore := rating.NewStore(repos.Elo, cfg.Engine.EloKFactor, log)
	if err := ratingStore.Load(ctx); err != nil {
		log.Fatalf("Failed to load ratings: %v", err)
	}
	weights, err := ensemble.LoadWeightHolder(ctx, repos.WeightConfig, predictor.AllModelIDs(), log)
	if err != nil {
		log.Fatalf("Failed to load weight config: %v", err)
	}

	provider := datasource.NewFootballAPIProvider(
		cfg.Provider.BaseURL, cfg.Provider.APIKey, datasource.DefaultHTTPClientConfig(), log)
	defer provider.Close()

	builder := features.NewBuilder(provider, features.NewHistoricalStats(repos.TeamStats, repos.Fixture),
		time.Duration(cfg.Provider.FetchTimeoutSeconds)*time.Second,
		cfg.Engine.CrossCompetitionDiscount, log)

	service := ensemble.NewService(
		builder, predictor.BuildAll(cfg.Engine, ratingStore), weights,
		cache.NewPredictionCache(time.Minute, cfg.Cache.MaxSize, log), metrics.New(),
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second, log)

	fixture, err := repos.Fixture.GetByID(ctx, id)
	if err != nil {
		log.Fatalf("Fixture lookup failed: %v", err)
	}

	prediction, err := service.Compute(ctx, fixture, asOf)
	if err != nil {
		log.Fatalf("Prediction failed: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(prediction); err != nil {
		log.Fatalf("Failed to encode prediction: %v", err)
	}
}
