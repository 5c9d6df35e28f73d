// Package service implements result ingestion: completed fixtures from the
// upstream provider are folded into the fixture store, the rolling team
// aggregates and the Elo ratings.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/matchcast/internal/cache"
	"github.com/yourusername/matchcast/internal/datasource"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/rating"
	"github.com/yourusername/matchcast/internal/repository"
)

// Namespaces for deterministic identifiers derived from provider IDs, so
// repeated ingestion of the same fixture or team maps to the same row.
var (
	fixtureNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("matchcast-fixture"))
	teamNamespace    = uuid.NewSHA1(uuid.NameSpaceOID, []byte("matchcast-team"))
)

// FixtureID derives the stable internal identifier for a provider fixture
func FixtureID(sourceID string) uuid.UUID {
	return uuid.NewSHA1(fixtureNamespace, []byte(sourceID))
}

// TeamID derives the stable internal identifier for a provider team
func TeamID(sourceID string) uuid.UUID {
	return uuid.NewSHA1(teamNamespace, []byte(sourceID))
}

// Ingestion pulls completed results and updates engine state
type Ingestion struct {
	provider      datasource.Provider
	fixtures      repository.FixtureRepository
	stats         repository.TeamStatsRepository
	ratings       *rating.Store
	cache         *cache.PredictionCache
	metrics       *metrics.Metrics
	homeAdvantage float64
	logger        *logrus.Logger
}

// NewIngestion creates the ingestion service
func NewIngestion(
	provider datasource.Provider,
	repos *repository.Repositories,
	ratings *rating.Store,
	predictionCache *cache.PredictionCache,
	m *metrics.Metrics,
	homeAdvantage float64,
	logger *logrus.Logger,
) *Ingestion {
	return &Ingestion{
		provider:      provider,
		fixtures:      repos.Fixture,
		stats:         repos.TeamStats,
		ratings:       ratings,
		cache:         predictionCache,
		metrics:       m,
		homeAdvantage: homeAdvantage,
		logger:        logger,
	}
}

// IngestResults fetches completed fixtures for a league in the window and
// folds them into stats and ratings. A failure on one fixture is logged and
// skipped; the batch continues.
func (s *Ingestion) IngestResults(ctx context.Context, league string, start, end time.Time) (int, error) {
	results, err := s.provider.FetchResults(ctx, league, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch results for %s: %w", league, err)
	}

	ingested := 0
	var ratingUpdates []rating.ResultUpdate

	for i := range results {
		fixture := fixtureFromData(&results[i], league)
		if fixture == nil || !fixture.IsCompleted() {
			continue
		}

		if err := s.ingestFixture(ctx, fixture); err != nil {
			s.logger.WithField("source_id", fixture.SourceID).
				Warnf("Skipping result: %v", err)
			continue
		}

		// Domestic league results drive the ratings; cup ties do not, so a
		// cup upset cannot distort league strength estimates
		if !fixture.IsCrossCompetition() {
			ratingUpdates = append(ratingUpdates, rating.ResultUpdate{
				HomeTeamID:    fixture.HomeTeamID,
				AwayTeamID:    fixture.AwayTeamID,
				League:        fixture.League,
				Outcome:       fixture.Result(),
				HomeAdvantage: s.homeAdvantage,
				PlayedAt:      fixture.KickoffAt,
			})
		}

		s.cache.InvalidateFixture(fixture.ID.String())
		s.metrics.ResultsIngested.Inc()
		ingested++
	}

	if err := s.ratings.ApplyResults(ctx, ratingUpdates); err != nil {
		return ingested, fmt.Errorf("failed to apply rating updates: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"league":   league,
		"ingested": ingested,
		"fetched":  len(results),
	}).Info("Ingested results")
	return ingested, nil
}

// ingestFixture stores the fixture row and updates both sides' aggregates
func (s *Ingestion) ingestFixture(ctx context.Context, fixture *models.Fixture) error {
	if err := s.fixtures.Upsert(ctx, fixture); err != nil {
		return fmt.Errorf("fixture upsert: %w", err)
	}

	homeGoals, awayGoals := *fixture.HomeGoals, *fixture.AwayGoals
	if err := s.updateTeamStats(ctx, fixture, fixture.HomeTeamID, fixture.HomeTeam, true, homeGoals, awayGoals); err != nil {
		return fmt.Errorf("home stats: %w", err)
	}
	if err := s.updateTeamStats(ctx, fixture, fixture.AwayTeamID, fixture.AwayTeam, false, awayGoals, homeGoals); err != nil {
		return fmt.Errorf("away stats: %w", err)
	}
	return nil
}

func (s *Ingestion) updateTeamStats(ctx context.Context, fixture *models.Fixture, teamID uuid.UUID, teamName string, home bool, scored, conceded int) error {
	stats, err := s.stats.Get(ctx, teamID, fixture.League, fixture.Season)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		stats = &models.TeamSeasonStats{
			TeamID:   teamID,
			TeamName: teamName,
			League:   fixture.League,
			Season:   fixture.Season,
		}
	}

	stats.ApplyMatch(scored, conceded, home)
	stats.UpdatedAt = time.Now().UTC()

	return s.stats.Upsert(ctx, stats)
}

// fixtureFromData converts a provider record into the internal model,
// returning nil when essentials are missing
func fixtureFromData(data *datasource.FixtureData, league string) *models.Fixture {
	if data.SourceID == "" || data.HomeTeamID == "" || data.AwayTeamID == "" {
		return nil
	}

	fixture := &models.Fixture{
		ID:         FixtureID(data.SourceID),
		SourceID:   data.SourceID,
		League:     league,
		Season:     data.Season,
		HomeTeamID: TeamID(data.HomeTeamID),
		AwayTeamID: TeamID(data.AwayTeamID),
		KickoffAt:  data.KickoffAt,
		Status:     models.FixtureStatusFinished,
		HomeGoals:  data.HomeGoals,
		AwayGoals:  data.AwayGoals,
		CreatedAt:  time.Now().UTC(),
	}
	if data.League != "" {
		fixture.League = data.League
	}
	if data.Competition != nil {
		fixture.Competition = *data.Competition
	}
	if data.HomeTeam != nil {
		fixture.HomeTeam = *data.HomeTeam
	}
	if data.AwayTeam != nil {
		fixture.AwayTeam = *data.AwayTeam
	}
	if data.Status != nil {
		fixture.Status = models.FixtureStatus(*data.Status)
	}
	return fixture
}
