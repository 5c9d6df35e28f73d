package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/matchcast/internal/cache"
	"github.com/yourusername/matchcast/internal/datasource"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/rating"
	"github.com/yourusername/matchcast/internal/repository"
)

type resultsProvider struct {
	results []datasource.FixtureData
	err     error
}

func (p *resultsProvider) Name() string { return "results" }
func (p *resultsProvider) FetchFixture(ctx context.Context, fixtureID string) (*datasource.FixtureData, error) {
	return nil, datasource.ErrNotFound
}
func (p *resultsProvider) FetchTeamStats(ctx context.Context, teamID, league, season string) (*datasource.TeamStatsData, error) {
	return nil, datasource.ErrNotFound
}
func (p *resultsProvider) FetchHeadToHead(ctx context.Context, homeTeamID, awayTeamID string, limit int) ([]datasource.MeetingData, error) {
	return nil, nil
}
func (p *resultsProvider) FetchInjuries(ctx context.Context, teamID string) ([]datasource.InjuryData, error) {
	return nil, nil
}
func (p *resultsProvider) FetchResults(ctx context.Context, league string, start, end time.Time) ([]datasource.FixtureData, error) {
	return p.results, p.err
}

type storeFixtureRepo struct {
	rows map[uuid.UUID]*models.Fixture
}

func (r *storeFixtureRepo) Upsert(ctx context.Context, fixture *models.Fixture) error {
	r.rows[fixture.ID] = fixture
	return nil
}
func (r *storeFixtureRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Fixture, error) {
	fixture, ok := r.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return fixture, nil
}
func (r *storeFixtureRepo) GetCompletedBetween(ctx context.Context, start, end time.Time) ([]*models.Fixture, error) {
	return nil, nil
}
func (r *storeFixtureRepo) GetCompletedForTeam(ctx context.Context, teamID uuid.UUID, league, season string, before time.Time) ([]*models.Fixture, error) {
	return nil, nil
}

type storeStatsRepo struct {
	rows map[uuid.UUID]*models.TeamSeasonStats
}

func (r *storeStatsRepo) Upsert(ctx context.Context, stats *models.TeamSeasonStats) error {
	r.rows[stats.TeamID] = stats
	return nil
}
func (r *storeStatsRepo) Get(ctx context.Context, teamID uuid.UUID, league, season string) (*models.TeamSeasonStats, error) {
	stats, ok := r.rows[teamID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return stats, nil
}

type noopEloRepo struct{}

func (noopEloRepo) GetAll(ctx context.Context) ([]*models.EloRating, error) { return nil, nil }
func (noopEloRepo) UpsertBatch(ctx context.Context, ratings []*models.EloRating) error {
	return nil
}
func (noopEloRepo) AppendHistory(ctx context.Context, entries []*models.EloHistoryEntry) error {
	return nil
}
func (noopEloRepo) GetHistory(ctx context.Context) ([]*models.EloHistoryEntry, error) {
	return nil, nil
}

type ingestHarness struct {
	ingestion *Ingestion
	fixtures  *storeFixtureRepo
	stats     *storeStatsRepo
	ratings   *rating.Store
	cache     *cache.PredictionCache
}

func newIngestHarness(t *testing.T, provider datasource.Provider) *ingestHarness {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &ingestHarness{
		fixtures: &storeFixtureRepo{rows: make(map[uuid.UUID]*models.Fixture)},
		stats:    &storeStatsRepo{rows: make(map[uuid.UUID]*models.TeamSeasonStats)},
		ratings:  rating.NewStore(noopEloRepo{}, 32, logger),
		cache:    cache.NewPredictionCache(time.Minute, 0, logger),
	}
	repos := &repository.Repositories{
		Fixture:   h.fixtures,
		TeamStats: h.stats,
	}
	h.ingestion = NewIngestion(provider, repos, h.ratings, h.cache, metrics.New(), 100, logger)
	return h
}

func resultData(sourceID, homeTeam, awayTeam string, homeGoals, awayGoals int) datasource.FixtureData {
	home, away := homeGoals, awayGoals
	homeName, awayName := homeTeam, awayTeam
	status := string(models.FixtureStatusFinished)
	return datasource.FixtureData{
		SourceID:   sourceID,
		League:     "premier_league",
		Season:     "2025-26",
		HomeTeamID: homeTeam,
		AwayTeamID: awayTeam,
		HomeTeam:   &homeName,
		AwayTeam:   &awayName,
		KickoffAt:  time.Now().UTC().Add(-24 * time.Hour),
		Status:     &status,
		HomeGoals:  &home,
		AwayGoals:  &away,
	}
}

func TestIngestResultsUpdatesStatsAndRatings(t *testing.T) {
	provider := &resultsProvider{results: []datasource.FixtureData{
		resultData("m1", "arsenal", "chelsea", 3, 1),
		resultData("m2", "chelsea", "arsenal", 2, 2),
	}}
	h := newIngestHarness(t, provider)

	ingested, err := h.ingestion.IngestResults(context.Background(),
		"premier_league", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, ingested)
	assert.Len(t, h.fixtures.rows, 2)

	arsenal := h.stats.rows[TeamID("arsenal")]
	require.NotNil(t, arsenal)
	assert.Equal(t, 2, arsenal.Played)
	assert.Equal(t, 1, arsenal.Wins)
	assert.Equal(t, 1, arsenal.Draws)
	assert.Equal(t, 4, arsenal.Points)
	assert.Equal(t, 5, arsenal.GoalsFor)
	assert.Equal(t, 3, arsenal.GoalsAgainst)
	assert.Equal(t, "WD", arsenal.Last5Results)
	assert.Equal(t, 1, arsenal.HomePlayed)
	assert.Equal(t, 1, arsenal.AwayPlayed)

	chelsea := h.stats.rows[TeamID("chelsea")]
	require.NotNil(t, chelsea)
	assert.Equal(t, "LD", chelsea.Last5Results)
	assert.Equal(t, 1, chelsea.Points)

	// Arsenal won the first meeting; ratings must separate the sides
	arsenalRating, ok := h.ratings.Rating(TeamID("arsenal"))
	require.True(t, ok)
	chelseaRating, _ := h.ratings.Rating(TeamID("chelsea"))
	assert.Greater(t, arsenalRating, chelseaRating)
}

func TestIngestResultsSkipsCupTiesForRatings(t *testing.T) {
	cup := "fa_cup"
	data := resultData("cup1", "arsenal", "chelsea", 1, 0)
	data.Competition = &cup
	h := newIngestHarness(t, &resultsProvider{results: []datasource.FixtureData{data}})

	ingested, err := h.ingestion.IngestResults(context.Background(),
		"premier_league", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, ingested)

	// Stats update, ratings do not
	assert.NotNil(t, h.stats.rows[TeamID("arsenal")])
	_, ok := h.ratings.Rating(TeamID("arsenal"))
	assert.False(t, ok)
}

func TestIngestResultsSkipsMalformedRecords(t *testing.T) {
	bad := resultData("", "arsenal", "chelsea", 1, 0)
	good := resultData("m1", "leeds", "derby", 2, 1)
	h := newIngestHarness(t, &resultsProvider{results: []datasource.FixtureData{bad, good}})

	ingested, err := h.ingestion.IngestResults(context.Background(),
		"premier_league", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, ingested)
}

func TestIngestResultsProviderFailure(t *testing.T) {
	h := newIngestHarness(t, &resultsProvider{err: errors.New("upstream down")})

	_, err := h.ingestion.IngestResults(context.Background(),
		"premier_league", time.Now().AddDate(0, 0, -7), time.Now())
	assert.Error(t, err)
}

func TestIngestResultsInvalidatesCachedPredictions(t *testing.T) {
	data := resultData("m9", "leeds", "derby", 2, 0)
	h := newIngestHarness(t, &resultsProvider{results: []datasource.FixtureData{data}})

	fixtureID := FixtureID("m9")
	key := cache.Key(fixtureID.String(), "2025-26", time.Now())
	_, err := h.cache.GetOrCompute(key, func() (*models.EnsemblePrediction, error) {
		return &models.EnsemblePrediction{FixtureID: fixtureID}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, h.cache.Len())

	_, err = h.ingestion.IngestResults(context.Background(),
		"premier_league", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Zero(t, h.cache.Len())
}

func TestDeterministicIdentifiers(t *testing.T) {
	assert.Equal(t, FixtureID("abc"), FixtureID("abc"))
	assert.NotEqual(t, FixtureID("abc"), FixtureID("abd"))
	assert.NotEqual(t, FixtureID("abc"), TeamID("abc"))
}
