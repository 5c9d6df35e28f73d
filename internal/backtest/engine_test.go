package backtest

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
	"github.com/yourusername/matchcast/internal/config"
	"github.com/yourusername/matchcast/internal/datasource"
	"github.com/yourusername/matchcast/internal/ensemble"
	"github.com/yourusername/matchcast/internal/features"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/predictor"
	"github.com/yourusername/matchcast/internal/repository"
)

type offlineProvider struct{}

func (offlineProvider) Name() string { return "offline" }
func (offlineProvider) FetchFixture(ctx context.Context, fixtureID string) (*datasource.FixtureData, error) {
	return nil, errors.New("offline")
}
func (offlineProvider) FetchTeamStats(ctx context.Context, teamID, league, season string) (*datasource.TeamStatsData, error) {
	return nil, errors.New("offline")
}
func (offlineProvider) FetchHeadToHead(ctx context.Context, homeTeamID, awayTeamID string, limit int) ([]datasource.MeetingData, error) {
	return nil, errors.New("offline")
}
func (offlineProvider) FetchInjuries(ctx context.Context, teamID string) ([]datasource.InjuryData, error) {
	return nil, errors.New("offline")
}
func (offlineProvider) FetchResults(ctx context.Context, league string, start, end time.Time) ([]datasource.FixtureData, error) {
	return nil, errors.New("offline")
}

// memStatsSource records the snapshot time of every lookup so tests can
// assert the replay path asks for pre-match state
type memStatsSource struct {
	asOfs []time.Time
}

func (s *memStatsSource) StatsAt(ctx context.Context, teamID uuid.UUID, league, season string, asOf time.Time) (*models.TeamSeasonStats, error) {
	s.asOfs = append(s.asOfs, asOf)
	return nil, models.ErrNotFound
}

type memFixtureRepo struct {
	fixtures []*models.Fixture
}

func (r *memFixtureRepo) Upsert(ctx context.Context, fixture *models.Fixture) error { return nil }
func (r *memFixtureRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Fixture, error) {
	for _, f := range r.fixtures {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, models.ErrNotFound
}
func (r *memFixtureRepo) GetCompletedBetween(ctx context.Context, start, end time.Time) ([]*models.Fixture, error) {
	var out []*models.Fixture
	for _, f := range r.fixtures {
		if f.IsCompleted() && !f.KickoffAt.Before(start) && !f.KickoffAt.After(end) {
			out = append(out, f)
		}
	}
	return out, nil
}
func (r *memFixtureRepo) GetCompletedForTeam(ctx context.Context, teamID uuid.UUID, league, season string, before time.Time) ([]*models.Fixture, error) {
	var out []*models.Fixture
	for _, f := range r.fixtures {
		if !f.IsCompleted() || f.League != league || f.Season != season {
			continue
		}
		if f.HomeTeamID != teamID && f.AwayTeamID != teamID {
			continue
		}
		if f.KickoffAt.Before(before) {
			out = append(out, f)
		}
	}
	return out, nil
}

type memRecordRepo struct {
	records []*models.BacktestRecord
}

func (r *memRecordRepo) InsertBatch(ctx context.Context, records []*models.BacktestRecord) error {
	r.records = append(r.records, records...)
	return nil
}
func (r *memRecordRepo) GetSince(ctx context.Context, since time.Time) ([]*models.BacktestRecord, error) {
	var out []*models.BacktestRecord
	for _, record := range r.records {
		if !record.KickoffAt.Before(since) {
			out = append(out, record)
		}
	}
	return out, nil
}

type memWeightRepo struct {
	active  *models.ModelWeightConfig
	inserts int
}

func (r *memWeightRepo) GetActive(ctx context.Context) (*models.ModelWeightConfig, error) {
	if r.active == nil {
		return nil, models.ErrNotFound
	}
	return r.active, nil
}
func (r *memWeightRepo) InsertAndActivate(ctx context.Context, cfg *models.ModelWeightConfig) error {
	r.active = cfg
	r.inserts++
	return nil
}

type memSummaryRepo struct {
	summaries map[models.AccuracyWindow]*models.AccuracySummary
}

func (r *memSummaryRepo) Upsert(ctx context.Context, summary *models.AccuracySummary) error {
	if r.summaries == nil {
		r.summaries = make(map[models.AccuracyWindow]*models.AccuracySummary)
	}
	r.summaries[summary.Window] = summary
	return nil
}
func (r *memSummaryRepo) GetByWindow(ctx context.Context, window models.AccuracyWindow) (*models.AccuracySummary, error) {
	summary, ok := r.summaries[window]
	if !ok {
		return nil, models.ErrNotFound
	}
	return summary, nil
}

type fixedPredictor struct {
	name   string
	triple models.SubModelOutput
}

func (p *fixedPredictor) Name() string { return p.name }
func (p *fixedPredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	out := p.triple
	out.ModelID = p.name
	return out, nil
}

type testHarness struct {
	engine   *Engine
	weights  *ensemble.WeightHolder
	stats    *memStatsSource
	fixtures *memFixtureRepo
	records  *memRecordRepo
	configs  *memWeightRepo
	rollups  *memSummaryRepo
}

func newHarness(t *testing.T, fixtures []*models.Fixture, minSamples int) *testHarness {
	t.Helper()
	predictors := []predictor.Predictor{
		// "sharp" backs the home side, "dull" backs the away side
		&fixedPredictor{name: "sharp", triple: models.SubModelOutput{HomeProb: 0.8, DrawProb: 0.12, AwayProb: 0.08}},
		&fixedPredictor{name: "dull", triple: models.SubModelOutput{HomeProb: 0.15, DrawProb: 0.15, AwayProb: 0.7}},
	}
	return newHarnessWith(t, fixtures, minSamples, predictors, []string{"sharp", "dull"})
}

func newHarnessWith(t *testing.T, fixtures []*models.Fixture, minSamples int, predictors []predictor.Predictor, modelIDs []string) *testHarness {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	weights := ensemble.NewWeightHolder(models.DefaultWeightConfig(modelIDs))
	stats := &memStatsSource{}
	builder := features.NewBuilder(offlineProvider{}, stats, 50*time.Millisecond, 0.7, logger)
	service := ensemble.NewService(builder, predictors, weights,
		cache.NewPredictionCache(time.Minute, 0, logger), metrics.New(), 5*time.Second, logger)

	h := &testHarness{
		weights:  weights,
		stats:    stats,
		fixtures: &memFixtureRepo{fixtures: fixtures},
		records:  &memRecordRepo{},
		configs:  &memWeightRepo{},
		rollups:  &memSummaryRepo{},
	}

	repos := &repositorySet{
		fixtures:  h.fixtures,
		records:   h.records,
		weights:   h.configs,
		summaries: h.rollups,
	}

	h.engine = NewEngine(repos.toRepositories(), service, weights, metrics.New(), config.BacktestConfig{
		LookbackDays:         30,
		MinSamples:           minSamples,
		CalibrationBucketW:   0.1,
		CalibrationMinBucket: 5,
		WeightErrorFloor:     0.05,
		PreMatchOffsetHours:  24,
	}, logger)
	return h
}

func completedHomeWins(n int) []*models.Fixture {
	fixtures := make([]*models.Fixture, 0, n)
	for i := 0; i < n; i++ {
		home, away := 2, 0
		fixtures = append(fixtures, &models.Fixture{
			ID:         uuid.New(),
			League:     "premier_league",
			Season:     "2025-26",
			HomeTeamID: uuid.New(),
			AwayTeamID: uuid.New(),
			HomeTeam:   "Home",
			AwayTeam:   "Away",
			KickoffAt:  time.Now().UTC().AddDate(0, 0, -(i%20 + 1)),
			Status:     models.FixtureStatusFinished,
			HomeGoals:  &home,
			AwayGoals:  &away,
		})
	}
	return fixtures
}

func TestRunCommitsRecordsAndLearnedWeights(t *testing.T) {
	h := newHarness(t, completedHomeWins(12), 10)

	report, err := h.engine.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 12, report.Samples)
	assert.True(t, report.WeightsUpdated)
	assert.Equal(t, 1, report.NewVersion)
	assert.Len(t, h.records.records, 12)
	require.NotNil(t, h.configs.active)

	// Weight invariants: non-negative, sum to one
	total := 0.0
	for _, w := range h.configs.active.Weights {
		assert.GreaterOrEqual(t, w, 0.0)
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-6)

	// Every fixture was a home win; the home-backing model must earn the
	// larger weight
	assert.Greater(t, h.configs.active.Weights["sharp"], h.configs.active.Weights["dull"])

	// The holder serves the new config immediately
	assert.Equal(t, 1, h.weights.Current().Version)
}

func TestRunKeepsWeightsUnderSampleThreshold(t *testing.T) {
	h := newHarness(t, completedHomeWins(4), 10)

	report, err := h.engine.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Samples)
	assert.False(t, report.WeightsUpdated)
	assert.Nil(t, h.configs.active)
	// Records are still appended for future windows
	assert.Len(t, h.records.records, 4)
	assert.Equal(t, 0, h.weights.Current().Version)
}

func TestRunDryRunCommitsNothing(t *testing.T) {
	h := newHarness(t, completedHomeWins(12), 10)

	report, err := h.engine.Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 12, report.Samples)
	assert.False(t, report.WeightsUpdated)
	assert.NotEmpty(t, report.NewWeights)
	assert.Empty(t, h.records.records)
	assert.Nil(t, h.configs.active)
	assert.Equal(t, 0, h.weights.Current().Version)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	h := newHarness(t, completedHomeWins(3), 10)

	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()

	_, err := h.engine.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, models.ErrBacktestInProgress)
}

func TestRunRecordsAreScored(t *testing.T) {
	h := newHarness(t, completedHomeWins(12), 10)

	report, err := h.engine.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	// Uniform weights over (0.8,0.12,0.08) and (0.15,0.15,0.7) favour home
	assert.Equal(t, 12, report.Correct)
	assert.InDelta(t, 1.0, report.Accuracy, 1e-9)
	for _, record := range h.records.records {
		assert.Equal(t, models.OutcomeHomeWin, record.PredictedOutcome)
		assert.Equal(t, models.OutcomeHomeWin, record.ActualOutcome)
		assert.True(t, record.Correct)
		assert.GreaterOrEqual(t, record.EnsembleBrier, 0.0)
		assert.NotEmpty(t, record.ModelBrier)
		assert.NotEmpty(t, record.PredictionSnapshot)
	}
	assert.Less(t, report.ModelBrier["sharp"], report.ModelBrier["dull"])
}

// outagePredictor mirrors a fixed triple but errors on every second fixture
type outagePredictor struct {
	name   string
	triple models.SubModelOutput
	calls  int
}

func (p *outagePredictor) Name() string { return p.name }
func (p *outagePredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	p.calls++
	if p.calls%2 == 0 {
		return models.SubModelOutput{}, errors.New("feed outage")
	}
	out := p.triple
	out.ModelID = p.name
	return out, nil
}

func TestReplayReadsStateBeforeKickoff(t *testing.T) {
	fixtures := completedHomeWins(1)
	h := newHarness(t, fixtures, 100)

	_, err := h.engine.Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)

	// Both sides were looked up, each as of the pre-match offset
	wantAsOf := fixtures[0].KickoffAt.Add(-24 * time.Hour)
	require.Len(t, h.stats.asOfs, 2)
	for _, asOf := range h.stats.asOfs {
		assert.True(t, asOf.Equal(wantAsOf))
		assert.True(t, asOf.Before(fixtures[0].KickoffAt))
	}
}

func TestModelBrierAveragedOverOwnSamples(t *testing.T) {
	triple := models.SubModelOutput{HomeProb: 0.8, DrawProb: 0.12, AwayProb: 0.08}
	predictors := []predictor.Predictor{
		&fixedPredictor{name: "steady", triple: triple},
		&outagePredictor{name: "spotty", triple: triple},
	}
	h := newHarnessWith(t, completedHomeWins(12), 10, predictors, []string{"steady", "spotty"})

	report, err := h.engine.Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 12, report.Samples)

	// Identical triples must earn identical mean errors even though one
	// model only scored half the window
	assert.InDelta(t, report.ModelBrier["steady"], report.ModelBrier["spotty"], 1e-9)
	assert.InDelta(t, report.NewWeights["steady"], report.NewWeights["spotty"], 1e-9)
}

func TestUpdateAccuracySummaries(t *testing.T) {
	h := newHarness(t, completedHomeWins(12), 10)

	_, err := h.engine.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	for _, window := range []models.AccuracyWindow{
		models.AccuracyWindow7Day, models.AccuracyWindow30Day, models.AccuracyWindowAll,
	} {
		summary, err := h.engine.GetAccuracySummary(context.Background(), window)
		require.NoError(t, err, window)
		assert.Positive(t, summary.Samples, window)
		assert.InDelta(t, 1.0, summary.OutcomeAccuracy, 1e-9)
		assert.NotEmpty(t, summary.ModelBrier)
	}
}

// repositorySet adapts the in-memory fakes to the container the engine
// constructor takes
type repositorySet struct {
	fixtures  *memFixtureRepo
	records   *memRecordRepo
	weights   *memWeightRepo
	summaries *memSummaryRepo
}

func (s *repositorySet) toRepositories() *repository.Repositories {
	return &repository.Repositories{
		Fixture:         s.fixtures,
		BacktestRecord:  s.records,
		WeightConfig:    s.weights,
		AccuracySummary: s.summaries,
	}
}
