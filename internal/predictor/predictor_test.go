package predictor

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/rating"
)

type staticEloRepo struct {
	ratings []*models.EloRating
}

func (r *staticEloRepo) GetAll(ctx context.Context) ([]*models.EloRating, error) {
	return r.ratings, nil
}

func (r *staticEloRepo) UpsertBatch(ctx context.Context, ratings []*models.EloRating) error {
	return nil
}

func (r *staticEloRepo) AppendHistory(ctx context.Context, entries []*models.EloHistoryEntry) error {
	return nil
}

func (r *staticEloRepo) GetHistory(ctx context.Context) ([]*models.EloHistoryEntry, error) {
	return nil, nil
}

func ratingStore(t *testing.T, ratings map[uuid.UUID]float64) *rating.Store {
	t.Helper()
	repo := &staticEloRepo{}
	for teamID, value := range ratings {
		repo.ratings = append(repo.ratings, &models.EloRating{TeamID: teamID, Rating: value})
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := rating.NewStore(repo, 32, logger)
	require.NoError(t, store.Load(context.Background()))
	return store
}

func neutralVector() *models.FeatureVector {
	home := models.NeutralTeamFeatures(uuid.New(), "Home")
	away := models.NeutralTeamFeatures(uuid.New(), "Away")
	return &models.FeatureVector{
		FixtureID:          uuid.New(),
		League:             "premier_league",
		Season:             "2025-26",
		AsOf:               time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC),
		KickoffAt:          time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
		Home:               home,
		Away:               away,
		LeagueSize:         20,
		LeagueHomeGoalsAvg: models.DefaultHomeGoalsAvg,
		LeagueAwayGoalsAvg: models.DefaultAwayGoalsAvg,
		H2HHomeRate:        models.DefaultH2HRate,
		H2HDrawRate:        models.DefaultH2HRate,
		H2HAwayRate:        models.DefaultH2HRate,
		FormReliability:    1.0,
	}
}

func assertTriple(t *testing.T, out models.SubModelOutput) {
	t.Helper()
	require.NoError(t, out.Validate())
	assert.InDelta(t, 1.0, out.HomeProb+out.DrawProb+out.AwayProb, 1e-9)
}

func TestAllModelsEmitValidTriples(t *testing.T) {
	fv := neutralVector()
	store := ratingStore(t, map[uuid.UUID]float64{
		fv.Home.TeamID: 1600,
		fv.Away.TeamID: 1450,
	})

	predictors := []Predictor{
		NewEloPredictor(store, 100, 0.30, 400),
		NewFormPredictor(4.0),
		NewBayesianPredictor(0.6, 0.4),
		NewMonteCarloPredictor(5000, 9, 0),
		NewTrendPredictor(4.0),
		NewContextPredictor(4.0),
		NewSequencePredictor(4.0),
	}

	for _, p := range predictors {
		out, err := p.Predict(context.Background(), fv)
		require.NoError(t, err, p.Name())
		assert.Equal(t, p.Name(), out.ModelID)
		assertTriple(t, out)
	}
}

func TestEloStrongHomeFavourite(t *testing.T) {
	fv := neutralVector()
	store := ratingStore(t, map[uuid.UUID]float64{
		fv.Home.TeamID: 1800,
		fv.Away.TeamID: 1500,
	})
	p := NewEloPredictor(store, 100, 0.30, 400)

	out, err := p.Predict(context.Background(), fv)
	require.NoError(t, err)
	assertTriple(t, out)

	// Rating gap 400 including home advantage: expectation ~0.909
	assert.Greater(t, out.HomeProb, 0.5)
	assert.Greater(t, out.HomeProb, out.DrawProb)
	assert.Greater(t, out.HomeProb, out.AwayProb)
	assert.Less(t, out.AwayProb, 0.15)
}

func TestEloHomeProbMonotonicInRatingGap(t *testing.T) {
	fv := neutralVector()
	previous := -1.0
	for _, homeRating := range []float64{1400, 1500, 1600, 1700, 1800} {
		store := ratingStore(t, map[uuid.UUID]float64{
			fv.Home.TeamID: homeRating,
			fv.Away.TeamID: 1500,
		})
		out, err := NewEloPredictor(store, 100, 0.30, 400).Predict(context.Background(), fv)
		require.NoError(t, err)
		assert.Greater(t, out.HomeProb, previous)
		previous = out.HomeProb
	}
}

func TestEloEqualRatingsFavourHomeOnAdvantage(t *testing.T) {
	fv := neutralVector()
	store := ratingStore(t, map[uuid.UUID]float64{
		fv.Home.TeamID: 1500,
		fv.Away.TeamID: 1500,
	})
	out, err := NewEloPredictor(store, 100, 0.30, 400).Predict(context.Background(), fv)
	require.NoError(t, err)
	assert.Greater(t, out.HomeProb, out.AwayProb)
}

func TestEloDrawShrinksWithMismatch(t *testing.T) {
	fv := neutralVector()
	even := ratingStore(t, map[uuid.UUID]float64{fv.Home.TeamID: 1500, fv.Away.TeamID: 1500})
	lopsided := ratingStore(t, map[uuid.UUID]float64{fv.Home.TeamID: 1900, fv.Away.TeamID: 1400})

	evenOut, err := NewEloPredictor(even, 0, 0.30, 400).Predict(context.Background(), fv)
	require.NoError(t, err)
	lopsidedOut, err := NewEloPredictor(lopsided, 0, 0.30, 400).Predict(context.Background(), fv)
	require.NoError(t, err)

	assert.Greater(t, evenOut.DrawProb, lopsidedOut.DrawProb)
}

func TestFormBetterSideFavoured(t *testing.T) {
	fv := neutralVector()
	fv.Home.FormLast5 = 0.9
	fv.Home.FormLast10 = 0.85
	fv.Home.AttackStrength = 1.4
	fv.Home.LeaguePosition = 2
	fv.Away.FormLast5 = 0.2
	fv.Away.FormLast10 = 0.25
	fv.Away.DefenseWeakness = 1.3
	fv.Away.LeaguePosition = 18

	out, err := NewFormPredictor(4.0).Predict(context.Background(), fv)
	require.NoError(t, err)
	assertTriple(t, out)
	assert.Greater(t, out.HomeProb, out.AwayProb)
}

func TestFormCrossCompetitionPullsTowardNeutral(t *testing.T) {
	fv := neutralVector()
	fv.Home.FormLast5 = 0.95
	fv.Away.FormLast5 = 0.1

	full, err := NewFormPredictor(4.0).Predict(context.Background(), fv)
	require.NoError(t, err)

	fv.FormReliability = 0.5
	discounted, err := NewFormPredictor(4.0).Predict(context.Background(), fv)
	require.NoError(t, err)

	assert.Less(t, discounted.HomeProb, full.HomeProb)
}

func TestBayesianNeutralInputsStayNearUniform(t *testing.T) {
	out, err := NewBayesianPredictor(0.6, 0.4).Predict(context.Background(), neutralVector())
	require.NoError(t, err)
	assertTriple(t, out)
	assert.InDelta(t, 1.0/3.0, out.HomeProb, 0.01)
	assert.InDelta(t, 1.0/3.0, out.DrawProb, 0.01)
}

func TestBayesianFollowsMarketPrior(t *testing.T) {
	fv := neutralVector()
	homeOdds := decimal.NewFromFloat(1.40)
	drawOdds := decimal.NewFromFloat(4.50)
	awayOdds := decimal.NewFromFloat(8.00)
	fv.HomeOdds, fv.DrawOdds, fv.AwayOdds = &homeOdds, &drawOdds, &awayOdds

	out, err := NewBayesianPredictor(0.6, 0.4).Predict(context.Background(), fv)
	require.NoError(t, err)
	assertTriple(t, out)
	assert.Greater(t, out.HomeProb, 0.5)
	assert.Greater(t, out.DrawProb, out.AwayProb)
}

func TestBayesianWithoutOddsReturnsLikelihood(t *testing.T) {
	fv := neutralVector()
	fv.Home.WinRate10 = 0.7
	fv.Home.DrawRate10 = 0.2
	fv.Home.LossRate10 = 0.1
	fv.Away.WinRate10 = 0.2
	fv.Away.DrawRate10 = 0.3
	fv.Away.LossRate10 = 0.5
	fv.H2HHomeRate = 0.6
	fv.H2HDrawRate = 0.25
	fv.H2HAwayRate = 0.15

	out, err := NewBayesianPredictor(0.6, 0.4).Predict(context.Background(), fv)
	require.NoError(t, err)
	assertTriple(t, out)

	// No quoted prices means no prior: the posterior is the likelihood,
	// not a uniform-damped blend of it
	likeH, likeD, likeA := outcomeLikelihood(fv)
	assert.InDelta(t, likeH, out.HomeProb, 1e-9)
	assert.InDelta(t, likeD, out.DrawProb, 1e-9)
	assert.InDelta(t, likeA, out.AwayProb, 1e-9)
}

func TestRemoveVigNormalizesImpliedProbabilities(t *testing.T) {
	h, d, a := RemoveVig(decimal.NewFromFloat(2.0), decimal.NewFromFloat(3.5), decimal.NewFromFloat(4.0))
	assert.InDelta(t, 1.0, h+d+a, 1e-9)
	assert.Greater(t, h, d)
	assert.Greater(t, d, a)
}

func TestRemoveVigRejectsInvalidPrices(t *testing.T) {
	h, d, a := RemoveVig(decimal.NewFromFloat(0.9), decimal.NewFromFloat(3.5), decimal.NewFromFloat(4.0))
	assert.InDelta(t, models.DefaultH2HRate, h, 1e-9)
	assert.InDelta(t, models.DefaultH2HRate, d, 1e-9)
	assert.InDelta(t, models.DefaultH2HRate, a, 1e-9)
}

func TestMonteCarloDeterministicPerFixture(t *testing.T) {
	fv := neutralVector()
	p := NewMonteCarloPredictor(5000, 9, 0)

	first, err := p.Predict(context.Background(), fv)
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), fv)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMonteCarloStrongAttackFavoured(t *testing.T) {
	fv := neutralVector()
	fv.Home.AttackStrength = 1.6
	fv.Away.DefenseWeakness = 1.4
	fv.Away.AttackStrength = 0.6

	out, err := NewMonteCarloPredictor(10000, 9, 42).Predict(context.Background(), fv)
	require.NoError(t, err)
	assertTriple(t, out)
	assert.Greater(t, out.HomeProb, out.AwayProb)
	require.NotNil(t, out.Markets)
	require.NotNil(t, out.Markets.Scoreline)
	assert.GreaterOrEqual(t, out.Markets.Scoreline.Home, out.Markets.Scoreline.Away)
	assert.GreaterOrEqual(t, out.Markets.BTTSProb, 0.0)
	assert.LessOrEqual(t, out.Markets.Over25Prob, 1.0)
}

func TestMonteCarloVarianceShrinksWithIterations(t *testing.T) {
	fv := neutralVector()
	fv.Home.AttackStrength = 1.3
	fv.Away.DefenseWeakness = 1.2

	// Spread of the home estimate across independent seeds
	spread := func(iterations int) float64 {
		low, high := 1.0, 0.0
		for seed := int64(1); seed <= 10; seed++ {
			out, err := NewMonteCarloPredictor(iterations, 9, seed).Predict(context.Background(), fv)
			require.NoError(t, err)
			if out.HomeProb < low {
				low = out.HomeProb
			}
			if out.HomeProb > high {
				high = out.HomeProb
			}
		}
		return high - low
	}

	assert.Less(t, spread(20000), spread(200))
}

func TestModalScorelineTieBreaksOnLowerTotal(t *testing.T) {
	counts := map[models.Scoreline]int{
		{Home: 2, Away: 1}: 500,
		{Home: 1, Away: 0}: 500,
		{Home: 0, Away: 0}: 400,
	}
	assert.Equal(t, models.Scoreline{Home: 1, Away: 0}, modalScoreline(counts))
}

func TestTrendBacksTheImprover(t *testing.T) {
	fv := neutralVector()
	// Home mid-table on points but flying lately; away fading
	fv.Home.Played, fv.Home.Points, fv.Home.FormLast5 = 20, 25, 0.95
	fv.Away.Played, fv.Away.Points, fv.Away.FormLast5 = 20, 40, 0.20

	out, err := NewTrendPredictor(4.0).Predict(context.Background(), fv)
	require.NoError(t, err)
	assertTriple(t, out)
	assert.Greater(t, out.HomeProb, out.AwayProb)
}

func TestContextPenalizesMissingKeyPlayers(t *testing.T) {
	fv := neutralVector()
	fv.Home.InjuryCount = 5
	fv.Home.SuspendedKey = 2

	out, err := NewContextPredictor(4.0).Predict(context.Background(), fv)
	require.NoError(t, err)
	assertTriple(t, out)
	assert.Greater(t, out.AwayProb, out.HomeProb)
}

func TestSequenceMomentumFavoursWinStreak(t *testing.T) {
	fv := neutralVector()
	fv.Home.RecentSequence = "LLWWWWW"
	fv.Away.RecentSequence = "WWLLLLL"

	out, err := NewSequencePredictor(4.0).Predict(context.Background(), fv)
	require.NoError(t, err)
	assertTriple(t, out)
	assert.Greater(t, out.HomeProb, out.AwayProb)
}

func TestMomentumStreaksOutweighScatteredResults(t *testing.T) {
	assert.Greater(t, momentum("LLLWWW"), momentum("WLWLWL"))
	assert.Negative(t, momentum("WLLLLL"))
	assert.Zero(t, momentum(""))
}
