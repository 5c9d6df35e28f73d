package rating

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/matchcast/internal/models"
)

type fakeEloRepo struct {
	stored  []*models.EloRating
	history []*models.EloHistoryEntry
}

func (r *fakeEloRepo) GetAll(ctx context.Context) ([]*models.EloRating, error) {
	return r.stored, nil
}

func (r *fakeEloRepo) UpsertBatch(ctx context.Context, ratings []*models.EloRating) error {
	r.stored = ratings
	return nil
}

func (r *fakeEloRepo) AppendHistory(ctx context.Context, entries []*models.EloHistoryEntry) error {
	r.history = append(r.history, entries...)
	return nil
}

func (r *fakeEloRepo) GetHistory(ctx context.Context) ([]*models.EloHistoryEntry, error) {
	return r.history, nil
}

func newTestStore(repo *fakeEloRepo) *Store {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewStore(repo, 32, logger)
}

func TestRatingUnknownTeamReturnsBaseline(t *testing.T) {
	store := newTestStore(&fakeEloRepo{})
	rating, ok := store.Rating(uuid.New())
	assert.False(t, ok)
	assert.Equal(t, models.EloBaseline, rating)
}

func TestLoadPopulatesRatings(t *testing.T) {
	teamID := uuid.New()
	repo := &fakeEloRepo{stored: []*models.EloRating{{TeamID: teamID, Rating: 1712}}}
	store := newTestStore(repo)

	require.NoError(t, store.Load(context.Background()))

	rating, ok := store.Rating(teamID)
	assert.True(t, ok)
	assert.Equal(t, 1712.0, rating)
}

func TestApplyResultsTransfersRatingPoints(t *testing.T) {
	home, away := uuid.New(), uuid.New()
	repo := &fakeEloRepo{}
	store := newTestStore(repo)

	err := store.ApplyResults(context.Background(), []ResultUpdate{{
		HomeTeamID: home,
		AwayTeamID: away,
		Outcome:    models.OutcomeHomeWin,
	}})
	require.NoError(t, err)

	homeRating, _ := store.Rating(home)
	awayRating, _ := store.Rating(away)

	assert.Greater(t, homeRating, models.EloBaseline)
	assert.Less(t, awayRating, models.EloBaseline)
	// Zero-sum: what the winner gains the loser loses
	assert.InDelta(t, 2*models.EloBaseline, homeRating+awayRating, 1e-9)
	assert.Len(t, repo.stored, 2)
}

func TestApplyResultsHomeAdvantageShrinksWinnerGain(t *testing.T) {
	buildAndApply := func(advantage float64) float64 {
		home, away := uuid.New(), uuid.New()
		store := newTestStore(&fakeEloRepo{})
		err := store.ApplyResults(context.Background(), []ResultUpdate{{
			HomeTeamID:    home,
			AwayTeamID:    away,
			Outcome:       models.OutcomeHomeWin,
			HomeAdvantage: advantage,
		}})
		require.NoError(t, err)
		rating, _ := store.Rating(home)
		return rating - models.EloBaseline
	}

	// A home win is less surprising with the advantage term, so the gain
	// must be smaller
	assert.Less(t, buildAndApply(100), buildAndApply(0))
}

func TestSnapshotIsIsolatedFromLaterUpdates(t *testing.T) {
	home, away := uuid.New(), uuid.New()
	store := newTestStore(&fakeEloRepo{})

	snap := store.Snapshot()
	err := store.ApplyResults(context.Background(), []ResultUpdate{{
		HomeTeamID: home,
		AwayTeamID: away,
		Outcome:    models.OutcomeDraw,
	}})
	require.NoError(t, err)

	assert.Empty(t, snap)
	assert.Len(t, store.Snapshot(), 2)
}

func TestSeedFromStandingRange(t *testing.T) {
	top := models.TeamFeatures{LeaguePosition: 1, FormLast10: 1.0, GoalDiffPerGame: 2.5}
	bottom := models.TeamFeatures{LeaguePosition: 20, FormLast10: 0.0, GoalDiffPerGame: -2.5}

	topSeed := SeedFromStanding(top, 20)
	bottomSeed := SeedFromStanding(bottom, 20)

	assert.Greater(t, topSeed, bottomSeed)
	assert.GreaterOrEqual(t, bottomSeed, models.EloSeedFloor)
	assert.LessOrEqual(t, topSeed, models.EloSeedCeiling)
}

func TestSeedFromStandingUnknownPositionIsBaseline(t *testing.T) {
	seed := SeedFromStanding(models.TeamFeatures{}, 20)
	assert.Equal(t, models.EloBaseline, seed)
}

func TestRatingOrSeedPrefersStoredRating(t *testing.T) {
	teamID := uuid.New()
	repo := &fakeEloRepo{stored: []*models.EloRating{{TeamID: teamID, Rating: 1650}}}
	store := newTestStore(repo)
	require.NoError(t, store.Load(context.Background()))

	rating := store.RatingOrSeed(teamID, models.TeamFeatures{LeaguePosition: 20}, 20)
	assert.Equal(t, 1650.0, rating)
}

func TestRatingAtRollsBackPastLaterResults(t *testing.T) {
	home, away := uuid.New(), uuid.New()
	repo := &fakeEloRepo{}
	store := newTestStore(repo)

	kickoff := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	require.NoError(t, store.ApplyResults(context.Background(), []ResultUpdate{{
		HomeTeamID: home,
		AwayTeamID: away,
		Outcome:    models.OutcomeHomeWin,
		PlayedAt:   kickoff,
	}}))

	current, _ := store.Rating(home)
	require.Greater(t, current, models.EloBaseline)

	// Before the match both sides still held the baseline
	before, ok := store.RatingAt(home, kickoff.Add(-2*time.Hour))
	assert.True(t, ok)
	assert.Equal(t, models.EloBaseline, before)
	beforeAway, _ := store.RatingAt(away, kickoff.Add(-2*time.Hour))
	assert.Equal(t, models.EloBaseline, beforeAway)

	// From kickoff on the updated rating applies
	after, _ := store.RatingAt(home, kickoff)
	assert.Equal(t, current, after)
	assert.Len(t, repo.history, 2)
}

func TestRatingAtPicksTheRightPointBetweenMatches(t *testing.T) {
	home, away := uuid.New(), uuid.New()
	store := newTestStore(&fakeEloRepo{})

	first := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 14)
	require.NoError(t, store.ApplyResults(context.Background(), []ResultUpdate{
		{HomeTeamID: home, AwayTeamID: away, Outcome: models.OutcomeHomeWin, PlayedAt: first},
		{HomeTeamID: home, AwayTeamID: away, Outcome: models.OutcomeHomeWin, PlayedAt: second},
	}))

	current, _ := store.Rating(home)
	between, ok := store.RatingAt(home, first.AddDate(0, 0, 7))
	require.True(t, ok)

	assert.Greater(t, between, models.EloBaseline)
	assert.Less(t, between, current)
}

func TestRatingAtSurvivesReload(t *testing.T) {
	home, away := uuid.New(), uuid.New()
	repo := &fakeEloRepo{}
	first := newTestStore(repo)

	kickoff := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	require.NoError(t, first.ApplyResults(context.Background(), []ResultUpdate{{
		HomeTeamID: home,
		AwayTeamID: away,
		Outcome:    models.OutcomeAwayWin,
		PlayedAt:   kickoff,
	}}))

	reloaded := newTestStore(repo)
	require.NoError(t, reloaded.Load(context.Background()))

	before, ok := reloaded.RatingAt(away, kickoff.Add(-time.Hour))
	assert.True(t, ok)
	assert.Equal(t, models.EloBaseline, before)

	current, _ := first.Rating(away)
	after, _ := reloaded.RatingAt(away, kickoff.Add(time.Hour))
	assert.Equal(t, current, after)
}

func TestRatingOrSeedAtSeedsUnknownTeam(t *testing.T) {
	store := newTestStore(&fakeEloRepo{})
	seed := store.RatingOrSeedAt(uuid.New(), models.TeamFeatures{LeaguePosition: 1, FormLast10: 0.9}, 20, time.Now())
	assert.GreaterOrEqual(t, seed, models.EloSeedFloor)
	assert.LessOrEqual(t, seed, models.EloSeedCeiling)
	assert.NotEqual(t, models.EloBaseline, seed)
}
