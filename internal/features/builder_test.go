package features

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
	"github.com/yourusername/matchcast/internal/datasource"
	"github.com/yourusername/matchcast/internal/models"
)

type fakeProvider struct {
	stats    map[string]*datasource.TeamStatsData
	meetings []datasource.MeetingData
	injuries map[string][]datasource.InjuryData
	fixture  *datasource.FixtureData
	failAll  bool
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchFixture(ctx context.Context, fixtureID string) (*datasource.FixtureData, error) {
	if p.failAll || p.fixture == nil {
		return nil, datasource.ErrNotFound
	}
	return p.fixture, nil
}

func (p *fakeProvider) FetchTeamStats(ctx context.Context, teamID, league, season string) (*datasource.TeamStatsData, error) {
	if p.failAll {
		return nil, errors.New("provider down")
	}
	stats, ok := p.stats[teamID]
	if !ok {
		return nil, datasource.ErrNotFound
	}
	return stats, nil
}

func (p *fakeProvider) FetchHeadToHead(ctx context.Context, homeTeamID, awayTeamID string, limit int) ([]datasource.MeetingData, error) {
	if p.failAll {
		return nil, errors.New("provider down")
	}
	return p.meetings, nil
}

func (p *fakeProvider) FetchInjuries(ctx context.Context, teamID string) ([]datasource.InjuryData, error) {
	if p.failAll {
		return nil, errors.New("provider down")
	}
	return p.injuries[teamID], nil
}

func (p *fakeProvider) FetchResults(ctx context.Context, league string, start, end time.Time) ([]datasource.FixtureData, error) {
	return nil, nil
}

type fakeStatsSource struct {
	stats map[uuid.UUID]*models.TeamSeasonStats
}

func (r *fakeStatsSource) StatsAt(ctx context.Context, teamID uuid.UUID, league, season string, asOf time.Time) (*models.TeamSeasonStats, error) {
	stats, ok := r.stats[teamID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return stats, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testFixture() *models.Fixture {
	return &models.Fixture{
		ID:         uuid.New(),
		SourceID:   "src-1",
		League:     "premier_league",
		Season:     "2025-26",
		HomeTeamID: uuid.New(),
		AwayTeamID: uuid.New(),
		HomeTeam:   "Arsenal",
		AwayTeam:   "Chelsea",
		KickoffAt:  time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
		Status:     models.FixtureStatusScheduled,
	}
}

func strongStats(teamID uuid.UUID, league, season string) *models.TeamSeasonStats {
	return &models.TeamSeasonStats{
		TeamID: teamID, League: league, Season: season,
		Played: 20, Wins: 14, Draws: 4, Losses: 2, Points: 46,
		GoalsFor: 44, GoalsAgainst: 16,
		LeaguePosition: 2, LeagueSize: 20,
		HomePlayed: 10, HomeGoalsFor: 26, HomeGoalsAgainst: 6,
		AwayPlayed: 10, AwayGoalsFor: 18, AwayGoalsAgainst: 10,
		Last5Results: "WWWDW", Last10Results: "WWDWWLWWDW", Last10Points: 23,
	}
}

func TestBuildClampsAsOfToKickoff(t *testing.T) {
	fixture := testFixture()
	builder := NewBuilder(&fakeProvider{failAll: true}, &fakeStatsSource{stats: map[uuid.UUID]*models.TeamSeasonStats{}},
		time.Second, 0.7, quietLogger())

	fv, err := builder.Build(context.Background(), fixture, fixture.KickoffAt.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, fixture.KickoffAt, fv.AsOf)
}

func TestBuildDegradesToNeutralDefaults(t *testing.T) {
	fixture := testFixture()
	builder := NewBuilder(&fakeProvider{failAll: true}, &fakeStatsSource{stats: map[uuid.UUID]*models.TeamSeasonStats{}},
		time.Second, 0.7, quietLogger())

	fv, err := builder.Build(context.Background(), fixture, fixture.KickoffAt.Add(-24*time.Hour))
	require.NoError(t, err)

	assert.True(t, fv.Degraded)
	assert.Equal(t, models.DefaultStrength, fv.Home.AttackStrength)
	assert.Equal(t, models.DefaultStrength, fv.Away.DefenseWeakness)
	assert.InDelta(t, models.DefaultH2HRate, fv.H2HHomeRate, 1e-9)
	assert.InDelta(t, models.DefaultH2HRate, fv.H2HDrawRate, 1e-9)
	assert.InDelta(t, models.DefaultH2HRate, fv.H2HAwayRate, 1e-9)
	assert.False(t, fv.HasMarketOdds())
}

func TestBuildFromLocalStats(t *testing.T) {
	fixture := testFixture()
	repo := &fakeStatsSource{stats: map[uuid.UUID]*models.TeamSeasonStats{
		fixture.HomeTeamID: strongStats(fixture.HomeTeamID, fixture.League, fixture.Season),
		fixture.AwayTeamID: strongStats(fixture.AwayTeamID, fixture.League, fixture.Season),
	}}
	builder := NewBuilder(&fakeProvider{}, repo, time.Second, 0.7, quietLogger())

	fv, err := builder.Build(context.Background(), fixture, fixture.KickoffAt.Add(-24*time.Hour))
	require.NoError(t, err)

	assert.False(t, fv.Degraded)
	assert.Greater(t, fv.Home.AttackStrength, 0.0)
	assert.InDelta(t, 44.0/20.0, fv.Home.GoalsPerGame, 1e-9)
	assert.InDelta(t, 0.7, fv.Home.WinRate10, 1e-9)
	assert.Equal(t, "WWDWWLWWDW", fv.Home.RecentSequence)
	assert.InDelta(t, 1.0, fv.FormReliability, 1e-9)
}

func TestBuildHeadToHeadOrientationAndAsOfFilter(t *testing.T) {
	fixture := testFixture()
	asOf := fixture.KickoffAt.Add(-24 * time.Hour)
	home := fixture.HomeTeamID.String()
	away := fixture.AwayTeamID.String()

	provider := &fakeProvider{meetings: []datasource.MeetingData{
		// home side won at home
		{HomeTeamID: home, AwayTeamID: away, HomeGoals: 2, AwayGoals: 0, PlayedAt: asOf.AddDate(-1, 0, 0)},
		// home side won away: reversed orientation
		{HomeTeamID: away, AwayTeamID: home, HomeGoals: 1, AwayGoals: 3, PlayedAt: asOf.AddDate(0, -6, 0)},
		// draw
		{HomeTeamID: home, AwayTeamID: away, HomeGoals: 1, AwayGoals: 1, PlayedAt: asOf.AddDate(0, -3, 0)},
		// after as-of, must be excluded
		{HomeTeamID: home, AwayTeamID: away, HomeGoals: 0, AwayGoals: 5, PlayedAt: asOf.Add(time.Hour)},
	}}
	builder := NewBuilder(provider, &fakeStatsSource{stats: map[uuid.UUID]*models.TeamSeasonStats{}},
		time.Second, 0.7, quietLogger())

	fv, err := builder.Build(context.Background(), fixture, asOf)
	require.NoError(t, err)

	assert.Equal(t, 3, fv.H2HMeetings)
	assert.InDelta(t, 2.0/3.0, fv.H2HHomeRate, 1e-9)
	assert.InDelta(t, 1.0/3.0, fv.H2HDrawRate, 1e-9)
	assert.InDelta(t, 0.0, fv.H2HAwayRate, 1e-9)
}

func TestBuildCrossCompetitionDiscountsFormReliability(t *testing.T) {
	fixture := testFixture()
	fixture.Competition = "champions_league"
	builder := NewBuilder(&fakeProvider{}, &fakeStatsSource{stats: map[uuid.UUID]*models.TeamSeasonStats{}},
		time.Second, 0.7, quietLogger())

	fv, err := builder.Build(context.Background(), fixture, fixture.KickoffAt.Add(-24*time.Hour))
	require.NoError(t, err)

	assert.True(t, fv.CrossCompetition)
	assert.InDelta(t, 0.7, fv.FormReliability, 1e-9)
}

func TestBuildCountsInjuriesAndKeyPlayers(t *testing.T) {
	fixture := testFixture()
	provider := &fakeProvider{injuries: map[string][]datasource.InjuryData{
		fixture.HomeTeamID.String(): {
			{PlayerName: "A", KeyPlayer: true},
			{PlayerName: "B", KeyPlayer: false},
			{PlayerName: "C", KeyPlayer: true},
		},
	}}
	builder := NewBuilder(provider, &fakeStatsSource{stats: map[uuid.UUID]*models.TeamSeasonStats{}},
		time.Second, 0.7, quietLogger())

	fv, err := builder.Build(context.Background(), fixture, fixture.KickoffAt.Add(-24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3, fv.Home.InjuryCount)
	assert.Equal(t, 2, fv.Home.SuspendedKey)
	assert.Equal(t, 0, fv.Away.InjuryCount)
}

func TestPointsRate(t *testing.T) {
	assert.InDelta(t, 1.0, pointsRate("WWWWW"), 1e-9)
	assert.InDelta(t, 0.0, pointsRate("LLLLL"), 1e-9)
	assert.InDelta(t, 1.0/3.0, pointsRate("DDDDD"), 1e-9)
	assert.InDelta(t, models.DefaultFormRate, pointsRate(""), 1e-9)
}
