// Package features assembles the immutable feature vectors consumed by the
// sub-predictors. A vector is built for a (fixture, as-of) pair; missing
// upstream data degrades to neutral defaults rather than failing the build.
package features

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/matchcast/internal/datasource"
	"github.com/yourusername/matchcast/internal/models"
)

const defaultH2HLimit = 10

// StatsSource serves a side's season aggregates as they stood at a given
// instant. The live path reads the current row; backtest replay reads a
// reconstruction that excludes results recorded after the as-of time.
type StatsSource interface {
	StatsAt(ctx context.Context, teamID uuid.UUID, league, season string, asOf time.Time) (*models.TeamSeasonStats, error)
}

// Builder assembles feature vectors from the local stats store and the
// upstream provider
type Builder struct {
	provider          datasource.Provider
	stats             StatsSource
	fetchTimeout      time.Duration
	crossCompDiscount float64
	h2hLimit          int
	logger            *logrus.Logger
}

// NewBuilder creates a feature builder
func NewBuilder(
	provider datasource.Provider,
	stats StatsSource,
	fetchTimeout time.Duration,
	crossCompDiscount float64,
	logger *logrus.Logger,
) *Builder {
	return &Builder{
		provider:          provider,
		stats:             stats,
		fetchTimeout:      fetchTimeout,
		crossCompDiscount: crossCompDiscount,
		h2hLimit:          defaultH2HLimit,
		logger:            logger,
	}
}

// Build assembles the feature vector for a fixture as seen at asOf. The
// as-of time is clamped to kickoff so replayed predictions never see data
// from after the match started.
func (b *Builder) Build(ctx context.Context, fixture *models.Fixture, asOf time.Time) (*models.FeatureVector, error) {
	if asOf.After(fixture.KickoffAt) {
		asOf = fixture.KickoffAt
	}

	fv := &models.FeatureVector{
		FixtureID:        fixture.ID,
		League:           fixture.League,
		Season:           fixture.Season,
		AsOf:             asOf,
		KickoffAt:        fixture.KickoffAt,
		LeagueSize:       models.DefaultLeagueSize,
		CrossCompetition: fixture.IsCrossCompetition(),
		FormReliability:  1.0,
	}
	if fv.CrossCompetition {
		fv.FormReliability = b.crossCompDiscount
	}

	homeStats, homeOK := b.teamStats(ctx, fixture.HomeTeamID, fixture.League, fixture.Season, asOf)
	awayStats, awayOK := b.teamStats(ctx, fixture.AwayTeamID, fixture.League, fixture.Season, asOf)
	if !homeOK || !awayOK {
		fv.Degraded = true
	}

	leagueHomeAvg, leagueAwayAvg, leagueSize := leagueAverages(homeStats, awayStats)
	fv.LeagueHomeGoalsAvg = leagueHomeAvg
	fv.LeagueAwayGoalsAvg = leagueAwayAvg
	fv.LeagueSize = leagueSize

	fv.Home = sideFeatures(fixture.HomeTeamID, fixture.HomeTeam, homeStats, leagueHomeAvg, leagueAwayAvg, true)
	fv.Away = sideFeatures(fixture.AwayTeamID, fixture.AwayTeam, awayStats, leagueHomeAvg, leagueAwayAvg, false)

	b.applyHeadToHead(ctx, fixture, fv)
	b.applyInjuries(ctx, fixture, fv)
	b.applyMarketOdds(ctx, fixture, fv)

	return fv, nil
}

// teamStats loads a side's season aggregates as of the snapshot time,
// preferring the local store and falling back to the provider. Returns nil
// and false when neither source can serve.
func (b *Builder) teamStats(ctx context.Context, teamID uuid.UUID, league, season string, asOf time.Time) (*models.TeamSeasonStats, bool) {
	stats, err := b.stats.StatsAt(ctx, teamID, league, season, asOf)
	if err == nil {
		return stats, true
	}
	if !errors.Is(err, models.ErrNotFound) {
		b.logger.WithFields(logrus.Fields{
			"team_id": teamID,
			"league":  league,
		}).Warnf("Team stats lookup failed: %v", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()

	remote, err := b.provider.FetchTeamStats(fetchCtx, teamID.String(), league, season)
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"team_id": teamID,
			"league":  league,
		}).Warnf("Provider team stats fetch failed, using neutral defaults: %v", err)
		return nil, false
	}

	return statsFromProvider(teamID, league, season, remote), true
}

func (b *Builder) applyHeadToHead(ctx context.Context, fixture *models.Fixture, fv *models.FeatureVector) {
	fv.H2HHomeRate = models.DefaultH2HRate
	fv.H2HDrawRate = models.DefaultH2HRate
	fv.H2HAwayRate = models.DefaultH2HRate

	fetchCtx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()

	meetings, err := b.provider.FetchHeadToHead(fetchCtx, fixture.HomeTeamID.String(), fixture.AwayTeamID.String(), b.h2hLimit)
	if err != nil {
		b.logger.WithField("fixture_id", fixture.ID).
			Warnf("Head-to-head fetch failed, using neutral rates: %v", err)
		fv.Degraded = true
		return
	}

	h2h := summarizeMeetings(fixture.HomeTeamID.String(), meetings, fv.AsOf)
	fv.H2HMeetings = h2h.Meetings
	if h2h.Meetings == 0 {
		return
	}

	total := float64(h2h.Meetings)
	fv.H2HHomeRate = float64(h2h.HomeWins) / total
	fv.H2HDrawRate = float64(h2h.Draws) / total
	fv.H2HAwayRate = float64(h2h.AwayWins) / total
}

func (b *Builder) applyInjuries(ctx context.Context, fixture *models.Fixture, fv *models.FeatureVector) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()

	for _, side := range []struct {
		teamID uuid.UUID
		out    *models.TeamFeatures
	}{
		{fixture.HomeTeamID, &fv.Home},
		{fixture.AwayTeamID, &fv.Away},
	} {
		injuries, err := b.provider.FetchInjuries(fetchCtx, side.teamID.String())
		if err != nil {
			b.logger.WithField("team_id", side.teamID).
				Debugf("Injury fetch failed, assuming full squad: %v", err)
			continue
		}
		side.out.InjuryCount = len(injuries)
		for _, injury := range injuries {
			if injury.KeyPlayer {
				side.out.SuspendedKey++
			}
		}
	}
}

// applyMarketOdds copies the provider's 1X2 prices onto the vector when
// quoted. Odds are optional; their absence is not a degradation.
func (b *Builder) applyMarketOdds(ctx context.Context, fixture *models.Fixture, fv *models.FeatureVector) {
	if fixture.SourceID == "" {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()

	data, err := b.provider.FetchFixture(fetchCtx, fixture.SourceID)
	if err != nil {
		b.logger.WithField("fixture_id", fixture.ID).
			Debugf("Market odds fetch failed: %v", err)
		return
	}

	fv.HomeOdds = data.HomeOdds
	fv.DrawOdds = data.DrawOdds
	fv.AwayOdds = data.AwayOdds
}

// sideFeatures converts season aggregates into per-side features. Attack
// strength is the side's scoring rate relative to the league average for
// its venue; defense weakness is the concession rate relative to the
// opposite venue's average. 1.0 is league average on both axes.
func sideFeatures(teamID uuid.UUID, name string, stats *models.TeamSeasonStats, leagueHomeAvg, leagueAwayAvg float64, home bool) models.TeamFeatures {
	if stats == nil || stats.Played == 0 {
		return models.NeutralTeamFeatures(teamID, name)
	}

	tf := models.TeamFeatures{
		TeamID:          teamID,
		Name:            name,
		LeaguePosition:  stats.LeaguePosition,
		Played:          stats.Played,
		Points:          stats.Points,
		RecentSequence:  stats.Last10Results,
		GoalsPerGame:    stats.GoalsPerGame(),
		ConcededPerGame: stats.ConcededPerGame(),
		GoalDiffPerGame: stats.GoalDifferencePerGame(),
		WinRate10:       models.WinRate(stats.Last10Results),
		DrawRate10:      models.DrawRate(stats.Last10Results),
		LossRate10:      models.LossRate(stats.Last10Results),
	}

	tf.FormLast5 = pointsRate(stats.Last5Results)
	tf.FormLast10 = pointsRate(stats.Last10Results)

	scoredAvg, concededAvg := leagueHomeAvg, leagueAwayAvg
	if !home {
		scoredAvg, concededAvg = leagueAwayAvg, leagueHomeAvg
	}
	tf.AttackStrength = strengthRatio(venueGoalsFor(stats, home), venuePlayed(stats, home), scoredAvg)
	tf.DefenseWeakness = strengthRatio(venueGoalsAgainst(stats, home), venuePlayed(stats, home), concededAvg)

	if stats.Played > 0 {
		tf.YellowPerGame = float64(stats.YellowCards) / float64(stats.Played)
	}

	return tf
}

// pointsRate maps a result window onto [0,1]: fraction of available points
// taken, with the neutral default on an empty window.
func pointsRate(window string) float64 {
	if len(window) == 0 {
		return models.DefaultFormRate
	}
	points := 0
	for i := 0; i < len(window); i++ {
		switch window[i] {
		case 'W':
			points += 3
		case 'D':
			points++
		}
	}
	return float64(points) / float64(3*len(window))
}

func strengthRatio(goals, played int, leagueAvg float64) float64 {
	if played == 0 || leagueAvg <= 0 {
		return models.DefaultStrength
	}
	return (float64(goals) / float64(played)) / leagueAvg
}

func venuePlayed(stats *models.TeamSeasonStats, home bool) int {
	if home {
		return stats.HomePlayed
	}
	return stats.AwayPlayed
}

func venueGoalsFor(stats *models.TeamSeasonStats, home bool) int {
	if home {
		return stats.HomeGoalsFor
	}
	return stats.AwayGoalsFor
}

func venueGoalsAgainst(stats *models.TeamSeasonStats, home bool) int {
	if home {
		return stats.HomeGoalsAgainst
	}
	return stats.AwayGoalsAgainst
}

// leagueAverages estimates the league's home and away scoring rates from
// the two sides' venue splits, falling back to long-run defaults on thin
// data.
func leagueAverages(homeStats, awayStats *models.TeamSeasonStats) (homeAvg, awayAvg float64, size int) {
	homeAvg = models.DefaultHomeGoalsAvg
	awayAvg = models.DefaultAwayGoalsAvg
	size = models.DefaultLeagueSize

	var homeGoals, homePlayed, awayGoals, awayPlayed int
	for _, stats := range []*models.TeamSeasonStats{homeStats, awayStats} {
		if stats == nil {
			continue
		}
		homeGoals += stats.HomeGoalsFor + stats.AwayGoalsAgainst
		homePlayed += stats.HomePlayed + stats.AwayPlayed
		awayGoals += stats.AwayGoalsFor + stats.HomeGoalsAgainst
		awayPlayed += stats.AwayPlayed + stats.HomePlayed
		if stats.LeagueSize > 0 {
			size = stats.LeagueSize
		}
	}

	if homePlayed > 0 {
		homeAvg = float64(homeGoals) / float64(homePlayed)
	}
	if awayPlayed > 0 {
		awayAvg = float64(awayGoals) / float64(awayPlayed)
	}

	return homeAvg, awayAvg, size
}

// summarizeMeetings folds provider meeting records into an orientation-fixed
// head-to-head summary, dropping meetings played after the as-of time.
func summarizeMeetings(homeTeamID string, meetings []datasource.MeetingData, asOf time.Time) models.HeadToHead {
	var h2h models.HeadToHead
	for _, m := range meetings {
		if m.PlayedAt.After(asOf) {
			continue
		}
		h2h.Meetings++

		homeGoals, awayGoals := m.HomeGoals, m.AwayGoals
		if m.HomeTeamID != homeTeamID {
			homeGoals, awayGoals = awayGoals, homeGoals
		}
		h2h.HomeGoals += homeGoals
		h2h.AwayGoals += awayGoals

		switch {
		case homeGoals > awayGoals:
			h2h.HomeWins++
		case homeGoals < awayGoals:
			h2h.AwayWins++
		default:
			h2h.Draws++
		}
	}
	return h2h
}

// statsFromProvider converts a provider stats record into the local model,
// tolerating absent fields.
func statsFromProvider(teamID uuid.UUID, league, season string, data *datasource.TeamStatsData) *models.TeamSeasonStats {
	stats := &models.TeamSeasonStats{
		TeamID:    teamID,
		League:    league,
		Season:    season,
		UpdatedAt: time.Now().UTC(),
	}
	if data.TeamName != nil {
		stats.TeamName = *data.TeamName
	}
	stats.Played = intOr(data.Played, 0)
	stats.Wins = intOr(data.Wins, 0)
	stats.Draws = intOr(data.Draws, 0)
	stats.Losses = intOr(data.Losses, 0)
	stats.Points = intOr(data.Points, 0)
	stats.GoalsFor = intOr(data.GoalsFor, 0)
	stats.GoalsAgainst = intOr(data.GoalsAgainst, 0)
	stats.LeaguePosition = intOr(data.LeaguePosition, models.DefaultLeaguePosition)
	stats.LeagueSize = intOr(data.LeagueSize, models.DefaultLeagueSize)
	stats.HomePlayed = intOr(data.HomePlayed, 0)
	stats.HomeGoalsFor = intOr(data.HomeGoalsFor, 0)
	stats.HomeGoalsAgainst = intOr(data.HomeGoalsAgainst, 0)
	stats.AwayPlayed = intOr(data.AwayPlayed, 0)
	stats.AwayGoalsFor = intOr(data.AwayGoalsFor, 0)
	stats.AwayGoalsAgainst = intOr(data.AwayGoalsAgainst, 0)
	stats.YellowCards = intOr(data.YellowCards, 0)
	stats.RedCards = intOr(data.RedCards, 0)
	if data.RecentForm != nil {
		stats.Last10Results = *data.RecentForm
		if len(stats.Last10Results) > 5 {
			stats.Last5Results = stats.Last10Results[len(stats.Last10Results)-5:]
		} else {
			stats.Last5Results = stats.Last10Results
		}
	}
	return stats
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
