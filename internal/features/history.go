package features

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/repository"
)

// HistoricalStats serves season aggregates with an as-of dimension. The
// current row answers directly when it predates the snapshot time; otherwise
// the aggregates are rebuilt by refolding the team's completed fixtures up
// to that instant, so a replayed prediction never sees a result recorded
// after its snapshot. Standing and discipline fields are carried from the
// current row since they are not derivable from results alone.
type HistoricalStats struct {
	stats    repository.TeamStatsRepository
	fixtures repository.FixtureRepository
}

// NewHistoricalStats creates an as-of stats source over the two stores
func NewHistoricalStats(stats repository.TeamStatsRepository, fixtures repository.FixtureRepository) *HistoricalStats {
	return &HistoricalStats{stats: stats, fixtures: fixtures}
}

// StatsAt returns the team's aggregates as they stood at asOf
func (h *HistoricalStats) StatsAt(ctx context.Context, teamID uuid.UUID, league, season string, asOf time.Time) (*models.TeamSeasonStats, error) {
	current, err := h.stats.Get(ctx, teamID, league, season)
	if err != nil {
		return nil, err
	}
	if !current.UpdatedAt.After(asOf) {
		return current, nil
	}

	fixtures, err := h.fixtures.GetCompletedForTeam(ctx, teamID, league, season, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures for stats rebuild: %w", err)
	}

	rebuilt := &models.TeamSeasonStats{
		TeamID:         teamID,
		TeamName:       current.TeamName,
		League:         league,
		Season:         season,
		LeaguePosition: current.LeaguePosition,
		LeagueSize:     current.LeagueSize,
		YellowCards:    current.YellowCards,
		RedCards:       current.RedCards,
		UpdatedAt:      asOf,
	}
	for _, fixture := range fixtures {
		if !fixture.IsCompleted() {
			continue
		}
		home := fixture.HomeTeamID == teamID
		scored, conceded := *fixture.HomeGoals, *fixture.AwayGoals
		if !home {
			scored, conceded = conceded, scored
		}
		rebuilt.ApplyMatch(scored, conceded, home)
	}

	return rebuilt, nil
}
