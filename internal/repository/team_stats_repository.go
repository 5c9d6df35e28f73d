package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/models"
)

// PostgresTeamStatsRepository implements TeamStatsRepository for PostgreSQL
type PostgresTeamStatsRepository struct {
	db *database.DB
}

// NewPostgresTeamStatsRepository creates a new team stats repository
func NewPostgresTeamStatsRepository(db *database.DB) TeamStatsRepository {
	return &PostgresTeamStatsRepository{db: db}
}

// Upsert inserts or replaces the rolling aggregates for a (team, league, season)
func (r *PostgresTeamStatsRepository) Upsert(ctx context.Context, stats *models.TeamSeasonStats) error {
	query := `
		INSERT INTO team_season_stats (team_id, team_name, league, season, played, wins, draws, losses,
			points, goals_for, goals_against, league_position, league_size,
			home_played, home_wins, home_goals_for, home_goals_against,
			away_played, away_wins, away_goals_for, away_goals_against,
			last5_results, last10_results, last10_points, yellow_cards, red_cards,
			updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (team_id, league, season) DO UPDATE SET
			team_name = EXCLUDED.team_name,
			played = EXCLUDED.played, wins = EXCLUDED.wins, draws = EXCLUDED.draws,
			losses = EXCLUDED.losses, points = EXCLUDED.points,
			goals_for = EXCLUDED.goals_for, goals_against = EXCLUDED.goals_against,
			league_position = EXCLUDED.league_position, league_size = EXCLUDED.league_size,
			home_played = EXCLUDED.home_played, home_wins = EXCLUDED.home_wins,
			home_goals_for = EXCLUDED.home_goals_for, home_goals_against = EXCLUDED.home_goals_against,
			away_played = EXCLUDED.away_played, away_wins = EXCLUDED.away_wins,
			away_goals_for = EXCLUDED.away_goals_for, away_goals_against = EXCLUDED.away_goals_against,
			last5_results = EXCLUDED.last5_results, last10_results = EXCLUDED.last10_results,
			last10_points = EXCLUDED.last10_points,
			yellow_cards = EXCLUDED.yellow_cards, red_cards = EXCLUDED.red_cards,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		stats.TeamID, stats.TeamName, stats.League, stats.Season,
		stats.Played, stats.Wins, stats.Draws, stats.Losses,
		stats.Points, stats.GoalsFor, stats.GoalsAgainst, stats.LeaguePosition, stats.LeagueSize,
		stats.HomePlayed, stats.HomeWins, stats.HomeGoalsFor, stats.HomeGoalsAgainst,
		stats.AwayPlayed, stats.AwayWins, stats.AwayGoalsFor, stats.AwayGoalsAgainst,
		stats.Last5Results, stats.Last10Results, stats.Last10Points,
		stats.YellowCards, stats.RedCards, stats.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team stats: %w", err)
	}

	return nil
}

// Get retrieves the aggregates for one (team, league, season)
func (r *PostgresTeamStatsRepository) Get(ctx context.Context, teamID uuid.UUID, league, season string) (*models.TeamSeasonStats, error) {
	query := `
		SELECT team_id, team_name, league, season, played, wins, draws, losses,
			points, goals_for, goals_against, league_position, league_size,
			home_played, home_wins, home_goals_for, home_goals_against,
			away_played, away_wins, away_goals_for, away_goals_against,
			last5_results, last10_results, last10_points, yellow_cards, red_cards,
			updated_at
		FROM team_season_stats
		WHERE team_id = $1 AND league = $2 AND season = $3
	`

	stats := &models.TeamSeasonStats{}
	err := r.db.Pool().QueryRow(ctx, query, teamID, league, season).Scan(
		&stats.TeamID, &stats.TeamName, &stats.League, &stats.Season,
		&stats.Played, &stats.Wins, &stats.Draws, &stats.Losses,
		&stats.Points, &stats.GoalsFor, &stats.GoalsAgainst, &stats.LeaguePosition, &stats.LeagueSize,
		&stats.HomePlayed, &stats.HomeWins, &stats.HomeGoalsFor, &stats.HomeGoalsAgainst,
		&stats.AwayPlayed, &stats.AwayWins, &stats.AwayGoalsFor, &stats.AwayGoalsAgainst,
		&stats.Last5Results, &stats.Last10Results, &stats.Last10Points,
		&stats.YellowCards, &stats.RedCards, &stats.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team stats: %w", err)
	}

	return stats, nil
}
