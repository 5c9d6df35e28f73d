package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/models"
)

// PostgresFixtureRepository implements FixtureRepository for PostgreSQL
type PostgresFixtureRepository struct {
	db *database.DB
}

// NewPostgresFixtureRepository creates a new fixture repository
func NewPostgresFixtureRepository(db *database.DB) FixtureRepository {
	return &PostgresFixtureRepository{db: db}
}

// Upsert inserts or updates a fixture row
func (r *PostgresFixtureRepository) Upsert(ctx context.Context, fixture *models.Fixture) error {
	query := `
		INSERT INTO fixtures (id, source_id, league, season, home_team_id, away_team_id,
			home_team, away_team, competition, kickoff_at, status, home_goals, away_goals, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			kickoff_at = EXCLUDED.kickoff_at,
			home_goals = EXCLUDED.home_goals,
			away_goals = EXCLUDED.away_goals
	`

	_, err := r.db.Pool().Exec(ctx, query,
		fixture.ID, fixture.SourceID, fixture.League, fixture.Season,
		fixture.HomeTeamID, fixture.AwayTeamID, fixture.HomeTeam, fixture.AwayTeam,
		fixture.Competition, fixture.KickoffAt, fixture.Status,
		fixture.HomeGoals, fixture.AwayGoals, fixture.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fixture: %w", err)
	}

	return nil
}

// GetByID retrieves a fixture by ID
func (r *PostgresFixtureRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Fixture, error) {
	query := `
		SELECT id, source_id, league, season, home_team_id, away_team_id,
			home_team, away_team, competition, kickoff_at, status, home_goals, away_goals, created_at
		FROM fixtures WHERE id = $1
	`

	fixture := &models.Fixture{}
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&fixture.ID, &fixture.SourceID, &fixture.League, &fixture.Season,
		&fixture.HomeTeamID, &fixture.AwayTeamID, &fixture.HomeTeam, &fixture.AwayTeam,
		&fixture.Competition, &fixture.KickoffAt, &fixture.Status,
		&fixture.HomeGoals, &fixture.AwayGoals, &fixture.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture: %w", err)
	}

	return fixture, nil
}

// GetCompletedBetween retrieves finished fixtures whose kickoff fell in the window
func (r *PostgresFixtureRepository) GetCompletedBetween(ctx context.Context, start, end time.Time) ([]*models.Fixture, error) {
	query := `
		SELECT id, source_id, league, season, home_team_id, away_team_id,
			home_team, away_team, competition, kickoff_at, status, home_goals, away_goals, created_at
		FROM fixtures
		WHERE status = 'finished' AND kickoff_at >= $1 AND kickoff_at < $2
		ORDER BY kickoff_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []*models.Fixture
	for rows.Next() {
		fixture := &models.Fixture{}
		err := rows.Scan(
			&fixture.ID, &fixture.SourceID, &fixture.League, &fixture.Season,
			&fixture.HomeTeamID, &fixture.AwayTeamID, &fixture.HomeTeam, &fixture.AwayTeam,
			&fixture.Competition, &fixture.KickoffAt, &fixture.Status,
			&fixture.HomeGoals, &fixture.AwayGoals, &fixture.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		fixtures = append(fixtures, fixture)
	}

	return fixtures, rows.Err()
}

// GetCompletedForTeam retrieves the team's finished fixtures in a season
// with kickoff strictly before the cutoff, oldest first. Drives as-of stat
// reconstruction during backtest replay.
func (r *PostgresFixtureRepository) GetCompletedForTeam(ctx context.Context, teamID uuid.UUID, league, season string, before time.Time) ([]*models.Fixture, error) {
	query := `
		SELECT id, source_id, league, season, home_team_id, away_team_id,
			home_team, away_team, competition, kickoff_at, status, home_goals, away_goals, created_at
		FROM fixtures
		WHERE status = 'finished' AND league = $2 AND season = $3
			AND (home_team_id = $1 OR away_team_id = $1)
			AND kickoff_at < $4
		ORDER BY kickoff_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, teamID, league, season, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query team fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []*models.Fixture
	for rows.Next() {
		fixture := &models.Fixture{}
		err := rows.Scan(
			&fixture.ID, &fixture.SourceID, &fixture.League, &fixture.Season,
			&fixture.HomeTeamID, &fixture.AwayTeamID, &fixture.HomeTeam, &fixture.AwayTeam,
			&fixture.Competition, &fixture.KickoffAt, &fixture.Status,
			&fixture.HomeGoals, &fixture.AwayGoals, &fixture.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		fixtures = append(fixtures, fixture)
	}

	return fixtures, rows.Err()
}
