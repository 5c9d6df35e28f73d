package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/models"
)

// PostgresEloRepository implements EloRepository for PostgreSQL
type PostgresEloRepository struct {
	db *database.DB
}

// NewPostgresEloRepository creates a new Elo rating repository
func NewPostgresEloRepository(db *database.DB) EloRepository {
	return &PostgresEloRepository{db: db}
}

// GetAll loads every persisted rating; used to seed the in-memory store
// at startup.
func (r *PostgresEloRepository) GetAll(ctx context.Context) ([]*models.EloRating, error) {
	query := `
		SELECT team_id, league, rating, matches, updated_at
		FROM elo_ratings
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query elo ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*models.EloRating
	for rows.Next() {
		rating := &models.EloRating{}
		if err := rows.Scan(&rating.TeamID, &rating.League, &rating.Rating, &rating.Matches, &rating.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan elo rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	return ratings, rows.Err()
}

// AppendHistory appends rating change entries in one transaction
func (r *PostgresEloRepository) AppendHistory(ctx context.Context, entries []*models.EloHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO elo_rating_history (team_id, league, rating, previous, effective_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, entry := range entries {
			if _, err := tx.Exec(ctx, query,
				entry.TeamID, entry.League, entry.Rating, entry.Previous, entry.EffectiveAt,
			); err != nil {
				return fmt.Errorf("failed to append elo history for %s: %w", entry.TeamID, err)
			}
		}
		return nil
	})
}

// GetHistory loads the full change history, oldest first
func (r *PostgresEloRepository) GetHistory(ctx context.Context) ([]*models.EloHistoryEntry, error) {
	query := `
		SELECT team_id, league, rating, previous, effective_at
		FROM elo_rating_history
		ORDER BY effective_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query elo history: %w", err)
	}
	defer rows.Close()

	var entries []*models.EloHistoryEntry
	for rows.Next() {
		entry := &models.EloHistoryEntry{}
		if err := rows.Scan(&entry.TeamID, &entry.League, &entry.Rating, &entry.Previous, &entry.EffectiveAt); err != nil {
			return nil, fmt.Errorf("failed to scan elo history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// UpsertBatch writes a batch of rating updates in one transaction so a
// partially-applied result ingestion never becomes visible.
func (r *PostgresEloRepository) UpsertBatch(ctx context.Context, ratings []*models.EloRating) error {
	if len(ratings) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO elo_ratings (team_id, league, rating, matches, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (team_id) DO UPDATE SET
				league = EXCLUDED.league,
				rating = EXCLUDED.rating,
				matches = EXCLUDED.matches,
				updated_at = EXCLUDED.updated_at
		`
		for _, rating := range ratings {
			if _, err := tx.Exec(ctx, query,
				rating.TeamID, rating.League, rating.Rating, rating.Matches, rating.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to upsert elo rating for %s: %w", rating.TeamID, err)
			}
		}
		return nil
	})
}
