package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/models"
)

// uniqueViolation is the Postgres error code for a unique constraint breach
const uniqueViolation = "23505"

// PostgresBacktestRecordRepository implements BacktestRecordRepository for PostgreSQL
type PostgresBacktestRecordRepository struct {
	db *database.DB
}

// NewPostgresBacktestRecordRepository creates a new backtest record repository
func NewPostgresBacktestRecordRepository(db *database.DB) BacktestRecordRepository {
	return &PostgresBacktestRecordRepository{db: db}
}

// InsertBatch appends a run's records in one transaction. Records are
// never updated or deleted.
func (r *PostgresBacktestRecordRepository) InsertBatch(ctx context.Context, records []*models.BacktestRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO backtest_records (id, run_id, fixture_id, league, season,
				prediction_snapshot, predicted_outcome, actual_outcome,
				actual_home_goals, actual_away_goals, correct, ensemble_brier, model_brier,
				kickoff_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		for _, record := range records {
			brierJSON, err := json.Marshal(record.ModelBrier)
			if err != nil {
				return fmt.Errorf("failed to encode model brier map: %w", err)
			}
			if _, err := tx.Exec(ctx, query,
				record.ID, record.RunID, record.FixtureID, record.League, record.Season,
				record.PredictionSnapshot, record.PredictedOutcome, record.ActualOutcome,
				record.ActualHomeGoals, record.ActualAwayGoals, record.Correct,
				record.EnsembleBrier, brierJSON, record.KickoffAt, record.CreatedAt,
			); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
					return fmt.Errorf("record %s already stored: %w", record.ID, models.ErrDuplicateKey)
				}
				return fmt.Errorf("failed to insert backtest record: %w", err)
			}
		}
		return nil
	})
}

// GetSince retrieves records with kickoff on or after the cutoff
func (r *PostgresBacktestRecordRepository) GetSince(ctx context.Context, since time.Time) ([]*models.BacktestRecord, error) {
	query := `
		SELECT id, run_id, fixture_id, league, season,
			prediction_snapshot, predicted_outcome, actual_outcome,
			actual_home_goals, actual_away_goals, correct, ensemble_brier, model_brier,
			kickoff_at, created_at
		FROM backtest_records
		WHERE kickoff_at >= $1
		ORDER BY kickoff_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest records: %w", err)
	}
	defer rows.Close()

	var records []*models.BacktestRecord
	for rows.Next() {
		record := &models.BacktestRecord{}
		var brierJSON []byte
		err := rows.Scan(
			&record.ID, &record.RunID, &record.FixtureID, &record.League, &record.Season,
			&record.PredictionSnapshot, &record.PredictedOutcome, &record.ActualOutcome,
			&record.ActualHomeGoals, &record.ActualAwayGoals, &record.Correct,
			&record.EnsembleBrier, &brierJSON, &record.KickoffAt, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest record: %w", err)
		}
		if len(brierJSON) > 0 {
			if err := json.Unmarshal(brierJSON, &record.ModelBrier); err != nil {
				return nil, fmt.Errorf("failed to decode model brier map: %w", err)
			}
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
