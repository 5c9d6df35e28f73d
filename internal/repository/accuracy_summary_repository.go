package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/models"
)

// PostgresAccuracySummaryRepository implements AccuracySummaryRepository for PostgreSQL
type PostgresAccuracySummaryRepository struct {
	db *database.DB
}

// NewPostgresAccuracySummaryRepository creates a new accuracy summary repository
func NewPostgresAccuracySummaryRepository(db *database.DB) AccuracySummaryRepository {
	return &PostgresAccuracySummaryRepository{db: db}
}

// Upsert replaces the rollup for a window
func (r *PostgresAccuracySummaryRepository) Upsert(ctx context.Context, summary *models.AccuracySummary) error {
	brierJSON, err := json.Marshal(summary.ModelBrier)
	if err != nil {
		return fmt.Errorf("failed to encode model brier map: %w", err)
	}

	query := `
		INSERT INTO accuracy_summaries (id, window, samples, outcome_accuracy, mean_brier,
			calibration_error, model_brier, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (window) DO UPDATE SET
			samples = EXCLUDED.samples,
			outcome_accuracy = EXCLUDED.outcome_accuracy,
			mean_brier = EXCLUDED.mean_brier,
			calibration_error = EXCLUDED.calibration_error,
			model_brier = EXCLUDED.model_brier,
			generated_at = EXCLUDED.generated_at
	`

	_, err = r.db.Pool().Exec(ctx, query,
		summary.ID, summary.Window, summary.Samples, summary.OutcomeAccuracy,
		summary.MeanBrier, summary.CalibrationError, brierJSON, summary.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert accuracy summary: %w", err)
	}

	return nil
}

// GetByWindow retrieves the rollup for a window
func (r *PostgresAccuracySummaryRepository) GetByWindow(ctx context.Context, window models.AccuracyWindow) (*models.AccuracySummary, error) {
	query := `
		SELECT id, window, samples, outcome_accuracy, mean_brier, calibration_error, model_brier, generated_at
		FROM accuracy_summaries WHERE window = $1
	`

	summary := &models.AccuracySummary{}
	var brierJSON []byte
	err := r.db.Pool().QueryRow(ctx, query, window).Scan(
		&summary.ID, &summary.Window, &summary.Samples, &summary.OutcomeAccuracy,
		&summary.MeanBrier, &summary.CalibrationError, &brierJSON, &summary.GeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get accuracy summary: %w", err)
	}

	if len(brierJSON) > 0 {
		if err := json.Unmarshal(brierJSON, &summary.ModelBrier); err != nil {
			return nil, fmt.Errorf("failed to decode model brier map: %w", err)
		}
	}

	return summary, nil
}
