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

// PostgresWeightConfigRepository implements WeightConfigRepository for PostgreSQL
type PostgresWeightConfigRepository struct {
	db *database.DB
}

// NewPostgresWeightConfigRepository creates a new weight config repository
func NewPostgresWeightConfigRepository(db *database.DB) WeightConfigRepository {
	return &PostgresWeightConfigRepository{db: db}
}

// GetActive retrieves the single active configuration
func (r *PostgresWeightConfigRepository) GetActive(ctx context.Context) (*models.ModelWeightConfig, error) {
	query := `
		SELECT id, version, weights, calibration, sample_size, active, created_at
		FROM model_weight_configs
		WHERE active = true
		ORDER BY version DESC
		LIMIT 1
	`

	cfg := &models.ModelWeightConfig{}
	var weightsJSON, calibrationJSON []byte
	err := r.db.Pool().QueryRow(ctx, query).Scan(
		&cfg.ID, &cfg.Version, &weightsJSON, &calibrationJSON, &cfg.SampleSize, &cfg.Active, &cfg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active weight config: %w", err)
	}

	if err := json.Unmarshal(weightsJSON, &cfg.Weights); err != nil {
		return nil, fmt.Errorf("failed to decode weights: %w", err)
	}
	if err := json.Unmarshal(calibrationJSON, &cfg.Calibration); err != nil {
		return nil, fmt.Errorf("failed to decode calibration: %w", err)
	}

	return cfg, nil
}

// InsertAndActivate writes a new config version and flips the active flag
// in one transaction. Readers either see the old config or the new one,
// never a mixture.
func (r *PostgresWeightConfigRepository) InsertAndActivate(ctx context.Context, cfg *models.ModelWeightConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	weightsJSON, err := json.Marshal(cfg.Weights)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	calibrationJSON, err := json.Marshal(cfg.Calibration)
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "UPDATE model_weight_configs SET active = false WHERE active = true"); err != nil {
			return fmt.Errorf("failed to deactivate previous config: %w", err)
		}

		query := `
			INSERT INTO model_weight_configs (id, version, weights, calibration, sample_size, active, created_at)
			VALUES ($1, $2, $3, $4, $5, true, $6)
		`
		if _, err := tx.Exec(ctx, query,
			cfg.ID, cfg.Version, weightsJSON, calibrationJSON, cfg.SampleSize, cfg.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert weight config: %w", err)
		}
		return nil
	})
}
