// Package ensemble combines sub-model outputs into the final calibrated
// prediction and holds the active weight configuration.
package ensemble

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/repository"
)

// WeightHolder exposes the active weight configuration to the prediction
// path. Readers get an immutable snapshot; the backtest engine swaps in a
// new configuration atomically after committing it.
type WeightHolder struct {
	mu  sync.RWMutex
	cfg *models.ModelWeightConfig
}

// NewWeightHolder creates a holder seeded with the given configuration
func NewWeightHolder(cfg *models.ModelWeightConfig) *WeightHolder {
	return &WeightHolder{cfg: cfg.Normalized()}
}

// LoadWeightHolder seeds a holder from the repository, falling back to the
// uniform default when no configuration has ever been committed.
func LoadWeightHolder(ctx context.Context, repo repository.WeightConfigRepository, modelIDs []string, logger *logrus.Logger) (*WeightHolder, error) {
	cfg, err := repo.GetActive(ctx)
	if errors.Is(err, models.ErrNotFound) {
		logger.Info("No active weight config, starting with uniform weights")
		return NewWeightHolder(models.DefaultWeightConfig(modelIDs)), nil
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		logger.Warnf("Active weight config invalid, renormalizing: %v", err)
	}
	return NewWeightHolder(cfg), nil
}

// Current returns the active configuration. Callers must not mutate it.
func (h *WeightHolder) Current() *models.ModelWeightConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Swap atomically replaces the active configuration
func (h *WeightHolder) Swap(cfg *models.ModelWeightConfig) {
	normalized := cfg.Normalized()
	h.mu.Lock()
	h.cfg = normalized
	h.mu.Unlock()
}
