package models

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CalibrationBucket maps a band of predicted probability to the outcome
// frequency observed for predictions in that band.
type CalibrationBucket struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Predicted float64 `json:"predicted"`
	Observed  float64 `json:"observed"`
	Samples   int     `json:"samples"`
}

// Contains reports whether p falls inside the bucket's band
func (b CalibrationBucket) Contains(p float64) bool {
	return p >= b.Lower && p < b.Upper
}

// CalibrationParams is the learned bucketed correction applied after
// ensemble aggregation.
type CalibrationParams struct {
	BucketWidth float64             `json:"bucket_width"`
	MinSamples  int                 `json:"min_samples"`
	Buckets     []CalibrationBucket `json:"buckets"`
}

// ModelWeightConfig is the versioned weight set the MetaCombiner reads.
// Replaced only by the backtest engine, atomically; weights are
// non-negative and normalize to one before use.
type ModelWeightConfig struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	Version     int                `db:"version" json:"version"`
	Weights     map[string]float64 `db:"weights" json:"weights"`
	Calibration CalibrationParams  `db:"calibration" json:"calibration"`
	SampleSize  int                `db:"sample_size" json:"sample_size"`
	Active      bool               `db:"active" json:"active"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
}

// Validate checks the non-negativity and normalization invariants
func (c *ModelWeightConfig) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("weight config v%d has no weights: %w", c.Version, ErrInvalidWeightConfig)
	}
	total := 0.0
	for model, w := range c.Weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("weight for %s is negative: %w", model, ErrInvalidWeightConfig)
		}
		total += w
	}
	if math.Abs(total-1.0) > 1e-6 {
		return fmt.Errorf("weights sum to %f, want 1: %w", total, ErrInvalidWeightConfig)
	}
	return nil
}

// Normalized returns a copy with weights rescaled to sum one. Zero total
// mass falls back to uniform weights.
func (c *ModelWeightConfig) Normalized() *ModelWeightConfig {
	out := *c
	out.Weights = NormalizeWeights(c.Weights)
	return &out
}

// ModelIDs returns the configured model names in deterministic order
func (c *ModelWeightConfig) ModelIDs() []string {
	ids := make([]string, 0, len(c.Weights))
	for id := range c.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NormalizeWeights rescales a weight map to sum one, flooring negatives at
// zero first. An all-zero map becomes uniform.
func NormalizeWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	total := 0.0
	for id, w := range weights {
		if w < 0 || math.IsNaN(w) {
			w = 0
		}
		out[id] = w
		total += w
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(weights))
		for id := range out {
			out[id] = uniform
		}
		return out
	}
	for id := range out {
		out[id] /= total
	}
	return out
}

// DefaultWeightConfig returns the uniform starting configuration used
// before any backtest has committed a learned one.
func DefaultWeightConfig(modelIDs []string) *ModelWeightConfig {
	weights := make(map[string]float64, len(modelIDs))
	for _, id := range modelIDs {
		weights[id] = 1.0
	}
	return &ModelWeightConfig{
		ID:      uuid.NewSHA1(uuid.NameSpaceOID, []byte("matchcast-weight-config-v0")),
		Version: 0,
		Weights: NormalizeWeights(weights),
		Calibration: CalibrationParams{
			BucketWidth: 0.1,
			MinSamples:  10,
		},
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}
