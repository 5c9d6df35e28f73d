// Package predictor implements the sub-models of the prediction ensemble.
// Each model maps a feature vector onto an outcome probability triple; the
// models are independent and individually fallible.
package predictor

import (
	"context"
	"math"

	"github.com/yourusername/matchcast/internal/models"
)

// Model identifiers as stored in weight configurations and breakdowns
const (
	ModelElo        = "elo"
	ModelForm       = "form"
	ModelBayesian   = "bayesian"
	ModelMonteCarlo = "monte_carlo"
	ModelTrend      = "trend"
	ModelContext    = "context"
	ModelSequence   = "sequence"
)

// Predictor is one sub-model of the ensemble
type Predictor interface {
	// Name returns the model identifier
	Name() string

	// Predict maps a feature vector onto an outcome probability triple
	Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error)
}

// AllModelIDs returns the identifiers of every sub-model, in the order the
// ensemble reports them.
func AllModelIDs() []string {
	return []string{
		ModelElo, ModelForm, ModelBayesian, ModelMonteCarlo,
		ModelTrend, ModelContext, ModelSequence,
	}
}

// sigmoid squashes a differential onto (0,1) with the given steepness
func sigmoid(x, steepness float64) float64 {
	return 1.0 / (1.0 + math.Exp(-steepness*x))
}

// tripleFromHomeLean converts a home-vs-away lean p in (0,1) and a draw
// share into a normalized triple. The draw share scales the remaining mass.
func tripleFromHomeLean(modelID string, homeLean, drawProb float64) models.SubModelOutput {
	out := models.SubModelOutput{
		ModelID:  modelID,
		HomeProb: homeLean * (1 - drawProb),
		DrawProb: drawProb,
		AwayProb: (1 - homeLean) * (1 - drawProb),
	}
	out.Normalize()
	return out
}

// closenessDraw derives a draw probability that peaks when the sides are
// evenly matched. base is the draw probability at perfect balance.
func closenessDraw(homeLean, base float64) float64 {
	draw := base * (1 - math.Abs(2*homeLean-1))
	if draw < 0.08 {
		draw = 0.08
	}
	return draw
}
