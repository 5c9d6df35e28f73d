package predictor

import (
	"context"

	"github.com/yourusername/matchcast/internal/models"
)

const trendDrawBase = 0.30

// TrendPredictor compares each side's recent form against its season
// baseline. A side taking more points lately than its season rate is
// trending up; the model backs the steeper improver.
type TrendPredictor struct {
	steepness float64
}

// NewTrendPredictor creates the trend sub-model
func NewTrendPredictor(steepness float64) *TrendPredictor {
	return &TrendPredictor{steepness: steepness}
}

// Name returns the model identifier
func (p *TrendPredictor) Name() string { return ModelTrend }

// Predict squashes the overperformance differential through a logistic
// curve, discounted by form reliability.
func (p *TrendPredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	diff := overperformance(fv.Home) - overperformance(fv.Away)
	diff *= fv.FormReliability

	homeLean := sigmoid(diff, p.steepness)
	drawProb := closenessDraw(homeLean, trendDrawBase)

	return tripleFromHomeLean(ModelTrend, homeLean, drawProb), nil
}

// overperformance is the gap between the last-5 points rate and the season
// points rate, both on [0,1]. Zero means the side is running at its
// season level.
func overperformance(tf models.TeamFeatures) float64 {
	if tf.Played == 0 {
		return 0
	}
	seasonRate := float64(tf.Points) / float64(3*tf.Played)
	return tf.FormLast5 - seasonRate
}
