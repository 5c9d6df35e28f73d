package predictor

import (
	"context"

	"github.com/yourusername/matchcast/internal/models"
)

// Per-unit penalties applied to a side's context score. Key absences hurt
// far more than squad-depth injuries.
const (
	contextInjuryPenalty    = 0.03
	contextKeyPlayerPenalty = 0.08
	contextDisciplineScale  = 0.02
	contextDrawBase         = 0.32
)

// ContextPredictor adjusts a neutral baseline for situational factors the
// statistical models ignore: injuries, suspensions of key players and
// disciplinary tendencies.
type ContextPredictor struct {
	steepness float64
}

// NewContextPredictor creates the context sub-model
func NewContextPredictor(steepness float64) *ContextPredictor {
	return &ContextPredictor{steepness: steepness}
}

// Name returns the model identifier
func (p *ContextPredictor) Name() string { return ModelContext }

// Predict leans toward the side with the healthier, more disciplined squad.
// With no situational signal the output is near uniform.
func (p *ContextPredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	diff := contextScore(fv.Away) - contextScore(fv.Home)
	homeLean := sigmoid(diff, p.steepness)
	drawProb := closenessDraw(homeLean, contextDrawBase)

	return tripleFromHomeLean(ModelContext, homeLean, drawProb), nil
}

// contextScore is a side's total situational penalty; higher is worse
func contextScore(tf models.TeamFeatures) float64 {
	return float64(tf.InjuryCount)*contextInjuryPenalty +
		float64(tf.SuspendedKey)*contextKeyPlayerPenalty +
		tf.YellowPerGame*contextDisciplineScale
}
