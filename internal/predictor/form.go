package predictor

import (
	"context"

	"github.com/yourusername/matchcast/internal/models"
)

// Component weights of the form score. They sum to 1; recent form carries
// the most signal, league position the least.
const (
	formWeightLast5    = 0.25
	formWeightLast10   = 0.30
	formWeightAttack   = 0.20
	formWeightDefense  = 0.15
	formWeightPosition = 0.10

	formDrawBase = 0.30
)

// FormPredictor scores each side on weighted recent form, attack and
// defense strength and league standing, then squashes the differential
// through a logistic curve.
type FormPredictor struct {
	steepness float64
}

// NewFormPredictor creates the form sub-model
func NewFormPredictor(steepness float64) *FormPredictor {
	return &FormPredictor{steepness: steepness}
}

// Name returns the model identifier
func (p *FormPredictor) Name() string { return ModelForm }

// Predict compares weighted form scores. Cross-competition fixtures shrink
// the differential via the vector's form reliability.
func (p *FormPredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	diff := formScore(fv.Home, fv.LeagueSize) - formScore(fv.Away, fv.LeagueSize)
	diff *= fv.FormReliability

	homeLean := sigmoid(diff, p.steepness)
	drawProb := closenessDraw(homeLean, formDrawBase)

	return tripleFromHomeLean(ModelForm, homeLean, drawProb), nil
}

// formScore maps a side onto [0,1]. Strength ratios are centered so a
// league-average side scores 0.5 on those components.
func formScore(tf models.TeamFeatures, leagueSize int) float64 {
	attack := clamp01(tf.AttackStrength / 2)
	defense := clamp01(1 - tf.DefenseWeakness/2)

	position := 0.5
	if leagueSize > 1 && tf.LeaguePosition > 0 {
		position = 1 - float64(tf.LeaguePosition-1)/float64(leagueSize-1)
	}

	return formWeightLast5*tf.FormLast5 +
		formWeightLast10*tf.FormLast10 +
		formWeightAttack*attack +
		formWeightDefense*defense +
		formWeightPosition*position
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
