package predictor

import (
	"context"

	"github.com/yourusername/matchcast/internal/models"
)

const (
	sequenceStreakStep = 0.06
	sequenceDrawBase   = 0.30
)

// SequencePredictor reads momentum out of each side's recent result
// sequence: unbroken runs count for more than the same results scattered
// through the window.
type SequencePredictor struct {
	steepness float64
}

// NewSequencePredictor creates the sequence sub-model
func NewSequencePredictor(steepness float64) *SequencePredictor {
	return &SequencePredictor{steepness: steepness}
}

// Name returns the model identifier
func (p *SequencePredictor) Name() string { return ModelSequence }

// Predict compares momentum scores, discounted by form reliability
func (p *SequencePredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	diff := momentum(fv.Home.RecentSequence) - momentum(fv.Away.RecentSequence)
	diff *= fv.FormReliability

	homeLean := sigmoid(diff, p.steepness)
	drawProb := closenessDraw(homeLean, sequenceDrawBase)

	return tripleFromHomeLean(ModelSequence, homeLean, drawProb), nil
}

// momentum scores a result sequence (oldest first). Each result counts in
// proportion to the streak it extends and to its recency, so a live run of
// wins dominates the same results scattered through the window. Draws break
// either streak at half value.
func momentum(sequence string) float64 {
	if len(sequence) == 0 {
		return 0
	}

	score := 0.0
	streak := 0.0
	var streakResult byte

	for i := 0; i < len(sequence); i++ {
		result := sequence[i]
		if result == streakResult {
			streak++
		} else {
			streak = 1
			streakResult = result
		}

		recency := float64(i+1) / float64(len(sequence))
		switch result {
		case 'W':
			score += sequenceStreakStep * streak * recency
		case 'L':
			score -= sequenceStreakStep * streak * recency
		case 'D':
			streak = 0.5
		}
	}
	return score
}
