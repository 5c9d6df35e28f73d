package predictor

import (
	"context"
	"math"

	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/rating"
)

// EloPredictor derives outcome probabilities from the Elo rating gap. Draw
// probability decays with the absolute gap: mismatches rarely draw.
type EloPredictor struct {
	store         *rating.Store
	homeAdvantage float64
	drawBase      float64
	drawScale     float64
}

// NewEloPredictor creates the Elo sub-model
func NewEloPredictor(store *rating.Store, homeAdvantage, drawBase, drawScale float64) *EloPredictor {
	return &EloPredictor{
		store:         store,
		homeAdvantage: homeAdvantage,
		drawBase:      drawBase,
		drawScale:     drawScale,
	}
}

// Name returns the model identifier
func (p *EloPredictor) Name() string { return ModelElo }

// Predict converts the rating gap into a probability triple. Ratings are
// read as of the vector's snapshot time, so a replayed fixture sees the
// ratings its teams held before kickoff. Teams without a persisted rating
// are seeded from their league standing.
func (p *EloPredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	homeRating := p.store.RatingOrSeedAt(fv.Home.TeamID, fv.Home, fv.LeagueSize, fv.AsOf)
	awayRating := p.store.RatingOrSeedAt(fv.Away.TeamID, fv.Away, fv.LeagueSize, fv.AsOf)

	effectiveHome := homeRating + p.homeAdvantage
	expectedHome := models.ExpectedScore(effectiveHome, awayRating)

	gap := math.Abs(effectiveHome - awayRating)
	drawProb := p.drawBase / (1 + gap/p.drawScale)

	out := models.SubModelOutput{
		ModelID:  ModelElo,
		HomeProb: expectedHome * (1 - drawProb),
		DrawProb: drawProb,
		AwayProb: (1 - expectedHome) * (1 - drawProb),
	}
	out.Normalize()
	return out, nil
}
