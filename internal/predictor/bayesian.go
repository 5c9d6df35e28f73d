package predictor

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	"github.com/yourusername/matchcast/internal/models"
)

// BayesianPredictor blends a market-implied prior with a likelihood built
// from each side's recent outcome rates. Without quoted odds the prior is
// uniform and the likelihood carries the estimate alone.
type BayesianPredictor struct {
	priorWeight      float64
	likelihoodWeight float64
}

// NewBayesianPredictor creates the Bayesian sub-model
func NewBayesianPredictor(priorWeight, likelihoodWeight float64) *BayesianPredictor {
	return &BayesianPredictor{
		priorWeight:      priorWeight,
		likelihoodWeight: likelihoodWeight,
	}
}

// Name returns the model identifier
func (p *BayesianPredictor) Name() string { return ModelBayesian }

// Predict computes posterior ∝ prior^a · likelihood^b over the three
// outcomes and normalizes. The blend exponents apply only when a market
// prior exists; without odds the likelihood carries the full posterior,
// undamped.
func (p *BayesianPredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	priorH, priorD, priorA := models.DefaultH2HRate, models.DefaultH2HRate, models.DefaultH2HRate
	priorWeight, likelihoodWeight := 0.0, 1.0
	if fv.HasMarketOdds() {
		priorH, priorD, priorA = RemoveVig(*fv.HomeOdds, *fv.DrawOdds, *fv.AwayOdds)
		priorWeight, likelihoodWeight = p.priorWeight, p.likelihoodWeight
	}

	likeH, likeD, likeA := outcomeLikelihood(fv)

	out := models.SubModelOutput{
		ModelID:  ModelBayesian,
		HomeProb: posterior(priorH, likeH, priorWeight, likelihoodWeight),
		DrawProb: posterior(priorD, likeD, priorWeight, likelihoodWeight),
		AwayProb: posterior(priorA, likeA, priorWeight, likelihoodWeight),
	}
	out.Normalize()
	return out, nil
}

func posterior(prior, likelihood, priorWeight, likelihoodWeight float64) float64 {
	if prior <= 0 {
		prior = models.ProbabilityEpsilon
	}
	if likelihood <= 0 {
		likelihood = models.ProbabilityEpsilon
	}
	return math.Pow(prior, priorWeight) * math.Pow(likelihood, likelihoodWeight)
}

// outcomeLikelihood estimates outcome rates from the sides' last-10 records
// and the head-to-head history. A home win is supported by home-side wins
// and away-side losses.
func outcomeLikelihood(fv *models.FeatureVector) (h, d, a float64) {
	h = (fv.Home.WinRate10 + fv.Away.LossRate10 + fv.H2HHomeRate) / 3
	d = (fv.Home.DrawRate10 + fv.Away.DrawRate10 + fv.H2HDrawRate) / 3
	a = (fv.Home.LossRate10 + fv.Away.WinRate10 + fv.H2HAwayRate) / 3

	total := h + d + a
	if total <= 0 {
		return models.DefaultH2HRate, models.DefaultH2HRate, models.DefaultH2HRate
	}
	return h / total, d / total, a / total
}

// RemoveVig strips the bookmaker margin from a decimal 1X2 price set and
// returns the implied probability triple. Invalid prices yield the uniform
// prior.
func RemoveVig(homeOdds, drawOdds, awayOdds decimal.Decimal) (h, d, a float64) {
	one := decimal.NewFromInt(1)
	if homeOdds.LessThanOrEqual(one) || drawOdds.LessThanOrEqual(one) || awayOdds.LessThanOrEqual(one) {
		return models.DefaultH2HRate, models.DefaultH2HRate, models.DefaultH2HRate
	}

	rawH := 1 / homeOdds.InexactFloat64()
	rawD := 1 / drawOdds.InexactFloat64()
	rawA := 1 / awayOdds.InexactFloat64()

	overround := rawH + rawD + rawA
	return rawH / overround, rawD / overround, rawA / overround
}
