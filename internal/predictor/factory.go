package predictor

import (
	"github.com/yourusername/matchcast/internal/config"
	"github.com/yourusername/matchcast/internal/rating"
)

// BuildAll constructs every sub-model from the engine configuration
func BuildAll(cfg config.EngineConfig, store *rating.Store) []Predictor {
	return []Predictor{
		NewEloPredictor(store, cfg.EloHomeAdvantage, cfg.EloDrawBase, cfg.EloDrawScale),
		NewFormPredictor(cfg.FormSigmoidSteepness),
		NewBayesianPredictor(cfg.BayesPriorWeight, cfg.BayesLikelihoodWeight),
		NewMonteCarloPredictor(cfg.MonteCarloIterations, cfg.MonteCarloMaxGoals, cfg.MonteCarloSeed),
		NewTrendPredictor(cfg.FormSigmoidSteepness),
		NewContextPredictor(cfg.FormSigmoidSteepness),
		NewSequencePredictor(cfg.FormSigmoidSteepness),
	}
}
