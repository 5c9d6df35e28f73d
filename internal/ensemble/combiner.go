package ensemble

import (
	"fmt"
	"sort"

	"github.com/yourusername/matchcast/internal/models"
)

// CombineResult is the weighted aggregate of the surviving sub-models
type CombineResult struct {
	Triple        models.SubModelOutput
	Breakdown     []models.ModelContribution
	FailedModels  int
	WeightVersion int
}

// Combine aggregates sub-model triples under the active weights. Weights of
// failed models are redistributed proportionally across the survivors; the
// combination fails only when every sub-model failed.
func Combine(outputs []models.SubModelOutput, failed []string, cfg *models.ModelWeightConfig) (CombineResult, error) {
	if len(outputs) == 0 {
		return CombineResult{}, fmt.Errorf("no surviving sub-models: %w", models.ErrSubModelFailure)
	}

	survivorWeights := make(map[string]float64, len(outputs))
	for _, out := range outputs {
		w, ok := cfg.Weights[out.ModelID]
		if !ok {
			// Model unknown to this config; give it the mean weight so a
			// newly added model is not silently ignored
			w = 1.0 / float64(len(cfg.Weights))
		}
		survivorWeights[out.ModelID] = w
	}
	survivorWeights = models.NormalizeWeights(survivorWeights)

	result := CombineResult{
		Triple:        models.SubModelOutput{ModelID: "ensemble"},
		FailedModels:  len(failed),
		WeightVersion: cfg.Version,
	}

	for _, out := range outputs {
		w := survivorWeights[out.ModelID]
		result.Triple.HomeProb += w * out.HomeProb
		result.Triple.DrawProb += w * out.DrawProb
		result.Triple.AwayProb += w * out.AwayProb
		result.Breakdown = append(result.Breakdown, models.ModelContribution{
			ModelID:  out.ModelID,
			Weight:   w,
			HomeProb: out.HomeProb,
			DrawProb: out.DrawProb,
			AwayProb: out.AwayProb,
		})
	}
	for _, modelID := range failed {
		result.Breakdown = append(result.Breakdown, models.ModelContribution{
			ModelID: modelID,
			Failed:  true,
		})
	}
	sort.Slice(result.Breakdown, func(i, j int) bool {
		return result.Breakdown[i].ModelID < result.Breakdown[j].ModelID
	})

	result.Triple.Normalize()
	return result, nil
}

// AggregateMarkets averages the auxiliary markets of the models that emit
// them, and picks the scoreline of the first model that offers one.
func AggregateMarkets(outputs []models.SubModelOutput) models.AuxiliaryMarkets {
	markets := models.AuxiliaryMarkets{}
	count := 0
	for _, out := range outputs {
		if out.Markets == nil {
			continue
		}
		markets.BTTSProb += out.Markets.BTTSProb
		markets.Over25Prob += out.Markets.Over25Prob
		if markets.Scoreline == nil && out.Markets.Scoreline != nil {
			scoreline := *out.Markets.Scoreline
			markets.Scoreline = &scoreline
		}
		count++
	}
	if count > 0 {
		markets.BTTSProb /= float64(count)
		markets.Over25Prob /= float64(count)
	}
	return markets
}
