package predictor

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/yourusername/matchcast/internal/models"
)

// MonteCarloPredictor simulates the match as two Poisson goal processes and
// counts outcome frequencies. The RNG seed is deterministic per fixture and
// as-of bucket, so repeated calls agree exactly.
type MonteCarloPredictor struct {
	iterations int
	maxGoals   int
	seed       int64
}

// NewMonteCarloPredictor creates the Monte Carlo sub-model. A zero seed
// derives one from the fixture identity at predict time.
func NewMonteCarloPredictor(iterations, maxGoals int, seed int64) *MonteCarloPredictor {
	return &MonteCarloPredictor{
		iterations: iterations,
		maxGoals:   maxGoals,
		seed:       seed,
	}
}

// Name returns the model identifier
func (p *MonteCarloPredictor) Name() string { return ModelMonteCarlo }

// Predict simulates iterations of the fixture and reports outcome
// frequencies plus the modal scoreline, both-teams-to-score and over-2.5
// markets.
func (p *MonteCarloPredictor) Predict(ctx context.Context, fv *models.FeatureVector) (models.SubModelOutput, error) {
	lambdaHome, lambdaAway := expectedGoals(fv)
	rng := rand.New(rand.NewSource(p.seedFor(fv)))

	var homeWins, draws, awayWins, btts, over25 int
	scoreCounts := make(map[models.Scoreline]int)

	for i := 0; i < p.iterations; i++ {
		homeGoals := p.poisson(rng, lambdaHome)
		awayGoals := p.poisson(rng, lambdaAway)

		switch {
		case homeGoals > awayGoals:
			homeWins++
		case homeGoals < awayGoals:
			awayWins++
		default:
			draws++
		}
		if homeGoals > 0 && awayGoals > 0 {
			btts++
		}
		if homeGoals+awayGoals > 2 {
			over25++
		}
		scoreCounts[models.Scoreline{Home: homeGoals, Away: awayGoals}]++
	}

	total := float64(p.iterations)
	modal := modalScoreline(scoreCounts)
	out := models.SubModelOutput{
		ModelID:  ModelMonteCarlo,
		HomeProb: float64(homeWins) / total,
		DrawProb: float64(draws) / total,
		AwayProb: float64(awayWins) / total,
		Markets: &models.AuxiliaryMarkets{
			BTTSProb:   float64(btts) / total,
			Over25Prob: float64(over25) / total,
			Scoreline:  &modal,
		},
	}
	out.Normalize()
	return out, nil
}

// seedFor returns the configured seed, or a stable hash of the fixture and
// as-of bucket when none is configured.
func (p *MonteCarloPredictor) seedFor(fv *models.FeatureVector) int64 {
	if p.seed != 0 {
		return p.seed
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", fv.FixtureID, models.AsOfBucketFor(fv.AsOf))
	return int64(h.Sum64())
}

// poisson draws a Poisson variate by Knuth's product method, capped at
// maxGoals to bound pathological rates.
func (p *MonteCarloPredictor) poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	threshold := math.Exp(-lambda)
	product := 1.0
	count := 0
	for product > threshold && count < p.maxGoals {
		product *= rng.Float64()
		count++
	}
	return count - 1 + boolToInt(count == p.maxGoals && product > threshold)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// expectedGoals derives each side's Poisson rate from attack strength,
// the opponent's defensive weakness and the league's venue scoring average.
func expectedGoals(fv *models.FeatureVector) (lambdaHome, lambdaAway float64) {
	lambdaHome = fv.Home.AttackStrength * fv.Away.DefenseWeakness * fv.LeagueHomeGoalsAvg
	lambdaAway = fv.Away.AttackStrength * fv.Home.DefenseWeakness * fv.LeagueAwayGoalsAvg
	if lambdaHome <= 0 {
		lambdaHome = models.DefaultHomeGoalsAvg
	}
	if lambdaAway <= 0 {
		lambdaAway = models.DefaultAwayGoalsAvg
	}
	return lambdaHome, lambdaAway
}

// modalScoreline picks the most frequent simulated score. Ties prefer the
// lower total-goals line, then the lower home goals.
func modalScoreline(counts map[models.Scoreline]int) models.Scoreline {
	best := models.Scoreline{Home: 1, Away: 1}
	bestCount := -1
	for score, count := range counts {
		if count > bestCount || (count == bestCount && scorelineLess(score, best)) {
			best = score
			bestCount = count
		}
	}
	return best
}

func scorelineLess(a, b models.Scoreline) bool {
	totalA, totalB := a.Home+a.Away, b.Home+b.Away
	if totalA != totalB {
		return totalA < totalB
	}
	if a.Home != b.Home {
		return a.Home < b.Home
	}
	return a.Away < b.Away
}
