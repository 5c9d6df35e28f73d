package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ProbabilityEpsilon is the tolerance used when checking that an outcome
// triple sums to one.
const ProbabilityEpsilon = 1e-6

// Scoreline is a predicted final score
type Scoreline struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// String renders the scoreline as "2-1"
func (s Scoreline) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// AuxiliaryMarkets carries derived markets alongside the 1X2 triple
type AuxiliaryMarkets struct {
	BTTSProb   float64    `json:"btts_prob"`
	Over25Prob float64    `json:"over25_prob"`
	Scoreline  *Scoreline `json:"scoreline,omitempty"`
}

// SubModelOutput is the probability triple emitted by one sub-predictor.
// Invariant: HomeProb + DrawProb + AwayProb == 1 within ProbabilityEpsilon.
type SubModelOutput struct {
	ModelID  string            `json:"model_id"`
	HomeProb float64           `json:"home_prob"`
	DrawProb float64           `json:"draw_prob"`
	AwayProb float64           `json:"away_prob"`
	Markets  *AuxiliaryMarkets `json:"markets,omitempty"`
}

// Normalize rescales the triple to sum exactly one. Non-positive mass
// collapses to the neutral 1/3 prior.
func (o *SubModelOutput) Normalize() {
	total := o.HomeProb + o.DrawProb + o.AwayProb
	if total <= 0 || math.IsNaN(total) {
		o.HomeProb, o.DrawProb, o.AwayProb = DefaultH2HRate, DefaultH2HRate, DefaultH2HRate
		return
	}
	o.HomeProb /= total
	o.DrawProb /= total
	o.AwayProb /= total
}

// Validate checks the sum-to-one invariant and probability bounds
func (o *SubModelOutput) Validate() error {
	for _, p := range []float64{o.HomeProb, o.DrawProb, o.AwayProb} {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("model %s: probability %f out of range: %w", o.ModelID, p, ErrInvalidProbability)
		}
	}
	if math.Abs(o.HomeProb+o.DrawProb+o.AwayProb-1.0) > 1e-3 {
		return fmt.Errorf("model %s: probabilities do not sum to 1: %w", o.ModelID, ErrInvalidProbability)
	}
	return nil
}

// Favourite returns the most probable outcome of the triple
func (o *SubModelOutput) Favourite() Outcome {
	switch {
	case o.HomeProb >= o.DrawProb && o.HomeProb >= o.AwayProb:
		return OutcomeHomeWin
	case o.AwayProb >= o.DrawProb:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}

// OutcomeProb returns the probability assigned to a specific outcome
func (o *SubModelOutput) OutcomeProb(outcome Outcome) float64 {
	switch outcome {
	case OutcomeHomeWin:
		return o.HomeProb
	case OutcomeAwayWin:
		return o.AwayProb
	default:
		return o.DrawProb
	}
}

// ConfidenceLevel tiers a prediction for display
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ModelContribution records one sub-model's share of the ensemble
type ModelContribution struct {
	ModelID  string  `json:"model_id"`
	Weight   float64 `json:"weight"`
	HomeProb float64 `json:"home_prob"`
	DrawProb float64 `json:"draw_prob"`
	AwayProb float64 `json:"away_prob"`
	Failed   bool    `json:"failed,omitempty"`
}

// EnsemblePrediction is the final calibrated output for one fixture.
// Computed at most once per (fixture, season, as-of bucket) and cached.
type EnsemblePrediction struct {
	FixtureID          uuid.UUID           `json:"fixture_id"`
	League             string              `json:"league"`
	Season             string              `json:"season"`
	AsOfBucket         string              `json:"as_of_bucket"`
	HomeWinProb        float64             `json:"home_win_prob"`
	DrawProb           float64             `json:"draw_prob"`
	AwayWinProb        float64             `json:"away_win_prob"`
	PredictedScoreline Scoreline           `json:"predicted_scoreline"`
	BTTSProb           float64             `json:"btts_prob"`
	Over25Prob         float64             `json:"over25_prob"`
	Confidence         ConfidenceLevel     `json:"confidence_level"`
	Breakdown          []ModelContribution `json:"model_breakdown"`
	DegradedModelCount int                 `json:"degraded_model_count"`
	Degraded           bool                `json:"degraded"`
	AnalysisText       string              `json:"analysis_text"`
	WeightVersion      int                 `json:"weight_version"`
	ComputedAt         time.Time           `json:"computed_at"`
}

// Triple returns the prediction's outcome probabilities as a SubModelOutput
// for code paths that score the ensemble like any other model.
func (p *EnsemblePrediction) Triple() SubModelOutput {
	return SubModelOutput{
		ModelID:  "ensemble",
		HomeProb: p.HomeWinProb,
		DrawProb: p.DrawProb,
		AwayProb: p.AwayWinProb,
	}
}

// Favourite returns the most probable outcome
func (p *EnsemblePrediction) Favourite() Outcome {
	t := p.Triple()
	return t.Favourite()
}

// AsOfBucketFor truncates a time to the hourly bucket used in cache keys
// and memoization. A late team-news update within the same hour is handled
// by explicit invalidation, not by key churn.
func AsOfBucketFor(t time.Time) string {
	return t.UTC().Truncate(time.Hour).Format("2006-01-02T15")
}
