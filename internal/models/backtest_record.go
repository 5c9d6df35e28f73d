package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BacktestRecord captures one replayed fixture: the prediction the engine
// would have made pre-match, the actual result, and per-model error.
// Append-only; immutable once written.
type BacktestRecord struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	RunID              uuid.UUID          `db:"run_id" json:"run_id"`
	FixtureID          uuid.UUID          `db:"fixture_id" json:"fixture_id"`
	League             string             `db:"league" json:"league"`
	Season             string             `db:"season" json:"season"`
	PredictionSnapshot json.RawMessage    `db:"prediction_snapshot" json:"prediction_snapshot"`
	PredictedOutcome   Outcome            `db:"predicted_outcome" json:"predicted_outcome"`
	ActualOutcome      Outcome            `db:"actual_outcome" json:"actual_outcome"`
	ActualHomeGoals    int                `db:"actual_home_goals" json:"actual_home_goals"`
	ActualAwayGoals    int                `db:"actual_away_goals" json:"actual_away_goals"`
	Correct            bool               `db:"correct" json:"correct"`
	EnsembleBrier      float64            `db:"ensemble_brier" json:"ensemble_brier"`
	ModelBrier         map[string]float64 `db:"model_brier" json:"model_brier"`
	KickoffAt          time.Time          `db:"kickoff_at" json:"kickoff_at"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
}

// BrierScore computes the multiclass Brier score of a probability triple
// against the observed outcome. Lower is better; range [0,2].
func BrierScore(o SubModelOutput, actual Outcome) float64 {
	score := 0.0
	for _, outcome := range []Outcome{OutcomeHomeWin, OutcomeDraw, OutcomeAwayWin} {
		target := 0.0
		if outcome == actual {
			target = 1.0
		}
		diff := o.OutcomeProb(outcome) - target
		score += diff * diff
	}
	return score
}

// AccuracyWindow identifies a rollup horizon for accuracy summaries
type AccuracyWindow string

const (
	AccuracyWindow7Day  AccuracyWindow = "7d"
	AccuracyWindow30Day AccuracyWindow = "30d"
	AccuracyWindowAll   AccuracyWindow = "all"
)

// AccuracySummary is a rollup of backtest records over a window, exposed
// to the external metrics dashboard.
type AccuracySummary struct {
	ID               uuid.UUID          `db:"id" json:"id"`
	Window           AccuracyWindow     `db:"window" json:"window"`
	Samples          int                `db:"samples" json:"samples"`
	OutcomeAccuracy  float64            `db:"outcome_accuracy" json:"outcome_accuracy"`
	MeanBrier        float64            `db:"mean_brier" json:"mean_brier"`
	CalibrationError float64            `db:"calibration_error" json:"calibration_error"`
	ModelBrier       map[string]float64 `db:"model_brier" json:"model_brier"`
	GeneratedAt      time.Time          `db:"generated_at" json:"generated_at"`
}
