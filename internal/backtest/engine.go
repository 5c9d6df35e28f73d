// Package backtest replays historical fixtures through the prediction
// pipeline, scores the results and re-learns model weights and calibration.
package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/matchcast/internal/config"
	"github.com/yourusername/matchcast/internal/ensemble"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/repository"
)

// RunOptions controls one backtest run
type RunOptions struct {
	// LookbackDays overrides the configured window when positive
	LookbackDays int
	// DryRun scores the window and reports, but commits nothing
	DryRun bool
}

// RunReport summarizes one backtest run
type RunReport struct {
	RunID           uuid.UUID          `json:"run_id"`
	Samples         int                `json:"samples"`
	SkippedFixtures int                `json:"skipped_fixtures"`
	Correct         int                `json:"correct"`
	Accuracy        float64            `json:"accuracy"`
	MeanBrier       float64            `json:"mean_brier"`
	ModelBrier      map[string]float64 `json:"model_brier"`
	NewWeights      map[string]float64 `json:"new_weights,omitempty"`
	NewVersion      int                `json:"new_version,omitempty"`
	WeightsUpdated  bool               `json:"weights_updated"`
	DryRun          bool               `json:"dry_run"`
	Duration        time.Duration      `json:"duration"`
}

// Engine runs backtests. At most one run is active at a time; a second
// trigger while one is running fails fast instead of queueing.
type Engine struct {
	fixtures    repository.FixtureRepository
	records     repository.BacktestRecordRepository
	weightsRepo repository.WeightConfigRepository
	summaries   repository.AccuracySummaryRepository
	prediction  *ensemble.Service
	weights     *ensemble.WeightHolder
	metrics     *metrics.Metrics
	cfg         config.BacktestConfig
	logger      *logrus.Logger

	mu sync.Mutex
}

// NewEngine creates a backtest engine
func NewEngine(
	repos *repository.Repositories,
	prediction *ensemble.Service,
	weights *ensemble.WeightHolder,
	m *metrics.Metrics,
	cfg config.BacktestConfig,
	logger *logrus.Logger,
) *Engine {
	return &Engine{
		fixtures:    repos.Fixture,
		records:     repos.BacktestRecord,
		weightsRepo: repos.WeightConfig,
		summaries:   repos.AccuracySummary,
		prediction:  prediction,
		weights:     weights,
		metrics:     m,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run replays the lookback window, appends scored records and, when enough
// samples accumulated, commits and activates a new weight configuration.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if !e.mu.TryLock() {
		return nil, models.ErrBacktestInProgress
	}
	defer e.mu.Unlock()

	start := time.Now()
	report := &RunReport{
		RunID:  uuid.New(),
		DryRun: opts.DryRun,
	}

	lookbackDays := e.cfg.LookbackDays
	if opts.LookbackDays > 0 {
		lookbackDays = opts.LookbackDays
	}
	windowEnd := time.Now().UTC()
	windowStart := windowEnd.AddDate(0, 0, -lookbackDays)

	e.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"from":    windowStart.Format(time.DateOnly),
		"to":      windowEnd.Format(time.DateOnly),
		"dry_run": opts.DryRun,
	}).Info("Starting backtest run")

	fixtures, err := e.fixtures.GetCompletedBetween(ctx, windowStart, windowEnd)
	if err != nil {
		e.metrics.BacktestRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load completed fixtures: %w", err)
	}

	records, observations, modelErrors := e.replay(ctx, report.RunID, fixtures, report)
	report.Samples = len(records)
	report.Duration = time.Since(start)

	if report.Samples > 0 {
		totalBrier := 0.0
		for _, record := range records {
			totalBrier += record.EnsembleBrier
			if record.Correct {
				report.Correct++
			}
		}
		report.Accuracy = float64(report.Correct) / float64(report.Samples)
		report.MeanBrier = totalBrier / float64(report.Samples)
		report.ModelBrier = meanModelBrier(modelErrors)
	}

	if !opts.DryRun && len(records) > 0 {
		if err := e.records.InsertBatch(ctx, records); err != nil {
			e.metrics.BacktestRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to persist backtest records: %w", err)
		}
	}

	if report.Samples < e.cfg.MinSamples {
		e.logger.WithFields(logrus.Fields{
			"samples": report.Samples,
			"needed":  e.cfg.MinSamples,
		}).Warn("Too few samples, keeping current weights")
		e.metrics.BacktestRuns.WithLabelValues("skipped").Inc()
		report.Duration = time.Since(start)
		return report, nil
	}

	newCfg := e.learnConfig(report, observations)
	report.NewWeights = newCfg.Weights
	report.NewVersion = newCfg.Version

	if !opts.DryRun {
		if err := e.weightsRepo.InsertAndActivate(ctx, newCfg); err != nil {
			e.metrics.BacktestRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to activate weight config: %w", err)
		}
		e.weights.Swap(newCfg)
		report.WeightsUpdated = true
		e.metrics.ActiveWeightVersion.Set(float64(newCfg.Version))

		if err := e.UpdateAccuracySummaries(ctx); err != nil {
			e.logger.Warnf("Failed to refresh accuracy summaries: %v", err)
		}
	}

	e.metrics.BacktestRuns.WithLabelValues("success").Inc()
	e.metrics.BacktestDuration.Observe(time.Since(start).Seconds())
	e.metrics.BacktestSampleSize.Set(float64(report.Samples))

	report.Duration = time.Since(start)
	e.logger.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"samples":   report.Samples,
		"accuracy":  fmt.Sprintf("%.3f", report.Accuracy),
		"brier":     fmt.Sprintf("%.4f", report.MeanBrier),
		"version":   report.NewVersion,
		"committed": report.WeightsUpdated,
	}).Info("Backtest run complete")

	return report, nil
}

// modelScore accumulates a sub-model's Brier total over the fixtures it
// actually produced output for.
type modelScore struct {
	total float64
	count int
}

// replay recomputes the pre-match prediction for each completed fixture and
// scores it against the actual result. A fixture that cannot be replayed is
// skipped; it does not abort the run.
func (e *Engine) replay(ctx context.Context, runID uuid.UUID, fixtures []*models.Fixture, report *RunReport) ([]*models.BacktestRecord, []ensemble.Observation, map[string]*modelScore) {
	var records []*models.BacktestRecord
	var observations []ensemble.Observation
	modelErrors := make(map[string]*modelScore)

	offset := time.Duration(e.cfg.PreMatchOffsetHours) * time.Hour
	for _, fixture := range fixtures {
		if !fixture.IsCompleted() {
			report.SkippedFixtures++
			continue
		}

		asOf := fixture.KickoffAt.Add(-offset)
		prediction, err := e.prediction.Compute(ctx, fixture, asOf)
		if err != nil {
			e.logger.WithField("fixture_id", fixture.ID).
				Warnf("Skipping fixture, replay failed: %v", err)
			report.SkippedFixtures++
			continue
		}

		actual := fixture.Result()
		triple := prediction.Triple()
		snapshot, err := json.Marshal(prediction)
		if err != nil {
			report.SkippedFixtures++
			continue
		}

		record := &models.BacktestRecord{
			ID:                 uuid.New(),
			RunID:              runID,
			FixtureID:          fixture.ID,
			League:             fixture.League,
			Season:             fixture.Season,
			PredictionSnapshot: snapshot,
			PredictedOutcome:   prediction.Favourite(),
			ActualOutcome:      actual,
			ActualHomeGoals:    *fixture.HomeGoals,
			ActualAwayGoals:    *fixture.AwayGoals,
			Correct:            prediction.Favourite() == actual,
			EnsembleBrier:      models.BrierScore(triple, actual),
			ModelBrier:         make(map[string]float64),
			KickoffAt:          fixture.KickoffAt,
			CreatedAt:          time.Now().UTC(),
		}
		for _, contribution := range prediction.Breakdown {
			if contribution.Failed {
				continue
			}
			brier := models.BrierScore(models.SubModelOutput{
				ModelID:  contribution.ModelID,
				HomeProb: contribution.HomeProb,
				DrawProb: contribution.DrawProb,
				AwayProb: contribution.AwayProb,
			}, actual)
			record.ModelBrier[contribution.ModelID] = brier
			score, ok := modelErrors[contribution.ModelID]
			if !ok {
				score = &modelScore{}
				modelErrors[contribution.ModelID] = score
			}
			score.total += brier
			score.count++
		}

		records = append(records, record)
		observations = append(observations, ensemble.Observation{Triple: triple, Actual: actual})
	}

	return records, observations, modelErrors
}

// learnConfig derives the next weight configuration from the run: weights
// inversely proportional to each model's mean Brier score, plus a fresh
// calibration table.
func (e *Engine) learnConfig(report *RunReport, observations []ensemble.Observation) *models.ModelWeightConfig {
	current := e.weights.Current()

	weights := make(map[string]float64, len(report.ModelBrier))
	for modelID, brier := range report.ModelBrier {
		weights[modelID] = 1.0 / (brier + e.cfg.WeightErrorFloor)
	}
	// A model with no output in this window gets zero weight until it
	// reappears in a later run
	for modelID := range current.Weights {
		if _, ok := weights[modelID]; !ok {
			weights[modelID] = 0
		}
	}

	calibration, err := ensemble.LearnCalibration(
		observations, e.cfg.CalibrationBucketW, e.cfg.CalibrationMinBucket)
	if err != nil {
		e.logger.Warnf("Keeping previous calibration table: %v", err)
		calibration = current.Calibration
	}

	return &models.ModelWeightConfig{
		ID:          uuid.New(),
		Version:     current.Version + 1,
		Weights:     models.NormalizeWeights(weights),
		Calibration: calibration,
		SampleSize:  report.Samples,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
}

// meanModelBrier averages each model's error over the fixtures that model
// scored, not the whole window, so a model that failed on some fixtures is
// not credited with a lower error than it earned.
func meanModelBrier(scores map[string]*modelScore) map[string]float64 {
	means := make(map[string]float64, len(scores))
	for modelID, score := range scores {
		if score.count == 0 {
			continue
		}
		means[modelID] = score.total / float64(score.count)
	}
	return means
}
