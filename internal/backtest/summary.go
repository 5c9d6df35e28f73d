package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/matchcast/internal/ensemble"
	"github.com/yourusername/matchcast/internal/models"
)

// UpdateAccuracySummaries recomputes the rolling accuracy rollups from the
// stored backtest records and pushes them to the repository and the metrics
// gauges.
func (e *Engine) UpdateAccuracySummaries(ctx context.Context) error {
	now := time.Now().UTC()
	windows := []struct {
		window models.AccuracyWindow
		since  time.Time
	}{
		{models.AccuracyWindow7Day, now.AddDate(0, 0, -7)},
		{models.AccuracyWindow30Day, now.AddDate(0, 0, -30)},
		{models.AccuracyWindowAll, time.Time{}},
	}

	for _, w := range windows {
		records, err := e.records.GetSince(ctx, w.since)
		if err != nil {
			return fmt.Errorf("failed to load records for window %s: %w", w.window, err)
		}

		summary := summarize(w.window, records, now, e.cfg.CalibrationBucketW, e.cfg.CalibrationMinBucket)
		if err := e.summaries.Upsert(ctx, summary); err != nil {
			return fmt.Errorf("failed to store summary for window %s: %w", w.window, err)
		}

		e.metrics.EnsembleBrier.WithLabelValues(string(w.window)).Set(summary.MeanBrier)
		e.metrics.OutcomeAccuracy.WithLabelValues(string(w.window)).Set(summary.OutcomeAccuracy)
	}

	return nil
}

// GetAccuracySummary returns the stored rollup for a window
func (e *Engine) GetAccuracySummary(ctx context.Context, window models.AccuracyWindow) (*models.AccuracySummary, error) {
	return e.summaries.GetByWindow(ctx, window)
}

func summarize(window models.AccuracyWindow, records []*models.BacktestRecord, now time.Time, bucketWidth float64, minBucket int) *models.AccuracySummary {
	summary := &models.AccuracySummary{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("matchcast-accuracy-"+string(window))),
		Window:      window,
		Samples:     len(records),
		ModelBrier:  make(map[string]float64),
		GeneratedAt: now,
	}
	if len(records) == 0 {
		return summary
	}

	correct := 0
	totalBrier := 0.0
	modelTotals := make(map[string]float64)
	modelCounts := make(map[string]int)
	var observations []ensemble.Observation

	for _, record := range records {
		if record.Correct {
			correct++
		}
		totalBrier += record.EnsembleBrier
		for modelID, brier := range record.ModelBrier {
			modelTotals[modelID] += brier
			modelCounts[modelID]++
		}
		if obs, ok := observationFromRecord(record); ok {
			observations = append(observations, obs)
		}
	}

	summary.OutcomeAccuracy = float64(correct) / float64(len(records))
	summary.MeanBrier = totalBrier / float64(len(records))
	for modelID, total := range modelTotals {
		summary.ModelBrier[modelID] = total / float64(modelCounts[modelID])
	}
	if params, err := ensemble.LearnCalibration(observations, bucketWidth, minBucket); err == nil {
		summary.CalibrationError = ensemble.ExpectedCalibrationError(params)
	}

	return summary
}

// observationFromRecord recovers the predicted triple from the stored
// prediction snapshot
func observationFromRecord(record *models.BacktestRecord) (ensemble.Observation, bool) {
	var prediction models.EnsemblePrediction
	if err := json.Unmarshal(record.PredictionSnapshot, &prediction); err != nil {
		return ensemble.Observation{}, false
	}
	return ensemble.Observation{
		Triple: prediction.Triple(),
		Actual: record.ActualOutcome,
	}, true
}
