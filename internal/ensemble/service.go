package ensemble

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/matchcast/internal/cache"
	"github.com/yourusername/matchcast/internal/features"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/predictor"
)

// Service runs the full prediction pipeline: feature build, parallel
// sub-model dispatch, weighted combination and calibration.
type Service struct {
	builder        *features.Builder
	predictors     []predictor.Predictor
	weights        *WeightHolder
	cache          *cache.PredictionCache
	metrics        *metrics.Metrics
	computeTimeout time.Duration
	logger         *logrus.Logger
}

// NewService creates the prediction service
func NewService(
	builder *features.Builder,
	predictors []predictor.Predictor,
	weights *WeightHolder,
	predictionCache *cache.PredictionCache,
	m *metrics.Metrics,
	computeTimeout time.Duration,
	logger *logrus.Logger,
) *Service {
	return &Service{
		builder:        builder,
		predictors:     predictors,
		weights:        weights,
		cache:          predictionCache,
		metrics:        m,
		computeTimeout: computeTimeout,
		logger:         logger,
	}
}

// Predict returns the prediction for a fixture as of now, serving from
// cache when a prediction for the current hourly bucket exists. Concurrent
// requests for the same fixture share one computation.
func (s *Service) Predict(ctx context.Context, fixture *models.Fixture) (*models.EnsemblePrediction, error) {
	asOf := time.Now().UTC()
	key := cache.Key(fixture.ID.String(), fixture.Season, asOf)

	computed := false
	prediction, err := s.cache.GetOrCompute(key, func() (*models.EnsemblePrediction, error) {
		computed = true
		s.metrics.PredictionCacheMiss.Inc()

		// The computation outlives any single caller; cancellation of one
		// coalesced request must not fail the flight for the others
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.computeTimeout)
		defer cancel()
		return s.Compute(computeCtx, fixture, asOf)
	})
	if err != nil {
		return nil, err
	}
	if !computed {
		s.metrics.PredictionCacheHits.Inc()
	}
	return prediction, nil
}

// Compute runs the pipeline without touching the cache. The backtest engine
// uses this directly to replay pre-match predictions.
func (s *Service) Compute(ctx context.Context, fixture *models.Fixture, asOf time.Time) (*models.EnsemblePrediction, error) {
	start := time.Now()
	defer func() {
		s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	}()

	fv, err := s.builder.Build(ctx, fixture, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to build features for fixture %s: %w", fixture.ID, err)
	}

	outputs, failed := s.dispatch(ctx, fv)
	if len(outputs) == 0 {
		return nil, fmt.Errorf("fixture %s: all sub-models failed: %w", fixture.ID, models.ErrSubModelFailure)
	}

	cfg := s.weights.Current()
	combined, err := Combine(outputs, failed, cfg)
	if err != nil {
		return nil, err
	}

	calibrated := Calibrate(cfg.Calibration, combined.Triple)
	markets := AggregateMarkets(outputs)

	prediction := &models.EnsemblePrediction{
		FixtureID:          fixture.ID,
		League:             fixture.League,
		Season:             fixture.Season,
		AsOfBucket:         models.AsOfBucketFor(asOf),
		HomeWinProb:        calibrated.HomeProb,
		DrawProb:           calibrated.DrawProb,
		AwayWinProb:        calibrated.AwayProb,
		BTTSProb:           markets.BTTSProb,
		Over25Prob:         markets.Over25Prob,
		Breakdown:          combined.Breakdown,
		DegradedModelCount: combined.FailedModels,
		Degraded:           fv.Degraded || combined.FailedModels > 0,
		WeightVersion:      combined.WeightVersion,
		ComputedAt:         time.Now().UTC(),
	}
	if markets.Scoreline != nil {
		prediction.PredictedScoreline = *markets.Scoreline
	}
	prediction.Confidence = confidenceTier(calibrated)
	prediction.AnalysisText = analysisText(fixture, prediction)

	if prediction.Degraded {
		s.metrics.DegradedPredictions.Inc()
	}
	s.metrics.PredictionsTotal.WithLabelValues(string(prediction.Confidence)).Inc()

	s.logger.WithFields(logrus.Fields{
		"fixture_id": fixture.ID,
		"favourite":  prediction.Favourite(),
		"confidence": prediction.Confidence,
		"degraded":   prediction.Degraded,
	}).Debug("Computed prediction")

	return prediction, nil
}

// dispatch runs every sub-model concurrently. A panicking or failing model
// is recorded and excluded; the others are unaffected.
func (s *Service) dispatch(ctx context.Context, fv *models.FeatureVector) (outputs []models.SubModelOutput, failed []string) {
	type result struct {
		output models.SubModelOutput
		name   string
		err    error
	}

	results := make(chan result, len(s.predictors))
	var wg sync.WaitGroup
	for _, p := range s.predictors {
		wg.Add(1)
		go func(p predictor.Predictor) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results <- result{name: p.Name(), err: fmt.Errorf("panic: %v", r)}
				}
			}()
			out, err := p.Predict(ctx, fv)
			if err == nil {
				err = out.Validate()
			}
			results <- result{output: out, name: p.Name(), err: err}
		}(p)
	}
	wg.Wait()
	close(results)

	for r := range results {
		if r.err != nil {
			s.logger.WithField("model", r.name).Warnf("Sub-model failed: %v", r.err)
			s.metrics.SubModelFailures.WithLabelValues(r.name).Inc()
			failed = append(failed, r.name)
			continue
		}
		outputs = append(outputs, r.output)
	}

	sort.Slice(outputs, func(i, j int) bool { return outputs[i].ModelID < outputs[j].ModelID })
	sort.Strings(failed)
	return outputs, failed
}

// confidenceTier grades a triple by how decisively it separates the
// favourite from the second-most-likely outcome.
func confidenceTier(triple models.SubModelOutput) models.ConfidenceLevel {
	probs := []float64{triple.HomeProb, triple.DrawProb, triple.AwayProb}
	sort.Sort(sort.Reverse(sort.Float64Slice(probs)))
	top, margin := probs[0], probs[0]-probs[1]

	switch {
	case top >= 0.55 && margin >= 0.20:
		return models.ConfidenceHigh
	case top >= 0.45 && margin >= 0.10:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// analysisText renders a short human-readable summary of the prediction
func analysisText(fixture *models.Fixture, p *models.EnsemblePrediction) string {
	var b strings.Builder

	switch p.Favourite() {
	case models.OutcomeHomeWin:
		fmt.Fprintf(&b, "%s are favoured at home to %s (%.0f%%)",
			fixture.HomeTeam, fixture.AwayTeam, p.HomeWinProb*100)
	case models.OutcomeAwayWin:
		fmt.Fprintf(&b, "%s are favoured away at %s (%.0f%%)",
			fixture.AwayTeam, fixture.HomeTeam, p.AwayWinProb*100)
	default:
		fmt.Fprintf(&b, "%s and %s look evenly matched; the draw leads at %.0f%%",
			fixture.HomeTeam, fixture.AwayTeam, p.DrawProb*100)
	}

	fmt.Fprintf(&b, ". Most likely score %s.", p.PredictedScoreline)
	if p.Over25Prob >= 0.6 {
		b.WriteString(" Expect goals: over 2.5 is likely.")
	} else if p.Over25Prob > 0 && p.Over25Prob <= 0.35 {
		b.WriteString(" A low-scoring match is likely.")
	}
	if p.Degraded {
		b.WriteString(" Confidence reduced: some inputs were unavailable.")
	}
	return b.String()
}
