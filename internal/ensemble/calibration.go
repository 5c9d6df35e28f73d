package ensemble

import (
	"fmt"
	"math"

	"github.com/yourusername/matchcast/internal/models"
)

// Observation is one scored prediction used to learn calibration
type Observation struct {
	Triple models.SubModelOutput
	Actual models.Outcome
}

// Calibrate maps each outcome probability through the learned bucket
// correction and renormalizes. Buckets with too few samples are identity,
// and learned targets are clamped into their bucket, so reapplying the
// correction moves a triple by at most the renormalization drift.
func Calibrate(params models.CalibrationParams, triple models.SubModelOutput) models.SubModelOutput {
	if len(params.Buckets) == 0 {
		return triple
	}

	out := triple
	out.HomeProb = calibrateProb(params, triple.HomeProb)
	out.DrawProb = calibrateProb(params, triple.DrawProb)
	out.AwayProb = calibrateProb(params, triple.AwayProb)
	out.Normalize()
	return out
}

func calibrateProb(params models.CalibrationParams, p float64) float64 {
	for _, bucket := range params.Buckets {
		if !bucket.Contains(p) {
			continue
		}
		if bucket.Samples < params.MinSamples {
			return p
		}
		return bucket.Observed
	}
	return p
}

// LearnCalibration builds a bucketed reliability table from scored
// predictions. Every outcome dimension of every observation contributes one
// sample to the bucket its predicted probability falls in; the bucket's
// target is the observed hit frequency, clamped into the bucket so the
// correction is stable under reapplication. When the window is so small
// that no bucket could ever reach minSamples, there is nothing to learn and
// ErrCalibrationDataInsufficient is returned.
func LearnCalibration(observations []Observation, bucketWidth float64, minSamples int) (models.CalibrationParams, error) {
	if len(observations)*3 < minSamples {
		return models.CalibrationParams{}, fmt.Errorf(
			"%w: %d observations for a %d-sample bucket floor",
			models.ErrCalibrationDataInsufficient, len(observations), minSamples)
	}

	params := models.CalibrationParams{
		BucketWidth: bucketWidth,
		MinSamples:  minSamples,
	}

	buckets := int(math.Ceil(1.0 / bucketWidth))
	counts := make([]int, buckets)
	hits := make([]int, buckets)
	predictedSum := make([]float64, buckets)

	for _, obs := range observations {
		for _, outcome := range []models.Outcome{models.OutcomeHomeWin, models.OutcomeDraw, models.OutcomeAwayWin} {
			p := obs.Triple.OutcomeProb(outcome)
			idx := bucketIndex(p, bucketWidth, buckets)
			counts[idx]++
			predictedSum[idx] += p
			if outcome == obs.Actual {
				hits[idx]++
			}
		}
	}

	for i := 0; i < buckets; i++ {
		lower := float64(i) * bucketWidth
		upper := lower + bucketWidth
		bucket := models.CalibrationBucket{
			Lower:   lower,
			Upper:   upper,
			Samples: counts[i],
		}
		if counts[i] > 0 {
			bucket.Predicted = predictedSum[i] / float64(counts[i])
			bucket.Observed = clampIntoBucket(float64(hits[i])/float64(counts[i]), lower, upper)
		}
		params.Buckets = append(params.Buckets, bucket)
	}

	return params, nil
}

// ExpectedCalibrationError is the sample-weighted mean gap between
// predicted and observed frequency over the populated buckets.
func ExpectedCalibrationError(params models.CalibrationParams) float64 {
	total := 0
	weighted := 0.0
	for _, bucket := range params.Buckets {
		if bucket.Samples == 0 {
			continue
		}
		total += bucket.Samples
		weighted += float64(bucket.Samples) * math.Abs(bucket.Observed-bucket.Predicted)
	}
	if total == 0 {
		return 0
	}
	return weighted / float64(total)
}

func bucketIndex(p, width float64, buckets int) int {
	idx := int(p / width)
	if idx >= buckets {
		idx = buckets - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// clampIntoBucket keeps a learned target inside the bucket that produced
// it, so a calibrated probability re-enters the same bucket on reapplication.
func clampIntoBucket(target, lower, upper float64) float64 {
	const margin = 1e-9
	if target < lower {
		return lower
	}
	if target >= upper {
		return upper - margin
	}
	return target
}
