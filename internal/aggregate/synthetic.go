// ABOUTME: Deterministic placeholder values for charts with no real data.
// ABOUTME: Linear trend from a per-metric base plus bounded seeded jitter.
package aggregate

import (
	"hash/fnv"
	"math/rand/v2"

	"github.com/harperreed/healthdash/internal/models"
)

// syntheticCurve is base + slope*i + jitter, with |jitter| <= amplitude.
// Slopes are per day; monthly buckets scale them by 30.
type syntheticCurve struct {
	base      float64
	slope     float64
	amplitude float64
}

var syntheticCurves = map[models.MetricName]syntheticCurve{
	models.MetricWeight:      {base: 75, slope: -0.03, amplitude: 0.4},
	models.MetricHeartRate:   {base: 72, slope: -0.02, amplitude: 3},
	models.MetricBPSystolic:  {base: 128, slope: -0.09, amplitude: 3},
	models.MetricBPDiastolic: {base: 84, slope: -0.05, amplitude: 2},
	models.MetricSteps:       {base: 7500, slope: 25, amplitude: 1200},
	models.MetricSleepHours:  {base: 7, slope: 0.005, amplitude: 0.6},
	models.MetricWater:       {base: 6, slope: 0.02, amplitude: 1},
	models.MetricEnergy:      {base: 3.5, slope: 0.005, amplitude: 0.5},
	models.MetricCholesterol: {base: 195, slope: -0.17, amplitude: 2},
	models.MetricGlucose:     {base: 98, slope: -0.08, amplitude: 1.5},
	models.MetricVitaminD:    {base: 25, slope: 0.11, amplitude: 1},
	models.MetricHemoglobin:  {base: 13.5, slope: 0.008, amplitude: 0.1},
}

// fillSynthetic writes a synthetic point for metric into every bucket.
// Metrics without a curve are left empty.
func fillSynthetic(buckets []Bucket, metric models.MetricName, g Granularity, seed uint64) {
	curve, ok := syntheticCurves[metric]
	if !ok {
		return
	}

	slope := curve.slope
	if g == Month {
		slope *= 30
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(metric))
	rng := rand.New(rand.NewPCG(seed, h.Sum64()))

	for i := range buckets {
		jitter := (rng.Float64()*2 - 1) * curve.amplitude
		v := models.RoundTo(curve.base+slope*float64(i)+jitter, 1)
		if v < 0 {
			v = 0
		}
		buckets[i].Values[metric] = Point{Value: models.NumberValue(v), Synthetic: true}
	}
}
