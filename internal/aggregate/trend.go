// ABOUTME: Trend classification comparing recent and previous window means.
// ABOUTME: A 5% deadband keeps small fluctuations from flipping the direction.
package aggregate

import (
	"math"

	"github.com/harperreed/healthdash/internal/models"
)

// TrendDirection is up, down, or stable.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

const (
	trendWindow = 7
	deadbandHi  = 1.05
	deadbandLo  = 0.95
)

// TrendResult is the classification of one metric over a bucket series.
type TrendResult struct {
	Metric       models.MetricName `json:"metric"`
	Direction    TrendDirection    `json:"direction"`
	Magnitude    float64           `json:"magnitude"` // percent change, previous -> recent
	RecentMean   float64           `json:"recent_mean"`
	PreviousMean float64           `json:"previous_mean"`
	Points       int               `json:"points"`
	Synthetic    bool              `json:"synthetic"`
}

// Trend classifies a metric over an ordered bucket series. Real values are
// used when any exist; synthetic values only stand in when none do.
func Trend(buckets []Bucket, metric models.MetricName) TrendResult {
	values, synthetic := seriesValues(buckets, metric)
	result := TrendResult{
		Metric:    metric,
		Direction: TrendStable,
		Points:    len(values),
		Synthetic: synthetic,
	}

	n := len(values)
	if n < 2 {
		return result
	}

	recentLen := min(trendWindow, n)
	recent := values[n-recentLen:]
	previousLen := min(trendWindow, n-recentLen)
	previous := values[n-recentLen-previousLen : n-recentLen]

	result.RecentMean = models.RoundTo(mean(recent), 2)
	if len(previous) == 0 {
		return result
	}

	recentMean := mean(recent)
	previousMean := mean(previous)
	result.PreviousMean = models.RoundTo(previousMean, 2)

	switch {
	case recentMean > previousMean*deadbandHi:
		result.Direction = TrendUp
	case recentMean < previousMean*deadbandLo:
		result.Direction = TrendDown
	}
	if previousMean != 0 {
		result.Magnitude = models.RoundTo((recentMean-previousMean)/math.Abs(previousMean)*100, 1)
	}
	return result
}

// IsFavorable reports whether moving in dir is good for metric.
// Stable trends and metrics without an improving direction never are.
func IsFavorable(metric models.MetricName, dir TrendDirection) bool {
	switch models.Metrics[metric].Improving {
	case models.ImprovesUp:
		return dir == TrendUp
	case models.ImprovesDown:
		return dir == TrendDown
	}
	return false
}

func seriesValues(buckets []Bucket, metric models.MetricName) ([]float64, bool) {
	var actual, synthetic []float64
	for _, b := range buckets {
		p, ok := b.Values[metric]
		if !ok {
			continue
		}
		f, ok := p.Value.Float()
		if !ok {
			continue
		}
		if p.Synthetic {
			synthetic = append(synthetic, f)
		} else {
			actual = append(actual, f)
		}
	}
	if len(actual) > 0 {
		return actual, false
	}
	return synthetic, len(synthetic) > 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
