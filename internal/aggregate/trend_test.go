// ABOUTME: Tests for trend classification and favorability.
// ABOUTME: Exercises window sizes and the exclusive 5% deadband.
package aggregate

import (
	"testing"
	"time"

	"github.com/harperreed/healthdash/internal/models"
)

func bucketsFor(metric models.MetricName, values ...float64) []Bucket {
	start := day(2025, time.January, 1, 0)
	end := start.AddDate(0, 0, max(len(values)-1, 0))
	return Bucketize(dailySeries(metric, start, values...), Day, start, end, FillOptions{})
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   TrendDirection
	}{
		{"no data", nil, TrendStable},
		{"single point", []float64{100}, TrendStable},
		{"two points up", []float64{100, 120}, TrendUp},
		{"two points down", []float64{100, 80}, TrendDown},
		{"exactly 5 percent is stable", []float64{100, 105}, TrendStable},
		{"exactly minus 5 percent is stable", []float64{100, 95}, TrendStable},
		{"seven points only recent", []float64{1, 2, 3, 4, 5, 6, 7}, TrendStable},
		{"fourteen points rising", []float64{10, 10, 10, 10, 10, 10, 10, 12, 12, 12, 12, 12, 12, 12}, TrendUp},
		{"windows ignore older history", []float64{50, 50, 50, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trend(bucketsFor(models.MetricSteps, tt.values...), models.MetricSteps)
			if got.Direction != tt.want {
				t.Errorf("direction = %s, want %s (recent %.2f previous %.2f)",
					got.Direction, tt.want, got.RecentMean, got.PreviousMean)
			}
		})
	}
}

func TestTrendMagnitude(t *testing.T) {
	got := Trend(bucketsFor(models.MetricWeight, 100, 90), models.MetricWeight)
	if got.Magnitude != -10 {
		t.Errorf("magnitude = %v, want -10", got.Magnitude)
	}
	if got.Points != 2 {
		t.Errorf("points = %d", got.Points)
	}
}

func TestTrendPrefersRealValues(t *testing.T) {
	start := day(2025, time.January, 1, 0)
	end := start.AddDate(0, 0, 9)
	buckets := Bucketize(nil, Day, start, end, FillOptions{
		Synthetic: true,
		Metrics:   []models.MetricName{models.MetricWeight},
		Seed:      7,
	})
	got := Trend(buckets, models.MetricWeight)
	if !got.Synthetic {
		t.Errorf("trend over synthetic-only data should be flagged")
	}

	buckets[9].Values[models.MetricWeight] = Point{Value: models.NumberValue(70), LoggedAt: end}
	got = Trend(buckets, models.MetricWeight)
	if got.Synthetic || got.Points != 1 || got.Direction != TrendStable {
		t.Errorf("real value should take over: %+v", got)
	}
}

func TestIsFavorable(t *testing.T) {
	tests := []struct {
		metric models.MetricName
		dir    TrendDirection
		want   bool
	}{
		{models.MetricSteps, TrendUp, true},
		{models.MetricSteps, TrendDown, false},
		{models.MetricWeight, TrendDown, true},
		{models.MetricCholesterol, TrendUp, false},
		{models.MetricSleepHours, TrendStable, false},
		{models.MetricName("custom"), TrendUp, false},
	}
	for _, tt := range tests {
		if got := IsFavorable(tt.metric, tt.dir); got != tt.want {
			t.Errorf("IsFavorable(%s, %s) = %v, want %v", tt.metric, tt.dir, got, tt.want)
		}
	}
}
