// ABOUTME: Period bucketing of samples into day or month buckets.
// ABOUTME: Latest sample wins per metric per bucket; every period in range is emitted.
package aggregate

import (
	"time"

	"github.com/harperreed/healthdash/internal/models"
)

// Granularity is the bucket period.
type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
)

// Point is one metric's value inside a bucket.
type Point struct {
	Value     models.Value `json:"value"`
	LoggedAt  time.Time    `json:"logged_at,omitempty"`
	Synthetic bool         `json:"synthetic"`
}

// Bucket is one period's consolidated view of all metrics.
type Bucket struct {
	Start  time.Time                   `json:"start"`
	Key    string                      `json:"key"`
	Values map[models.MetricName]Point `json:"values"`
}

// Number returns the bucket's numeric value for a metric.
func (b Bucket) Number(metric models.MetricName) (float64, bool) {
	p, ok := b.Values[metric]
	if !ok {
		return 0, false
	}
	return p.Value.Float()
}

// FillOptions controls gap filling.
type FillOptions struct {
	// Synthetic enables placeholder values for metrics with no real data in
	// the range. Off for production views.
	Synthetic bool
	// Metrics lists the metrics eligible for synthetic filling.
	Metrics []models.MetricName
	// Seed makes the jitter reproducible.
	Seed uint64
}

// Truncate returns the start of the period containing t, in loc.
func Truncate(t time.Time, g Granularity, loc *time.Location) time.Time {
	t = t.In(loc)
	if g == Month {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func next(t time.Time, g Granularity) time.Time {
	if g == Month {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// PeriodKey formats a period start as 2006-01-02 or 2006-01.
func PeriodKey(t time.Time, g Granularity) string {
	if g == Month {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// Bucketize groups samples into one bucket per period of [rangeStart, rangeEnd],
// in ascending order. Periods are computed in rangeStart's location. A reversed
// range yields no buckets.
func Bucketize(samples []models.Sample, g Granularity, rangeStart, rangeEnd time.Time, opts FillOptions) []Bucket {
	if rangeStart.After(rangeEnd) {
		return []Bucket{}
	}
	if g != Month {
		g = Day
	}

	loc := rangeStart.Location()
	first := Truncate(rangeStart, g, loc)
	last := Truncate(rangeEnd, g, loc)

	var buckets []Bucket
	index := make(map[string]int)
	for p := first; !p.After(last); p = next(p, g) {
		key := PeriodKey(p, g)
		index[key] = len(buckets)
		buckets = append(buckets, Bucket{
			Start:  p,
			Key:    key,
			Values: make(map[models.MetricName]Point),
		})
	}

	realData := make(map[models.MetricName]bool)
	for _, s := range samples {
		key := PeriodKey(Truncate(s.LoggedAt, g, loc), g)
		i, ok := index[key]
		if !ok {
			continue
		}
		cur, exists := buckets[i].Values[s.Metric]
		if exists && s.LoggedAt.Before(cur.LoggedAt) {
			continue
		}
		buckets[i].Values[s.Metric] = Point{Value: s.Value, LoggedAt: s.LoggedAt}
		realData[s.Metric] = true
	}

	if opts.Synthetic {
		for _, metric := range opts.Metrics {
			if realData[metric] {
				continue
			}
			fillSynthetic(buckets, metric, g, opts.Seed)
		}
	}

	return buckets
}
