// ABOUTME: Engine combines bucketing, trends, alerts and the score into one snapshot.
// ABOUTME: Also owns dashboard range parsing and latest-value/target extraction.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/healthdash/internal/models"
)

// Range is a dashboard time window name.
type Range string

const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
	Range12m Range = "12m"
)

// ParseRange accepts 7d, 30d, 90d and 12m. Empty means 30d.
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return Range30d, nil
	case Range7d, Range30d, Range90d, Range12m:
		return r, nil
	}
	return "", fmt.Errorf("unknown range %q (use 7d, 30d, 90d or 12m)", s)
}

// Window is a concrete evaluation window.
type Window struct {
	Range       Range       `json:"range"`
	Granularity Granularity `json:"granularity"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
}

// WindowFor resolves a range ending at now. 12m defaults to monthly buckets,
// everything else to daily; an explicit granularity overrides that.
func WindowFor(r Range, g Granularity, now time.Time) Window {
	w := Window{Range: r, End: now}
	switch r {
	case Range7d:
		w.Start = now.AddDate(0, 0, -6)
	case Range90d:
		w.Start = now.AddDate(0, 0, -89)
	case Range12m:
		w.Start = now.AddDate(0, -11, 0)
	default:
		w.Range = Range30d
		w.Start = now.AddDate(0, 0, -29)
	}

	switch g {
	case Day, Month:
		w.Granularity = g
	default:
		if w.Range == Range12m {
			w.Granularity = Month
		} else {
			w.Granularity = Day
		}
	}
	w.Start = Truncate(w.Start, w.Granularity, now.Location())
	return w
}

// Snapshot is everything a dashboard view needs for one window.
type Snapshot struct {
	Range       Range                             `json:"range"`
	Granularity Granularity                       `json:"granularity"`
	Buckets     []Bucket                          `json:"buckets"`
	Trends      map[models.MetricName]TrendResult `json:"trends"`
	Favorable   map[models.MetricName]bool        `json:"favorable"`
	Alerts      []Alert                           `json:"alerts"`
	Score       int                               `json:"score"`
	Latest      map[models.MetricName]float64     `json:"latest"`
	Targets     map[models.MetricName]float64     `json:"targets"`
	HasData     bool                              `json:"has_data"`
}

// Options configure an Engine.
type Options struct {
	// SyntheticFill enables placeholder chart values for metrics with no data.
	SyntheticFill bool
	// Seed for synthetic jitter.
	Seed uint64
	// Metrics charted and trended. Defaults to models.ChartMetrics plus the
	// lab biomarkers.
	Metrics []models.MetricName
}

// Engine evaluates samples into snapshots. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	opts Options
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	if len(opts.Metrics) == 0 {
		opts.Metrics = append(append([]models.MetricName{}, models.ChartMetrics...),
			models.MetricCholesterol, models.MetricGlucose, models.MetricVitaminD, models.MetricHemoglobin)
	}
	return &Engine{opts: opts}
}

// Metrics returns the metrics the engine charts.
func (e *Engine) Metrics() []models.MetricName {
	return append([]models.MetricName{}, e.opts.Metrics...)
}

// Evaluate builds a snapshot. Latest values and alerts consider all samples,
// not only the ones inside the window.
func (e *Engine) Evaluate(samples []models.Sample, profile *models.HealthProfile, w Window, now time.Time) Snapshot {
	data := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Metric.IsGoal() {
			data = append(data, s)
		}
	}

	buckets := Bucketize(data, w.Granularity, w.Start, w.End, FillOptions{
		Synthetic: e.opts.SyntheticFill,
		Metrics:   e.opts.Metrics,
		Seed:      e.opts.Seed,
	})

	snap := Snapshot{
		Range:       w.Range,
		Granularity: w.Granularity,
		Buckets:     buckets,
		Trends:      make(map[models.MetricName]TrendResult, len(e.opts.Metrics)),
		Favorable:   make(map[models.MetricName]bool, len(e.opts.Metrics)),
		Latest:      LatestValues(data),
		Targets:     Targets(samples),
		HasData:     len(data) > 0,
	}

	for _, m := range e.opts.Metrics {
		tr := Trend(buckets, m)
		snap.Trends[m] = tr
		snap.Favorable[m] = IsFavorable(m, tr.Direction)
	}

	snap.Alerts = GenerateAlerts(snap.Latest, profile, now)
	snap.Score = ComputeHealthScore(profile, snap.Latest, now)
	return snap
}

// LatestValues returns the newest numeric value per metric. Goal rows and
// non-numeric values are skipped.
func LatestValues(samples []models.Sample) map[models.MetricName]float64 {
	latest := make(map[models.MetricName]float64)
	at := make(map[models.MetricName]time.Time)
	for _, s := range samples {
		if s.Metric.IsGoal() {
			continue
		}
		f, ok := s.Value.Float()
		if !ok {
			continue
		}
		if prev, seen := at[s.Metric]; seen && s.LoggedAt.Before(prev) {
			continue
		}
		latest[s.Metric] = f
		at[s.Metric] = s.LoggedAt
	}
	return latest
}

// Targets merges the default targets with the newest goal_* row per metric.
func Targets(samples []models.Sample) map[models.MetricName]float64 {
	targets := models.DefaultTargets()
	goals := make([]models.Sample, 0)
	for _, s := range samples {
		if s.Metric.IsGoal() {
			goals = append(goals, s)
		}
	}
	sort.SliceStable(goals, func(i, j int) bool {
		return goals[i].LoggedAt.Before(goals[j].LoggedAt)
	})
	for _, g := range goals {
		if f, ok := g.Value.Float(); ok {
			targets[g.Metric.GoalTarget()] = f
		}
	}
	return targets
}
