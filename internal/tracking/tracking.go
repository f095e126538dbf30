// ABOUTME: Daily tracking log: one form's worth of readings for a calendar day.
// ABOUTME: Saving replaces the day's samples; goals are stored as goal_* samples.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
)

// DailyLog is the set of readings captured for one day. Zero fields are
// treated as not recorded.
type DailyLog struct {
	Steps      float64  `json:"steps,omitempty"`
	HeartRate  float64  `json:"heart_rate,omitempty"`
	Systolic   float64  `json:"systolic,omitempty"`
	Diastolic  float64  `json:"diastolic,omitempty"`
	WeightKg   float64  `json:"weight_kg,omitempty"`
	SleepHours float64  `json:"sleep_hours,omitempty"`
	Water      float64  `json:"water,omitempty"`
	Energy     float64  `json:"energy,omitempty"`
	Mood       string   `json:"mood,omitempty"`
	Symptoms   []string `json:"symptoms,omitempty"`
}

// IsEmpty reports whether nothing was recorded.
func (l DailyLog) IsEmpty() bool {
	return l.Steps == 0 && l.HeartRate == 0 && l.Systolic == 0 && l.Diastolic == 0 &&
		l.WeightKg == 0 && l.SleepHours == 0 && l.Water == 0 && l.Energy == 0 &&
		strings.TrimSpace(l.Mood) == "" && len(l.Symptoms) == 0
}

// Validate rejects negative or non-finite readings and an energy level outside 1-5.
func (l DailyLog) Validate() error {
	for metric, v := range l.numeric() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number", metric)
		}
		if v < 0 {
			return fmt.Errorf("%s cannot be negative", metric)
		}
	}
	if l.Energy != 0 && (l.Energy < 1 || l.Energy > 5) {
		return fmt.Errorf("energy must be between 1 and 5, got %v", l.Energy)
	}
	return nil
}

func (l DailyLog) numeric() map[models.MetricName]float64 {
	return map[models.MetricName]float64{
		models.MetricSteps:       l.Steps,
		models.MetricHeartRate:   l.HeartRate,
		models.MetricBPSystolic:  l.Systolic,
		models.MetricBPDiastolic: l.Diastolic,
		models.MetricWeight:      l.WeightKg,
		models.MetricSleepHours:  l.SleepHours,
		models.MetricWater:       l.Water,
		models.MetricEnergy:      l.Energy,
	}
}

// Samples converts the log into samples sharing the timestamp at.
func (l DailyLog) Samples(userID uuid.UUID, at time.Time) ([]*models.Sample, error) {
	var samples []*models.Sample
	for _, metric := range dailyMetrics {
		v := l.numeric()[metric]
		if v == 0 {
			continue
		}
		samples = append(samples, newSample(userID, metric, models.NumberValue(v), at))
	}
	if mood := strings.TrimSpace(l.Mood); mood != "" {
		samples = append(samples, newSample(userID, models.MetricMood, models.TextValue(mood), at))
	}
	if symptoms := cleanSymptoms(l.Symptoms); len(symptoms) > 0 {
		raw, err := json.Marshal(symptoms)
		if err != nil {
			return nil, fmt.Errorf("encode symptoms: %w", err)
		}
		samples = append(samples, newSample(userID, models.MetricSymptoms, models.JSONValue(raw), at))
	}
	return samples, nil
}

// dailyMetrics fixes the order samples are written in.
var dailyMetrics = []models.MetricName{
	models.MetricSteps, models.MetricHeartRate, models.MetricBPSystolic, models.MetricBPDiastolic,
	models.MetricWeight, models.MetricSleepHours, models.MetricWater, models.MetricEnergy,
}

func newSample(userID uuid.UUID, metric models.MetricName, v models.Value, at time.Time) *models.Sample {
	s := models.NewSample(userID, metric, v).WithLoggedAt(at)
	s.CreatedAt = at
	return s
}

func cleanSymptoms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Service reads and writes daily logs.
type Service struct {
	repo storage.Repository
}

// NewService creates a tracking service.
func NewService(repo storage.Repository) *Service {
	return &Service{repo: repo}
}

// Save replaces everything logged on at's calendar day with log. All new
// samples carry the timestamp at. Goal rows on that day are kept.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, at time.Time, l DailyLog) error {
	if err := l.Validate(); err != nil {
		return err
	}
	samples, err := l.Samples(userID, at)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceDay(ctx, userID, at, samples); err != nil {
		return fmt.Errorf("save daily log: %w", err)
	}
	log.Debug().Str("day", at.Format(time.DateOnly)).Int("samples", len(samples)).Msg("daily log saved")
	return nil
}

// Load returns the log for day's calendar day. When a metric was logged more
// than once that day, the latest value wins.
func (s *Service) Load(ctx context.Context, userID uuid.UUID, day time.Time) (DailyLog, error) {
	start, end := storage.DayBounds(day)
	samples, err := s.repo.ListSamples(ctx, userID, storage.SampleFilter{
		From: start,
		To:   end.Add(-time.Microsecond),
	})
	if err != nil {
		return DailyLog{}, fmt.Errorf("load daily log: %w", err)
	}

	var l DailyLog
	seen := make(map[models.MetricName]bool)
	// ListSamples is newest first, so the first row per metric is the latest.
	for _, smp := range samples {
		if seen[smp.Metric] {
			continue
		}
		seen[smp.Metric] = true
		apply(&l, smp)
	}
	return l, nil
}

func apply(l *DailyLog, s *models.Sample) {
	f, _ := s.Value.Float()
	switch s.Metric {
	case models.MetricSteps:
		l.Steps = f
	case models.MetricHeartRate:
		l.HeartRate = f
	case models.MetricBPSystolic:
		l.Systolic = f
	case models.MetricBPDiastolic:
		l.Diastolic = f
	case models.MetricWeight:
		l.WeightKg = f
	case models.MetricSleepHours:
		l.SleepHours = f
	case models.MetricWater:
		l.Water = f
	case models.MetricEnergy:
		l.Energy = f
	case models.MetricMood:
		l.Mood = s.Value.String()
	case models.MetricSymptoms:
		var symptoms []string
		if err := json.Unmarshal(s.Value.JSON, &symptoms); err == nil {
			l.Symptoms = symptoms
		} else if s.Value.Text != nil {
			l.Symptoms = []string{*s.Value.Text}
		}
	}
}

// SetGoal records a target for metric. The newest goal per metric wins.
func (s *Service) SetGoal(ctx context.Context, userID uuid.UUID, metric models.MetricName, value float64, at time.Time) (*models.Sample, error) {
	if metric.IsGoal() {
		metric = metric.GoalTarget()
	}
	if metric == "" || metric.Kind() != models.KindNumeric {
		return nil, fmt.Errorf("metric %q cannot have a numeric goal", metric)
	}
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("goal for %s must be a positive number", metric)
	}
	goal := newSample(userID, models.GoalFor(metric), models.NumberValue(value), at)
	if err := s.repo.CreateSamples(ctx, goal); err != nil {
		return nil, fmt.Errorf("set goal: %w", err)
	}
	return goal, nil
}

// Targets returns the default targets overridden by the user's goals.
func (s *Service) Targets(ctx context.Context, userID uuid.UUID) (map[models.MetricName]float64, error) {
	goals := make([]models.MetricName, 0, len(models.Metrics))
	for name := range models.Metrics {
		goals = append(goals, models.GoalFor(name))
	}
	samples, err := s.repo.ListSamples(ctx, userID, storage.SampleFilter{Metrics: goals})
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	values := make([]models.Sample, 0, len(samples))
	for _, smp := range samples {
		values = append(values, *smp)
	}
	return aggregate.Targets(values), nil
}
