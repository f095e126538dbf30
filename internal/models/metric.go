// ABOUTME: MetricName registry for tracked health metrics.
// ABOUTME: Defines units, value kinds, improving direction, and default targets.
package models

import (
	"strings"
)

// MetricName identifies a tracked metric. The set is open: names outside the
// registry are kept as custom metrics.
type MetricName string

const (
	// Vitals
	MetricWeight      MetricName = "weight"
	MetricHeartRate   MetricName = "heartRate"
	MetricBPSystolic  MetricName = "bloodPressureSystolic"
	MetricBPDiastolic MetricName = "bloodPressureDiastolic"

	// Daily activity
	MetricSteps      MetricName = "steps"
	MetricSleepHours MetricName = "sleepHours"
	MetricWater      MetricName = "water"
	MetricEnergy     MetricName = "energy"

	// Lab biomarkers
	MetricCholesterol MetricName = "cholesterol"
	MetricGlucose     MetricName = "glucose"
	MetricVitaminD    MetricName = "vitaminD"
	MetricHemoglobin  MetricName = "hemoglobin"

	// Free-form entries
	MetricMood     MetricName = "mood"
	MetricSymptoms MetricName = "symptoms"
)

// GoalPrefix marks samples that carry a user target for a metric.
const GoalPrefix = "goal_"

// ValueKind describes what a metric's values look like.
type ValueKind int

const (
	KindNumeric ValueKind = iota
	KindText
	KindStructured
)

// Direction is the clinically improving direction of a metric.
type Direction int

const (
	ImprovesNone Direction = iota
	ImprovesUp
	ImprovesDown
)

// MetricInfo is the static description of a known metric.
type MetricInfo struct {
	Label     string
	Unit      string
	Kind      ValueKind
	Improving Direction
	Target    float64 // zero when the metric has no default target
}

// Metrics is the registry of known metrics.
var Metrics = map[MetricName]MetricInfo{
	MetricWeight:      {Label: "Weight", Unit: "kg", Improving: ImprovesDown, Target: 70},
	MetricHeartRate:   {Label: "Heart Rate", Unit: "bpm", Improving: ImprovesDown, Target: 70},
	MetricBPSystolic:  {Label: "Systolic BP", Unit: "mmHg", Improving: ImprovesDown, Target: 120},
	MetricBPDiastolic: {Label: "Diastolic BP", Unit: "mmHg", Improving: ImprovesDown, Target: 80},
	MetricSteps:       {Label: "Daily Steps", Unit: "steps", Improving: ImprovesUp, Target: 10000},
	MetricSleepHours:  {Label: "Sleep", Unit: "hours", Improving: ImprovesUp, Target: 8},
	MetricWater:       {Label: "Water Intake", Unit: "glasses", Improving: ImprovesUp, Target: 8},
	MetricEnergy:      {Label: "Energy Level", Unit: "scale", Improving: ImprovesUp, Target: 4},
	MetricCholesterol: {Label: "Cholesterol", Unit: "mg/dL", Improving: ImprovesDown},
	MetricGlucose:     {Label: "Glucose", Unit: "mg/dL", Improving: ImprovesDown},
	MetricVitaminD:    {Label: "Vitamin D", Unit: "ng/mL", Improving: ImprovesUp},
	MetricHemoglobin:  {Label: "Hemoglobin", Unit: "g/dL", Improving: ImprovesUp},
	MetricMood:        {Label: "Mood", Unit: "", Kind: KindText},
	MetricSymptoms:    {Label: "Symptoms", Unit: "", Kind: KindStructured},
}

// ChartMetrics lists the metrics shown on progress charts, in display order.
var ChartMetrics = []MetricName{
	MetricWeight, MetricBPSystolic, MetricBPDiastolic, MetricHeartRate,
	MetricSteps, MetricSleepHours, MetricEnergy,
}

// legacyNames maps row keys written by older clients to canonical names.
var legacyNames = map[string]MetricName{
	"blood_pressure_systolic":  MetricBPSystolic,
	"blood_pressure_diastolic": MetricBPDiastolic,
	"bloodPressureSys":         MetricBPSystolic,
	"bloodPressureDia":         MetricBPDiastolic,
	"bloodPressure":            MetricBPSystolic,
	"bp_sys":                   MetricBPSystolic,
	"bp_dia":                   MetricBPDiastolic,
	"heart_rate":               MetricHeartRate,
	"sleep":                    MetricSleepHours,
	"sleep_hours":              MetricSleepHours,
	"vitamin_d":                MetricVitaminD,
}

// ParseMetricName normalizes a row key to a MetricName. Unknown keys are
// returned as-is; only blank keys are rejected.
func ParseMetricName(s string) (MetricName, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if name, ok := legacyNames[s]; ok {
		return name, true
	}
	return MetricName(s), true
}

// IsKnown reports whether the metric is in the registry.
func (m MetricName) IsKnown() bool {
	_, ok := Metrics[m]
	return ok
}

// Kind returns the value kind; custom metrics are numeric.
func (m MetricName) Kind() ValueKind {
	return Metrics[m].Kind
}

// Unit returns the display unit, empty for custom metrics.
func (m MetricName) Unit() string {
	return Metrics[m].Unit
}

// Label returns a display label, falling back to the raw name.
func (m MetricName) Label() string {
	if info, ok := Metrics[m]; ok {
		return info.Label
	}
	return string(m)
}

// IsGoal reports whether the name is a goal_* target row.
func (m MetricName) IsGoal() bool {
	return strings.HasPrefix(string(m), GoalPrefix)
}

// GoalFor returns the goal row name for a metric.
func GoalFor(m MetricName) MetricName {
	return MetricName(GoalPrefix + string(m))
}

// GoalTarget returns the metric a goal row targets.
func (m MetricName) GoalTarget() MetricName {
	name, _ := ParseMetricName(strings.TrimPrefix(string(m), GoalPrefix))
	return name
}

// DefaultTargets returns a fresh copy of the registry's default targets.
func DefaultTargets() map[MetricName]float64 {
	targets := make(map[MetricName]float64)
	for name, info := range Metrics {
		if info.Target != 0 {
			targets[name] = info.Target
		}
	}
	return targets
}
