// ABOUTME: Threshold-based health alerts from the latest metric values.
// ABOUTME: Fixed clinical rule table, priority sort, capped at five alerts.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/healthdash/internal/models"
)

// Severity of an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityPositive Severity = "positive"
)

// MaxAlerts caps the alert list.
const MaxAlerts = 5

// Alert is derived on every evaluation and never stored.
type Alert struct {
	ID                string            `json:"id"`
	Severity          Severity          `json:"severity"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	RecommendedAction string            `json:"recommended_action"`
	Metric            models.MetricName `json:"metric,omitempty"`
	Value             float64           `json:"value,omitempty"`
}

// Priority returns the sort weight of a severity. The high/medium/low names
// used by older clients map onto critical/warning/info.
func Priority(s Severity) int {
	switch strings.ToLower(string(s)) {
	case "critical", "high":
		return 1
	case "warning", "medium":
		return 2
	case "info", "low":
		return 3
	case "positive", "success":
		return 4
	}
	return 5
}

// screeningMarkers are the metrics that count as a comprehensive screening.
var screeningMarkers = []models.MetricName{
	models.MetricCholesterol, models.MetricBPSystolic, models.MetricGlucose,
}

// GenerateAlerts evaluates the rule table against the latest value of each
// metric. An empty input yields an empty list. Equal priorities keep rule
// order.
func GenerateAlerts(latest map[models.MetricName]float64, profile *models.HealthProfile, now time.Time) []Alert {
	if len(latest) == 0 {
		return []Alert{}
	}

	var alerts []Alert
	add := func(a *Alert) {
		if a != nil {
			alerts = append(alerts, *a)
		}
	}

	if v, ok := latest[models.MetricCholesterol]; ok {
		add(cholesterolAlert(v))
	}
	if v, ok := latest[models.MetricBPSystolic]; ok {
		add(bloodPressureAlert(v))
	}
	if v, ok := latest[models.MetricVitaminD]; ok {
		add(vitaminDAlert(v))
	}
	if v, ok := latest[models.MetricGlucose]; ok {
		add(glucoseAlert(v))
	}
	if bmi, ok := bmiFor(latest, profile); ok {
		add(bmiAlert(bmi))
	}
	if v, ok := latest[models.MetricHemoglobin]; ok {
		gender := ""
		if profile != nil {
			gender = profile.Gender
		}
		add(hemoglobinAlert(v, gender))
	}
	if profile.Age(now) >= 50 && !hasAny(latest, screeningMarkers) {
		add(&Alert{
			ID:                "screening-reminder",
			Severity:          SeverityInfo,
			Title:             "Health Screening",
			Message:           "No recent comprehensive screening on record. Adults over 50 benefit from regular cholesterol, blood pressure and glucose checks.",
			RecommendedAction: "Schedule annual screening",
		})
	}

	if len(alerts) == 0 {
		alerts = append(alerts, Alert{
			ID:                "overall-positive",
			Severity:          SeverityPositive,
			Title:             "Overall Health",
			Message:           "Your tracked metrics look good. Keep up the great work!",
			RecommendedAction: "Continue current routine",
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return Priority(alerts[i].Severity) < Priority(alerts[j].Severity)
	})
	if len(alerts) > MaxAlerts {
		alerts = alerts[:MaxAlerts]
	}
	return alerts
}

// Dismiss removes an alert from the current set. Nothing is remembered: the
// next evaluation produces it again if the rule still fires.
func Dismiss(alerts []Alert, id string) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func cholesterolAlert(v float64) *Alert {
	a := &Alert{Metric: models.MetricCholesterol, Value: v, Title: "Cholesterol Levels"}
	switch {
	case v > 200:
		a.ID, a.Severity = "cholesterol-critical", SeverityCritical
		a.Message = fmt.Sprintf("Your cholesterol (%.0f mg/dL) is above recommended levels.", v)
		a.RecommendedAction = "Schedule a follow-up with your doctor"
	case v > 180:
		a.ID, a.Severity = "cholesterol-warning", SeverityWarning
		a.Message = fmt.Sprintf("Your cholesterol (%.0f mg/dL) is borderline high. Consider dietary changes.", v)
		a.RecommendedAction = "Review diet and exercise"
	default:
		a.ID, a.Severity = "cholesterol-positive", SeverityPositive
		a.Message = "Your cholesterol is within a healthy range."
		a.RecommendedAction = "Continue current routine"
	}
	return a
}

func bloodPressureAlert(v float64) *Alert {
	a := &Alert{Metric: models.MetricBPSystolic, Value: v, Title: "Blood Pressure"}
	switch {
	case v > 140:
		a.ID, a.Severity = "blood-pressure-critical", SeverityCritical
		a.Message = fmt.Sprintf("Your systolic blood pressure (%.0f mmHg) is high. Consult doctor immediately.", v)
		a.RecommendedAction = "Consult doctor immediately"
	case v > 130:
		a.ID, a.Severity = "blood-pressure-warning", SeverityWarning
		a.Message = fmt.Sprintf("Your systolic blood pressure (%.0f mmHg) is elevated. Monitor closely.", v)
		a.RecommendedAction = "Monitor closely"
	default:
		a.ID, a.Severity = "blood-pressure-positive", SeverityPositive
		a.Message = "Your blood pressure is within optimal range. Keep it up!"
		a.RecommendedAction = "Continue current routine"
	}
	return a
}

func vitaminDAlert(v float64) *Alert {
	a := &Alert{Metric: models.MetricVitaminD, Value: v, Title: "Vitamin D"}
	switch {
	case v < 20:
		a.ID, a.Severity = "vitamin-d-critical", SeverityCritical
		a.Message = fmt.Sprintf("Your vitamin D (%.0f ng/mL) is deficient.", v)
		a.RecommendedAction = "Consult doctor about supplementation"
	case v < 30:
		a.ID, a.Severity = "vitamin-d-warning", SeverityWarning
		a.Message = fmt.Sprintf("Your vitamin D (%.0f ng/mL) is insufficient. Supplementation recommended.", v)
		a.RecommendedAction = "Consider supplementation"
	default:
		a.ID, a.Severity = "vitamin-d-positive", SeverityPositive
		a.Message = "Your vitamin D level is sufficient."
		a.RecommendedAction = "Continue current routine"
	}
	return a
}

// glucoseAlert returns nil in the normal range: no positive alert for glucose.
func glucoseAlert(v float64) *Alert {
	a := &Alert{Metric: models.MetricGlucose, Value: v, Title: "Blood Glucose"}
	switch {
	case v > 125:
		a.ID, a.Severity = "glucose-critical", SeverityCritical
		a.Message = fmt.Sprintf("Your fasting glucose (%.0f mg/dL) is high. Diabetes screening recommended.", v)
		a.RecommendedAction = "Diabetes screening recommended"
	case v > 100:
		a.ID, a.Severity = "glucose-warning", SeverityWarning
		a.Message = fmt.Sprintf("Your fasting glucose (%.0f mg/dL) is above normal.", v)
		a.RecommendedAction = "Reduce refined sugar and recheck"
	default:
		return nil
	}
	return a
}

func bmiAlert(bmi float64) *Alert {
	rounded := models.RoundTo(bmi, 2)
	switch {
	case bmi > 30:
		return &Alert{
			ID:                "bmi-warning",
			Severity:          SeverityWarning,
			Title:             "Body Mass Index",
			Message:           fmt.Sprintf("Your BMI of %.2f is in the obesity range.", rounded),
			RecommendedAction: "Discuss a weight management plan with your doctor",
			Metric:            models.MetricWeight,
			Value:             rounded,
		}
	case bmi > 25:
		return &Alert{
			ID:                "bmi-info",
			Severity:          SeverityInfo,
			Title:             "Body Mass Index",
			Message:           fmt.Sprintf("Your BMI of %.2f is in the overweight range.", rounded),
			RecommendedAction: "Increase activity and review diet",
			Metric:            models.MetricWeight,
			Value:             rounded,
		}
	}
	return nil
}

func hemoglobinAlert(v float64, gender string) *Alert {
	low, high := 13.5, 17.5
	if strings.EqualFold(gender, "female") {
		low, high = 12.0, 15.5
	}

	switch {
	case v < low:
		return &Alert{
			ID:                "hemoglobin-warning",
			Severity:          SeverityWarning,
			Title:             "Hemoglobin",
			Message:           fmt.Sprintf("Your hemoglobin (%.1f g/dL) is low, indicating possible anemia.", v),
			RecommendedAction: "Consult doctor about iron levels",
			Metric:            models.MetricHemoglobin,
			Value:             v,
		}
	case v > high:
		return &Alert{
			ID:                "hemoglobin-info",
			Severity:          SeverityInfo,
			Title:             "Hemoglobin",
			Message:           fmt.Sprintf("Your hemoglobin (%.1f g/dL) is above the typical range.", v),
			RecommendedAction: "Mention at your next checkup",
			Metric:            models.MetricHemoglobin,
			Value:             v,
		}
	}
	return nil
}

// bmiFor uses the latest logged weight, falling back to the profile weight.
func bmiFor(latest map[models.MetricName]float64, profile *models.HealthProfile) (float64, bool) {
	if profile == nil {
		return 0, false
	}
	weight, ok := latest[models.MetricWeight]
	if !ok {
		weight = profile.WeightKg
	}
	return models.BMI(weight, profile.HeightCm)
}

func hasAny(latest map[models.MetricName]float64, metrics []models.MetricName) bool {
	for _, m := range metrics {
		if _, ok := latest[m]; ok {
			return true
		}
	}
	return false
}
