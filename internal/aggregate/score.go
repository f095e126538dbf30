// ABOUTME: Health score snapshot from profile attributes and latest vitals.
// ABOUTME: Additive deductions from 100, floored at 20; 75 without a profile.
package aggregate

import (
	"strings"
	"time"

	"github.com/harperreed/healthdash/internal/models"
)

const (
	scoreBase      = 100
	scoreNoProfile = 75
	scoreFloor     = 20
)

// ComputeHealthScore returns an integer in [20,100]. It is deterministic for
// identical inputs.
func ComputeHealthScore(profile *models.HealthProfile, latest map[models.MetricName]float64, now time.Time) int {
	if profile == nil {
		return scoreNoProfile
	}

	score := scoreBase

	age := profile.Age(now)
	switch {
	case age > 60:
		score -= 10
	case age > 40:
		score -= 5
	}

	for _, c := range profile.ExistingConditions {
		if strings.TrimSpace(c) != "" {
			score -= 8
		}
	}

	switch strings.ToLower(profile.Lifestyle.Smoking) {
	case "daily", "yes":
		score -= 15
	case "occasional":
		score -= 8
	}

	switch strings.ToLower(profile.Lifestyle.Alcohol) {
	case "heavy":
		score -= 10
	case "moderate":
		score -= 5
	}

	switch strings.ToLower(profile.Lifestyle.Exercise) {
	case "none":
		score -= 12
	case "light":
		score -= 6
	}

	if sys, ok := latest[models.MetricBPSystolic]; ok {
		switch {
		case sys > 140:
			score -= 10
		case sys > 130:
			score -= 5
		}
	}

	if hr, ok := latest[models.MetricHeartRate]; ok {
		switch {
		case hr > 100:
			score -= 8
		case hr < 50:
			score -= 5
		}
	}

	if bmi, ok := bmiFor(latest, profile); ok {
		switch {
		case bmi > 30:
			score -= 15
		case bmi > 25:
			score -= 8
		case bmi < 18.5:
			score -= 8
		}
	}

	return max(scoreFloor, min(score, scoreBase))
}
