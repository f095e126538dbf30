// ABOUTME: HealthProfile model with basic info, medical history, lifestyle and genetics.
// ABOUTME: Consumed read-only by the aggregator for BMI and threshold context.
package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Lifestyle answers, using the option values of the profile questionnaire.
type Lifestyle struct {
	Smoking  string `json:"smoking,omitempty" yaml:"smoking,omitempty"`   // no, former, occasional, daily
	Alcohol  string `json:"alcohol,omitempty" yaml:"alcohol,omitempty"`   // none, occasional, moderate, heavy
	Exercise string `json:"exercise,omitempty" yaml:"exercise,omitempty"` // none, light, moderate, intense
	Diet     string `json:"diet,omitempty" yaml:"diet,omitempty"`
	Sleep    string `json:"sleep,omitempty" yaml:"sleep,omitempty"` // <5, 5-6, 7-8, 9+
	Stress   string `json:"stress,omitempty" yaml:"stress,omitempty"`
}

// HealthProfile holds a user's static health attributes.
type HealthProfile struct {
	UserID             uuid.UUID `json:"user_id" yaml:"user_id"`
	Name               string    `json:"name,omitempty" yaml:"name,omitempty"`
	DateOfBirth        time.Time `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	Gender             string    `json:"gender,omitempty" yaml:"gender,omitempty"`
	HeightCm           float64   `json:"height_cm,omitempty" yaml:"height_cm,omitempty"`
	WeightKg           float64   `json:"weight_kg,omitempty" yaml:"weight_kg,omitempty"`
	BloodType          string    `json:"blood_type,omitempty" yaml:"blood_type,omitempty"`
	ExistingConditions []string  `json:"existing_conditions,omitempty" yaml:"existing_conditions,omitempty"`
	Medications        []string  `json:"medications,omitempty" yaml:"medications,omitempty"`
	Allergies          []string  `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	FamilyHistory      []string  `json:"family_history,omitempty" yaml:"family_history,omitempty"`
	Ethnicity          string    `json:"ethnicity,omitempty" yaml:"ethnicity,omitempty"`
	RiskFactors        []string  `json:"risk_factors,omitempty" yaml:"risk_factors,omitempty"` // genetic markers, e.g. APOE4 variant
	Lifestyle          Lifestyle `json:"lifestyle" yaml:"lifestyle"`
	UpdatedAt          time.Time `json:"updated_at" yaml:"updated_at"`
}

// Age returns the age in whole years at now, or 0 when DateOfBirth is unset.
func (p *HealthProfile) Age(now time.Time) int {
	if p == nil || p.DateOfBirth.IsZero() || now.Before(p.DateOfBirth) {
		return 0
	}
	age := now.Year() - p.DateOfBirth.Year()
	dob := p.DateOfBirth
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// BMI computes weight / height(m)^2. It returns false when either input is
// missing.
func BMI(weightKg, heightCm float64) (float64, bool) {
	if weightKg <= 0 || heightCm <= 0 {
		return 0, false
	}
	m := heightCm / 100
	return weightKg / (m * m), true
}

// RoundTo rounds f to the given number of decimals.
func RoundTo(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(f*p) / p
}
