// ABOUTME: Tests for Sample values and storage encoding.
// ABOUTME: Covers number/text/JSON round trips through the column form.
package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNewSample(t *testing.T) {
	userID := uuid.New()
	s := NewSample(userID, MetricWeight, NumberValue(82.5))

	if s.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if s.UserID != userID {
		t.Errorf("UserID = %v, want %v", s.UserID, userID)
	}
	if s.LoggedAt.IsZero() {
		t.Error("expected LoggedAt to be set")
	}
	if got := s.Describe(); got != "82.5 kg" {
		t.Errorf("Describe() = %q, want %q", got, "82.5 kg")
	}
}

func TestValueEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		metric MetricName
		value  Value
	}{
		{"number", MetricSteps, NumberValue(8000)},
		{"text", MetricMood, TextValue("good")},
		{"json", MetricSymptoms, JSONValue(json.RawMessage(`[{"text":"headache"}]`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			num, text := tt.value.Encode()
			got := DecodeValue(tt.metric, num, text)
			if got.String() != tt.value.String() {
				t.Errorf("round trip = %q, want %q", got.String(), tt.value.String())
			}
			if got.IsNumeric() != tt.value.IsNumeric() {
				t.Errorf("IsNumeric = %v, want %v", got.IsNumeric(), tt.value.IsNumeric())
			}
		})
	}
}

func TestDecodeValueInvalidJSONFallsBackToText(t *testing.T) {
	text := "not json"
	got := DecodeValue(MetricSymptoms, nil, &text)
	if got.Text == nil || *got.Text != "not json" {
		t.Errorf("expected text fallback, got %+v", got)
	}
}
