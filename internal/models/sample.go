// ABOUTME: Sample model: one immutable time-stamped metric reading for a user.
// ABOUTME: Value holds exactly one of a number, a text, or structured JSON.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Value is the payload of a sample.
type Value struct {
	Number *float64        `json:"number,omitempty" yaml:"number,omitempty"`
	Text   *string         `json:"text,omitempty" yaml:"text,omitempty"`
	JSON   json.RawMessage `json:"json,omitempty" yaml:"json,omitempty"`
}

// NumberValue wraps a float.
func NumberValue(f float64) Value {
	return Value{Number: &f}
}

// TextValue wraps a string.
func TextValue(s string) Value {
	return Value{Text: &s}
}

// JSONValue wraps raw structured data.
func JSONValue(raw json.RawMessage) Value {
	return Value{JSON: raw}
}

// IsNumeric reports whether the value carries a number.
func (v Value) IsNumeric() bool {
	return v.Number != nil
}

// Float returns the numeric payload.
func (v Value) Float() (float64, bool) {
	if v.Number == nil {
		return 0, false
	}
	return *v.Number, true
}

// String renders the value for display.
func (v Value) String() string {
	switch {
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Text != nil:
		return *v.Text
	case len(v.JSON) > 0:
		return string(v.JSON)
	}
	return ""
}

// Encode returns the storage column form: numbers in value_num, everything else
// as text in value_text.
func (v Value) Encode() (num *float64, text *string) {
	switch {
	case v.Number != nil:
		return v.Number, nil
	case v.Text != nil:
		return nil, v.Text
	case len(v.JSON) > 0:
		s := string(v.JSON)
		return nil, &s
	}
	return nil, nil
}

// DecodeValue rebuilds a Value from its storage columns.
func DecodeValue(metric MetricName, num *float64, text *string) Value {
	if num != nil {
		return NumberValue(*num)
	}
	if text == nil {
		return Value{}
	}
	if metric.Kind() == KindStructured && json.Valid([]byte(*text)) {
		return JSONValue(json.RawMessage(*text))
	}
	return TextValue(*text)
}

// Sample is a single logged reading. Samples are never updated in place.
type Sample struct {
	ID        uuid.UUID  `json:"id" yaml:"id"`
	UserID    uuid.UUID  `json:"user_id" yaml:"user_id"`
	Metric    MetricName `json:"metric" yaml:"metric"`
	Value     Value      `json:"value" yaml:"value"`
	LoggedAt  time.Time  `json:"logged_at" yaml:"logged_at"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}

// NewSample creates a Sample with a generated ID logged now.
func NewSample(userID uuid.UUID, metric MetricName, value Value) *Sample {
	now := time.Now()
	return &Sample{
		ID:        uuid.New(),
		UserID:    userID,
		Metric:    metric,
		Value:     value,
		LoggedAt:  now,
		CreatedAt: now,
	}
}

// WithLoggedAt sets a custom logged_at timestamp.
func (s *Sample) WithLoggedAt(t time.Time) *Sample {
	s.LoggedAt = t
	return s
}

// Describe renders "<value> <unit>".
func (s *Sample) Describe() string {
	unit := s.Metric.Unit()
	if unit == "" || !s.Value.IsNumeric() {
		return s.Value.String()
	}
	return fmt.Sprintf("%s %s", s.Value.String(), unit)
}
