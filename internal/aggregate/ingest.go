// ABOUTME: Ingestion of raw tracking rows into typed samples.
// ABOUTME: Malformed rows are rejected one by one without aborting the batch.
package aggregate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
)

// RawRow is a row as read from the data store: {metric, value, logged_at}.
type RawRow struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Metric   string
	Value    any
	LoggedAt time.Time
}

// Rejection records why a row was skipped.
type Rejection struct {
	Row    RawRow
	Reason string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("reject %s row: %s", r.Row.Metric, r.Reason)
}

// Ingest converts rows into samples. Rows with an empty metric, a zero
// timestamp, or a value that does not fit the metric's kind are rejected.
func Ingest(rows []RawRow) ([]models.Sample, []Rejection) {
	samples := make([]models.Sample, 0, len(rows))
	var rejected []Rejection

	for _, row := range rows {
		metric, ok := models.ParseMetricName(row.Metric)
		if !ok {
			rejected = append(rejected, Rejection{Row: row, Reason: "empty metric name"})
			continue
		}
		if row.LoggedAt.IsZero() {
			rejected = append(rejected, Rejection{Row: row, Reason: "missing timestamp"})
			continue
		}

		value, err := coerce(metric, row.Value)
		if err != nil {
			rejected = append(rejected, Rejection{Row: row, Reason: err.Error()})
			continue
		}

		id := row.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		samples = append(samples, models.Sample{
			ID:        id,
			UserID:    row.UserID,
			Metric:    metric,
			Value:     value,
			LoggedAt:  row.LoggedAt,
			CreatedAt: row.LoggedAt,
		})
	}

	return samples, rejected
}

// Check applies Ingest's rules to samples about to be written and returns the
// first rejection, if any.
func Check(samples ...*models.Sample) error {
	_, rejected := Ingest(RowsFromSamples(samples))
	if len(rejected) > 0 {
		return rejected[0]
	}
	return nil
}

// RowsFromSamples turns stored samples back into raw rows so they pass through
// the same validation as freshly fetched data.
func RowsFromSamples(samples []*models.Sample) []RawRow {
	rows := make([]RawRow, 0, len(samples))
	for _, s := range samples {
		var v any
		switch {
		case s.Value.Number != nil:
			v = *s.Value.Number
		case s.Value.Text != nil:
			v = *s.Value.Text
		case len(s.Value.JSON) > 0:
			v = s.Value.JSON
		}
		rows = append(rows, RawRow{
			ID:       s.ID,
			UserID:   s.UserID,
			Metric:   string(s.Metric),
			Value:    v,
			LoggedAt: s.LoggedAt,
		})
	}
	return rows
}

func coerce(metric models.MetricName, v any) (models.Value, error) {
	switch metric.Kind() {
	case models.KindText:
		switch t := v.(type) {
		case string:
			return models.TextValue(t), nil
		case nil:
			return models.Value{}, fmt.Errorf("missing value")
		default:
			return models.TextValue(fmt.Sprint(t)), nil
		}
	case models.KindStructured:
		return coerceStructured(v)
	}

	// Goal rows and every custom metric are numeric.
	f, err := toFloat(v)
	if err != nil {
		return models.Value{}, err
	}
	return models.NumberValue(f), nil
}

func coerceStructured(v any) (models.Value, error) {
	switch t := v.(type) {
	case nil:
		return models.Value{}, fmt.Errorf("missing value")
	case json.RawMessage:
		if !json.Valid(t) {
			return models.Value{}, fmt.Errorf("invalid JSON value")
		}
		return models.JSONValue(t), nil
	case string:
		// Older clients stored arrays as JSON-encoded strings.
		if json.Valid([]byte(t)) {
			return models.JSONValue(json.RawMessage(t)), nil
		}
		return models.TextValue(t), nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return models.Value{}, fmt.Errorf("encode structured value: %w", err)
		}
		return models.JSONValue(data), nil
	}
}

func toFloat(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", t.String())
		}
		f = parsed
	case json.RawMessage:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", string(t))
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", t)
		}
		f = parsed
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value")
	}
	return f, nil
}
