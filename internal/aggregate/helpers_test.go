// ABOUTME: Shared fixtures for aggregate tests.
// ABOUTME: Builds numeric samples at fixed UTC times.
package aggregate

import (
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
)

var testUser = uuid.MustParse("11111111-2222-3333-4444-555555555555")

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func num(metric models.MetricName, v float64, at time.Time) models.Sample {
	return models.Sample{
		ID:       uuid.New(),
		UserID:   testUser,
		Metric:   metric,
		Value:    models.NumberValue(v),
		LoggedAt: at,
	}
}

// dailySeries returns one sample per day starting at start.
func dailySeries(metric models.MetricName, start time.Time, values ...float64) []models.Sample {
	out := make([]models.Sample, 0, len(values))
	for i, v := range values {
		out = append(out, num(metric, v, start.AddDate(0, 0, i)))
	}
	return out
}
