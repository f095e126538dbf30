// ABOUTME: Sample operations for SQL storage.
// ABOUTME: Range/metric listing, prefix lookup and transactional day replacement.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
)

const sampleColumns = `id, user_id, metric, value_num, value_text, logged_at, created_at`

// CreateSamples stores samples in one transaction.
func (d *DB) CreateSamples(ctx context.Context, samples ...*models.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		return d.insertSamples(ctx, tx, samples)
	})
}

func (d *DB) insertSamples(ctx context.Context, q querier, samples []*models.Sample) error {
	query := `INSERT INTO samples (` + sampleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, s := range samples {
		num, text := s.Value.Encode()
		created := s.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		_, err := d.exec(ctx, q, query,
			s.ID.String(),
			s.UserID.String(),
			string(s.Metric),
			num,
			text,
			formatTime(s.LoggedAt),
			formatTime(created),
		)
		if err != nil {
			return fmt.Errorf("create sample: %w", err)
		}
	}
	return nil
}

// GetSample retrieves a sample by ID or ID prefix.
func (d *DB) GetSample(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Sample, error) {
	id, err := d.resolveID(ctx, "samples", userID.String(), idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("get sample: %w", err)
	}

	rows, err := d.query(ctx, d.db,
		`SELECT `+sampleColumns+` FROM samples WHERE user_id = ? AND id = ?`, userID.String(), id)
	if err != nil {
		return nil, fmt.Errorf("get sample: %w", err)
	}
	defer rows.Close()

	samples, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("get sample: %w", ErrNotFound)
	}
	return samples[0], nil
}

// ListSamples retrieves samples matching the filter, most recent first.
func (d *DB) ListSamples(ctx context.Context, userID uuid.UUID, f SampleFilter) ([]*models.Sample, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + sampleColumns + ` FROM samples WHERE user_id = ?`)
	args := []any{userID.String()}

	if !f.From.IsZero() {
		sb.WriteString(` AND logged_at >= ?`)
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		sb.WriteString(` AND logged_at <= ?`)
		args = append(args, formatTime(f.To))
	}
	if len(f.Metrics) > 0 {
		sb.WriteString(` AND metric IN (`)
		for i, m := range f.Metrics {
			if i > 0 {
				sb.WriteString(`, `)
			}
			sb.WriteString(`?`)
			args = append(args, string(m))
		}
		sb.WriteString(`)`)
	}
	sb.WriteString(` ORDER BY logged_at DESC, created_at DESC`)
	if f.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := d.query(ctx, d.db, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// DeleteSample removes a sample by ID or prefix.
func (d *DB) DeleteSample(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "samples", userID.String(), idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}

	result, err := d.exec(ctx, d.db, `DELETE FROM samples WHERE user_id = ? AND id = ?`, userID.String(), id)
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete sample %s: %w", idOrPrefix, ErrNotFound)
	}
	return nil
}

// ReplaceDay deletes the day's samples and inserts the new set in one
// transaction, so a failed insert leaves the old day intact.
func (d *DB) ReplaceDay(ctx context.Context, userID uuid.UUID, day time.Time, samples []*models.Sample) error {
	start, end := DayBounds(day)
	return d.withTx(ctx, func(tx *sql.Tx) error {
		_, err := d.exec(ctx, tx,
			`DELETE FROM samples WHERE user_id = ? AND logged_at >= ? AND logged_at < ? AND metric NOT LIKE ?`,
			userID.String(), formatTime(start), formatTime(end), models.GoalPrefix+"%")
		if err != nil {
			return fmt.Errorf("clear day: %w", err)
		}
		return d.insertSamples(ctx, tx, samples)
	})
}

// LatestValues returns the most recent sample per metric.
func (d *DB) LatestValues(ctx context.Context, userID uuid.UUID) (map[models.MetricName]*models.Sample, error) {
	rows, err := d.query(ctx, d.db, `
		SELECT `+sampleColumns+` FROM samples s
		WHERE s.user_id = ? AND s.logged_at = (
			SELECT MAX(logged_at) FROM samples
			WHERE user_id = s.user_id AND metric = s.metric
		)
		ORDER BY s.created_at`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("latest values: %w", err)
	}
	defer rows.Close()

	samples, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}
	latest := make(map[models.MetricName]*models.Sample, len(samples))
	for _, s := range samples {
		latest[s.Metric] = s
	}
	return latest, nil
}

// scanSamples scans multiple rows into a slice of Samples.
func scanSamples(rows *sql.Rows) ([]*models.Sample, error) {
	var samples []*models.Sample

	for rows.Next() {
		var s models.Sample
		var idStr, userStr, metric, loggedAt, createdAt string
		var num sql.NullFloat64
		var text sql.NullString

		if err := rows.Scan(&idStr, &userStr, &metric, &num, &text, &loggedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}

		s.ID, _ = uuid.Parse(idStr)
		s.UserID, _ = uuid.Parse(userStr)
		s.Metric = models.MetricName(metric)
		var numPtr *float64
		var textPtr *string
		if num.Valid {
			numPtr = &num.Float64
		}
		if text.Valid {
			textPtr = &text.String
		}
		s.Value = models.DecodeValue(s.Metric, numPtr, textPtr)
		s.LoggedAt = parseTime(loggedAt)
		s.CreatedAt = parseTime(createdAt)

		samples = append(samples, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan samples: %w", err)
	}
	return samples, nil
}
