// ABOUTME: Report metadata operations for SQL storage.
// ABOUTME: File contents live in the blob store; only metadata is kept here.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
)

const reportColumns = `id, user_id, title, description, report_type, object_key, url, size_bytes, biomarkers, insight, created_at`

// CreateReport stores report metadata.
func (d *DB) CreateReport(ctx context.Context, r *models.Report) error {
	var biomarkers *string
	if len(r.Biomarkers) > 0 {
		data, err := json.Marshal(r.Biomarkers)
		if err != nil {
			return fmt.Errorf("encode biomarkers: %w", err)
		}
		s := string(data)
		biomarkers = &s
	}

	_, err := d.exec(ctx, d.db,
		`INSERT INTO reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(),
		r.UserID.String(),
		r.Title,
		r.Description,
		string(r.Type),
		r.ObjectKey,
		r.URL,
		r.Size,
		biomarkers,
		r.Insight,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID or prefix.
func (d *DB) GetReport(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Report, error) {
	id, err := d.resolveID(ctx, "reports", userID.String(), idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	rows, err := d.query(ctx, d.db,
		`SELECT `+reportColumns+` FROM reports WHERE user_id = ? AND id = ?`, userID.String(), id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	defer rows.Close()

	reports, err := scanReports(rows)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("get report: %w", ErrNotFound)
	}
	return reports[0], nil
}

// ListReports returns the user's reports, newest first.
func (d *DB) ListReports(ctx context.Context, userID uuid.UUID) ([]*models.Report, error) {
	rows, err := d.query(ctx, d.db,
		`SELECT `+reportColumns+` FROM reports WHERE user_id = ? ORDER BY created_at DESC`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

// DeleteReport removes report metadata by ID or prefix.
func (d *DB) DeleteReport(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "reports", userID.String(), idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	result, err := d.exec(ctx, d.db, `DELETE FROM reports WHERE user_id = ? AND id = ?`, userID.String(), id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete report %s: %w", idOrPrefix, ErrNotFound)
	}
	return nil
}

func scanReports(rows *sql.Rows) ([]*models.Report, error) {
	var reports []*models.Report
	for rows.Next() {
		var r models.Report
		var idStr, userStr, reportType, createdAt string
		var description, url, biomarkers, insight sql.NullString

		err := rows.Scan(&idStr, &userStr, &r.Title, &description, &reportType, &r.ObjectKey,
			&url, &r.Size, &biomarkers, &insight, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}

		r.ID, _ = uuid.Parse(idStr)
		r.UserID, _ = uuid.Parse(userStr)
		r.Type = models.ReportType(reportType)
		r.Description = description.String
		r.URL = url.String
		r.Insight = insight.String
		r.CreatedAt = parseTime(createdAt)
		if biomarkers.Valid && biomarkers.String != "" {
			if err := json.Unmarshal([]byte(biomarkers.String), &r.Biomarkers); err != nil {
				return nil, fmt.Errorf("decode biomarkers: %w", err)
			}
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}
