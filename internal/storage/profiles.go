// ABOUTME: Health profile operations for SQL storage.
// ABOUTME: The profile is stored as one JSON document per user.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
)

// GetProfile returns the user's profile or ErrNotFound.
func (d *DB) GetProfile(ctx context.Context, userID uuid.UUID) (*models.HealthProfile, error) {
	var data string
	err := d.queryRow(ctx, d.db, `SELECT data FROM profiles WHERE user_id = ?`, userID.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get profile: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var p models.HealthProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	p.UserID = userID
	return &p, nil
}

// UpsertProfile creates or replaces the user's profile.
func (d *DB) UpsertProfile(ctx context.Context, p *models.HealthProfile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = d.exec(ctx, d.db, `
		INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.UserID.String(), string(data), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
