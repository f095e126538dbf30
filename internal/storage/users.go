// ABOUTME: User account operations for SQL storage.
// ABOUTME: Emails are unique and stored normalized.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// CreateUser stores a new user. A taken email yields ErrDuplicate.
func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	_, err := d.exec(ctx, d.db,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID.String(), models.NormalizeEmail(u.Email), u.PasswordHash, formatTime(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (d *DB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := d.queryRow(ctx, d.db,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id.String())
	return scanUser(row)
}

// GetUserByEmail retrieves a user by normalized email.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := d.queryRow(ctx, d.db,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, models.NormalizeEmail(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var idStr, createdAt string
	if err := row.Scan(&idStr, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID, _ = uuid.Parse(idStr)
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
