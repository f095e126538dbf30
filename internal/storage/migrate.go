// ABOUTME: Data migration between healthdash storage backends.
// ABOUTME: Copies one account with its samples, profile and reports, keeping IDs.

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Samples int
	Reports int
	Profile bool
}

// MigrateUser copies an account and all of its data from src to dst. IDs and
// timestamps are preserved, so the destination must not already hold the
// account.
func MigrateUser(ctx context.Context, src, dst Repository, userID uuid.UUID) (*MigrateSummary, error) {
	u, err := src.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get source user: %w", err)
	}
	if err := dst.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("account %s already exists in destination: %w", u.Email, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	data, err := src.GetAllData(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read source data: %w", err)
	}

	summary := &MigrateSummary{}
	if data.Profile != nil {
		if err := dst.UpsertProfile(ctx, data.Profile); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		summary.Profile = true
	}

	if err := dst.CreateSamples(ctx, data.Samples...); err != nil {
		return nil, fmt.Errorf("create samples: %w", err)
	}
	summary.Samples = len(data.Samples)

	for _, r := range data.Reports {
		if err := dst.CreateReport(ctx, r); err != nil {
			return nil, fmt.Errorf("create report %s: %w", r.ID, err)
		}
		summary.Reports++
	}

	return summary, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
