// ABOUTME: Repository interface for health data storage.
// ABOUTME: Defines the contract for users, samples, profiles and reports.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous is returned when an ID prefix matches more than one record.
	ErrAmbiguous = errors.New("ambiguous prefix")
	// ErrDuplicate is returned when a unique key (e.g. email) already exists.
	ErrDuplicate = errors.New("already exists")
)

// SampleFilter narrows ListSamples. Zero values mean unbounded.
type SampleFilter struct {
	From    time.Time
	To      time.Time
	Metrics []models.MetricName
	Limit   int
}

// Repository defines the storage interface for health data.
// Every method is scoped to a single user except the user lookups.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Samples
	CreateSamples(ctx context.Context, samples ...*models.Sample) error
	GetSample(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Sample, error)
	ListSamples(ctx context.Context, userID uuid.UUID, f SampleFilter) ([]*models.Sample, error)
	DeleteSample(ctx context.Context, userID uuid.UUID, idOrPrefix string) error
	// ReplaceDay atomically swaps all samples logged on day (in day's
	// location) for the given ones.
	ReplaceDay(ctx context.Context, userID uuid.UUID, day time.Time, samples []*models.Sample) error
	LatestValues(ctx context.Context, userID uuid.UUID) (map[models.MetricName]*models.Sample, error)

	// Profiles
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.HealthProfile, error)
	UpsertProfile(ctx context.Context, p *models.HealthProfile) error

	// Reports
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Report, error)
	ListReports(ctx context.Context, userID uuid.UUID) ([]*models.Report, error)
	DeleteReport(ctx context.Context, userID uuid.UUID, idOrPrefix string) error

	// Export/Import
	GetAllData(ctx context.Context, userID uuid.UUID) (*ExportData, error)
	ImportData(ctx context.Context, userID uuid.UUID, data *ExportData) error

	// Lifecycle
	Close() error
}

// DayBounds returns [start, end) of the calendar day containing t, in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// isNotFound reports whether err wraps ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// isFullUUID reports whether s looks like a complete UUID rather than a prefix.
func isFullUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
