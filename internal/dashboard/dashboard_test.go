// ABOUTME: Tests for dashboard view assembly.
// ABOUTME: Covers ok, empty and unavailable views and profile handling.
package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
)

var now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, storage.Repository, uuid.UUID) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "dash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	user := models.NewUser("pat@example.com", "x")
	require.NoError(t, db.CreateUser(context.Background(), user))
	return NewService(db, nil), db, user.ID
}

func TestBuildEmpty(t *testing.T) {
	svc, _, userID := setup(t)

	view := svc.Build(context.Background(), userID, Request{Range: aggregate.Range7d, Now: now})
	assert.Equal(t, StatusEmpty, view.Status)
	assert.Empty(t, view.Error)
	assert.Len(t, view.Snapshot.Buckets, 7)
	assert.Empty(t, view.Snapshot.Alerts)
	assert.Equal(t, 75, view.Snapshot.Score)
	assert.Nil(t, view.Profile)
}

func TestBuildWithData(t *testing.T) {
	ctx := context.Background()
	svc, repo, userID := setup(t)

	var samples []*models.Sample
	for i := 0; i < 14; i++ {
		at := now.AddDate(0, 0, -13+i)
		samples = append(samples, models.NewSample(userID, models.MetricSteps, models.NumberValue(float64(5000+i*500))).WithLoggedAt(at))
	}
	samples = append(samples,
		models.NewSample(userID, models.MetricBPSystolic, models.NumberValue(150)).WithLoggedAt(now.Add(-time.Hour)),
		models.NewSample(userID, models.GoalFor(models.MetricSteps), models.NumberValue(12000)).WithLoggedAt(now.AddDate(0, -1, 0)),
	)
	require.NoError(t, repo.CreateSamples(ctx, samples...))
	require.NoError(t, repo.UpsertProfile(ctx, &models.HealthProfile{
		UserID:      userID,
		DateOfBirth: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
		HeightCm:    180,
		WeightKg:    80,
	}))

	view := svc.Build(ctx, userID, Request{Range: aggregate.Range30d, Now: now})
	require.Equal(t, StatusOK, view.Status)
	require.NotNil(t, view.Profile)

	snap := view.Snapshot
	assert.Len(t, snap.Buckets, 30)
	assert.Equal(t, aggregate.TrendUp, snap.Trends[models.MetricSteps].Direction)
	assert.True(t, snap.Favorable[models.MetricSteps])
	assert.Equal(t, 12000.0, snap.Targets[models.MetricSteps])
	require.NotEmpty(t, snap.Alerts)
	assert.Equal(t, "blood-pressure-critical", snap.Alerts[0].ID)
	// age 45 (-5), systolic > 140 (-10)
	assert.Equal(t, 85, snap.Score)
}

func TestBuildIgnoresFutureSamples(t *testing.T) {
	ctx := context.Background()
	svc, repo, userID := setup(t)

	require.NoError(t, repo.CreateSamples(ctx,
		models.NewSample(userID, models.MetricWeight, models.NumberValue(90)).WithLoggedAt(now.AddDate(0, 0, 2)),
	))
	view := svc.Build(ctx, userID, Request{Range: aggregate.Range7d, Now: now})
	assert.Equal(t, StatusEmpty, view.Status)
}

func TestBuildUnavailable(t *testing.T) {
	svc := NewService(failingRepo{err: errors.New("connection refused")}, nil)

	view := svc.Build(context.Background(), uuid.New(), Request{Now: now})
	assert.Equal(t, StatusUnavailable, view.Status)
	assert.Contains(t, view.Error, "connection refused")
	assert.Nil(t, view.Snapshot.Buckets)
}

func TestBuildCancelled(t *testing.T) {
	svc, _, userID := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	view := svc.Build(ctx, userID, Request{Now: now})
	assert.Equal(t, StatusUnavailable, view.Status)
}

// failingRepo fails every read.
type failingRepo struct {
	storage.Repository
	err error
}

func (f failingRepo) GetProfile(context.Context, uuid.UUID) (*models.HealthProfile, error) {
	return nil, storage.ErrNotFound
}

func (f failingRepo) ListSamples(context.Context, uuid.UUID, storage.SampleFilter) ([]*models.Sample, error) {
	return nil, f.err
}
