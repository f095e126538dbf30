// ABOUTME: Tests for report upload, listing, opening and deletion.
// ABOUTME: Uses a temporary SQLite repository and a local blob store.
package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/healthdash/internal/blob"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
)

func setupService(t *testing.T) (*Service, storage.Repository, *models.User) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	blobs, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	user := models.NewUser("pat@example.com", "x")
	require.NoError(t, db.CreateUser(context.Background(), user))

	svc := NewService(db, blobs)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	return svc, db, user
}

func TestUploadTextReport(t *testing.T) {
	ctx := context.Background()
	svc, repo, user := setupService(t)

	report, err := svc.Upload(ctx, user.ID, "lipid_panel.txt", strings.NewReader(labText))
	require.NoError(t, err)

	assert.Equal(t, models.ReportLipid, report.Type)
	assert.Equal(t, "lipid_panel.txt", report.Title)
	assert.True(t, strings.HasPrefix(report.ObjectKey, user.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(report.ObjectKey, ".txt"))
	assert.True(t, strings.HasPrefix(report.URL, "file://"))
	assert.Equal(t, int64(len(labText)), report.Size)
	assert.Equal(t, 215.0, report.Biomarkers[TotalCholesterol])
	assert.True(t, strings.HasPrefix(report.Insight, "Cholesterol Levels:"), report.Insight)

	stored, err := repo.GetReport(ctx, user.ID, report.ID.String())
	require.NoError(t, err)
	assert.Equal(t, report.ObjectKey, stored.ObjectKey)
	assert.Equal(t, report.Biomarkers, stored.Biomarkers)

	latest, err := repo.LatestValues(ctx, user.ID)
	require.NoError(t, err)
	for metric, want := range map[models.MetricName]float64{
		models.MetricCholesterol: 215,
		models.MetricVitaminD:    18.5,
		models.MetricHemoglobin:  11.2,
		models.MetricGlucose:     110,
	} {
		require.Contains(t, latest, metric)
		got, _ := latest[metric].Value.Float()
		assert.Equal(t, want, got, metric)
	}
	assert.NotContains(t, latest, models.MetricName(LDL))
}

func TestUploadBinaryReportKeepsFile(t *testing.T) {
	ctx := context.Background()
	svc, repo, user := setupService(t)

	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0x00, 0x00, 0x0d}
	report, err := svc.Upload(ctx, user.ID, "chest_scan.png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, models.ReportImaging, report.Type)
	assert.Empty(t, report.Biomarkers)
	assert.NotEmpty(t, report.Insight)

	_, rc, err := svc.Open(ctx, user.ID, report.ID.String()[:8])
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, data, got)

	samples, err := repo.ListSamples(ctx, user.ID, storage.SampleFilter{})
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestUploadRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, _, user := setupService(t)

	_, err := svc.Upload(ctx, user.ID, "empty.pdf", strings.NewReader(""))
	assert.Error(t, err)

	_, err = svc.Upload(ctx, user.ID, "", strings.NewReader("data"))
	assert.Error(t, err)

	big := io.LimitReader(zeroReader{}, MaxUploadSize+10)
	_, err = svc.Upload(ctx, user.ID, "huge.bin", big)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, user := setupService(t)

	first, err := svc.Upload(ctx, user.ID, "blood_work.txt", strings.NewReader("Hemoglobin 14"))
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	second, err := svc.Upload(ctx, user.ID, "urine.txt", strings.NewReader("clear"))
	require.NoError(t, err)

	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, user.ID, first.ID.String()))
	list, err = svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, _, err = svc.Open(ctx, user.ID, first.ID.String())
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	err = svc.Delete(ctx, user.ID, first.ID.String())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

type failingDeleteRepo struct {
	storage.Repository
}

func (failingDeleteRepo) DeleteReport(context.Context, uuid.UUID, string) error {
	return errors.New("disk full")
}

func TestDeleteKeepsFileWhenRowDeleteFails(t *testing.T) {
	ctx := context.Background()
	svc, repo, user := setupService(t)

	report, err := svc.Upload(ctx, user.ID, "blood_work.txt", strings.NewReader("Hemoglobin 14"))
	require.NoError(t, err)

	svc.repo = failingDeleteRepo{Repository: repo}
	require.Error(t, svc.Delete(ctx, user.ID, report.ID.String()))

	svc.repo = repo
	_, rc, err := svc.Open(ctx, user.ID, report.ID.String())
	require.NoError(t, err, "row and file both survive a failed delete")
	_ = rc.Close()
}

type failingBlobStore struct {
	blob.Store
}

func (failingBlobStore) Delete(context.Context, string) error {
	return errors.New("bucket unavailable")
}

func TestDeleteRemovesRowWhenFileDeleteFails(t *testing.T) {
	ctx := context.Background()
	svc, repo, user := setupService(t)

	report, err := svc.Upload(ctx, user.ID, "urine.txt", strings.NewReader("clear"))
	require.NoError(t, err)

	svc.blobs = failingBlobStore{Store: svc.blobs}
	require.NoError(t, svc.Delete(ctx, user.ID, report.ID.String()))

	_, err = repo.GetReport(ctx, user.ID, report.ID.String())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestObjectKeyDefaultsExtension(t *testing.T) {
	key := ObjectKey(models.NewUser("a@b.co", "").ID, "README", time.Now())
	assert.True(t, strings.HasSuffix(key, ".bin"))
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	return len(p), nil
}
