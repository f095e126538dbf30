// ABOUTME: Report upload, listing and deletion.
// ABOUTME: Stores the file in a blob store and records metadata plus parsed biomarkers.
package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/blob"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
)

// MaxUploadSize caps report files.
const MaxUploadSize = 20 << 20

// ErrTooLarge is returned for files over MaxUploadSize.
var ErrTooLarge = fmt.Errorf("report exceeds %d MB", MaxUploadSize>>20)

// Service manages uploaded reports.
type Service struct {
	repo  storage.Repository
	blobs blob.Store
	now   func() time.Time
}

// NewService creates a report service.
func NewService(repo storage.Repository, blobs blob.Store) *Service {
	return &Service{repo: repo, blobs: blobs, now: time.Now}
}

// ObjectKey builds the storage key <userID>/<ulid>.<ext>.
func ObjectKey(userID uuid.UUID, filename string, at time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = "bin"
	}
	id := ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy())
	return fmt.Sprintf("%s/%s.%s", userID, id, ext)
}

// Upload stores a report file, extracts biomarkers and records one sample
// per biomarker that feeds the dashboard.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*models.Report, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, errors.New("report filename is required")
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, errors.New("report file is empty")
	}

	now := s.now()
	report := models.NewReport(userID, filename)
	report.CreatedAt = now
	report.Size = int64(len(data))
	report.ObjectKey = ObjectKey(userID, filename, now)
	report.URL = s.blobs.URL(report.ObjectKey)

	logger := log.With().Str("report_id", report.ID.String()).Str("file", filename).Logger()

	text, err := ExtractText(filename, data)
	switch {
	case err == nil:
		report.Biomarkers = ParseBiomarkers(text)
	case errors.Is(err, ErrUnsupported):
		logger.Debug().Msg("no text to extract")
	default:
		logger.Warn().Err(err).Msg("text extraction failed")
	}
	report.Insight = Insight(report.Biomarkers, now)

	if err := s.blobs.Put(ctx, report.ObjectKey, data, contentType(filename, data)); err != nil {
		return nil, fmt.Errorf("store report file: %w", err)
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		s.discardBlob(ctx, report.ObjectKey)
		return nil, fmt.Errorf("save report: %w", err)
	}

	if samples := biomarkerSamples(userID, report.Biomarkers, now); len(samples) > 0 {
		if err := s.repo.CreateSamples(ctx, samples...); err != nil {
			_ = s.repo.DeleteReport(ctx, userID, report.ID.String())
			s.discardBlob(ctx, report.ObjectKey)
			return nil, fmt.Errorf("save biomarker samples: %w", err)
		}
	}

	logger.Info().Int("biomarkers", len(report.Biomarkers)).Str("type", string(report.Type)).Msg("report uploaded")
	return report, nil
}

// List returns the user's reports, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Report, error) {
	reports, err := s.repo.ListReports(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// Open returns a report and a reader for its file.
func (s *Service) Open(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Report, io.ReadCloser, error) {
	report, err := s.repo.GetReport(ctx, userID, idOrPrefix)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, report.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return report, rc, nil
}

// Delete removes the report row, then its stored file. A file that cannot be
// removed is logged and left behind. Samples recorded from the report stay:
// they are readings in their own right.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	report, err := s.repo.GetReport(ctx, userID, idOrPrefix)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteReport(ctx, userID, report.ID.String()); err != nil {
		return err
	}
	s.discardBlob(ctx, report.ObjectKey)
	return nil
}

func (s *Service) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("orphaned report file")
	}
}

// Insight summarizes biomarkers with the highest-priority alert they raise.
func Insight(biomarkers map[string]float64, now time.Time) string {
	latest := make(map[models.MetricName]float64)
	for key, metric := range biomarkerMetrics {
		if v, ok := biomarkers[key]; ok {
			latest[metric] = v
		}
	}
	if len(latest) == 0 {
		if len(biomarkers) > 0 {
			return fmt.Sprintf("Recognised %d lipid values. Discuss the results with your doctor.", len(biomarkers))
		}
		return "No recognised lab values. Review the report with your doctor."
	}

	alerts := aggregate.GenerateAlerts(latest, nil, now)
	top := alerts[0]
	return fmt.Sprintf("%s: %s", top.Title, top.Message)
}

func biomarkerSamples(userID uuid.UUID, biomarkers map[string]float64, at time.Time) []*models.Sample {
	keys := make([]string, 0, len(biomarkers))
	for k := range biomarkers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var samples []*models.Sample
	for _, k := range keys {
		metric, ok := biomarkerMetrics[k]
		if !ok {
			continue
		}
		samples = append(samples, models.NewSample(userID, metric, models.NumberValue(biomarkers[k])).WithLoggedAt(at))
	}
	return samples
}

func contentType(filename string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
