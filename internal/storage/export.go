// ABOUTME: Export and import functionality for health data.
// ABOUTME: Supports JSON and YAML export formats over any Repository.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for one user's data.
type ExportData struct {
	Version    string                `json:"version" yaml:"version"`
	ExportedAt time.Time             `json:"exported_at" yaml:"exported_at"`
	Tool       string                `json:"tool" yaml:"tool"`
	Profile    *models.HealthProfile `json:"profile,omitempty" yaml:"profile,omitempty"`
	Samples    []*models.Sample      `json:"samples" yaml:"samples"`
	Reports    []*models.Report      `json:"reports" yaml:"reports"`
}

const exportVersion = "1.0"

// collectExport gathers a user's data through the Repository interface.
func collectExport(ctx context.Context, r Repository, userID uuid.UUID) (*ExportData, error) {
	samples, err := r.ListSamples(ctx, userID, SampleFilter{})
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	reports, err := r.ListReports(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	profile, err := r.GetProfile(ctx, userID)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &ExportData{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Tool:       "healthdash",
		Profile:    profile,
		Samples:    samples,
		Reports:    reports,
	}, nil
}

// applyImport writes export data into r under userID. Existing IDs are
// regenerated so an export can be imported next to the data it came from.
func applyImport(ctx context.Context, r Repository, userID uuid.UUID, data *ExportData) error {
	if data.Profile != nil {
		p := *data.Profile
		p.UserID = userID
		if err := r.UpsertProfile(ctx, &p); err != nil {
			return fmt.Errorf("import profile: %w", err)
		}
	}

	samples := make([]*models.Sample, 0, len(data.Samples))
	for _, s := range data.Samples {
		c := *s
		c.ID = uuid.New()
		c.UserID = userID
		samples = append(samples, &c)
	}
	if err := r.CreateSamples(ctx, samples...); err != nil {
		return fmt.Errorf("import samples: %w", err)
	}

	for _, rep := range data.Reports {
		c := *rep
		c.ID = uuid.New()
		c.UserID = userID
		if err := r.CreateReport(ctx, &c); err != nil {
			return fmt.Errorf("import report: %w", err)
		}
	}
	return nil
}

// GetAllData retrieves all of a user's data for export.
func (d *DB) GetAllData(ctx context.Context, userID uuid.UUID) (*ExportData, error) {
	return collectExport(ctx, d, userID)
}

// ImportData imports data from an export file.
func (d *DB) ImportData(ctx context.Context, userID uuid.UUID, data *ExportData) error {
	return applyImport(ctx, d, userID, data)
}

// ExportJSON exports all data as JSON.
func ExportJSON(ctx context.Context, r Repository, userID uuid.UUID) ([]byte, error) {
	data, err := r.GetAllData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data as YAML with samples grouped by metric.
func ExportYAML(ctx context.Context, r Repository, userID uuid.UUID) ([]byte, error) {
	data, err := r.GetAllData(ctx, userID)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string                  `yaml:"version"`
		ExportedAt string                  `yaml:"exported_at"`
		Tool       string                  `yaml:"tool"`
		Profile    *models.HealthProfile   `yaml:"profile,omitempty"`
		Samples    map[string][]yamlSample `yaml:"samples"`
		Reports    []yamlReport            `yaml:"reports,omitempty"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Profile:    data.Profile,
		Samples:    make(map[string][]yamlSample),
	}

	for _, s := range data.Samples {
		key := string(s.Metric)
		yamlData.Samples[key] = append(yamlData.Samples[key], yamlSample{
			ID:       s.ID.String()[:8],
			Value:    s.Value.String(),
			Unit:     s.Metric.Unit(),
			LoggedAt: s.LoggedAt.Format(time.RFC3339),
		})
	}

	for _, rep := range data.Reports {
		yamlData.Reports = append(yamlData.Reports, yamlReport{
			ID:         rep.ID.String()[:8],
			Title:      rep.Title,
			Type:       string(rep.Type),
			Biomarkers: rep.Biomarkers,
			CreatedAt:  rep.CreatedAt.Format(time.RFC3339),
		})
	}

	return yaml.Marshal(yamlData)
}

type yamlSample struct {
	ID       string `yaml:"id"`
	Value    string `yaml:"value"`
	Unit     string `yaml:"unit,omitempty"`
	LoggedAt string `yaml:"logged_at"`
}

type yamlReport struct {
	ID         string             `yaml:"id"`
	Title      string             `yaml:"title"`
	Type       string             `yaml:"type"`
	Biomarkers map[string]float64 `yaml:"biomarkers,omitempty"`
	CreatedAt  string             `yaml:"created_at"`
}

// ImportJSON imports data from JSON bytes.
func ImportJSON(ctx context.Context, r Repository, userID uuid.UUID, raw []byte) error {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return r.ImportData(ctx, userID, &data)
}
