// ABOUTME: Report model for uploaded medical documents.
// ABOUTME: Classifies reports by filename and carries parsed biomarkers.
package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportType is the coarse category of an uploaded report.
type ReportType string

const (
	ReportBlood   ReportType = "blood"
	ReportLipid   ReportType = "lipid"
	ReportImaging ReportType = "imaging"
	ReportUrine   ReportType = "urine"
	ReportGeneral ReportType = "general"
)

// Report is an uploaded document plus what was extracted from it.
type Report struct {
	ID          uuid.UUID          `json:"id" yaml:"id"`
	UserID      uuid.UUID          `json:"user_id" yaml:"user_id"`
	Title       string             `json:"title" yaml:"title"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Type        ReportType         `json:"type" yaml:"type"`
	ObjectKey   string             `json:"object_key" yaml:"object_key"`
	URL         string             `json:"url,omitempty" yaml:"url,omitempty"`
	Size        int64              `json:"size" yaml:"size"`
	Biomarkers  map[string]float64 `json:"biomarkers,omitempty" yaml:"biomarkers,omitempty"`
	Insight     string             `json:"insight,omitempty" yaml:"insight,omitempty"`
	CreatedAt   time.Time          `json:"created_at" yaml:"created_at"`
}

// NewReport creates a Report for a file name, classifying it on the way.
func NewReport(userID uuid.UUID, filename string) *Report {
	return &Report{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       filepath.Base(filename),
		Description: "Uploaded file: " + filepath.Base(filename),
		Type:        ClassifyReport(filename),
		CreatedAt:   time.Now(),
	}
}

// ClassifyReport guesses the report type from its file name.
func ClassifyReport(filename string) ReportType {
	lower := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.Contains(lower, "blood") || strings.Contains(lower, "cbc"):
		return ReportBlood
	case strings.Contains(lower, "lipid") || strings.Contains(lower, "cholesterol"):
		return ReportLipid
	case strings.Contains(lower, "scan") || strings.Contains(lower, "mri") || strings.Contains(lower, "ct"):
		return ReportImaging
	case strings.Contains(lower, "urine"):
		return ReportUrine
	}
	return ReportGeneral
}
