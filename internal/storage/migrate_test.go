// ABOUTME: Tests for account migration between storage backends.
// ABOUTME: Covers sqlite-to-badger, badger-to-sqlite and duplicate accounts.
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
)

func openTestKV(t *testing.T) *KV {
	t.Helper()
	kv, err := OpenKV("")
	if err != nil {
		t.Fatalf("OpenKV failed: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func populate(t *testing.T, repo Repository) *models.User {
	t.Helper()
	ctx := context.Background()
	u := createTestUser(t, repo)
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	if err := repo.CreateSamples(ctx,
		numberSample(u.ID, models.MetricWeight, 82.5, at),
		numberSample(u.ID, models.MetricSteps, 9000, at.Add(time.Hour)),
		models.NewSample(u.ID, models.MetricMood, models.TextValue("good")).WithLoggedAt(at),
	); err != nil {
		t.Fatalf("CreateSamples failed: %v", err)
	}
	if err := repo.UpsertProfile(ctx, &models.HealthProfile{UserID: u.ID, Name: "Pat", HeightCm: 170}); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	r := models.NewReport(u.ID, "lipid-panel.pdf")
	r.ObjectKey = u.ID.String() + "/report.pdf"
	r.Biomarkers = map[string]float64{"totalCholesterol": 215}
	if err := repo.CreateReport(ctx, r); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	return u
}

func TestMigrateUser(t *testing.T) {
	tests := []struct {
		name     string
		src, dst func(t *testing.T) Repository
	}{
		{"sqlite to badger",
			func(t *testing.T) Repository { return setupTestDB(t) },
			func(t *testing.T) Repository { return openTestKV(t) }},
		{"badger to sqlite",
			func(t *testing.T) Repository { return openTestKV(t) },
			func(t *testing.T) Repository { return setupTestDB(t) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			src, dst := tt.src(t), tt.dst(t)
			u := populate(t, src)

			summary, err := MigrateUser(ctx, src, dst, u.ID)
			if err != nil {
				t.Fatalf("MigrateUser failed: %v", err)
			}
			if summary.Samples != 3 || summary.Reports != 1 || !summary.Profile {
				t.Errorf("unexpected summary: %+v", summary)
			}

			got, err := dst.GetUserByEmail(ctx, u.Email)
			if err != nil {
				t.Fatalf("GetUserByEmail failed: %v", err)
			}
			if got.ID != u.ID || got.PasswordHash != u.PasswordHash {
				t.Errorf("user not preserved: %+v", got)
			}

			want, _ := src.ListSamples(ctx, u.ID, SampleFilter{})
			samples, err := dst.ListSamples(ctx, u.ID, SampleFilter{})
			if err != nil {
				t.Fatalf("ListSamples failed: %v", err)
			}
			if len(samples) != len(want) {
				t.Fatalf("got %d samples, want %d", len(samples), len(want))
			}
			byID := make(map[string]string, len(samples))
			for _, s := range samples {
				byID[s.ID.String()] = s.Value.String()
			}
			for _, w := range want {
				if got, ok := byID[w.ID.String()]; !ok || got != w.Value.String() {
					t.Errorf("sample %s: got %q, want %q", w.ID, got, w.Value)
				}
			}

			p, err := dst.GetProfile(ctx, u.ID)
			if err != nil || p.Name != "Pat" {
				t.Errorf("profile not migrated: %+v (%v)", p, err)
			}
			reports, err := dst.ListReports(ctx, u.ID)
			if err != nil || len(reports) != 1 || reports[0].Biomarkers["totalCholesterol"] != 215 {
				t.Errorf("report not migrated: %v (%v)", reports, err)
			}
		})
	}
}

func TestMigrateUserExistingAccount(t *testing.T) {
	ctx := context.Background()
	src, dst := setupTestDB(t), openTestKV(t)
	u := populate(t, src)

	if _, err := MigrateUser(ctx, src, dst, u.ID); err != nil {
		t.Fatalf("first MigrateUser failed: %v", err)
	}
	_, err := MigrateUser(ctx, src, dst, u.ID)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate on second migration, got %v", err)
	}
}

func TestMigrateUserUnknown(t *testing.T) {
	_, err := MigrateUser(context.Background(), setupTestDB(t), openTestKV(t), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIsDirNonEmpty(t *testing.T) {
	dir := t.TempDir()

	empty, err := IsDirNonEmpty(dir)
	if err != nil || empty {
		t.Errorf("empty dir: got %v, %v", empty, err)
	}

	missing, err := IsDirNonEmpty(filepath.Join(dir, "missing"))
	if err != nil || missing {
		t.Errorf("missing dir: got %v, %v", missing, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	full, err := IsDirNonEmpty(dir)
	if err != nil || !full {
		t.Errorf("non-empty dir: got %v, %v", full, err)
	}
}
