// ABOUTME: Tests for Repository interface implementations.
// ABOUTME: Runs the same CRUD checks against SQLite, Badger and (optionally) Postgres.
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

type backend struct {
	name string
	open func(t *testing.T) Repository
}

func backends() []backend {
	b := []backend{
		{"sqlite", func(t *testing.T) Repository { return setupTestDB(t) }},
		{"badger", func(t *testing.T) Repository {
			kv, err := OpenKV("")
			if err != nil {
				t.Fatalf("OpenKV failed: %v", err)
			}
			t.Cleanup(func() { _ = kv.Close() })
			return kv
		}},
	}
	if url := os.Getenv("HEALTHDASH_TEST_DATABASE_URL"); url != "" {
		b = append(b, backend{"postgres", func(t *testing.T) Repository {
			db, err := OpenPostgres(context.Background(), url)
			if err != nil {
				t.Fatalf("OpenPostgres failed: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })
			return db
		}})
	}
	return b
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "healthdash.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func createTestUser(t *testing.T, repo Repository) *models.User {
	t.Helper()
	u := models.NewUser(uuid.NewString()+"@example.com", "hash")
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

func numberSample(userID uuid.UUID, metric models.MetricName, v float64, at time.Time) *models.Sample {
	return models.NewSample(userID, metric, models.NumberValue(v)).WithLoggedAt(at)
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repo Repository)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func TestUsers(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := models.NewUser(" Alice@Example.com ", "bcrypt-hash")
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		got, err := repo.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != u.ID || got.PasswordHash != "bcrypt-hash" {
			t.Errorf("user mismatch: %+v", got)
		}

		dup := models.NewUser("ALICE@example.com", "other")
		if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}

		if _, err := repo.GetUser(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCreateAndGetSample(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := createTestUser(t, repo)

		s := numberSample(u.ID, models.MetricWeight, 82.5, time.Now().Add(-time.Hour))
		mood := models.NewSample(u.ID, models.MetricMood, models.TextValue("great"))
		symptoms := models.NewSample(u.ID, models.MetricSymptoms, models.JSONValue([]byte(`["cough","fatigue"]`)))
		if err := repo.CreateSamples(ctx, s, mood, symptoms); err != nil {
			t.Fatalf("CreateSamples failed: %v", err)
		}

		got, err := repo.GetSample(ctx, u.ID, s.ID.String())
		if err != nil {
			t.Fatalf("GetSample failed: %v", err)
		}
		if f, _ := got.Value.Float(); f != 82.5 {
			t.Errorf("Value mismatch: got %v", got.Value)
		}

		byPrefix, err := repo.GetSample(ctx, u.ID, s.ID.String()[:8])
		if err != nil {
			t.Fatalf("GetSample by prefix failed: %v", err)
		}
		if byPrefix.ID != s.ID {
			t.Errorf("ID mismatch: got %v, want %v", byPrefix.ID, s.ID)
		}

		gotMood, err := repo.GetSample(ctx, u.ID, mood.ID.String())
		if err != nil {
			t.Fatalf("GetSample mood failed: %v", err)
		}
		if gotMood.Value.Text == nil || *gotMood.Value.Text != "great" {
			t.Errorf("mood mismatch: %v", gotMood.Value)
		}

		gotSymptoms, err := repo.GetSample(ctx, u.ID, symptoms.ID.String())
		if err != nil {
			t.Fatalf("GetSample symptoms failed: %v", err)
		}
		if string(gotSymptoms.Value.JSON) != `["cough","fatigue"]` {
			t.Errorf("symptoms mismatch: %s", gotSymptoms.Value.JSON)
		}

		other := createTestUser(t, repo)
		if _, err := repo.GetSample(ctx, other.ID, s.ID.String()[:8]); !errors.Is(err, ErrNotFound) {
			t.Errorf("samples must be scoped to their user, got %v", err)
		}
	})
}

func TestListSamples(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := createTestUser(t, repo)
		base := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

		samples := []*models.Sample{
			numberSample(u.ID, models.MetricWeight, 82, base.Add(-48*time.Hour)),
			numberSample(u.ID, models.MetricWeight, 81, base.Add(-24*time.Hour)),
			numberSample(u.ID, models.MetricSteps, 9000, base),
		}
		if err := repo.CreateSamples(ctx, samples...); err != nil {
			t.Fatalf("CreateSamples failed: %v", err)
		}

		all, err := repo.ListSamples(ctx, u.ID, SampleFilter{})
		if err != nil {
			t.Fatalf("ListSamples failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 samples, got %d", len(all))
		}
		if all[0].Metric != models.MetricSteps {
			t.Errorf("expected most recent first, got %s", all[0].Metric)
		}

		weights, err := repo.ListSamples(ctx, u.ID, SampleFilter{Metrics: []models.MetricName{models.MetricWeight}})
		if err != nil {
			t.Fatalf("ListSamples by metric failed: %v", err)
		}
		if len(weights) != 2 {
			t.Errorf("expected 2 weight samples, got %d", len(weights))
		}

		ranged, err := repo.ListSamples(ctx, u.ID, SampleFilter{From: base.Add(-25 * time.Hour), To: base.Add(-time.Hour)})
		if err != nil {
			t.Fatalf("ListSamples by range failed: %v", err)
		}
		if len(ranged) != 1 {
			t.Errorf("expected 1 sample in range, got %d", len(ranged))
		}

		limited, err := repo.ListSamples(ctx, u.ID, SampleFilter{Limit: 2})
		if err != nil {
			t.Fatalf("ListSamples with limit failed: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 samples, got %d", len(limited))
		}
	})
}

func TestDeleteSample(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := createTestUser(t, repo)
		s := numberSample(u.ID, models.MetricHeartRate, 64, time.Now())
		if err := repo.CreateSamples(ctx, s); err != nil {
			t.Fatalf("CreateSamples failed: %v", err)
		}

		if err := repo.DeleteSample(ctx, u.ID, s.ID.String()[:8]); err != nil {
			t.Fatalf("DeleteSample failed: %v", err)
		}
		if _, err := repo.GetSample(ctx, u.ID, s.ID.String()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeleteSample(ctx, u.ID, "deadbeef"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReplaceDay(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := createTestUser(t, repo)
		day := time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)

		before := []*models.Sample{
			numberSample(u.ID, models.MetricSteps, 4000, day.Add(9*time.Hour)),
			numberSample(u.ID, models.MetricWater, 3, day.Add(10*time.Hour)),
			numberSample(u.ID, models.GoalFor(models.MetricSteps), 12000, day.Add(11*time.Hour)),
			numberSample(u.ID, models.MetricSteps, 7000, day.Add(-time.Hour)),
		}
		if err := repo.CreateSamples(ctx, before...); err != nil {
			t.Fatalf("CreateSamples failed: %v", err)
		}

		replacement := []*models.Sample{numberSample(u.ID, models.MetricSteps, 8000, day.Add(20*time.Hour))}
		if err := repo.ReplaceDay(ctx, u.ID, day.Add(12*time.Hour), replacement); err != nil {
			t.Fatalf("ReplaceDay failed: %v", err)
		}

		start, end := DayBounds(day)
		got, err := repo.ListSamples(ctx, u.ID, SampleFilter{From: start, To: end.Add(-time.Nanosecond)})
		if err != nil {
			t.Fatalf("ListSamples failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected replacement plus goal row, got %d", len(got))
		}
		for _, s := range got {
			if s.Metric == models.MetricWater {
				t.Errorf("old sample survived the replace")
			}
		}

		all, _ := repo.ListSamples(ctx, u.ID, SampleFilter{})
		if len(all) != 3 {
			t.Errorf("previous day must be untouched, got %d samples total", len(all))
		}
	})
}

func TestLatestValues(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := createTestUser(t, repo)
		now := time.Now()

		if err := repo.CreateSamples(ctx,
			numberSample(u.ID, models.MetricWeight, 80, now.Add(-48*time.Hour)),
			numberSample(u.ID, models.MetricWeight, 79, now.Add(-time.Hour)),
			numberSample(u.ID, models.MetricGlucose, 95, now.Add(-72*time.Hour)),
		); err != nil {
			t.Fatalf("CreateSamples failed: %v", err)
		}

		latest, err := repo.LatestValues(ctx, u.ID)
		if err != nil {
			t.Fatalf("LatestValues failed: %v", err)
		}
		if len(latest) != 2 {
			t.Fatalf("expected 2 metrics, got %d", len(latest))
		}
		if f, _ := latest[models.MetricWeight].Value.Float(); f != 79 {
			t.Errorf("latest weight = %v, want 79", f)
		}
	})
}

func TestProfiles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := createTestUser(t, repo)

		if _, err := repo.GetProfile(ctx, u.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		p := &models.HealthProfile{
			UserID:             u.ID,
			Name:               "Sam",
			HeightCm:           172,
			ExistingConditions: []string{"asthma"},
			BloodType:          "O+",
			Ethnicity:          "Ashkenazi Jewish",
			RiskFactors:        []string{"BRCA1/BRCA2 mutations", "Tay-Sachs carrier"},
			Lifestyle:          models.Lifestyle{Smoking: "no", Exercise: "moderate"},
		}
		if err := repo.UpsertProfile(ctx, p); err != nil {
			t.Fatalf("UpsertProfile failed: %v", err)
		}

		p.HeightCm = 173
		p.UpdatedAt = time.Time{}
		if err := repo.UpsertProfile(ctx, p); err != nil {
			t.Fatalf("second UpsertProfile failed: %v", err)
		}

		got, err := repo.GetProfile(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if got.HeightCm != 173 || got.Lifestyle.Exercise != "moderate" || len(got.ExistingConditions) != 1 {
			t.Errorf("profile mismatch: %+v", got)
		}
		if got.BloodType != "O+" || got.Ethnicity != "Ashkenazi Jewish" || len(got.RiskFactors) != 2 || got.RiskFactors[1] != "Tay-Sachs carrier" {
			t.Errorf("genetic info mismatch: %+v", got)
		}
	})
}

func TestReports(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := createTestUser(t, repo)

		older := models.NewReport(u.ID, "blood_test.pdf")
		older.CreatedAt = time.Now().Add(-time.Hour)
		older.ObjectKey = u.ID.String() + "/a.pdf"
		older.Biomarkers = map[string]float64{"hemoglobin": 13.1}
		newer := models.NewReport(u.ID, "mri_scan.png")
		newer.ObjectKey = u.ID.String() + "/b.png"

		for _, r := range []*models.Report{older, newer} {
			if err := repo.CreateReport(ctx, r); err != nil {
				t.Fatalf("CreateReport failed: %v", err)
			}
		}

		list, err := repo.ListReports(ctx, u.ID)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != newer.ID {
			t.Fatalf("expected newest first, got %d reports", len(list))
		}

		got, err := repo.GetReport(ctx, u.ID, older.ID.String()[:8])
		if err != nil {
			t.Fatalf("GetReport failed: %v", err)
		}
		if got.Type != models.ReportBlood || got.Biomarkers["hemoglobin"] != 13.1 {
			t.Errorf("report mismatch: %+v", got)
		}

		if err := repo.DeleteReport(ctx, u.ID, older.ID.String()); err != nil {
			t.Fatalf("DeleteReport failed: %v", err)
		}
		list, _ = repo.ListReports(ctx, u.ID)
		if len(list) != 1 {
			t.Errorf("expected 1 report after delete, got %d", len(list))
		}
	})
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: dialectPostgres}
	got := pg.rebind("SELECT * FROM samples WHERE user_id = ? AND metric IN (?, ?)")
	want := "SELECT * FROM samples WHERE user_id = $1 AND metric IN ($2, $3)"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	lite := &DB{dialect: dialectSQLite}
	if q := "SELECT ?"; lite.rebind(q) != q {
		t.Errorf("sqlite queries must not be rewritten")
	}
}
