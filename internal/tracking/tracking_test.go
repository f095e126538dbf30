// ABOUTME: Tests for daily log save/load and goal handling.
// ABOUTME: Runs against a temporary SQLite repository.
package tracking

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
)

func setup(t *testing.T) (*Service, storage.Repository, *models.User) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	user := models.NewUser("pat@example.com", "x")
	require.NoError(t, db.CreateUser(context.Background(), user))
	return NewService(db), db, user
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	svc, _, user := setup(t)
	at := time.Date(2024, 3, 5, 20, 15, 0, 0, time.UTC)

	in := DailyLog{
		Steps:      8200,
		HeartRate:  64,
		Systolic:   118,
		Diastolic:  76,
		WeightKg:   71.4,
		SleepHours: 7.5,
		Water:      6,
		Energy:     4,
		Mood:       "good",
		Symptoms:   []string{"headache", " ", "fatigue"},
	}
	require.NoError(t, svc.Save(ctx, user.ID, at, in))

	got, err := svc.Load(ctx, user.ID, at)
	require.NoError(t, err)
	want := in
	want.Symptoms = []string{"headache", "fatigue"}
	assert.Equal(t, want, got)

	other, err := svc.Load(ctx, user.ID, at.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestSaveReplacesDay(t *testing.T) {
	ctx := context.Background()
	svc, repo, user := setup(t)
	morning := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 5, 21, 0, 0, 0, time.UTC)

	require.NoError(t, svc.Save(ctx, user.ID, morning, DailyLog{Steps: 1000, Mood: "tired"}))
	require.NoError(t, svc.Save(ctx, user.ID, evening, DailyLog{Steps: 9000}))

	got, err := svc.Load(ctx, user.ID, morning)
	require.NoError(t, err)
	assert.Equal(t, DailyLog{Steps: 9000}, got)

	all, err := repo.ListSamples(ctx, user.ID, storage.SampleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, evening, all[0].LoggedAt.UTC())
}

func TestSaveKeepsGoals(t *testing.T) {
	ctx := context.Background()
	svc, _, user := setup(t)
	at := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	_, err := svc.SetGoal(ctx, user.ID, models.MetricSteps, 12000, at)
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx, user.ID, at.Add(time.Hour), DailyLog{Steps: 4000}))

	targets, err := svc.Targets(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, targets[models.MetricSteps])
	assert.Equal(t, 8.0, targets[models.MetricSleepHours])
}

func TestSetGoalNewestWins(t *testing.T) {
	ctx := context.Background()
	svc, _, user := setup(t)
	at := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	_, err := svc.SetGoal(ctx, user.ID, models.MetricWeight, 72, at)
	require.NoError(t, err)
	_, err = svc.SetGoal(ctx, user.ID, models.GoalFor(models.MetricWeight), 68, at.Add(time.Hour))
	require.NoError(t, err)

	targets, err := svc.Targets(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 68.0, targets[models.MetricWeight])
}

func TestSetGoalValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, user := setup(t)

	_, err := svc.SetGoal(ctx, user.ID, models.MetricMood, 3, time.Now())
	assert.Error(t, err)
	_, err = svc.SetGoal(ctx, user.ID, models.MetricSteps, 0, time.Now())
	assert.Error(t, err)
	_, err = svc.SetGoal(ctx, user.ID, models.MetricSteps, math.NaN(), time.Now())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		log     DailyLog
		wantErr bool
	}{
		{"empty", DailyLog{}, false},
		{"normal", DailyLog{Steps: 100, Energy: 3}, false},
		{"negative steps", DailyLog{Steps: -1}, true},
		{"energy too high", DailyLog{Energy: 6}, true},
		{"nan weight", DailyLog{WeightKg: math.NaN()}, true},
		{"infinite steps", DailyLog{Steps: math.Inf(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.log.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
