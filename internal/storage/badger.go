// ABOUTME: Embedded Badger KV backend implementing Repository.
// ABOUTME: Uses type-prefixed JSON keys and client-side filtering.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	UserPrefix    = "user:"
	EmailPrefix   = "email:"
	SamplePrefix  = "sample:"
	ProfilePrefix = "profile:"
	ReportPrefix  = "report:"
)

// KV is the Badger-backed Repository.
type KV struct {
	db *badger.DB
}

var _ Repository = (*KV)(nil)

// userRecord keeps the password hash, which models.User hides from JSON.
type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// OpenKV opens or creates a Badger store in dir. An empty dir opens an
// in-memory store.
func OpenKV(dir string) (*KV, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log.With().Str("component", "badger").Logger()})
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &KV{db: db}, nil
}

// Close closes the KV database.
func (k *KV) Close() error {
	if k.db != nil {
		return k.db.Close()
	}
	return nil
}

func sampleKey(userID, id uuid.UUID) []byte {
	return []byte(SamplePrefix + userID.String() + ":" + id.String())
}

func reportKey(userID, id uuid.UUID) []byte {
	return []byte(ReportPrefix + userID.String() + ":" + id.String())
}

// CreateUser stores a user and its email index.
func (k *KV) CreateUser(_ context.Context, u *models.User) error {
	email := models.NormalizeEmail(u.Email)
	rec := userRecord{ID: u.ID, Email: email, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return k.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(EmailPrefix + email)
		if _, err := txn.Get(emailKey); err == nil {
			return fmt.Errorf("create user %s: %w", email, ErrDuplicate)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("create user: %w", err)
		}
		if err := txn.Set(emailKey, []byte(u.ID.String())); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return txn.Set([]byte(UserPrefix+u.ID.String()), data)
	})
}

// GetUser retrieves a user by ID.
func (k *KV) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	var u *models.User
	err := k.db.View(func(txn *badger.Txn) error {
		var err error
		u, err = getUser(txn, id.String())
		return err
	})
	return u, err
}

// GetUserByEmail retrieves a user by normalized email.
func (k *KV) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	var u *models.User
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(EmailPrefix + models.NormalizeEmail(email)))
		if err != nil {
			return notFoundOr(err, "get user")
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		u, err = getUser(txn, string(id))
		return err
	})
	return u, err
}

func getUser(txn *badger.Txn, id string) (*models.User, error) {
	rec, err := getJSON[userRecord](txn, []byte(UserPrefix+id))
	if err != nil {
		return nil, notFoundOr(err, "get user")
	}
	return &models.User{ID: rec.ID, Email: rec.Email, PasswordHash: rec.PasswordHash, CreatedAt: rec.CreatedAt}, nil
}

// CreateSamples stores samples in one transaction.
func (k *KV) CreateSamples(_ context.Context, samples ...*models.Sample) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return putSamples(txn, samples)
	})
}

func putSamples(txn *badger.Txn, samples []*models.Sample) error {
	for _, s := range samples {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now()
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal sample: %w", err)
		}
		if err := txn.Set(sampleKey(s.UserID, s.ID), data); err != nil {
			return fmt.Errorf("create sample: %w", err)
		}
	}
	return nil
}

// GetSample retrieves a sample by ID or ID prefix.
func (k *KV) GetSample(_ context.Context, userID uuid.UUID, idOrPrefix string) (*models.Sample, error) {
	var s *models.Sample
	err := k.db.View(func(txn *badger.Txn) error {
		key, err := resolveKey(txn, SamplePrefix+userID.String()+":", idOrPrefix)
		if err != nil {
			return fmt.Errorf("get sample: %w", err)
		}
		s, err = getJSON[models.Sample](txn, key)
		return err
	})
	return s, err
}

// ListSamples retrieves samples matching the filter, most recent first.
func (k *KV) ListSamples(_ context.Context, userID uuid.UUID, f SampleFilter) ([]*models.Sample, error) {
	want := make(map[models.MetricName]bool, len(f.Metrics))
	for _, m := range f.Metrics {
		want[m] = true
	}

	var samples []*models.Sample
	err := k.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(SamplePrefix+userID.String()+":"), func(_ []byte, val []byte) error {
			var s models.Sample
			if err := json.Unmarshal(val, &s); err != nil {
				return nil // Skip invalid entries
			}
			if !f.From.IsZero() && s.LoggedAt.Before(f.From) {
				return nil
			}
			if !f.To.IsZero() && s.LoggedAt.After(f.To) {
				return nil
			}
			if len(want) > 0 && !want[s.Metric] {
				return nil
			}
			samples = append(samples, &s)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}

	sortSamplesDesc(samples)
	if f.Limit > 0 && len(samples) > f.Limit {
		samples = samples[:f.Limit]
	}
	return samples, nil
}

// DeleteSample removes a sample by ID or prefix.
func (k *KV) DeleteSample(_ context.Context, userID uuid.UUID, idOrPrefix string) error {
	return k.db.Update(func(txn *badger.Txn) error {
		key, err := resolveKey(txn, SamplePrefix+userID.String()+":", idOrPrefix)
		if err != nil {
			return fmt.Errorf("delete sample: %w", err)
		}
		return txn.Delete(key)
	})
}

// ReplaceDay swaps the day's non-goal samples inside one Badger transaction.
func (k *KV) ReplaceDay(_ context.Context, userID uuid.UUID, day time.Time, samples []*models.Sample) error {
	start, end := DayBounds(day)
	return k.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		err := scanPrefix(txn, []byte(SamplePrefix+userID.String()+":"), func(key, val []byte) error {
			var s models.Sample
			if err := json.Unmarshal(val, &s); err != nil {
				return nil
			}
			if s.Metric.IsGoal() || s.LoggedAt.Before(start) || !s.LoggedAt.Before(end) {
				return nil
			}
			stale = append(stale, key)
			return nil
		})
		if err != nil {
			return fmt.Errorf("clear day: %w", err)
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("clear day: %w", err)
			}
		}
		return putSamples(txn, samples)
	})
}

// LatestValues returns the most recent sample per metric.
func (k *KV) LatestValues(ctx context.Context, userID uuid.UUID) (map[models.MetricName]*models.Sample, error) {
	samples, err := k.ListSamples(ctx, userID, SampleFilter{})
	if err != nil {
		return nil, fmt.Errorf("latest values: %w", err)
	}
	latest := make(map[models.MetricName]*models.Sample)
	for _, s := range samples {
		if _, ok := latest[s.Metric]; !ok {
			latest[s.Metric] = s
		}
	}
	return latest, nil
}

// GetProfile returns the user's profile or ErrNotFound.
func (k *KV) GetProfile(_ context.Context, userID uuid.UUID) (*models.HealthProfile, error) {
	var p *models.HealthProfile
	err := k.db.View(func(txn *badger.Txn) error {
		var err error
		p, err = getJSON[models.HealthProfile](txn, []byte(ProfilePrefix+userID.String()))
		if err != nil {
			return notFoundOr(err, "get profile")
		}
		return nil
	})
	if p != nil {
		p.UserID = userID
	}
	return p, err
}

// UpsertProfile creates or replaces the user's profile.
func (k *KV) UpsertProfile(_ context.Context, p *models.HealthProfile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ProfilePrefix+p.UserID.String()), data)
	})
}

// CreateReport stores report metadata.
func (k *KV) CreateReport(_ context.Context, r *models.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reportKey(r.UserID, r.ID), data)
	})
}

// GetReport retrieves a report by ID or prefix.
func (k *KV) GetReport(_ context.Context, userID uuid.UUID, idOrPrefix string) (*models.Report, error) {
	var r *models.Report
	err := k.db.View(func(txn *badger.Txn) error {
		key, err := resolveKey(txn, ReportPrefix+userID.String()+":", idOrPrefix)
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		r, err = getJSON[models.Report](txn, key)
		return err
	})
	return r, err
}

// ListReports returns the user's reports, newest first.
func (k *KV) ListReports(_ context.Context, userID uuid.UUID) ([]*models.Report, error) {
	var reports []*models.Report
	err := k.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(ReportPrefix+userID.String()+":"), func(_ []byte, val []byte) error {
			var r models.Report
			if err := json.Unmarshal(val, &r); err != nil {
				return nil
			}
			reports = append(reports, &r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// DeleteReport removes report metadata by ID or prefix.
func (k *KV) DeleteReport(_ context.Context, userID uuid.UUID, idOrPrefix string) error {
	return k.db.Update(func(txn *badger.Txn) error {
		key, err := resolveKey(txn, ReportPrefix+userID.String()+":", idOrPrefix)
		if err != nil {
			return fmt.Errorf("delete report: %w", err)
		}
		return txn.Delete(key)
	})
}

// GetAllData retrieves all of a user's data for export.
func (k *KV) GetAllData(ctx context.Context, userID uuid.UUID) (*ExportData, error) {
	return collectExport(ctx, k, userID)
}

// ImportData imports data from an export file.
func (k *KV) ImportData(ctx context.Context, userID uuid.UUID, data *ExportData) error {
	return applyImport(ctx, k, userID, data)
}

// scanPrefix calls fn for every key under prefix.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

// resolveKey finds the single key under typePrefix whose ID starts with idOrPrefix.
func resolveKey(txn *badger.Txn, typePrefix, idOrPrefix string) ([]byte, error) {
	idOrPrefix = strings.ToLower(strings.TrimSpace(idOrPrefix))
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	search := []byte(typePrefix + idOrPrefix)

	var matches [][]byte
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = search
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(search); it.ValidForPrefix(search); it.Next() {
		matches = append(matches, it.Item().KeyCopy(nil))
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("%w %s: matches %d records", ErrAmbiguous, idOrPrefix, len(matches))
}

func getJSON[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := item.Value(func(val []byte) error {
		return json.NewDecoder(bytes.NewReader(val)).Decode(&v)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return &v, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sortSamplesDesc(samples []*models.Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].LoggedAt.Equal(samples[j].LoggedAt) {
			return samples[i].CreatedAt.After(samples[j].CreatedAt)
		}
		return samples[i].LoggedAt.After(samples[j].LoggedAt)
	})
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct {
	zerolog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.Error().Msgf(strings.TrimSpace(f), v...)
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.Warn().Msgf(strings.TrimSpace(f), v...)
}

func (l badgerLogger) Infof(f string, v ...interface{}) {
	l.Debug().Msgf(strings.TrimSpace(f), v...)
}

func (l badgerLogger) Debugf(f string, v ...interface{}) {
	l.Trace().Msgf(strings.TrimSpace(f), v...)
}
