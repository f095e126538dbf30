// ABOUTME: Dashboard view assembly: fetch, ingest and evaluate one user's data.
// ABOUTME: Distinguishes an empty dashboard from one whose data could not be loaded.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
)

// Status of a dashboard view.
type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
)

// Request selects the window to evaluate. A zero Now means time.Now.
type Request struct {
	Range       aggregate.Range
	Granularity aggregate.Granularity
	Now         time.Time
}

// View is the result of Build. Snapshot is the zero value when Status is
// unavailable.
type View struct {
	Status   Status                `json:"status"`
	Snapshot aggregate.Snapshot    `json:"snapshot"`
	Profile  *models.HealthProfile `json:"profile,omitempty"`
	Rejected int                   `json:"rejected,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// Service builds dashboard views.
type Service struct {
	repo   storage.Repository
	engine *aggregate.Engine
}

// NewService creates a dashboard service.
func NewService(repo storage.Repository, engine *aggregate.Engine) *Service {
	if engine == nil {
		engine = aggregate.NewEngine(aggregate.Options{})
	}
	return &Service{repo: repo, engine: engine}
}

// Engine returns the evaluation engine.
func (s *Service) Engine() *aggregate.Engine {
	return s.engine
}

// Build loads the user's profile and samples and evaluates them. A missing
// profile is not an error. A failed fetch or a cancelled request yields an
// unavailable view rather than a stale or empty one.
func (s *Service) Build(ctx context.Context, userID uuid.UUID, req Request) View {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	logger := log.With().Str("user_id", userID.String()).Str("range", string(req.Range)).Logger()

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error().Err(err).Msg("load profile")
		return unavailable(fmt.Errorf("load profile: %w", err))
	}

	stored, err := s.repo.ListSamples(ctx, userID, storage.SampleFilter{To: now})
	if err != nil {
		logger.Error().Err(err).Msg("load samples")
		return unavailable(fmt.Errorf("load samples: %w", err))
	}

	samples, rejected := aggregate.Ingest(aggregate.RowsFromSamples(stored))
	for _, r := range rejected {
		logger.Warn().Str("sample_id", r.Row.ID.String()).Str("reason", r.Reason).Msg("skipping sample")
	}

	// A response for a request the caller already abandoned must not
	// replace a newer one.
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	window := aggregate.WindowFor(req.Range, req.Granularity, now)
	snap := s.engine.Evaluate(samples, profile, window, now)

	view := View{Status: StatusOK, Snapshot: snap, Profile: profile, Rejected: len(rejected)}
	if !snap.HasData {
		view.Status = StatusEmpty
	}
	return view
}

func unavailable(err error) View {
	return View{Status: StatusUnavailable, Error: err.Error()}
}
