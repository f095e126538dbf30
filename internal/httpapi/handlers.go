// ABOUTME: HTTP handlers for auth, samples, daily logs, goals, profile, reports
// ABOUTME: and the dashboard. Every authed handler is scoped to the session user.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/dashboard"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
	"github.com/harperreed/healthdash/internal/tracking"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c echo.Context) error {
	var in credentials
	if err := c.Bind(&in); err != nil {
		return badRequest(err)
	}
	sess, err := s.auth.Register(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) login(c echo.Context) error {
	var in credentials
	if err := c.Bind(&in); err != nil {
		return badRequest(err)
	}
	sess, err := s.auth.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) me(c echo.Context) error {
	sess := sessionFrom(c)
	return c.JSON(http.StatusOK, map[string]any{
		"user_id":    sess.UserID,
		"email":      sess.Email,
		"expires_at": sess.ExpiresAt,
	})
}

// Samples

type sampleRequest struct {
	Metric   string          `json:"metric"`
	Value    json.RawMessage `json:"value"`
	LoggedAt *time.Time      `json:"logged_at,omitempty"`
}

// createSample runs the body through the same ingestion checks as stored rows.
func (s *Server) createSample(c echo.Context) error {
	var in sampleRequest
	if err := c.Bind(&in); err != nil {
		return badRequest(err)
	}

	var value any
	if len(in.Value) > 0 {
		if err := json.Unmarshal(in.Value, &value); err != nil {
			return badRequest(fmt.Errorf("invalid value: %w", err))
		}
	}
	at := s.now()
	if in.LoggedAt != nil {
		at = *in.LoggedAt
	}

	userID := sessionFrom(c).UserID
	samples, rejected := aggregate.Ingest([]aggregate.RawRow{{
		UserID:   userID,
		Metric:   in.Metric,
		Value:    value,
		LoggedAt: at,
	}})
	if len(rejected) > 0 {
		return badRequest(rejected[0])
	}

	sample := samples[0]
	sample.CreatedAt = s.now()
	if err := s.repo.CreateSamples(c.Request().Context(), &sample); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sample)
}

func (s *Server) listSamples(c echo.Context) error {
	filter := storage.SampleFilter{Limit: 100}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(fmt.Errorf("invalid limit %q", v))
		}
		filter.Limit = n
	}
	for _, m := range c.QueryParams()["metric"] {
		if name, ok := models.ParseMetricName(m); ok {
			filter.Metrics = append(filter.Metrics, name)
		}
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := parseDay(v)
		if err != nil {
			return badRequest(err)
		}
		filter.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := parseDay(v)
		if err != nil {
			return badRequest(err)
		}
		_, end := storage.DayBounds(t)
		filter.To = end.Add(-time.Microsecond)
	}

	samples, err := s.repo.ListSamples(c.Request().Context(), sessionFrom(c).UserID, filter)
	if err != nil {
		return err
	}
	if samples == nil {
		samples = []*models.Sample{}
	}
	return c.JSON(http.StatusOK, samples)
}

func (s *Server) deleteSample(c echo.Context) error {
	if err := s.repo.DeleteSample(c.Request().Context(), sessionFrom(c).UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Daily log and goals

func (s *Server) dayParam(c echo.Context) (time.Time, error) {
	now := s.now()
	v := c.QueryParam("date")
	if v == "" {
		return now, nil
	}
	day, err := parseDay(v)
	if err != nil {
		return time.Time{}, err
	}
	if sameDay(day, now) {
		return now, nil
	}
	// Past days are stamped at noon so the whole log lands inside the day.
	return time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, day.Location()), nil
}

func (s *Server) getDaily(c echo.Context) error {
	day, err := s.dayParam(c)
	if err != nil {
		return badRequest(err)
	}
	l, err := s.tracking.Load(c.Request().Context(), sessionFrom(c).UserID, day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"date": day.Format(time.DateOnly), "log": l})
}

func (s *Server) putDaily(c echo.Context) error {
	day, err := s.dayParam(c)
	if err != nil {
		return badRequest(err)
	}
	var l tracking.DailyLog
	if err := c.Bind(&l); err != nil {
		return badRequest(err)
	}
	if err := l.Validate(); err != nil {
		return badRequest(err)
	}
	if err := s.tracking.Save(c.Request().Context(), sessionFrom(c).UserID, day, l); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"date": day.Format(time.DateOnly), "log": l})
}

func (s *Server) getGoals(c echo.Context) error {
	targets, err := s.tracking.Targets(c.Request().Context(), sessionFrom(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, targets)
}

func (s *Server) putGoal(c echo.Context) error {
	var in struct {
		Value float64 `json:"value"`
	}
	if err := c.Bind(&in); err != nil {
		return badRequest(err)
	}
	metric, ok := models.ParseMetricName(c.Param("metric"))
	if !ok {
		return badRequest(errors.New("metric is required"))
	}
	goal, err := s.tracking.SetGoal(c.Request().Context(), sessionFrom(c).UserID, metric, in.Value, s.now())
	if err != nil {
		return badRequest(err)
	}
	return c.JSON(http.StatusOK, goal)
}

// Profile

type profileRequest struct {
	Name               string           `json:"name"`
	DateOfBirth        string           `json:"date_of_birth"`
	Gender             string           `json:"gender"`
	HeightCm           float64          `json:"height_cm"`
	WeightKg           float64          `json:"weight_kg"`
	BloodType          string           `json:"blood_type"`
	ExistingConditions []string         `json:"existing_conditions"`
	Medications        []string         `json:"medications"`
	Allergies          []string         `json:"allergies"`
	FamilyHistory      []string         `json:"family_history"`
	Ethnicity          string           `json:"ethnicity"`
	RiskFactors        []string         `json:"risk_factors"`
	Lifestyle          models.Lifestyle `json:"lifestyle"`
}

func (s *Server) getProfile(c echo.Context) error {
	p, err := s.repo.GetProfile(c.Request().Context(), sessionFrom(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// putProfile replaces the whole profile.
func (s *Server) putProfile(c echo.Context) error {
	var in profileRequest
	if err := c.Bind(&in); err != nil {
		return badRequest(err)
	}
	if in.HeightCm < 0 || in.WeightKg < 0 {
		return badRequest(errors.New("height and weight cannot be negative"))
	}

	p := &models.HealthProfile{
		UserID:             sessionFrom(c).UserID,
		Name:               strings.TrimSpace(in.Name),
		Gender:             strings.ToLower(strings.TrimSpace(in.Gender)),
		HeightCm:           in.HeightCm,
		WeightKg:           in.WeightKg,
		BloodType:          in.BloodType,
		ExistingConditions: in.ExistingConditions,
		Medications:        in.Medications,
		Allergies:          in.Allergies,
		FamilyHistory:      in.FamilyHistory,
		Ethnicity:          strings.TrimSpace(in.Ethnicity),
		RiskFactors:        in.RiskFactors,
		Lifestyle:          in.Lifestyle,
		UpdatedAt:          s.now(),
	}
	if in.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, in.DateOfBirth)
		if err != nil {
			return badRequest(fmt.Errorf("invalid date_of_birth %q: use YYYY-MM-DD", in.DateOfBirth))
		}
		p.DateOfBirth = dob
	}

	if err := s.repo.UpsertProfile(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Reports

func (s *Server) requireReports() error {
	if s.reports == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "report storage is not configured")
	}
	return nil
}

func (s *Server) listReports(c echo.Context) error {
	if err := s.requireReports(); err != nil {
		return err
	}
	list, err := s.reports.List(c.Request().Context(), sessionFrom(c).UserID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*models.Report{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) uploadReport(c echo.Context) error {
	if err := s.requireReports(); err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(fmt.Errorf("multipart field \"file\" is required: %w", err))
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(err)
	}
	defer f.Close()

	report, err := s.reports.Upload(c.Request().Context(), sessionFrom(c).UserID, fh.Filename, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, report)
}

func (s *Server) downloadReport(c echo.Context) error {
	if err := s.requireReports(); err != nil {
		return err
	}
	report, rc, err := s.reports.Open(c.Request().Context(), sessionFrom(c).UserID, c.Param("id"))
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.Title))
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), rc)
	return err
}

func (s *Server) deleteReport(c echo.Context) error {
	if err := s.requireReports(); err != nil {
		return err
	}
	if err := s.reports.Delete(c.Request().Context(), sessionFrom(c).UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Dashboard

func (s *Server) getDashboard(c echo.Context) error {
	r, err := aggregate.ParseRange(c.QueryParam("range"))
	if err != nil {
		return badRequest(err)
	}
	var g aggregate.Granularity
	switch v := strings.ToLower(c.QueryParam("granularity")); v {
	case "":
	case string(aggregate.Day), string(aggregate.Month):
		g = aggregate.Granularity(v)
	default:
		return badRequest(fmt.Errorf("unknown granularity %q (use day or month)", v))
	}

	view := s.dash.Build(c.Request().Context(), sessionFrom(c).UserID, dashboard.Request{
		Range:       r,
		Granularity: g,
		Now:         s.now(),
	})
	s.metrics.dashboardStatus.WithLabelValues(string(view.Status)).Inc()

	if view.Status == dashboard.StatusUnavailable {
		return c.JSON(http.StatusServiceUnavailable, view)
	}
	return c.JSON(http.StatusOK, view)
}

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
