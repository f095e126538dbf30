// ABOUTME: MCP tool implementations for the health dashboard.
// ABOUTME: Logging readings, daily logs, dashboard views, profile and reports.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/dashboard"
	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
	"github.com/harperreed/healthdash/internal/tracking"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_metric",
		Description: "Record a single reading (weight, heartRate, bloodPressureSystolic, steps, glucose, mood, ...)",
	}, s.handleLogMetric)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_samples",
		Description: "List recent readings, optionally filtered by metric and date range",
	}, s.handleListSamples)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_sample",
		Description: "Delete a reading by ID or ID prefix",
	}, s.handleDeleteSample)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "save_daily_log",
		Description: "Save the daily tracking form for a day, replacing anything already logged that day",
	}, s.handleSaveDailyLog)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_dashboard",
		Description: "Evaluate the dashboard: trends, alerts, health score, latest values and targets",
	}, s.handleGetDashboard)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_alerts",
		Description: "Health alerts derived from the latest readings, most urgent first",
	}, s.handleGetAlerts)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_trends",
		Description: "Trend direction per metric comparing the last 7 periods with the 7 before",
	}, s.handleGetTrends)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_health_score",
		Description: "Overall health score between 20 and 100",
	}, s.handleGetHealthScore)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_profile",
		Description: "Get the health profile",
	}, s.handleGetProfile)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_profile",
		Description: "Update health profile fields; omitted fields are left unchanged",
	}, s.handleUpdateProfile)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_reports",
		Description: "List uploaded medical reports with parsed biomarkers",
	}, s.handleListReports)
}

// Tool input/output types

type logMetricInput struct {
	Metric   string   `json:"metric" jsonschema:"metric name, e.g. weight, heartRate, bloodPressureSystolic, steps, glucose, mood"`
	Value    *float64 `json:"value,omitempty" jsonschema:"numeric value"`
	Text     string   `json:"text,omitempty" jsonschema:"text value for mood or free-form metrics"`
	LoggedAt string   `json:"logged_at,omitempty" jsonschema:"timestamp (RFC 3339 or 2006-01-02 15:04), defaults to now"`
}

type sampleOutput struct {
	ID       string `json:"id"`
	Metric   string `json:"metric"`
	Value    string `json:"value"`
	Unit     string `json:"unit,omitempty"`
	LoggedAt string `json:"logged_at"`
}

type logMetricOutput struct {
	Sample  sampleOutput `json:"sample"`
	Message string       `json:"message"`
}

type listSamplesInput struct {
	Metric string `json:"metric,omitempty" jsonschema:"filter by metric name"`
	From   string `json:"from,omitempty" jsonschema:"earliest date (2006-01-02)"`
	To     string `json:"to,omitempty" jsonschema:"latest date (2006-01-02), inclusive"`
	Limit  int    `json:"limit,omitempty" jsonschema:"max results (default 20)"`
}

type listSamplesOutput struct {
	Samples []sampleOutput `json:"samples"`
	Message string         `json:"message,omitempty"`
}

type deleteSampleInput struct {
	ID string `json:"id" jsonschema:"sample ID or prefix"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

type dailyLogInput struct {
	Date       string   `json:"date,omitempty" jsonschema:"day to save (2006-01-02), defaults to today"`
	Steps      float64  `json:"steps,omitempty"`
	HeartRate  float64  `json:"heart_rate,omitempty" jsonschema:"resting heart rate in bpm"`
	Systolic   float64  `json:"systolic,omitempty" jsonschema:"systolic blood pressure in mmHg"`
	Diastolic  float64  `json:"diastolic,omitempty" jsonschema:"diastolic blood pressure in mmHg"`
	WeightKg   float64  `json:"weight_kg,omitempty"`
	SleepHours float64  `json:"sleep_hours,omitempty"`
	Water      float64  `json:"water,omitempty" jsonschema:"glasses of water"`
	Energy     float64  `json:"energy,omitempty" jsonschema:"energy level from 1 to 5"`
	Mood       string   `json:"mood,omitempty"`
	Symptoms   []string `json:"symptoms,omitempty"`
}

func (in dailyLogInput) log() tracking.DailyLog {
	return tracking.DailyLog{
		Steps:      in.Steps,
		HeartRate:  in.HeartRate,
		Systolic:   in.Systolic,
		Diastolic:  in.Diastolic,
		WeightKg:   in.WeightKg,
		SleepHours: in.SleepHours,
		Water:      in.Water,
		Energy:     in.Energy,
		Mood:       in.Mood,
		Symptoms:   in.Symptoms,
	}
}

type windowInput struct {
	Range       string `json:"range,omitempty" jsonschema:"7d, 30d, 90d or 12m (default 30d)"`
	Granularity string `json:"granularity,omitempty" jsonschema:"day or month (default depends on range)"`
}

type dashboardOutput struct {
	Status      string                            `json:"status"`
	Error       string                            `json:"error,omitempty"`
	Range       aggregate.Range                   `json:"range"`
	Granularity aggregate.Granularity             `json:"granularity"`
	Score       int                               `json:"score"`
	Alerts      []aggregate.Alert                 `json:"alerts"`
	Trends      map[models.MetricName]TrendOutput `json:"trends"`
	Latest      map[models.MetricName]float64     `json:"latest"`
	Targets     map[models.MetricName]float64     `json:"targets"`
}

// TrendOutput is a trend plus whether its direction is an improvement.
type TrendOutput struct {
	aggregate.TrendResult
	Favorable bool `json:"favorable"`
}

type alertsInput struct {
	Dismissed []string `json:"dismissed,omitempty" jsonschema:"alert IDs to leave out of this answer"`
}

type alertsOutput struct {
	Alerts []aggregate.Alert `json:"alerts"`
}

type trendsOutput struct {
	Range  aggregate.Range `json:"range"`
	Trends []TrendOutput   `json:"trends"`
}

type scoreOutput struct {
	Score      int  `json:"score"`
	HasProfile bool `json:"has_profile"`
}

type emptyInput struct{}

type profileOutput struct {
	Profile *models.HealthProfile `json:"profile,omitempty"`
	Age     int                   `json:"age,omitempty"`
	BMI     float64               `json:"bmi,omitempty"`
	Message string                `json:"message,omitempty"`
}

type updateProfileInput struct {
	Name               string   `json:"name,omitempty"`
	DateOfBirth        string   `json:"date_of_birth,omitempty" jsonschema:"2006-01-02"`
	Gender             string   `json:"gender,omitempty" jsonschema:"male, female or other"`
	HeightCm           float64  `json:"height_cm,omitempty"`
	WeightKg           float64  `json:"weight_kg,omitempty"`
	BloodType          string   `json:"blood_type,omitempty"`
	ExistingConditions []string `json:"existing_conditions,omitempty"`
	Medications        []string `json:"medications,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	FamilyHistory      []string `json:"family_history,omitempty"`
	Ethnicity          string   `json:"ethnicity,omitempty"`
	RiskFactors        []string `json:"risk_factors,omitempty" jsonschema:"known genetic risk factors, e.g. BRCA1/BRCA2 mutations"`
	Smoking            string   `json:"smoking,omitempty" jsonschema:"no, former, occasional or daily"`
	Alcohol            string   `json:"alcohol,omitempty" jsonschema:"none, occasional, moderate or heavy"`
	Exercise           string   `json:"exercise,omitempty" jsonschema:"none, light, moderate or intense"`
}

type reportOutput struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Type       models.ReportType  `json:"type"`
	Biomarkers map[string]float64 `json:"biomarkers,omitempty"`
	Insight    string             `json:"insight,omitempty"`
	CreatedAt  string             `json:"created_at"`
}

type listReportsOutput struct {
	Reports []reportOutput `json:"reports"`
}

// Tool handlers. Results that carry profile or dashboard structures return
// any so no output schema is inferred from their ID and time fields.

func (s *Server) handleLogMetric(ctx context.Context, req *mcp.CallToolRequest, input logMetricInput) (*mcp.CallToolResult, logMetricOutput, error) {
	metric, ok := models.ParseMetricName(input.Metric)
	if !ok {
		return nil, logMetricOutput{}, errors.New("metric is required")
	}

	var value models.Value
	switch {
	case metric.Kind() == models.KindNumeric:
		if input.Value == nil {
			return nil, logMetricOutput{}, fmt.Errorf("%s needs a numeric value", metric)
		}
		value = models.NumberValue(*input.Value)
	case metric.Kind() == models.KindStructured:
		raw, err := json.Marshal(splitList(input.Text))
		if err != nil {
			return nil, logMetricOutput{}, err
		}
		value = models.JSONValue(raw)
	default:
		if strings.TrimSpace(input.Text) == "" {
			return nil, logMetricOutput{}, fmt.Errorf("%s needs a text value", metric)
		}
		value = models.TextValue(strings.TrimSpace(input.Text))
	}

	sample := models.NewSample(s.userID, metric, value).WithLoggedAt(s.now())
	if input.LoggedAt != "" {
		t, err := parseTime(input.LoggedAt)
		if err != nil {
			return nil, logMetricOutput{}, err
		}
		sample.WithLoggedAt(t)
	}
	if err := aggregate.Check(sample); err != nil {
		return nil, logMetricOutput{}, fmt.Errorf("invalid %s value: %w", metric, err)
	}

	if err := s.repo.CreateSamples(ctx, sample); err != nil {
		return nil, logMetricOutput{}, fmt.Errorf("failed to log metric: %w", err)
	}

	out := toSampleOutput(sample)
	return nil, logMetricOutput{
		Sample:  out,
		Message: fmt.Sprintf("Logged %s: %s (ID: %s)", metric.Label(), sample.Describe(), out.ID),
	}, nil
}

func (s *Server) handleListSamples(ctx context.Context, req *mcp.CallToolRequest, input listSamplesInput) (*mcp.CallToolResult, listSamplesOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	filter := storage.SampleFilter{Limit: input.Limit}
	if input.Metric != "" {
		metric, _ := models.ParseMetricName(input.Metric)
		filter.Metrics = []models.MetricName{metric}
	}
	if input.From != "" {
		t, err := parseTime(input.From)
		if err != nil {
			return nil, listSamplesOutput{}, err
		}
		filter.From = t
	}
	if input.To != "" {
		t, err := parseTime(input.To)
		if err != nil {
			return nil, listSamplesOutput{}, err
		}
		_, end := storage.DayBounds(t)
		filter.To = end.Add(-time.Microsecond)
	}

	samples, err := s.repo.ListSamples(ctx, s.userID, filter)
	if err != nil {
		return nil, listSamplesOutput{}, fmt.Errorf("failed to list samples: %w", err)
	}

	out := listSamplesOutput{Samples: make([]sampleOutput, 0, len(samples))}
	for _, smp := range samples {
		out.Samples = append(out.Samples, toSampleOutput(smp))
	}
	if len(samples) == 0 {
		out.Message = "No samples found."
	}
	return nil, out, nil
}

func (s *Server) handleDeleteSample(ctx context.Context, req *mcp.CallToolRequest, input deleteSampleInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.repo.DeleteSample(ctx, s.userID, input.ID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete sample: %w", err)
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Deleted sample: %s", input.ID)}, nil
}

func (s *Server) handleSaveDailyLog(ctx context.Context, req *mcp.CallToolRequest, input dailyLogInput) (*mcp.CallToolResult, simpleOutput, error) {
	at := s.now()
	if input.Date != "" {
		day, err := parseTime(input.Date)
		if err != nil {
			return nil, simpleOutput{}, err
		}
		at = time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), at.Second(), 0, at.Location())
	}
	l := input.log()
	if l.IsEmpty() {
		return nil, simpleOutput{}, errors.New("daily log is empty")
	}
	if err := s.tracking.Save(ctx, s.userID, at, l); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to save daily log: %w", err)
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Saved daily log for %s", at.Format(time.DateOnly))}, nil
}

func (s *Server) handleGetDashboard(ctx context.Context, req *mcp.CallToolRequest, input windowInput) (*mcp.CallToolResult, any, error) {
	view, err := s.build(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	snap := view.Snapshot
	out := dashboardOutput{
		Status:      string(view.Status),
		Error:       view.Error,
		Range:       snap.Range,
		Granularity: snap.Granularity,
		Score:       snap.Score,
		Alerts:      snap.Alerts,
		Trends:      make(map[models.MetricName]TrendOutput, len(snap.Trends)),
		Latest:      snap.Latest,
		Targets:     snap.Targets,
	}
	for m, tr := range snap.Trends {
		if tr.Points > 0 {
			out.Trends[m] = TrendOutput{TrendResult: tr, Favorable: snap.Favorable[m]}
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(ctx context.Context, req *mcp.CallToolRequest, input alertsInput) (*mcp.CallToolResult, alertsOutput, error) {
	view, err := s.build(ctx, windowInput{})
	if err != nil {
		return nil, alertsOutput{}, err
	}
	alerts := view.Snapshot.Alerts
	for _, id := range input.Dismissed {
		alerts = aggregate.Dismiss(alerts, id)
	}
	return nil, alertsOutput{Alerts: alerts}, nil
}

func (s *Server) handleGetTrends(ctx context.Context, req *mcp.CallToolRequest, input windowInput) (*mcp.CallToolResult, any, error) {
	view, err := s.build(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	out := trendsOutput{Range: view.Snapshot.Range, Trends: []TrendOutput{}}
	for _, m := range s.dash.Engine().Metrics() {
		tr, ok := view.Snapshot.Trends[m]
		if !ok || tr.Points == 0 {
			continue
		}
		out.Trends = append(out.Trends, TrendOutput{TrendResult: tr, Favorable: view.Snapshot.Favorable[m]})
	}
	return nil, out, nil
}

func (s *Server) handleGetHealthScore(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, scoreOutput, error) {
	view, err := s.build(ctx, windowInput{})
	if err != nil {
		return nil, scoreOutput{}, err
	}
	return nil, scoreOutput{Score: view.Snapshot.Score, HasProfile: view.Profile != nil}, nil
}

func (s *Server) handleGetProfile(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	p, err := s.repo.GetProfile(ctx, s.userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, profileOutput{Message: "No profile yet. Use update_profile to create one."}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return nil, describeProfile(p, s.now()), nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, req *mcp.CallToolRequest, input updateProfileInput) (*mcp.CallToolResult, any, error) {
	p, err := s.repo.GetProfile(ctx, s.userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		p = &models.HealthProfile{UserID: s.userID}
	case err != nil:
		return nil, nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := applyProfile(p, input); err != nil {
		return nil, nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("failed to save profile: %w", err)
	}

	out := describeProfile(p, s.now())
	out.Message = "Profile updated."
	return nil, out, nil
}

func (s *Server) handleListReports(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, listReportsOutput, error) {
	var (
		list []*models.Report
		err  error
	)
	if s.reports != nil {
		list, err = s.reports.List(ctx, s.userID)
	} else {
		list, err = s.repo.ListReports(ctx, s.userID)
	}
	if err != nil {
		return nil, listReportsOutput{}, fmt.Errorf("failed to list reports: %w", err)
	}

	out := listReportsOutput{Reports: make([]reportOutput, 0, len(list))}
	for _, r := range list {
		out.Reports = append(out.Reports, reportOutput{
			ID:         r.ID.String()[:8],
			Title:      r.Title,
			Type:       r.Type,
			Biomarkers: r.Biomarkers,
			Insight:    r.Insight,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// build evaluates the dashboard and turns an unavailable view into an error.
func (s *Server) build(ctx context.Context, input windowInput) (dashboard.View, error) {
	r, err := aggregate.ParseRange(input.Range)
	if err != nil {
		return dashboard.View{}, err
	}
	var g aggregate.Granularity
	switch strings.ToLower(input.Granularity) {
	case "":
	case string(aggregate.Day), string(aggregate.Month):
		g = aggregate.Granularity(strings.ToLower(input.Granularity))
	default:
		return dashboard.View{}, fmt.Errorf("unknown granularity %q (use day or month)", input.Granularity)
	}

	view := s.dash.Build(ctx, s.userID, dashboard.Request{Range: r, Granularity: g, Now: s.now()})
	if view.Status == dashboard.StatusUnavailable {
		return view, fmt.Errorf("dashboard unavailable: %s", view.Error)
	}
	return view, nil
}

func toSampleOutput(s *models.Sample) sampleOutput {
	return sampleOutput{
		ID:       s.ID.String()[:8],
		Metric:   string(s.Metric),
		Value:    s.Value.String(),
		Unit:     s.Metric.Unit(),
		LoggedAt: s.LoggedAt.Format(time.RFC3339),
	}
}

func describeProfile(p *models.HealthProfile, now time.Time) profileOutput {
	out := profileOutput{Profile: p, Age: p.Age(now)}
	if bmi, ok := models.BMI(p.WeightKg, p.HeightCm); ok {
		out.BMI = models.RoundTo(bmi, 1)
	}
	return out
}

func applyProfile(p *models.HealthProfile, in updateProfileInput) error {
	if in.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, in.DateOfBirth)
		if err != nil {
			return fmt.Errorf("invalid date_of_birth %q: use YYYY-MM-DD", in.DateOfBirth)
		}
		p.DateOfBirth = dob
	}
	if in.HeightCm < 0 || in.WeightKg < 0 {
		return errors.New("height and weight cannot be negative")
	}
	setString(&p.Name, in.Name)
	setString(&p.Gender, strings.ToLower(in.Gender))
	setString(&p.BloodType, in.BloodType)
	setString(&p.Ethnicity, in.Ethnicity)
	setString(&p.Lifestyle.Smoking, strings.ToLower(in.Smoking))
	setString(&p.Lifestyle.Alcohol, strings.ToLower(in.Alcohol))
	setString(&p.Lifestyle.Exercise, strings.ToLower(in.Exercise))
	if in.HeightCm > 0 {
		p.HeightCm = in.HeightCm
	}
	if in.WeightKg > 0 {
		p.WeightKg = in.WeightKg
	}
	if in.ExistingConditions != nil {
		p.ExistingConditions = in.ExistingConditions
	}
	if in.Medications != nil {
		p.Medications = in.Medications
	}
	if in.Allergies != nil {
		p.Allergies = in.Allergies
	}
	if in.FamilyHistory != nil {
		p.FamilyHistory = in.FamilyHistory
	}
	if in.RiskFactors != nil {
		p.RiskFactors = in.RiskFactors
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTime accepts RFC 3339, "2006-01-02 15:04" and "2006-01-02" in local time.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD", s)
}
