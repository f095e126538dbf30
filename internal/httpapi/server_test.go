// ABOUTME: End-to-end tests for the HTTP API through httptest.
// ABOUTME: SQLite repository and local blob store in temp dirs.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/healthdash/internal/auth"
	"github.com/harperreed/healthdash/internal/blob"
	"github.com/harperreed/healthdash/internal/reports"
	"github.com/harperreed/healthdash/internal/storage"
)

var fixedNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	t      *testing.T
	server *Server
	blobs  blob.Store
	token  string
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	blobs, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	s := New(Deps{
		Repo:    db,
		Auth:    auth.NewService(db, "test-secret"),
		Reports: reports.NewService(db, blobs),
		Logger:  zerolog.Nop(),
	})
	s.now = func() time.Time { return fixedNow }
	return &testAPI{t: t, server: s, blobs: blobs}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return a.send(req)
}

func (a *testAPI) send(req *http.Request) *httptest.ResponseRecorder {
	if a.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signIn() {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/auth/register", credentials{Email: "pat@example.com", Password: "correct horse"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess auth.Session
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &sess))
	a.token = sess.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAuthFlow(t *testing.T) {
	api := setupAPI(t)

	rec := api.do(http.MethodGet, "/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	api.signIn()
	rec = api.do(http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pat@example.com")

	rec = api.do(http.MethodPost, "/api/v1/auth/register", credentials{Email: "pat@example.com", Password: "correct horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/register", credentials{Email: "x@example.com", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/login", credentials{Email: "pat@example.com", Password: "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error, "invalid email or password")

	rec = api.do(http.MethodPost, "/api/v1/auth/login", credentials{Email: "pat@example.com", Password: "correct horse"})
	assert.Equal(t, http.StatusOK, rec.Code)

	api.token = "not-a-token"
	rec = api.do(http.MethodGet, "/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSamples(t *testing.T) {
	api := setupAPI(t)
	api.signIn()

	rec := api.do(http.MethodPost, "/api/v1/samples", map[string]any{"metric": "weight", "value": 81.5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/v1/samples", map[string]any{
		"metric": "symptoms", "value": []string{"cough"}, "logged_at": fixedNow.Add(-24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/v1/samples", map[string]any{"metric": "weight", "value": "heavy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodPost, "/api/v1/samples", map[string]any{"metric": "", "value": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/samples?metric=weight", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	id := list[0]["id"].(string)

	rec = api.do(http.MethodGet, "/api/v1/samples?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, "/api/v1/samples/"+id[:8], nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodDelete, "/api/v1/samples/"+id[:8], nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDailyLogAndGoals(t *testing.T) {
	api := setupAPI(t)
	api.signIn()

	rec := api.do(http.MethodPut, "/api/v1/daily", map[string]any{"steps": 9500, "mood": "great", "energy": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/v1/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"steps":9500`)
	assert.Contains(t, rec.Body.String(), `"date":"2025-06-15"`)

	rec = api.do(http.MethodPut, "/api/v1/daily?date=2025-06-10", map[string]any{"energy": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodGet, "/api/v1/daily?date=June", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/api/v1/goals/steps", map[string]any{"value": 12000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(http.MethodGet, "/api/v1/goals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	goals := decode[map[string]float64](t, rec)
	assert.Equal(t, 12000.0, goals["steps"])

	rec = api.do(http.MethodPut, "/api/v1/goals/mood", map[string]any{"value": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileAndDashboard(t *testing.T) {
	api := setupAPI(t)
	api.signIn()

	rec := api.do(http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/dashboard?range=7d", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "empty", decode[map[string]any](t, rec)["status"])

	rec = api.do(http.MethodPut, "/api/v1/profile", map[string]any{
		"date_of_birth": "1960-01-01",
		"height_cm":     170,
		"weight_kg":     95,
		"lifestyle":     map[string]string{"exercise": "none"},
		"blood_type":    "B+",
		"ethnicity":     "East Asian",
		"risk_factors":  []string{"Lynch syndrome"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[map[string]any](t, rec)
	assert.Equal(t, "B+", profile["blood_type"])
	assert.Equal(t, "East Asian", profile["ethnicity"])
	assert.Equal(t, []any{"Lynch syndrome"}, profile["risk_factors"])

	rec = api.do(http.MethodPut, "/api/v1/profile", map[string]any{"date_of_birth": "01/01/1960"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/samples", map[string]any{"metric": "bloodPressureSystolic", "value": 145})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/dashboard?range=30d", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view struct {
		Status   string `json:"status"`
		Snapshot struct {
			Score   int `json:"score"`
			Buckets []any
			Alerts  []struct {
				ID string `json:"id"`
			} `json:"alerts"`
		} `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "ok", view.Status)
	assert.Len(t, view.Snapshot.Buckets, 30)
	require.NotEmpty(t, view.Snapshot.Alerts)
	assert.Equal(t, "blood-pressure-critical", view.Snapshot.Alerts[0].ID)
	// age 65 (-10), no exercise (-12), systolic > 140 (-10), BMI 32.9 (-15)
	assert.Equal(t, 53, view.Snapshot.Score)

	rec = api.do(http.MethodGet, "/api/v1/dashboard?range=1y", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodGet, "/api/v1/dashboard?granularity=week", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports(t *testing.T) {
	api := setupAPI(t)
	api.signIn()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "blood_test.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Hemoglobin 12.9 g/dL\nGlucose 131 mg/dL\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := api.send(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	report := decode[map[string]any](t, rec)
	assert.Equal(t, "blood", report["type"])
	id := report["id"].(string)

	rec = api.do(http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]any](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/v1/reports/"+id+"/file", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Hemoglobin"))

	biomarkers := report["biomarkers"].(map[string]any)
	assert.Equal(t, 131.0, biomarkers["glucose"])
	assert.Contains(t, report["insight"], "Blood Glucose")

	rec = api.do(http.MethodDelete, "/api/v1/reports/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/api/v1/reports/"+id+"/file", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = api.send(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportFileMissing(t *testing.T) {
	api := setupAPI(t)
	api.signIn()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "urine.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("clear"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := api.send(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	report := decode[map[string]any](t, rec)

	require.NoError(t, api.blobs.Delete(context.Background(), report["object_key"].(string)))

	rec = api.do(http.MethodGet, "/api/v1/reports/"+report["id"].(string)+"/file", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestReportsNotConfigured(t *testing.T) {
	api := setupAPI(t)
	api.server.reports = nil
	api.signIn()

	rec := api.do(http.MethodGet, "/api/v1/reports", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsAndRecovery(t *testing.T) {
	api := setupAPI(t)
	api.server.echo.GET("/boom", func(echo.Context) error { panic("boom") })

	rec := api.do(http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `healthdash_http_requests_total{route="/healthz",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `healthdash_http_requests_total{route="/boom",status="500"} 1`)
}

func TestMetricsUseMappedStatus(t *testing.T) {
	api := setupAPI(t)
	api.signIn()

	rec := api.do(http.MethodDelete, "/api/v1/samples/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/login", credentials{Email: "pat@example.com", Password: "wrong password"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `healthdash_http_requests_total{route="/api/v1/samples/:id",status="404"} 1`)
	assert.Contains(t, out, `healthdash_http_requests_total{route="/api/v1/auth/login",status="401"} 1`)
	assert.NotContains(t, out, `status="500"`)
}
