package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rockwatchstack/rockwatch/internal/auth"
	"github.com/rockwatchstack/rockwatch/internal/config"
	"github.com/rockwatchstack/rockwatch/internal/models"
	"github.com/rockwatchstack/rockwatch/internal/pipeline"
	"github.com/rockwatchstack/rockwatch/internal/service"
	"github.com/rockwatchstack/rockwatch/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st := store.New()
	store.SeedDemo(st)

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	jobs := pipeline.NewJobManager(nil, time.Millisecond)
	t.Cleanup(jobs.Shutdown)

	dashboard := service.NewDashboard(nil, st, nil, 0, 0)

	srv, err := NewServer(config.ServerConfig{Address: ":0"}, Deps{
		Store:     st,
		Dashboard: dashboard,
		Issuer:    issuer,
		Jobs:      jobs,
	})
	require.NoError(t, err)
	return srv, st
}

func doJSON(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, srv *Server, email, password string) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/auth/login", "",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func TestLoginAndMe(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "admin@rockfall.com", "secret123")

	rec := doJSON(t, srv, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "admin@rockfall.com", user.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/auth/login", "",
		`{"email":"admin@rockfall.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{
		"/api/dashboard/stats",
		"/sites",
		"/sensors",
		"/predictions",
		"/training/jobs",
	} {
		rec := doJSON(t, srv, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/sites", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterThenLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "",
		`{"email":"new@rockfall.com","username":"newuser","password":"longenough1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	loginAs(t, srv, "new@rockfall.com", "longenough1")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "",
		`{"email":"admin@rockfall.com","username":"dup","password":"longenough1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListSitesAndGet(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "operator@rockfall.com", "secret123")

	rec := doJSON(t, srv, http.MethodGet, "/sites", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sites []models.Site
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sites))
	require.NotEmpty(t, sites)

	rec = doJSON(t, srv, http.MethodGet, "/sites/"+sites[0].ID, token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/sites/nope", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSite(t *testing.T) {
	srv, st := newTestServer(t)
	token := loginAs(t, srv, "admin@rockfall.com", "secret123")

	before := st.SiteCount()
	rec := doJSON(t, srv, http.MethodPost, "/sites", token,
		`{"name":"East Slope","area_hectares":12.5,"location":{"latitude":-23.5,"longitude":133.8}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, before+1, st.SiteCount())

	rec = doJSON(t, srv, http.MethodPost, "/sites", token, `{"area_hectares":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSensorFilterAndToggle(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "admin@rockfall.com", "secret123")

	rec := doJSON(t, srv, http.MethodGet, "/sensors?status=ONLINE", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sensors []models.Sensor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sensors))
	require.NotEmpty(t, sensors)
	for _, s := range sensors {
		assert.Equal(t, models.SensorOnline, s.Status)
	}

	id := sensors[0].ID
	rec = doJSON(t, srv, http.MethodPost, "/sensors/"+id+"/toggle", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var toggled models.Sensor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.False(t, toggled.Enabled)
	assert.Equal(t, models.SensorMaintenance, toggled.Status)
}

func TestListPredictionsWindowFilter(t *testing.T) {
	srv, st := newTestServer(t)
	token := loginAs(t, srv, "admin@rockfall.com", "secret123")

	st.PutPrediction(models.Prediction{
		ID:        "pred-old",
		SiteID:    "site-north-pit",
		Timestamp: time.Now().UTC().Add(-40 * 24 * time.Hour),
		RiskLevel: models.RiskHigh,
	})

	rec := doJSON(t, srv, http.MethodGet, "/predictions?window=30d", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var preds []models.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preds))
	for _, p := range preds {
		assert.NotEqual(t, "pred-old", p.ID)
	}

	rec = doJSON(t, srv, http.MethodGet, "/predictions?window=90d&risk_level=HIGH", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	preds = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preds))
	for _, p := range preds {
		assert.Equal(t, models.RiskHigh, p.RiskLevel)
	}
}

func TestAcknowledgeAlert(t *testing.T) {
	srv, st := newTestServer(t)
	token := loginAs(t, srv, "operator@rockfall.com", "secret123")

	var target models.Alert
	for _, a := range st.Alerts() {
		if a.Status == models.AlertActive {
			target = a
			break
		}
	}
	require.NotEmpty(t, target.ID)

	rec := doJSON(t, srv, http.MethodPost, "/api/alerts/"+target.ID+"/acknowledge", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var acked models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acked))
	assert.Equal(t, models.AlertAcknowledged, acked.Status)
	assert.NotEmpty(t, acked.AcknowledgedBy)
}

func TestDashboardStatsAndOverview(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "admin@rockfall.com", "secret123")

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard/stats", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Positive(t, stats.TotalSites)
	assert.Positive(t, stats.TotalSensors)

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/overview", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var overview struct {
		Panels []service.Panel `json:"panels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Len(t, overview.Panels, 3)
	for _, p := range overview.Panels {
		assert.Empty(t, p.Error, p.Name)
	}
}

func TestTrainingLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "admin@rockfall.com", "secret123")

	rec := doJSON(t, srv, http.MethodPost, "/training/start", token,
		`{"model_name":"fusion-v2","epochs":3,"learning_rate":0.001}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var job pipeline.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = doJSON(t, srv, http.MethodGet, "/training/status/"+job.ID, token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		if job.Status == pipeline.JobCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, status %s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.InDelta(t, 100, job.Progress, 1e-9)
	assert.Len(t, job.Metrics, 3)

	rec = doJSON(t, srv, http.MethodGet, "/training/jobs", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/training/status/missing", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartTrainingValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "admin@rockfall.com", "secret123")

	rec := doJSON(t, srv, http.MethodPost, "/training/start", token,
		`{"model_name":"fusion-v2","epochs":0,"learning_rate":0.001}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/training/start", token,
		`{"epochs":3,"learning_rate":0.001}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthOpen(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
