package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"municipal-sentinel/config"
	"municipal-sentinel/models"
	"municipal-sentinel/service"
	"municipal-sentinel/store/memstore"
	"municipal-sentinel/stuboracle"
)

func newTestRouter() (*gin.Engine, *memstore.Store) {
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	stub := stuboracle.NewClient()
	triage := service.New(&config.Config{OracleTimeout: 5 * time.Second}, st, stub, stub, nil)
	h := NewHandlers(st, triage)

	router := gin.New()
	api := router.Group("/api/v3")
	api.GET("/health", h.HealthCheck)
	api.POST("/report", h.SubmitReport)
	api.POST("/update_status", h.UpdateStatus)
	api.GET("/reports", h.GetReports)
	api.GET("/reports/filtered", h.GetFilteredReports)
	api.GET("/stats", h.GetStats)
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/map", h.GetMap)
	return router, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func submitBody(reporter, locationContext string) map[string]any {
	return map[string]any{
		"image":            []byte("jpeg bytes"),
		"latitude":         6.45,
		"longitude":        3.39,
		"location_context": locationContext,
		"reporter_id":      reporter,
	}
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter()
	w := doJSON(t, router, http.MethodGet, "/api/v3/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "municipal-sentinel", resp.Service)
}

func TestSubmitReport(t *testing.T) {
	router, _ := newTestRouter()
	w := doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody("citizen-1", "residential street"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Report  models.Report `json:"report"`
		Tier    string        `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "R001", resp.Report.ID)
	assert.Equal(t, models.StatusNew, resp.Report.Status)
	assert.Equal(t, "Pothole", resp.Report.DefectType)
	assert.Equal(t, models.TierLogged, resp.Tier)
}

func TestSubmitReportCriticalContext(t *testing.T) {
	router, _ := newTestRouter()
	w := doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody("citizen-1", "next to a school"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tier string `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.TierImmediate, resp.Tier)
}

func TestSubmitReportMissingReporter(t *testing.T) {
	router, _ := newTestRouter()
	body := submitBody("", "")
	delete(body, "reporter_id")
	w := doJSON(t, router, http.MethodPost, "/api/v3/report", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatus(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody("citizen-1", ""))

	w := doJSON(t, router, http.MethodPost, "/api/v3/update_status", models.UpdateStatusRequest{
		ID:     "R001",
		Status: models.StatusInProgress,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.UpdateStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, models.StatusInProgress, resp.Status)

	w = doJSON(t, router, http.MethodGet, "/api/v3/reports", nil)
	var list struct {
		Reports []models.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Reports, 1)
	assert.Equal(t, models.StatusInProgress, list.Reports[0].Status)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody("citizen-1", ""))

	w := doJSON(t, router, http.MethodPost, "/api/v3/update_status", models.UpdateStatusRequest{
		ID:     "R001",
		Status: "Done",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusNotFound(t *testing.T) {
	router, _ := newTestRouter()
	w := doJSON(t, router, http.MethodPost, "/api/v3/update_status", models.UpdateStatusRequest{
		ID:     "R042",
		Status: models.StatusResolved,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFilteredReports(t *testing.T) {
	router, _ := newTestRouter()
	for i := 0; i < 3; i++ {
		doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody("citizen-1", ""))
	}
	doJSON(t, router, http.MethodPost, "/api/v3/update_status", models.UpdateStatusRequest{
		ID:     "R002",
		Status: models.StatusResolved,
	})

	w := doJSON(t, router, http.MethodGet, "/api/v3/reports/filtered?statuses=Resolved", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int             `json:"count"`
		Reports []models.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, "R002", resp.Reports[0].ID)

	// The stub only produces potholes, so a drainage filter matches nothing.
	w = doJSON(t, router, http.MethodGet, "/api/v3/reports/filtered?types=Blocked+Drainage", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestGetStats(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody("citizen-1", ""))
	doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody("citizen-2", "highway shoulder"))

	w := doJSON(t, router, http.MethodGet, "/api/v3/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total       int     `json:"total"`
		Critical    int     `json:"critical"`
		AvgSeverity float64 `json:"avg_severity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Critical)
	assert.Equal(t, 5.0, resp.AvgSeverity)
}

func TestGetLeaderboard(t *testing.T) {
	router, _ := newTestRouter()
	for _, reporter := range []string{"alice", "bob", "alice"} {
		doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody(reporter, ""))
	}

	w := doJSON(t, router, http.MethodGet, "/api/v3/leaderboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Leaderboard []struct {
			Reporter string `json:"reporter_id"`
			Count    int    `json:"count"`
		} `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Leaderboard, 2)
	assert.Equal(t, "alice", resp.Leaderboard[0].Reporter)
	assert.Equal(t, 2, resp.Leaderboard[0].Count)
}

func TestGetMap(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, http.MethodPost, "/api/v3/report", submitBody("citizen-1", ""))

	w := doJSON(t, router, http.MethodGet, "/api/v3/map?latmin=6&latmax=7&lonmin=3&lonmax=4", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Cells []struct {
			Count int64 `json:"count"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Cells, 1)
	assert.Equal(t, int64(1), resp.Cells[0].Count)
}

func TestGetMapRequiresViewport(t *testing.T) {
	router, _ := newTestRouter()
	w := doJSON(t, router, http.MethodGet, "/api/v3/map?latmin=6&latmax=7", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
