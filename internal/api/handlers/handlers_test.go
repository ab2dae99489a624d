package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load-profiler/internal/api/models"
	"load-profiler/internal/config"
)

const meterSample = `meter,date,time,kw
M1,2023-01-01,00:00:00.000,1.0
M1,2023-01-01,00:15:00.000,2.0
M1,2023-01-01,00:30:00.000,3.0
M1,2023-01-01,00:45:00.000,4.0
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.ArchiveDir = filepath.Join(dir, "archive")
	cfg.Paths.QuarantineDir = filepath.Join(dir, "quarantine")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.HashCachePath = filepath.Join(dir, "hashes")
	require.NoError(t, os.MkdirAll(cfg.Paths.DataDir, 0o755))
	return cfg
}

func testRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	analyze := NewAnalyzeHandler(cfg, nil)
	capacity := NewCapacityHandler(cfg, nil)

	api := router.Group("/api/v1")
	api.POST("/analyze", analyze.RunAnalysis)
	api.GET("/report/:format", analyze.DownloadReport)
	api.POST("/capacity", capacity.RunCapacity)
	return router
}

func writeSource(t *testing.T, cfg *config.Config, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.DataDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeEndpoint(t *testing.T) {
	cfg := testConfig(t)
	router := testRouter(t, cfg)
	src := writeSource(t, cfg, "meter-a.csv", meterSample)

	w := postJSON(t, router, "/api/v1/analyze", models.AnalyzeRequest{
		Files:   []string{src},
		Options: models.AnalyzeOptions{IncludeSeries: true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 4.0, resp.Report.PeakLoadKW)
	assert.Equal(t, 2.5, resp.Report.AverageLoadKW)
	assert.Equal(t, "meter-a.csv", resp.Report.InputFile)
	assert.Len(t, resp.Series, 4)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "admitted", resp.Files[0].Status)
}

func TestAnalyzeEndpointRejectsBadPolicy(t *testing.T) {
	cfg := testConfig(t)
	router := testRouter(t, cfg)
	src := writeSource(t, cfg, "meter-a.csv", meterSample)

	w := postJSON(t, router, "/api/v1/analyze", models.AnalyzeRequest{
		Files:   []string{src},
		Options: models.AnalyzeOptions{DemandPolicy: "guess"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_OPTIONS", resp.Error.Code)
}

func TestAnalyzeEndpointRejectsScaledEstimateWithoutScaleFactor(t *testing.T) {
	cfg := testConfig(t)
	router := testRouter(t, cfg)
	src := writeSource(t, cfg, "meter-a.csv", meterSample)

	// No scale factor in the request and none configured: the estimate is
	// unusable and must be rejected before the pipeline runs.
	w := postJSON(t, router, "/api/v1/analyze", models.AnalyzeRequest{
		Files:   []string{src},
		Options: models.AnalyzeOptions{DemandPolicy: "scaled-estimate"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_OPTIONS", resp.Error.Code)
}

func TestCapacityEndpoint(t *testing.T) {
	cfg := testConfig(t)
	router := testRouter(t, cfg)
	src := writeSource(t, cfg, "meter-a.csv", `meter,date,time,kw
M1,2023-01-01,00:00:00.000,8.0
M1,2023-01-01,00:15:00.000,9.0
M1,2023-01-01,00:30:00.000,10.5
M1,2023-01-01,00:45:00.000,12.5
`)

	w := postJSON(t, router, "/api/v1/capacity", models.CapacityRequest{
		Files:          []string{src},
		TransformerKVA: 10,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CapacityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10.0, resp.Distribution.TransformerKVA)
	for _, band := range resp.Distribution.Bands() {
		assert.InDelta(t, 25.0, band.Percent, 1e-9)
	}
}

func TestCapacityEndpointRequiresKVA(t *testing.T) {
	cfg := testConfig(t)
	router := testRouter(t, cfg)

	w := postJSON(t, router, "/api/v1/capacity", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportDownloadBeforeAnalysis(t *testing.T) {
	cfg := testConfig(t)
	router := testRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report/xlsx", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportDownloadAfterAnalysis(t *testing.T) {
	cfg := testConfig(t)
	router := testRouter(t, cfg)
	src := writeSource(t, cfg, "meter-a.csv", meterSample)

	w := postJSON(t, router, "/api/v1/analyze", models.AnalyzeRequest{Files: []string{src}})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report/pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String()[:4])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/report/doc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
