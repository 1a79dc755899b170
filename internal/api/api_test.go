package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rydeshare/perfmon/internal/monitoring"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*gin.Engine, *monitoring.Monitor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	monitor := monitoring.New(monitoring.Options{
		Source:         "test-app",
		DisableConsole: true,
		DisableToast:   true,
	})
	router := gin.New()
	Register(router, monitor, nil)
	return router, monitor
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetReport_EmptyStore(t *testing.T) {
	router, _ := newTestAPI(t)

	w := doJSON(t, router, http.MethodGet, "/api/monitoring/report", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		TotalMetrics   int              `json:"totalMetrics"`
		CriticalIssues int              `json:"criticalIssues"`
		Warnings       int              `json:"warnings"`
		Issues         []map[string]any `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Zero(t, report.TotalMetrics)
	assert.Zero(t, report.CriticalIssues)
	assert.NotNil(t, report.Issues, "issues serializes as [] not null")
	assert.Empty(t, report.Issues)
}

func TestGetMetrics_TimeRangeValidation(t *testing.T) {
	router, _ := newTestAPI(t)

	for _, tr := range []string{"1h", "24h", "7d", ""} {
		w := doJSON(t, router, http.MethodGet, "/api/monitoring/metrics?timeRange="+tr, nil)
		assert.Equal(t, http.StatusOK, w.Code, "timeRange %q", tr)
	}

	w := doJSON(t, router, http.MethodGet, "/api/monitoring/metrics?timeRange=3d", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestGetMetrics_EndpointFilter(t *testing.T) {
	router, monitor := newTestAPI(t)
	monitor.RecordAPICall("/bookings/list", 100, 200, nil)
	monitor.RecordAPICall("/cars/search", 120, 200, nil)

	w := doJSON(t, router, http.MethodGet, "/api/monitoring/metrics?endpoint=bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TimeRange string                      `json:"timeRange"`
		Metrics   map[string][]map[string]any `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1h", resp.TimeRange)
	require.Len(t, resp.Metrics["api"], 1)
	assert.Equal(t, "/bookings/list", resp.Metrics["api"][0]["name"])
}

func TestListAlerts(t *testing.T) {
	router, monitor := newTestAPI(t)
	monitor.RecordRender("ScreenA", 60, nil) // fires warning + critical

	w := doJSON(t, router, http.MethodGet, "/api/monitoring/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []alerting.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 2)

	w = doJSON(t, router, http.MethodGet, "/api/monitoring/alerts?severity=critical", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, alerting.SeverityCritical, alerts[0].Severity)

	w = doJSON(t, router, http.MethodGet, "/api/monitoring/alerts?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/monitoring/alerts?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/monitoring/alerts?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 1)
}

func TestAcknowledgeAndResolve(t *testing.T) {
	router, monitor := newTestAPI(t)
	monitor.RecordMemory("heap", 250)
	alerts := monitor.Alerts().Recent(1)
	require.Len(t, alerts, 1)
	id := alerts[0].ID

	w := doJSON(t, router, http.MethodPost, "/api/monitoring/alerts/"+id+"/acknowledge", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, monitor.Alerts().Recent(1)[0].Acknowledged)

	// unknown ids still succeed
	w = doJSON(t, router, http.MethodPost, "/api/monitoring/alerts/no-such-id/acknowledge", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/monitoring/alerts/"+id+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := monitor.Alerts().Recent(1)[0]
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.Acknowledged)
}

func TestGetAlertStats(t *testing.T) {
	router, monitor := newTestAPI(t)
	monitor.RecordMemory("heap", 250) // memory_high + memory_critical

	w := doJSON(t, router, http.MethodGet, "/api/monitoring/alerts/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats alerting.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.BySeverity[alerting.SeverityCritical])
	assert.Equal(t, 1, stats.BySeverity[alerting.SeverityWarning])
}

func TestRulesCRUD(t *testing.T) {
	router, monitor := newTestAPI(t)

	w := doJSON(t, router, http.MethodGet, "/api/monitoring/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rules []alerting.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
	assert.Len(t, rules, 6, "defaults are pre-registered")

	create := map[string]any{
		"id":   "nav_slow",
		"name": "Slow Navigation",
		"condition": map[string]any{
			"category":  "navigation",
			"op":        "gt",
			"threshold": 500,
		},
		"cooldownMs": 1000,
	}
	w = doJSON(t, router, http.MethodPost, "/api/monitoring/rules", create)
	require.Equal(t, http.StatusCreated, w.Code)
	var created alerting.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, alerting.SeverityWarning, created.Severity, "severity defaults to warning")
	assert.Equal(t, alerting.TypeCustom, created.Type)
	assert.True(t, created.Enabled)

	// duplicate id rejected
	w = doJSON(t, router, http.MethodPost, "/api/monitoring/rules", create)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// rule actually evaluates
	monitor.RecordNavigation("/checkout", 900)
	require.Len(t, monitor.Alerts().Query(alerting.Filter{}), 1)

	w = doJSON(t, router, http.MethodPatch, "/api/monitoring/rules/nav_slow/disable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	monitor.RecordNavigation("/account", 900)
	assert.Len(t, monitor.Alerts().Query(alerting.Filter{}), 1, "disabled rule stays silent")

	w = doJSON(t, router, http.MethodPatch, "/api/monitoring/rules/nav_slow/enable", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/monitoring/rules/nav_slow", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodDelete, "/api/monitoring/rules/nav_slow", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, router, http.MethodPatch, "/api/monitoring/rules/nav_slow/enable", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTestAlertEndpoint(t *testing.T) {
	router, monitor := newTestAPI(t)

	w := doJSON(t, router, http.MethodPost, "/api/monitoring/websocket/test-alert", map[string]any{
		"severity": "critical",
		"message":  "drill",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		OK    bool           `json:"ok"`
		Alert alerting.Alert `json:"alert"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, alerting.SeverityCritical, resp.Alert.Severity)
	assert.Equal(t, "drill", resp.Alert.Message)
	assert.Equal(t, 1, monitor.Alerts().Len())

	w = doJSON(t, router, http.MethodPost, "/api/monitoring/websocket/test-alert", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, alerting.SeverityInfo, resp.Alert.Severity)
}

func TestHealthz(t *testing.T) {
	router, _ := newTestAPI(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
