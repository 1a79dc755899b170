// Package api exposes the monitoring pipeline over HTTP and websocket for
// the operations dashboard.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rydeshare/perfmon/internal/monitoring"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
	"github.com/rydeshare/perfmon/internal/monitoring/metric"
)

type MonitoringAPI struct {
	Monitor *monitoring.Monitor
	Hub     *Hub
}

// Register binds the monitoring routes to the router.
func Register(router *gin.Engine, monitor *monitoring.Monitor, hub *Hub) *MonitoringAPI {
	api := &MonitoringAPI{Monitor: monitor, Hub: hub}

	g := router.Group("/api/monitoring")
	g.GET("/metrics", api.GetMetrics)
	g.GET("/report", api.GetReport)
	g.GET("/alerts", api.ListAlerts)
	g.GET("/alerts/stats", api.GetAlertStats)
	g.POST("/alerts/:alertID/acknowledge", api.AcknowledgeAlert)
	g.POST("/alerts/:alertID/resolve", api.ResolveAlert)
	g.GET("/rules", api.ListRules)
	g.POST("/rules", api.CreateRule)
	g.DELETE("/rules/:ruleID", api.DeleteRule)
	g.PATCH("/rules/:ruleID/enable", api.EnableRule)
	g.PATCH("/rules/:ruleID/disable", api.DisableRule)
	g.POST("/websocket/test-alert", api.TestAlert)

	if hub != nil {
		router.GET("/api/monitoring/ws", func(c *gin.Context) { hub.HandleWS(c.Writer, c.Request) })
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, map[string]any{"ok": true}) })
	return api
}

func parseTimeRange(s string) (time.Duration, bool) {
	switch s {
	case "", "1h":
		return time.Hour, true
	case "24h":
		return 24 * time.Hour, true
	case "7d":
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// GetMetrics returns retained samples inside the requested window, optionally
// filtered by a substring of the sample name.
func (api *MonitoringAPI) GetMetrics(c *gin.Context) {
	timeRange := c.Query("timeRange")
	window, ok := parseTimeRange(timeRange)
	if !ok {
		c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_PARAMETER", "message": "timeRange must be 1h, 24h or 7d"}})
		return
	}
	if timeRange == "" {
		timeRange = "1h"
	}
	endpoint := c.Query("endpoint")

	end := metric.NowMillis()
	start := end - window.Milliseconds()
	metrics := api.Monitor.Store().Snapshot(start)
	if endpoint != "" {
		for cat, samples := range metrics {
			kept := samples[:0]
			for _, s := range samples {
				if strings.Contains(s.Name, endpoint) {
					kept = append(kept, s)
				}
			}
			if len(kept) == 0 {
				delete(metrics, cat)
				continue
			}
			metrics[cat] = kept
		}
	}

	c.JSON(http.StatusOK, map[string]any{
		"timeRange": timeRange,
		"startTime": start,
		"endTime":   end,
		"metrics":   metrics,
	})
}

// GetReport returns the on-demand performance report.
func (api *MonitoringAPI) GetReport(c *gin.Context) {
	c.JSON(http.StatusOK, api.Monitor.Report(0))
}

// ListAlerts returns recent alerts, newest first.
func (api *MonitoringAPI) ListAlerts(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_PARAMETER", "message": "limit must be a positive integer"}})
			return
		}
		limit = n
	}
	f := alerting.Filter{Limit: limit}
	if sev := c.Query("severity"); sev != "" {
		f.Severity = alerting.Severity(sev)
	}
	c.JSON(http.StatusOK, api.Monitor.Alerts().Query(f))
}

// GetAlertStats returns aggregate alert counts over the default window.
func (api *MonitoringAPI) GetAlertStats(c *gin.Context) {
	c.JSON(http.StatusOK, api.Monitor.Alerts().Stats(0))
}

// AcknowledgeAlert marks an alert acknowledged. Unknown ids succeed; the
// operation is an idempotent no-op.
func (api *MonitoringAPI) AcknowledgeAlert(c *gin.Context) {
	api.Monitor.Alerts().Acknowledge(c.Param("alertID"))
	c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// ResolveAlert marks an alert resolved (and therefore acknowledged).
func (api *MonitoringAPI) ResolveAlert(c *gin.Context) {
	api.Monitor.Alerts().Resolve(c.Param("alertID"))
	c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// ListRules returns the rule registry in evaluation order.
func (api *MonitoringAPI) ListRules(c *gin.Context) {
	c.JSON(http.StatusOK, api.Monitor.Engine().Rules())
}

// CreateRule registers a new rule at the end of the evaluation order.
func (api *MonitoringAPI) CreateRule(c *gin.Context) {
	var req struct {
		ID         string                   `json:"id"`
		Name       string                   `json:"name"`
		Enabled    *bool                    `json:"enabled"`
		Condition  alerting.Condition       `json:"condition"`
		Severity   alerting.Severity        `json:"severity"`
		Type       alerting.Type            `json:"type"`
		CooldownMs int64                    `json:"cooldownMs"`
		Channels   []alerting.ChannelConfig `json:"channels"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_JSON", "message": err.Error()}})
		return
	}
	rule := &alerting.Rule{
		ID:        req.ID,
		Name:      req.Name,
		Enabled:   true,
		Condition: req.Condition,
		Severity:  req.Severity,
		Type:      req.Type,
		Cooldown:  time.Duration(req.CooldownMs) * time.Millisecond,
		Channels:  req.Channels,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if rule.Severity == "" {
		rule.Severity = alerting.SeverityWarning
	}
	if rule.Type == "" {
		rule.Type = alerting.TypeCustom
	}
	if err := api.Monitor.Engine().AddRule(rule); err != nil {
		c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_RULE", "message": err.Error()}})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// DeleteRule removes a rule from the registry. Historical alerts keep their
// ruleId reference.
func (api *MonitoringAPI) DeleteRule(c *gin.Context) {
	if !api.Monitor.Engine().RemoveRule(c.Param("ruleID")) {
		c.JSON(http.StatusNotFound, map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": "rule not found"}})
		return
	}
	c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func (api *MonitoringAPI) EnableRule(c *gin.Context)  { api.setRuleEnabled(c, true) }
func (api *MonitoringAPI) DisableRule(c *gin.Context) { api.setRuleEnabled(c, false) }

func (api *MonitoringAPI) setRuleEnabled(c *gin.Context, enabled bool) {
	if !api.Monitor.Engine().SetEnabled(c.Param("ruleID"), enabled) {
		c.JSON(http.StatusNotFound, map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": "rule not found"}})
		return
	}
	c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// TestAlert fires a synthetic alert through the full pipeline.
func (api *MonitoringAPI) TestAlert(c *gin.Context) {
	var req struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_JSON", "message": err.Error()}})
		return
	}
	alert := api.Monitor.FireTestAlert(alerting.Severity(req.Severity), req.Message)
	c.JSON(http.StatusOK, map[string]any{"ok": true, "alert": alert})
}
