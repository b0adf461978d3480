package handlers

import (
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/linesmerrill/interview-chat-api/api"
	"github.com/linesmerrill/interview-chat-api/api/scheduler"
	"github.com/linesmerrill/interview-chat-api/chat"
)

// formatRouteMetrics converts duration fields to milliseconds for JSON serialization
func formatRouteMetrics(routes []api.RouteMetrics) []map[string]interface{} {
	return lo.Map(routes, func(route api.RouteMetrics, _ int) map[string]interface{} {
		return map[string]interface{}{
			"method":      route.Method,
			"path":        route.Path,
			"count":       route.Count,
			"errorCount":  route.ErrorCount,
			"avgTime":     route.AvgTime.Milliseconds(),
			"minTime":     route.MinTime.Milliseconds(),
			"maxTime":     route.MaxTime.Milliseconds(),
			"p50Time":     route.P50Time.Milliseconds(),
			"p95Time":     route.P95Time.Milliseconds(),
			"p99Time":     route.P99Time.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	})
}

// MetricsHandler handles metrics requests
type MetricsHandler struct {
	Collector *api.MetricsCollector
	Rooms     *chat.Rooms
	Scheduler *scheduler.Scheduler
}

// MetricsResponse is the body of GET /api/v1/metrics
type MetricsResponse struct {
	Summary   api.Summary              `json:"summary"`
	Routes    []map[string]interface{} `json:"routes"`
	Chat      chat.RoomStats           `json:"chat"`
	ChatAudit *scheduler.AuditReport   `json:"chatAudit,omitempty"`
}

// GetMetrics returns request metrics, live chat room counts and the last chat audit
func (m MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	resp := MetricsResponse{
		Summary: m.Collector.Summary(),
		Routes:  formatRouteMetrics(m.Collector.Routes(limit)),
		Chat:    m.Rooms.Stats(),
	}
	if m.Scheduler != nil {
		resp.ChatAudit = m.Scheduler.LastAudit()
	}
	writeJSON(w, http.StatusOK, resp)
}
