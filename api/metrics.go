package api

import (
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	traceBuffer     = 1000
	latencySamples  = 200
	defaultTopLimit = 20
)

var (
	objectIDSegment = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)
	uuidSegment     = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
)

// RequestTrace is the timing of a single request
type RequestTrace struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	StartTime time.Time
	Duration  time.Duration
}

// RouteMetrics aggregates metrics for a specific route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"-"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	P50Time     time.Duration `json:"p50Time"`
	P95Time     time.Duration `json:"p95Time"`
	P99Time     time.Duration `json:"p99Time"`
	LastRequest time.Time     `json:"lastRequest"`

	samples []time.Duration
}

// Summary is the overall request picture since the collector started
type Summary struct {
	TotalRequests int64     `json:"totalRequests"`
	TotalErrors   int64     `json:"totalErrors"`
	ErrorRate     float64   `json:"errorRate"`
	RouteCount    int       `json:"routeCount"`
	Since         time.Time `json:"since"`
}

// MetricsCollector aggregates request traces per route. Recording never blocks:
// traces are queued and folded in by a background goroutine, and dropped when the
// queue is full.
type MetricsCollector struct {
	mu            sync.RWMutex
	routes        map[string]*RouteMetrics
	totalRequests int64
	totalErrors   int64
	since         time.Time

	traceChan chan RequestTrace
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewMetricsCollector creates a collector and starts its background processor
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		routes:    make(map[string]*RouteMetrics),
		since:     time.Now(),
		traceChan: make(chan RequestTrace, traceBuffer),
		stopChan:  make(chan struct{}),
	}
	go mc.processTraces()
	return mc
}

// Stop ends background processing
func (mc *MetricsCollector) Stop() {
	mc.stopOnce.Do(func() { close(mc.stopChan) })
}

// RecordTrace queues a trace, dropping it if the queue is full
func (mc *MetricsCollector) RecordTrace(trace RequestTrace) {
	select {
	case mc.traceChan <- trace:
	default:
	}
}

func (mc *MetricsCollector) processTraces() {
	for {
		select {
		case trace := <-mc.traceChan:
			mc.processTrace(trace)
		case <-mc.stopChan:
			return
		}
	}
}

func (mc *MetricsCollector) processTrace(trace RequestTrace) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	path := normalizeRoutePath(trace.Path)
	key := trace.Method + " " + path
	m, ok := mc.routes[key]
	if !ok {
		m = &RouteMetrics{Method: trace.Method, Path: path, MinTime: trace.Duration}
		mc.routes[key] = m
	}

	m.Count++
	m.TotalTime += trace.Duration
	m.AvgTime = m.TotalTime / time.Duration(m.Count)
	m.LastRequest = trace.StartTime
	m.MinTime = min(m.MinTime, trace.Duration)
	m.MaxTime = max(m.MaxTime, trace.Duration)

	if len(m.samples) >= latencySamples {
		m.samples = m.samples[1:]
	}
	m.samples = append(m.samples, trace.Duration)

	mc.totalRequests++
	if trace.Status >= 400 {
		m.ErrorCount++
		mc.totalErrors++
	}
}

// percentiles returns P50, P95 and P99 of samples
func percentiles(samples []time.Duration) (p50, p95, p99 time.Duration) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	at := func(q float64) time.Duration {
		idx := int(float64(len(sorted)) * q)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	return at(0.50), at(0.95), at(0.99)
}

// Routes returns a copy of every route's metrics, busiest first
func (mc *MetricsCollector) Routes(limit int) []RouteMetrics {
	if limit <= 0 {
		limit = defaultTopLimit
	}

	mc.mu.RLock()
	out := make([]RouteMetrics, 0, len(mc.routes))
	for _, m := range mc.routes {
		c := *m
		c.P50Time, c.P95Time, c.P99Time = percentiles(m.samples)
		c.samples = nil
		out = append(out, c)
	}
	mc.mu.RUnlock()

	slices.SortFunc(out, func(a, b RouteMetrics) int {
		if a.Count != b.Count {
			return int(b.Count - a.Count)
		}
		return strings.Compare(a.Method+a.Path, b.Method+b.Path)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Summary returns overall request counts
func (mc *MetricsCollector) Summary() Summary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	s := Summary{
		TotalRequests: mc.totalRequests,
		TotalErrors:   mc.totalErrors,
		RouteCount:    len(mc.routes),
		Since:         mc.since,
	}
	if mc.totalRequests > 0 {
		s.ErrorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	return s
}

// normalizeRoutePath replaces id segments with a placeholder so that requests for
// different sessions and messages share a route:
//
//	/api/v1/interview-sessions/507f1f77bcf86cd799439011/chat -> /api/v1/interview-sessions/{id}/chat
func normalizeRoutePath(path string) string {
	// run twice: adjacent ids share the slash between them
	for i := 0; i < 2; i++ {
		path = objectIDSegment.ReplaceAllString(path, "/{id}$1")
		path = uuidSegment.ReplaceAllString(path, "/{id}$1")
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
