package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes per-operation latency totals and outcome
// counters, plus snapshot pool events, through expvar. It implements both
// MetricsRecorder and pool.Observer.
type ExpvarMetricsRecorder struct {
	name string

	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
	poolSize  int
	misses    int64
	failures  int64
}

// ExpvarMetricsSnapshot is the JSON document exported under the recorder name.
type ExpvarMetricsSnapshot struct {
	DurationsMS   map[string]float64          `json:"durations_ms_total"`
	Results       map[string]map[string]int64 `json:"results_total"`
	PoolSize      int                         `json:"pool_size"`
	PoolMisses    int64                       `json:"pool_misses_total"`
	CloneFailures int64                       `json:"clone_failures_total"`
	RecordedAt    time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated unique name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("pathwaycore_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot returns a copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarMetricsSnapshot{
		DurationsMS:   make(map[string]float64, len(r.durations)),
		Results:       make(map[string]map[string]int64, len(r.results)),
		PoolSize:      r.poolSize,
		PoolMisses:    r.misses,
		CloneFailures: r.failures,
		RecordedAt:    time.Now().UTC(),
	}
	for op, total := range r.durations {
		snap.DurationsMS[op] = total
	}
	for op, counts := range r.results {
		cp := make(map[string]int64, len(counts))
		for status, n := range counts {
			cp[status] = n
		}
		snap.Results[op] = cp
	}
	return snap
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := statusLabel(success)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] += float64(duration) / float64(time.Millisecond)
	counts, ok := r.results[operation]
	if !ok {
		counts = make(map[string]int64, 2)
		r.results[operation] = counts
	}
	counts[status]++
}

// PoolSize implements pool.Observer.
func (r *ExpvarMetricsRecorder) PoolSize(n int) {
	r.mu.Lock()
	r.poolSize = n
	r.mu.Unlock()
}

// PoolMiss implements pool.Observer.
func (r *ExpvarMetricsRecorder) PoolMiss() {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
}

// CloneFailure implements pool.Observer.
func (r *ExpvarMetricsRecorder) CloneFailure() {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// PrometheusMetricsRecorder exports operation and pool metrics to a
// Prometheus registerer. It implements both MetricsRecorder and
// pool.Observer.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	poolSize   prometheus.Gauge
	poolMisses prometheus.Counter
	failures   prometheus.Counter
}

// NewPrometheusMetricsRecorder registers the pathwaycore collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathwaycore",
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome.",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pathwaycore",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pathwaycore",
			Subsystem: "pool",
			Name:      "snapshots",
			Help:      "Pre-cloned snapshots waiting in the pool.",
		}),
		poolMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathwaycore",
			Subsystem: "pool",
			Name:      "misses_total",
			Help:      "Takes served by an inline clone.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathwaycore",
			Subsystem: "pool",
			Name:      "clone_failures_total",
			Help:      "Failed snapshot clones.",
		}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.latency, r.poolSize, r.poolMisses, r.failures} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register prometheus collector: %w", err)
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, statusLabel(success)).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// PoolSize implements pool.Observer.
func (r *PrometheusMetricsRecorder) PoolSize(n int) { r.poolSize.Set(float64(n)) }

// PoolMiss implements pool.Observer.
func (r *PrometheusMetricsRecorder) PoolMiss() { r.poolMisses.Inc() }

// CloneFailure implements pool.Observer.
func (r *PrometheusMetricsRecorder) CloneFailure() { r.failures.Inc() }

// JSONTraceEntry is one finished span written by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes finished spans as JSON lines and keeps them for
// inspection.
type JSONTraceTracer struct {
	clock Clock

	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w. A nil writer only retains spans.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{clock: ClockFunc(nil)}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the finished spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: t.clock.Now()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := s.tracer.clock.Now()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     statusLabel(err == nil),
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}
