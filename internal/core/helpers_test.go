package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"pathwaycore/internal/graph"
	"pathwaycore/internal/graph/graphtest"
	"pathwaycore/pkg/domain"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newLoadedService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithClock(ClockFunc(func() time.Time { return fixedNow })),
		WithTokenGenerator(func() string { return "token" }),
		WithPoolSize(2),
	}
	svc := NewService(append(base, opts...)...)
	if err := svc.LoadDocument(context.Background(), graphtest.Document()); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := svc.Close(ctx); err != nil {
			t.Errorf("close service: %v", err)
		}
	})
	return svc
}

func ids(texts ...string) []domain.Identifier {
	out := make([]domain.Identifier, 0, len(texts))
	for _, text := range texts {
		out = append(out, graphtest.Identifier(text))
	}
	return out
}

func pathwayData(t *testing.T, snap *graph.Snapshot, id string) *graph.PathwayNodeData {
	t.Helper()
	n, ok := snap.Pathway(id)
	if !ok {
		t.Fatalf("pathway %s missing from snapshot", id)
	}
	return n.Data()
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	mu    sync.Mutex
	ended []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct {
	mu     sync.Mutex
	errors []string
	debugs []string
}

func (l *captureLogger) Debug(msg string, _ ...any) {
	l.mu.Lock()
	l.debugs = append(l.debugs, msg)
	l.mu.Unlock()
}
func (l *captureLogger) Info(string, ...any) {}
func (l *captureLogger) Warn(string, ...any) {}
func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}
