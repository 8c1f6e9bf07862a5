package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pathwaycore/pkg/domain"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "pathwaycore_metrics_") {
		t.Fatalf("unexpected generated name %q", rec.Name())
	}
	rec.Observe(context.Background(), OpAnalyze, true, 2*time.Millisecond)
	rec.Observe(context.Background(), OpAnalyze, false, 3*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)
	rec.PoolSize(2)
	rec.PoolMiss()
	rec.CloneFailure()

	snap := rec.Snapshot()
	if snap.Results[OpAnalyze]["success"] != 1 || snap.Results[OpAnalyze]["error"] != 1 {
		t.Fatalf("unexpected results %v", snap.Results)
	}
	if snap.DurationsMS[OpAnalyze] != 5 {
		t.Fatalf("expected 5ms total, got %v", snap.DurationsMS[OpAnalyze])
	}
	if snap.PoolSize != 2 || snap.PoolMisses != 1 || snap.CloneFailures != 1 {
		t.Fatalf("unexpected pool metrics %+v", snap)
	}

	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatal("recorder not published")
	}
	var published ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(v.String()), &published); err != nil {
		t.Fatalf("decode published metrics: %v", err)
	}
	if published.Results[OpAnalyze]["success"] != 1 {
		t.Fatalf("published snapshot out of date: %+v", published)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	svc := newLoadedService(t, WithMetricsRecorder(rec), WithPoolObserver(rec))
	if _, err := svc.Analyze(context.Background(), ids("UniProtX"), domain.AnalysisOptions{}); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if _, err := svc.Analyze(context.Background(), nil, domain.AnalysisOptions{}); err == nil {
		t.Fatal("expected empty sample error")
	}

	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpAnalyze, "success")); got != 1 {
		t.Fatalf("expected one successful analysis, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpAnalyze, "error")); got != 1 {
		t.Fatalf("expected one failed analysis, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpLoad, "success")); got != 1 {
		t.Fatalf("expected one load, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.latency); n < 2 {
		t.Fatalf("expected latency series for load and analyze, got %d", n)
	}

	rec.PoolMiss()
	rec.CloneFailure()
	rec.PoolSize(7)
	if got := testutil.ToFloat64(rec.poolSize); got != 7 {
		t.Fatalf("expected pool gauge 7, got %v", got)
	}
	if got := testutil.ToFloat64(rec.failures); got != 1 {
		t.Fatalf("expected one clone failure, got %v", got)
	}
	if got := testutil.ToFloat64(rec.poolMisses); got < 1 {
		t.Fatalf("expected pool misses to be counted, got %v", got)
	}
}

func TestJSONTracerWritesFinishedSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ticks := []time.Time{fixedNow, fixedNow.Add(1500 * time.Microsecond)}
	tracer.clock = ClockFunc(func() time.Time {
		now := ticks[0]
		ticks = ticks[1:]
		return now
	})

	_, span := tracer.Start(context.Background(), OpMap)
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Operation != OpMap || e.Status != "error" || e.Error != "boom" || e.DurationMS != 1.5 {
		t.Fatalf("unexpected entry %+v", e)
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode trace line: %v", err)
	}
	if decoded.Operation != OpMap || !decoded.StartedAt.Equal(fixedNow) {
		t.Fatalf("unexpected encoded entry %+v", decoded)
	}

	silent := NewJSONTracer(nil)
	_, span = silent.Start(context.Background(), OpAnalyze)
	span.End(nil)
	if got := silent.Entries(); len(got) != 1 || got[0].Status != "success" {
		t.Fatalf("unexpected retained entries %+v", got)
	}
}
