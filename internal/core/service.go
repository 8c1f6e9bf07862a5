// Package core is the pathway enrichment engine facade. A Service owns the
// loaded canonical graph and its snapshot pool and exposes analysis, identifier
// mapping and species projection on top of them.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"pathwaycore/internal/graph"
	"pathwaycore/internal/pool"
	"pathwaycore/pkg/domain"
)

// DefaultSampleCacheSize bounds the per-species synthesized sample cache.
const DefaultSampleCacheSize = 16

// Service runs analyses against the currently loaded canonical graph.
type Service struct {
	logger       Logger
	metrics      MetricsRecorder
	tracer       Tracer
	clock        Clock
	poolSize     int
	backoff      time.Duration
	poolObserver pool.Observer
	cacheSize    int
	newToken     func() string

	mu     sync.RWMutex
	graph  *graph.Graph
	pool   *pool.Pool
	closed bool

	samples  *lru.Cache[sampleKey, []domain.Identifier]
	mappings atomic.Int64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger installs the structured logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder installs the operation metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer installs the operation tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the clock stamping analysis results.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPoolSize sets the snapshot pool capacity.
func WithPoolSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

// WithReplenishBackoff sets the delay after a failed background clone.
func WithReplenishBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithPoolObserver forwards pool events, typically to a metrics exporter.
func WithPoolObserver(o pool.Observer) Option {
	return func(s *Service) { s.poolObserver = o }
}

// WithSampleCacheSize bounds the synthesized sample cache.
func WithSampleCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// WithTokenGenerator overrides how analysis tokens are minted.
func WithTokenGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newToken = fn
		}
	}
}

// NewService constructs a service with no graph loaded. Analyses fail with
// domain.ErrNotReady until Load succeeds.
func NewService(opts ...Option) *Service {
	s := &Service{
		logger:    noopLogger{},
		metrics:   noopMetricsRecorder{},
		tracer:    noopTracer{},
		clock:     ClockFunc(nil),
		poolSize:  pool.DefaultSize,
		backoff:   pool.DefaultBackoff,
		cacheSize: DefaultSampleCacheSize,
		newToken:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.New[sampleKey, []domain.Identifier](s.cacheSize)
	if err != nil {
		panic(fmt.Sprintf("sample cache: %v", err))
	}
	s.samples = cache
	return s
}

// Load installs g as the canonical graph, replacing (and stopping the pool
// of) any previously loaded graph. The graph must have completed its
// statistics initialization.
func (s *Service) Load(ctx context.Context, g *graph.Graph) error {
	return s.observe(ctx, OpLoad, func(ctx context.Context) error {
		if !g.Ready() {
			return domain.NotReadyError{Reason: "graph statistics not initialized"}
		}
		opts := []pool.Option{
			pool.WithSize(s.poolSize),
			pool.WithBackoff(s.backoff),
			pool.WithLogger(s.logger),
		}
		if s.poolObserver != nil {
			opts = append(opts, pool.WithObserver(s.poolObserver))
		}
		next := pool.New(g, opts...)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return errors.New("service closed")
		}
		prev := s.pool
		s.graph = g
		s.pool = next
		s.samples.Purge()
		next.Start()
		s.mu.Unlock()

		if prev != nil {
			return prev.Stop(ctx)
		}
		return nil
	}, "version", g.Version())
}

// LoadDocument builds a canonical graph from doc and loads it.
func (s *Service) LoadDocument(ctx context.Context, doc domain.GraphDocument) error {
	g, err := graph.Build(ctx, doc)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	return s.Load(ctx, g)
}

// LoadFrom reads the graph document from store, rebuilds every statistic and
// loads the result.
func (s *Service) LoadFrom(ctx context.Context, store domain.GraphStore) error {
	doc, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load graph document: %w", err)
	}
	return s.LoadDocument(ctx, doc)
}

// StoreTo persists the loaded graph into store.
func (s *Service) StoreTo(ctx context.Context, store domain.GraphStore) error {
	return s.observe(ctx, OpStore, func(ctx context.Context) error {
		g, _, err := s.current()
		if err != nil {
			return err
		}
		return store.Store(ctx, g.Document())
	})
}

// Unload drops the canonical graph and stops the replenisher. Subsequent
// analyses fail with domain.ErrNotReady.
func (s *Service) Unload(ctx context.Context) error {
	return s.observe(ctx, OpUnload, func(ctx context.Context) error {
		s.mu.Lock()
		prev := s.pool
		s.graph = nil
		s.pool = nil
		s.samples.Purge()
		s.mu.Unlock()
		if prev == nil {
			return nil
		}
		return prev.Stop(ctx)
	})
}

// Close unloads the graph and rejects further loads.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Unload(ctx)
}

// Graph returns the loaded canonical graph.
func (s *Service) Graph() (*graph.Graph, error) {
	g, _, err := s.current()
	return g, err
}

func (s *Service) current() (*graph.Graph, *pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil || s.pool == nil {
		return nil, nil, domain.NotReadyError{Reason: "no graph loaded"}
	}
	return s.graph, s.pool, nil
}

// Species lists the species with a registered pathway hierarchy.
func (s *Service) Species() ([]domain.Species, error) {
	g, _, err := s.current()
	if err != nil {
		return nil, err
	}
	var out []domain.Species
	for _, sp := range g.Species() {
		if _, ok := g.Hierarchy(sp); ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

// Stats describes the engine's runtime state.
type Stats struct {
	Loaded           bool   `json:"loaded"`
	GraphVersion     string `json:"graph_version,omitempty"`
	PoolSize         int    `json:"pool_size"`
	PoolCapacity     int    `json:"pool_capacity"`
	AnalysesInFlight int    `json:"analyses_in_flight"`
	MappingsInFlight int    `json:"mappings_in_flight"`
}

// Stats returns a point-in-time view of the pool and in-flight counters.
func (s *Service) Stats() Stats {
	st := Stats{PoolCapacity: s.poolSize, MappingsInFlight: int(s.mappings.Load())}
	g, p, err := s.current()
	if err != nil {
		return st
	}
	st.Loaded = true
	st.GraphVersion = g.Version()
	st.PoolSize = p.Len()
	st.AnalysesInFlight = p.InFlight()
	return st
}

func (s *Service) lookupHierarchySpecies(g *graph.Graph, query string) (domain.Species, error) {
	sp, ok := g.LookupSpecies(query)
	if !ok {
		return domain.Species{}, domain.SpeciesNotFoundError{Species: query}
	}
	if _, ok := g.Hierarchy(sp); !ok {
		return domain.Species{}, domain.SpeciesNotFoundError{Species: query}
	}
	return sp, nil
}
