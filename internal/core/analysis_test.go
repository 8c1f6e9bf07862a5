package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"golang.org/x/sync/errgroup"

	"pathwaycore/internal/graph/graphtest"
	"pathwaycore/pkg/domain"
)

func TestAnalyzeSingleCanonicalIdentifier(t *testing.T) {
	svc := newLoadedService(t)
	snap, err := svc.Analyze(context.Background(), ids("UniProtX"), domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if nf := snap.NotFound(); len(nf) != 0 {
		t.Fatalf("expected nothing not found, got %v", nf)
	}
	d := pathwayData(t, snap, graphtest.SignalingByX)
	if got := d.FoundEntities(graphtest.UniProtResource); got != 1 {
		t.Fatalf("expected one found UniProt entity, got %d", got)
	}
	if got := pathwayData(t, snap, graphtest.SignalTransduction).TotalEntities(graphtest.UniProtResource); got != 10 {
		t.Fatalf("expected parent pathway total of 10, got %d", got)
	}
	if got := snap.SampleSize(); got != 1 {
		t.Fatalf("expected sample size 1, got %d", got)
	}
	if got := snap.Token(); got != "token" {
		t.Fatalf("expected generated token, got %q", got)
	}

	stats := d.Statistics(graphtest.UniProtResource)
	if math.Abs(stats.PValue-0.5) > 1e-9 {
		t.Fatalf("expected p-value 0.5 (6 of 12 proteins), got %v", stats.PValue)
	}
	if stats.FDR < stats.PValue || stats.FDR > 1 {
		t.Fatalf("fdr %v out of range for p %v", stats.FDR, stats.PValue)
	}
	res := snap.Result()
	if res.Summary.PathwaysHit != 2 || res.Pathways[0].ID != graphtest.SignalingByX {
		t.Fatalf("expected most significant pathway first, got %+v", res.Pathways)
	}
	if !res.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected clock time, got %s", res.CreatedAt)
	}
}

func TestAnalyzeUnknownIdentifier(t *testing.T) {
	svc := newLoadedService(t)
	snap, err := svc.Analyze(context.Background(), ids("unknown123"), domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	nf := snap.NotFound()
	if len(nf) != 1 || nf[0].ID != "unknown123" {
		t.Fatalf("expected unknown123 not found, got %v", nf)
	}
	if len(snap.TouchedPathways()) != 0 {
		t.Fatal("expected no pathway touched")
	}
	if snap.SampleSize() != 1 {
		t.Fatalf("expected sample size 1, got %d", snap.SampleSize())
	}
}

func TestAnalyzeRecordsEveryMatch(t *testing.T) {
	svc := newLoadedService(t)
	snap, err := svc.Analyze(context.Background(), ids("shared"), domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if snap.ResolvedCount() != 2 || snap.FoundCount() != 1 {
		t.Fatalf("expected one identifier resolving to two entities, got %d/%d", snap.FoundCount(), snap.ResolvedCount())
	}
	for _, id := range []string{graphtest.SignalingByX, graphtest.Metabolism} {
		if got := pathwayData(t, snap, id).FoundEntities(graphtest.UniProtResource); got != 1 {
			t.Fatalf("%s: expected one hit, got %d", id, got)
		}
	}
}

func TestAnalyzeInteractors(t *testing.T) {
	svc := newLoadedService(t)
	ctx := context.Background()

	without, err := svc.Analyze(ctx, ids("INTX"), domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(without.NotFound()) != 1 {
		t.Fatal("interactor alias must not resolve without interactors")
	}

	with, err := svc.Analyze(ctx, ids("INTX"), domain.AnalysisOptions{IncludeInteractors: true})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(with.NotFound()) != 0 {
		t.Fatalf("expected interactor to resolve, not found %v", with.NotFound())
	}
	for _, id := range []string{graphtest.SignalingByX, graphtest.SignalTransduction, graphtest.Metabolism} {
		d := pathwayData(t, with, id)
		if d.FoundInteractors(graphtest.UniProtResource) != 1 || d.FoundEntities(graphtest.UniProtResource) != 0 {
			t.Fatalf("%s: expected a single interactor hit", id)
		}
		if p := d.Statistics(graphtest.UniProtResource).PValue; p >= 1 || p <= 0 {
			t.Fatalf("%s: expected interactor evidence to be scored, got %v", id, p)
		}
	}
	if !with.Options().IncludeInteractors {
		t.Fatal("options not recorded")
	}
}

func TestInteractorHitsJoinSampleSize(t *testing.T) {
	svc := newLoadedService(t)
	ctx := context.Background()

	with, err := svc.Analyze(ctx, ids("UniProtX", "IA1"), domain.AnalysisOptions{IncludeInteractors: true})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got := with.ResolvedCount(); got != 2 {
		t.Fatalf("expected UniProtX and IA1 resolved, got %d", got)
	}
	if got := with.SampleSize(); got != 2 {
		t.Fatalf("expected sample size 2, got %d", got)
	}
	if got := with.ResourceSampleSize(graphtest.UniProtResource); got != 2 {
		t.Fatalf("expected the interactor counted under UniProt, got %d", got)
	}

	without, err := svc.Analyze(ctx, ids("UniProtX", "IA1"), domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	summary := without.Summary()
	if summary.ResolvedMain != 1 || summary.NotFound != 1 || summary.SampleSize != 2 {
		t.Fatalf("unexpected summary without interactors %+v", summary)
	}
}

func TestAnalyzeCarriesSubmittedExpression(t *testing.T) {
	svc := newLoadedService(t)
	sample := []domain.Identifier{
		graphtest.Identifier("UniProtX", 2, 10),
		domain.NewIdentifier(domain.IdentifierSpec{ID: "HP2", ExpressionValues: []*float64{domain.Float(4), nil}}),
	}
	snap, err := svc.Analyze(context.Background(), sample, domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	exp := pathwayData(t, snap, graphtest.SignalingByX).Statistics(graphtest.UniProtResource).Expression
	if len(exp) != 2 || *exp[0] != 3 || *exp[1] != 10 {
		t.Fatalf("unexpected expression means %v", exp)
	}
}

func TestAnalyzeDeduplicatesProteoforms(t *testing.T) {
	svc := newLoadedService(t)
	sample := []domain.Identifier{
		domain.NewIdentifier(domain.IdentifierSpec{ID: "UniProtX", Modifications: domain.Modifications{"MOD:00046": {12, 3}}}),
		domain.NewIdentifier(domain.IdentifierSpec{ID: "UniProtX", Modifications: domain.Modifications{"MOD:00046": {3, 12}}}),
		domain.NewIdentifier(domain.IdentifierSpec{ID: "UniProtX", Modifications: domain.Modifications{"MOD:00046": {3, 13}}}),
	}
	snap, err := svc.Analyze(context.Background(), sample, domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	sum := snap.Summary()
	if sum.Submitted != 2 || sum.Found != 2 || sum.ResolvedMain != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	svc := newLoadedService(t)
	sample := ids("HP12", "UniProtX", "unknown123", "CHEBI:15422", "SHARED", "HP7")
	first, err := svc.AnalyzeResult(context.Background(), sample, domain.AnalysisOptions{IncludeInteractors: true})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	reversed := make([]domain.Identifier, len(sample))
	for i, id := range sample {
		reversed[len(sample)-1-i] = id
	}
	second, err := svc.AnalyzeResult(context.Background(), reversed, domain.AnalysisOptions{IncludeInteractors: true})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestAnalyzeRejectsEmptySample(t *testing.T) {
	svc := newLoadedService(t)
	for _, sample := range [][]domain.Identifier{nil, ids(" ", "")} {
		_, err := svc.Analyze(context.Background(), sample, domain.AnalysisOptions{})
		if !errors.Is(err, domain.ErrEmptySample) {
			t.Fatalf("expected ErrEmptySample, got %v", err)
		}
	}
	if svc.Stats().AnalysesInFlight != 0 {
		t.Fatal("rejected analysis left an in-flight registration")
	}
}

func TestAnalyzeBeforeLoadIsRetryable(t *testing.T) {
	svc := NewService()
	_, err := svc.Analyze(context.Background(), ids("UniProtX"), domain.AnalysisOptions{})
	if !errors.Is(err, domain.ErrNotReady) || !domain.IsRetryable(err) {
		t.Fatalf("expected retryable ErrNotReady, got %v", err)
	}
}

func TestAnalyzeUnknownTargetSpecies(t *testing.T) {
	svc := newLoadedService(t)
	_, err := svc.Analyze(context.Background(), ids("MP1"), domain.AnalysisOptions{TargetSpecies: "Danio rerio"})
	var notFound domain.SpeciesNotFoundError
	if !errors.As(err, &notFound) || notFound.Species != "Danio rerio" {
		t.Fatalf("expected SpeciesNotFoundError, got %v", err)
	}
	if domain.IsRetryable(err) {
		t.Fatal("species errors must not be retryable")
	}
}

func TestAnalyzeCancellationReleasesInFlight(t *testing.T) {
	svc := newLoadedService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Analyze(ctx, ids("UniProtX", "HP2"), domain.AnalysisOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := svc.Stats().AnalysesInFlight; got != 0 {
		t.Fatalf("expected in-flight counter back to zero, got %d", got)
	}
}

func TestConcurrentAnalysesDoNotShareState(t *testing.T) {
	svc := newLoadedService(t)
	g, err := svc.Graph()
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	canonical := g.Document()

	var eg errgroup.Group
	for i := 2; i <= 10; i++ {
		acc := fmt.Sprintf("HP%d", i)
		eg.Go(func() error {
			for round := 0; round < 5; round++ {
				snap, err := svc.Analyze(context.Background(), ids(acc), domain.AnalysisOptions{})
				if err != nil {
					return err
				}
				if snap.FoundCount() != 1 || snap.ResolvedCount() != 1 {
					return fmt.Errorf("%s: found %d resolved %d", acc, snap.FoundCount(), snap.ResolvedCount())
				}
				n, _ := snap.Pathway(graphtest.SignalTransduction)
				hits := n.Data().FoundIdentifiers(graphtest.UniProtResource)
				if len(hits) != 1 || hits[0].Value.ID != acc {
					return fmt.Errorf("%s: cross-contaminated hits %v", acc, hits)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(canonical, g.Document()) {
		t.Fatal("canonical graph changed")
	}
	h, _ := g.Hierarchy(domain.Species{Name: graphtest.Human})
	for _, n := range h.Nodes() {
		if n.Data().HasHits() {
			t.Fatalf("canonical pathway %s mutated", n.ID)
		}
	}
	if n, _ := h.Node(graphtest.SignalTransduction); n.Data().TotalEntities(graphtest.UniProtResource) != 10 {
		t.Fatal("canonical totals changed")
	}
	if svc.Stats().AnalysesInFlight != 0 {
		t.Fatal("in-flight analyses leaked")
	}
}
