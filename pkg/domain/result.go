package domain

import "time"

// AnalysisOptions records how an analysis was requested.
type AnalysisOptions struct {
	TargetSpecies      string `json:"target_species,omitempty"`
	IncludeInteractors bool   `json:"include_interactors"`
}

// AnalysisSummary aggregates the counters of one analysis run.
type AnalysisSummary struct {
	// SampleSize is ResolvedMain plus the number of identifiers that were not
	// found.
	SampleSize int `json:"sample_size"`
	// Submitted is the number of distinct submitted identifiers.
	Submitted int `json:"submitted"`
	// Found is the number of submitted identifiers that resolved to a node.
	Found int `json:"found"`
	// NotFound is the number of submitted identifiers that resolved to nothing.
	NotFound int `json:"not_found"`
	// ResolvedMain is the number of distinct main identifiers hit. When
	// interactors are included, each distinct interactor accession hit counts
	// as well.
	ResolvedMain int `json:"resolved_main"`
	// ResourceSampleSizes is the resolved sample size per main resource.
	ResourceSampleSizes map[string]int `json:"resource_sample_sizes"`
	// PathwaysHit is the number of pathway nodes touched by at least one hit.
	PathwaysHit int `json:"pathways_hit"`
}

// PathwayStatistics holds the finalized counts and scores for one pathway in
// one resource (or combined across resources).
type PathwayStatistics struct {
	EntitiesTotal    int        `json:"entities_total"`
	EntitiesFound    int        `json:"entities_found"`
	EntitiesRatio    float64    `json:"entities_ratio"`
	InteractorsTotal int        `json:"interactors_total"`
	InteractorsFound int        `json:"interactors_found"`
	ReactionsTotal   int        `json:"reactions_total"`
	ReactionsFound   int        `json:"reactions_found"`
	ReactionsRatio   float64    `json:"reactions_ratio"`
	PValue           float64    `json:"p_value"`
	FDR              float64    `json:"fdr"`
	Expression       []*float64 `json:"expression,omitempty"`
}

// PathwayResult is the per-pathway section of an AnalysisResult.
type PathwayResult struct {
	ID        string                       `json:"id"`
	Name      string                       `json:"name"`
	Species   string                       `json:"species"`
	Combined  PathwayStatistics            `json:"combined"`
	Resources map[string]PathwayStatistics `json:"resources"`
}

// AnalysisResult is the plain, serializable view of a finished analysis. It
// holds no references into the canonical graph.
type AnalysisResult struct {
	Token     string          `json:"token"`
	CreatedAt time.Time       `json:"created_at"`
	Options   AnalysisOptions `json:"options"`
	Summary   AnalysisSummary `json:"summary"`
	NotFound  []Identifier    `json:"not_found"`
	Pathways  []PathwayResult `json:"pathways"`
}
