package detector

import (
	"context"

	"github.com/noesis-kb/noesis/pkg/types"
	"github.com/noesis-kb/noesis/pkg/utils"
)

// Batch defaults. Callers override them through BatchOptions.
const (
	DefaultCandidateLimit  = 5
	DefaultSimilarityFloor = 0.0
)

// BatchOptions tunes BuildRelationshipGraph.
type BatchOptions struct {
	CandidateLimit  int
	SimilarityFloor float64
	Concurrency     int
}

func (o *BatchOptions) withDefaults() BatchOptions {
	opts := BatchOptions{
		CandidateLimit:  DefaultCandidateLimit,
		SimilarityFloor: DefaultSimilarityFloor,
		Concurrency:     utils.DefaultConcurrency,
	}
	if o == nil {
		return opts
	}
	if o.CandidateLimit > 0 {
		opts.CandidateLimit = o.CandidateLimit
	}
	if o.SimilarityFloor > 0 {
		opts.SimilarityFloor = o.SimilarityFloor
	}
	if o.Concurrency > 0 {
		opts.Concurrency = o.Concurrency
	}
	return opts
}

// BatchFailure records a unit whose neighbor search failed.
type BatchFailure struct {
	UnitID string
	Err    error
}

// BuildReport summarizes a batch run. Failures holds one entry per unit
// whose detection errored; the remaining units' relationships are unaffected.
type BuildReport struct {
	Units    int
	Failures []BatchFailure
}

// BuildRelationshipGraph runs FindRelatedUnits for every unit concurrently
// and returns the detected relationships keyed by unit id. A failure for one
// unit is isolated into the report; it never aborts the batch.
func (d *Detector) BuildRelationshipGraph(ctx context.Context, units []*types.AtomicUnit, opts *BatchOptions) (map[string][]types.Relationship, *BuildReport, error) {
	resolved := opts.withDefaults()

	pool := utils.NewWorkerPool(resolved.Concurrency, func(ctx context.Context, u *types.AtomicUnit) ([]types.Relationship, error) {
		return d.FindRelatedUnits(ctx, u, resolved.CandidateLimit, resolved.SimilarityFloor)
	})
	results, errs := pool.ProcessItems(ctx, units)

	report := &BuildReport{Units: len(units)}
	byUnit := make(map[string][]types.Relationship, len(units))
	for i, u := range units {
		if errs[i] != nil {
			report.Failures = append(report.Failures, BatchFailure{UnitID: u.ID, Err: errs[i]})
			continue
		}
		byUnit[u.ID] = results[i]
	}

	d.logger.Info("relationship graph batch finished",
		"units", len(units),
		"failures", len(report.Failures))
	return byUnit, report, nil
}
