package detector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/noesis-kb/noesis/pkg/embedder"
	"github.com/noesis-kb/noesis/pkg/oracle"
	"github.com/noesis-kb/noesis/pkg/types"
	"github.com/noesis-kb/noesis/pkg/vectorindex"
)

// minStrength is the hard floor a verdict must clear. Relationships at or
// below it are computed but never emitted.
const minStrength = 0.5

// Detector runs the two-stage relationship pipeline for a single unit or a
// batch of units.
type Detector struct {
	embedder embedder.Client
	index    vectorindex.Index
	oracle   oracle.Client
	logger   *slog.Logger
}

// New wires the pipeline. A nil logger falls back to slog.Default.
func New(emb embedder.Client, index vectorindex.Index, orc oracle.Client, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{embedder: emb, index: index, oracle: orc, logger: logger}
}

// FindRelatedUnits returns the validated relationships from unit to its
// nearest neighbors.
//
// Stage 1 shortlists up to candidateLimit units by cosine similarity,
// generating and attaching unit's embedding first if it is missing, then
// drops the unit itself and every candidate below similarityFloor. Stage 2
// asks the oracle to judge each survivor; a candidate is emitted only when
// the verdict is parseable, isRelated, and strictly stronger than 0.5.
//
// Index and embedding failures propagate. Oracle failures degrade: the
// candidate is dropped and the search continues.
func (d *Detector) FindRelatedUnits(ctx context.Context, unit *types.AtomicUnit, candidateLimit int, similarityFloor float64) ([]types.Relationship, error) {
	if err := unit.Validate(); err != nil {
		return nil, err
	}
	if candidateLimit <= 0 {
		return nil, types.ErrInvalidLimit
	}

	if len(unit.Embedding) == 0 {
		vec, err := d.embedder.EmbedSingle(ctx, unit.Content)
		if err != nil {
			return nil, fmt.Errorf("embedding unit %s: %w", unit.ID, err)
		}
		unit.Embedding = vec
	}

	candidates, err := d.index.SearchByEmbedding(ctx, unit.Embedding, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("searching candidates for unit %s: %w", unit.ID, err)
	}

	var rels []types.Relationship
	for _, cand := range candidates {
		if cand.Unit.ID == unit.ID || cand.Score < similarityFloor {
			continue
		}

		raw, err := d.oracle.Judge(ctx, unit, cand.Unit)
		if err != nil {
			d.logger.Warn("oracle judgment failed, dropping candidate",
				"unit_id", unit.ID,
				"candidate_id", cand.Unit.ID,
				"error", err)
			continue
		}

		verdict, err := oracle.ParseVerdict(raw)
		if err != nil {
			d.logger.Debug("unparseable oracle verdict, dropping candidate",
				"unit_id", unit.ID,
				"candidate_id", cand.Unit.ID)
			continue
		}
		if !verdict.IsRelated || verdict.Strength <= minStrength {
			continue
		}

		relType := types.RelationshipType(verdict.RelationshipType)
		if relType == "" {
			relType = types.RelationRelated
		}
		rels = append(rels, types.Relationship{
			ID:          uuid.NewString(),
			FromUnit:    unit.ID,
			ToUnit:      cand.Unit.ID,
			Type:        relType,
			Strength:    verdict.Strength,
			Explanation: verdict.Explanation,
			Source:      types.SourceAutoDetected,
			Confidence:  cand.Score,
		})
	}

	d.logger.Debug("relationship detection finished",
		"unit_id", unit.ID,
		"candidates", len(candidates),
		"relationships", len(rels))
	return rels, nil
}
