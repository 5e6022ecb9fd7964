package graph

import (
	"github.com/google/uuid"

	"github.com/noesis-kb/noesis/pkg/types"
)

// BuildOptions controls how BuildFromUnits materializes relationships.
type BuildOptions struct {
	// Mirror inserts a reverse edge for every relationship, making the
	// detected links traversable in both directions. The mirror edge gets
	// its own id and reuses the type and strength of the original.
	Mirror bool
}

// BuildFromUnits constructs a graph from scratch: one node per unit, one
// directed edge per relationship (plus a mirror edge when requested).
// Relationships referencing ids outside units are still inserted; the graph
// tolerates dangling endpoints.
func BuildFromUnits(units []*types.AtomicUnit, relationships []types.Relationship, opts BuildOptions) *KnowledgeGraph {
	g := New()
	for _, u := range units {
		if u == nil {
			continue
		}
		g.AddNode(NodeFromUnit(u))
	}
	for _, rel := range relationships {
		g.AddEdge(&Edge{
			ID:       rel.ID,
			Source:   rel.FromUnit,
			Target:   rel.ToUnit,
			Type:     rel.Type,
			Strength: rel.Strength,
		})
		if opts.Mirror {
			g.AddEdge(&Edge{
				ID:       uuid.NewString(),
				Source:   rel.ToUnit,
				Target:   rel.FromUnit,
				Type:     rel.Type,
				Strength: rel.Strength,
			})
		}
	}
	return g
}

// DetectByKeywords emits a relationship candidate for every unit pair whose
// keyword sets have Jaccard similarity at or above threshold. This is the
// cheap pre-pass; it never calls the embedder or the oracle. Keyword
// comparison is exact and case-sensitive.
func DetectByKeywords(units []*types.AtomicUnit, threshold float64) []types.Relationship {
	var rels []types.Relationship
	for i := 0; i < len(units); i++ {
		for j := i + 1; j < len(units); j++ {
			a, b := units[i], units[j]
			if a == nil || b == nil {
				continue
			}
			sim := jaccard(a.Keywords, b.Keywords)
			if sim < threshold {
				continue
			}
			rels = append(rels, types.Relationship{
				ID:         uuid.NewString(),
				FromUnit:   a.ID,
				ToUnit:     b.ID,
				Type:       types.RelationRelated,
				Strength:   sim,
				Source:     types.SourceKeyword,
				Confidence: sim,
			})
		}
	}
	return rels
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, k := range a {
		setA[k] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, k := range b {
		setB[k] = struct{}{}
	}
	intersection := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
