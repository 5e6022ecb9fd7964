package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesis-kb/noesis/pkg/types"
)

func kwUnit(id string, keywords ...string) *types.AtomicUnit {
	return &types.AtomicUnit{
		ID:       id,
		Type:     types.InsightUnit,
		Title:    "title " + id,
		Content:  "content " + id,
		Keywords: keywords,
	}
}

func TestBuildFromUnits(t *testing.T) {
	units := []*types.AtomicUnit{kwUnit("a"), kwUnit("b")}
	rels := []types.Relationship{{
		ID:       "r1",
		FromUnit: "a",
		ToUnit:   "b",
		Type:     types.RelationPrerequisite,
		Strength: 0.9,
	}}

	g := BuildFromUnits(units, rels, BuildOptions{})
	assert.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, g.EdgeCount())
	assert.Empty(t, g.GetEdgesFrom("b"))
}

func TestBuildFromUnitsMirror(t *testing.T) {
	units := []*types.AtomicUnit{kwUnit("a"), kwUnit("b")}
	rels := []types.Relationship{{
		ID:       "r1",
		FromUnit: "a",
		ToUnit:   "b",
		Type:     types.RelationRelated,
		Strength: 0.6,
	}}

	g := BuildFromUnits(units, rels, BuildOptions{Mirror: true})
	require.Equal(t, 2, g.EdgeCount())

	back := g.GetEdgesFrom("b")
	require.Len(t, back, 1)
	assert.Equal(t, "a", back[0].Target)
	assert.Equal(t, types.RelationRelated, back[0].Type)
	assert.InDelta(t, 0.6, back[0].Strength, 1e-9)
	assert.NotEqual(t, "r1", back[0].ID)
}

func TestDetectByKeywords(t *testing.T) {
	units := []*types.AtomicUnit{
		kwUnit("a", "go", "concurrency", "channels"),
		kwUnit("b", "go", "concurrency", "mutex"),
		kwUnit("c", "cooking", "pasta"),
	}

	rels := DetectByKeywords(units, 0.4)
	require.Len(t, rels, 1)

	rel := rels[0]
	assert.Equal(t, "a", rel.FromUnit)
	assert.Equal(t, "b", rel.ToUnit)
	assert.Equal(t, types.RelationRelated, rel.Type)
	assert.Equal(t, types.SourceKeyword, rel.Source)
	// |{go, concurrency}| / |{go, concurrency, channels, mutex}|
	assert.InDelta(t, 0.5, rel.Strength, 1e-9)
	assert.NotEmpty(t, rel.ID)
}

func TestDetectByKeywordsThresholdBoundary(t *testing.T) {
	units := []*types.AtomicUnit{
		kwUnit("a", "x", "y"),
		kwUnit("b", "x", "z"),
	}

	// Jaccard is exactly 1/3; an equal threshold keeps the pair.
	assert.Len(t, DetectByKeywords(units, 1.0/3.0), 1)
	assert.Empty(t, DetectByKeywords(units, 0.34))
}

func TestDetectByKeywordsNoKeywords(t *testing.T) {
	units := []*types.AtomicUnit{kwUnit("a"), kwUnit("b", "x")}
	assert.Empty(t, DetectByKeywords(units, 0.0001))
}
