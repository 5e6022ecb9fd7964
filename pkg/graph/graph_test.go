package graph

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesis-kb/noesis/pkg/types"
)

func node(id string, t types.UnitType, category string) *Node {
	return &Node{ID: id, Title: "title " + id, Type: t, Category: category, CreatedAt: time.Now()}
}

func edge(id, from, to string) *Edge {
	return &Edge{ID: id, Source: from, Target: to, Type: types.RelationRelated, Strength: 0.8}
}

func chainGraph() *KnowledgeGraph {
	// a -> b -> c -> d, plus a shortcut a -> c
	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(node(id, types.InsightUnit, "general"))
	}
	g.AddEdge(edge("e1", "a", "b"))
	g.AddEdge(edge("e2", "b", "c"))
	g.AddEdge(edge("e3", "c", "d"))
	g.AddEdge(edge("e4", "a", "c"))
	return g
}

func TestAddNodeOverwritesExisting(t *testing.T) {
	g := New()
	g.AddNode(node("a", types.InsightUnit, "old"))
	g.AddNode(node("a", types.CodeUnit, "new"))

	require.Equal(t, 1, g.NodeCount())
	got := g.GetNode("a")
	assert.Equal(t, types.CodeUnit, got.Type)
	assert.Equal(t, "new", got.Category)
}

func TestGetNodeMissingReturnsNil(t *testing.T) {
	assert.Nil(t, New().GetNode("nope"))
}

func TestFindByTypeAndCategory(t *testing.T) {
	g := New()
	g.AddNode(node("a", types.InsightUnit, "go"))
	g.AddNode(node("b", types.CodeUnit, "go"))
	g.AddNode(node("c", types.InsightUnit, "db"))

	insights := g.FindByType(types.InsightUnit)
	require.Len(t, insights, 2)
	assert.Equal(t, "a", insights[0].ID)
	assert.Equal(t, "c", insights[1].ID)

	goNodes := g.FindByCategory("go")
	require.Len(t, goNodes, 2)
	assert.Equal(t, "a", goNodes[0].ID)
	assert.Equal(t, "b", goNodes[1].ID)
}

func TestAddEdgeToleratesDanglingEndpoints(t *testing.T) {
	g := New()
	g.AddNode(node("a", types.InsightUnit, ""))
	g.AddEdge(edge("e1", "a", "ghost"))

	require.Equal(t, 1, g.EdgeCount())
	assert.Nil(t, g.GetNode("ghost"))
	require.Len(t, g.GetEdgesFrom("a"), 1)
	require.Len(t, g.GetEdgesTo("ghost"), 1)
}

func TestParallelEdgesAndSelfLoops(t *testing.T) {
	g := New()
	g.AddNode(node("a", types.InsightUnit, ""))
	g.AddNode(node("b", types.InsightUnit, ""))
	g.AddEdge(edge("e1", "a", "b"))
	g.AddEdge(edge("e2", "a", "b"))
	g.AddEdge(edge("e3", "a", "a"))

	assert.Equal(t, 3, g.EdgeCount())
	assert.Len(t, g.GetEdgesFrom("a"), 3)
	assert.Len(t, g.GetEdgesTo("b"), 2)
}

func TestFindShortestPath(t *testing.T) {
	g := chainGraph()

	// Shortcut a->c wins over a->b->c.
	assert.Equal(t, []string{"a", "c", "d"}, g.FindShortestPath("a", "d"))
	assert.Equal(t, []string{"b", "c"}, g.FindShortestPath("b", "c"))
}

func TestFindShortestPathSameNode(t *testing.T) {
	g := chainGraph()
	assert.Equal(t, []string{"a"}, g.FindShortestPath("a", "a"))
}

func TestFindShortestPathRespectsDirection(t *testing.T) {
	g := chainGraph()
	assert.Empty(t, g.FindShortestPath("d", "a"))
}

func TestFindShortestPathMissingNodes(t *testing.T) {
	g := chainGraph()
	assert.Empty(t, g.FindShortestPath("a", "missing"))
	assert.Empty(t, g.FindShortestPath("missing", "a"))
}

func TestGetNeighborhood(t *testing.T) {
	g := chainGraph()

	zero := g.GetNeighborhood("b", 0)
	require.Len(t, zero.Nodes, 1)
	assert.Equal(t, "b", zero.Nodes[0].ID)
	assert.Empty(t, zero.Edges)

	// One hop from b reaches a (incoming) and c (outgoing).
	one := g.GetNeighborhood("b", 1)
	ids := nodeIDs(one.Nodes)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
	assert.Len(t, one.Edges, 2)

	two := g.GetNeighborhood("b", 2)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, nodeIDs(two.Nodes))
}

func TestGetNeighborhoodUnknownCenter(t *testing.T) {
	g := chainGraph()
	hood := g.GetNeighborhood("ghost", 3)
	assert.Empty(t, hood.Nodes)
	assert.Empty(t, hood.Edges)
}

func TestGetStatistics(t *testing.T) {
	g := New()
	g.AddNode(node("a", types.InsightUnit, ""))
	g.AddNode(node("b", types.InsightUnit, ""))
	g.AddNode(node("c", types.InsightUnit, ""))
	g.AddEdge(edge("e1", "a", "b"))
	g.AddEdge(edge("e2", "a", "c"))

	stats := g.GetStatistics()
	assert.Equal(t, 3, stats.NodeCount)
	assert.Equal(t, 2, stats.EdgeCount)
	assert.InDelta(t, 2.0/6.0, stats.Density, 1e-9)
	assert.Equal(t, 2, stats.MaxDegree)
	assert.InDelta(t, 4.0/3.0, stats.AvgDegree, 1e-9)
}

func TestGetStatisticsEmptyAndSingle(t *testing.T) {
	g := New()
	stats := g.GetStatistics()
	assert.Zero(t, stats.Density)
	assert.Zero(t, stats.AvgDegree)

	g.AddNode(node("a", types.InsightUnit, ""))
	stats = g.GetStatistics()
	assert.Equal(t, 1, stats.NodeCount)
	assert.Zero(t, stats.Density)
}

func TestToJSONDeterministic(t *testing.T) {
	g := chainGraph()
	first, err := g.ToJSON()
	require.NoError(t, err)
	second, err := g.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var export Export
	require.NoError(t, json.Unmarshal(first, &export))
	assert.Len(t, export.Nodes, 4)
	assert.Len(t, export.Edges, 4)
	assert.Equal(t, "a", export.Nodes[0].ID)
	assert.Equal(t, "e1", export.Edges[0].ID)
}

func TestToVisFormat(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: "a", Title: "Indexing basics", Type: types.InsightUnit})
	g.AddNode(&Node{ID: "b", Title: "B-tree internals", Type: types.ReferenceUnit})
	g.AddEdge(&Edge{ID: "e1", Source: "a", Target: "b", Type: types.RelationExpandsOn, Strength: 0.7})

	vis := g.ToVisFormat()
	require.Len(t, vis.Nodes, 2)
	assert.Equal(t, "Indexing basics", vis.Nodes[0].Label)
	assert.Equal(t, "insight", vis.Nodes[0].Group)

	require.Len(t, vis.Edges, 1)
	assert.Equal(t, "a", vis.Edges[0].From)
	assert.Equal(t, "b", vis.Edges[0].To)
	assert.Equal(t, "expands-on", vis.Edges[0].Label)
	assert.InDelta(t, 0.7, vis.Edges[0].Value, 1e-9)
}

func nodeIDs(nodes []*Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
