package graph

import (
	"sync"
	"time"

	"github.com/noesis-kb/noesis/pkg/types"
)

// Node wraps the identity fields of an AtomicUnit needed for traversal and
// display.
type Node struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Type      types.UnitType `json:"type"`
	Category  string         `json:"category,omitempty"`
	Keywords  []string       `json:"keywords,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NodeFromUnit projects an AtomicUnit onto its graph node.
func NodeFromUnit(u *types.AtomicUnit) *Node {
	return &Node{
		ID:        u.ID,
		Title:     u.Title,
		Type:      u.Type,
		Category:  u.Category,
		Keywords:  u.Keywords,
		CreatedAt: u.CreatedAt,
	}
}

// Edge is a directed, typed, weighted relationship between two units.
// Self-loops and parallel edges are permitted.
type Edge struct {
	ID       string                 `json:"id"`
	Source   string                 `json:"source"`
	Target   string                 `json:"target"`
	Type     types.RelationshipType `json:"relationship_type"`
	Strength float64                `json:"strength"`
}

// Statistics aggregates graph-level measures. Degree counts both incoming
// and outgoing edges per node.
type Statistics struct {
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
	Density   float64 `json:"density"`
	AvgDegree float64 `json:"avg_degree"`
	MaxDegree int     `json:"max_degree"`
}

// Neighborhood is the result of a bounded-hop expansion: the reached nodes
// and the edges actually traversed to reach them (not all edges among the
// reached nodes).
type Neighborhood struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// KnowledgeGraph is an in-memory directed multigraph. Safe for concurrent
// use; relationship-detection batches write into it from multiple
// goroutines.
type KnowledgeGraph struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	nodeOrder []string
	edges     []*Edge
	outEdges  map[string][]*Edge
	inEdges   map[string][]*Edge
}

// New creates an empty graph.
func New() *KnowledgeGraph {
	return &KnowledgeGraph{
		nodes:    make(map[string]*Node),
		outEdges: make(map[string][]*Edge),
		inEdges:  make(map[string][]*Edge),
	}
}

// AddNode inserts node; an existing node with the same id is overwritten in
// place.
func (g *KnowledgeGraph) AddNode(node *Node) {
	if node == nil || node.ID == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[node.ID]; !exists {
		g.nodeOrder = append(g.nodeOrder, node.ID)
	}
	g.nodes[node.ID] = node
}

// GetNode returns the node with the given id, or nil.
func (g *KnowledgeGraph) GetNode(id string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// GetAllNodes returns every node in insertion order.
func (g *KnowledgeGraph) GetAllNodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	nodes := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// FindByType returns every node with the given unit type, in insertion
// order.
func (g *KnowledgeGraph) FindByType(t types.UnitType) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var nodes []*Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.Type == t {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// FindByCategory returns every node with the given category, in insertion
// order.
func (g *KnowledgeGraph) FindByCategory(category string) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var nodes []*Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.Category == category {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// AddEdge inserts edge. Endpoints are not validated against the node set:
// detection is allowed to race ahead of node materialization, so callers
// must not assume GetNode succeeds for every edge endpoint.
func (g *KnowledgeGraph) AddEdge(edge *Edge) {
	if edge == nil || edge.Source == "" || edge.Target == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, edge)
	g.outEdges[edge.Source] = append(g.outEdges[edge.Source], edge)
	g.inEdges[edge.Target] = append(g.inEdges[edge.Target], edge)
}

// GetEdgesFrom returns the outgoing edges of id in insertion order.
func (g *KnowledgeGraph) GetEdgesFrom(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Edge(nil), g.outEdges[id]...)
}

// GetEdgesTo returns the incoming edges of id in insertion order.
func (g *KnowledgeGraph) GetEdgesTo(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Edge(nil), g.inEdges[id]...)
}

// GetAllEdges returns every edge in insertion order.
func (g *KnowledgeGraph) GetAllEdges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Edge(nil), g.edges...)
}

// NodeCount returns the number of nodes.
func (g *KnowledgeGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *KnowledgeGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// FindShortestPath runs an unweighted BFS over directed edges and returns
// the node ids along a shortest path from from to to. Ties are broken by
// edge-insertion order. Returns [from] when from == to, and an empty slice
// when no path exists (including when either id is absent from the graph).
func (g *KnowledgeGraph) FindShortestPath(from, to string) []string {
	if from == to {
		return []string{from}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[from]; !ok {
		return nil
	}
	if _, ok := g.nodes[to]; !ok {
		return nil
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range g.outEdges[current] {
			next := edge.Target
			if _, visited := prev[next]; visited {
				continue
			}
			prev[next] = current
			if next == to {
				return rebuildPath(prev, from, to)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func rebuildPath(prev map[string]string, from, to string) []string {
	var reversed []string
	for at := to; at != ""; at = prev[at] {
		reversed = append(reversed, at)
		if at == from {
			break
		}
	}
	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// GetNeighborhood expands up to hops BFS levels around center, following
// edges in both directions. Hop 0 is the center alone. The returned edges
// are exactly those traversed to reach each newly discovered id.
func (g *KnowledgeGraph) GetNeighborhood(center string, hops int) *Neighborhood {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{center: true}
	frontier := []string{center}
	var traversed []*Edge

	for h := 0; h < hops; h++ {
		var next []string
		for _, id := range frontier {
			for _, edge := range g.outEdges[id] {
				if !visited[edge.Target] {
					visited[edge.Target] = true
					next = append(next, edge.Target)
					traversed = append(traversed, edge)
				}
			}
			for _, edge := range g.inEdges[id] {
				if !visited[edge.Source] {
					visited[edge.Source] = true
					next = append(next, edge.Source)
					traversed = append(traversed, edge)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	// Induced node set, restricted to ids that have materialized nodes.
	var nodes []*Node
	for _, id := range g.nodeOrder {
		if visited[id] {
			nodes = append(nodes, g.nodes[id])
		}
	}
	return &Neighborhood{Nodes: nodes, Edges: traversed}
}

// GetStatistics computes aggregate measures. Density is
// edgeCount/(nodeCount*(nodeCount-1)) for a directed graph, 0 when the graph
// has at most one node.
func (g *KnowledgeGraph) GetStatistics() Statistics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.nodes)
	e := len(g.edges)

	stats := Statistics{NodeCount: n, EdgeCount: e}
	if n > 1 {
		stats.Density = float64(e) / float64(n*(n-1))
	}

	degrees := make(map[string]int, n)
	for _, edge := range g.edges {
		degrees[edge.Source]++
		degrees[edge.Target]++
	}
	total := 0
	for _, id := range g.nodeOrder {
		d := degrees[id]
		total += d
		if d > stats.MaxDegree {
			stats.MaxDegree = d
		}
	}
	if n > 0 {
		stats.AvgDegree = float64(total) / float64(n)
	}
	return stats
}
