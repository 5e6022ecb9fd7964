package graph

import "encoding/json"

// Export is the persistence projection of a graph: the full node and edge
// lists in insertion order.
type Export struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// ToJSON serializes the graph deterministically: nodes and edges in
// insertion order. Two graphs built by the same sequence of mutations
// produce byte-identical output.
func (g *KnowledgeGraph) ToJSON() ([]byte, error) {
	export := Export{
		Nodes: g.GetAllNodes(),
		Edges: g.GetAllEdges(),
	}
	return json.Marshal(export)
}

// VisNode and VisEdge follow the vis-network dataset shape consumed by the
// graph view of the web frontend.
type VisNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group,omitempty"`
	Title string `json:"title,omitempty"`
}

type VisEdge struct {
	ID    string  `json:"id"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	Label string  `json:"label,omitempty"`
	Value float64 `json:"value"`
}

// VisFormat bundles the node and edge datasets for vis-network.
type VisFormat struct {
	Nodes []VisNode `json:"nodes"`
	Edges []VisEdge `json:"edges"`
}

// ToVisFormat projects the graph onto the vis-network dataset shape. The
// node label is the unit title, the group its unit type, and the edge value
// the relationship strength so the renderer can scale line widths.
func (g *KnowledgeGraph) ToVisFormat() *VisFormat {
	nodes := g.GetAllNodes()
	edges := g.GetAllEdges()

	vis := &VisFormat{
		Nodes: make([]VisNode, 0, len(nodes)),
		Edges: make([]VisEdge, 0, len(edges)),
	}
	for _, n := range nodes {
		vis.Nodes = append(vis.Nodes, VisNode{
			ID:    n.ID,
			Label: n.Title,
			Group: string(n.Type),
			Title: n.Category,
		})
	}
	for _, e := range edges {
		vis.Edges = append(vis.Edges, VisEdge{
			ID:    e.ID,
			From:  e.Source,
			To:    e.Target,
			Label: string(e.Type),
			Value: e.Strength,
		})
	}
	return vis
}
