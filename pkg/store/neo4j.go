package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/noesis-kb/noesis/pkg/graph"
	"github.com/noesis-kb/noesis/pkg/types"
)

// Neo4jStore mirrors the knowledge graph into Neo4j. Units become (:Unit)
// nodes and relationships become [:RELATES] edges carrying the relationship
// type and strength as properties, so parallel edges of different types
// survive the round trip.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore connects to the given bolt URI.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{client: driver, database: database}, nil
}

// UpsertNodes merges the given nodes on their id.
func (s *Neo4jStore) UpsertNodes(ctx context.Context, nodes []*graph.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	rows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, map[string]any{
			"id":         n.ID,
			"title":      n.Title,
			"type":       string(n.Type),
			"category":   n.Category,
			"keywords":   n.Keywords,
			"created_at": n.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			UNWIND $rows AS row
			MERGE (n:Unit {id: row.id})
			SET n.title = row.title,
			    n.type = row.type,
			    n.category = row.category,
			    n.keywords = row.keywords,
			    n.created_at = row.created_at
		`
		_, err := tx.Run(ctx, query, map[string]any{"rows": rows})
		return nil, err
	})
	return err
}

// UpsertEdges merges the given edges on their id, creating dangling endpoint
// nodes as bare (:Unit) placeholders when needed.
func (s *Neo4jStore) UpsertEdges(ctx context.Context, edges []*graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{
			"id":       e.ID,
			"source":   e.Source,
			"target":   e.Target,
			"type":     string(e.Type),
			"strength": e.Strength,
		})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			UNWIND $rows AS row
			MERGE (a:Unit {id: row.source})
			MERGE (b:Unit {id: row.target})
			MERGE (a)-[r:RELATES {id: row.id}]->(b)
			SET r.type = row.type,
			    r.strength = row.strength
		`
		_, err := tx.Run(ctx, query, map[string]any{"rows": rows})
		return nil, err
	})
	return err
}

// LoadGraph reads the entire mirror back. Edge insertion order is not
// preserved across a round trip; traversal results are unaffected, only
// tie-breaking among equal-length paths may differ.
func (s *Neo4jStore) LoadGraph(ctx context.Context) (*graph.KnowledgeGraph, error) {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	g := graph.New()

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n:Unit) RETURN n ORDER BY n.id`, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			value, found := res.Record().Get("n")
			if !found {
				continue
			}
			dbNode, ok := value.(dbtype.Node)
			if !ok {
				return nil, fmt.Errorf("unexpected type for node: got %T, expected dbtype.Node", value)
			}
			g.AddNode(nodeFromProps(dbNode.Props))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, `
			MATCH (a:Unit)-[r:RELATES]->(b:Unit)
			RETURN r.id AS id, a.id AS source, b.id AS target, r.type AS type, r.strength AS strength
			ORDER BY r.id
		`, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			row := res.Record().AsMap()
			edge := &graph.Edge{
				ID:     stringValue(row, "id"),
				Source: stringValue(row, "source"),
				Target: stringValue(row, "target"),
				Type:   types.RelationshipType(stringValue(row, "type")),
			}
			if v, ok := row["strength"].(float64); ok {
				edge.Strength = v
			}
			g.AddEdge(edge)
		}
		return nil, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("loading graph mirror: %w", err)
	}
	return g, nil
}

// Clear deletes every mirrored node and edge.
func (s *Neo4jStore) Clear(ctx context.Context) error {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `MATCH (n:Unit) DETACH DELETE n`, nil)
		return nil, err
	})
	return err
}

// Close tears the driver down.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func nodeFromProps(props map[string]any) *graph.Node {
	node := &graph.Node{
		ID:       stringValue(props, "id"),
		Title:    stringValue(props, "title"),
		Type:     types.UnitType(stringValue(props, "type")),
		Category: stringValue(props, "category"),
	}
	if raw, ok := props["keywords"].([]any); ok {
		for _, k := range raw {
			if s, ok := k.(string); ok {
				node.Keywords = append(node.Keywords, s)
			}
		}
	}
	if ts := stringValue(props, "created_at"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			node.CreatedAt = parsed
		}
	}
	return node
}

func stringValue(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

var _ Store = (*Neo4jStore)(nil)
