// Package noesis provides the retrieval and relationship core of a personal
// knowledge base.
//
// Noesis indexes atomic knowledge units for hybrid retrieval (full-text and
// semantic search fused with Reciprocal Rank Fusion), detects relationships
// between units with a two-stage vector-shortlist-then-LLM-judgment pipeline,
// and maintains an in-memory knowledge graph with optional durable mirroring
// to Neo4j. Embedding calls are deduplicated through a persistent
// content-addressed cache.
//
// # Basic Usage
//
// Create a client from configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := noesis.NewClient(cfg, slog.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
// # Adding Units
//
// Units are embedded (through the cache) and registered in the vector index,
// the full-text index, and the knowledge graph:
//
//	units := []*types.AtomicUnit{
//		{
//			ID:      "goroutines-1",
//			Type:    types.InsightUnit,
//			Title:   "Goroutine leaks",
//			Content: "A goroutine blocked on a channel nobody closes leaks forever",
//			Tags:    []string{"go", "concurrency"},
//		},
//	}
//
//	if err := client.AddUnits(ctx, units...); err != nil {
//		log.Fatal(err)
//	}
//
// # Searching
//
// Hybrid search fuses the full-text and semantic rankings:
//
//	results, err := client.Search(ctx, "channel deadlocks", 10, search.DefaultWeights)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, r := range results {
//		fmt.Printf("%s (%.4f)\n", r.Unit.Title, r.CombinedScore)
//	}
//
// # Detecting Relationships
//
// The detector shortlists neighbors by embedding similarity, then asks the
// judgment oracle to confirm each pair:
//
//	rels, err := client.FindRelatedUnits(ctx, unit, 5, 0.8)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := client.LinkRelationships(ctx, rels); err != nil {
//		log.Fatal(err)
//	}
//
// Consumers that need only part of the surface should depend on the focused
// interfaces (Searcher, RelationshipFinder, GraphQuerier, CacheAdmin) rather
// than the full Noesis interface.
package noesis
