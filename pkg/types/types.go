package types

import (
	"errors"
	"time"
)

// Validation errors
var (
	ErrEmptyID      = errors.New("id cannot be empty")
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// UnitType classifies an atomic unit of knowledge.
type UnitType string

const (
	// InsightUnit is a distilled observation or takeaway.
	InsightUnit UnitType = "insight"
	// CodeUnit is a code snippet.
	CodeUnit UnitType = "code"
	// QuestionUnit is an open question captured for later.
	QuestionUnit UnitType = "question"
	// ReferenceUnit points at an external resource.
	ReferenceUnit UnitType = "reference"
	// DecisionUnit records a decision and its context.
	DecisionUnit UnitType = "decision"
)

// AtomicUnit is the smallest persisted knowledge record, produced by the
// (external) ingestion and chunking pipeline. This core only reads its fields,
// except for Embedding which it may attach or refresh.
type AtomicUnit struct {
	ID        string    `json:"id" mapstructure:"id"`
	Type      UnitType  `json:"type" mapstructure:"type"`
	Title     string    `json:"title" mapstructure:"title"`
	Content   string    `json:"content" mapstructure:"content"`
	Category  string    `json:"category,omitempty" mapstructure:"category"`
	Tags      []string  `json:"tags,omitempty" mapstructure:"tags"`
	Keywords  []string  `json:"keywords,omitempty" mapstructure:"keywords"`
	CreatedAt time.Time `json:"created_at" mapstructure:"created_at"`
	Embedding []float32 `json:"embedding,omitempty" mapstructure:"embedding"`
}

// Validate checks if the AtomicUnit has all required fields set.
func (u *AtomicUnit) Validate() error {
	if u.ID == "" {
		return ErrEmptyID
	}
	if u.Content == "" {
		return ErrEmptyContent
	}
	return nil
}

// RelationshipType names how two units relate. The vocabulary is open; the
// judgment oracle may emit types beyond the known constants.
type RelationshipType string

const (
	RelationRelated      RelationshipType = "related"
	RelationPrerequisite RelationshipType = "prerequisite"
	RelationExpandsOn    RelationshipType = "expands-on"
	RelationContradicts  RelationshipType = "contradicts"
	RelationImplements   RelationshipType = "implements"
)

// Relationship sources.
const (
	// SourceAutoDetected marks relationships produced by the two-stage
	// vector + oracle detector.
	SourceAutoDetected = "auto_detected"
	// SourceKeyword marks relationships produced by the cheap Jaccard
	// keyword pre-filter.
	SourceKeyword = "keyword"
)

// Relationship is a validated, directed link between two units, produced by a
// detector and not yet inserted into the graph.
type Relationship struct {
	ID          string           `json:"id"`
	FromUnit    string           `json:"from_unit"`
	ToUnit      string           `json:"to_unit"`
	Type        RelationshipType `json:"relationship_type"`
	Strength    float64          `json:"strength"`
	Explanation string           `json:"explanation,omitempty"`
	Source      string           `json:"source"`
	Confidence  float64          `json:"confidence"`
}

// ScoredUnit pairs a unit with a ranking score. Vector-index lookups return
// descending cosine similarity; other producers document their own scale.
type ScoredUnit struct {
	Unit  *AtomicUnit `json:"unit"`
	Score float64     `json:"score"`
}

// HybridResult is one entry of a fused search ranking. FTSScore is a binary
// presence indicator for the full-text stage, SemanticScore the raw cosine
// similarity if the unit appeared in the vector stage, and CombinedScore the
// weighted RRF fusion the ranking is sorted by. Never persisted.
type HybridResult struct {
	Unit          *AtomicUnit `json:"unit"`
	FTSScore      float64     `json:"fts_score"`
	SemanticScore float64     `json:"semantic_score"`
	CombinedScore float64     `json:"combined_score"`
}

// contextKey is a private type for context values to avoid collisions.
type contextKey string

// Context keys used by the telemetry layer.
const (
	ContextKeyRequestID     contextKey = "request_id"
	ContextKeyRequestSource contextKey = "request_source"
)
