// Package chunk splits extracted source text into bounded teaching units and
// persists them as knowledge chunks.
package chunk

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type classifies the instructional role of a chunk.
type Type string

const (
	TypeConceptExplanation Type = "CONCEPT_EXPLANATION"
	TypeExample            Type = "EXAMPLE"
	TypeStepByStep         Type = "STEP_BY_STEP"
	TypeVisualDiagram      Type = "VISUAL_DIAGRAM"
	TypeAnalogy            Type = "ANALOGY"
	TypeCommonMistake      Type = "COMMON_MISTAKE"
	TypeTip                Type = "TIP"
	TypeDefinition         Type = "DEFINITION"
)

// Chunk is a bounded teaching unit produced by the chunker. Immutable after
// creation.
type Chunk struct {
	ID          string   `json:"chunk_id"`
	Content     string   `json:"content"`
	Type        Type     `json:"chunk_type"`
	TopicID     string   `json:"topic_id"`
	ObjectiveID *string  `json:"objective_id,omitempty"`
	SourceID    string   `json:"source_id"`
	WordCount   int      `json:"word_count"`
	Difficulty  string   `json:"difficulty"`
	Tags        []string `json:"tags"`
}

// KnowledgeChunk is a persisted chunk with its embedding attached. Never
// mutated after creation except soft deletion, which preserves referential
// integrity for anything holding its ID.
type KnowledgeChunk struct {
	Chunk
	CurriculumID string    `json:"curriculum_id"`
	SourceURL    string    `json:"source_url,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
	Deleted      bool      `json:"deleted"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewID generates a template-scoped chunk identifier.
func NewID() string {
	return "ck_tpl_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
