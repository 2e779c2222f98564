// Package embed generates embedding vectors for knowledge chunks through an
// OpenAI-compatible API, with batching and best-effort degradation.
package embed

import "context"

// Usage accumulates embedding cost counters for one run. It is returned
// alongside results rather than kept as client state so callers can report
// per-job statistics.
type Usage struct {
	APICalls            int `json:"total_api_calls"`
	TokensUsed          int `json:"total_tokens_used"`
	ZeroVectorFallbacks int `json:"zero_vector_fallbacks"`
}

// costPerMillionTokens for text-embedding-3-small.
const costPerMillionTokens = 0.02

// CostUSD estimates the dollar cost of the accumulated usage.
func (u Usage) CostUSD() float64 {
	return float64(u.TokensUsed) / 1_000_000 * costPerMillionTokens
}

// Add merges another accumulator into this one.
func (u *Usage) Add(other Usage) {
	u.APICalls += other.APICalls
	u.TokensUsed += other.TokensUsed
	u.ZeroVectorFallbacks += other.ZeroVectorFallbacks
}

// Degraded reports whether any vectors are zero-vector placeholders.
func (u Usage) Degraded() bool {
	return u.ZeroVectorFallbacks > 0
}

// Embedder generates embedding vectors. Implementations must return exactly
// one vector per input text, in input order, degrading individual failures
// to zero vectors rather than failing the call.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, Usage, error)
}
