package embed

import "context"

// Mock is a deterministic Embedder for tests. FailTexts marks inputs that
// degrade to zero vectors.
type Mock struct {
	Dimensions int
	FailTexts  map[string]bool
	Calls      int
}

// NewMock creates a mock embedder with the given dimensionality.
func NewMock(dimensions int) *Mock {
	return &Mock{Dimensions: dimensions, FailTexts: make(map[string]bool)}
}

func (m *Mock) EmbedBatch(_ context.Context, texts []string) ([][]float32, Usage, error) {
	m.Calls++
	usage := Usage{APICalls: 1, TokensUsed: len(texts) * 10}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, m.Dimensions)
		if m.FailTexts[t] {
			usage.ZeroVectorFallbacks++
		} else {
			for j := range vec {
				vec[j] = float32(len(t)%7+i) / 10
			}
		}
		out[i] = vec
	}
	return out, usage, nil
}
