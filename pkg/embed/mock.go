package embed

import (
	"context"
)

// Mock is a deterministic in-process Provider for tests. Embeddings are
// derived from a text hash, so identical text always maps to an identical
// vector and different text usually does not.
type Mock struct {
	dimension int
}

// NewMock creates a mock provider with the given dimension.
func NewMock(dimension int) *Mock {
	return &Mock{dimension: dimension}
}

func (m *Mock) Dimension() int {
	return m.dimension
}

func (m *Mock) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embedding := make([]float32, m.dimension)
	hash := 0
	for _, c := range text {
		hash = hash*31 + int(c)
	}

	for i := 0; i < m.dimension; i++ {
		embedding[i] = float32((hash+i*17)%1000) / 1000.0
	}

	return embedding, nil
}

func (m *Mock) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := m.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
