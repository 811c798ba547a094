package embeddings

import (
	"crypto/sha256"
	"math"
)

// DefaultDimension is used when no embedding service is configured.
const DefaultDimension = 64

// LocalEmbedder is a deterministic hash-based embedder. It carries no
// semantics but keeps the vector store fully functional without an external
// embedding service, which is all the consistency layer needs.
type LocalEmbedder struct {
	dim int
}

func NewLocal(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &LocalEmbedder{dim: dim}
}

func (e *LocalEmbedder) ModelName() string { return "local-hash" }

func (e *LocalEmbedder) EmbedTexts(texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = hashToVector(t, e.dim)
	}
	return vecs, nil
}

func (e *LocalEmbedder) EmbedQuery(text string) ([]float32, error) {
	return hashToVector(text, e.dim), nil
}

func hashToVector(s string, dim int) []float32 {
	h := sha256.Sum256([]byte(s))
	vec := make([]float32, dim)
	var norm float64
	for i := 0; i < dim; i++ {
		b := h[i%len(h)]
		v := float32(int8(b)) / 127.0
		vec[i] = v
		norm += float64(v * v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
