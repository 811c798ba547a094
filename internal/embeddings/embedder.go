package embeddings

// Embedder turns chunk text into vectors for the similarity store.
type Embedder interface {
	EmbedTexts(texts []string) ([][]float32, error)
	EmbedQuery(text string) ([]float32, error)
	ModelName() string
}
