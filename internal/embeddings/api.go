package embeddings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// APIEmbedder calls an external embedding service. The service takes a JSON
// array of sentences and returns one vector per sentence.
type APIEmbedder struct {
	url    string
	client *http.Client
}

func NewAPI(url string) *APIEmbedder {
	return &APIEmbedder{url: url, client: &http.Client{}}
}

func (e *APIEmbedder) ModelName() string { return "api" }

func (e *APIEmbedder) EmbedTexts(texts []string) ([][]float32, error) {
	return e.embedRequest(texts)
}

func (e *APIEmbedder) EmbedQuery(text string) ([]float32, error) {
	vecs, err := e.embedRequest([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embedRequest struct {
	Sentences []string `json:"sentences"`
}

func (e *APIEmbedder) embedRequest(texts []string) ([][]float32, error) {
	body, err := json.Marshal(&embedRequest{Sentences: texts})
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Post(e.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %s", resp.Status)
	}
	var vecs [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vecs); err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}
