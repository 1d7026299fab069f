// Package embed computes fixed-dimension vector representations of text.
// The same embedder (model identity included) must be used at indexing and
// query time; mixing embedding spaces silently corrupts retrieval.
package embed

import "context"

// Embedder converts texts into embedding vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model identifies the embedding model and version. Stored alongside
	// indexed vectors and validated before serving.
	Model() string
}
