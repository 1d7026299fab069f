// Package vector provides persistent vector storage and similarity search
// for the program corpus.
package vector

import "context"

// ModelKey is the payload field recording which embedding model produced a
// stored vector. The retriever checks it against the live embedder to catch
// collections indexed in a different embedding space.
const ModelKey = "embedding_model"

// Document is a chunk with its embedding, ready for storage.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Repository provides vector storage and similarity search over one named
// collection.
type Repository interface {
	// EnsureCollection creates the collection if it does not exist.
	// Calling it against an existing collection is a no-op.
	EnsureCollection(ctx context.Context, dimension int) error
	// Upsert inserts or replaces documents keyed by their IDs.
	Upsert(ctx context.Context, docs []Document) error
	// Search finds the top-k most similar documents. An empty collection
	// yields an empty slice, not an error.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	// Count returns the number of stored documents.
	Count(ctx context.Context) (uint64, error)
	// Sample returns up to limit stored documents for diagnostics.
	Sample(ctx context.Context, limit int) ([]SearchResult, error)
	// Close releases resources.
	Close() error
}
