// Package retriever finds the stored chunks most similar to a query.
package retriever

import (
	"context"
	"fmt"

	"github.com/nvoronin/abitbot/internal/embed"
	"github.com/nvoronin/abitbot/internal/observability"
	"github.com/nvoronin/abitbot/internal/vector"
)

// Result is one retrieved chunk with its relevance score.
type Result struct {
	Text     string
	Metadata map[string]string
	Score    float32
}

// Retriever embeds queries with the same model used at indexing time and
// searches the vector collection. It never mutates the store.
type Retriever struct {
	emb  embed.Embedder
	repo vector.Repository
}

// New creates a Retriever.
func New(emb embed.Embedder, repo vector.Repository) *Retriever {
	return &Retriever{emb: emb, repo: repo}
}

// Retrieve returns up to k chunks ordered by descending similarity, ties
// broken by chunk ID. An empty collection yields an empty slice, not an
// error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}

	ctx, span := observability.StartRetrieveSpan(ctx, k)
	defer span.End()

	vectors, err := r.emb.Embed(ctx, []string{query})
	if err != nil {
		err = fmt.Errorf("embedding query: %w", err)
		observability.RecordError(span, err)
		return nil, err
	}

	matches, err := r.repo.Search(ctx, vectors[0], k)
	if err != nil {
		err = fmt.Errorf("searching collection: %w", err)
		observability.RecordError(span, err)
		return nil, err
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{Text: m.Content, Metadata: m.Metadata, Score: m.Score}
	}
	var topScore float64
	if len(results) > 0 {
		topScore = float64(results[0].Score)
	}
	observability.RecordRetrieveResult(span, len(results), topScore)
	return results, nil
}

// CheckModel samples the collection and verifies the stored embedding-model
// identifier matches the live embedder. A mismatch means the collection was
// indexed in a different embedding space, and retrieval against it would
// silently return garbage. An empty collection passes.
func (r *Retriever) CheckModel(ctx context.Context) error {
	sample, err := r.repo.Sample(ctx, 1)
	if err != nil {
		return fmt.Errorf("sampling collection: %w", err)
	}
	if len(sample) == 0 {
		return nil
	}
	stored := sample[0].Metadata[vector.ModelKey]
	if stored == "" {
		return nil // collection predates model tagging
	}
	if live := r.emb.Model(); stored != live {
		return fmt.Errorf("collection indexed with embedding model %q but serving with %q", stored, live)
	}
	return nil
}
