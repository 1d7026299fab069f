// Package ingest embeds validated corpus records and upserts them into the
// vector collection.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvoronin/abitbot/internal/corpus"
	"github.com/nvoronin/abitbot/internal/embed"
	"github.com/nvoronin/abitbot/internal/vector"
)

// Indexer validates, embeds and stores a batch of records.
type Indexer struct {
	emb  embed.Embedder
	repo vector.Repository
	log  *slog.Logger
}

// Result summarizes one batch run.
type Result struct {
	Indexed int
	Skipped int
	// Stored is the collection size after the batch, from the
	// verification read.
	Stored uint64
}

// New creates an Indexer.
func New(emb embed.Embedder, repo vector.Repository, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{emb: emb, repo: repo, log: log}
}

// IndexBatch runs the full pipeline over a batch: per-record validation
// (invalid records are skipped with a diagnostic, never fatal), per-record
// embedding (an embedding failure skips only that record), idempotent
// collection creation and a single upsert. A final verification read
// reports the collection size. Only store-level failures are returned as
// errors.
func (ix *Indexer) IndexBatch(ctx context.Context, records []corpus.Record) (*Result, error) {
	res := &Result{}
	seen := make(map[string]bool, len(records))
	var docs []vector.Document

	for i, r := range records {
		if reason := validate(r, seen); reason != "" {
			ix.log.Warn("skipping record", "index", i, "id", r.ID, "reason", reason)
			res.Skipped++
			continue
		}
		seen[r.ID] = true

		vectors, err := ix.emb.Embed(ctx, []string{r.Text})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ix.log.Warn("embedding failed, skipping record", "id", r.ID, "error", err)
			res.Skipped++
			continue
		}

		meta := map[string]string{vector.ModelKey: ix.emb.Model()}
		for k := range r.Metadata {
			meta[k] = r.MetadataString(k)
		}
		docs = append(docs, vector.Document{
			ID:       r.ID,
			Content:  r.Text,
			Vector:   vectors[0],
			Metadata: meta,
		})
	}

	if len(docs) == 0 {
		ix.log.Warn("no records left to index after validation")
		return res, nil
	}

	if err := ix.repo.EnsureCollection(ctx, len(docs[0].Vector)); err != nil {
		return nil, fmt.Errorf("ensuring collection: %w", err)
	}
	if err := ix.repo.Upsert(ctx, docs); err != nil {
		return nil, fmt.Errorf("upserting %d documents: %w", len(docs), err)
	}
	res.Indexed = len(docs)

	// Verification read: diagnostics only, not required for correctness.
	count, err := ix.repo.Count(ctx)
	if err != nil {
		ix.log.Warn("verification count failed", "error", err)
		return res, nil
	}
	res.Stored = count
	if sample, err := ix.repo.Sample(ctx, 3); err == nil {
		for _, s := range sample {
			ix.log.Debug("stored sample", "id", s.ID, "text", truncate(s.Content, 100))
		}
	}
	ix.log.Info("batch indexed", "indexed", res.Indexed, "skipped", res.Skipped, "stored_total", count)
	return res, nil
}

func validate(r corpus.Record, seen map[string]bool) string {
	switch {
	case r.ID == "":
		return "missing id"
	case seen[r.ID]:
		return "duplicate id"
	case r.Text == "":
		return "missing text"
	case r.Metadata == nil:
		return "missing metadata"
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
