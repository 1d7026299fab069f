package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/nvoronin/abitbot/internal/corpus"
	"github.com/nvoronin/abitbot/internal/vector"
)

type fakeRepo struct {
	docs      map[string]vector.Document
	ensured   int
	dimension int
	upsertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: map[string]vector.Document{}}
}

func (f *fakeRepo) EnsureCollection(_ context.Context, dim int) error {
	f.ensured++
	f.dimension = dim
	return nil
}

func (f *fakeRepo) Upsert(_ context.Context, docs []vector.Document) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return nil
}

func (f *fakeRepo) Search(context.Context, []float32, int) ([]vector.SearchResult, error) {
	return nil, nil
}

func (f *fakeRepo) Count(context.Context) (uint64, error) { return uint64(len(f.docs)), nil }

func (f *fakeRepo) Sample(context.Context, int) ([]vector.SearchResult, error) { return nil, nil }

func (f *fakeRepo) Close() error { return nil }

type fakeEmbedder struct {
	failOn map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failOn[t] {
			return nil, errors.New("embedding failed")
		}
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return "test-embedder-v1" }

func validRecord(id, text string) corpus.Record {
	return corpus.Record{
		ID:   id,
		Text: text,
		Metadata: map[string]any{
			"program_name": "ai",
			"chunk_index":  0,
			"chunk_type":   "web_content",
		},
	}
}

func TestIndexBatch_SkipsInvalidRecords(t *testing.T) {
	repo := newFakeRepo()
	ix := New(&fakeEmbedder{}, repo, nil)

	records := []corpus.Record{
		{ID: "ai_content_0", Metadata: map[string]any{}}, // missing text
		validRecord("ai_content_1", "Программа AI фокусируется на машинном обучении."),
		{Text: "no id", Metadata: map[string]any{}},                 // missing id
		{ID: "ai_content_2", Text: "no metadata"},                   // missing metadata
		validRecord("ai_content_1", "дубликат идентификатора"),      // duplicate id
	}

	res, err := ix.IndexBatch(context.Background(), records)
	if err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
	if res.Indexed != 1 || res.Skipped != 4 {
		t.Errorf("indexed=%d skipped=%d, want 1/4", res.Indexed, res.Skipped)
	}
	if len(repo.docs) != 1 {
		t.Fatalf("store holds %d docs, want 1", len(repo.docs))
	}
	doc := repo.docs["ai_content_1"]
	if doc.Metadata[vector.ModelKey] != "test-embedder-v1" {
		t.Errorf("embedding model not recorded: %v", doc.Metadata)
	}
	if doc.Metadata["chunk_index"] != "0" {
		t.Errorf("chunk_index = %q", doc.Metadata["chunk_index"])
	}
}

func TestIndexBatch_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	ix := New(&fakeEmbedder{}, repo, nil)

	records := []corpus.Record{
		validRecord("ai_content_0", "Программа AI фокусируется на машинном обучении."),
		validRecord("ai_product_content_0", "Программа AI Product фокусируется на продуктах."),
	}

	for range 2 {
		if _, err := ix.IndexBatch(context.Background(), records); err != nil {
			t.Fatalf("IndexBatch: %v", err)
		}
	}
	if len(repo.docs) != 2 {
		t.Errorf("re-ingesting identical batch changed store size to %d", len(repo.docs))
	}
}

func TestIndexBatch_EmbeddingFailureSkipsOnlyThatRecord(t *testing.T) {
	repo := newFakeRepo()
	ix := New(&fakeEmbedder{failOn: map[string]bool{"сломанный текст": true}}, repo, nil)

	records := []corpus.Record{
		validRecord("ai_content_0", "сломанный текст"),
		validRecord("ai_content_1", "нормальный текст"),
	}
	res, err := ix.IndexBatch(context.Background(), records)
	if err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
	if res.Indexed != 1 || res.Skipped != 1 {
		t.Errorf("indexed=%d skipped=%d, want 1/1", res.Indexed, res.Skipped)
	}
}

func TestIndexBatch_AllInvalidNoStoreCalls(t *testing.T) {
	repo := newFakeRepo()
	ix := New(&fakeEmbedder{}, repo, nil)

	res, err := ix.IndexBatch(context.Background(), []corpus.Record{{ID: "x"}})
	if err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
	if res.Indexed != 0 || repo.ensured != 0 {
		t.Errorf("empty effective batch must not touch the store: %+v ensured=%d", res, repo.ensured)
	}
}

func TestIndexBatch_UpsertErrorPropagates(t *testing.T) {
	repo := newFakeRepo()
	repo.upsertErr = errors.New("store unreachable")
	ix := New(&fakeEmbedder{}, repo, nil)

	if _, err := ix.IndexBatch(context.Background(), []corpus.Record{
		validRecord("ai_content_0", "текст"),
	}); err == nil {
		t.Fatal("expected upsert error to propagate")
	}
}
