package embed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/nvoronin/abitbot/internal/engine"
)

// LocalConfig describes a GGUF embedding model.
type LocalConfig struct {
	ModelPath   string
	RepoID      string
	Filename    string
	ModelsDir   string
	ContextSize int
	Threads     int
}

// LocalEmbedder embeds text with a GGUF model loaded in-process. The model
// loads lazily once and a mutex serializes calls against it.
type LocalEmbedder struct {
	cfg LocalConfig
	log *slog.Logger

	loadOnce sync.Once
	loadErr  error
	backend  engine.Backend
	mu       sync.Mutex

	open func(path string, opts engine.BackendOptions) (engine.Backend, error)
}

// NewLocal creates a local embedder. The model loads on first use.
func NewLocal(cfg LocalConfig, log *slog.Logger) *LocalEmbedder {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ContextSize == 0 {
		cfg.ContextSize = 2048
	}
	if cfg.Threads == 0 {
		cfg.Threads = 8
	}
	return &LocalEmbedder{cfg: cfg, log: log, open: engine.OpenBackend}
}

// Model identifies the embedding model by its artifact name.
func (e *LocalEmbedder) Model() string {
	if e.cfg.RepoID != "" && e.cfg.Filename != "" {
		return e.cfg.RepoID + "/" + e.cfg.Filename
	}
	return filepath.Base(e.cfg.ModelPath)
}

func (e *LocalEmbedder) load(ctx context.Context) error {
	e.loadOnce.Do(func() {
		path, err := engine.ResolveModelFile(ctx, e.cfg.ModelPath, e.cfg.RepoID, e.cfg.Filename, e.cfg.ModelsDir, e.log)
		if err != nil {
			e.loadErr = err
			return
		}
		backend, err := e.open(path, engine.BackendOptions{
			ContextSize: e.cfg.ContextSize,
			Threads:     e.cfg.Threads,
			BatchSize:   512,
			Embeddings:  true,
		})
		if err != nil {
			e.loadErr = err
			return
		}
		e.backend = backend
		e.log.Info("embedding model loaded", "model", e.Model())
	})
	return e.loadErr
}

func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.load(ctx); err != nil {
		return nil, fmt.Errorf("loading embedding model: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.backend.Embed(text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Close frees the loaded model, if any.
func (e *LocalEmbedder) Close() error {
	if e.backend != nil {
		return e.backend.Close()
	}
	return nil
}
