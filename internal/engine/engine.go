// Package engine hosts the local generative model: one lazily loaded
// process-wide instance with serialized completion calls.
package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvoronin/abitbot/internal/observability"
)

// Apology is the fixed user-safe string returned when generation fails.
// Generate never surfaces the underlying error to its caller.
const Apology = "Извините, не удалось получить ответ от локальной модели."

// Config describes the local model and its load parameters.
type Config struct {
	// ModelPath is checked first (e.g. "models/saiga2_7b.gguf").
	ModelPath string
	// RepoID/Filename identify the hub fallback artifact.
	RepoID   string
	Filename string
	// ModelsDir is where fetched artifacts are cached.
	ModelsDir string

	ContextSize int
	Threads     int
	BatchSize   int

	// SystemPrompt is baked into every templated prompt.
	SystemPrompt string
	// Defaults are the process-wide generation parameters.
	Defaults GenerationConfig
}

// Engine wraps a lazily loaded local model. The model is loaded exactly
// once for the lifetime of the process; concurrent first-use is guarded by
// sync.Once, and actual generation calls are serialized first-come-first-
// served because one loaded model instance is not safe for parallel
// inference.
type Engine struct {
	cfg Config
	log *slog.Logger

	loadOnce sync.Once
	loadErr  error
	backend  Backend

	genMu sync.Mutex

	// open is swapped in tests to avoid loading a real model.
	open func(path string, opts BackendOptions) (Backend, error)
}

// New creates an Engine. The model is not loaded until Load or the first
// Generate call.
func New(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ContextSize == 0 {
		cfg.ContextSize = 4096
	}
	if cfg.Threads == 0 {
		cfg.Threads = 8
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 512
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Defaults.MaxTokens == 0 {
		cfg.Defaults = DefaultGenerationConfig()
	}
	return &Engine{cfg: cfg, log: log, open: OpenBackend}
}

// Load resolves and loads the model file. Safe to call from multiple
// goroutines; only the first call does work. A load failure is fatal for
// this Engine instance and is returned on every subsequent call; callers
// that want to retry construct a fresh Engine.
func (e *Engine) Load(ctx context.Context) error {
	e.loadOnce.Do(func() {
		path, err := ResolveModelFile(ctx, e.cfg.ModelPath, e.cfg.RepoID, e.cfg.Filename, e.cfg.ModelsDir, e.log)
		if err != nil {
			e.loadErr = err
			return
		}
		backend, err := e.open(path, BackendOptions{
			ContextSize: e.cfg.ContextSize,
			Threads:     e.cfg.Threads,
			BatchSize:   e.cfg.BatchSize,
		})
		if err != nil {
			e.loadErr = err
			return
		}
		e.backend = backend
		e.log.Info("local model loaded", "path", path, "context", e.cfg.ContextSize)
	})
	return e.loadErr
}

// Generate templates the user content into the chat format, runs a
// completion with the merged generation parameters and returns the trimmed
// answer. On any failure it returns Apology and logs the cause; the error
// never propagates past this boundary.
//
// The context bounds queue wait and load; a completion already handed to
// the model cannot be interrupted mid-generation.
func (e *Engine) Generate(ctx context.Context, user string, o *Overrides) string {
	ctx, span := observability.StartGenerateSpan(ctx, e.Model())
	defer span.End()
	start := time.Now()

	if err := e.Load(ctx); err != nil {
		e.log.Error("local model unavailable", "error", err)
		observability.RecordError(span, err)
		return Apology
	}

	cfg := Merge(e.cfg.Defaults, o)
	prompt := BuildPrompt(e.cfg.SystemPrompt, user)

	e.genMu.Lock()
	defer e.genMu.Unlock()
	if err := ctx.Err(); err != nil {
		e.log.Error("generation abandoned before start", "error", err)
		observability.RecordError(span, err)
		return Apology
	}

	raw, err := e.backend.Complete(prompt, cfg)
	if err != nil {
		e.log.Error("generation failed", "error", err)
		observability.RecordError(span, err)
		return Apology
	}

	answer := strings.TrimSpace(raw)
	// The backend is expected to honor stop sequences, but engines do not
	// always cut exactly; re-scan and truncate at the earliest stop string.
	answer = strings.TrimSpace(TrimAtStop(answer, cfg.Stop))
	observability.RecordGenerateResult(span, len(prompt), len(answer), time.Since(start))
	return answer
}

// Model returns a human-readable identifier for the configured model.
func (e *Engine) Model() string {
	if e.cfg.RepoID != "" {
		return e.cfg.RepoID + "/" + e.cfg.Filename
	}
	return filepath.Base(e.cfg.ModelPath)
}

// Close frees the loaded model, if any.
func (e *Engine) Close() error {
	if e.backend != nil {
		return e.backend.Close()
	}
	return nil
}

// TrimAtStop truncates s at the earliest occurrence of any stop string.
func TrimAtStop(s string, stops []string) string {
	cut := len(s)
	for _, stop := range stops {
		if stop == "" {
			continue
		}
		if idx := strings.Index(s, stop); idx != -1 && idx < cut {
			cut = idx
		}
	}
	return s[:cut]
}
