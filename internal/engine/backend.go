package engine

// Backend is a loaded local model. One Backend instance is not safe for
// concurrent calls; callers serialize access themselves.
type Backend interface {
	// Complete runs a completion over the full templated prompt.
	Complete(prompt string, cfg GenerationConfig) (string, error)
	// Embed returns the embedding vector for a text. Only meaningful when
	// the backend was opened with Embeddings enabled.
	Embed(text string) ([]float32, error)
	// Close frees the model.
	Close() error
}

// BackendOptions configures how a model file is loaded.
type BackendOptions struct {
	ContextSize int
	Threads     int
	BatchSize   int
	Embeddings  bool
}
