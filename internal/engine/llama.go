//go:build cgo && llama

package engine

import (
	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBackend runs GGUF models in-process through the llama.cpp binding.
type llamaBackend struct {
	model   *llama.LLama
	threads int
}

// OpenBackend loads a quantized model file.
func OpenBackend(path string, opts BackendOptions) (Backend, error) {
	modelOpts := []llama.ModelOption{
		llama.SetContext(opts.ContextSize),
		llama.SetNBatch(opts.BatchSize),
	}
	if opts.Embeddings {
		modelOpts = append(modelOpts, llama.EnableEmbeddings)
	}
	model, err := llama.New(path, modelOpts...)
	if err != nil {
		return nil, err
	}
	return &llamaBackend{model: model, threads: opts.Threads}, nil
}

func (b *llamaBackend) Complete(prompt string, cfg GenerationConfig) (string, error) {
	return b.model.Predict(prompt,
		llama.SetThreads(b.threads),
		llama.SetTokens(cfg.MaxTokens),
		llama.SetTemperature(cfg.Temperature),
		llama.SetTopP(cfg.TopP),
		llama.SetTopK(cfg.TopK),
		llama.SetPenalty(cfg.RepeatPenalty),
		llama.SetStopWords(cfg.Stop...),
	)
}

func (b *llamaBackend) Embed(text string) ([]float32, error) {
	return b.model.Embeddings(text, llama.SetThreads(b.threads))
}

func (b *llamaBackend) Close() error {
	b.model.Free()
	return nil
}
