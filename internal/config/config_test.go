package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvoronin/abitbot/internal/chunker"
)

func validConfig() *Config {
	return &Config{
		Chunker:   ChunkerConfig{ChunkSize: chunker.DefaultChunkSize, Overlap: chunker.DefaultOverlap},
		Embedder:  EmbedderConfig{Kind: "openai", APIKey: "key1"},
		Engine:    EngineConfig{Temperature: 0.7, MaxTokens: 512, Stop: []string{"</s>"}},
		Retriever: RetrieverConfig{TopK: 1},
	}
}

func TestValidate_Clean(t *testing.T) {
	warnings := validConfig().Validate()
	if len(warnings) != 0 {
		t.Errorf("valid config should have no warnings, got %v", warnings)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Embedder.APIKey = ""
	warnings := cfg.Validate()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "api_key") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected warning about missing api_key")
	}
}

func TestValidate_LocalEmbedderNeedsNoKey(t *testing.T) {
	cfg := validConfig()
	cfg.Embedder = EmbedderConfig{Kind: "local", ModelPath: "models/embed.gguf"}
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "api_key") {
			t.Error("'local' embedder should not warn about missing api_key")
		}
	}
}

func TestValidate_InvalidTemperature(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		want bool // true = should warn
	}{
		{"zero", 0, false},
		{"normal", 0.7, false},
		{"max", 2.0, false},
		{"negative", -1, true},
		{"too_high", 3.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Engine.Temperature = tt.temp
			hasWarn := false
			for _, w := range cfg.Validate() {
				if strings.Contains(w, "temperature") {
					hasWarn = true
				}
			}
			if hasWarn != tt.want {
				t.Errorf("temperature=%.1f: hasWarn=%v, want=%v", tt.temp, hasWarn, tt.want)
			}
		})
	}
}

func TestValidate_NegativeMaxTokens(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.MaxTokens = -100
	found := false
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "max_tokens") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning about negative max_tokens")
	}
}

func TestValidate_EmptyStopList(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.Stop = nil
	found := false
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "stop") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning about empty stop list")
	}
}

func TestValidate_OverlapTooLarge(t *testing.T) {
	cfg := validConfig()
	cfg.Chunker = ChunkerConfig{ChunkSize: 100, Overlap: 100}
	found := false
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "overlap") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning about overlap >= chunk_size")
	}
}

func TestValidate_TopKBelowOne(t *testing.T) {
	cfg := validConfig()
	cfg.Retriever.TopK = 0
	found := false
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "top_k") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning about top_k below 1")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Vector.Collection != "itmo_master_programs" {
		t.Errorf("expected default collection, got %s", cfg.Vector.Collection)
	}
	if cfg.Vector.Addr() != "localhost:6334" {
		t.Errorf("expected default vector addr, got %s", cfg.Vector.Addr())
	}
	if cfg.Chunker.ChunkSize != chunker.DefaultChunkSize {
		t.Errorf("expected default chunk size, got %d", cfg.Chunker.ChunkSize)
	}
	if cfg.Engine.RepoID != "IlyaGusev/saiga2_7b_gguf" {
		t.Errorf("expected default repo id, got %s", cfg.Engine.RepoID)
	}
	if cfg.Retriever.TopK != 1 {
		t.Errorf("expected default top_k 1, got %d", cfg.Retriever.TopK)
	}
	if len(cfg.Engine.Stop) == 0 {
		t.Error("expected default stop sequences")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abitbot.yaml")
	content := `
vector:
  host: qdrant.internal
  port: 7443
  collection: test_collection
retriever:
  top_k: 3
engine:
  temperature: 0.2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Vector.Addr() != "qdrant.internal:7443" {
		t.Errorf("expected file vector addr, got %s", cfg.Vector.Addr())
	}
	if cfg.Retriever.TopK != 3 {
		t.Errorf("expected top_k 3, got %d", cfg.Retriever.TopK)
	}
	if cfg.Engine.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %f", cfg.Engine.Temperature)
	}
	// Untouched sections keep their defaults.
	if cfg.Engine.ContextSize != 4096 {
		t.Errorf("expected default context size, got %d", cfg.Engine.ContextSize)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	// A container deployment sets nothing but environment variables, so
	// keys without a yaml entry still have to resolve, secrets included.
	t.Setenv("ABITBOT_TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("ABITBOT_EMBEDDER_API_KEY", "sk-test")
	t.Setenv("ABITBOT_TRACING_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("ABITBOT_VECTOR_HOST", "qdrant.svc")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "123456:test-token" {
		t.Errorf("telegram token not bound from env: got %q", cfg.Telegram.Token)
	}
	if cfg.Embedder.APIKey != "sk-test" {
		t.Errorf("embedder api key not bound from env: got %q", cfg.Embedder.APIKey)
	}
	if cfg.Tracing.OTLPEndpoint != "collector:4317" {
		t.Errorf("otlp endpoint not bound from env: got %q", cfg.Tracing.OTLPEndpoint)
	}
	if cfg.Vector.Host != "qdrant.svc" {
		t.Errorf("vector host not bound from env: got %q", cfg.Vector.Host)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abitbot.yaml")
	if err := os.WriteFile(path, []byte("telegram:\n  token: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ABITBOT_TELEGRAM_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Errorf("env should override file: got %q", cfg.Telegram.Token)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not fail: %v", err)
	}
	if cfg.Vector.Collection != "itmo_master_programs" {
		t.Errorf("expected default collection, got %s", cfg.Vector.Collection)
	}
}

func TestGenerationDefaults(t *testing.T) {
	ec := EngineConfig{MaxTokens: 64, Temperature: 0.3, Stop: []string{"###"}}
	gen := ec.GenerationDefaults()
	if gen.MaxTokens != 64 {
		t.Errorf("expected max tokens 64, got %d", gen.MaxTokens)
	}
	if gen.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %f", gen.Temperature)
	}
	if len(gen.Stop) != 1 || gen.Stop[0] != "###" {
		t.Errorf("expected stop override, got %v", gen.Stop)
	}
	// Unset fields inherit built-in defaults.
	if gen.TopP != 0.95 {
		t.Errorf("expected default top_p, got %f", gen.TopP)
	}
}
