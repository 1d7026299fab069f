package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/nvoronin/abitbot/internal/chunker"
	"github.com/nvoronin/abitbot/internal/engine"
)

// Config holds all application configuration.
type Config struct {
	Vector    VectorConfig    `mapstructure:"vector"`
	Chunker   ChunkerConfig   `mapstructure:"chunker"`
	Embedder  EmbedderConfig  `mapstructure:"embedder"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Retriever RetrieverConfig `mapstructure:"retriever"`
	Router    RouterConfig    `mapstructure:"router"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Server    ServerConfig    `mapstructure:"server"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Log       LogConfig       `mapstructure:"log"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

// Addr returns the host:port gRPC target.
func (c VectorConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ChunkerConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
	Overlap   int `mapstructure:"overlap"`
}

type EmbedderConfig struct {
	// Kind selects the backend: "openai" or "local".
	Kind    string `mapstructure:"kind"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`

	// Local backend weights, used when kind is "local".
	ModelPath string `mapstructure:"model_path"`
	RepoID    string `mapstructure:"repo_id"`
	Filename  string `mapstructure:"filename"`
}

type EngineConfig struct {
	ModelPath   string `mapstructure:"model_path"`
	RepoID      string `mapstructure:"repo_id"`
	Filename    string `mapstructure:"filename"`
	ModelsDir   string `mapstructure:"models_dir"`
	ContextSize int    `mapstructure:"context_size"`
	Threads     int    `mapstructure:"threads"`
	BatchSize   int    `mapstructure:"batch_size"`

	MaxTokens     int      `mapstructure:"max_tokens"`
	Temperature   float64  `mapstructure:"temperature"`
	TopP          float64  `mapstructure:"top_p"`
	TopK          int      `mapstructure:"top_k"`
	RepeatPenalty float64  `mapstructure:"repeat_penalty"`
	Stop          []string `mapstructure:"stop"`

	SystemPrompt string `mapstructure:"system_prompt"`
}

type RetrieverConfig struct {
	TopK int `mapstructure:"top_k"`
}

type RouterConfig struct {
	// AdvisoryKeywords override the built-in list when non-empty.
	AdvisoryKeywords []string `mapstructure:"advisory_keywords"`
}

type TelegramConfig struct {
	Token            string `mapstructure:"token"`
	AnswerTimeoutSec int    `mapstructure:"answer_timeout_sec"`
	PollTimeoutSec   int    `mapstructure:"poll_timeout_sec"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type PathsConfig struct {
	// DataDir holds the scraped program pages and study plan PDFs.
	DataDir string `mapstructure:"data_dir"`
	// BatchDir is where the processed chunk batch file is written.
	BatchDir string `mapstructure:"batch_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Embedder.Kind == "openai" && c.Embedder.APIKey == "" {
		warnings = append(warnings, "embedder kind 'openai' is configured but api_key is empty")
	}

	if c.Engine.Temperature < 0 || c.Engine.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("engine temperature %.2f is outside recommended range [0.0, 2.0]", c.Engine.Temperature))
	}

	if c.Engine.MaxTokens < 0 {
		warnings = append(warnings, fmt.Sprintf("engine max_tokens %d is negative", c.Engine.MaxTokens))
	}

	if len(c.Engine.Stop) == 0 {
		warnings = append(warnings, "engine stop list is empty; generations will run to the token limit")
	}

	if c.Chunker.Overlap >= c.Chunker.ChunkSize {
		warnings = append(warnings, fmt.Sprintf("chunker overlap %d must be smaller than chunk_size %d", c.Chunker.Overlap, c.Chunker.ChunkSize))
	}

	if c.Retriever.TopK < 1 {
		warnings = append(warnings, fmt.Sprintf("retriever top_k %d is below 1", c.Retriever.TopK))
	}

	return warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "itmo_master_programs")

	v.SetDefault("chunker.chunk_size", chunker.DefaultChunkSize)
	v.SetDefault("chunker.overlap", chunker.DefaultOverlap)

	v.SetDefault("embedder.kind", "openai")
	v.SetDefault("embedder.model", "text-embedding-3-small")
	v.SetDefault("embedder.base_url", "https://api.openai.com/v1")
	// Viper's AutomaticEnv only resolves keys it already knows about, so
	// every key must have a default, including secrets that default to
	// empty and arrive via ABITBOT_* variables.
	v.SetDefault("embedder.api_key", "")
	v.SetDefault("embedder.model_path", "")
	v.SetDefault("embedder.repo_id", "")
	v.SetDefault("embedder.filename", "")

	v.SetDefault("engine.model_path", "models/saiga2_7b.gguf")
	v.SetDefault("engine.repo_id", "IlyaGusev/saiga2_7b_gguf")
	v.SetDefault("engine.filename", "model-q4_K.gguf")
	v.SetDefault("engine.models_dir", "models")
	v.SetDefault("engine.context_size", 4096)
	v.SetDefault("engine.threads", 8)
	v.SetDefault("engine.batch_size", 512)

	gen := engine.DefaultGenerationConfig()
	v.SetDefault("engine.max_tokens", gen.MaxTokens)
	v.SetDefault("engine.temperature", gen.Temperature)
	v.SetDefault("engine.top_p", gen.TopP)
	v.SetDefault("engine.top_k", gen.TopK)
	v.SetDefault("engine.repeat_penalty", gen.RepeatPenalty)
	v.SetDefault("engine.stop", gen.Stop)

	v.SetDefault("engine.system_prompt", "")

	v.SetDefault("retriever.top_k", 1)

	v.SetDefault("router.advisory_keywords", []string{})

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.answer_timeout_sec", 120)
	v.SetDefault("telegram.poll_timeout_sec", 30)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")

	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.batch_dir", "data")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from file and environment. A missing file is not
// an error: defaults plus ABITBOT_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ABITBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

// GenerationDefaults maps the engine section onto generation defaults.
func (c EngineConfig) GenerationDefaults() engine.GenerationConfig {
	gen := engine.DefaultGenerationConfig()
	if c.MaxTokens > 0 {
		gen.MaxTokens = c.MaxTokens
	}
	if c.Temperature > 0 {
		gen.Temperature = c.Temperature
	}
	if c.TopP > 0 {
		gen.TopP = c.TopP
	}
	if c.TopK > 0 {
		gen.TopK = c.TopK
	}
	if c.RepeatPenalty > 0 {
		gen.RepeatPenalty = c.RepeatPenalty
	}
	if c.Stop != nil {
		gen.Stop = c.Stop
	}
	return gen
}
