package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nvoronin/abitbot/internal/config"
	"github.com/nvoronin/abitbot/internal/corpus"
	"github.com/nvoronin/abitbot/internal/embed"
	"github.com/nvoronin/abitbot/internal/engine"
	"github.com/nvoronin/abitbot/internal/ingest"
	"github.com/nvoronin/abitbot/internal/metrics"
	"github.com/nvoronin/abitbot/internal/observability"
	"github.com/nvoronin/abitbot/internal/qa"
	"github.com/nvoronin/abitbot/internal/retriever"
	"github.com/nvoronin/abitbot/internal/router"
	"github.com/nvoronin/abitbot/internal/server"
	"github.com/nvoronin/abitbot/internal/telegram"
	"github.com/nvoronin/abitbot/internal/tools"
	"github.com/nvoronin/abitbot/internal/vector"
)

func main() {
	// .env is optional; real deployments configure via environment.
	_ = godotenv.Load()

	var (
		configPath string
		jsonReport bool
		topK       int
	)

	rootCmd := &cobra.Command{
		Use:   "abitbot",
		Short: "RAG assistant for ITMO AI master's program applicants",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/abitbot.yaml", "Config file path")

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk the scraped corpus, embed it and index it into Qdrant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), configPath, jsonReport)
		},
	}
	ingestCmd.Flags().BoolVar(&jsonReport, "json", false, "Output ingest metrics as JSON")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the collection size, sample stored chunks and validate the embedding model tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), configPath)
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), configPath, strings.Join(args, " "), topK)
		},
	}
	askCmd.Flags().IntVar(&topK, "top-k", 0, "Chunks to retrieve per question (0 = config value)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot with health endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	rootCmd.AddCommand(ingestCmd, verifyCmd, askCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func newEmbedder(cfg *config.Config, log *slog.Logger) embed.Embedder {
	if cfg.Embedder.Kind == "local" {
		return embed.NewLocal(embed.LocalConfig{
			ModelPath: cfg.Embedder.ModelPath,
			RepoID:    cfg.Embedder.RepoID,
			Filename:  cfg.Embedder.Filename,
			ModelsDir: cfg.Engine.ModelsDir,
		}, log)
	}
	return embed.NewOpenAIEmbedder(cfg.Embedder.BaseURL, cfg.Embedder.APIKey, cfg.Embedder.Model)
}

func newEngine(cfg *config.Config, log *slog.Logger) *engine.Engine {
	return engine.New(engine.Config{
		ModelPath:    cfg.Engine.ModelPath,
		RepoID:       cfg.Engine.RepoID,
		Filename:     cfg.Engine.Filename,
		ModelsDir:    cfg.Engine.ModelsDir,
		ContextSize:  cfg.Engine.ContextSize,
		Threads:      cfg.Engine.Threads,
		BatchSize:    cfg.Engine.BatchSize,
		SystemPrompt: cfg.Engine.SystemPrompt,
		Defaults:     cfg.Engine.GenerationDefaults(),
	}, log)
}

func runIngest(ctx context.Context, configPath string, jsonReport bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := setupLogger(cfg.Log)

	m := metrics.New()

	proc := &corpus.Processor{
		ChunkSize: cfg.Chunker.ChunkSize,
		Overlap:   cfg.Chunker.Overlap,
		Log:       log,
	}
	records, err := proc.ProcessDir(cfg.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("processing corpus: %w", err)
	}
	m.CollectRecords(records)

	batchPath := filepath.Join(cfg.Paths.BatchDir, corpus.BatchFileName)
	if err := corpus.WriteBatch(batchPath, records); err != nil {
		return fmt.Errorf("writing batch: %w", err)
	}
	log.Info("batch written", "path", batchPath, "records", len(records))

	repo, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer repo.Close()

	emb := newEmbedder(cfg, log)

	ctx, span := observability.StartIngestSpan(ctx, cfg.Vector.Collection)
	defer span.End()

	result, err := ingest.New(emb, repo, log).IndexBatch(ctx, records)
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("indexing: %w", err)
	}
	observability.RecordIngestResult(span, result.Indexed, result.Skipped, result.Stored)

	m.Finish(result.Indexed, result.Skipped, result.Stored, nil)
	if jsonReport {
		data, err := m.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		m.PrintSummary(os.Stdout)
	}
	return nil
}

func runVerify(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := setupLogger(cfg.Log)

	repo, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer repo.Close()

	count, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting points: %w", err)
	}
	fmt.Printf("Collection %q holds %d points\n", cfg.Vector.Collection, count)

	sample, err := repo.Sample(ctx, 3)
	if err != nil {
		return fmt.Errorf("sampling points: %w", err)
	}
	for _, s := range sample {
		text := s.Content
		if len([]rune(text)) > 120 {
			text = string([]rune(text)[:120]) + "..."
		}
		fmt.Printf("  %s [%s]: %s\n", s.ID, s.Metadata["program_name"], text)
	}

	emb := newEmbedder(cfg, log)
	if err := retriever.New(emb, repo).CheckModel(ctx); err != nil {
		return fmt.Errorf("embedding model check: %w", err)
	}
	fmt.Println("Embedding model tag matches the configured embedder")
	return nil
}

func runAsk(ctx context.Context, configPath, question string, topK int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := setupLogger(cfg.Log)

	rt, cleanup, err := buildRouter(ctx, cfg, log, topK)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println(rt.Route(ctx, question))
	return nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := setupLogger(cfg.Log)

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "abitbot",
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		Environment:  cfg.Tracing.Environment,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	repo, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}

	emb := newEmbedder(cfg, log)
	eng := newEngine(cfg, log)
	// Load eagerly: a model that cannot load should fail the process at
	// startup, not apologize to every user.
	if err := eng.Load(ctx); err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	rtv := retriever.New(emb, repo)
	// A collection indexed under a different embedder would silently serve
	// unrelated neighbors; refuse to start instead.
	if err := rtv.CheckModel(ctx); err != nil {
		return fmt.Errorf("embedding model check: %w", err)
	}
	assembler := qa.New(rtv, eng, cfg.Retriever.TopK, log)
	rt := router.New(
		router.NewKeywordClassifier(advisoryKeywords(cfg)),
		tools.CourseRecommender{},
		tools.ProgramComparator{},
		assembler,
		log,
	)

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is not configured (set ABITBOT_TELEGRAM_TOKEN)")
	}
	bot, err := telegram.New(cfg.Telegram.Token, rt, telegram.Options{
		AnswerTimeout: time.Duration(cfg.Telegram.AnswerTimeoutSec) * time.Second,
		PollTimeout:   cfg.Telegram.PollTimeoutSec,
		Log:           log,
	})
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}

	g := server.NewGracefulServer(&server.HealthConfig{Version: "0.1.0"}, nil)
	g.Health.RegisterCheck("vector-store", server.VectorStoreHealthChecker(cfg.Vector.Collection, repo.Count))
	g.Health.RegisterCheck("engine", server.EngineHealthChecker(cfg.Engine.ModelPath))
	// The local GGUF embedder would load its model on a health check, so only the
	// HTTP backend gets an active ping.
	var embedPing func(ctx context.Context) error
	if cfg.Embedder.Kind != "local" {
		embedPing = func(ctx context.Context) error {
			_, err := emb.Embed(ctx, []string{"ping"})
			return err
		}
	}
	g.Health.RegisterCheck("embedder", server.EmbedderHealthChecker(emb.Model(), embedPing))

	botCtx, stopBot := context.WithCancel(ctx)
	hook := server.TelegramShutdownHook(stopBot)
	g.RegisterHook(hook.Name, hook.Priority, hook.Fn)
	hook = server.EngineShutdownHook(eng.Close)
	g.RegisterHook(hook.Name, hook.Priority, hook.Fn)
	hook = server.VectorStoreShutdownHook(repo.Close)
	g.RegisterHook(hook.Name, hook.Priority, hook.Fn)
	hook = server.TracingShutdownHook(tp.Shutdown)
	g.RegisterHook(hook.Name, hook.Priority, hook.Fn)

	if err := g.Start(cfg.Server.Addr); err != nil {
		return err
	}

	go func() {
		if err := bot.Run(botCtx); err != nil && err != context.Canceled {
			log.Error("telegram poller stopped", "error", err)
		}
	}()

	log.Info("abitbot is running", "health_addr", cfg.Server.Addr)
	g.Wait()
	return nil
}

func buildRouter(ctx context.Context, cfg *config.Config, log *slog.Logger, topK int) (*router.Router, func(), error) {
	repo, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	emb := newEmbedder(cfg, log)
	eng := newEngine(cfg, log)
	if topK < 1 {
		topK = cfg.Retriever.TopK
	}
	rtv := retriever.New(emb, repo)
	if err := rtv.CheckModel(ctx); err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("embedding model check: %w", err)
	}
	assembler := qa.New(rtv, eng, topK, log)
	rt := router.New(
		router.NewKeywordClassifier(advisoryKeywords(cfg)),
		tools.CourseRecommender{},
		tools.ProgramComparator{},
		assembler,
		log,
	)

	cleanup := func() {
		if err := eng.Close(); err != nil {
			log.Error("closing engine", "error", err)
		}
		if err := repo.Close(); err != nil {
			log.Error("closing qdrant connection", "error", err)
		}
	}
	return rt, cleanup, nil
}

func advisoryKeywords(cfg *config.Config) []string {
	if len(cfg.Router.AdvisoryKeywords) > 0 {
		return cfg.Router.AdvisoryKeywords
	}
	return router.DefaultAdvisoryKeywords()
}
