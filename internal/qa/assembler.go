// Package qa assembles bounded prompts from retrieved context and drives
// the inference engine to an answer.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nvoronin/abitbot/internal/engine"
	"github.com/nvoronin/abitbot/internal/retriever"
)

// DefaultTopK keeps prompts short for the small-context local model.
const DefaultTopK = 1

// Generator produces a completion for templated user content. Satisfied by
// *engine.Engine.
type Generator interface {
	Generate(ctx context.Context, user string, o *engine.Overrides) string
}

// ContextRetriever supplies relevant chunks for a question. Satisfied by
// *retriever.Retriever.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retriever.Result, error)
}

// Assembler answers questions over the indexed corpus.
type Assembler struct {
	ret  ContextRetriever
	gen  Generator
	topK int
	log  *slog.Logger
}

// New creates an Assembler retrieving topK chunks per question.
func New(ret ContextRetriever, gen Generator, topK int, log *slog.Logger) *Assembler {
	if topK < 1 {
		topK = DefaultTopK
	}
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{ret: ret, gen: gen, topK: topK, log: log}
}

// Answer retrieves context for the question, builds the prompt and returns
// the engine's output verbatim. A retrieval failure or an empty collection
// degrades to an empty context block and the engine is still invoked. No
// caching: every call re-embeds and re-generates.
func (a *Assembler) Answer(ctx context.Context, question string) string {
	var contextBlock string
	results, err := a.ret.Retrieve(ctx, question, a.topK)
	if err != nil {
		a.log.Error("retrieval failed, answering without context", "error", err)
	} else {
		texts := make([]string, 0, len(results))
		for _, r := range results {
			texts = append(texts, r.Text)
		}
		contextBlock = strings.Join(texts, "\n\n")
	}

	return a.gen.Generate(ctx, userContent(contextBlock, question), nil)
}

// userContent places retrieved context ahead of the question. With no
// context the question is passed through bare.
func userContent(contextBlock, question string) string {
	if contextBlock == "" {
		return question
	}
	return fmt.Sprintf("Контекст:\n%s\n\nВопрос: %s", contextBlock, question)
}
