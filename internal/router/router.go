// Package router classifies incoming messages and dispatches them to the
// advisory tool layer or the retrieval-QA path.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nvoronin/abitbot/internal/observability"
	"github.com/nvoronin/abitbot/internal/tools"
)

// Intent is the routing decision for one message.
type Intent int

const (
	// IntentInformational routes to retrieval QA.
	IntentInformational Intent = iota
	// IntentAdvisory routes to the rule-based tool layer.
	IntentAdvisory
)

func (i Intent) String() string {
	if i == IntentAdvisory {
		return "advisory"
	}
	return "informational"
}

// Branch-level apologies. A failure in one branch is contained there and
// never crashes the router.
const (
	AdvisoryApology      = "Извините, не удалось обработать ваш запрос."
	InformationalApology = "Не удалось найти ответ. Попробуйте уточнить вопрос."
)

// DefaultAdvisoryKeywords trigger the advisory branch.
func DefaultAdvisoryKeywords() []string {
	return []string{"рекомендуй", "подбери", "совет", "какие курсы", "что выбрать", "сравни"}
}

// Classifier decides the intent of a message.
type Classifier interface {
	Classify(message string) Intent
}

// KeywordClassifier is a pure, total classifier: any message containing one
// of the keywords (case-insensitive substring match) is advisory, all
// others are informational. The keyword table is injected so a learned
// classifier can replace it without touching the router.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier builds a classifier over the given keyword set.
func NewKeywordClassifier(keywords []string) KeywordClassifier {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return KeywordClassifier{keywords: lowered}
}

func (c KeywordClassifier) Classify(message string) Intent {
	lower := strings.ToLower(message)
	for _, k := range c.keywords {
		if strings.Contains(lower, k) {
			return IntentAdvisory
		}
	}
	return IntentInformational
}

// Answerer is the informational branch. Satisfied by *qa.Assembler.
type Answerer interface {
	Answer(ctx context.Context, question string) string
}

// Router performs one-shot classify-and-dispatch. It holds no session
// state between messages.
type Router struct {
	classifier Classifier
	recommend  tools.Tool
	compare    tools.Tool
	answerer   Answerer
	log        *slog.Logger
}

// New creates a Router over the two advisory tools and the QA path.
func New(classifier Classifier, recommend, compare tools.Tool, answerer Answerer, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		classifier: classifier,
		recommend:  recommend,
		compare:    compare,
		answerer:   answerer,
		log:        log,
	}
}

// Route maps every message to exactly one branch and always returns a
// string: the branch's answer, or that branch's apology on failure.
func (r *Router) Route(ctx context.Context, message string) string {
	intent := r.classifier.Classify(message)
	ctx, span := observability.StartRouteSpan(ctx, intent.String())
	defer span.End()

	if intent == IntentAdvisory {
		return r.runAdvisory(message)
	}
	return r.runInformational(ctx, message)
}

func (r *Router) runAdvisory(message string) string {
	tool := r.recommend
	if strings.Contains(strings.ToLower(message), "сравни") {
		tool = r.compare
	}
	out, err := tool.Run(message)
	if err != nil {
		r.log.Error("advisory tool failed", "tool", tool.Name(), "error", err)
		return AdvisoryApology
	}
	return out
}

func (r *Router) runInformational(ctx context.Context, message string) (answer string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("informational branch panicked", "panic", rec)
			answer = InformationalApology
		}
	}()
	return r.answerer.Answer(ctx, message)
}
