package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nvoronin/abitbot/internal/engine"
	"github.com/nvoronin/abitbot/internal/retriever"
)

type fakeRetriever struct {
	results []retriever.Result
	err     error
	gotK    int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, k int) ([]retriever.Result, error) {
	f.gotK = k
	return f.results, f.err
}

type fakeGenerator struct {
	lastUser string
	output   string
}

func (f *fakeGenerator) Generate(_ context.Context, user string, _ *engine.Overrides) string {
	f.lastUser = user
	return f.output
}

func TestAnswer_ContextPrecedesQuestion(t *testing.T) {
	ret := &fakeRetriever{results: []retriever.Result{
		{Text: "Программа AI фокусируется на машинном обучении."},
	}}
	gen := &fakeGenerator{output: "Про машинное обучение."}
	a := New(ret, gen, 1, nil)

	got := a.Answer(context.Background(), "На чём фокус программы?")
	if got != "Про машинное обучение." {
		t.Errorf("Answer = %q", got)
	}
	ctxIdx := strings.Index(gen.lastUser, "машинном обучении")
	qIdx := strings.Index(gen.lastUser, "На чём фокус")
	if ctxIdx == -1 || qIdx == -1 || ctxIdx > qIdx {
		t.Errorf("context must precede question in prompt content: %q", gen.lastUser)
	}
}

func TestAnswer_EmptyRetrievalStillGenerates(t *testing.T) {
	gen := &fakeGenerator{output: "Общий ответ без контекста."}
	a := New(&fakeRetriever{}, gen, 1, nil)

	got := a.Answer(context.Background(), "Вопрос без корпуса?")
	if got != "Общий ответ без контекста." {
		t.Errorf("Answer = %q", got)
	}
	if gen.lastUser != "Вопрос без корпуса?" {
		t.Errorf("empty context must pass the bare question, got %q", gen.lastUser)
	}
}

func TestAnswer_RetrievalErrorDegradesToEmptyContext(t *testing.T) {
	ret := &fakeRetriever{err: errors.New("store unreachable")}
	gen := &fakeGenerator{output: "ответ"}
	a := New(ret, gen, 1, nil)

	if got := a.Answer(context.Background(), "вопрос"); got != "ответ" {
		t.Errorf("Answer = %q, retrieval failure must not fail the answer", got)
	}
	if strings.Contains(gen.lastUser, "Контекст:") {
		t.Errorf("degraded path must not fabricate a context block: %q", gen.lastUser)
	}
}

func TestAnswer_JoinsMultipleChunks(t *testing.T) {
	ret := &fakeRetriever{results: []retriever.Result{
		{Text: "первый фрагмент"},
		{Text: "второй фрагмент"},
	}}
	gen := &fakeGenerator{output: "ответ"}
	a := New(ret, gen, 2, nil)

	a.Answer(context.Background(), "вопрос")
	if ret.gotK != 2 {
		t.Errorf("retrieved k=%d, want 2", ret.gotK)
	}
	if !strings.Contains(gen.lastUser, "первый фрагмент\n\nвторой фрагмент") {
		t.Errorf("chunks not concatenated: %q", gen.lastUser)
	}
}

func TestNew_TopKFloor(t *testing.T) {
	a := New(&fakeRetriever{}, &fakeGenerator{}, 0, nil)
	if a.topK != DefaultTopK {
		t.Errorf("topK = %d, want default %d", a.topK, DefaultTopK)
	}
}
