package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/pkg/llm"
	"procedure-qa-be/pkg/resilience"
	"procedure-qa-be/pkg/store"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

var _ logger.ILogger = nopLogger{}

type fakeLLM struct {
	lastPrompt string
	answer     string
	err        error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestSynthesizer(provider llm.LLMProvider, cfg Config) *Synthesizer {
	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}, nopLogger{})
	return NewSynthesizer(provider, exec, nopLogger{}, cfg)
}

func TestSynthesize_ReturnsAnswerWithAttribution(t *testing.T) {
	provider := &fakeLLM{answer: "You need form TP-01."}
	s := newTestSynthesizer(provider, Config{})

	ec := &store.ExpandedContext{
		Nucleus:           store.RetrievedChunk{Content: "Submit form TP-01 at the district office."},
		SourceDocumentIDs: []string{"doc-1"},
	}
	answer, err := s.Synthesize(context.Background(), "what form do I need", ec)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if answer.Text != "You need form TP-01." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.SourceDocumentIDs) != 1 || answer.SourceDocumentIDs[0] != "doc-1" {
		t.Errorf("SourceDocumentIDs = %v", answer.SourceDocumentIDs)
	}
	if !strings.Contains(provider.lastPrompt, "Submit form TP-01") {
		t.Error("prompt missing nucleus content")
	}
	if !strings.Contains(provider.lastPrompt, "what form do I need") {
		t.Error("prompt missing the question")
	}
}

func TestSynthesize_GenerationFailureIsTyped(t *testing.T) {
	s := newTestSynthesizer(&fakeLLM{err: errors.New("model offline")}, Config{})

	_, err := s.Synthesize(context.Background(), "q", &store.ExpandedContext{
		Nucleus: store.RetrievedChunk{Content: "x"},
	})
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Errorf("Synthesize() error = %v, want ErrGenerationUnavailable", err)
	}
}

func TestBuildContext_TruncatesSupportingNeverNucleus(t *testing.T) {
	nucleusContent := strings.Repeat("N", 200)
	ec := &store.ExpandedContext{
		Nucleus: store.RetrievedChunk{Content: nucleusContent},
		SupportingChunks: []store.RetrievedChunk{
			{ChunkIndex: 1, Content: strings.Repeat("A", 100)},
			{ChunkIndex: 2, Content: strings.Repeat("B", 100)},
			{ChunkIndex: 3, Content: strings.Repeat("C", 100)},
		},
	}

	// Budget fits the nucleus and roughly one supporting chunk.
	got := buildContext(ec, 380)

	if !strings.Contains(got, nucleusContent) {
		t.Fatal("nucleus truncated; it must always be included whole")
	}
	if !strings.Contains(got, strings.Repeat("A", 100)) {
		t.Error("first supporting chunk dropped despite fitting")
	}
	if strings.Contains(got, strings.Repeat("C", 100)) {
		t.Error("over-budget supporting chunk included")
	}
}

func TestBuildContext_NucleusKeptEvenWhenOverBudget(t *testing.T) {
	nucleusContent := strings.Repeat("N", 500)
	ec := &store.ExpandedContext{
		Nucleus: store.RetrievedChunk{Content: nucleusContent},
	}

	got := buildContext(ec, 100)
	if !strings.Contains(got, nucleusContent) {
		t.Error("nucleus must never be cut, even over budget")
	}
}

func TestBuildContext_FullDocumentTruncatedToBudget(t *testing.T) {
	ec := &store.ExpandedContext{
		Nucleus:          store.RetrievedChunk{Content: "short nucleus"},
		FullDocumentText: strings.Repeat("D", 1000),
	}

	got := buildContext(ec, 200)
	if !strings.Contains(got, "short nucleus") {
		t.Fatal("nucleus missing")
	}
	if len(got) > 250 {
		t.Errorf("context length = %d, full document not truncated to budget", len(got))
	}
}

func TestBuildContext_FullDocumentCutOnRuneBoundary(t *testing.T) {
	ec := &store.ExpandedContext{
		Nucleus:          store.RetrievedChunk{Content: "short nucleus"},
		FullDocumentText: strings.Repeat("giấy khai sinh ", 100),
	}

	for budget := 150; budget < 170; budget++ {
		got := buildContext(ec, budget)
		if !utf8.ValidString(got) {
			t.Fatalf("context truncated mid-rune at budget %d", budget)
		}
	}
}

func TestBuildPrompt_LowConfidenceNote(t *testing.T) {
	with := buildPrompt("q", "ctx", true)
	without := buildPrompt("q", "ctx", false)

	if !strings.Contains(with, "partially match") {
		t.Error("low-confidence prompt missing the caveat instruction")
	}
	if strings.Contains(without, "partially match") {
		t.Error("caveat instruction present without the low-confidence flag")
	}
}
