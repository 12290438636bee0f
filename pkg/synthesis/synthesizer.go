package synthesis

import (
	"context"
	"errors"
	"fmt"

	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/pkg/llm"
	"procedure-qa-be/pkg/resilience"
	"procedure-qa-be/pkg/store"
)

// ErrGenerationUnavailable is a typed failure: the caller gets an honest
// "cannot answer right now", never a partial or fabricated answer.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// Answer is the synthesized response with its attribution.
type Answer struct {
	Text              string   `json:"text"`
	SourceDocumentIDs []string `json:"source_document_ids"`
	LowConfidence     bool     `json:"low_confidence"`
}

type Config struct {
	MaxContextChars int
	MaxAnswerTokens int
}

// Synthesizer turns an expanded context and a resolved query into a
// generation request and returns the model's answer.
type Synthesizer struct {
	provider llm.LLMProvider
	exec     *resilience.Executor
	log      logger.ILogger
	cfg      Config
}

func NewSynthesizer(provider llm.LLMProvider, exec *resilience.Executor, log logger.ILogger, cfg Config) *Synthesizer {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 16000
	}
	if cfg.MaxAnswerTokens <= 0 {
		cfg.MaxAnswerTokens = 1024
	}
	return &Synthesizer{
		provider: provider,
		exec:     exec,
		log:      log,
		cfg:      cfg,
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, resolvedQuery string, ec *store.ExpandedContext) (*Answer, error) {
	contextText := buildContext(ec, s.cfg.MaxContextChars)
	prompt := buildPrompt(resolvedQuery, contextText, ec.LowConfidence)

	var text string
	err := s.exec.Execute(ctx, "generate_answer", func(ctx context.Context) error {
		var genErr error
		text, genErr = s.provider.Generate(ctx, prompt,
			llm.WithTemperature(0.2),
			llm.WithMaxTokens(s.cfg.MaxAnswerTokens),
		)
		return genErr
	})
	if err != nil {
		s.log.Error("synthesis", "generation failed", map[string]interface{}{
			"error":        err.Error(),
			"circuit_open": resilience.IsCircuitOpen(err),
		})
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	return &Answer{
		Text:              text,
		SourceDocumentIDs: ec.SourceDocumentIDs,
		LowConfidence:     ec.LowConfidence,
	}, nil
}
