package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"procedure-qa-be/internal/dto"
	"procedure-qa-be/internal/repository/memory"
	"procedure-qa-be/pkg/llm"
	"procedure-qa-be/pkg/rerank"
	"procedure-qa-be/pkg/resilience"
	"procedure-qa-be/pkg/resolve"
	"procedure-qa-be/pkg/retrieval"
	"procedure-qa-be/pkg/router"
	"procedure-qa-be/pkg/store"
	"procedure-qa-be/pkg/synthesis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The whole resolution cycle runs here against in-memory collaborators:
// a canned embedder, a deterministic reranker, fake chunk storage, and a
// fixed-answer model. Only the HTTP layer and Postgres are out of frame.

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type cannedEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func (e *cannedEmbedder) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.fallback, nil
}

type fixedSearcher struct {
	chunks    []store.RetrievedChunk
	neighbors []store.RetrievedChunk
}

func (s *fixedSearcher) SearchSimilar(ctx context.Context, vector []float32, k int, floor float64, scope store.HardFilter) ([]store.RetrievedChunk, error) {
	return s.chunks, nil
}

func (s *fixedSearcher) Neighbors(ctx context.Context, documentID string, centerIndex, window int) ([]store.RetrievedChunk, error) {
	return s.neighbors, nil
}

type fixedLoader struct{}

func (fixedLoader) LoadDocument(ctx context.Context, documentID string) (string, error) {
	return "", errors.New("not used")
}

// orderReranker keeps the incoming order with descending scores, so
// nucleus selection is deterministic.
type orderReranker struct{}

func (orderReranker) Rerank(ctx context.Context, query string, documents []string) ([]rerank.Result, error) {
	results := make([]rerank.Result, len(documents))
	for i := range documents {
		results[i] = rerank.Result{Index: i, Score: 0.9 - float64(i)*0.1}
	}
	return results, nil
}

type fixedLLM struct {
	answer string
}

func (l *fixedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return l.answer, nil
}

func (l *fixedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return l.answer, nil
}

func newTestService(t *testing.T, embedder *cannedEmbedder) IResolutionService {
	t.Helper()

	cache := router.NewCache([]router.CacheEntry{
		{ExampleID: "e1", CollectionID: "civil-status", DocumentID: "11111111-1111-1111-1111-111111111111", Question: "How do I register a birth certificate", Vector: []float32{1, 0, 0}},
		{ExampleID: "e2", CollectionID: "business", DocumentID: "22222222-2222-2222-2222-222222222222", Question: "How do I register a sole proprietorship", Vector: []float32{0, 1, 0}},
		{ExampleID: "e3", CollectionID: "civil-status", DocumentID: "33333333-3333-3333-3333-333333333333", Question: "How do I register a death certificate", Vector: []float32{0, 0, 1}},
	})

	log := nopLogger{}
	exec := resilience.NewExecutor(resilience.Config{}, log)

	queryRouter := router.NewRouter(cache, embedder, exec, log, router.Config{
		TopK:          5,
		HighThreshold: 0.80,
		LowThreshold:  0.55,
		TieEpsilon:    0.03,
	})

	searcher := &fixedSearcher{
		chunks: []store.RetrievedChunk{
			{ChunkID: "c1", DocumentID: "11111111-1111-1111-1111-111111111111", ChunkIndex: 2, Content: "Bring the hospital record to the registry office.", Similarity: 0.8},
			{ChunkID: "c2", DocumentID: "11111111-1111-1111-1111-111111111111", ChunkIndex: 5, Content: "Fees are waived within sixty days.", Similarity: 0.6},
		},
		neighbors: []store.RetrievedChunk{
			{ChunkID: "c0", DocumentID: "11111111-1111-1111-1111-111111111111", ChunkIndex: 1, Content: "Registration of births."},
			{ChunkID: "c1", DocumentID: "11111111-1111-1111-1111-111111111111", ChunkIndex: 2, Content: "Bring the hospital record to the registry office."},
		},
	}

	pipeline := retrieval.NewPipeline(searcher, fixedLoader{}, orderReranker{}, exec, log, retrieval.Config{
		BroadK:          20,
		BroadFloor:      0.30,
		NucleusFloor:    0.35,
		ExpansionWindow: 2,
	})

	synthesizer := synthesis.NewSynthesizer(&fixedLLM{answer: "Take the hospital record to the registry office within sixty days."}, exec, log, synthesis.Config{})

	return NewResolutionService(
		queryRouter,
		resolve.NewAmbiguityResolver(queryRouter, 0.40),
		resolve.NewStateMachine(4, 4, 4),
		pipeline,
		synthesizer,
		memory.NewSessionStore(time.Minute),
		nil,
		log,
		log,
		5*time.Second,
	)
}

func TestResolveQueryHighConfidenceAnswers(t *testing.T) {
	embedder := &cannedEmbedder{
		vectors: map[string][]float32{
			"register a birth": {0.995, 0.05, 0},
		},
	}
	svc := newTestService(t, embedder)

	resp, err := svc.ResolveQuery(context.Background(), &dto.ResolveQueryRequest{Query: "register a birth"})
	require.NoError(t, err)

	assert.Equal(t, dto.ResolutionAnswer, resp.Type)
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Answer, "registry office")
	assert.Equal(t, []string{"11111111-1111-1111-1111-111111111111"}, resp.SourceDocumentIDs)
	assert.False(t, resp.Degraded)

	summary, err := svc.GetSessionSummary(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.True(t, summary.HasActiveContext)
	assert.Equal(t, "civil-status", summary.CurrentCollection)
	assert.Equal(t, 1, summary.TurnCount)
}

func TestAmbiguousQueryRunsClarificationToAnswer(t *testing.T) {
	embedder := &cannedEmbedder{
		vectors: map[string][]float32{
			"registration papers": {0.69, 0.7, 0.1},
		},
	}
	svc := newTestService(t, embedder)

	resp, err := svc.ResolveQuery(context.Background(), &dto.ResolveQueryRequest{Query: "registration papers"})
	require.NoError(t, err)
	require.Equal(t, dto.ResolutionClarification, resp.Type)
	assert.Equal(t, string(store.StageAwaitingCollection), resp.Stage)

	var collectionChoice *resolve.Option
	for i := range resp.Options {
		if resp.Options[i].Kind == resolve.OptionCollectionSelect && resp.Options[i].CollectionID == "civil-status" {
			collectionChoice = &resp.Options[i]
		}
	}
	require.NotNil(t, collectionChoice, "expected a civil-status collection option")

	resp, err = svc.SubmitClarification(context.Background(), &dto.SubmitClarificationRequest{
		SessionID: resp.SessionID,
		Selected:  collectionChoice,
	})
	require.NoError(t, err)
	require.Equal(t, dto.ResolutionClarification, resp.Type)
	assert.Equal(t, string(store.StageAwaitingQuestion), resp.Stage)

	var questionChoice *resolve.Option
	for i := range resp.Options {
		if resp.Options[i].Kind == resolve.OptionQuestionSelect && resp.Options[i].ExampleID == "e1" {
			questionChoice = &resp.Options[i]
		}
	}
	require.NotNil(t, questionChoice, "expected the birth-certificate example option")

	resp, err = svc.SubmitClarification(context.Background(), &dto.SubmitClarificationRequest{
		SessionID: resp.SessionID,
		Selected:  questionChoice,
	})
	require.NoError(t, err)
	assert.Equal(t, dto.ResolutionAnswer, resp.Type)
	assert.Contains(t, resp.Answer, "registry office")

	summary, err := svc.GetSessionSummary(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.True(t, summary.HasActiveContext)
	assert.Equal(t, "civil-status", summary.CurrentCollection)
}

func TestEmbeddingOutageReturnsTypedError(t *testing.T) {
	embedder := &cannedEmbedder{err: errors.New("connection refused")}
	svc := newTestService(t, embedder)

	resp, err := svc.ResolveQuery(context.Background(), &dto.ResolveQueryRequest{Query: "register a birth"})
	require.NoError(t, err)
	assert.Equal(t, dto.ResolutionError, resp.Type)
	assert.Equal(t, dto.ErrorKindRoutingUnavailable, resp.ErrorKind)
}

func TestClarificationWithoutPendingDialogue(t *testing.T) {
	embedder := &cannedEmbedder{fallback: []float32{1, 0, 0}}
	svc := newTestService(t, embedder)

	resp, err := svc.SubmitClarification(context.Background(), &dto.SubmitClarificationRequest{
		SessionID: "never-created",
	})
	require.NoError(t, err)
	assert.Equal(t, dto.ResolutionError, resp.Type)
	assert.Equal(t, dto.ErrorKindNoClarificationPending, resp.ErrorKind)
}

func TestConcurrentQueriesOnOneSessionSerialize(t *testing.T) {
	embedder := &cannedEmbedder{fallback: []float32{0.995, 0.05, 0}}
	svc := newTestService(t, embedder)

	created, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			resp, err := svc.ResolveQuery(context.Background(), &dto.ResolveQueryRequest{
				Query:     "register a birth",
				SessionID: created.SessionID,
			})
			assert.NoError(t, err)
			assert.Equal(t, dto.ResolutionAnswer, resp.Type)
		}()
	}
	wg.Wait()

	// Every turn must survive; interleaved read-modify-write would lose some.
	summary, err := svc.GetSessionSummary(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, workers, summary.TurnCount)
}

func TestSessionResetClearsContext(t *testing.T) {
	embedder := &cannedEmbedder{
		vectors: map[string][]float32{
			"register a birth": {0.995, 0.05, 0},
		},
	}
	svc := newTestService(t, embedder)

	resp, err := svc.ResolveQuery(context.Background(), &dto.ResolveQueryRequest{Query: "register a birth"})
	require.NoError(t, err)
	require.Equal(t, dto.ResolutionAnswer, resp.Type)

	reset, err := svc.ResetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.True(t, reset.Reset)

	summary, err := svc.GetSessionSummary(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.False(t, summary.HasActiveContext)
	assert.Equal(t, 0, summary.TurnCount)
}
