package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"procedure-qa-be/internal/dto"
	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/internal/repository/contract"
	"procedure-qa-be/pkg/events"
	"procedure-qa-be/pkg/resolve"
	"procedure-qa-be/pkg/retrieval"
	"procedure-qa-be/pkg/router"
	"procedure-qa-be/pkg/store"
	"procedure-qa-be/pkg/synthesis"

	"github.com/google/uuid"
)

// EventPublisher is the audit bus contract; a nil publisher disables auditing.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IResolutionService interface {
	ResolveQuery(ctx context.Context, req *dto.ResolveQueryRequest) (*dto.ResolutionResponse, error)
	SubmitClarification(ctx context.Context, req *dto.SubmitClarificationRequest) (*dto.ResolutionResponse, error)
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	GetSessionSummary(ctx context.Context, sessionID string) (*dto.SessionSummaryResponse, error)
	ResetSession(ctx context.Context, sessionID string) (*dto.ResetSessionResponse, error)
}

// ResolutionService orchestrates one resolution cycle: routing, the
// clarification decision, retrieval, and synthesis. All state lives in the
// session store; the service itself is stateless across requests.
type ResolutionService struct {
	router      *router.Router
	resolver    *resolve.AmbiguityResolver
	machine     *resolve.StateMachine
	pipeline    *retrieval.Pipeline
	synthesizer *synthesis.Synthesizer
	sessions    contract.SessionStore
	publisher   EventPublisher
	log         logger.ILogger
	trace       logger.ILogger
	callTimeout time.Duration
}

func NewResolutionService(
	qrouter *router.Router,
	resolver *resolve.AmbiguityResolver,
	machine *resolve.StateMachine,
	pipeline *retrieval.Pipeline,
	synthesizer *synthesis.Synthesizer,
	sessions contract.SessionStore,
	publisher EventPublisher,
	log logger.ILogger,
	trace logger.ILogger,
	callTimeout time.Duration,
) IResolutionService {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &ResolutionService{
		router:      qrouter,
		resolver:    resolver,
		machine:     machine,
		pipeline:    pipeline,
		synthesizer: synthesizer,
		sessions:    sessions,
		publisher:   publisher,
		log:         log,
		trace:       trace,
		callTimeout: callTimeout,
	}
}

func (s *ResolutionService) ResolveQuery(ctx context.Context, req *dto.ResolveQueryRequest) (*dto.ResolutionResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var resp *dto.ResolutionResponse
	err := s.withSession(ctx, sessionID, func(session *store.Session) error {
		var err error
		resp, err = s.routeAndRespond(ctx, session, req.Query, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// routeAndRespond runs one routing pass and either answers directly or
// opens a clarification dialogue. preferCollection biases candidate order
// after a mid-clarification free-text restart; it is a soft preference.
func (s *ResolutionService) routeAndRespond(ctx context.Context, session *store.Session, query string, preferCollection string) (*dto.ResolutionResponse, error) {
	routeCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	result, err := s.router.Route(routeCtx, query)
	if err != nil {
		s.log.Error("resolution", "routing failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return dto.NewErrorResponse(session.ID, dto.ErrorKindRoutingUnavailable), nil
	}

	if preferCollection != "" {
		result.Candidates = preferCandidates(result.Candidates, preferCollection)
		if len(result.Candidates) > 0 {
			result.BestCandidate = &result.Candidates[0]
		}
	}

	s.trace.Info("resolution", "query routed", map[string]interface{}{
		"session_id":   session.ID,
		"confidence":   string(result.Confidence),
		"is_ambiguous": result.IsAmbiguous,
		"candidates":   len(result.Candidates),
	})

	if s.resolver.ShouldClarify(result, session) {
		// Carry turns already burned across the restart so a free-text
		// loop cannot dodge the cap.
		var carried int
		if session.Clarification != nil {
			carried = session.Clarification.TurnsUsed
		}

		outcome := s.machine.Begin(session, result, query)
		session.Clarification.TurnsUsed = carried

		s.publish(ctx, events.NewClarificationStartedEvent(session.ID, string(outcome.Stage), len(outcome.Options)))
		return dto.NewClarificationResponse(session.ID, string(outcome.Stage), outcome.Options), nil
	}

	best := result.BestCandidate
	session.SetResolved(&store.RoutingContext{
		CollectionID:     best.CollectionID,
		DocumentID:       best.DocumentID,
		Confidence:       result.Confidence,
		MatchedExampleID: best.ExampleID,
	})

	filter := store.HardFilter{CollectionID: best.CollectionID}
	return s.retrieveAndAnswer(ctx, session, query, query, result.QueryVector, filter)
}

func (s *ResolutionService) SubmitClarification(ctx context.Context, req *dto.SubmitClarificationRequest) (*dto.ResolutionResponse, error) {
	var resp *dto.ResolutionResponse
	err := s.sessions.Update(ctx, req.SessionID, func(session *store.Session) error {
		var err error
		resp, err = s.advanceClarification(ctx, session, req)
		return err
	})
	if errors.Is(err, contract.ErrSessionNotFound) {
		// Expired or unknown: the pending dialogue is gone. Free text can
		// still start over as a fresh query.
		if req.FreeText != "" {
			return s.ResolveQuery(ctx, &dto.ResolveQueryRequest{Query: req.FreeText, SessionID: req.SessionID})
		}
		return dto.NewErrorResponse(req.SessionID, dto.ErrorKindNoClarificationPending), nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// advanceClarification handles one clarification reply. It runs inside the
// store's Update, so the session is exclusively ours until the return.
func (s *ResolutionService) advanceClarification(ctx context.Context, session *store.Session, req *dto.SubmitClarificationRequest) (*dto.ResolutionResponse, error) {
	if session.Clarification == nil {
		if req.FreeText != "" {
			return s.routeAndRespond(ctx, session, req.FreeText, "")
		}
		return dto.NewErrorResponse(session.ID, dto.ErrorKindNoClarificationPending), nil
	}

	outcome, err := s.machine.Advance(session, resolve.Input{
		Selected: req.Selected,
		FreeText: req.FreeText,
	})
	if err != nil {
		s.log.Warn("resolution", "clarification input rejected", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return nil, err
	}

	switch outcome.Kind {
	case resolve.OutcomeAskQuestion:
		return dto.NewClarificationResponse(session.ID, string(outcome.Stage), outcome.Options), nil

	case resolve.OutcomeReroute:
		return s.routeAndRespond(ctx, session, outcome.RerouteQuery, outcome.PreferCollection)

	case resolve.OutcomeResolved:
		if outcome.Forced {
			s.publish(ctx, events.NewClarificationForcedEvent(session.ID, session.TurnCount))
			s.trace.Warn("resolution", "clarification turn cap reached, forcing resolution", map[string]interface{}{
				"session_id": session.ID,
			})
		}
		vector := s.vectorForResolvedQuery(ctx, session, outcome.ResolvedQuery)
		if vector == nil {
			return dto.NewErrorResponse(session.ID, dto.ErrorKindRoutingUnavailable), nil
		}
		return s.retrieveAndAnswer(ctx, session, outcome.ResolvedQuery, outcome.ResolvedQuery, vector, outcome.Filter)

	default:
		return dto.NewErrorResponse(session.ID, dto.ErrorKindInternal), nil
	}
}

// retrieveAndAnswer runs the retrieval pipeline and synthesis, records the
// turn, and maps each failure mode to its response variant.
func (s *ResolutionService) retrieveAndAnswer(ctx context.Context, session *store.Session, originalQuery, resolvedQuery string, queryVector []float32, filter store.HardFilter) (*dto.ResolutionResponse, error) {
	retrieveCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	result, err := s.pipeline.Retrieve(retrieveCtx, resolvedQuery, queryVector, filter)
	if err != nil {
		s.log.Error("resolution", "retrieval failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		if errors.Is(err, retrieval.ErrIndexUnavailable) {
			return dto.NewErrorResponse(session.ID, dto.ErrorKindIndexUnavailable), nil
		}
		return dto.NewErrorResponse(session.ID, dto.ErrorKindInternal), nil
	}

	s.trace.Info("resolution", "retrieval finished", map[string]interface{}{
		"session_id": session.ID,
		"stages":     result.Stages,
	})

	if result.Context == nil {
		return dto.NewNoResultsResponse(session.ID), nil
	}

	synthCtx, cancel2 := context.WithTimeout(ctx, s.callTimeout)
	defer cancel2()

	answer, err := s.synthesizer.Synthesize(synthCtx, resolvedQuery, result.Context)
	if err != nil {
		s.log.Error("resolution", "synthesis failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return dto.NewErrorResponse(session.ID, dto.ErrorKindGenerationUnavailable), nil
	}

	session.TurnCount++
	session.History = append(session.History, store.Turn{
		Query:         originalQuery,
		ResolvedQuery: resolvedQuery,
		AnswerSummary: summarize(answer.Text, 200),
		Timestamp:     time.Now(),
	})

	if session.RoutingContext != nil {
		s.publish(ctx, events.NewQueryResolvedEvent(
			session.ID,
			session.RoutingContext.CollectionID,
			session.RoutingContext.DocumentID,
			string(session.RoutingContext.Confidence),
			result.Degraded(),
		))
	}

	return dto.NewAnswerResponse(session.ID, answer.Text, answer.SourceDocumentIDs, answer.LowConfidence, result.Degraded()), nil
}

func (s *ResolutionService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	session := newSession(uuid.NewString())
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{SessionID: session.ID}, nil
}

func (s *ResolutionService) GetSessionSummary(ctx context.Context, sessionID string) (*dto.SessionSummaryResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, contract.ErrSessionNotFound) {
			return &dto.SessionSummaryResponse{SessionID: sessionID}, nil
		}
		return nil, err
	}

	summary := &dto.SessionSummaryResponse{
		SessionID:        session.ID,
		HasActiveContext: session.RoutingContext != nil,
		TurnCount:        session.TurnCount,
		AgeSeconds:       int64(time.Since(session.CreatedAt).Seconds()),
	}
	if session.RoutingContext != nil {
		summary.CurrentCollection = session.RoutingContext.CollectionID
	}
	return summary, nil
}

func (s *ResolutionService) ResetSession(ctx context.Context, sessionID string) (*dto.ResetSessionResponse, error) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewSessionResetEvent(sessionID))
	return &dto.ResetSessionResponse{SessionID: sessionID, Reset: true}, nil
}

// withSession runs fn through the store's Update so every read-modify-write
// on one session id is serialized. Unknown and expired ids become a fresh
// session under the same id, so the client's handle stays valid.
func (s *ResolutionService) withSession(ctx context.Context, sessionID string, fn func(*store.Session) error) error {
	err := s.sessions.Update(ctx, sessionID, fn)
	if !errors.Is(err, contract.ErrSessionNotFound) {
		return err
	}
	if err := s.sessions.Add(ctx, newSession(sessionID)); err != nil {
		return err
	}
	return s.sessions.Update(ctx, sessionID, fn)
}

// vectorForResolvedQuery reuses the cached example vector when the
// resolved query is a canonical example; otherwise it routes once more
// just for the embedding.
func (s *ResolutionService) vectorForResolvedQuery(ctx context.Context, session *store.Session, resolvedQuery string) []float32 {
	if session.RoutingContext != nil && session.RoutingContext.MatchedExampleID != "" {
		if entry := s.router.Cache().EntryByID(session.RoutingContext.MatchedExampleID); entry != nil {
			return entry.Vector
		}
	}

	routeCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	result, err := s.router.Route(routeCtx, resolvedQuery)
	if err != nil {
		return nil
	}
	return result.QueryVector
}

func (s *ResolutionService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("resolution", "event publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func newSession(id string) *store.Session {
	return &store.Session{
		ID:        id,
		CreatedAt: time.Now(),
	}
}

// preferCandidates moves candidates of the preferred collection to the
// front without dropping the rest.
func preferCandidates(candidates []store.RoutingCandidate, collectionID string) []store.RoutingCandidate {
	preferred := make([]store.RoutingCandidate, 0, len(candidates))
	var rest []store.RoutingCandidate
	for _, c := range candidates {
		if c.CollectionID == collectionID {
			preferred = append(preferred, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(preferred, rest...)
}

func summarize(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
