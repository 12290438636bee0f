package store

import "time"

// ClarificationStage is a discrete step in the narrowing dialogue.
type ClarificationStage string

const (
	StageAwaitingCollection ClarificationStage = "AWAITING_COLLECTION"
	StageAwaitingQuestion   ClarificationStage = "AWAITING_QUESTION"
	StageResolved           ClarificationStage = "RESOLVED"
)

// Turn is one completed query/answer exchange kept in session history.
type Turn struct {
	Query         string    `json:"query"`
	ResolvedQuery string    `json:"resolved_query"`
	AnswerSummary string    `json:"answer_summary"`
	Timestamp     time.Time `json:"timestamp"`
}

// RoutingContext is the resolved routing outcome of the last cycle.
type RoutingContext struct {
	CollectionID     string             `json:"collection_id"`
	DocumentID       string             `json:"document_id"`
	Confidence       ConfidenceLevel    `json:"confidence"`
	MatchedExampleID string             `json:"matched_example_id"`
	Candidates       []RoutingCandidate `json:"candidates,omitempty"`
}

// ClarificationState tracks a narrowing dialogue in progress.
// AccumulatedAnswers records what the user has pinned down so far
// (collection first, then a specific example).
type ClarificationState struct {
	Stage              ClarificationStage `json:"stage"`
	OriginalQuery      string             `json:"original_query"`
	Candidates         []RoutingCandidate `json:"candidates"`
	ChosenCollectionID string             `json:"chosen_collection_id,omitempty"`
	AccumulatedAnswers []string           `json:"accumulated_answers,omitempty"`
	TurnsUsed          int                `json:"turns_used"`
}

// Session is the per-conversation state owned by the session store.
// RoutingContext and Clarification are mutually exclusive outcomes of a
// resolution cycle: a session is never resolved and mid-clarification at once.
type Session struct {
	ID           string            `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
	TurnCount    int               `json:"turn_count"`
	History      []Turn            `json:"history"`

	RoutingContext *RoutingContext     `json:"routing_context,omitempty"`
	Clarification  *ClarificationState `json:"clarification,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy. Stores hand out clones so a snapshot held by
// one request never shares mutable state with another.
func (s *Session) Clone() *Session {
	c := *s
	c.History = append([]Turn(nil), s.History...)
	if s.RoutingContext != nil {
		rc := *s.RoutingContext
		rc.Candidates = append([]RoutingCandidate(nil), s.RoutingContext.Candidates...)
		c.RoutingContext = &rc
	}
	if s.Clarification != nil {
		cs := *s.Clarification
		cs.Candidates = append([]RoutingCandidate(nil), s.Clarification.Candidates...)
		cs.AccumulatedAnswers = append([]string(nil), s.Clarification.AccumulatedAnswers...)
		c.Clarification = &cs
	}
	if s.Metadata != nil {
		m := make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			m[k] = v
		}
		c.Metadata = m
	}
	return &c
}

// SetResolved installs a routing context and clears any pending clarification.
func (s *Session) SetResolved(rc *RoutingContext) {
	s.RoutingContext = rc
	s.Clarification = nil
}

// SetClarifying installs a clarification state and clears prior routing context.
func (s *Session) SetClarifying(cs *ClarificationState) {
	s.Clarification = cs
	s.RoutingContext = nil
}
