package resolve

import (
	"fmt"

	"procedure-qa-be/pkg/store"
)

// OutcomeKind labels what the state machine wants to happen next.
type OutcomeKind string

const (
	// OutcomeAskCollection presents collection choices to the user.
	OutcomeAskCollection OutcomeKind = "ask_collection"
	// OutcomeAskQuestion presents concrete example questions.
	OutcomeAskQuestion OutcomeKind = "ask_question"
	// OutcomeResolved means the dialogue produced a retrievable query.
	OutcomeResolved OutcomeKind = "resolved"
	// OutcomeReroute means the user typed free text and routing must run
	// again from scratch. The machine never calls the router itself.
	OutcomeReroute OutcomeKind = "reroute"
)

// Outcome is the result of one state machine step.
type Outcome struct {
	Kind    OutcomeKind
	Stage   store.ClarificationStage
	Options []Option

	// Set when Kind == OutcomeResolved.
	ResolvedQuery  string
	Filter         store.HardFilter
	RoutingContext *store.RoutingContext
	Forced         bool

	// Set when Kind == OutcomeReroute.
	RerouteQuery     string
	PreferCollection string
}

// StateMachine drives the narrowing dialogue: collection first, then a
// concrete example question. It reads and writes session.Clarification
// but never touches the store or the router directly.
type StateMachine struct {
	turnCap        int
	maxCollections int
	maxQuestions   int
}

func NewStateMachine(turnCap, maxCollections, maxQuestions int) *StateMachine {
	if turnCap <= 0 {
		turnCap = 4
	}
	if maxCollections <= 0 {
		maxCollections = 4
	}
	if maxQuestions <= 0 {
		maxQuestions = 4
	}
	return &StateMachine{
		turnCap:        turnCap,
		maxCollections: maxCollections,
		maxQuestions:   maxQuestions,
	}
}

// Begin opens a clarification dialogue from an ambiguous routing result.
// With no candidates at all (empty routing cache) there is nothing to
// offer, so the user is asked to rephrase via a bare manual-input option.
func (m *StateMachine) Begin(session *store.Session, result *store.RoutingResult, originalQuery string) Outcome {
	cs := &store.ClarificationState{
		Stage:         store.StageAwaitingCollection,
		OriginalQuery: originalQuery,
		Candidates:    result.Candidates,
	}
	session.SetClarifying(cs)

	return Outcome{
		Kind:    OutcomeAskCollection,
		Stage:   store.StageAwaitingCollection,
		Options: m.collectionOptions(cs.Candidates),
	}
}

// Advance consumes one user reply. Exceeding the turn cap forces a
// resolution with the best available candidate instead of looping.
func (m *StateMachine) Advance(session *store.Session, input Input) (Outcome, error) {
	cs := session.Clarification
	if cs == nil {
		return Outcome{}, fmt.Errorf("no clarification in progress")
	}

	cs.TurnsUsed++
	if cs.TurnsUsed >= m.turnCap {
		return m.forceResolve(session), nil
	}

	switch cs.Stage {
	case store.StageAwaitingCollection:
		return m.advanceAwaitingCollection(session, cs, input)
	case store.StageAwaitingQuestion:
		return m.advanceAwaitingQuestion(session, cs, input)
	default:
		return Outcome{}, fmt.Errorf("unexpected clarification stage %q", cs.Stage)
	}
}

func (m *StateMachine) advanceAwaitingCollection(session *store.Session, cs *store.ClarificationState, input Input) (Outcome, error) {
	if input.Selected == nil {
		// Free text replaces the original query and restarts routing.
		return Outcome{
			Kind:         OutcomeReroute,
			RerouteQuery: input.FreeText,
		}, nil
	}

	switch input.Selected.Kind {
	case OptionCollectionSelect:
		cs.ChosenCollectionID = input.Selected.CollectionID
		cs.AccumulatedAnswers = append(cs.AccumulatedAnswers, input.Selected.CollectionID)
		cs.Stage = store.StageAwaitingQuestion

		return Outcome{
			Kind:    OutcomeAskQuestion,
			Stage:   store.StageAwaitingQuestion,
			Options: m.questionOptions(cs),
		}, nil

	case OptionManualInput:
		return Outcome{
			Kind:         OutcomeReroute,
			RerouteQuery: m.freeTextOr(input, cs.OriginalQuery),
		}, nil

	default:
		return Outcome{}, fmt.Errorf("option kind %q not valid while awaiting a collection", input.Selected.Kind)
	}
}

func (m *StateMachine) advanceAwaitingQuestion(session *store.Session, cs *store.ClarificationState, input Input) (Outcome, error) {
	if input.Selected == nil {
		// Free text mid-question keeps the chosen collection as a scope hint.
		return Outcome{
			Kind:             OutcomeReroute,
			RerouteQuery:     input.FreeText,
			PreferCollection: cs.ChosenCollectionID,
		}, nil
	}

	switch input.Selected.Kind {
	case OptionQuestionSelect:
		candidate := m.candidateByExampleID(cs, input.Selected.ExampleID)
		if candidate == nil {
			return Outcome{}, fmt.Errorf("selected example %q is not among the stored candidates", input.Selected.ExampleID)
		}
		return m.resolveWith(session, cs, candidate, false), nil

	case OptionManualInput:
		return Outcome{
			Kind:             OutcomeReroute,
			RerouteQuery:     m.freeTextOr(input, cs.OriginalQuery),
			PreferCollection: cs.ChosenCollectionID,
		}, nil

	default:
		return Outcome{}, fmt.Errorf("option kind %q not valid while awaiting a question", input.Selected.Kind)
	}
}

// forceResolve ends a dialogue that ran out of turns. The best stored
// candidate wins; with none, the original query goes to retrieval unscoped.
func (m *StateMachine) forceResolve(session *store.Session) Outcome {
	cs := session.Clarification

	var best *store.RoutingCandidate
	for i := range cs.Candidates {
		c := &cs.Candidates[i]
		if cs.ChosenCollectionID != "" && c.CollectionID != cs.ChosenCollectionID {
			continue
		}
		best = c
		break
	}
	if best == nil && len(cs.Candidates) > 0 {
		best = &cs.Candidates[0]
	}

	if best == nil {
		session.SetResolved(&store.RoutingContext{
			Confidence: store.ConfidenceLow,
		})
		return Outcome{
			Kind:          OutcomeResolved,
			Stage:         store.StageResolved,
			ResolvedQuery: cs.OriginalQuery,
			Forced:        true,
		}
	}

	outcome := m.resolveWith(session, cs, best, true)
	return outcome
}

// resolveWith finalizes the dialogue on one candidate. The canonical
// example text becomes the resolved query and its collection and document
// become the retrieval hard filter.
func (m *StateMachine) resolveWith(session *store.Session, cs *store.ClarificationState, candidate *store.RoutingCandidate, forced bool) Outcome {
	confidence := store.ConfidenceHigh
	if forced {
		confidence = store.ConfidenceMedium
	}

	rc := &store.RoutingContext{
		CollectionID:     candidate.CollectionID,
		DocumentID:       candidate.DocumentID,
		Confidence:       confidence,
		MatchedExampleID: candidate.ExampleID,
	}
	session.SetResolved(rc)

	return Outcome{
		Kind:          OutcomeResolved,
		Stage:         store.StageResolved,
		ResolvedQuery: candidate.ExampleText,
		Filter: store.HardFilter{
			CollectionID: candidate.CollectionID,
			DocumentID:   candidate.DocumentID,
		},
		RoutingContext: rc,
		Forced:         forced,
	}
}

// collectionOptions lists the distinct collections of the candidate set in
// similarity order, capped at maxCollections, plus the manual escape.
func (m *StateMachine) collectionOptions(candidates []store.RoutingCandidate) []Option {
	seen := make(map[string]bool)
	var options []Option
	for _, c := range candidates {
		if seen[c.CollectionID] {
			continue
		}
		seen[c.CollectionID] = true
		options = append(options, Option{
			ID:           fmt.Sprintf("col-%d", len(options)+1),
			Label:        c.CollectionID,
			Kind:         OptionCollectionSelect,
			CollectionID: c.CollectionID,
		})
		if len(options) == m.maxCollections {
			break
		}
	}

	options = append(options, manualInputOption(len(options) + 1))
	return options
}

// questionOptions re-ranks the stored candidates restricted to the chosen
// collection. Candidates already carry their similarity to the original
// query, so the stored order is the ranking; no re-embedding happens here.
func (m *StateMachine) questionOptions(cs *store.ClarificationState) []Option {
	var options []Option
	for _, c := range cs.Candidates {
		if c.CollectionID != cs.ChosenCollectionID {
			continue
		}
		options = append(options, Option{
			ID:           fmt.Sprintf("q-%d", len(options)+1),
			Label:        c.ExampleText,
			Kind:         OptionQuestionSelect,
			CollectionID: c.CollectionID,
			DocumentID:   c.DocumentID,
			ExampleID:    c.ExampleID,
		})
		if len(options) == m.maxQuestions {
			break
		}
	}

	options = append(options, manualInputOption(len(options) + 1))
	return options
}

func (m *StateMachine) candidateByExampleID(cs *store.ClarificationState, exampleID string) *store.RoutingCandidate {
	for i := range cs.Candidates {
		if cs.Candidates[i].ExampleID == exampleID {
			return &cs.Candidates[i]
		}
	}
	return nil
}

func (m *StateMachine) freeTextOr(input Input, fallback string) string {
	if input.FreeText != "" {
		return input.FreeText
	}
	return fallback
}

func manualInputOption(position int) Option {
	return Option{
		ID:    fmt.Sprintf("manual-%d", position),
		Label: "None of these, let me rephrase",
		Kind:  OptionManualInput,
	}
}
