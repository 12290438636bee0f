package resolve

import (
	"testing"

	"procedure-qa-be/pkg/store"
)

func ambiguousResult() *store.RoutingResult {
	candidates := []store.RoutingCandidate{
		{CollectionID: "civil-status", DocumentID: "d1", ExampleID: "e1", ExampleText: "Register a death certificate", Similarity: 0.72},
		{CollectionID: "civil-status", DocumentID: "d2", ExampleID: "e2", ExampleText: "Register a birth certificate", Similarity: 0.70},
		{CollectionID: "residency", DocumentID: "d3", ExampleID: "e3", ExampleText: "Change permanent address", Similarity: 0.65},
	}
	return &store.RoutingResult{
		BestCandidate: &candidates[0],
		Candidates:    candidates,
		Confidence:    store.ConfidenceMedium,
		IsAmbiguous:   true,
	}
}

func optionByKind(t *testing.T, options []Option, kind OptionKind) *Option {
	t.Helper()
	for i := range options {
		if options[i].Kind == kind {
			return &options[i]
		}
	}
	t.Fatalf("no option of kind %s in %v", kind, options)
	return nil
}

func TestBegin_EmitsDistinctCollections(t *testing.T) {
	m := NewStateMachine(4, 4, 4)
	session := &store.Session{ID: "s1"}

	outcome := m.Begin(session, ambiguousResult(), "how do I register")

	if outcome.Kind != OutcomeAskCollection {
		t.Fatalf("Kind = %s, want %s", outcome.Kind, OutcomeAskCollection)
	}
	if session.Clarification == nil {
		t.Fatal("session.Clarification not set")
	}
	if session.Clarification.Stage != store.StageAwaitingCollection {
		t.Errorf("Stage = %s, want %s", session.Clarification.Stage, store.StageAwaitingCollection)
	}
	if session.Clarification.OriginalQuery != "how do I register" {
		t.Errorf("OriginalQuery = %q", session.Clarification.OriginalQuery)
	}

	var collections int
	for _, o := range outcome.Options {
		if o.Kind == OptionCollectionSelect {
			collections++
		}
	}
	// Two distinct collections plus one manual escape.
	if collections != 2 {
		t.Errorf("collection options = %d, want 2", collections)
	}
	if optionByKind(t, outcome.Options, OptionManualInput) == nil {
		t.Error("missing manual-input escape option")
	}
}

func TestFullCycle_ResolvesInTwoTurns(t *testing.T) {
	m := NewStateMachine(4, 4, 4)
	session := &store.Session{ID: "s1"}

	begin := m.Begin(session, ambiguousResult(), "how do I register")
	colOption := optionByKind(t, begin.Options, OptionCollectionSelect)

	// Turn 1: pick the collection.
	step1, err := m.Advance(session, Input{Selected: colOption})
	if err != nil {
		t.Fatalf("Advance() turn 1 error = %v", err)
	}
	if step1.Kind != OutcomeAskQuestion {
		t.Fatalf("turn 1 Kind = %s, want %s", step1.Kind, OutcomeAskQuestion)
	}
	if session.Clarification.Stage != store.StageAwaitingQuestion {
		t.Errorf("Stage = %s, want %s", session.Clarification.Stage, store.StageAwaitingQuestion)
	}

	// Options are restricted to the chosen collection.
	for _, o := range step1.Options {
		if o.Kind == OptionQuestionSelect && o.CollectionID != colOption.CollectionID {
			t.Errorf("question option leaked collection %s", o.CollectionID)
		}
	}

	// Turn 2: pick a concrete question.
	qOption := optionByKind(t, step1.Options, OptionQuestionSelect)
	step2, err := m.Advance(session, Input{Selected: qOption})
	if err != nil {
		t.Fatalf("Advance() turn 2 error = %v", err)
	}
	if step2.Kind != OutcomeResolved {
		t.Fatalf("turn 2 Kind = %s, want %s", step2.Kind, OutcomeResolved)
	}
	if step2.Forced {
		t.Error("Forced = true for a normal resolution")
	}
	if step2.ResolvedQuery == "" {
		t.Error("ResolvedQuery empty")
	}
	if step2.Filter.CollectionID != qOption.CollectionID {
		t.Errorf("Filter.CollectionID = %s, want %s", step2.Filter.CollectionID, qOption.CollectionID)
	}

	// Session flipped from clarifying to resolved.
	if session.Clarification != nil {
		t.Error("session.Clarification not cleared after resolution")
	}
	if session.RoutingContext == nil {
		t.Fatal("session.RoutingContext not set after resolution")
	}
	if session.RoutingContext.Confidence != store.ConfidenceHigh {
		t.Errorf("Confidence = %s, want HIGH", session.RoutingContext.Confidence)
	}
}

func TestAdvance_TurnCapForcesResolution(t *testing.T) {
	m := NewStateMachine(4, 4, 4)
	session := &store.Session{ID: "s1"}
	m.Begin(session, ambiguousResult(), "how do I register")

	// Burn three turns flip-flopping without ever answering.
	for i := 0; i < 3; i++ {
		outcome, err := m.Advance(session, Input{FreeText: "still unsure"})
		if err != nil {
			t.Fatalf("Advance() turn %d error = %v", i+1, err)
		}
		if outcome.Kind == OutcomeResolved {
			t.Fatalf("resolved prematurely on turn %d", i+1)
		}
		// Reroute outcomes would restart routing in the service; here the
		// dialogue state simply persists for the next turn.
	}

	// The 4th turn hits the cap and must force-resolve deterministically.
	outcome, err := m.Advance(session, Input{FreeText: "no idea"})
	if err != nil {
		t.Fatalf("Advance() capped turn error = %v", err)
	}
	if outcome.Kind != OutcomeResolved {
		t.Fatalf("Kind = %s, want %s after cap", outcome.Kind, OutcomeResolved)
	}
	if !outcome.Forced {
		t.Error("Forced = false, want true for cap-triggered resolution")
	}
	// Best stored candidate wins.
	if outcome.ResolvedQuery != "Register a death certificate" {
		t.Errorf("ResolvedQuery = %q, want best candidate text", outcome.ResolvedQuery)
	}
}

func TestAdvance_FreeTextAtCollectionStageReroutes(t *testing.T) {
	m := NewStateMachine(4, 4, 4)
	session := &store.Session{ID: "s1"}
	m.Begin(session, ambiguousResult(), "how do I register")

	outcome, err := m.Advance(session, Input{FreeText: "register my newborn"})
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if outcome.Kind != OutcomeReroute {
		t.Fatalf("Kind = %s, want %s", outcome.Kind, OutcomeReroute)
	}
	if outcome.RerouteQuery != "register my newborn" {
		t.Errorf("RerouteQuery = %q", outcome.RerouteQuery)
	}
	if outcome.PreferCollection != "" {
		t.Errorf("PreferCollection = %q, want empty at collection stage", outcome.PreferCollection)
	}
}

func TestAdvance_EscapeAtQuestionStageKeepsCollection(t *testing.T) {
	m := NewStateMachine(4, 4, 4)
	session := &store.Session{ID: "s1"}
	begin := m.Begin(session, ambiguousResult(), "how do I register")

	colOption := optionByKind(t, begin.Options, OptionCollectionSelect)
	step1, err := m.Advance(session, Input{Selected: colOption})
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	escape := optionByKind(t, step1.Options, OptionManualInput)
	outcome, err := m.Advance(session, Input{Selected: escape, FreeText: "something more specific"})
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if outcome.Kind != OutcomeReroute {
		t.Fatalf("Kind = %s, want %s", outcome.Kind, OutcomeReroute)
	}
	if outcome.PreferCollection != colOption.CollectionID {
		t.Errorf("PreferCollection = %q, want %q", outcome.PreferCollection, colOption.CollectionID)
	}
	if outcome.RerouteQuery != "something more specific" {
		t.Errorf("RerouteQuery = %q", outcome.RerouteQuery)
	}
}

func TestAdvance_InvalidOptionKindErrors(t *testing.T) {
	m := NewStateMachine(4, 4, 4)
	session := &store.Session{ID: "s1"}
	m.Begin(session, ambiguousResult(), "how do I register")

	// A question-select is not valid while awaiting a collection.
	_, err := m.Advance(session, Input{Selected: &Option{Kind: OptionQuestionSelect, ExampleID: "e1"}})
	if err == nil {
		t.Error("Advance() error = nil, want invalid-kind error")
	}
}

func TestForceResolve_NoCandidates(t *testing.T) {
	m := NewStateMachine(2, 4, 4)
	session := &store.Session{ID: "s1"}
	empty := &store.RoutingResult{Confidence: store.ConfidenceLow, IsAmbiguous: true}
	m.Begin(session, empty, "completely unknown topic")

	m.Advance(session, Input{FreeText: "still unknown"})
	outcome, err := m.Advance(session, Input{FreeText: "give up"})
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if outcome.Kind != OutcomeResolved || !outcome.Forced {
		t.Fatalf("Kind = %s Forced = %v, want forced resolution", outcome.Kind, outcome.Forced)
	}
	// With nothing to pin the query to, the original text goes unscoped.
	if outcome.ResolvedQuery != "completely unknown topic" {
		t.Errorf("ResolvedQuery = %q, want original query", outcome.ResolvedQuery)
	}
	if outcome.Filter.CollectionID != "" {
		t.Errorf("Filter.CollectionID = %q, want empty", outcome.Filter.CollectionID)
	}
}
