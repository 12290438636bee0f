package resolve

// OptionKind is the closed set of clarification option variants. Handlers
// switch on the kind exhaustively; there is no string-matched action name.
type OptionKind string

const (
	// OptionCollectionSelect narrows the dialogue to one collection.
	OptionCollectionSelect OptionKind = "collection_select"
	// OptionQuestionSelect picks a concrete example question.
	OptionQuestionSelect OptionKind = "question_select"
	// OptionManualInput is the "none of these, type your own" escape.
	OptionManualInput OptionKind = "manual_input"
)

// Option is one selectable choice presented to the user mid-clarification.
type Option struct {
	ID           string     `json:"id"`
	Label        string     `json:"label"`
	Kind         OptionKind `json:"kind"`
	CollectionID string     `json:"collection_id,omitempty"`
	DocumentID   string     `json:"document_id,omitempty"`
	ExampleID    string     `json:"example_id,omitempty"`
}

// Input is what the user sent back: a selected option, free text, or both
// (manual input carries the typed text alongside the escape option).
type Input struct {
	Selected *Option
	FreeText string
}
