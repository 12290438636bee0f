package store

// RoutingCandidate is a single example-question match produced by the router.
type RoutingCandidate struct {
	CollectionID  string  `json:"collection_id"`
	DocumentID    string  `json:"document_id"`
	ExampleID     string  `json:"example_id"`
	ExampleText   string  `json:"example_text"`
	Similarity    float64 `json:"similarity"`
	PriorityScore float64 `json:"priority_score"`
}

// ConfidenceLevel is the coarse trust band for the best routing candidate.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// RoutingResult is the outcome of one routing call.
// QueryVector is carried along so downstream stages (topic-shift checks,
// broad search) can reuse the embedding without calling the provider again.
type RoutingResult struct {
	BestCandidate *RoutingCandidate  `json:"best_candidate"`
	Candidates    []RoutingCandidate `json:"candidates"`
	Confidence    ConfidenceLevel    `json:"confidence"`
	IsAmbiguous   bool               `json:"is_ambiguous"`
	QueryVector   []float32          `json:"-"`
}

// RetrievedChunk is one passage returned by the vector index.
// RerankScore stays nil until the rerank stage has scored the chunk; ordering
// switches from Similarity to RerankScore once it is set.
type RetrievedChunk struct {
	ChunkID     string   `json:"chunk_id"`
	DocumentID  string   `json:"document_id"`
	ChunkIndex  int      `json:"chunk_index"`
	Content     string   `json:"content"`
	Similarity  float64  `json:"similarity"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

// ExpandedContext is the final retrieval output handed to the synthesizer.
type ExpandedContext struct {
	Nucleus          RetrievedChunk
	SupportingChunks []RetrievedChunk
	FullDocumentText string
	TotalCharLength  int
	SourceDocumentIDs []string
	LowConfidence    bool
}

// HardFilter scopes retrieval to a collection and optionally one document.
type HardFilter struct {
	CollectionID string
	DocumentID   string
}
