package dto

import (
	"procedure-qa-be/pkg/resolve"
)

type ResolveQueryRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionID string `json:"session_id"`
}

type SubmitClarificationRequest struct {
	SessionID string          `json:"session_id" validate:"required"`
	Selected  *resolve.Option `json:"selected,omitempty"`
	FreeText  string          `json:"free_text,omitempty"`
}

// ResolutionType discriminates the response union.
type ResolutionType string

const (
	ResolutionAnswer        ResolutionType = "answer"
	ResolutionClarification ResolutionType = "clarification"
	ResolutionNoResults     ResolutionType = "no_results"
	ResolutionError         ResolutionType = "error"
)

// Machine-readable error kinds for the "error" variant.
const (
	ErrorKindRoutingUnavailable     = "routing_unavailable"
	ErrorKindIndexUnavailable       = "index_unavailable"
	ErrorKindGenerationUnavailable  = "generation_unavailable"
	ErrorKindNoClarificationPending = "no_clarification_pending"
	ErrorKindInternal               = "internal"
)

// ResolutionResponse is a tagged union. Type selects which field group is
// populated; the others stay at their zero values and are omitted.
type ResolutionResponse struct {
	Type      ResolutionType `json:"type"`
	SessionID string         `json:"session_id"`

	// Type == "answer"
	Answer            string   `json:"answer,omitempty"`
	SourceDocumentIDs []string `json:"source_document_ids,omitempty"`
	LowConfidence     bool     `json:"low_confidence,omitempty"`
	Degraded          bool     `json:"degraded,omitempty"`

	// Type == "clarification"
	Stage   string           `json:"stage,omitempty"`
	Options []resolve.Option `json:"options,omitempty"`

	// Type == "error"
	ErrorKind string `json:"error_kind,omitempty"`
}

func NewAnswerResponse(sessionID, answer string, sources []string, lowConfidence, degraded bool) *ResolutionResponse {
	return &ResolutionResponse{
		Type:              ResolutionAnswer,
		SessionID:         sessionID,
		Answer:            answer,
		SourceDocumentIDs: sources,
		LowConfidence:     lowConfidence,
		Degraded:          degraded,
	}
}

func NewClarificationResponse(sessionID, stage string, options []resolve.Option) *ResolutionResponse {
	return &ResolutionResponse{
		Type:      ResolutionClarification,
		SessionID: sessionID,
		Stage:     stage,
		Options:   options,
	}
}

func NewNoResultsResponse(sessionID string) *ResolutionResponse {
	return &ResolutionResponse{
		Type:      ResolutionNoResults,
		SessionID: sessionID,
	}
}

func NewErrorResponse(sessionID, kind string) *ResolutionResponse {
	return &ResolutionResponse{
		Type:      ResolutionError,
		SessionID: sessionID,
		ErrorKind: kind,
	}
}
