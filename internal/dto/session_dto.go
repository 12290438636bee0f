package dto

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type SessionSummaryResponse struct {
	SessionID         string `json:"session_id"`
	HasActiveContext  bool   `json:"has_active_context"`
	CurrentCollection string `json:"current_collection,omitempty"`
	TurnCount         int    `json:"turn_count"`
	AgeSeconds        int64  `json:"age_seconds"`
}

type ResetSessionResponse struct {
	SessionID string `json:"session_id"`
	Reset     bool   `json:"reset"`
}
