package events

import "time"

// Audit event codes for the resolution lifecycle.
const (
	TypeQueryResolved        = "QUERY_RESOLVED"
	TypeClarificationStarted = "CLARIFICATION_STARTED"
	TypeClarificationForced  = "CLARIFICATION_FORCED"
	TypeSessionReset         = "SESSION_RESET"
	TypeDocumentIngested     = "DOCUMENT_INGESTED"
)

func NewQueryResolvedEvent(sessionID, collectionID, documentID string, confidence string, degraded bool) Event {
	return BaseEvent{
		Type: TypeQueryResolved,
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"collection_id": collectionID,
			"document_id":   documentID,
			"confidence":    confidence,
			"degraded":      degraded,
		},
		OccurredAt: time.Now(),
	}
}

func NewClarificationStartedEvent(sessionID, stage string, optionCount int) Event {
	return BaseEvent{
		Type: TypeClarificationStarted,
		Data: map[string]interface{}{
			"session_id":   sessionID,
			"stage":        stage,
			"option_count": optionCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewClarificationForcedEvent(sessionID string, turnsUsed int) Event {
	return BaseEvent{
		Type: TypeClarificationForced,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"turns_used": turnsUsed,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionResetEvent(sessionID string) Event {
	return BaseEvent{
		Type: TypeSessionReset,
		Data: map[string]interface{}{
			"session_id": sessionID,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentIngestedEvent(documentID, collectionID string, chunkCount int) Event {
	return BaseEvent{
		Type: TypeDocumentIngested,
		Data: map[string]interface{}{
			"document_id":   documentID,
			"collection_id": collectionID,
			"chunk_count":   chunkCount,
		},
		OccurredAt: time.Now(),
	}
}
