package resolve

import (
	"procedure-qa-be/pkg/router"
	"procedure-qa-be/pkg/store"
)

// CacheSource yields the current routing index. The router is the live
// implementation; reading through it keeps the resolver consistent with
// cache reloads.
type CacheSource interface {
	Cache() *router.Cache
}

// AmbiguityResolver decides whether a routed query can go straight to
// retrieval or needs a clarification dialogue first.
type AmbiguityResolver struct {
	source          CacheSource
	topicShiftFloor float64
}

func NewAmbiguityResolver(source CacheSource, topicShiftFloor float64) *AmbiguityResolver {
	return &AmbiguityResolver{
		source:          source,
		topicShiftFloor: topicShiftFloor,
	}
}

// ShouldClarify is a pure decision: true when routing itself was ambiguous,
// or when the new query has drifted away from the session's last resolved
// topic enough that the stored routing context can no longer be trusted.
func (a *AmbiguityResolver) ShouldClarify(result *store.RoutingResult, session *store.Session) bool {
	if result.IsAmbiguous {
		return true
	}
	return a.topicShifted(result, session)
}

// topicShifted compares the new query vector against the example the
// previous cycle resolved to. The check reuses routing similarity rather
// than re-embedding anything.
func (a *AmbiguityResolver) topicShifted(result *store.RoutingResult, session *store.Session) bool {
	if session == nil || session.RoutingContext == nil {
		return false
	}
	rc := session.RoutingContext
	if rc.MatchedExampleID == "" || len(result.QueryVector) == 0 {
		return false
	}

	entry := a.source.Cache().EntryByID(rc.MatchedExampleID)
	if entry == nil {
		// The cache was rebuilt and the old example is gone; the stored
		// context is stale either way.
		return true
	}

	continuity := router.CosineSimilarity(result.QueryVector, entry.Vector)
	return continuity < a.topicShiftFloor
}
