package retrieval

import "procedure-qa-be/pkg/store"

// StageStatus is the observable outcome of one pipeline stage. Degradation
// is recorded, never silently swallowed.
type StageStatus string

const (
	StageSuccess  StageStatus = "success"
	StageDegraded StageStatus = "degraded"
	StageFailed   StageStatus = "failed"
)

const (
	StageBroadSearch = "broad_search"
	StageRerank      = "rerank"
	StageNucleus     = "nucleus"
	StageExpansion   = "expansion"
)

// StageReport records how a stage ended and why, when not cleanly.
type StageReport struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// Result carries the expanded context plus a per-stage trace. A nil
// Context with a nil error means the broad search found nothing.
type Result struct {
	Context *store.ExpandedContext
	Stages  []StageReport
}

// Degraded reports whether any stage fell back from its primary path.
func (r *Result) Degraded() bool {
	for _, s := range r.Stages {
		if s.Status == StageDegraded {
			return true
		}
	}
	return false
}

func (r *Result) report(stage string, status StageStatus, reason string) {
	r.Stages = append(r.Stages, StageReport{Stage: stage, Status: status, Reason: reason})
}
