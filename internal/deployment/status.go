// internal/deployment/status.go
//
// Deployment lifecycle state machine.
//
// Context
// -------
// A deployment is born pending (direct uploads) or processing (GitHub
// ingest, where files arrive server-side), and ends live or failed.
// Terminal states are immutable: rollback never touches a deployment
// row, it only repoints the site's active-deployment pointer at an
// already-live target.
//
// Transition graph (no back-edges):
//
//	pending    → processing, failed
//	processing → live, failed
//	live       → ∅
//	failed     → ∅

package deployment

// Status is the closed set of lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusLive       Status = "live"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is accepted from s.
func (s Status) Terminal() bool { return s == StatusLive || s == StatusFailed }

// Mutable reports whether files may still be written under s.
func (s Status) Mutable() bool { return s == StatusPending || s == StatusProcessing }

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusLive || to == StatusFailed
	default:
		return false
	}
}
