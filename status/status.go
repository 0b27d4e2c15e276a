package status

import (
	"time"

	"github.com/zedarvates/StoryCore-Engine-sub006/analytics"
)

// Circuit breaker status strings as they appear in snapshots.
const (
	BreakerClosed   = "closed"
	BreakerOpen     = "open"
	BreakerHalfOpen = "half-open"
)

// BreakerStatus is the serializable state of one named circuit breaker.
type BreakerStatus struct {
	Name                string    `json:"name"`
	Status              string    `json:"status"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	HalfOpenTrialsUsed  int       `json:"half_open_trials_used,omitempty"`
	LastFailureTime     time.Time `json:"last_failure_time,omitempty"`
}

// Snapshot is a point-in-time view of the whole engine.
type Snapshot struct {
	Timestamp    time.Time                  `json:"timestamp"`
	Breakers     []BreakerStatus            `json:"breakers"`
	Operations   []analytics.OperationStats `json:"retry_stats"`
	RecentErrors analytics.Report           `json:"recent_errors"`
}

// Healthy reports whether no breaker is currently open.
func (s Snapshot) Healthy() bool {
	for _, b := range s.Breakers {
		if b.Status == BreakerOpen {
			return false
		}
	}
	return true
}

// Degraded reports whether any breaker left the closed state.
func (s Snapshot) Degraded() bool {
	for _, b := range s.Breakers {
		if b.Status != BreakerClosed {
			return true
		}
	}
	return false
}

// Provider yields engine snapshots.
//
// Contract:
// - Concurrency: Status must be safe to call from any goroutine.
// - Ownership: the returned Snapshot is a copy; callers may retain it.
type Provider interface {
	Status() Snapshot
}
