package analytics

import (
	"time"

	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

// Report is a point-in-time aggregate of recent classified failures.
// It is serializable and intended for an external dashboard.
type Report struct {
	Window      time.Duration   `json:"window_ns"`
	GeneratedAt time.Time       `json:"generated_at"`
	Total       int             `json:"total"`
	Counts      []CategoryCount `json:"counts,omitempty"`
}

// CategoryCount is the windowed failure count for one
// (category, severity) bucket.
type CategoryCount struct {
	Category faults.Category `json:"-"`
	Severity faults.Severity `json:"-"`
	Count    int             `json:"count"`

	// String forms for serialization.
	CategoryName string `json:"category"`
	SeverityName string `json:"severity"`
}

// OperationStats holds per-operation retry counters.
type OperationStats struct {
	Operation string `json:"operation"`
	Attempts  int64  `json:"attempts"`
	Successes int64  `json:"successes"`
	Failures  int64  `json:"failures"`
}

// PatternAlert flags a signature of structurally identical failures
// whose windowed count crossed the threshold.
type PatternAlert struct {
	ID        string          `json:"id"`
	Signature uint64          `json:"signature"`
	Category  faults.Category `json:"-"`
	Count     int             `json:"count"`
	Threshold int             `json:"threshold"`
	Window    time.Duration   `json:"window_ns"`
	Sample    string          `json:"sample,omitempty"`

	CategoryName string `json:"category"`
}
