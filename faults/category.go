package faults

// Category identifies the kind of failure a classified error represents.
type Category int

const (
	// CategoryUnknown is the catch-all for failures no rule matched.
	CategoryUnknown Category = iota
	// CategoryNetwork covers connection failures to generation backends.
	CategoryNetwork
	// CategoryTimeout covers deadline and per-attempt timeout failures.
	CategoryTimeout
	// CategoryResourceExhaustion covers memory/VRAM/quota exhaustion.
	CategoryResourceExhaustion
	// CategoryValidation covers rejected or malformed requests.
	CategoryValidation
	// CategoryAuthentication covers credential and authorization failures.
	CategoryAuthentication
	// CategoryModelLoading covers failures while loading model weights.
	CategoryModelLoading
	// CategoryInference covers failures raised during generation itself.
	CategoryInference
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryTimeout:
		return "timeout"
	case CategoryResourceExhaustion:
		return "resource_exhaustion"
	case CategoryValidation:
		return "validation"
	case CategoryAuthentication:
		return "authentication"
	case CategoryModelLoading:
		return "model_loading"
	case CategoryInference:
		return "inference"
	case CategoryUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// DefaultRetryable reports whether failures of this category are retried
// unless a context hint says otherwise. Validation and authentication
// failures never resolve on their own, so they are not retried.
func (c Category) DefaultRetryable() bool {
	switch c {
	case CategoryNetwork, CategoryTimeout, CategoryResourceExhaustion,
		CategoryModelLoading, CategoryInference:
		return true
	default:
		return false
	}
}

// DefaultSeverity returns the typical severity for this category.
func (c Category) DefaultSeverity() Severity {
	switch c {
	case CategoryResourceExhaustion, CategoryModelLoading, CategoryAuthentication:
		return SeverityHigh
	case CategoryValidation:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Severity grades how serious a classified failure is.
type Severity int

const (
	// SeverityLow indicates a caller mistake with no operational impact.
	SeverityLow Severity = iota
	// SeverityMedium indicates a transient fault worth retrying.
	SeverityMedium
	// SeverityHigh indicates a fault that degrades the pipeline.
	SeverityHigh
	// SeverityCritical indicates a fault that needs immediate attention.
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}
