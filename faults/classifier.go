package faults

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// HintRetryable is the context key that overrides retryability for
// failures classified as CategoryUnknown.
const HintRetryable = "retryable"

// rule maps error-text fragments to a category. Rules are evaluated in
// order and the first match wins.
type rule struct {
	category Category
	needles  []string
}

// defaultRules is the ordered category table. Specific fragments come
// before generic ones so "model load timed out" classifies as
// model_loading rather than timeout being shadowed by a later rule.
var defaultRules = []rule{
	{CategoryModelLoading, []string{
		"model load", "failed to load model", "checkpoint", "safetensors",
		"weights not found", "model not found",
	}},
	{CategoryResourceExhaustion, []string{
		"out of memory", "oom", "cuda out of memory", "vram",
		"resource exhausted", "quota exceeded", "too many requests",
		"rate limit", "insufficient",
	}},
	{CategoryAuthentication, []string{
		"unauthorized", "unauthenticated", "forbidden", "api key",
		"invalid token", "permission denied", "access denied",
	}},
	{CategoryTimeout, []string{
		"timeout", "timed out", "deadline exceeded",
	}},
	{CategoryNetwork, []string{
		"connection refused", "connection reset", "broken pipe",
		"no such host", "network is unreachable", "eof", "dns",
		"tls handshake",
	}},
	{CategoryValidation, []string{
		"validation", "invalid request", "invalid parameter",
		"malformed", "bad request", "unsupported format",
		"prompt too long",
	}},
	{CategoryInference, []string{
		"inference", "generation failed", "sampler", "decode",
		"nan detected", "tensor",
	}},
}

// severityEscalations raises the category-default severity when the
// error text carries one of these indicators.
var severityEscalations = []string{"fatal", "panic", "corrupt", "unrecoverable"}

// Classifier maps raised failures to ErrorInfo records. It is pure and
// safe for concurrent use; the same failure always classifies the same
// way.
type Classifier struct {
	rules []rule
	now   func() time.Time
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithRules prepends additional rules ahead of the default table.
func WithRules(extra ...rule) ClassifierOption {
	return func(c *Classifier) {
		c.rules = append(extra, c.rules...)
	}
}

// WithRule builds a rule for WithRules from a category and fragments.
func WithRule(category Category, needles ...string) ClassifierOption {
	return WithRules(rule{category: category, needles: needles})
}

// NewClassifier creates a classifier with the default category table.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		rules: defaultRules,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps a failure plus caller context into an ErrorInfo. It
// never panics; failures no rule matches classify as unknown/medium.
// A nil error classifies as unknown with an empty message.
func (c *Classifier) Classify(err error, opCtx map[string]string) *ErrorInfo {
	info := &ErrorInfo{
		ID:        uuid.NewString(),
		Timestamp: c.now(),
		Context:   opCtx,
		Err:       err,
	}
	if err != nil {
		info.Message = err.Error()
	}

	info.Category = c.categorize(err, info.Message)
	info.Severity = c.severity(info.Category, info.Message)
	info.Retryable = info.Category.DefaultRetryable()

	// Unknown failures stay non-retryable unless the caller hints
	// otherwise.
	if info.Category == CategoryUnknown && opCtx[HintRetryable] == "true" {
		info.Retryable = true
	}
	return info
}

func (c *Classifier) categorize(err error, msg string) Category {
	if err == nil {
		return CategoryUnknown
	}

	// Explicitly tagged failures win over everything.
	var tagged *taggedError
	if errors.As(err, &tagged) {
		return tagged.category
	}

	// Typed checks before text matching.
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return CategoryNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}

	lower := strings.ToLower(msg)
	for _, r := range c.rules {
		for _, needle := range r.needles {
			if strings.Contains(lower, needle) {
				return r.category
			}
		}
	}
	return CategoryUnknown
}

func (c *Classifier) severity(category Category, msg string) Severity {
	sev := category.DefaultSeverity()
	lower := strings.ToLower(msg)
	for _, needle := range severityEscalations {
		if strings.Contains(lower, needle) {
			return SeverityCritical
		}
	}
	return sev
}
