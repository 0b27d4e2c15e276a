package resilience

import (
	"sync"
	"time"
)

// ThrottleConfig configures the per-resource throttle.
type ThrottleConfig struct {
	// Rate is the number of operations allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int
}

// Throttle is a token-bucket throttle protecting one backend from
// request floods. Rejections classify as resource exhaustion through
// the coordinator.
type Throttle struct {
	config ThrottleConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time

	now func() time.Time
}

// NewThrottle creates a throttle with a full bucket.
func NewThrottle(config ThrottleConfig) *Throttle {
	// Apply defaults
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}

	t := &Throttle{
		config: config,
		tokens: float64(config.Burst),
		now:    time.Now,
	}
	t.lastRefill = t.now()
	return t
}

// Allow consumes one token if available.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refillLocked()

	if t.tokens >= 1 {
		t.tokens--
		return true
	}
	return false
}

// Tokens returns the current number of available tokens.
func (t *Throttle) Tokens() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refillLocked()
	return t.tokens
}

// Reset refills the bucket to burst capacity.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = float64(t.config.Burst)
	t.lastRefill = t.now()
}

func (t *Throttle) refillLocked() {
	now := t.now()
	elapsed := now.Sub(t.lastRefill)
	t.lastRefill = now

	t.tokens += elapsed.Seconds() * t.config.Rate
	if t.tokens > float64(t.config.Burst) {
		t.tokens = float64(t.config.Burst)
	}
}
