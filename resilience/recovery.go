package resilience

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

// RecoveryFunc is a category-specific remediation routine, e.g. freeing
// VRAM or re-establishing a backend session. It reports whether the
// condition was remediated.
type RecoveryFunc func(ctx context.Context, info *faults.ErrorInfo) bool

// Guard is a predicate over the failure's caller-supplied context. A
// procedure runs only when every one of its guards passes.
type Guard func(opCtx map[string]string) bool

// ContextEquals returns a Guard passing when the context carries the
// given key/value pair.
func ContextEquals(key, value string) Guard {
	return func(opCtx map[string]string) bool {
		return opCtx[key] == value
	}
}

type procedure struct {
	fn     RecoveryFunc
	guards []Guard
}

// RecoveryManager is a registry of category-keyed recovery procedures.
//
// Contract:
//   - Registration happens at startup; the registry is read-only
//     afterwards.
//   - A procedure runs at most once per ErrorInfo instance, keyed by
//     ErrorInfo.ID. Concurrent duplicate attempts for one instance are
//     collapsed to a single invocation.
type RecoveryManager struct {
	mu         sync.Mutex
	procedures map[faults.Category][]procedure

	attempted map[string]bool
	// order tracks attempted IDs FIFO so the at-most-once set stays
	// bounded.
	order []string

	flight singleflight.Group
}

// maxTrackedAttempts bounds the attempted-ID set. ErrorInfo instances
// are short-lived, so evicting the oldest entries is safe.
const maxTrackedAttempts = 4096

// NewRecoveryManager creates an empty recovery registry.
func NewRecoveryManager() *RecoveryManager {
	return &RecoveryManager{
		procedures: make(map[faults.Category][]procedure),
		attempted:  make(map[string]bool),
	}
}

// Register adds a recovery procedure for the category. Registering a
// second procedure for a category is allowed only when both procedures
// carry guards to disambiguate; otherwise this is a programming error
// reported immediately.
func (m *RecoveryManager) Register(category faults.Category, fn RecoveryFunc, guards ...Guard) error {
	if fn == nil {
		return fmt.Errorf("%w: nil procedure for %s", ErrNilOperation, category)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.procedures[category]
	if len(existing) > 0 {
		if len(guards) == 0 {
			return fmt.Errorf("%w: category %s already has a procedure and the new one has no guards",
				ErrDuplicateRecovery, category)
		}
		for _, p := range existing {
			if len(p.guards) == 0 {
				return fmt.Errorf("%w: category %s has an unguarded procedure",
					ErrDuplicateRecovery, category)
			}
		}
	}

	m.procedures[category] = append(existing, procedure{fn: fn, guards: guards})
	return nil
}

// AttemptRecovery runs the first registered procedure for the failure's
// category whose guards all pass, at most once for this ErrorInfo
// instance. It returns true only when a procedure ran and reported
// success. An unregistered category is a pass-through, not an error.
// Never consulted after cancellation.
func (m *RecoveryManager) AttemptRecovery(ctx context.Context, info *faults.ErrorInfo) bool {
	if info == nil || ctx.Err() != nil {
		return false
	}

	m.mu.Lock()
	if m.attempted[info.ID] {
		m.mu.Unlock()
		return false
	}
	procs := m.procedures[info.Category]
	m.mu.Unlock()

	if len(procs) == 0 {
		m.markAttempted(info.ID)
		return false
	}

	// Concurrent callers holding the same instance share one invocation.
	recovered, _, _ := m.flight.Do(info.ID, func() (any, error) {
		m.markAttempted(info.ID)

		for _, p := range procs {
			if !guardsPass(p.guards, info.Context) {
				continue
			}
			return p.fn(ctx, info), nil
		}
		return false, nil
	})

	ok, _ := recovered.(bool)
	return ok
}

func (m *RecoveryManager) markAttempted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempted[id] {
		return
	}
	m.attempted[id] = true
	m.order = append(m.order, id)
	for len(m.order) > maxTrackedAttempts {
		delete(m.attempted, m.order[0])
		m.order = m.order[1:]
	}
}

func guardsPass(guards []Guard, opCtx map[string]string) bool {
	for _, g := range guards {
		if !g(opCtx) {
			return false
		}
	}
	return true
}
