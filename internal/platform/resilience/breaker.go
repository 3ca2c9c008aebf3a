package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrOperationTimeout = errors.New("operation timed out")
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// OpenError is returned when a call is rejected without invoking the
// wrapped operation. It matches ErrCircuitOpen under errors.Is.
type OpenError struct {
	Name  string
	State State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

func (e *OpenError) Is(target error) bool { return target == ErrCircuitOpen }

// TimeoutError is returned when the wrapped operation misses the per-call
// deadline. The operation itself is abandoned, not cancelled; its eventual
// outcome is discarded. Matches ErrOperationTimeout under errors.Is.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("circuit breaker %q: operation exceeded %s", e.Name, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrOperationTimeout }

// Stats is a point-in-time snapshot of a breaker's counters and state.
type Stats struct {
	Name                 string     `json:"name"`
	State                State      `json:"state"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	TotalCalls           uint64     `json:"total_calls"`
	TotalSuccesses       uint64     `json:"total_successes"`
	TotalFailures        uint64     `json:"total_failures"`
	TotalRejected        uint64     `json:"total_rejected"`
	LastFailureAt        *time.Time `json:"last_failure_at,omitempty"`
}

// Operation is a fallible unit of work guarded by a breaker.
type Operation func(ctx context.Context) error

// Breaker guards a single external dependency. Closed passes calls through
// and counts consecutive failures; open fails fast until RecoveryTimeout has
// elapsed since the last failure; half-open admits probes and closes again
// after SuccessThreshold consecutive successes, reopening on the first
// failure.
type Breaker struct {
	name string
	cfg  Config

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailure          time.Time
	totalCalls           uint64
	totalSuccesses       uint64
	totalFailures        uint64
	totalRejected        uint64

	now func() time.Time
}

func New(name string, cfg Config) *Breaker {
	return &Breaker{
		name:  name,
		cfg:   NormalizeConfig(cfg),
		state: StateClosed,
		now:   time.Now,
	}
}

func (b *Breaker) Name() string { return b.name }

// Do runs op through the breaker. Open-state rejections return an OpenError
// without invoking op. Admitted operations run under the configured call
// timeout; a miss returns a TimeoutError and counts as a failure. All other
// errors from op are passed through unmodified.
func (b *Breaker) Do(ctx context.Context, op Operation) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := b.run(ctx, op)
	if err != nil {
		b.recordFailure(err)
		return err
	}

	b.recordSuccess()
	return nil
}

// Execute runs a value-returning operation through b. The zero value is
// returned alongside any breaker or operation error.
func Execute[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	notify := noNotify

	if b.state == StateOpen {
		if !b.recoveryEligibleLocked(b.now()) {
			b.totalRejected++
			b.mu.Unlock()
			return &OpenError{Name: b.name, State: StateOpen}
		}
		notify = b.toHalfOpenLocked()
	}

	b.mu.Unlock()
	notify()
	return nil
}

// run executes op with the per-call deadline. The deadline race is between
// op's completion and the context timer; the loser is abandoned, so op must
// honor ctx cancellation if it wants to stop early.
func (b *Breaker) run(ctx context.Context, op Operation) error {
	if b.cfg.CallTimeout <= 0 {
		return op(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(callCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return &TimeoutError{Name: b.name, Timeout: b.cfg.CallTimeout}
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	notify := noNotify

	b.totalCalls++
	b.totalSuccesses++
	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0
	case StateHalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			notify = b.toClosedLocked()
		}
	}

	b.mu.Unlock()
	notify()
}

func (b *Breaker) recordFailure(cause error) {
	b.mu.Lock()
	notify := noNotify

	b.totalCalls++
	b.totalFailures++
	b.lastFailure = b.now()
	switch b.state {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			notify = b.toOpenLocked(cause)
		}
	case StateHalfOpen:
		// Probation is revoked on the first failed probe.
		notify = b.toOpenLocked(cause)
	}

	b.mu.Unlock()
	notify()
}

// State reports the current state without evaluating recovery eligibility.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Available predicts whether the next call would be admitted. It never
// mutates state, so an open breaker past its recovery timeout reports true
// while remaining open until the next Do.
func (b *Breaker) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return true
	}
	return b.recoveryEligibleLocked(b.now())
}

func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		Name:                 b.name,
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		TotalCalls:           b.totalCalls,
		TotalSuccesses:       b.totalSuccesses,
		TotalFailures:        b.totalFailures,
		TotalRejected:        b.totalRejected,
	}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		s.LastFailureAt = &t
	}
	return s
}

// Reset forces the breaker closed and zeroes the consecutive counters.
// Lifetime totals are preserved.
func (b *Breaker) Reset() {
	b.mu.Lock()
	notify := noNotify
	if b.state != StateClosed {
		notify = b.toClosedLocked()
	} else {
		b.consecutiveFailures = 0
		b.consecutiveSuccesses = 0
	}
	b.mu.Unlock()
	notify()
}

// recoveryEligibleLocked reports whether an open breaker may probe again.
// A zero lastFailure means no failure was ever recorded and trivially allows
// recovery.
func (b *Breaker) recoveryEligibleLocked(now time.Time) bool {
	if b.lastFailure.IsZero() {
		return true
	}
	return now.Sub(b.lastFailure) >= b.cfg.RecoveryTimeout
}

// Transition helpers return the hook invocation to run after the lock is
// released, so observer callbacks can never deadlock against the breaker.

func (b *Breaker) toClosedLocked() func() {
	b.state = StateClosed
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	hook := b.cfg.Hooks.OnClose
	if hook == nil {
		return noNotify
	}
	name := b.name
	return func() { safeHook(func() { hook(name) }) }
}

func (b *Breaker) toOpenLocked(cause error) func() {
	b.state = StateOpen
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	hook := b.cfg.Hooks.OnOpen
	if hook == nil {
		return noNotify
	}
	name := b.name
	return func() { safeHook(func() { hook(name, cause) }) }
}

func (b *Breaker) toHalfOpenLocked() func() {
	b.state = StateHalfOpen
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	hook := b.cfg.Hooks.OnHalfOpen
	if hook == nil {
		return noNotify
	}
	name := b.name
	return func() { safeHook(func() { hook(name) }) }
}

func noNotify() {}

// safeHook isolates observer panics from breaker accounting.
func safeHook(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
