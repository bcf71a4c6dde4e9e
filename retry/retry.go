package retry

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/quantadb/quanta-go/config"
	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/logging"
)

var logger = logging.GetLogger("retry")

// --------------------------------------------------------------------------
// State Machine
// --------------------------------------------------------------------------

// State is the phase of a retried operation.
type State uint8

const (
	// StateIdle means Execute has not been called yet
	StateIdle State = iota
	// StateAttempting means an attempt is running or a backoff is pending
	StateAttempting
	// StateSucceeded means an attempt returned without error
	StateSucceeded
	// StateExhausted means the operation failed terminally, either on a
	// non-retryable error or after the final attempt
	StateExhausted
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Executor
// --------------------------------------------------------------------------

// Operation is one unit of retryable work. It receives the caller's context
// and is expected to honor its deadline.
type Operation func(ctx context.Context) error

// Executor runs operations through the retry state machine. An executor is
// reusable; each Execute call starts a fresh cycle. State, Attempts and
// LastError describe the most recent cycle.
type Executor struct {
	cfg config.RetryConfig

	mu       sync.Mutex
	state    State
	attempts int
	lastErr  error
}

// NewExecutor creates an executor with the given retry configuration.
func NewExecutor(cfg config.RetryConfig) *Executor {
	return &Executor{cfg: cfg, state: StateIdle}
}

// State returns the phase of the most recent Execute cycle.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Attempts returns how many attempts the most recent cycle has made.
func (e *Executor) Attempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts
}

// LastError returns the error of the most recent failed attempt.
func (e *Executor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Executor) transition(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Executor) recordAttempt(err error) {
	e.mu.Lock()
	e.attempts++
	e.lastErr = err
	e.mu.Unlock()
}

// Execute runs op until it succeeds, returns a non-retryable error, or the
// attempt limit (MaxRetries + 1) is reached. Backoff sleeps happen only
// before a retry, never after the final attempt, and honor ctx cancellation.
func (e *Executor) Execute(ctx context.Context, op Operation) error {
	e.mu.Lock()
	e.state = StateAttempting
	e.attempts = 0
	e.lastErr = nil
	e.mu.Unlock()

	maxAttempts := e.cfg.MaxRetries + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.backoff(attempt - 1)
			logger.Debugw("retrying after backoff",
				"attempt", attempt+1, "max", maxAttempts, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				e.transition(StateExhausted)
				return e.LastError()
			}
		}

		err := op(ctx)
		e.recordAttempt(err)
		if err == nil {
			e.transition(StateSucceeded)
			return nil
		}
		if !dberr.IsRetryable(err) {
			e.transition(StateExhausted)
			return err
		}
	}

	e.transition(StateExhausted)
	return e.LastError()
}

// backoff computes the delay after the n-th failed attempt (0-based):
// min(initial * multiplier^n, max).
func (e *Executor) backoff(n int) time.Duration {
	delay := float64(e.cfg.InitialBackoffMs) * math.Pow(e.cfg.BackoffMultiplier, float64(n))
	if max := float64(e.cfg.MaxBackoffMs); e.cfg.MaxBackoffMs > 0 && delay > max {
		delay = max
	}
	return time.Duration(delay) * time.Millisecond
}

// sleep waits for d or until ctx is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --------------------------------------------------------------------------
// Convenience Wrapper
// --------------------------------------------------------------------------

// Do runs op with retries and returns its result. It is the generic
// counterpart of Executor.Execute for operations producing a value.
func Do[T any](ctx context.Context, cfg config.RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := NewExecutor(cfg).Execute(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
