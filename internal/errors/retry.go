package errors

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries     int           // Retries after the first attempt (0 = none)
	InitialDelay   time.Duration // Pause before the first retry
	MaxDelay       time.Duration // Upper bound for any pause
	Multiplier     float64       // Growth factor between pauses
	Jitter         float64       // Random spread as a fraction of the pause (0-1)
	RetryableTypes []ErrorType   // Types retried on top of IsRetryable
}

// DefaultRetryConfig suits calls to the recognition service: two quick
// retries on network trouble or timeouts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialDelay:   300 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
		RetryableTypes: []ErrorType{Network, Timeout},
	}
}

// Retrier repeats an operation while it fails with a retryable error,
// backing off exponentially between attempts.
type Retrier struct {
	config RetryConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRetrier creates a retrier.
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewDefaultRetrier creates a retrier with DefaultRetryConfig.
func NewDefaultRetrier() *Retrier {
	return NewRetrier(DefaultRetryConfig())
}

// RetryResult describes how a retried operation went.
type RetryResult struct {
	Attempts  int
	LastError error
	Duration  time.Duration
	Success   bool
}

// Do runs fn until it succeeds, fails with an error that is not
// retryable, runs out of retries, or ctx is done. Cancellation is
// reported as a cancelled error.
func (r *Retrier) Do(ctx context.Context, operation, target string, fn func(ctx context.Context) error) *RetryResult {
	start := time.Now()
	result := &RetryResult{}
	defer func() { result.Duration = time.Since(start) }()

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt

		err := fn(ctx)
		if err == nil {
			result.Success = true
			return result
		}
		if ctx.Err() != nil {
			result.LastError = NewCancelledError(operation, target)
			return result
		}

		result.LastError = err
		if attempt > r.config.MaxRetries || !r.retryable(err) {
			return result
		}

		pause := time.NewTimer(r.pause(attempt))
		select {
		case <-ctx.Done():
			pause.Stop()
			result.LastError = NewCancelledError(operation, target)
			return result
		case <-pause.C:
		}
	}
}

func (r *Retrier) retryable(err error) bool {
	t := GetErrorType(err)
	for _, rt := range r.config.RetryableTypes {
		if t == rt {
			return true
		}
	}
	return IsRetryable(err)
}

// pause is the jittered wait after the given failed attempt.
func (r *Retrier) pause(attempt int) time.Duration {
	d := BackoffDuration(attempt, r.config.InitialDelay, r.config.MaxDelay, r.config.Multiplier)
	if r.config.Jitter <= 0 {
		return d
	}

	r.mu.Lock()
	spread := (r.rng.Float64()*2 - 1) * r.config.Jitter
	r.mu.Unlock()

	return time.Duration(float64(d) * (1 + spread))
}

// DoWithResult is Do for functions that produce a value. The value of
// the successful attempt is returned.
func DoWithResult[T any](ctx context.Context, r *Retrier, operation, target string, fn func(ctx context.Context) (T, error)) (T, *RetryResult) {
	var value T
	result := r.Do(ctx, operation, target, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			value = v
		}
		return err
	})
	return value, result
}

// BackoffDuration returns the pause after the given attempt:
// initial * multiplier^(attempt-1), capped at max.
func BackoffDuration(attempt int, initial, max time.Duration, multiplier float64) time.Duration {
	if attempt <= 1 {
		return initial
	}
	d := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if d > float64(max) {
		return max
	}
	return time.Duration(d)
}
