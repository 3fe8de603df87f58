// Package shutdown closes browser sessions and stores cleanly when the
// process is interrupted.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/PentesterFlow/OpenPage/internal/logger"
)

// Cleanup releases one resource during shutdown.
type Cleanup func(ctx context.Context) error

// Config holds shutdown configuration.
type Config struct {
	// Timeout bounds all cleanups together
	Timeout time.Duration
	Signals []os.Signal
	Log     *logger.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 15 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// Handler runs registered cleanups once, on a signal or on demand, in
// reverse registration order.
type Handler struct {
	mu       sync.Mutex
	cleanups []namedCleanup

	started atomic.Bool
	done    chan struct{}
	result  Result
	timeout time.Duration
	log     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	sigChan chan os.Signal
}

type namedCleanup struct {
	name string
	fn   Cleanup
}

// Result reports how a shutdown went.
type Result struct {
	Elapsed time.Duration
	Errors  []error
	// Signal is nil when shutdown was not caused by a signal
	Signal os.Signal
}

// HasErrors reports whether any cleanup failed.
func (r Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// New creates a handler and starts catching cfg.Signals.
func New(cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = DefaultConfig().Signals
	}
	if cfg.Log == nil {
		cfg.Log = logger.Global()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		done:    make(chan struct{}),
		timeout: cfg.Timeout,
		log:     cfg.Log.WithComponent("shutdown"),
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 1),
	}
	signal.Notify(h.sigChan, cfg.Signals...)
	return h
}

// NewDefault creates a handler with default configuration.
func NewDefault() *Handler {
	return New(DefaultConfig())
}

// Register adds a cleanup. Cleanups run last registered first.
func (h *Handler) Register(name string, fn Cleanup) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanups = append(h.cleanups, namedCleanup{name: name, fn: fn})
}

// RegisterFunc adds a cleanup that cannot fail.
func (h *Handler) RegisterFunc(name string, fn func()) {
	h.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Context is cancelled as soon as shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// IsShuttingDown reports whether shutdown has begun.
func (h *Handler) IsShuttingDown() bool {
	return h.started.Load()
}

// Done is closed once every cleanup has finished.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Result returns the outcome of a finished shutdown.
func (h *Handler) Result() Result {
	<-h.done
	return h.result
}

// Wait blocks until a signal arrives, ctx is done or shutdown is
// triggered elsewhere, then shuts down.
func (h *Handler) Wait(ctx context.Context) Result {
	var sig os.Signal
	select {
	case sig = <-h.sigChan:
		h.log.WithField("signal", sig.String()).Warn("Interrupted, shutting down")
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	h.shutdown(sig)
	return h.Result()
}

// Listen shuts down in the background when a signal arrives.
func (h *Handler) Listen() <-chan struct{} {
	go h.Wait(context.Background())
	return h.done
}

// Shutdown runs the cleanups. Later calls wait for the first to finish.
func (h *Handler) Shutdown() Result {
	h.shutdown(nil)
	return h.Result()
}

func (h *Handler) shutdown(sig os.Signal) {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	defer signal.Stop(h.sigChan)

	start := time.Now()
	h.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	cleanups := make([]namedCleanup, len(h.cleanups))
	copy(cleanups, h.cleanups)
	h.mu.Unlock()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := run(ctx, cleanups[i]); err != nil {
			h.log.WithError(err).WithField("cleanup", cleanups[i].name).Error("Cleanup failed")
			errs = append(errs, err)
		}
	}

	h.result = Result{Elapsed: time.Since(start), Errors: errs, Signal: sig}
	h.log.WithDuration(h.result.Elapsed).Debug("Shutdown complete")
	close(h.done)
}

func run(ctx context.Context, c namedCleanup) error {
	done := make(chan error, 1)
	go func() { done <- c.fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &TimeoutError{Cleanup: c.name}
	}
}

// Trigger simulates a termination signal.
func (h *Handler) Trigger() {
	select {
	case h.sigChan <- syscall.SIGTERM:
	default:
	}
}

// TimeoutError is returned when a cleanup outlives the shutdown timeout.
type TimeoutError struct {
	Cleanup string
}

func (e *TimeoutError) Error() string {
	return "shutdown cleanup timed out: " + e.Cleanup
}
