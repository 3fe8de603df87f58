// Package ratelimit paces calls to recognition services.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter applies one shared token bucket to every call and a second
// bucket per service endpoint.
type Limiter struct {
	shared *rate.Limiter

	mu        sync.RWMutex
	endpoints map[string]*rate.Limiter
	limit     rate.Limit
	burst     int
}

// LimiterStats contains limiter statistics.
type LimiterStats struct {
	EndpointCount int     `json:"endpoint_count"`
	Rate          float64 `json:"rate"`
	Burst         int     `json:"burst"`
}

// NewLimiter creates a limiter allowing requestsPerSecond with the given
// burst. A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	burst = max(burst, 1)

	return &Limiter{
		shared:    rate.NewLimiter(limit, burst),
		endpoints: map[string]*rate.Limiter{},
		limit:     limit,
		burst:     burst,
	}
}

// Wait blocks until a request is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.shared.Wait(ctx)
}

// Allow reports whether a request may proceed now.
func (l *Limiter) Allow() bool {
	return l.shared.Allow()
}

// WaitEndpoint blocks until both the shared bucket and the bucket of
// endpoint have a token.
func (l *Limiter) WaitEndpoint(ctx context.Context, endpoint string) error {
	if err := l.shared.Wait(ctx); err != nil {
		return err
	}
	return l.endpoint(endpoint).Wait(ctx)
}

func (l *Limiter) endpoint(name string) *rate.Limiter {
	l.mu.RLock()
	el := l.endpoints[name]
	l.mu.RUnlock()
	if el != nil {
		return el
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if el = l.endpoints[name]; el == nil {
		el = rate.NewLimiter(l.limit, l.burst)
		l.endpoints[name] = el
	}
	return el
}

// SetRate changes the rate of every bucket.
func (l *Limiter) SetRate(requestsPerSecond float64, burst int) {
	limit := rate.Limit(requestsPerSecond)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.limit, l.burst = limit, burst
	for _, b := range append([]*rate.Limiter{l.shared}, values(l.endpoints)...) {
		b.SetLimit(limit)
		b.SetBurst(burst)
	}
}

func values(m map[string]*rate.Limiter) []*rate.Limiter {
	out := make([]*rate.Limiter, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// Stats returns limiter statistics.
func (l *Limiter) Stats() LimiterStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return LimiterStats{
		EndpointCount: len(l.endpoints),
		Rate:          float64(l.limit),
		Burst:         l.burst,
	}
}

// Adaptive halves its rate when more than a tenth of the calls in a
// window fail and grows it by half when fewer than one in a hundred do.
type Adaptive struct {
	*Limiter

	mu       sync.Mutex
	floor    float64
	ceiling  float64
	current  float64
	window   int
	ok, fail int
}

// NewAdaptive creates an adaptive limiter starting at maxRate.
func NewAdaptive(minRate, maxRate float64, burst, window int) *Adaptive {
	return &Adaptive{
		Limiter: NewLimiter(maxRate, burst),
		floor:   minRate,
		ceiling: maxRate,
		current: maxRate,
		window:  max(window, 1),
	}
}

// RecordSuccess records a successful call.
func (a *Adaptive) RecordSuccess() { a.record(true) }

// RecordError records a failed call.
func (a *Adaptive) RecordError() { a.record(false) }

func (a *Adaptive) record(success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if success {
		a.ok++
	} else {
		a.fail++
	}
	if a.ok+a.fail < a.window {
		return
	}

	failRate := float64(a.fail) / float64(a.ok+a.fail)
	a.ok, a.fail = 0, 0

	next := a.current
	if failRate > 0.1 {
		next = max(a.current/2, a.floor)
	} else if failRate < 0.01 {
		next = min(a.current*1.5, a.ceiling)
	}
	if next == a.current {
		return
	}
	a.current = next
	a.SetRate(next, a.Stats().Burst)
}

// CurrentRate returns the current rate.
func (a *Adaptive) CurrentRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}
