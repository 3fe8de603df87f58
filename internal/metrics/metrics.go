// Package metrics provides counters for a page automation session.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates session metrics.
type Collector struct {
	// Counters
	actionsTotal    atomic.Int64
	errorsTotal     atomic.Int64
	navigations     atomic.Int64
	screenshots     atomic.Int64
	captchaAttempts atomic.Int64
	captchaFailures atomic.Int64
	cookiesSaved    atomic.Int64
	cookiesLoaded   atomic.Int64

	// Action latency tracking
	actionTimesSum atomic.Int64
	actionTimesNum atomic.Int64

	// Histogram buckets for action latency in ms: <10, <50, <100, <250, <500, <1000, <2500, >=2500
	actionBuckets [8]atomic.Int64

	// Error breakdown
	errorCounts map[string]*atomic.Int64
	errorMu     sync.RWMutex

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		errorCounts: make(map[string]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// RecordAction records a completed page action and its latency.
func (c *Collector) RecordAction(d time.Duration) {
	c.actionsTotal.Add(1)

	ms := d.Milliseconds()
	c.actionTimesSum.Add(ms)
	c.actionTimesNum.Add(1)
	c.actionBuckets[bucketFor(ms)].Add(1)
}

func bucketFor(ms int64) int {
	switch {
	case ms < 10:
		return 0
	case ms < 50:
		return 1
	case ms < 100:
		return 2
	case ms < 250:
		return 3
	case ms < 500:
		return 4
	case ms < 1000:
		return 5
	case ms < 2500:
		return 6
	default:
		return 7
	}
}

// RecordError records an error of the given type.
func (c *Collector) RecordError(errorType string) {
	c.errorsTotal.Add(1)

	c.errorMu.Lock()
	if c.errorCounts[errorType] == nil {
		c.errorCounts[errorType] = &atomic.Int64{}
	}
	c.errorCounts[errorType].Add(1)
	c.errorMu.Unlock()
}

// RecordNavigation increments navigations (open, back, forward, refresh).
func (c *Collector) RecordNavigation() {
	c.navigations.Add(1)
}

// RecordScreenshot increments captured screenshots.
func (c *Collector) RecordScreenshot() {
	c.screenshots.Add(1)
}

// RecordCaptcha records a captcha attempt and whether it failed.
func (c *Collector) RecordCaptcha(failed bool) {
	c.captchaAttempts.Add(1)
	if failed {
		c.captchaFailures.Add(1)
	}
}

// RecordCookies records n cookies saved (save=true) or loaded.
func (c *Collector) RecordCookies(n int, save bool) {
	if save {
		c.cookiesSaved.Add(int64(n))
		return
	}
	c.cookiesLoaded.Add(int64(n))
}

// AverageActionTime returns the average action latency.
func (c *Collector) AverageActionTime() time.Duration {
	sum := c.actionTimesSum.Load()
	num := c.actionTimesNum.Load()
	if num == 0 {
		return 0
	}
	return time.Duration(sum/num) * time.Millisecond
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() *Snapshot {
	s := &Snapshot{
		Timestamp:         time.Now(),
		Uptime:            time.Since(c.startTime),
		ActionsTotal:      c.actionsTotal.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
		Navigations:       c.navigations.Load(),
		Screenshots:       c.screenshots.Load(),
		CaptchaAttempts:   c.captchaAttempts.Load(),
		CaptchaFailures:   c.captchaFailures.Load(),
		CookiesSaved:      c.cookiesSaved.Load(),
		CookiesLoaded:     c.cookiesLoaded.Load(),
		AverageActionTime: c.AverageActionTime(),
		ErrorCounts:       make(map[string]int64),
		ActionTimeHist:    make([]int64, len(c.actionBuckets)),
	}

	c.errorMu.RLock()
	for k, v := range c.errorCounts {
		s.ErrorCounts[k] = v.Load()
	}
	c.errorMu.RUnlock()

	for i := range c.actionBuckets {
		s.ActionTimeHist[i] = c.actionBuckets[i].Load()
	}

	return s
}

// Snapshot represents a point-in-time view of metrics.
type Snapshot struct {
	Timestamp         time.Time        `json:"timestamp"`
	Uptime            time.Duration    `json:"uptime"`
	ActionsTotal      int64            `json:"actions_total"`
	ErrorsTotal       int64            `json:"errors_total"`
	Navigations       int64            `json:"navigations"`
	Screenshots       int64            `json:"screenshots"`
	CaptchaAttempts   int64            `json:"captcha_attempts"`
	CaptchaFailures   int64            `json:"captcha_failures"`
	CookiesSaved      int64            `json:"cookies_saved"`
	CookiesLoaded     int64            `json:"cookies_loaded"`
	AverageActionTime time.Duration    `json:"average_action_time"`
	ErrorCounts       map[string]int64 `json:"error_counts"`
	ActionTimeHist    []int64          `json:"action_time_histogram"`
}

// ErrorRate returns errors per action.
func (s *Snapshot) ErrorRate() float64 {
	if s.ActionsTotal == 0 {
		return 0
	}
	return float64(s.ErrorsTotal) / float64(s.ActionsTotal)
}

// Summary returns a flat map suitable for structured logging.
func (s *Snapshot) Summary() map[string]interface{} {
	return map[string]interface{}{
		"uptime":             s.Uptime.String(),
		"actions_total":      s.ActionsTotal,
		"errors_total":       s.ErrorsTotal,
		"error_rate":         s.ErrorRate(),
		"navigations":        s.Navigations,
		"screenshots":        s.Screenshots,
		"captcha_attempts":   s.CaptchaAttempts,
		"captcha_failures":   s.CaptchaFailures,
		"avg_action_time_ms": s.AverageActionTime.Milliseconds(),
	}
}
