// Package page wraps a single Chrome session behind a page interaction
// facade: element lookup, input, frames and windows, alerts, cookies,
// JavaScript helpers, scrolling, mouse actions and captcha helpers.
//
// A Page is not safe for concurrent use.
package page

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/PentesterFlow/OpenPage/internal/browser"
	"github.com/PentesterFlow/OpenPage/internal/cookie"
	"github.com/PentesterFlow/OpenPage/internal/errors"
	"github.com/PentesterFlow/OpenPage/internal/logger"
	"github.com/PentesterFlow/OpenPage/internal/metrics"
	"github.com/PentesterFlow/OpenPage/internal/ocr"
	"github.com/PentesterFlow/OpenPage/internal/vision"
)

// Page is one browser session and the window it currently drives.
type Page struct {
	config  *Config
	session *browser.Session

	// page is the current window; frames is the stack of entered frames
	// inside it, innermost last.
	page    *rod.Page
	frames  []*rod.Page
	windows []*rod.Page

	implicitWait time.Duration
	dialogs      *dialogs
	held         bool

	classifier ocr.Classifier
	cookies    cookie.Store
	ownsStore  bool
	images     *vision.Dir

	log     *logger.Logger
	metrics *metrics.Collector
	rng     *rand.Rand
	sleep   func(time.Duration)
	grab    func(operation string, locs []Locator) ([]byte, []*proto.DOMRect, error)

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

// New launches a browser and opens a blank window. Options apply in
// order, so WithConfig should come first.
func New(opts ...Option) (*Page, error) {
	p := &Page{
		config: DefaultConfig(),
		parent: context.Background(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  time.Sleep,
	}
	p.grab = p.grabViewport

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := p.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if p.log == nil {
		level := logger.WarnLevel
		if p.config.Debug {
			level = logger.DebugLevel
		} else if p.config.Verbose {
			level = logger.InfoLevel
		}
		p.log = logger.New(logger.Config{
			Level:     level,
			Pretty:    true,
			Component: "page",
		})
	}

	p.metrics = metrics.New()
	p.images = vision.NewDir(p.config.ImageDir)
	p.implicitWait = p.config.ImplicitWait
	p.dialogs = newDialogs()
	p.ctx, p.cancel = context.WithCancel(p.parent)

	if p.cookies == nil {
		store, err := cookie.Open(p.config.Cookie.Backend, p.config.Cookie.Path)
		if err != nil {
			p.cancel()
			return nil, errors.NewIOError("new", p.config.Cookie.StorePath(), err)
		}
		p.cookies = store
		p.ownsStore = true
	}

	if p.classifier == nil {
		cfg := ocr.DefaultConfig()
		cfg.Endpoint = p.config.OCR.Endpoint
		cfg.Timeout = p.config.OCR.Timeout
		cfg.RequestsPerSecond = p.config.OCR.RequestsPerSecond
		cfg.Burst = p.config.OCR.Burst
		cfg.Retry.MaxRetries = p.config.OCR.MaxRetries
		p.classifier = ocr.NewClient(cfg)
	}

	session, err := browser.Launch(p.config.Browser, p.log)
	if err != nil {
		p.release()
		return nil, errors.NewSessionError("new", err)
	}
	p.session = session

	window, err := session.NewPage()
	if err != nil {
		session.Close()
		p.release()
		return nil, errors.NewSessionError("new", err)
	}
	p.adopt(window)
	p.page = window

	p.log.Info("Browser session started")
	return p, nil
}

// release frees what New acquired before the browser came up.
func (p *Page) release() {
	p.cancel()
	if p.ownsStore {
		p.cookies.Close()
	}
}

// Quit closes every window and the browser.
func (p *Page) Quit() error {
	return p.do("quit", "", func() error {
		p.cancel()
		err := p.session.Close()
		if p.ownsStore {
			if cerr := p.cookies.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		p.windows = nil
		p.frames = nil
		p.log.StatsEvent(p.metrics.Snapshot().Summary())
		return err
	})
}

// Rod returns the current window for direct driver access.
func (p *Page) Rod() *rod.Page {
	return p.page
}

// Config returns a copy of the configuration in use.
func (p *Page) Config() *Config {
	return p.config.Clone()
}

// Stats returns a snapshot of the session metrics.
func (p *Page) Stats() *metrics.Snapshot {
	return p.metrics.Snapshot()
}

// current is the browsing context lookups run in: the innermost entered
// frame, or the window itself.
func (p *Page) current() *rod.Page {
	if n := len(p.frames); n > 0 {
		return p.frames[n-1]
	}
	return p.page
}

// do runs an action with timing, logging, metrics and error
// categorization.
func (p *Page) do(operation, target string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	p.metrics.RecordAction(elapsed)
	if err != nil {
		pageErr := errors.Categorize(err, operation, target)
		p.metrics.RecordError(pageErr.Type.String())
		p.log.ErrorEvent(pageErr, target, operation)
		return pageErr
	}

	p.log.ActionEvent(operation, target, elapsed)
	return nil
}

// interruptible runs fn and returns early when a JavaScript dialog opens
// meanwhile, since the browser holds the call until the dialog is
// answered.
func (p *Page) interruptible(operation, target string, fn func() error) error {
	open, _, notify := p.dialogs.current()
	if open != nil {
		return errors.New(errors.NotInteractable, operation, target, "unexpected alert open: "+open.Message, nil)
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-notify:
		return nil
	}
}

// bounded derives a context from the session that expires after d. Zero
// means no limit.
func (p *Page) bounded(d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(p.ctx, d)
	}
	return context.WithCancel(p.ctx)
}

// Stop pauses for d.
func (p *Page) Stop(d time.Duration) error {
	if d < 0 {
		return errors.NewInvalidArgumentError("stop", "duration must not be negative")
	}
	p.sleep(d)
	return nil
}
