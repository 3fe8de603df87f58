package page

import (
	"context"

	"github.com/PentesterFlow/OpenPage/internal/cookie"
	"github.com/PentesterFlow/OpenPage/internal/logger"
	"github.com/PentesterFlow/OpenPage/internal/ocr"
)

// Option is a functional option for configuring a Page.
type Option func(*Page) error

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(p *Page) error {
		if config != nil {
			p.config = config.Clone()
		}
		return nil
	}
}

// WithHeadless hides or shows the browser window.
func WithHeadless(headless bool) Option {
	return func(p *Page) error {
		p.config.Browser.Headless = headless
		return nil
	}
}

// WithStealth toggles the stealth page setup.
func WithStealth(enabled bool) Option {
	return func(p *Page) error {
		p.config.Browser.Stealth = enabled
		return nil
	}
}

// WithControlURL attaches to an already running browser instead of
// launching one.
func WithControlURL(url string) Option {
	return func(p *Page) error {
		p.config.Browser.ControlURL = url
		return nil
	}
}

// WithImageDir sets where captcha captures are written.
func WithImageDir(dir string) Option {
	return func(p *Page) error {
		p.config.ImageDir = dir
		return nil
	}
}

// WithDPI sets the default screenshot scale factor.
func WithDPI(dpi float64) Option {
	return func(p *Page) error {
		p.config.DPI = dpi
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Page) error {
		p.log = l
		return nil
	}
}

// WithClassifier replaces the recognition service client.
func WithClassifier(c ocr.Classifier) Option {
	return func(p *Page) error {
		p.classifier = c
		return nil
	}
}

// WithCookieStore replaces the configured cookie store. The caller keeps
// ownership and closes it.
func WithCookieStore(s cookie.Store) Option {
	return func(p *Page) error {
		p.cookies = s
		return nil
	}
}

// WithContext bounds every browser call by ctx.
func WithContext(ctx context.Context) Option {
	return func(p *Page) error {
		if ctx != nil {
			p.parent = ctx
		}
		return nil
	}
}
