// Package browser launches and owns the Chrome session driven through Rod.
package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/PentesterFlow/OpenPage/internal/logger"
)

// Config defines browser configuration.
type Config struct {
	Headless          bool          `json:"headless" yaml:"headless"`
	Bin               string        `json:"bin" yaml:"bin"`
	ControlURL        string        `json:"control_url" yaml:"control_url"`
	UserDataDir       string        `json:"user_data_dir" yaml:"user_data_dir"`
	UserAgent         string        `json:"user_agent" yaml:"user_agent"`
	WindowWidth       int           `json:"window_width" yaml:"window_width"`
	WindowHeight      int           `json:"window_height" yaml:"window_height"`
	IgnoreHTTPSErrors bool          `json:"ignore_https_errors" yaml:"ignore_https_errors"`
	Stealth           bool          `json:"stealth" yaml:"stealth"`
	SlowMotion        time.Duration `json:"slow_motion" yaml:"slow_motion"`
}

// DefaultConfig returns a visible browser with anti-detection enabled.
func DefaultConfig() Config {
	return Config{
		Headless:          false,
		WindowWidth:       1920,
		WindowHeight:      1080,
		IgnoreHTTPSErrors: true,
		Stealth:           true,
	}
}

// Session is one launched or attached browser.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	config   Config
	log      *logger.Logger
}

// Launch starts Chrome (or attaches to ControlURL) and connects to it.
func Launch(config Config, log *logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.Global()
	}
	log = log.WithComponent("browser")

	s := &Session{config: config, log: log}

	controlURL := config.ControlURL
	if controlURL == "" {
		s.launcher = newLauncher(config)

		u, err := s.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if config.SlowMotion > 0 {
		b = b.SlowMotion(config.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		if s.launcher != nil {
			s.launcher.Kill()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	// Keep the real window metrics so screenshot pixels map to CSS pixels
	// through the configured DPI only.
	s.browser = b.NoDefaultDevice()

	log.Event(logger.DebugLevel).
		Bool("headless", config.Headless).
		Bool("stealth", config.Stealth).
		Str("control_url", controlURL).
		Msg("Browser connected")

	return s, nil
}

func newLauncher(config Config) *launcher.Launcher {
	l := launcher.New().
		Headless(config.Headless).
		Delete("enable-automation").
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-notifications").
		Set("disable-save-password-bubble").
		Set("password-store", "basic").
		Set("start-maximized")

	if config.IgnoreHTTPSErrors {
		l = l.Set("ignore-certificate-errors")
	}
	if config.WindowWidth > 0 && config.WindowHeight > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", config.WindowWidth, config.WindowHeight))
	}
	if config.UserAgent != "" {
		l = l.Set("user-agent", config.UserAgent)
	}
	if config.UserDataDir != "" {
		l = l.UserDataDir(config.UserDataDir)
	}

	if config.Bin != "" {
		l = l.Bin(config.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}

	// A visible browser stays open after this process exits.
	if !config.Headless {
		l = l.Leakless(false)
	}

	return l
}

// Browser returns the underlying Rod browser.
func (s *Session) Browser() *rod.Browser {
	return s.browser
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.config
}

// NewPage opens a blank window prepared against automation detection.
func (s *Session) NewPage() (*rod.Page, error) {
	if s.config.Stealth {
		p, err := stealth.Page(s.browser)
		if err != nil {
			return nil, fmt.Errorf("failed to create stealth page: %w", err)
		}
		return p, nil
	}

	p, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if err := HideAutomation(p); err != nil {
		s.log.WithError(err).Debug("Failed to install webdriver hiding script")
	}
	return p, nil
}

// Pages returns the open windows of the browser.
func (s *Session) Pages() (rod.Pages, error) {
	return s.browser.Pages()
}

// Close shuts the browser down and removes launcher leftovers.
func (s *Session) Close() error {
	err := s.browser.Close()
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
