package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Headless {
		t.Error("Headless should be false by default")
	}
	if !cfg.Stealth {
		t.Error("Stealth should be enabled by default")
	}
	if cfg.WindowWidth != 1920 || cfg.WindowHeight != 1080 {
		t.Errorf("window = %dx%d, want 1920x1080", cfg.WindowWidth, cfg.WindowHeight)
	}
}

func TestNewLauncher_Flags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bin = "/usr/bin/chromium"
	cfg.UserAgent = "openpage-test"

	l := newLauncher(cfg)

	if l.Has("enable-automation") {
		t.Error("enable-automation should be removed")
	}
	if got := l.Get("disable-blink-features"); got != "AutomationControlled" {
		t.Errorf("disable-blink-features = %q", got)
	}
	for _, flag := range []string{"disable-notifications", "start-maximized", "ignore-certificate-errors"} {
		if !l.Has(flags.Flag(flag)) {
			t.Errorf("flag %s should be set", flag)
		}
	}
	if got := l.Get("window-size"); got != "1920,1080" {
		t.Errorf("window-size = %q", got)
	}
	if got := l.Get("user-agent"); got != "openpage-test" {
		t.Errorf("user-agent = %q", got)
	}
	if l.Has("headless") {
		t.Error("visible browser should not be headless")
	}
}

func TestNewLauncher_Headless(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.IgnoreHTTPSErrors = false

	l := newLauncher(cfg)

	if !l.Has("headless") {
		t.Error("headless flag should be set")
	}
	if l.Has("ignore-certificate-errors") {
		t.Error("certificate errors should not be ignored")
	}
}

func TestSession_NewPage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no Chrome installation found")
	}

	for _, stealthOn := range []bool{true, false} {
		cfg := DefaultConfig()
		cfg.Headless = true
		cfg.Stealth = stealthOn

		s, err := Launch(cfg, nil)
		if err != nil {
			t.Fatalf("Launch() error = %v", err)
		}

		p, err := s.NewPage()
		if err != nil {
			s.Close()
			t.Fatalf("NewPage() error = %v", err)
		}

		res, err := p.Eval(`() => navigator.webdriver === true`)
		if err != nil {
			s.Close()
			t.Fatalf("Eval() error = %v", err)
		}
		if res.Value.Bool() {
			t.Errorf("navigator.webdriver should be hidden (stealth=%v)", stealthOn)
		}

		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
}
