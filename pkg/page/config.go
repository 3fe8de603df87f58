package page

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/OpenPage/internal/browser"
	"github.com/PentesterFlow/OpenPage/internal/cookie"
)

// Config holds all page configuration.
type Config struct {
	// Browser launch settings
	Browser browser.Config `json:"browser" yaml:"browser"`

	// Implicit wait applied to single element lookups
	ImplicitWait time.Duration `json:"implicit_wait" yaml:"implicit_wait"`

	// Timeout for WaitElement and WaitAlert
	ExplicitWait time.Duration `json:"explicit_wait" yaml:"explicit_wait"`

	// Timeout for ClickFrame to see the element become clickable
	ClickableTimeout time.Duration `json:"clickable_timeout" yaml:"clickable_timeout"`

	// Timeout for Open, Refresh, Back and Forward
	PageLoadTimeout time.Duration `json:"page_load_timeout" yaml:"page_load_timeout"`

	// Pause after each scroll in ScrollLoad
	ScrollPause time.Duration `json:"scroll_pause" yaml:"scroll_pause"`

	// Screenshot pixels per CSS pixel used by the captcha helpers
	DPI float64 `json:"dpi" yaml:"dpi"`

	// Directory captured images are written to
	ImageDir string `json:"image_dir" yaml:"image_dir"`

	// Cookie persistence
	Cookie CookieConfig `json:"cookie" yaml:"cookie"`

	// Recognition service
	OCR OCRConfig `json:"ocr" yaml:"ocr"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`
}

// CookieConfig selects where cookies are stored.
type CookieConfig struct {
	// Backend is "file", "bolt" or "memory"
	Backend string `json:"backend" yaml:"backend"`

	// Path of the cookie file or database; empty picks the backend's
	// default (./cookie/cookie.json or ./cookie/cookie.db)
	Path string `json:"path" yaml:"path"`
}

// StorePath returns where the configured backend keeps cookies.
func (c CookieConfig) StorePath() string {
	return cookie.ResolvePath(c.Backend, c.Path)
}

// OCRConfig configures the recognition service client.
type OCRConfig struct {
	Endpoint          string        `json:"endpoint" yaml:"endpoint"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst"`
	MaxRetries        int           `json:"max_retries" yaml:"max_retries"`
}

// DefaultConfig returns a configuration for a visible browser.
func DefaultConfig() *Config {
	return &Config{
		Browser:          browser.DefaultConfig(),
		ImplicitWait:     0,
		ExplicitWait:     10 * time.Second,
		ClickableTimeout: 1000 * time.Second,
		PageLoadTimeout:  30 * time.Second,
		ScrollPause:      time.Second,
		DPI:              1.5,
		ImageDir:         "./images",
		Cookie: CookieConfig{
			Backend: "file",
		},
		OCR: OCRConfig{
			Endpoint:          "http://127.0.0.1:9898",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 5,
			Burst:             2,
			MaxRetries:        2,
		},
	}
}

// HeadlessConfig returns the default configuration with a hidden browser.
func HeadlessConfig() *Config {
	c := DefaultConfig()
	c.Browser.Headless = true
	return c
}

// LoadFromFile loads configuration from a file (JSON or YAML).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file. A .json extension selects
// JSON, anything else YAML.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive")
	}

	if c.ImplicitWait < 0 || c.ExplicitWait < 0 || c.ClickableTimeout < 0 || c.PageLoadTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	if c.ScrollPause < 0 {
		return fmt.Errorf("scroll pause must not be negative")
	}

	if c.ImageDir == "" {
		return fmt.Errorf("image directory is required")
	}

	switch c.Cookie.Backend {
	case "", "file", "memory":
	case "bolt":
		if strings.EqualFold(filepath.Ext(c.Cookie.Path), ".json") {
			return fmt.Errorf("cookie path %q is a JSON file, the bolt backend needs a database path", c.Cookie.Path)
		}
	default:
		return fmt.Errorf("unknown cookie backend %q", c.Cookie.Backend)
	}

	if c.OCR.RequestsPerSecond < 0 {
		return fmt.Errorf("ocr rate limit must not be negative")
	}

	if c.OCR.MaxRetries < 0 {
		return fmt.Errorf("ocr retries must not be negative")
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := json.Marshal(c)
	clone := &Config{}
	json.Unmarshal(data, clone)
	return clone
}
