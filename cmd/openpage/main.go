package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/OpenPage/internal/logger"
	"github.com/PentesterFlow/OpenPage/internal/shutdown"
	"github.com/PentesterFlow/OpenPage/internal/vision"
	"github.com/PentesterFlow/OpenPage/pkg/page"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool
	headless   bool

	// Session flags
	hold        bool
	saveOnExit  bool
	stripDomain bool
	waitFor     time.Duration

	// Captcha flags
	dpi   float64
	local bool
	drag  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "openpage",
		Short: "OpenPage - scripted browser page automation",
		Long: `OpenPage drives a Chrome window for form filling, cookie reuse and
captcha reading. Image captchas and slider gaps are read by a ddddocr
compatible recognition service or, for sliders, by local template matching.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	openCmd := &cobra.Command{
		Use:   "open [url]",
		Short: "Open a URL and print its title",
		Args:  cobra.ExactArgs(1),
		RunE:  runOpen,
	}

	cookiesCmd := &cobra.Command{
		Use:   "cookies",
		Short: "Save and reuse login cookies",
	}
	cookiesSaveCmd := &cobra.Command{
		Use:   "save [url]",
		Short: "Open a URL, wait for a manual login, then save the cookies",
		Args:  cobra.ExactArgs(1),
		RunE:  runCookiesSave,
	}
	cookiesLoginCmd := &cobra.Command{
		Use:   "login [url]",
		Short: "Open a URL and log in with the saved cookies",
		Args:  cobra.ExactArgs(1),
		RunE:  runCookiesLogin,
	}

	screenshotCmd := &cobra.Command{
		Use:   "screenshot [url] [file]",
		Short: "Save a viewport screenshot of a URL",
		Args:  cobra.ExactArgs(2),
		RunE:  runScreenshot,
	}

	captchaCmd := &cobra.Command{
		Use:   "captcha",
		Short: "Read captchas on a page",
	}
	captchaCodeCmd := &cobra.Command{
		Use:   "code [url] [by] [value]",
		Short: "Read an image security code",
		Args:  cobra.ExactArgs(3),
		RunE:  runCaptchaCode,
	}
	captchaSlideCmd := &cobra.Command{
		Use:   "slide [url] [slider-by] [slider] [bg-by] [bg]",
		Short: "Measure how far a slider must move",
		Args:  cobra.ExactArgs(5),
		RunE:  runCaptchaSlide,
	}
	captchaMatchCmd := &cobra.Command{
		Use:   "match [slider.png] [bg.png]",
		Short: "Locate a slider piece in a background image offline",
		Args:  cobra.ExactArgs(2),
		RunE:  runCaptchaMatch,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write the default configuration to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigInit,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Hide the browser window")

	// Session flags
	openCmd.Flags().BoolVar(&hold, "hold", false, "Keep the browser open until interrupted")
	openCmd.Flags().BoolVar(&saveOnExit, "save-cookies", false, "Save cookies before closing")
	cookiesSaveCmd.Flags().DurationVar(&waitFor, "wait", 0, "Time to log in before saving (0 waits for an interrupt)")
	cookiesLoginCmd.Flags().BoolVar(&stripDomain, "strip-domain", false, "Bind cookies to the opened URL instead of their domain")
	cookiesLoginCmd.Flags().BoolVar(&hold, "hold", false, "Keep the browser open until interrupted")

	// Captcha flags
	for _, cmd := range []*cobra.Command{captchaCodeCmd, captchaSlideCmd} {
		cmd.Flags().Float64Var(&dpi, "dpi", 0, "Screenshot pixels per CSS pixel (default from config)")
	}
	captchaSlideCmd.Flags().BoolVar(&local, "local", false, "Use local template matching instead of the recognition service")
	captchaSlideCmd.Flags().BoolVar(&drag, "drag", false, "Drag the slider by the measured distance")

	cookiesCmd.AddCommand(cookiesSaveCmd, cookiesLoginCmd)
	captchaCmd.AddCommand(captchaCodeCmd, captchaSlideCmd, captchaMatchCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(openCmd, cookiesCmd, screenshotCmd, captchaCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration from the config file and flags.
func loadConfig(cmd *cobra.Command) (*page.Config, error) {
	config := page.DefaultConfig()
	if configFile != "" {
		fileConfig, err := page.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}

	if cmd.Flags().Changed("headless") {
		config.Browser.Headless = headless
	}
	if cmd.Flags().Changed("dpi") {
		config.DPI = dpi
	}
	config.Verbose = config.Verbose || verbose
	config.Debug = config.Debug || debug

	return config, config.Validate()
}

func newLogger(config *page.Config) *logger.Logger {
	level := logger.WarnLevel
	if config.Debug {
		level = logger.DebugLevel
	} else if config.Verbose {
		level = logger.InfoLevel
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Component: "openpage"})
	logger.SetGlobal(log)
	return log
}

// session opens a page at url and registers its teardown. An interrupt
// runs the registered cleanups at once, last registered first.
func session(cmd *cobra.Command, url string) (*page.Page, *shutdown.Handler, *page.Config, error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	log := newLogger(config)

	h := shutdown.New(shutdown.Config{Log: log})
	p, err := page.New(
		page.WithConfig(config),
		page.WithLogger(log.WithComponent("page")),
	)
	if err != nil {
		h.Shutdown()
		return nil, nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}
	h.Register("browser", func(context.Context) error {
		if config.Debug {
			printStats(p)
		}
		return p.Quit()
	})
	h.Listen()

	if err := p.Open(url); err != nil {
		finish(h)
		return nil, nil, nil, err
	}
	return p, h, config, nil
}

// finish tears the session down and reports cleanup failures.
func finish(h *shutdown.Handler) error {
	result := h.Shutdown()
	if result.Signal != nil {
		fmt.Fprintf(os.Stderr, "Interrupted by %v\n", result.Signal)
	}
	if result.HasErrors() {
		return fmt.Errorf("shutdown: %w", result.Errors[0])
	}
	return nil
}

// holdOpen blocks until interrupted or d elapses. Zero d waits for an
// interrupt only.
func holdOpen(h *shutdown.Handler, d time.Duration) {
	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
		fmt.Printf("Waiting %v...\n", d)
	} else {
		fmt.Println("Press Ctrl+C to close the browser")
	}

	select {
	case <-timeout:
	case <-h.Done():
	}
}

// saveOnShutdown saves the cookies before the browser closes.
func saveOnShutdown(h *shutdown.Handler, p *page.Page) {
	h.Register("cookies", func(context.Context) error {
		saved, err := p.SaveCookies()
		if err != nil {
			return err
		}
		fmt.Printf("Saved %d cookies to %s\n", len(saved), p.Config().Cookie.StorePath())
		return nil
	})
}

func printStats(p *page.Page) {
	stats := p.Stats()
	fmt.Println()
	fmt.Println("Session Statistics")
	fmt.Printf("  Actions:     %d\n", stats.ActionsTotal)
	fmt.Printf("  Errors:      %d (%.1f%%)\n", stats.ErrorsTotal, stats.ErrorRate()*100)
	fmt.Printf("  Navigations: %d\n", stats.Navigations)
	fmt.Printf("  Uptime:      %v\n", stats.Uptime.Round(time.Millisecond))
}

func runOpen(cmd *cobra.Command, args []string) error {
	p, h, _, err := session(cmd, args[0])
	if err != nil {
		return err
	}

	title, err := p.Title()
	if err != nil {
		finish(h)
		return err
	}
	fmt.Printf("Title: %s\n", title)

	if saveOnExit {
		saveOnShutdown(h, p)
	}
	if hold {
		holdOpen(h, 0)
	}
	return finish(h)
}

func runCookiesSave(cmd *cobra.Command, args []string) error {
	p, h, _, err := session(cmd, args[0])
	if err != nil {
		return err
	}

	saveOnShutdown(h, p)
	fmt.Println("Log in in the browser window.")
	holdOpen(h, waitFor)
	return finish(h)
}

func runCookiesLogin(cmd *cobra.Command, args []string) error {
	p, h, _, err := session(cmd, args[0])
	if err != nil {
		return err
	}

	if err := p.CookieLogin(stripDomain); err != nil {
		finish(h)
		return err
	}
	title, _ := p.Title()
	fmt.Printf("Logged in with saved cookies: %s\n", title)

	if hold {
		holdOpen(h, 0)
	}
	return finish(h)
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	p, h, _, err := session(cmd, args[0])
	if err != nil {
		return err
	}

	if err := p.SaveScreenshot(args[1]); err != nil {
		finish(h)
		return err
	}
	fmt.Printf("Screenshot saved to %s\n", args[1])
	return finish(h)
}

func runCaptchaCode(cmd *cobra.Command, args []string) error {
	p, h, config, err := session(cmd, args[0])
	if err != nil {
		return err
	}

	text, err := p.SecurityCode(page.Locator{By: args[1], Value: args[2]}, config.DPI)
	if err != nil {
		finish(h)
		return err
	}
	fmt.Println(text)
	return finish(h)
}

func runCaptchaSlide(cmd *cobra.Command, args []string) error {
	p, h, config, err := session(cmd, args[0])
	if err != nil {
		return err
	}

	slider := page.Locator{By: args[1], Value: args[2]}
	background := page.Locator{By: args[3], Value: args[4]}

	var x int
	if local {
		x, err = p.SliderDistanceLocal(slider, background, config.DPI)
	} else {
		x, err = p.SliderDistance(slider, background, config.DPI)
	}
	if err != nil {
		finish(h)
		return err
	}
	fmt.Println(x)

	if drag {
		if err := p.MoveSlider(slider, float64(x)); err != nil {
			finish(h)
			return err
		}
	}
	return finish(h)
}

func runCaptchaMatch(cmd *cobra.Command, args []string) error {
	slider, err := readImage(args[0])
	if err != nil {
		return err
	}
	background, err := readImage(args[1])
	if err != nil {
		return err
	}

	x, err := vision.SlideOffset(slider, background)
	if err != nil {
		return err
	}
	fmt.Println(x)
	return nil
}

func readImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	img, err := vision.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.SaveToFile(args[0]); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Configuration written to %s\n", args[0])
	return nil
}
