package page

import (
	"os"
	"path/filepath"

	"github.com/go-rod/rod"

	"github.com/PentesterFlow/OpenPage/internal/errors"
)

// ScrollLoad scrolls to the bottom n times, pausing after each scroll so
// lazily loaded content can arrive.
func (p *Page) ScrollLoad(n int) error {
	return p.do("scroll_load", "", func() error {
		if n <= 0 {
			return errors.NewInvalidArgumentError("scroll_load", "scroll count must be positive")
		}
		for i := 0; i < n; i++ {
			if _, err := p.execute("scroll_load", scrollToBottomJS); err != nil {
				return err
			}
			p.sleep(p.config.ScrollPause)
		}
		return nil
	})
}

// ScrollIntoView scrolls until the element matching loc is in view,
// aligned to the bottom of the viewport.
func (p *Page) ScrollIntoView(loc Locator) error {
	return p.elementScript("scroll_into_view", loc, scrollIntoViewJS)
}

// ScrollElementIntoView scrolls until el is in view.
func (p *Page) ScrollElementIntoView(el *rod.Element) error {
	return p.do("scroll_element_into_view", "", func() error {
		if el == nil {
			return errors.NewInvalidArgumentError("scroll_element_into_view", "element must not be nil")
		}
		_, err := p.execute("scroll_element_into_view", scrollIntoViewJS, el)
		return err
	})
}

// ScrollSlowToBottom starts scrolling down 30px every 100ms until the
// end of the document. It returns immediately.
func (p *Page) ScrollSlowToBottom() error {
	return p.script("scroll_slow_to_bottom", `
		const root = document.documentElement;
		const timer = setInterval(() => {
			root.scrollTop += 30;
			if (root.scrollTop >= root.scrollHeight - root.clientHeight) clearInterval(timer);
		}, 100);`)
}

// ScrollSlowToTop starts scrolling up 30px every 100ms until the top.
// It returns immediately.
func (p *Page) ScrollSlowToTop() error {
	return p.script("scroll_slow_to_top", `
		const root = document.documentElement;
		const timer = setInterval(() => {
			root.scrollTop -= 30;
			if (root.scrollTop <= 0) clearInterval(timer);
		}, 100);`)
}

// ScrollToBottom jumps to the end of the document.
func (p *Page) ScrollToBottom() error {
	return p.script("scroll_to_bottom", scrollToBottomJS)
}

// ScrollToTop jumps to the top of the document.
func (p *Page) ScrollToTop() error {
	return p.script("scroll_to_top", `window.scrollTo(0, 0);`)
}

const (
	scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight);`
	scrollIntoViewJS = `arguments[0].scrollIntoView(false);`
)

func (p *Page) script(operation, js string) error {
	return p.do(operation, "", func() error {
		_, err := p.execute(operation, js)
		return err
	})
}

// SaveScreenshot writes a PNG of the current viewport to path, creating
// parent directories.
func (p *Page) SaveScreenshot(path string) error {
	return p.do("save_screenshot", path, func() error {
		if path == "" {
			return errors.NewInvalidArgumentError("save_screenshot", "path must not be empty")
		}

		data, err := p.screenshot()
		if err != nil {
			return err
		}

		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.NewIOError("save_screenshot", path, err)
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return errors.NewIOError("save_screenshot", path, err)
		}
		return nil
	})
}

// screenshot captures the viewport of the current window as PNG.
func (p *Page) screenshot() ([]byte, error) {
	data, err := p.page.Context(p.ctx).Screenshot(false, nil)
	if err != nil {
		return nil, err
	}
	p.metrics.RecordScreenshot()
	return data, nil
}
