package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/PentesterFlow/OpenPage/internal/errors"
)

// loading is the current window bounded by the page load timeout.
func (p *Page) loading() (*rod.Page, context.CancelFunc) {
	ctx, cancel := p.bounded(p.config.PageLoadTimeout)
	return p.page.Context(ctx), cancel
}

// Open navigates the current window to url and waits for the load event.
func (p *Page) Open(url string) error {
	return p.do("open", url, func() error {
		if url == "" {
			return errors.NewInvalidArgumentError("open", "url must not be empty")
		}

		pg, cancel := p.loading()
		defer cancel()

		p.frames = nil
		err := p.interruptible("open", url, func() error {
			if err := pg.Navigate(url); err != nil {
				return err
			}
			return pg.WaitLoad()
		})
		if err != nil {
			return errors.NewOpenError(url, err)
		}

		p.metrics.RecordNavigation()
		return nil
	})
}

// Refresh reloads the current window.
func (p *Page) Refresh() error {
	return p.do("refresh", "", func() error {
		return p.reload("refresh")
	})
}

func (p *Page) reload(operation string) error {
	pg, cancel := p.loading()
	defer cancel()

	p.frames = nil
	p.metrics.RecordNavigation()
	return p.interruptible(operation, "", func() error {
		if err := pg.Reload(); err != nil {
			return err
		}
		return pg.WaitLoad()
	})
}

// Back goes one step back in history.
func (p *Page) Back() error {
	return p.do("back", "", func() error {
		pg, cancel := p.loading()
		defer cancel()

		if err := pg.NavigateBack(); err != nil {
			return err
		}
		p.frames = nil
		p.metrics.RecordNavigation()
		return pg.WaitLoad()
	})
}

// Forward goes one step forward in history.
func (p *Page) Forward() error {
	return p.do("forward", "", func() error {
		pg, cancel := p.loading()
		defer cancel()

		if err := pg.NavigateForward(); err != nil {
			return err
		}
		p.frames = nil
		p.metrics.RecordNavigation()
		return pg.WaitLoad()
	})
}

// URL returns the address of the current window.
func (p *Page) URL() (string, error) {
	info, err := p.page.Context(p.ctx).Info()
	if err != nil {
		return "", errors.Categorize(err, "url", "")
	}
	return info.URL, nil
}

// Title returns the document title of the current window.
func (p *Page) Title() (string, error) {
	var title string
	err := p.do("title", "", func() error {
		info, err := p.page.Context(p.ctx).Info()
		if err != nil {
			return err
		}
		title = info.Title
		return nil
	})
	return title, err
}

// HTML returns the serialized document of the current context.
func (p *Page) HTML() (string, error) {
	var html string
	err := p.do("html", "", func() error {
		var err error
		html, err = p.current().Context(p.ctx).HTML()
		return err
	})
	return html, err
}

// Document parses the current context's HTML for offline querying.
func (p *Page) Document() (*goquery.Document, error) {
	html, err := p.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.New(errors.Unknown, "document", "", "failed to parse html", err)
	}
	return doc, nil
}

// adopt registers a window in first-seen order and starts listening for
// its dialogs.
func (p *Page) adopt(w *rod.Page) {
	p.windows = append(p.windows, w)
	p.dialogs.watch(p.ctx, w)
}

// syncWindows drops closed windows and adopts windows opened since the
// last call. Windows discovered together are adopted oldest first.
func (p *Page) syncWindows() error {
	pages, err := p.session.Pages()
	if err != nil {
		return err
	}

	live := make(map[proto.TargetTargetID]*rod.Page, len(pages))
	for _, pg := range pages {
		live[pg.TargetID] = pg
	}

	kept := p.windows[:0]
	for _, w := range p.windows {
		if _, ok := live[w.TargetID]; ok {
			kept = append(kept, w)
			delete(live, w.TargetID)
		}
	}
	p.windows = kept

	for i := len(pages) - 1; i >= 0; i-- {
		pg := pages[i]
		if _, ok := live[pg.TargetID]; !ok {
			continue
		}
		if err := p.session.Prepare(pg); err != nil {
			p.log.WithError(err).Debug("Failed to disguise new window")
		}
		p.adopt(pg)
	}
	return nil
}

// Pages returns the number of open windows.
func (p *Page) Pages() (int, error) {
	var n int
	err := p.do("pages", "", func() error {
		if err := p.syncWindows(); err != nil {
			return err
		}
		n = len(p.windows)
		return nil
	})
	return n, err
}

// SwitchPage makes the window at index current. Windows are ordered by
// when they were first seen; negative indexes count from the end.
func (p *Page) SwitchPage(index int) error {
	return p.do("switch_page", fmt.Sprint(index), func() error {
		return p.switchPage(index)
	})
}

func (p *Page) switchPage(index int) error {
	if err := p.syncWindows(); err != nil {
		return err
	}

	i, err := normalizeIndex("switch_page", index, len(p.windows))
	if err != nil {
		return err
	}

	p.page = p.windows[i]
	p.frames = nil
	_, err = p.page.Context(p.ctx).Activate()
	return err
}

// Close switches to the window at index and closes it. The most recently
// seen remaining window becomes current.
func (p *Page) Close(index int) error {
	return p.do("close", fmt.Sprint(index), func() error {
		if err := p.switchPage(index); err != nil {
			return err
		}

		closing := p.page
		if err := closing.Context(p.ctx).Close(); err != nil {
			return err
		}

		for i, w := range p.windows {
			if w == closing {
				p.windows = append(p.windows[:i], p.windows[i+1:]...)
				break
			}
		}

		if n := len(p.windows); n > 0 {
			p.page = p.windows[n-1]
			_, _ = p.page.Context(p.ctx).Activate()
		}
		return nil
	})
}

// SwitchToFrame enters a frame of the current context. frame is either
// an int (the nth iframe or frame element, negative counting from the
// end), a Locator or a *rod.Element.
func (p *Page) SwitchToFrame(frame interface{}) error {
	return p.do("switch_to_frame", fmt.Sprint(frame), func() error {
		var el *rod.Element

		switch v := frame.(type) {
		case int:
			els, err := p.findAll("switch_to_frame", CSS("iframe, frame"))
			if err != nil {
				return err
			}
			i, err := normalizeIndex("switch_to_frame", v, len(els))
			if err != nil {
				return err
			}
			el = els[i]
		case Locator:
			var err error
			el, err = p.find("switch_to_frame", v, p.implicitWait)
			if err != nil {
				return err
			}
		case *rod.Element:
			if v == nil {
				return errors.NewInvalidArgumentError("switch_to_frame", "frame element must not be nil")
			}
			el = v
		default:
			return errors.NewInvalidArgumentError("switch_to_frame",
				fmt.Sprintf("frame must be an int, a Locator or an element, got %T", frame))
		}

		fp, err := el.Frame()
		if err != nil {
			return err
		}
		p.frames = append(p.frames, fp)
		return nil
	})
}

// SwitchToParentFrame leaves the innermost frame. At the top level it
// does nothing.
func (p *Page) SwitchToParentFrame() error {
	return p.do("switch_to_parent_frame", "", func() error {
		if n := len(p.frames); n > 0 {
			p.frames = p.frames[:n-1]
		}
		return nil
	})
}

// SwitchToMain leaves all frames.
func (p *Page) SwitchToMain() error {
	return p.do("switch_to_main", "", func() error {
		p.frames = nil
		return nil
	})
}
