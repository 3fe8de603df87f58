package page

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/PentesterFlow/OpenPage/internal/errors"
)

// Wait sets the implicit wait used by single element lookups. Zero makes
// a lookup fail at once when nothing matches.
func (p *Page) Wait(d time.Duration) error {
	if d < 0 {
		return errors.NewInvalidArgumentError("wait", "implicit wait must not be negative")
	}
	p.implicitWait = d
	return nil
}

// find resolves the first element matching loc in the current context.
func (p *Page) find(operation string, loc Locator, wait time.Duration) (*rod.Element, error) {
	q, err := loc.query()
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.bounded(wait)
	defer cancel()

	ctxPage := p.current().Context(ctx)
	if wait <= 0 {
		ctxPage = ctxPage.Sleeper(rod.NotFoundSleeper)
	}

	var el *rod.Element
	if q.xpath != "" {
		el, err = ctxPage.ElementX(q.xpath)
	} else {
		el, err = ctxPage.Element(q.css)
	}
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewNotFoundError(operation, loc.String(), err)
		}
		return nil, errors.Categorize(err, operation, loc.String())
	}

	return el.Context(p.ctx).Sleeper(rod.DefaultSleeper), nil
}

// findAll resolves every element matching loc without waiting.
func (p *Page) findAll(operation string, loc Locator) (rod.Elements, error) {
	q, err := loc.query()
	if err != nil {
		return nil, err
	}

	ctxPage := p.current().Context(p.ctx)
	var els rod.Elements
	if q.xpath != "" {
		els, err = ctxPage.ElementsX(q.xpath)
	} else {
		els, err = ctxPage.Elements(q.css)
	}
	if err != nil {
		return nil, errors.Categorize(err, operation, loc.String())
	}
	return els, nil
}

// act bounds an element action by the explicit wait. Running out of time
// means the element never became usable.
func (p *Page) act(operation string, loc string, el *rod.Element, fn func(el *rod.Element) error) error {
	err := p.interruptible(operation, loc, func() error {
		ctx, cancel := p.bounded(p.config.ExplicitWait)
		defer cancel()
		return fn(el.Context(ctx))
	})
	if err != nil && stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewNotInteractableError(operation, loc, err)
	}
	return err
}

// Position returns the first element matching loc, honouring the
// implicit wait.
func (p *Page) Position(loc Locator) (*rod.Element, error) {
	var el *rod.Element
	err := p.do("position", loc.String(), func() error {
		var err error
		el, err = p.find("position", loc, p.implicitWait)
		return err
	})
	return el, err
}

// Positions returns every element matching loc. No match is an empty
// list, not an error.
func (p *Page) Positions(loc Locator) (rod.Elements, error) {
	var els rod.Elements
	err := p.do("positions", loc.String(), func() error {
		var err error
		els, err = p.findAll("positions", loc)
		return err
	})
	return els, err
}

// GetLen returns how many elements match loc.
func (p *Page) GetLen(loc Locator) (int, error) {
	els, err := p.Positions(loc)
	return len(els), err
}

// Exists reports whether loc matches an element. Only lookup failures
// other than "not found" are returned as errors.
func (p *Page) Exists(loc Locator) (bool, error) {
	_, err := p.find("exists", loc, p.implicitWait)
	if err == nil {
		return true, nil
	}
	if errors.IsType(err, errors.NotFound) {
		return false, nil
	}
	return false, err
}

// WaitElement waits up to the explicit wait for loc to appear.
func (p *Page) WaitElement(loc Locator) (*rod.Element, error) {
	var el *rod.Element
	err := p.do("wait_element", loc.String(), func() error {
		var err error
		el, err = p.find("wait_element", loc, p.config.ExplicitWait)
		if errors.IsType(err, errors.NotFound) {
			return errors.NewTimeoutError("wait_element", loc.String(), err)
		}
		return err
	})
	return el, err
}

// Click clicks the element matching loc.
func (p *Page) Click(loc Locator) error {
	return p.do("click", loc.String(), func() error {
		el, err := p.find("click", loc, p.implicitWait)
		if err != nil {
			return err
		}
		return p.act("click", loc.String(), el, func(el *rod.Element) error {
			return el.Click(proto.InputMouseButtonLeft, 1)
		})
	})
}

// ClickElement clicks an element obtained earlier.
func (p *Page) ClickElement(el *rod.Element) error {
	return p.do("click_element", "", func() error {
		if el == nil {
			return errors.NewInvalidArgumentError("click_element", "element must not be nil")
		}
		return p.act("click_element", "", el, func(el *rod.Element) error {
			return el.Click(proto.InputMouseButtonLeft, 1)
		})
	})
}

// ClickFrame waits up to the clickable timeout for loc to be present and
// interactable, then clicks it.
func (p *Page) ClickFrame(loc Locator) error {
	return p.do("click_frame", loc.String(), func() error {
		el, err := p.find("click_frame", loc, p.config.ClickableTimeout)
		if err != nil {
			return err
		}

		ctx, cancel := p.bounded(p.config.ClickableTimeout)
		defer cancel()

		if _, err := el.Context(ctx).WaitInteractable(); err != nil {
			return errors.NewNotInteractableError("click_frame", loc.String(), err)
		}
		return p.act("click_frame", loc.String(), el, func(el *rod.Element) error {
			return el.Click(proto.InputMouseButtonLeft, 1)
		})
	})
}

// Submit submits the form the element belongs to.
func (p *Page) Submit(loc Locator) error {
	return p.do("submit", loc.String(), func() error {
		el, err := p.find("submit", loc, p.implicitWait)
		if err != nil {
			return err
		}
		return p.interruptible("submit", loc.String(), func() error {
			_, err := el.Eval(`() => {
				const form = this.form || this.closest('form');
				if (!form) throw new Error('element is not inside a form');
				if (form.requestSubmit) form.requestSubmit(); else form.submit();
			}`)
			return err
		})
	})
}

// Input types text into the element, appending to its current value.
func (p *Page) Input(loc Locator, text string) error {
	return p.do("input", loc.String(), func() error {
		el, err := p.find("input", loc, p.implicitWait)
		if err != nil {
			return err
		}
		return p.act("input", loc.String(), el, func(el *rod.Element) error {
			return el.Input(text)
		})
	})
}

// Clear empties an input or textarea.
func (p *Page) Clear(loc Locator) error {
	return p.do("clear", loc.String(), func() error {
		el, err := p.find("clear", loc, p.implicitWait)
		if err != nil {
			return err
		}
		return p.act("clear", loc.String(), el, func(el *rod.Element) error {
			if err := el.SelectAllText(); err != nil {
				return err
			}
			return el.Input("")
		})
	})
}

// IsShown reports whether the element is visible.
func (p *Page) IsShown(loc Locator) (bool, error) {
	var shown bool
	err := p.do("is_shown", loc.String(), func() error {
		el, err := p.find("is_shown", loc, p.implicitWait)
		if err != nil {
			return err
		}
		shown, err = el.Visible()
		return err
	})
	return shown, err
}

// IsEnabled reports whether the element is not disabled.
func (p *Page) IsEnabled(loc Locator) (bool, error) {
	return p.elementBool("is_enabled", loc, `() => !this.disabled`)
}

// IsSelected reports whether a checkbox, radio button or option is
// selected.
func (p *Page) IsSelected(loc Locator) (bool, error) {
	return p.elementBool("is_selected", loc, `() => !!(this.checked || this.selected)`)
}

func (p *Page) elementBool(operation string, loc Locator, js string) (bool, error) {
	var v bool
	err := p.do(operation, loc.String(), func() error {
		el, err := p.find(operation, loc, p.implicitWait)
		if err != nil {
			return err
		}
		res, err := el.Eval(js)
		if err != nil {
			return err
		}
		v = res.Value.Bool()
		return nil
	})
	return v, err
}
