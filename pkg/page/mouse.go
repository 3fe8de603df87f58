package page

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/PentesterFlow/OpenPage/internal/errors"
	"github.com/PentesterFlow/OpenPage/internal/logger"
)

// pointer is the mouse of a window. *rod.Mouse satisfies it.
type pointer interface {
	Position() proto.Point
	MoveTo(p proto.Point) error
	Down(button proto.InputMouseButton, clickCount int) error
	Up(button proto.InputMouseButton, clickCount int) error
	Click(button proto.InputMouseButton, clickCount int) error
}

// sliderSteps is how many moves a slider drag is split into.
const sliderSteps = 7

func (p *Page) mouse() pointer {
	return p.page.Mouse
}

// Move moves the mouse by dx, dy from where it is.
func (p *Page) Move(dx, dy float64) error {
	return p.do("move", "", func() error {
		m := p.mouse()
		pos := m.Position()
		return m.MoveTo(proto.Point{X: pos.X + dx, Y: pos.Y + dy})
	})
}

// MoveToElement moves the mouse to the centre of the element matching
// loc, scrolling it into view first.
func (p *Page) MoveToElement(loc Locator) error {
	return p.do("move_to_element", loc.String(), func() error {
		return p.moveTo("move_to_element", loc)
	})
}

// moveTo resolves loc and moves the mouse onto it.
func (p *Page) moveTo(operation string, loc Locator) error {
	el, err := p.find(operation, loc, p.implicitWait)
	if err != nil {
		return err
	}
	pt, err := p.centre(operation, loc.String(), el)
	if err != nil {
		return err
	}
	return p.mouse().MoveTo(pt)
}

// centre returns a point inside el in viewport coordinates.
func (p *Page) centre(operation, target string, el *rod.Element) (proto.Point, error) {
	if err := el.ScrollIntoView(); err != nil {
		return proto.Point{}, err
	}
	shape, err := el.Shape()
	if err != nil {
		return proto.Point{}, err
	}
	pt := shape.OnePointInside()
	if pt == nil {
		return proto.Point{}, errors.NewNotInteractableError(operation, target, nil)
	}
	return *pt, nil
}

// optionalTarget returns the single locator of a variadic target list.
func optionalTarget(operation string, at []Locator) (*Locator, error) {
	switch len(at) {
	case 0:
		return nil, nil
	case 1:
		return &at[0], nil
	default:
		return nil, errors.NewInvalidArgumentError(operation, "at most one element may be given")
	}
}

// mouseAction moves onto the optional target, then runs fn with the
// mouse.
func (p *Page) mouseAction(operation string, at []Locator, fn func(m pointer) error) error {
	loc, err := optionalTarget(operation, at)
	if err != nil {
		return p.do(operation, "", func() error { return err })
	}

	target := ""
	if loc != nil {
		target = loc.String()
	}
	return p.do(operation, target, func() error {
		if loc != nil {
			if err := p.moveTo(operation, *loc); err != nil {
				return err
			}
		}
		return p.interruptible(operation, target, func() error {
			return fn(p.mouse())
		})
	})
}

// ClickLeft clicks the left button, on the given element if any,
// otherwise where the mouse is.
func (p *Page) ClickLeft(at ...Locator) error {
	return p.mouseAction("click_left", at, func(m pointer) error {
		return m.Click(proto.InputMouseButtonLeft, 1)
	})
}

// ClickRight opens the context menu, on the given element if any.
func (p *Page) ClickRight(at ...Locator) error {
	return p.mouseAction("click_right", at, func(m pointer) error {
		return m.Click(proto.InputMouseButtonRight, 1)
	})
}

// ClickLeftHold presses the left button without releasing it.
func (p *Page) ClickLeftHold(at ...Locator) error {
	return p.mouseAction("click_left_hold", at, func(m pointer) error {
		if err := m.Down(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		p.held = true
		return nil
	})
}

// ClickDoubleLeft double clicks the left button.
func (p *Page) ClickDoubleLeft(at ...Locator) error {
	return p.mouseAction("click_double_left", at, func(m pointer) error {
		if err := m.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		return m.Click(proto.InputMouseButtonLeft, 2)
	})
}

// ReleaseLeft releases the left button, over the given element if any.
func (p *Page) ReleaseLeft(at ...Locator) error {
	return p.mouseAction("release_left", at, func(m pointer) error {
		p.held = false
		return m.Up(proto.InputMouseButtonLeft, 1)
	})
}

// ResetActions releases a button left pressed by ClickLeftHold.
func (p *Page) ResetActions() error {
	return p.do("reset_actions", "", func() error {
		if !p.held {
			return nil
		}
		p.held = false
		return p.mouse().Up(proto.InputMouseButtonLeft, 1)
	})
}

// DragTo drags the element matching src onto the one matching dst.
func (p *Page) DragTo(src, dst Locator) error {
	return p.do("drag_to", src.String()+" -> "+dst.String(), func() error {
		if err := p.moveTo("drag_to", src); err != nil {
			return err
		}
		m := p.mouse()
		if err := m.Down(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}

		el, err := p.find("drag_to", dst, p.implicitWait)
		if err != nil {
			releaseLeft(m, p.log, "drag_to")
			return err
		}
		shape, err := el.Shape()
		if err != nil {
			releaseLeft(m, p.log, "drag_to")
			return err
		}
		pt := shape.OnePointInside()
		if pt == nil {
			releaseLeft(m, p.log, "drag_to")
			return errors.NewNotInteractableError("drag_to", dst.String(), nil)
		}
		if err := m.MoveTo(*pt); err != nil {
			return err
		}
		return m.Up(proto.InputMouseButtonLeft, 1)
	})
}

// Drag drags the element matching loc by dx, dy pixels.
func (p *Page) Drag(loc Locator, dx, dy int) error {
	return p.do("drag", loc.String(), func() error {
		if err := p.moveTo("drag", loc); err != nil {
			return err
		}
		m := p.mouse()
		start := m.Position()
		if err := m.Down(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		if err := m.MoveTo(proto.Point{X: start.X + float64(dx), Y: start.Y + float64(dy)}); err != nil {
			return err
		}
		return m.Up(proto.InputMouseButtonLeft, 1)
	})
}

// MoveSlider presses on the slider and drags it right by about distance
// pixels in seven uneven steps with random pauses, then releases it.
func (p *Page) MoveSlider(loc Locator, distance float64) error {
	return p.do("move_slider", loc.String(), func() error {
		if err := p.moveTo("move_slider", loc); err != nil {
			return err
		}
		m := p.mouse()
		if err := m.Down(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		_, err := slide(m, distance, p.rng, p.sleep, p.log)
		return err
	})
}

// releaseLeft lets go of the left button after a failed drag. The drag
// error is what the caller reports, so a failed release is only logged.
func releaseLeft(m pointer, log *logger.Logger, operation string) {
	if err := m.Up(proto.InputMouseButtonLeft, 1); err != nil {
		log.WithOperation(operation).WithError(err).Debug("Failed to release mouse button")
	}
}

// slide moves a pressed mouse right in sliderSteps steps, each between
// distance/8 and distance/7.5, pausing up to a second after each, and
// releases the button. It returns the step sizes.
func slide(m pointer, distance float64, rng *rand.Rand, sleep func(time.Duration), log *logger.Logger) ([]float64, error) {
	lo, hi := distance/8, distance/7.5
	steps := make([]float64, 0, sliderSteps)

	for i := 0; i < sliderSteps; i++ {
		step := lo + rng.Float64()*(hi-lo)
		pos := m.Position()
		if err := m.MoveTo(proto.Point{X: pos.X + step, Y: pos.Y}); err != nil {
			releaseLeft(m, log, "move_slider")
			return steps, err
		}
		steps = append(steps, step)
		sleep(time.Duration(rng.Float64() * float64(time.Second)))
	}

	return steps, m.Up(proto.InputMouseButtonLeft, 1)
}
