package page

import (
	"github.com/go-rod/rod"

	"github.com/PentesterFlow/OpenPage/internal/errors"
)

// Select is a dropdown located by PositionList.
type Select struct {
	page   *Page
	el     *rod.Element
	target string
}

// PositionList locates a <select> element.
func (p *Page) PositionList(loc Locator) (*Select, error) {
	var s *Select
	err := p.do("position_list", loc.String(), func() error {
		el, err := p.find("position_list", loc, p.implicitWait)
		if err != nil {
			return err
		}

		tag, err := el.Eval(`() => this.tagName.toLowerCase()`)
		if err != nil {
			return err
		}
		if tag.Value.Str() != "select" {
			return errors.NewInvalidArgumentError("position_list", "element is a <"+tag.Value.Str()+">, not a <select>")
		}

		s = &Select{page: p, el: el, target: loc.String()}
		return nil
	})
	return s, err
}

// ClickList selects the option at index in the dropdown loc. Negative
// indexes count from the end; an index outside the options fails before
// anything is selected.
func (p *Page) ClickList(loc Locator, index int) error {
	s, err := p.PositionList(loc)
	if err != nil {
		return err
	}
	return s.SelectByIndex(index)
}

// Element returns the underlying <select> element.
func (s *Select) Element() *rod.Element {
	return s.el
}

// Options returns the option texts in order.
func (s *Select) Options() ([]string, error) {
	res, err := s.el.Eval(`() => Array.from(this.options).map(o => o.text)`)
	if err != nil {
		return nil, errors.Categorize(err, "options", s.target)
	}

	arr := res.Value.Arr()
	texts := make([]string, len(arr))
	for i, v := range arr {
		texts[i] = v.Str()
	}
	return texts, nil
}

// Len returns the number of options.
func (s *Select) Len() (int, error) {
	res, err := s.el.Eval(`() => this.options.length`)
	if err != nil {
		return 0, errors.Categorize(err, "options", s.target)
	}
	return res.Value.Int(), nil
}

// SelectByIndex selects the option at index and fires input and change
// events.
func (s *Select) SelectByIndex(index int) error {
	return s.page.do("click_list", s.target, func() error {
		n, err := s.Len()
		if err != nil {
			return err
		}

		i, err := normalizeIndex("click_list", index, n)
		if err != nil {
			return err
		}

		_, err = s.el.Eval(`(i) => {
			this.options[i].selected = true;
			this.dispatchEvent(new Event('input', {bubbles: true}));
			this.dispatchEvent(new Event('change', {bubbles: true}));
		}`, i)
		return err
	})
}

// SelectByText selects the options whose text matches.
func (s *Select) SelectByText(texts ...string) error {
	return s.page.do("select_by_text", s.target, func() error {
		if len(texts) == 0 {
			return errors.NewInvalidArgumentError("select_by_text", "at least one option text is required")
		}
		return s.el.Select(texts, true, rod.SelectorTypeText)
	})
}

// Selected returns the texts of the selected options.
func (s *Select) Selected() ([]string, error) {
	res, err := s.el.Eval(`() => Array.from(this.selectedOptions).map(o => o.text)`)
	if err != nil {
		return nil, errors.Categorize(err, "selected", s.target)
	}

	arr := res.Value.Arr()
	texts := make([]string, len(arr))
	for i, v := range arr {
		texts[i] = v.Str()
	}
	return texts, nil
}
