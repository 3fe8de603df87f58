package page

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"

	"github.com/PentesterFlow/OpenPage/internal/errors"
)

// ExecuteJS runs js as the body of a function in the current context and
// returns its result. Arguments are available to the script as
// arguments[0], arguments[1] and so on; elements are passed by reference.
// When the script opens a dialog the result is null.
func (p *Page) ExecuteJS(js string, args ...interface{}) (gson.JSON, error) {
	var result gson.JSON
	err := p.do("execute_js", "", func() error {
		var err error
		result, err = p.execute("execute_js", js, args...)
		return err
	})
	return result, err
}

func (p *Page) execute(operation, js string, args ...interface{}) (gson.JSON, error) {
	if js == "" {
		return gson.New(nil), errors.NewInvalidArgumentError(operation, "script must not be empty")
	}

	jsArgs := make([]interface{}, len(args))
	for i, arg := range args {
		if el, ok := arg.(*rod.Element); ok {
			if el == nil {
				return gson.New(nil), errors.NewInvalidArgumentError(operation, fmt.Sprintf("argument %d is a nil element", i))
			}
			jsArgs[i] = el.Object
			continue
		}
		jsArgs[i] = arg
	}

	out := make(chan gson.JSON, 1)
	err := p.interruptible(operation, "", func() error {
		res, err := p.current().Context(p.ctx).Eval("function() {\n"+js+"\n}", jsArgs...)
		if err != nil {
			return errors.NewScriptError(operation, err)
		}
		out <- res.Value
		return nil
	})

	select {
	case v := <-out:
		return v, err
	default:
		return gson.New(nil), err
	}
}

// elementScript runs js with the element matching loc as arguments[0].
func (p *Page) elementScript(operation string, loc Locator, js string, args ...interface{}) error {
	return p.do(operation, loc.String(), func() error {
		el, err := p.find(operation, loc, p.implicitWait)
		if err != nil {
			return err
		}
		_, err = p.execute(operation, js, append([]interface{}{el}, args...)...)
		return err
	})
}

// JSClick clicks the element from script, bypassing overlays.
func (p *Page) JSClick(loc Locator) error {
	return p.elementScript("js_click", loc, `arguments[0].click();`)
}

// JSInput sets the element's value from script.
func (p *Page) JSInput(loc Locator, value string) error {
	return p.elementScript("js_input", loc, `arguments[0].value = arguments[1];`, value)
}

// JSModify sets an attribute of the element. Only string and integer
// values are accepted.
func (p *Page) JSModify(loc Locator, attribute string, value interface{}) error {
	if err := checkAttributeValue(value); err != nil {
		return p.do("js_modify", loc.String(), func() error { return err })
	}
	return p.elementScript("js_modify", loc, `arguments[0].setAttribute(arguments[1], String(arguments[2]));`, attribute, value)
}

func checkAttributeValue(value interface{}) error {
	switch value.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	default:
		return errors.NewInvalidArgumentError("js_modify", fmt.Sprintf("attribute value must be a string or an integer, got %T", value))
	}
}

// ShowDisplay makes a hidden element display as a block.
func (p *Page) ShowDisplay(loc Locator) error {
	return p.elementScript("show_display", loc, `arguments[0].style.display = "block";`)
}

// AlertWarning shows message in an alert dialog. The dialog opens after
// the call returns and stays until it is accepted or dismissed.
func (p *Page) AlertWarning(message string) error {
	return p.do("alert_warning", "", func() error {
		_, err := p.execute("alert_warning", `const msg = arguments[0]; setTimeout(() => alert(msg), 0);`, message)
		return err
	})
}

// Debugger pauses script execution when developer tools are open.
func (p *Page) Debugger() error {
	return p.script("debugger", `debugger;`)
}
