package page

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/PentesterFlow/OpenPage/internal/errors"
)

// dialogs tracks the JavaScript dialog open in any watched window.
type dialogs struct {
	mu     sync.Mutex
	open   *proto.PageJavascriptDialogOpening
	owner  *rod.Page
	prompt *string
	notify chan struct{}
}

func newDialogs() *dialogs {
	return &dialogs{notify: make(chan struct{})}
}

// watch listens for dialogs of w until ctx is done.
func (d *dialogs) watch(ctx context.Context, w *rod.Page) {
	wait := w.Context(ctx).EachEvent(
		func(e *proto.PageJavascriptDialogOpening) {
			d.mu.Lock()
			d.open = e
			d.owner = w
			d.prompt = nil
			close(d.notify)
			d.notify = make(chan struct{})
			d.mu.Unlock()
		},
		func(e *proto.PageJavascriptDialogClosed) {
			d.mu.Lock()
			if d.owner == w {
				d.open = nil
				d.owner = nil
				d.prompt = nil
			}
			d.mu.Unlock()
		},
	)
	go wait()
}

// current returns the open dialog and its window.
func (d *dialogs) current() (*proto.PageJavascriptDialogOpening, *rod.Page, <-chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open, d.owner, d.notify
}

func (d *dialogs) setPrompt(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil {
		return false
	}
	d.prompt = &text
	return true
}

// handle answers the open dialog.
func (d *dialogs) handle(ctx context.Context, operation string, accept bool) error {
	d.mu.Lock()
	open, owner, prompt := d.open, d.owner, d.prompt
	d.mu.Unlock()

	if open == nil {
		return errors.NewNotFoundError(operation, "alert", nil)
	}

	req := proto.PageHandleJavaScriptDialog{Accept: accept}
	if accept {
		if prompt != nil {
			req.PromptText = *prompt
		} else {
			req.PromptText = open.DefaultPrompt
		}
	}
	if err := req.Call(owner.Context(ctx)); err != nil {
		return err
	}

	d.mu.Lock()
	if d.open == open {
		d.open = nil
		d.owner = nil
		d.prompt = nil
	}
	d.mu.Unlock()
	return nil
}

// AlertExists reports whether a JavaScript dialog is open.
func (p *Page) AlertExists() bool {
	open, _, _ := p.dialogs.current()
	return open != nil
}

// WaitAlert waits up to the explicit wait for a dialog to open.
func (p *Page) WaitAlert() error {
	return p.do("wait_alert", "", func() error {
		timer := time.NewTimer(p.config.ExplicitWait)
		defer timer.Stop()

		for {
			open, _, notify := p.dialogs.current()
			if open != nil {
				return nil
			}
			select {
			case <-notify:
			case <-timer.C:
				return errors.NewTimeoutError("wait_alert", "alert", nil)
			case <-p.ctx.Done():
				return p.ctx.Err()
			}
		}
	})
}

// AlertText returns the message of the open dialog.
func (p *Page) AlertText() (string, error) {
	var text string
	err := p.do("alert_text", "", func() error {
		open, _, _ := p.dialogs.current()
		if open == nil {
			return errors.NewNotFoundError("alert_text", "alert", nil)
		}
		text = open.Message
		return nil
	})
	return text, err
}

// AcceptAlert accepts the open dialog, submitting any text given to
// InputAlert.
func (p *Page) AcceptAlert() error {
	return p.do("accept_alert", "", func() error {
		return p.dialogs.handle(p.ctx, "accept_alert", true)
	})
}

// DismissAlert dismisses the open dialog.
func (p *Page) DismissAlert() error {
	return p.do("dismiss_alert", "", func() error {
		return p.dialogs.handle(p.ctx, "dismiss_alert", false)
	})
}

// InputAlert sets the text a prompt dialog submits when accepted.
func (p *Page) InputAlert(text string) error {
	return p.do("input_alert", "", func() error {
		open, _, _ := p.dialogs.current()
		if open == nil {
			return errors.NewNotFoundError("input_alert", "alert", nil)
		}
		if open.Type != proto.PageDialogTypePrompt {
			return errors.NewNotInteractableError("input_alert", "alert", nil)
		}
		p.dialogs.setPrompt(text)
		return nil
	})
}
