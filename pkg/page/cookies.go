package page

import (
	"net/http/cookiejar"

	"github.com/PentesterFlow/OpenPage/internal/cookie"
	"github.com/PentesterFlow/OpenPage/internal/errors"
)

// SaveCookies writes the cookies visible to the current window to the
// cookie store and returns them.
func (p *Page) SaveCookies() ([]cookie.Cookie, error) {
	var saved []cookie.Cookie
	err := p.do("save_cookies", "", func() error {
		raw, err := p.page.Context(p.ctx).Cookies(nil)
		if err != nil {
			return err
		}

		saved = cookie.FromProto(raw)
		if err := p.cookies.Save(saved); err != nil {
			return errors.NewIOError("save_cookies", p.config.Cookie.StorePath(), err)
		}

		p.metrics.RecordCookies(len(saved), true)
		p.log.WithField("cookies", len(saved)).Info("Cookies saved")
		return nil
	})
	return saved, err
}

// CookieLogin replaces the browser cookies with the stored ones and
// reloads the current window. Expiry is always dropped; the domain is
// dropped when stripDomain is set so the cookies bind to the current
// URL.
func (p *Page) CookieLogin(stripDomain bool) error {
	return p.do("cookie_login", "", func() error {
		stored, err := p.cookies.Load()
		if err != nil {
			return errors.NewIOError("cookie_login", p.config.Cookie.StorePath(), err)
		}

		pg := p.page.Context(p.ctx)
		info, err := pg.Info()
		if err != nil {
			return err
		}

		if err := pg.SetCookies(nil); err != nil {
			return err
		}
		cookies := cookie.StripForLogin(stored, stripDomain)
		if err := pg.SetCookies(cookie.Params(cookies, info.URL)); err != nil {
			return err
		}
		p.metrics.RecordCookies(len(cookies), false)

		return p.reload("cookie_login")
	})
}

// CookieJar returns the stored cookies as an HTTP cookie jar for rawURL,
// for reuse outside the browser.
func (p *Page) CookieJar(rawURL string) (*cookiejar.Jar, error) {
	var jar *cookiejar.Jar
	err := p.do("cookie_jar", rawURL, func() error {
		stored, err := p.cookies.Load()
		if err != nil {
			return errors.NewIOError("cookie_jar", p.config.Cookie.StorePath(), err)
		}
		jar, err = cookie.Jar(stored, rawURL)
		if err != nil {
			return errors.NewInvalidArgumentError("cookie_jar", err.Error())
		}
		return nil
	})
	return jar, err
}
