// Package cookie persists browser cookies between sessions.
package cookie

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/publicsuffix"
)

// Cookie is a single browser cookie in the JSON layout used by the
// cookie file.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
	Expiry   int64  `json:"expiry,omitempty"`
	SameSite string `json:"sameSite,omitempty"`
}

// FromProto converts cookies read from the browser.
func FromProto(cookies []*proto.NetworkCookie) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		ck := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		}
		if !c.Session && c.Expires > 0 {
			ck.Expiry = int64(c.Expires)
		}
		out = append(out, ck)
	}
	return out
}

// Param converts the cookie into a browser set-cookie parameter. A cookie
// without a domain is bound to pageURL.
func (c Cookie) Param(pageURL string) *proto.NetworkCookieParam {
	p := &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: proto.NetworkCookieSameSite(c.SameSite),
	}
	if c.Domain == "" {
		p.URL = pageURL
	}
	if c.Expiry > 0 {
		p.Expires = proto.TimeSinceEpoch(c.Expiry)
	}
	return p
}

// Params converts a list of cookies for SetCookies.
func Params(cookies []Cookie, pageURL string) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, c.Param(pageURL))
	}
	return params
}

// StripForLogin prepares stored cookies for re-injection. The expiry is
// always removed so the cookies live for the session; the domain is
// removed when stripDomain is set so the cookies bind to the current page.
func StripForLogin(cookies []Cookie, stripDomain bool) []Cookie {
	out := make([]Cookie, len(cookies))
	for i, c := range cookies {
		c.Expiry = 0
		if stripDomain {
			c.Domain = ""
		}
		out[i] = c
	}
	return out
}

// HTTP converts the cookie into a net/http cookie.
func (c Cookie) HTTP() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if c.Expiry > 0 {
		hc.Expires = time.Unix(c.Expiry, 0)
	}
	switch c.SameSite {
	case "Strict":
		hc.SameSite = http.SameSiteStrictMode
	case "Lax":
		hc.SameSite = http.SameSiteLaxMode
	case "None":
		hc.SameSite = http.SameSiteNoneMode
	}
	return hc
}

// Jar builds an http.CookieJar holding cookies for rawURL, so an
// http.Client can continue the browser session.
func Jar(cookies []Cookie, rawURL string) (*cookiejar.Jar, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", rawURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	hcs := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hcs = append(hcs, c.HTTP())
	}
	jar.SetCookies(u, hcs)
	return jar, nil
}

// Names returns the cookie names in order.
func Names(cookies []Cookie) []string {
	names := make([]string, len(cookies))
	for i, c := range cookies {
		names[i] = c.Name
	}
	return names
}
