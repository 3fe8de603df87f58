package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// maskScript is the light disguise used when the full stealth bundle is
// switched off. It only removes the markers login pages check first.
const maskScript = `(() => {
	const define = (obj, key, value) =>
		Object.defineProperty(obj, key, { get: () => value, configurable: true });

	define(Navigator.prototype, 'webdriver', undefined);
	if (!navigator.languages || navigator.languages.length === 0) {
		define(Navigator.prototype, 'languages', ['zh-CN', 'zh', 'en']);
	}
	if (navigator.plugins.length === 0) {
		define(Navigator.prototype, 'plugins', [1, 2, 3].map(i => ({ name: 'Plugin ' + i })));
	}
	window.chrome = window.chrome || { runtime: {} };
})();`

// HideAutomation installs maskScript so it runs before every document
// loaded in page.
func HideAutomation(page *rod.Page) error {
	_, err := page.EvalOnNewDocument(maskScript)
	return err
}

// Prepare disguises a window the browser opened by itself, such as a
// popup, the same way NewPage prepares its windows. It applies to the
// next document loaded in it.
func (s *Session) Prepare(page *rod.Page) error {
	if !s.config.Stealth {
		return HideAutomation(page)
	}
	_, err := page.EvalOnNewDocument(stealth.JS)
	return err
}
