package page

import (
	"fmt"
	"strings"

	"github.com/PentesterFlow/OpenPage/internal/errors"
)

// Locator strategies.
const (
	ByID              = "id"
	ByName            = "name"
	ByClassName       = "class name"
	ByTagName         = "tag name"
	ByCSSSelector     = "css selector"
	ByXPath           = "xpath"
	ByLinkText        = "link text"
	ByPartialLinkText = "partial link text"
)

// Locator identifies elements by a strategy and a value. It is resolved
// again on every call.
type Locator struct {
	By    string `json:"by" yaml:"by"`
	Value string `json:"value" yaml:"value"`
}

// ID locates by element id.
func ID(id string) Locator { return Locator{By: ByID, Value: id} }

// Name locates by the name attribute.
func Name(name string) Locator { return Locator{By: ByName, Value: name} }

// ClassName locates by a single class name.
func ClassName(class string) Locator { return Locator{By: ByClassName, Value: class} }

// TagName locates by tag.
func TagName(tag string) Locator { return Locator{By: ByTagName, Value: tag} }

// CSS locates by CSS selector.
func CSS(selector string) Locator { return Locator{By: ByCSSSelector, Value: selector} }

// XPath locates by XPath expression.
func XPath(expr string) Locator { return Locator{By: ByXPath, Value: expr} }

// LinkText locates anchors whose visible text equals text.
func LinkText(text string) Locator { return Locator{By: ByLinkText, Value: text} }

// PartialLinkText locates anchors whose visible text contains text.
func PartialLinkText(text string) Locator { return Locator{By: ByPartialLinkText, Value: text} }

// String renders the locator as "by=value".
func (l Locator) String() string {
	return l.By + "=" + l.Value
}

// query is a locator translated for the driver. Exactly one of css and
// xpath is set.
type query struct {
	css   string
	xpath string
}

// Validate checks the strategy and value.
func (l Locator) Validate() error {
	_, err := l.query()
	return err
}

func (l Locator) query() (query, error) {
	if l.Value == "" {
		return query{}, errors.NewInvalidArgumentError("locate", fmt.Sprintf("locator %q has an empty value", l.By))
	}

	switch strings.ToLower(l.By) {
	case ByID:
		return query{css: fmt.Sprintf("[id=%s]", cssString(l.Value))}, nil
	case ByName:
		return query{css: fmt.Sprintf("[name=%s]", cssString(l.Value))}, nil
	case ByClassName:
		if strings.ContainsAny(l.Value, " \t\n") {
			return query{}, errors.NewInvalidArgumentError("locate", "compound class names are not permitted")
		}
		return query{css: "." + cssIdent(l.Value)}, nil
	case ByTagName:
		return query{css: l.Value}, nil
	case ByCSSSelector:
		return query{css: l.Value}, nil
	case ByXPath:
		return query{xpath: l.Value}, nil
	case ByLinkText:
		return query{xpath: fmt.Sprintf("//a[normalize-space(.)=%s]", xpathLiteral(strings.TrimSpace(l.Value)))}, nil
	case ByPartialLinkText:
		return query{xpath: fmt.Sprintf("//a[contains(normalize-space(.),%s)]", xpathLiteral(strings.TrimSpace(l.Value)))}, nil
	default:
		return query{}, errors.NewInvalidArgumentError("locate", fmt.Sprintf("unknown locator strategy %q", l.By))
	}
}

// cssString quotes s as a CSS string.
func cssString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// cssIdent escapes s for use as a CSS identifier.
func cssIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, `\%x `, r)
			} else {
				b.WriteRune(r)
			}
		case r == '-' || r == '_' || r >= 0x80 ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// xpathLiteral quotes s as an XPath string literal. Values holding both
// quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	items := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			items = append(items, `"'"`)
		}
		if part != "" {
			items = append(items, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(items, ",") + ")"
}

// normalizeIndex resolves a possibly negative index against n choices.
// Valid indexes are -n..n-1.
func normalizeIndex(operation string, index, n int) (int, error) {
	if index < -n || index >= n {
		return 0, errors.NewRangeError(operation, index, n)
	}
	if index < 0 {
		index += n
	}
	return index, nil
}
