package page

import (
	"testing"
)

func TestLocator_Query(t *testing.T) {
	tests := []struct {
		name      string
		loc       Locator
		wantCSS   string
		wantXPath string
	}{
		{"id", ID("login"), `[id="login"]`, ""},
		{"id with quote", ID(`a"b`), `[id="a\"b"]`, ""},
		{"name", Name("user"), `[name="user"]`, ""},
		{"class", ClassName("btn-primary"), ".btn-primary", ""},
		{"class leading digit", ClassName("1col"), `.\31 col`, ""},
		{"class with colon", ClassName("md:flex"), `.md\:flex`, ""},
		{"tag", TagName("iframe"), "iframe", ""},
		{"css", CSS("form > input[type=submit]"), "form > input[type=submit]", ""},
		{"xpath", XPath("//div[@id='x']"), "", "//div[@id='x']"},
		{"link text", LinkText(" Sign in "), "", "//a[normalize-space(.)='Sign in']"},
		{"partial link text", PartialLinkText("Sign"), "", "//a[contains(normalize-space(.),'Sign')]"},
		{"strategy case", Locator{By: "ID", Value: "go"}, `[id="go"]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.loc.query()
			if err != nil {
				t.Fatalf("query() error = %v", err)
			}
			if q.css != tt.wantCSS {
				t.Errorf("css = %q, want %q", q.css, tt.wantCSS)
			}
			if q.xpath != tt.wantXPath {
				t.Errorf("xpath = %q, want %q", q.xpath, tt.wantXPath)
			}
		})
	}
}

func TestLocator_Validate(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
	}{
		{"empty value", ID("")},
		{"unknown strategy", Locator{By: "accessibility id", Value: "x"}},
		{"compound class", ClassName("btn primary")},
		{"zero locator", Locator{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if !IsInvalidArgument(err) {
				t.Errorf("Validate() = %v, want invalid argument", err)
			}
		})
	}

	if err := CSS("#ok").Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestLocator_String(t *testing.T) {
	if got := XPath("//a").String(); got != "xpath=//a" {
		t.Errorf("String() = %q", got)
	}
}

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"it's", `"it's"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `concat('it',"'",'s "x"')`},
		{`'"`, `concat("'",'"')`},
	}

	for _, tt := range tests {
		if got := xpathLiteral(tt.in); got != tt.want {
			t.Errorf("xpathLiteral(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIndex(t *testing.T) {
	tests := []struct {
		index   int
		n       int
		want    int
		wantErr bool
	}{
		{0, 3, 0, false},
		{2, 3, 2, false},
		{-1, 3, 2, false},
		{-3, 3, 0, false},
		{3, 3, 0, true},
		{-4, 3, 0, true},
		{0, 0, 0, true},
		{-1, 0, 0, true},
	}

	for _, tt := range tests {
		got, err := normalizeIndex("click_list", tt.index, tt.n)
		if tt.wantErr {
			if !IsRangeError(err) {
				t.Errorf("normalizeIndex(%d, %d) error = %v, want range error", tt.index, tt.n, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeIndex(%d, %d) error = %v", tt.index, tt.n, err)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeIndex(%d, %d) = %d, want %d", tt.index, tt.n, got, tt.want)
		}
	}
}
