package theme

import (
	"strings"
	"testing"

	"github.com/inkforge/handbook"
)

func TestResolveDefaults(t *testing.T) {
	got := Resolve(handbook.Theme{}, nil)
	if got.ColorPrimary != DefaultPrimary {
		t.Errorf("primary = %s, want %s", got.ColorPrimary, DefaultPrimary)
	}
	if got.ColorBackground != DefaultBackground {
		t.Errorf("background = %s, want %s", got.ColorBackground, DefaultBackground)
	}
	if got.ColorAccent != DefaultAccent {
		t.Errorf("accent = %s, want %s", got.ColorAccent, DefaultAccent)
	}
	if !strings.Contains(got.FontHeading, "Inter") {
		t.Errorf("heading stack = %s", got.FontHeading)
	}
}

func TestResolveModuleOverridesFieldByField(t *testing.T) {
	base := handbook.Theme{ColorPrimary: "#112233", ColorAccent: "#aabbcc", FontBody: "serif"}
	override := &handbook.Theme{ColorPrimary: "#445566"}
	got := Resolve(base, override)
	if got.ColorPrimary != "#445566" {
		t.Errorf("override lost: %s", got.ColorPrimary)
	}
	if got.ColorAccent != "#aabbcc" {
		t.Errorf("unset override field must keep the handbook value, got %s", got.ColorAccent)
	}
	if !strings.Contains(got.FontBody, "Georgia") {
		t.Errorf("body stack = %s", got.FontBody)
	}
}

func TestMergeReturnsRawThemeValues(t *testing.T) {
	base := handbook.Theme{ColorPrimary: "#112233", FontHeading: "serif"}
	override := &handbook.Theme{FontHeading: "mono"}
	got := Merge(base, override)
	if got.FontHeading != "mono" {
		t.Errorf("heading token = %q, want %q", got.FontHeading, "mono")
	}
	if got.ColorPrimary != "#112233" {
		t.Errorf("unset override field must keep the handbook value, got %s", got.ColorPrimary)
	}
	if got := Merge(base, nil); got != base {
		t.Errorf("nil override changed the theme: %+v", got)
	}
}

func TestScopedCSSVariablesUsesSelector(t *testing.T) {
	got := Resolve(handbook.Theme{ColorPrimary: "#445566"}, nil).ScopedCSSVariables("#module-intro")
	if !strings.HasPrefix(got, "#module-intro {") {
		t.Errorf("scoped block = %q", got)
	}
	if !strings.Contains(got, "--color-primary: #445566;") {
		t.Errorf("scoped block missing variable: %q", got)
	}
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"#1d4ed8", "#1d4ed8"},
		{"#ABC", "#aabbcc"},
		{" #fff ", "#ffffff"},
		{"hsl(0, 100%, 50%)", "#ff0000"},
		{"hsl(120 100% 25%)", "#008000"},
		{"hsl(240, 100%, 50%)", "#0000ff"},
		{"hsl(-120, 100%, 50%)", "#0000ff"},
		{"rebeccapurple", "#fallback"},
		{"#12345", "#fallback"},
		{"", "#fallback"},
	}
	for _, tt := range tests {
		if got := NormalizeColor(tt.in, "#fallback"); got != tt.want {
			t.Errorf("NormalizeColor(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFontStackUnknownTokenLeadsStack(t *testing.T) {
	got := FontStack("Comic Relief")
	if !strings.HasPrefix(got, `"Comic Relief"`) {
		t.Errorf("unknown token should lead the stack: %s", got)
	}
	if !strings.Contains(got, "Inter") {
		t.Errorf("default stack should follow: %s", got)
	}
}

func TestCSSVariablesContainsEveryToken(t *testing.T) {
	css := Resolve(handbook.Theme{}, nil).CSSVariables()
	for _, name := range []string{
		"--color-primary", "--color-background", "--color-accent",
		"--font-heading", "--font-body",
	} {
		if !strings.Contains(css, name) {
			t.Errorf("CSSVariables missing %s", name)
		}
	}
	if !strings.HasPrefix(css, ":root {") {
		t.Errorf("variables must be scoped to :root: %s", css)
	}
}
