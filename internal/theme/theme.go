// Package theme converts author-chosen colors and font tokens into the
// variable set consumed by all renderers. Resolution never fails: missing
// or unparsable fields fall back to built-in defaults.
package theme

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/inkforge/handbook"
)

// Built-in defaults applied when a theme field is empty or unparsable.
const (
	DefaultPrimary    = "#1d4ed8"
	DefaultBackground = "#ffffff"
	DefaultAccent     = "#f59e0b"
	DefaultHeading    = "sans"
	DefaultBody       = "sans"
)

// fontStacks maps font tokens to concrete font references.
var fontStacks = map[string]string{
	"sans":  `"Inter", "Helvetica Neue", Arial, sans-serif`,
	"serif": `"Georgia", "Times New Roman", serif`,
	"slab":  `"Roboto Slab", "Georgia", serif`,
	"mono":  `"JetBrains Mono", "Courier New", monospace`,
}

// Tokens is the resolved, renderer-ready form of a theme. Colors are
// normalized to #rrggbb.
type Tokens struct {
	ColorPrimary    string
	ColorBackground string
	ColorAccent     string
	FontHeading     string
	FontBody        string
	Cover           string
	BackCover       string
}

// Merge overlays the set fields of a module theme over the handbook theme.
// moduleTheme may be nil. The result still carries raw theme values; Resolve
// normalizes them into Tokens.
func Merge(handbookTheme handbook.Theme, moduleTheme *handbook.Theme) handbook.Theme {
	merged := handbookTheme
	if moduleTheme != nil {
		if moduleTheme.ColorPrimary != "" {
			merged.ColorPrimary = moduleTheme.ColorPrimary
		}
		if moduleTheme.ColorBackground != "" {
			merged.ColorBackground = moduleTheme.ColorBackground
		}
		if moduleTheme.ColorAccent != "" {
			merged.ColorAccent = moduleTheme.ColorAccent
		}
		if moduleTheme.FontHeading != "" {
			merged.FontHeading = moduleTheme.FontHeading
		}
		if moduleTheme.FontBody != "" {
			merged.FontBody = moduleTheme.FontBody
		}
		if moduleTheme.Cover != "" {
			merged.Cover = moduleTheme.Cover
		}
		if moduleTheme.BackCover != "" {
			merged.BackCover = moduleTheme.BackCover
		}
	}
	return merged
}

// Resolve merges a module theme override over the handbook theme
// field-by-field and normalizes the result. moduleTheme may be nil.
func Resolve(handbookTheme handbook.Theme, moduleTheme *handbook.Theme) Tokens {
	merged := Merge(handbookTheme, moduleTheme)
	return Tokens{
		ColorPrimary:    NormalizeColor(merged.ColorPrimary, DefaultPrimary),
		ColorBackground: NormalizeColor(merged.ColorBackground, DefaultBackground),
		ColorAccent:     NormalizeColor(merged.ColorAccent, DefaultAccent),
		FontHeading:     FontStack(merged.FontHeading),
		FontBody:        FontStack(merged.FontBody),
		Cover:           merged.Cover,
		BackCover:       merged.BackCover,
	}
}

// CSSVariables renders the tokens as a CSS custom-property block scoped to
// :root, shared verbatim by the preview and the offline bundle.
func (t Tokens) CSSVariables() string {
	return t.ScopedCSSVariables(":root")
}

// ScopedCSSVariables renders the tokens as a custom-property block under the
// given selector, so a section can override the :root values.
func (t Tokens) ScopedCSSVariables(selector string) string {
	var b strings.Builder
	b.WriteString(selector + " {\n")
	fmt.Fprintf(&b, "  --color-primary: %s;\n", t.ColorPrimary)
	fmt.Fprintf(&b, "  --color-background: %s;\n", t.ColorBackground)
	fmt.Fprintf(&b, "  --color-accent: %s;\n", t.ColorAccent)
	fmt.Fprintf(&b, "  --font-heading: %s;\n", t.FontHeading)
	fmt.Fprintf(&b, "  --font-body: %s;\n", t.FontBody)
	b.WriteString("}\n")
	return b.String()
}

// FontStack resolves a font token to a concrete font reference. Unknown
// tokens that look like font names are used as-is ahead of the default
// stack; empty tokens use the default.
func FontStack(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		token = DefaultHeading
	}
	if stack, ok := fontStacks[strings.ToLower(token)]; ok {
		return stack
	}
	return fmt.Sprintf("%q, %s", token, fontStacks[DefaultBody])
}

var (
	hexRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	hslRe = regexp.MustCompile(`^hsl\(\s*(-?[\d.]+)\s*,\s*([\d.]+)%\s*,\s*([\d.]+)%\s*\)$`)
	hslWS = regexp.MustCompile(`^hsl\(\s*(-?[\d.]+)\s+([\d.]+)%\s+([\d.]+)%\s*\)$`)
)

// NormalizeColor converts a hex or hsl() color to #rrggbb, falling back to
// def when the value cannot be parsed.
func NormalizeColor(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	if hexRe.MatchString(value) {
		return expandHex(strings.ToLower(value))
	}
	m := hslRe.FindStringSubmatch(value)
	if m == nil {
		m = hslWS.FindStringSubmatch(value)
	}
	if m != nil {
		h, _ := strconv.ParseFloat(m[1], 64)
		s, _ := strconv.ParseFloat(m[2], 64)
		l, _ := strconv.ParseFloat(m[3], 64)
		return hslToHex(h, s/100, l/100)
	}
	return def
}

func expandHex(hex string) string {
	if len(hex) == 4 {
		return fmt.Sprintf("#%c%c%c%c%c%c", hex[1], hex[1], hex[2], hex[2], hex[3], hex[3])
	}
	return hex
}

func hslToHex(h, s, l float64) string {
	h = math.Mod(math.Mod(h, 360)+360, 360)
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	toByte := func(v float64) int {
		n := int(math.Round((v + m) * 255))
		if n < 0 {
			n = 0
		}
		if n > 255 {
			n = 255
		}
		return n
	}
	return fmt.Sprintf("#%02x%02x%02x", toByte(r), toByte(g), toByte(b))
}
