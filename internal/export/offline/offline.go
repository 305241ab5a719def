// Package offline generates the self-contained handbook export: one HTML
// file with embedded styles and an imperative script that reproduces the
// accessibility toolbar and quiz interactivity without any server or
// reactive runtime.
package offline

import (
	"archive/zip"
	"embed"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/htmlrender"
	"github.com/inkforge/handbook/internal/theme"
)

//go:embed assets/*
var assetsFS embed.FS

const readme = `Offline handbook bundle
=======================

Open index.html directly in any web browser. No server, installation or
network connection is required; styles and scripts are embedded in the file.

The toolbar at the top offers printing (via the browser's print dialog),
font-size adjustment, and a high-contrast mode. Quizzes are interactive:
pick an answer to check it, then use "Try again" to reset.
`

// Bundle is a generated offline export, ready to be written as a directory
// or a zip archive.
type Bundle struct {
	Markup []byte // index.html
	Readme []byte // README.txt
}

// Generator builds offline bundles from handbook snapshots.
type Generator struct {
	handler htmlrender.Handler
}

// NewGenerator creates a generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the snapshot into a bundle. A handbook with no modules
// degrades to a "no content" placeholder document instead of failing.
func (g *Generator) Generate(h *handbook.Handbook) (*Bundle, error) {
	styleCSS, err := assetsFS.ReadFile("assets/style.css")
	if err != nil {
		return nil, fmt.Errorf("offline export: read embedded stylesheet: %w", err)
	}
	bundleJS, err := assetsFS.ReadFile("assets/bundle.js")
	if err != nil {
		return nil, fmt.Errorf("offline export: read embedded script: %w", err)
	}

	tokens := theme.Resolve(h.Theme, nil)

	var body strings.Builder
	body.WriteString(g.toolbar())
	body.WriteString(`<main>`)
	body.WriteString(`<header class="handbook-header">`)
	fmt.Fprintf(&body, `<h1>%s</h1>`, html.EscapeString(h.Title))
	if h.Description != "" {
		fmt.Fprintf(&body, `<div class="handbook-description">%s</div>`, htmlrender.Description(h.Description))
	}
	body.WriteString(`</header>`)
	if len(h.Modules) == 0 {
		body.WriteString(`<p class="empty-state">This handbook has no content yet.</p>`)
	}
	for _, m := range h.Modules {
		body.WriteString(string(htmlrender.Section(g.handler, m, 2)))
	}
	body.WriteString(`</main>`)

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	doc.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(h.Title))
	doc.WriteString("<style>\n")
	doc.WriteString(tokens.CSSVariables())
	doc.WriteString(htmlrender.SectionThemeCSS(h))
	doc.Write(styleCSS)
	doc.WriteString("</style>\n</head>\n<body>\n")
	doc.WriteString(body.String())
	doc.WriteString("\n<script>\n")
	doc.Write(bundleJS)
	doc.WriteString("</script>\n</body>\n</html>\n")

	return &Bundle{
		Markup: []byte(doc.String()),
		Readme: []byte(readme),
	}, nil
}

func (g *Generator) toolbar() string {
	return `<nav class="toolbar" aria-label="Accessibility toolbar">` +
		`<button type="button" id="toolbar-print">Print / PDF</button>` +
		`<button type="button" id="toolbar-font-up" aria-label="Increase font size">A+</button>` +
		`<button type="button" id="toolbar-font-down" aria-label="Decrease font size">A-</button>` +
		`<button type="button" id="toolbar-contrast">High contrast</button>` +
		`<button type="button" id="toolbar-signlanguage">Sign language</button>` +
		`<button type="button" id="toolbar-accessibility">Accessibility</button>` +
		`<span id="toolbar-note" hidden></span>` +
		`</nav>`
}

// WriteDir writes the bundle as a directory with index.html and README.txt.
func (b *Bundle) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("offline export: create directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), b.Markup, 0o644); err != nil {
		return fmt.Errorf("offline export: write index.html: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), b.Readme, 0o644); err != nil {
		return fmt.Errorf("offline export: write README.txt: %w", err)
	}
	return nil
}

// WriteArchive writes the bundle as a zip archive.
func (b *Bundle) WriteArchive(w io.Writer) error {
	zw := zip.NewWriter(w)
	files := []struct {
		name string
		data []byte
	}{
		{"index.html", b.Markup},
		{"README.txt", b.Readme},
	}
	for _, f := range files {
		fw, err := zw.Create(f.name)
		if err != nil {
			return fmt.Errorf("offline export: archive %s: %w", f.name, err)
		}
		if _, err := fw.Write(f.data); err != nil {
			return fmt.Errorf("offline export: archive %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("offline export: finalize archive: %w", err)
	}
	return nil
}
