// Package preview renders the editable live view of a handbook. It has two
// explicit modes: a single active section (the editor's normal view) and
// all sections at once (the pre-export review view). The mode is a flag,
// not a styling side effect, so export and preview cannot disagree about
// which blocks exist.
package preview

import (
	"fmt"
	"html"
	"strings"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/htmlrender"
	"github.com/inkforge/handbook/internal/theme"
)

// Mode selects which sections a render includes.
type Mode int

const (
	// ModeActiveModule renders only the active module's section.
	ModeActiveModule Mode = iota
	// ModeAllModules renders every module section in store order.
	ModeAllModules
)

// Renderer turns handbook snapshots into preview HTML documents.
type Renderer struct {
	handler htmlrender.Handler
}

// New creates a preview renderer.
func New() *Renderer {
	return &Renderer{}
}

// Document renders a complete preview page for the snapshot. In
// ModeActiveModule an unknown or empty activeModuleID falls back to the
// first module.
func (r *Renderer) Document(h *handbook.Handbook, activeModuleID string, mode Mode) string {
	var body strings.Builder
	body.WriteString(`<header class="handbook-header">`)
	fmt.Fprintf(&body, `<h1>%s</h1>`, html.EscapeString(h.Title))
	if h.Description != "" {
		fmt.Fprintf(&body, `<div class="handbook-description">%s</div>`, htmlrender.Description(h.Description))
	}
	body.WriteString(`</header>`)

	switch mode {
	case ModeActiveModule:
		m := h.Module(activeModuleID)
		if m == nil && len(h.Modules) > 0 {
			m = h.Modules[0]
		}
		if m != nil {
			tokens := theme.Resolve(h.Theme, m.Theme)
			return r.page(h.Title, tokens, "", body.String()+string(htmlrender.Section(r.handler, m, 2)))
		}
	case ModeAllModules:
		for _, m := range h.Modules {
			body.WriteString(string(htmlrender.Section(r.handler, m, 2)))
		}
		return r.page(h.Title, theme.Resolve(h.Theme, nil), htmlrender.SectionThemeCSS(h), body.String())
	}

	// Nothing to show: degrade to a placeholder rather than fail.
	body.WriteString(`<p class="empty-state">This handbook has no content yet.</p>`)
	return r.page(h.Title, theme.Resolve(h.Theme, nil), "", body.String())
}

func (r *Renderer) page(title string, tokens theme.Tokens, sectionCSS, body string) string {
	var buf strings.Builder
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	buf.WriteString("<style>\n")
	buf.WriteString(tokens.CSSVariables())
	buf.WriteString(sectionCSS)
	buf.WriteString(previewCSS)
	buf.WriteString("</style>\n</head>\n<body>\n")
	buf.WriteString(body)
	buf.WriteString("\n</body>\n</html>\n")
	return buf.String()
}

const previewCSS = `
body {
  margin: 0 auto;
  max-width: 48rem;
  padding: 2rem 1rem;
  font-family: var(--font-body);
  background: var(--color-background);
  color: #1f2937;
}
h1, h2, h3 { font-family: var(--font-heading); color: var(--color-primary); }
.block { margin: 1rem 0; }
.block-quote { border-left: 4px solid var(--color-accent); padding-left: 1rem; }
.block-quote cite { display: block; margin-top: .5rem; font-style: normal; color: #6b7280; }
.block-video iframe { width: 100%; aspect-ratio: 16 / 9; border: 0; }
.block-image img { max-width: 100%; }
.action-button {
  display: inline-block; padding: .6rem 1.2rem; border-radius: .4rem;
  background: var(--color-primary); color: #fff; text-decoration: none;
}
.block-notice { border: 1px solid var(--color-accent); border-radius: .4rem; padding: .8rem 1rem; }
.block-unknown { border: 1px dashed #9ca3af; color: #6b7280; padding: .8rem; }
.quiz-options { list-style: none; padding: 0; }
.quiz-option {
  display: block; width: 100%; text-align: left; margin: .25rem 0;
  padding: .6rem .8rem; border: 1px solid #d1d5db; border-radius: .4rem;
  background: #fff; cursor: pointer;
}
.quiz-letter { font-weight: 600; color: var(--color-primary); margin-right: .4rem; }
`
