// Package htmlrender implements the block-rendering contract for HTML
// surfaces. The live preview and the offline bundle both consume it, so a
// block looks the same in the editor and in the export; only interactivity
// differs between the two.
package htmlrender

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/render"
	"github.com/inkforge/handbook/internal/theme"
)

// Handler renders blocks to HTML fragments. The zero value is ready to use.
type Handler struct{}

var _ render.Handler[template.HTML] = Handler{}

// Block renders a single block through the shared dispatch table.
func (h Handler) Block(b *handbook.Block) template.HTML {
	return render.Block[template.HTML](h, b)
}

// Text emits the pre-sanitized rich markup verbatim. Sanitization happened
// before the text reached the document model.
func (Handler) Text(b *handbook.Block, c handbook.TextContent) template.HTML {
	return template.HTML(fmt.Sprintf(`<div class="block block-text" data-block-id=%q>%s</div>`,
		b.ID, c.Text))
}

func (Handler) Image(b *handbook.Block, c handbook.ImageContent) template.HTML {
	var buf strings.Builder
	fmt.Fprintf(&buf, `<figure class="block block-image" data-block-id=%q>`, b.ID)
	fmt.Fprintf(&buf, `<img src=%q alt=%q>`, render.ImageURL(c), c.Alt)
	if c.Caption != "" {
		fmt.Fprintf(&buf, `<figcaption>%s</figcaption>`, html.EscapeString(c.Caption))
	}
	buf.WriteString(`</figure>`)
	return template.HTML(buf.String())
}

func (Handler) Quote(b *handbook.Block, c handbook.QuoteContent) template.HTML {
	var buf strings.Builder
	fmt.Fprintf(&buf, `<blockquote class="block block-quote" data-block-id=%q>`, b.ID)
	fmt.Fprintf(&buf, `<p>%s</p>`, html.EscapeString(c.Quote))
	if c.Author != "" {
		fmt.Fprintf(&buf, `<cite>%s</cite>`, html.EscapeString(c.Author))
	}
	buf.WriteString(`</blockquote>`)
	return template.HTML(buf.String())
}

func (Handler) Video(b *handbook.Block, c handbook.VideoContent) template.HTML {
	var buf strings.Builder
	fmt.Fprintf(&buf, `<div class="block block-video" data-block-id=%q>`, b.ID)
	fmt.Fprintf(&buf, `<iframe src=%q allowfullscreen loading="lazy"></iframe>`, render.EmbedURL(c.URL))
	if c.Caption != "" {
		fmt.Fprintf(&buf, `<p class="video-caption">%s</p>`, html.EscapeString(c.Caption))
	}
	buf.WriteString(`</div>`)
	return template.HTML(buf.String())
}

func (Handler) Button(b *handbook.Block, c handbook.ButtonContent) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<div class="block block-button" data-block-id=%q><a class="action-button" href=%q>%s</a></div>`,
		b.ID, c.ButtonURL, html.EscapeString(c.ButtonText)))
}

// Quiz renders the question and options with the data attributes the
// consumer's interactivity hooks into. The correct answer is carried in a
// data attribute, never as visible text.
func (Handler) Quiz(b *handbook.Block, c handbook.QuizContent) template.HTML {
	var buf strings.Builder
	fmt.Fprintf(&buf, `<div class="block block-quiz" data-block-id=%q data-quiz>`, b.ID)
	fmt.Fprintf(&buf, `<p class="quiz-question">%s</p>`, html.EscapeString(c.Question))
	buf.WriteString(`<ul class="quiz-options">`)
	for i, opt := range c.Options {
		correct := "false"
		if opt.IsCorrect {
			correct = "true"
		}
		fmt.Fprintf(&buf,
			`<li><button type="button" class="quiz-option" data-option-id=%q data-correct=%q><span class="quiz-letter">%s</span> %s</button></li>`,
			opt.ID, correct, render.OptionLetter(i), html.EscapeString(opt.Text))
	}
	buf.WriteString(`</ul>`)
	fmt.Fprintf(&buf, `<p class="quiz-feedback" hidden data-correct-text=%q data-incorrect-text=%q></p>`,
		feedbackOr(c.FeedbackCorrect, "Correct!"), feedbackOr(c.FeedbackIncorrect, "Not quite - the correct answer is highlighted."))
	buf.WriteString(`<button type="button" class="quiz-retry" hidden>Try again</button>`)
	buf.WriteString(`</div>`)
	return template.HTML(buf.String())
}

func (Handler) Notice(b *handbook.Block, c handbook.NoticeContent) template.HTML {
	kind := c.Kind
	if kind == "" {
		kind = "info"
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, `<aside class="block block-notice notice-%s" data-block-id=%q>`,
		html.EscapeString(kind), b.ID)
	if c.Title != "" {
		fmt.Fprintf(&buf, `<strong>%s</strong>`, html.EscapeString(c.Title))
	}
	fmt.Fprintf(&buf, `<p>%s</p>`, html.EscapeString(c.Text))
	buf.WriteString(`</aside>`)
	return template.HTML(buf.String())
}

// Unknown renders a visible placeholder naming the unhandled type.
func (Handler) Unknown(b *handbook.Block, blockType string) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<div class="block block-unknown" data-block-id=%q>Unsupported block type: %s</div>`,
		b.ID, html.EscapeString(blockType)))
}

func feedbackOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Description converts a markdown description to HTML. On conversion
// failure the text is escaped and emitted as a paragraph instead.
func Description(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(fmt.Sprintf("<p>%s</p>", html.EscapeString(md)))
	}
	return template.HTML(buf.String())
}

// Section renders one module: header plus its blocks in store order.
func Section(h Handler, m *handbook.Module, headingLevel int) template.HTML {
	var buf strings.Builder
	fmt.Fprintf(&buf, `<section class="module layout-%s spacing-%s" id="module-%s" data-module-id=%q>`,
		cssToken(m.Layout.ContainerWidth), cssToken(m.Layout.SectionSpacing), html.EscapeString(m.Slug), m.ID)
	fmt.Fprintf(&buf, `<h%d class="module-title">%s</h%d>`, headingLevel, html.EscapeString(m.Title), headingLevel)
	if m.Description != "" {
		fmt.Fprintf(&buf, `<div class="module-description">%s</div>`, Description(m.Description))
	}
	for _, b := range m.Blocks {
		buf.WriteString(string(h.Block(b)))
	}
	buf.WriteString(`</section>`)
	return template.HTML(buf.String())
}

// SectionThemeCSS emits scoped custom-property overrides for every module
// that carries its own theme, keyed by the section ids Section assigns.
// Modules without an override inherit the :root variables.
func SectionThemeCSS(h *handbook.Handbook) string {
	var buf strings.Builder
	for _, m := range h.Modules {
		if m.Theme == nil {
			continue
		}
		tokens := theme.Resolve(h.Theme, m.Theme)
		buf.WriteString(tokens.ScopedCSSVariables("#module-" + m.Slug))
	}
	return buf.String()
}

func cssToken(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "standard"
	}
	return s
}
