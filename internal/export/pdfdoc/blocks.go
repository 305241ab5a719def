package pdfdoc

import (
	"fmt"
	"strings"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/render"
)

// drawable is a block prepared for placement: its estimated height decides
// whether it fits the current page before anything is drawn.
type drawable struct {
	estimate func() float64
	draw     func()
}

// blockHandler implements the shared render contract for the paginated
// surface.
type blockHandler struct {
	st     *docState
	module *handbook.Module
}

var _ render.Handler[drawable] = (*blockHandler)(nil)

func (h *blockHandler) contentWidth() float64 {
	pageW, _ := h.st.pdf.GetPageSize()
	return pageW - 2*marginSide
}

func (h *blockHandler) textHeight(text string, width, lh float64) float64 {
	if text == "" {
		return 0
	}
	lines := h.st.pdf.SplitText(text, width)
	return float64(len(lines)) * lh
}

func (h *blockHandler) Text(_ *handbook.Block, c handbook.TextContent) drawable {
	plain := StripHTML(c.Text)
	return drawable{
		estimate: func() float64 {
			h.st.pdf.SetFont(h.st.bodyFont, "", 11)
			return h.textHeight(plain, h.contentWidth(), lineHeight)
		},
		draw: func() {
			h.st.pdf.SetFont(h.st.bodyFont, "", 11)
			h.st.pdf.SetTextColor(30, 30, 30)
			h.st.pdf.MultiCell(0, lineHeight, plain, "", "L", false)
		},
	}
}

func (h *blockHandler) Image(_ *handbook.Block, c handbook.ImageContent) drawable {
	name, embedded := h.st.registerDataImage(c.URL)
	width := h.contentWidth()
	var imgH float64 = 50
	if embedded {
		if info := h.st.pdf.GetImageInfo(name); info != nil {
			w, ht := info.Extent()
			if w > 0 {
				imgH = ht * (width / w)
			}
		}
	}
	captionText := c.Caption
	if captionText == "" {
		captionText = c.Alt
	}
	return drawable{
		estimate: func() float64 {
			h.st.pdf.SetFont(h.st.bodyFont, "I", 9)
			return imgH + h.textHeight(captionText, width, 5)
		},
		draw: func() {
			pdf := h.st.pdf
			if embedded {
				pdf.ImageOptions(name, marginSide, pdf.GetY(), width, 0, true, imageOpts(), 0, "")
			} else {
				// Remote images cannot be fetched during a pure export;
				// a labeled placeholder keeps the block visible.
				y := pdf.GetY()
				pdf.SetDrawColor(160, 160, 160)
				pdf.SetFillColor(243, 244, 246)
				pdf.Rect(marginSide, y, width, imgH, "FD")
				pdf.SetFont(h.st.bodyFont, "", 10)
				pdf.SetTextColor(110, 110, 110)
				pdf.SetXY(marginSide, y+imgH/2-3)
				label := c.Alt
				if label == "" {
					label = "Image"
				}
				pdf.CellFormat(width, 6, label, "", 0, "C", false, 0, "")
				pdf.SetY(y + imgH)
			}
			if captionText != "" {
				pdf.SetFont(h.st.bodyFont, "I", 9)
				pdf.SetTextColor(110, 110, 110)
				pdf.MultiCell(0, 5, captionText, "", "C", false)
			}
		},
	}
}

func (h *blockHandler) Quote(_ *handbook.Block, c handbook.QuoteContent) drawable {
	width := h.contentWidth() - optionIndent
	return drawable{
		estimate: func() float64 {
			h.st.pdf.SetFont(h.st.bodyFont, "I", 12)
			est := h.textHeight(c.Quote, width, lineHeight)
			if c.Author != "" {
				est += lineHeight
			}
			return est
		},
		draw: func() {
			pdf := h.st.pdf
			top := pdf.GetY()
			pdf.SetX(marginSide + optionIndent)
			pdf.SetFont(h.st.bodyFont, "I", 12)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(width, lineHeight, c.Quote, "", "L", false)
			if c.Author != "" {
				pdf.SetX(marginSide + optionIndent)
				pdf.SetFont(h.st.bodyFont, "", 10)
				pdf.SetTextColor(110, 110, 110)
				pdf.MultiCell(width, lineHeight, "- "+c.Author, "", "L", false)
			}
			// Accent rule down the left edge of the quote.
			r, g, b := hexRGB(h.st.tokens.ColorAccent)
			pdf.SetDrawColor(r, g, b)
			pdf.SetLineWidth(1)
			pdf.Line(marginSide+2, top, marginSide+2, pdf.GetY())
			pdf.SetLineWidth(0.2)
		},
	}
}

// Video renders as a static reference line: a paginated page cannot embed a
// player, so the URL itself is the content.
func (h *blockHandler) Video(_ *handbook.Block, c handbook.VideoContent) drawable {
	line := "Video: " + c.URL
	if strings.TrimSpace(c.URL) == "" {
		line = "Video (no URL set)"
	}
	return drawable{
		estimate: func() float64 {
			h.st.pdf.SetFont(h.st.bodyFont, "", 10)
			est := h.textHeight(line, h.contentWidth(), lineHeight)
			if c.Caption != "" {
				est += h.textHeight(c.Caption, h.contentWidth(), 5)
			}
			return est
		},
		draw: func() {
			pdf := h.st.pdf
			pdf.SetFont(h.st.bodyFont, "", 10)
			applyHexColor(pdf, h.st.tokens.ColorPrimary)
			pdf.MultiCell(0, lineHeight, line, "", "L", false)
			if c.Caption != "" {
				pdf.SetFont(h.st.bodyFont, "I", 9)
				pdf.SetTextColor(110, 110, 110)
				pdf.MultiCell(0, 5, c.Caption, "", "L", false)
			}
		},
	}
}

func (h *blockHandler) Button(_ *handbook.Block, c handbook.ButtonContent) drawable {
	label := c.ButtonText
	if label == "" {
		label = c.ButtonURL
	}
	return drawable{
		estimate: func() float64 { return 12 },
		draw: func() {
			pdf := h.st.pdf
			pdf.SetFont(h.st.bodyFont, "B", 11)
			r, g, b := hexRGB(h.st.tokens.ColorPrimary)
			pdf.SetFillColor(r, g, b)
			pdf.SetTextColor(255, 255, 255)
			w := pdf.GetStringWidth(label) + 10
			pdf.CellFormat(w, 10, label, "", 1, "C", true, 0, c.ButtonURL)
			if c.ButtonURL != "" {
				pdf.SetFont(h.st.bodyFont, "", 8)
				pdf.SetTextColor(110, 110, 110)
				pdf.CellFormat(0, 4, c.ButtonURL, "", 1, "L", false, 0, "")
			}
		},
	}
}

// Quiz renders statically: question plus lettered options, no interactivity
// and no revealed answer on the page. The correct letter is recorded for
// the optional answer-key appendix.
func (h *blockHandler) Quiz(_ *handbook.Block, c handbook.QuizContent) drawable {
	correctLetter := ""
	for i, opt := range c.Options {
		if opt.IsCorrect {
			correctLetter = render.OptionLetter(i)
		}
	}
	h.st.answers = append(h.st.answers, answerEntry{
		module:   h.module.Title,
		question: c.Question,
		letter:   correctLetter,
	})
	width := h.contentWidth()
	return drawable{
		estimate: func() float64 {
			pdf := h.st.pdf
			pdf.SetFont(h.st.bodyFont, "B", 11)
			est := h.textHeight(c.Question, width, lineHeight)
			pdf.SetFont(h.st.bodyFont, "", 11)
			for i, opt := range c.Options {
				label := render.OptionLetter(i) + ". " + opt.Text
				est += h.textHeight(label, width-optionIndent, lineHeight) + quizOptionPad
			}
			return est
		},
		draw: func() {
			pdf := h.st.pdf
			pdf.SetFont(h.st.bodyFont, "B", 11)
			pdf.SetTextColor(30, 30, 30)
			pdf.MultiCell(0, lineHeight, c.Question, "", "L", false)
			pdf.SetFont(h.st.bodyFont, "", 11)
			for i, opt := range c.Options {
				pdf.SetX(marginSide + optionIndent)
				label := render.OptionLetter(i) + ". " + opt.Text
				pdf.MultiCell(width-optionIndent, lineHeight, label, "", "L", false)
				pdf.Ln(quizOptionPad / 2)
			}
		},
	}
}

func (h *blockHandler) Notice(_ *handbook.Block, c handbook.NoticeContent) drawable {
	text := c.Text
	if c.Title != "" {
		text = c.Title + ": " + text
	}
	width := h.contentWidth()
	return drawable{
		estimate: func() float64 {
			h.st.pdf.SetFont(h.st.bodyFont, "", 10)
			return h.textHeight(text, width-8, lineHeight) + 8
		},
		draw: func() {
			pdf := h.st.pdf
			pdf.SetFont(h.st.bodyFont, "", 10)
			top := pdf.GetY()
			boxH := h.textHeight(text, width-8, lineHeight) + 6
			r, g, b := hexRGB(h.st.tokens.ColorAccent)
			pdf.SetDrawColor(r, g, b)
			pdf.SetFillColor(254, 252, 232)
			pdf.Rect(marginSide, top, width, boxH, "FD")
			pdf.SetXY(marginSide+4, top+3)
			pdf.SetTextColor(30, 30, 30)
			pdf.MultiCell(width-8, lineHeight, text, "", "L", false)
			pdf.SetY(top + boxH)
		},
	}
}

func (h *blockHandler) Unknown(_ *handbook.Block, blockType string) drawable {
	line := fmt.Sprintf("[Unsupported block type: %s]", blockType)
	return drawable{
		estimate: func() float64 { return lineHeight },
		draw: func() {
			pdf := h.st.pdf
			pdf.SetFont(h.st.bodyFont, "I", 10)
			pdf.SetTextColor(110, 110, 110)
			pdf.MultiCell(0, lineHeight, line, "", "L", false)
		},
	}
}
