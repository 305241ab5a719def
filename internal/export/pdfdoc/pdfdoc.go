// Package pdfdoc generates the paginated, print-ready rendering of a
// handbook: A4 pages, optional cover and back cover from the theme, one or
// more pages per module, running header/footer with page numbers, and
// blocks treated as non-splittable units.
package pdfdoc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/render"
	"github.com/inkforge/handbook/internal/theme"
)

// Page metrics in millimeters (A4 portrait).
const (
	marginSide    = 15.0
	marginTop     = 20.0
	marginBottom  = 20.0
	lineHeight    = 6.0
	blockSpacing  = 4.0
	optionIndent  = 8.0
	quizOptionPad = 2.0
)

// Options configures a paginated export.
type Options struct {
	// AnswerKey appends an answer-key page after the last module. Content
	// pages themselves never reveal quiz answers.
	AnswerKey bool
}

// Generator builds paginated documents from handbook snapshots.
type Generator struct {
	opts Options
}

// NewGenerator creates a generator.
func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

// answerEntry records one quiz answer for the optional appendix.
type answerEntry struct {
	module   string
	question string
	letter   string
}

type docState struct {
	pdf         *gofpdf.Fpdf
	tokens      theme.Tokens
	handbook    *handbook.Handbook
	moduleTitle string
	coverPages  map[int]bool // pages that carry no header/footer
	chromeFont  string       // header/footer font, fixed per document
	headingFont string
	bodyFont    string
	imageSeq    int
	answers     []answerEntry
}

// Generate writes the paginated document for the snapshot to w. A handbook
// with no modules degrades to a single "no content" page.
func (g *Generator) Generate(h *handbook.Handbook, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.AliasNbPages("")

	base := theme.Resolve(h.Theme, nil)
	st := &docState{
		pdf:         pdf,
		tokens:      base,
		handbook:    h,
		coverPages:  map[int]bool{},
		chromeFont:  pdfFont(h.Theme.FontBody),
		headingFont: pdfFont(h.Theme.FontHeading),
		bodyFont:    pdfFont(h.Theme.FontBody),
	}

	// gofpdf runs the header func when a page is opened but the footer func
	// only when the page is closed, at the next AddPage or at Output. Cover
	// pages are therefore tracked by page number; a flag toggled around
	// AddPage would suppress the wrong footer.
	pdf.SetHeaderFunc(func() {
		if st.coverPages[pdf.PageNo()] {
			return
		}
		pdf.SetFont(st.chromeFont, "I", 9)
		pdf.SetTextColor(110, 110, 110)
		title := h.Title
		if st.moduleTitle != "" {
			title = fmt.Sprintf("%s - %s", h.Title, st.moduleTitle)
		}
		pdf.SetY(8)
		pdf.CellFormat(0, 6, title, "", 0, "R", false, 0, "")
		pdf.SetY(marginTop)
	})
	pdf.SetFooterFunc(func() {
		if st.coverPages[pdf.PageNo()] {
			return
		}
		pdf.SetY(-15)
		pdf.SetFont(st.chromeFont, "I", 9)
		pdf.SetTextColor(110, 110, 110)
		footer := fmt.Sprintf("%s | page %d / {nb}", h.Title, pdf.PageNo())
		pdf.CellFormat(0, 6, footer, "", 0, "C", false, 0, "")
	})

	if st.tokens.Cover != "" {
		st.coverPage(st.tokens.Cover, h.Title)
	}

	if len(h.Modules) == 0 {
		st.moduleTitle = ""
		pdf.AddPage()
		pdf.SetFont(st.headingFont, "B", 16)
		applyHexColor(pdf, st.tokens.ColorPrimary)
		pdf.CellFormat(0, 10, h.Title, "", 1, "C", false, 0, "")
		pdf.SetFont(st.bodyFont, "", 11)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, 10, "This handbook has no content yet.", "", 1, "C", false, 0, "")
	}

	for _, m := range h.Modules {
		st.modulePages(m)
	}

	// Back matter is handbook-scoped: drop the last module's theme.
	st.tokens = base
	st.headingFont = pdfFont(h.Theme.FontHeading)
	st.bodyFont = pdfFont(h.Theme.FontBody)

	if g.opts.AnswerKey && len(st.answers) > 0 {
		st.answerKeyPage()
	}

	if st.tokens.BackCover != "" {
		st.coverPage(st.tokens.BackCover, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("paginated export: %w", err)
	}
	return nil
}

// coverPage emits a full-bleed image page without header or footer. Remote
// cover URLs cannot be fetched during a pure export, so they degrade to a
// solid page with the title.
func (st *docState) coverPage(src, title string) {
	st.coverPages[st.pdf.PageNo()+1] = true
	st.moduleTitle = ""
	st.pdf.AddPage()
	pageW, pageH := st.pdf.GetPageSize()

	if name, ok := st.registerDataImage(src); ok {
		st.pdf.ImageOptions(name, 0, 0, pageW, pageH, false, gofpdf.ImageOptions{}, 0, "")
	} else {
		r, g, b := hexRGB(st.tokens.ColorPrimary)
		st.pdf.SetFillColor(r, g, b)
		st.pdf.Rect(0, 0, pageW, pageH, "F")
		if title != "" {
			st.pdf.SetFont(st.headingFont, "B", 28)
			st.pdf.SetTextColor(255, 255, 255)
			st.pdf.SetY(pageH / 2.5)
			st.pdf.MultiCell(0, 12, title, "", "C", false)
		}
	}
}

func (st *docState) modulePages(m *handbook.Module) {
	st.moduleTitle = m.Title
	st.tokens = theme.Resolve(st.handbook.Theme, m.Theme)
	merged := theme.Merge(st.handbook.Theme, m.Theme)
	st.headingFont = pdfFont(merged.FontHeading)
	st.bodyFont = pdfFont(merged.FontBody)
	st.pdf.AddPage()

	st.pdf.SetFont(st.headingFont, "B", 18)
	applyHexColor(st.pdf, st.tokens.ColorPrimary)
	st.pdf.MultiCell(0, 9, m.Title, "", "L", false)
	if m.Description != "" {
		st.pdf.SetFont(st.bodyFont, "", 11)
		st.pdf.SetTextColor(60, 60, 60)
		st.pdf.MultiCell(0, lineHeight, m.Description, "", "L", false)
	}
	st.pdf.Ln(blockSpacing)

	handler := &blockHandler{st: st, module: m}
	for _, b := range m.Blocks {
		d := render.Block[drawable](handler, b)
		st.placeBlock(d)
	}
}

// placeBlock enforces the non-splittable rule: when the block does not fit
// the remaining space on the current page, the whole block moves to a new
// page. Blocks taller than a full page flow across pages, which is the
// host format's natural text wrap.
func (st *docState) placeBlock(d drawable) {
	height := d.estimate()
	_, pageH := st.pdf.GetPageSize()
	usable := pageH - marginTop - marginBottom
	remaining := pageH - marginBottom - st.pdf.GetY()
	if height > remaining && height <= usable {
		st.pdf.AddPage()
	}
	d.draw()
	st.pdf.Ln(blockSpacing)
}

func (st *docState) answerKeyPage() {
	st.moduleTitle = "Answer key"
	st.pdf.AddPage()
	st.pdf.SetFont(st.headingFont, "B", 18)
	applyHexColor(st.pdf, st.tokens.ColorPrimary)
	st.pdf.CellFormat(0, 9, "Answer key", "", 1, "L", false, 0, "")
	st.pdf.Ln(2)
	st.pdf.SetFont(st.bodyFont, "", 11)
	st.pdf.SetTextColor(30, 30, 30)
	for _, a := range st.answers {
		line := fmt.Sprintf("%s - %s: %s", a.module, a.question, a.letter)
		st.pdf.MultiCell(0, lineHeight, line, "", "L", false)
	}
}

// registerDataImage registers a data-URI image with the document, returning
// its registered name. Non-data URLs return ok=false.
func (st *docState) registerDataImage(src string) (string, bool) {
	data, kind, err := decodeDataURI(src)
	if err != nil {
		return "", false
	}
	st.imageSeq++
	name := "img" + strconv.Itoa(st.imageSeq)
	opts := gofpdf.ImageOptions{ImageType: kind, ReadDpi: true}
	info := st.pdf.RegisterImageOptionsReader(name, opts, strings.NewReader(string(data)))
	if info == nil || st.pdf.Err() {
		return "", false
	}
	return name, true
}

func pdfFont(token string) string {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "serif", "slab":
		return "Times"
	case "mono":
		return "Courier"
	default:
		return "Helvetica"
	}
}

func applyHexColor(pdf *gofpdf.Fpdf, hex string) {
	r, g, b := hexRGB(hex)
	pdf.SetTextColor(r, g, b)
}

func hexRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	r, _ := strconv.ParseInt(hex[0:2], 16, 0)
	g, _ := strconv.ParseInt(hex[2:4], 16, 0)
	b, _ := strconv.ParseInt(hex[4:6], 16, 0)
	return int(r), int(g), int(b)
}
