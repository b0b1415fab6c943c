package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/simp-lee/reels/paginate"
)

const (
	pxToPt = 0.75
	ptToMM = 0.3528
)

var (
	headingSizes  = map[int]float64{1: 2, 2: 1.5, 3: 1.17, 4: 1, 5: 0.83, 6: 0.67}
	orderedItem   = regexp.MustCompile(`^\d+\.\s`)
	emphasis      = regexp.MustCompile(`(^|\W)[*_]([^*_]+)[*_]`)
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	linkSyntax    = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	escapedPunct  = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+\-.!])`)
	strongMarkers = strings.NewReplacer("**", "", "__", "")
)

// PDF writes pages to w with one PDF page per reader page. Each page
// carries its chapter title as a header and "n of N" as a footer; body
// text uses font scaled from CSS pixels to points.
func PDF(w io.Writer, title string, pages []paginate.Page, font paginate.Font) error {
	pdf, err := layoutPDF(title, pages, font)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: write pdf: %w", err)
	}
	return nil
}

func layoutPDF(title string, pages []paginate.Page, font paginate.Font) (*gofpdf.Fpdf, error) {
	if err := (paginate.Config{Font: font, Viewport: paginate.Viewport{Width: 1, Height: 1}}).Validate(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("reels", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// A reader page that overflows its sheet keeps its own number on the
	// continuation sheets.
	total, current := len(pages), 0
	pdf.SetFooterFunc(func() {
		if current == 0 {
			return
		}
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, footerText(current, total), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	base := font.Size * pxToPt
	lineMM := base * font.LineHeight * ptToMM

	for i, p := range pages {
		md, err := PageMarkdown(p)
		if err != nil {
			return nil, err
		}

		pdf.AddPage()
		current = i + 1
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, tr(p.ChapterTitle), "B", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)

		renderMarkdown(pdf, tr, md, base, lineMM)
	}

	if total == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", base*headingSizes[1])
		pdf.MultiCell(0, lineMM*2, tr(title), "", "C", false)
	}
	return pdf, pdf.Error()
}

func footerText(page, total int) string {
	return fmt.Sprintf("%d of %d", page, total)
}

// renderMarkdown lays out converted page text: headings, list items,
// quotations and paragraphs. Inline formatting is flattened.
func renderMarkdown(pdf *gofpdf.Fpdf, tr func(string) string, md string, base, lineMM float64) {
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			pdf.Ln(lineMM / 2)

		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			scale, ok := headingSizes[level]
			if !ok {
				scale = 1
			}
			size := base * scale
			pdf.Ln(lineMM / 3)
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, size*ptToMM*1.4, tr(plainText(strings.TrimLeft(trimmed, "# "))), "", "L", false)
			pdf.Ln(lineMM / 3)

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", base)
			pdf.SetX(pdf.GetX() + 5)
			pdf.MultiCell(0, lineMM, tr("• "+plainText(trimmed[2:])), "", "L", false)

		case orderedItem.MatchString(trimmed):
			pdf.SetFont("Helvetica", "", base)
			pdf.SetX(pdf.GetX() + 5)
			pdf.MultiCell(0, lineMM, tr(plainText(trimmed)), "", "L", false)

		case strings.HasPrefix(trimmed, ">"):
			pdf.SetFont("Helvetica", "I", base)
			pdf.SetX(pdf.GetX() + 8)
			pdf.MultiCell(0, lineMM, tr(plainText(strings.TrimLeft(trimmed, "> "))), "", "L", false)

		default:
			pdf.SetFont("Helvetica", "", base)
			pdf.MultiCell(0, lineMM, tr(plainText(trimmed)), "", "L", false)
		}
	}
}

// plainText strips inline Markdown syntax.
func plainText(s string) string {
	s = strongMarkers.Replace(s)
	s = emphasis.ReplaceAllString(s, "$1$2")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = linkSyntax.ReplaceAllString(s, "$1")
	s = escapedPunct.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
