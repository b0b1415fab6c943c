// Package export writes a Page List out as Markdown or PDF.
//
// Both formats go through Markdown: page markup is converted with
// html-to-markdown, and the PDF writer lays out the converted text one
// reader page per PDF page.
package export

import (
	"fmt"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/simp-lee/reels/paginate"
)

// PageSeparator separates pages in Markdown output.
const PageSeparator = "\n\n---\n\n"

// PageMarkdown converts one page of markup to Markdown.
func PageMarkdown(p paginate.Page) (string, error) {
	md, err := htmltomarkdown.ConvertString(p.Content)
	if err != nil {
		return "", fmt.Errorf("export: convert page %d of chapter %d: %w", p.Number, p.ChapterIndex, err)
	}
	return strings.TrimSpace(md), nil
}

// Markdown writes title as a top-level heading followed by every page,
// separated by thematic breaks.
func Markdown(w io.Writer, title string, pages []paginate.Page) error {
	var b strings.Builder
	if title != "" {
		b.WriteString("# " + title + "\n")
	}
	for i, p := range pages {
		md, err := PageMarkdown(p)
		if err != nil {
			return err
		}
		if i > 0 || title != "" {
			b.WriteString(PageSeparator)
		}
		b.WriteString(md)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
