package reels

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// defaultChapterTitle is used when no usable title can be derived.
const defaultChapterTitle = "Chapter"

// Thresholds controls which content documents count as meaningful.
// A document is skipped only when its visible text is shorter than MinText
// and the text of its qualifying elements (p, h1-h6, div with more than
// MinElementText characters) totals less than MinDense. Lengths are in runes.
type Thresholds struct {
	MinText        int
	MinDense       int
	MinElementText int
}

// DefaultThresholds returns the 100/200/20 character thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{MinText: 100, MinDense: 200, MinElementText: 20}
}

// resolveStrategy maps a manifest href to one candidate archive path.
type resolveStrategy struct {
	name    string
	resolve func(href, dir string) string
}

// resolveStrategies are tried in order; the first candidate present in the
// archive wins. Real-world packages disagree on whether hrefs are relative
// to the package document or to the archive root.
var resolveStrategies = []resolveStrategy{
	{"raw", func(href, _ string) string {
		return href
	}},
	{"package-relative", func(href, dir string) string {
		return joinPackagePath(dir, href)
	}},
	{"leading-slash-stripped", func(href, _ string) string {
		return strings.TrimPrefix(href, "/")
	}},
	{"percent-decoded", func(href, dir string) string {
		decoded, err := url.PathUnescape(href)
		if err != nil || decoded == href {
			return ""
		}
		return joinPackagePath(dir, decoded)
	}},
}

// candidatePaths returns the ordered, de-duplicated candidate paths for href.
func candidatePaths(href, dir string) []string {
	seen := make(map[string]bool, len(resolveStrategies))
	out := make([]string, 0, len(resolveStrategies))
	for _, s := range resolveStrategies {
		p := s.resolve(href, dir)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// resolveContentPath returns the first candidate for href that exists in the
// archive, or "" when none does.
func resolveContentPath(a *Archive, href, dir string) string {
	for _, p := range candidatePaths(href, dir) {
		if a.HasEntry(p) {
			return p
		}
	}
	return ""
}

// extractChapters walks the spine in order and returns the meaningful
// content documents as chapters. Per-entry failures are reported through
// l.warn and never abort the walk; only context cancellation does.
func (l *loader) extractChapters(ctx context.Context, a *Archive, pkg *PackageDocument) ([]Chapter, error) {
	chapters := make([]Chapter, 0, len(pkg.Spine))
	for i, idref := range pkg.Spine {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, ok := pkg.Manifest[idref]
		if !ok {
			l.warn("spine item not in manifest", i, idref, "", nil)
			continue
		}

		p := resolveContentPath(a, item.Href, pkg.Dir)
		if p == "" {
			l.warn("content document not found", i, idref, item.Href, nil)
			continue
		}

		text, err := a.ReadEntryAsText(p)
		if err != nil {
			l.warn("content document unreadable", i, idref, p, err)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err != nil {
			l.warn("content document unparsable", i, idref, p, err)
			continue
		}
		doc.Find("script, style").Remove()

		if !isMeaningful(doc, l.thresholds) {
			l.logger.Debug("skipping non-substantive document", "spine_index", i, "href", p)
			continue
		}
		if l.skipLicense && isGutenbergLicense(doc.Text()) {
			l.logger.Debug("skipping licence document", "spine_index", i, "href", p)
			continue
		}

		chapters = append(chapters, Chapter{
			Index:   len(chapters),
			ID:      idref,
			Title:   deriveTitle(doc),
			Path:    p,
			Content: Sanitize(doc.Nodes[0]),
		})
	}
	return chapters, nil
}

// warn records a skipped spine entry.
func (l *loader) warn(reason string, spineIndex int, idref, href string, err error) {
	msg := fmt.Sprintf("spine[%d] %q: %s", spineIndex, idref, reason)
	if href != "" {
		msg += " (" + href + ")"
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	l.warnings = append(l.warnings, msg)

	attrs := []any{"spine_index", spineIndex, "idref", idref, "reason", reason}
	if href != "" {
		attrs = append(attrs, "href", href)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	l.logger.Warn("skipping spine entry", attrs...)
}

// isMeaningful reports whether doc carries enough text to be a chapter.
// Script and style content must already be removed.
func isMeaningful(doc *goquery.Document, th Thresholds) bool {
	root := doc.Find("body").First()
	var visible string
	if root.Length() > 0 {
		visible = root.Text()
	} else {
		visible = doc.Text()
	}
	if utf8.RuneCountInString(collapseSpaces(visible)) >= th.MinText {
		return true
	}

	dense := 0
	doc.Find("p, h1, h2, h3, h4, h5, h6, div").Each(func(_ int, s *goquery.Selection) {
		if n := utf8.RuneCountInString(strings.TrimSpace(s.Text())); n > th.MinElementText {
			dense += n
		}
	})
	return dense >= th.MinDense
}

// deriveTitle picks a chapter title: the first non-empty h1, h2, h3 or
// title element; else the first paragraph of 11 to 99 characters, cut to 50
// with an ellipsis; else "Chapter".
func deriveTitle(doc *goquery.Document) string {
	title := ""
	for _, sel := range []string{"h1", "h2", "h3", "title"} {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			title = strings.TrimSpace(s.Text())
			return title == ""
		})
		if title != "" {
			break
		}
	}

	if title == "" {
		doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			n := utf8.RuneCountInString(text)
			if n <= 10 || n >= 100 {
				return true
			}
			title = truncateRunes(text, 50)
			if n > 50 {
				title += "..."
			}
			return false
		})
	}

	title = collapseSpaces(title)
	if utf8.RuneCountInString(title) < 3 {
		return defaultChapterTitle
	}
	return title
}

// collapseSpaces replaces whitespace runs with single spaces and trims.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
