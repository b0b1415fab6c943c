package reels

import "strings"

// gutenbergPatterns contains case-insensitive patterns that indicate a
// Project Gutenberg license page.
var gutenbergPatterns = []string{
	"project gutenberg license",
	"gutenberg.org/license",
	"start of the project gutenberg license",
	"end of the project gutenberg license",
	"start of this project gutenberg ebook",
	"end of this project gutenberg ebook",
}

// gutenbergComboPatterns contains pairs of strings that together indicate a
// Gutenberg license page (both must appear, case-insensitive).
var gutenbergComboPatterns = [][2]string{
	{"project gutenberg", "terms of use"},
	{"full license", "gutenberg"},
}

// isGutenbergLicense reports whether the visible text of a content document
// is Project Gutenberg licence boilerplate.
func isGutenbergLicense(text string) bool {
	text = strings.ToLower(collapseSpaces(text))
	for _, pat := range gutenbergPatterns {
		if strings.Contains(text, pat) {
			return true
		}
	}
	for _, combo := range gutenbergComboPatterns {
		if strings.Contains(text, combo[0]) && strings.Contains(text, combo[1]) {
			return true
		}
	}
	return false
}
