// Package paginate splits sanitized chapter markup into viewport-sized pages.
//
// Pagination is measurer-agnostic: a [Measurer] reports the rendered height
// of a markup fragment at a given width and font, and the paginator packs
// whole block elements (paragraphs and headings) into pages that fit the
// configured viewport height. Blocks are never split; a block taller than
// the viewport on its own becomes a page by itself.
package paginate

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a Config cannot describe a page.
var ErrInvalidConfig = errors.New("paginate: invalid configuration")

// Font is the typography that affects measured heights.
type Font struct {
	// Size is the base font size in CSS pixels.
	Size float64 `json:"size" yaml:"size"`

	// LineHeight is the line-height multiplier (e.g. 1.8).
	LineHeight float64 `json:"line_height" yaml:"line_height"`
}

// Viewport is the page box content is laid out in.
type Viewport struct {
	// Width is the content width in CSS pixels.
	Width float64 `json:"width" yaml:"width"`

	// Height is the page height limit in CSS pixels.
	Height float64 `json:"height" yaml:"height"`
}

// Config is a complete pagination snapshot.
type Config struct {
	Font     Font     `json:"font" yaml:"font"`
	Viewport Viewport `json:"viewport" yaml:"viewport"`
}

// Validate reports whether c has positive dimensions and font metrics.
func (c Config) Validate() error {
	switch {
	case c.Font.Size <= 0:
		return fmt.Errorf("%w: font size %g", ErrInvalidConfig, c.Font.Size)
	case c.Font.LineHeight <= 0:
		return fmt.Errorf("%w: line height %g", ErrInvalidConfig, c.Font.LineHeight)
	case c.Viewport.Width <= 0:
		return fmt.Errorf("%w: width %g", ErrInvalidConfig, c.Viewport.Width)
	case c.Viewport.Height <= 0:
		return fmt.Errorf("%w: height %g", ErrInvalidConfig, c.Viewport.Height)
	}
	return nil
}

// Page is one viewport-fitting fragment of a chapter.
type Page struct {
	// Content is a contiguous run of whole block elements from the chapter.
	Content string `json:"content" yaml:"content"`

	// Number is the 1-based position of the page within its chapter.
	Number int `json:"number" yaml:"number"`

	// ChapterIndex is the index of the owning chapter in the book.
	ChapterIndex int `json:"chapter_index" yaml:"chapter_index"`

	// ChapterTitle is a copy of the owning chapter's title for display.
	ChapterTitle string `json:"chapter_title" yaml:"chapter_title"`
}
