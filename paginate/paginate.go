package paginate

import (
	"context"
	"fmt"
	"strings"

	"github.com/simp-lee/reels"
)

// Paginate splits every chapter into pages and returns the flat Page List in
// chapter order. Chapters without blocks contribute no pages. The result is
// always computed from Chapter.Content, never from earlier pages.
func Paginate(ctx context.Context, chapters []reels.Chapter, cfg Config, m Measurer) ([]Page, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var pages []Page
	for _, ch := range chapters {
		chPages, err := PaginateChapter(ctx, ch, cfg, m)
		if err != nil {
			return nil, err
		}
		pages = append(pages, chPages...)
	}
	return pages, nil
}

// PaginateChapter splits one chapter into pages.
//
// Blocks are appended to a buffer one at a time. When the buffer with the
// new block measures taller than the viewport and the buffer already held
// content, the buffer without the new block becomes a page and the new
// block starts the next one. A block that alone exceeds the viewport is
// therefore placed on a page of its own.
func PaginateChapter(ctx context.Context, ch reels.Chapter, cfg Config, m Measurer) ([]Page, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	blocks, err := splitBlocks(ch.Content)
	if err != nil {
		return nil, fmt.Errorf("chapter %d: %w", ch.Index, err)
	}

	var (
		pages []Page
		buf   []string
	)
	flush := func() {
		pages = append(pages, Page{
			Content:      strings.Join(buf, ""),
			Number:       len(pages) + 1,
			ChapterIndex: ch.Index,
			ChapterTitle: ch.Title,
		})
	}

	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate := strings.Join(buf, "") + block
		height, err := m.Measure(candidate, cfg.Viewport.Width, cfg.Font)
		if err != nil {
			return nil, fmt.Errorf("paginate: measure chapter %d: %w", ch.Index, err)
		}
		if height > cfg.Viewport.Height && len(buf) > 0 {
			flush()
			buf = []string{block}
			continue
		}
		buf = append(buf, block)
	}
	if len(buf) > 0 {
		flush()
	}
	return pages, nil
}
