package main

import (
	"github.com/spf13/cobra"

	"github.com/simp-lee/reels/paginate"
)

var (
	pagesFontSize    float64
	pagesWidth       float64
	pagesHeight      float64
	pagesWithContent bool
)

type pageInfo struct {
	Index        int    `json:"index" yaml:"index"`
	ChapterIndex int    `json:"chapter_index" yaml:"chapter_index"`
	ChapterTitle string `json:"chapter_title" yaml:"chapter_title"`
	Number       int    `json:"number" yaml:"number"`
	Content      string `json:"content,omitempty" yaml:"content,omitempty"`
}

type pagesInfo struct {
	Title          string          `json:"title" yaml:"title"`
	Config         paginate.Config `json:"config" yaml:"config"`
	Total          int             `json:"total" yaml:"total"`
	ChapterMarkers []int           `json:"chapter_markers" yaml:"chapter_markers"`
	Pages          []pageInfo      `json:"pages" yaml:"pages"`
}

var pagesCmd = &cobra.Command{
	Use:   "pages FILE",
	Short: "Paginate an EPUB and list its pages",
	Long: `Pages loads an EPUB, paginates it for the configured window and prints
the resulting Page List. Flags override the configured typography and
window size for this run.

Examples:
  reels pages book.epub
  reels pages book.epub --font-size 24 --width 800 --height 600
  reels pages book.epub --content -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadSettings()
		if err != nil {
			return err
		}
		st := m.Get()
		flags := cmd.Flags()
		if flags.Changed("font-size") {
			st.Typography.FontSize = pagesFontSize
		}
		if flags.Changed("width") {
			st.Viewport.Width = pagesWidth
		}
		if flags.Changed("height") {
			st.Viewport.Height = pagesHeight
		}
		if err := st.Validate(); err != nil {
			return err
		}

		sess, book, err := openSession(cmd, args[0], st)
		if err != nil {
			return err
		}
		state := sess.State()
		out := pagesInfo{
			Title:          book.Title,
			Config:         st.PageConfig(),
			Total:          state.Total,
			ChapterMarkers: state.ChapterMarkers,
		}
		for i, p := range sess.Pages() {
			info := pageInfo{Index: i, ChapterIndex: p.ChapterIndex, ChapterTitle: p.ChapterTitle, Number: p.Number}
			if pagesWithContent {
				info.Content = p.Content
			}
			out.Pages = append(out.Pages, info)
		}
		return printOut(out)
	},
}

func init() {
	pagesCmd.Flags().Float64Var(&pagesFontSize, "font-size", 0, "font size in CSS pixels (one of the configured sizes)")
	pagesCmd.Flags().Float64Var(&pagesWidth, "width", 0, "window width in CSS pixels")
	pagesCmd.Flags().Float64Var(&pagesHeight, "height", 0, "window height in CSS pixels")
	pagesCmd.Flags().BoolVar(&pagesWithContent, "content", false, "include page markup")

	rootCmd.AddCommand(pagesCmd)
}
