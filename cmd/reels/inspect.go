package main

import (
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/simp-lee/reels"
)

type chapterInfo struct {
	Index int    `json:"index" yaml:"index"`
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Path  string `json:"path" yaml:"path"`
	Runes int    `json:"runes" yaml:"runes"`
}

type bookInfo struct {
	ID          string        `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Authors     []string      `json:"authors,omitempty" yaml:"authors,omitempty"`
	Language    string        `json:"language,omitempty" yaml:"language,omitempty"`
	PackagePath string        `json:"package_path" yaml:"package_path"`
	Chapters    []chapterInfo `json:"chapters" yaml:"chapters"`
	Warnings    []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func newBookInfo(b *reels.Book) bookInfo {
	info := bookInfo{
		ID:          b.ID,
		Title:       b.Title,
		Authors:     b.Authors,
		Language:    b.Language,
		PackagePath: b.PackagePath,
		Chapters:    make([]chapterInfo, len(b.Chapters)),
		Warnings:    b.Warnings(),
	}
	for i, ch := range b.Chapters {
		info.Chapters[i] = chapterInfo{
			Index: ch.Index,
			ID:    ch.ID,
			Title: ch.Title,
			Path:  ch.Path,
			Runes: utf8.RuneCountInString(ch.Content),
		}
	}
	return info
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show the metadata and chapters of an EPUB",
	Long: `Inspect loads an EPUB and prints its metadata, the chapters that passed
the content filters and any non-fatal warnings.

Examples:
  reels inspect book.epub
  reels inspect book.epub -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadSettings()
		if err != nil {
			return err
		}
		opts := append(m.Get().LoadOptions(), reels.WithLogger(logger))
		book, err := reels.Open(cmd.Context(), args[0], opts...)
		if err != nil {
			return err
		}
		return printOut(newBookInfo(book))
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
