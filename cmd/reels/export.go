package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simp-lee/reels/export"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export FILE DEST",
	Short: "Write the paginated book as Markdown or PDF",
	Long: `Export paginates an EPUB with the configured settings and writes every
page to DEST. The format follows DEST's extension (.md or .pdf) unless
--format is given.

Examples:
  reels export book.epub book.md
  reels export book.epub book.pdf
  reels export book.epub out --format pdf`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := args[1]
		f := exportFormat
		if f == "" {
			switch strings.ToLower(filepath.Ext(dest)) {
			case ".pdf":
				f = "pdf"
			default:
				f = "markdown"
			}
		}
		if f != "markdown" && f != "pdf" {
			return fmt.Errorf("unknown export format: %s", f)
		}

		m, err := loadSettings()
		if err != nil {
			return err
		}
		st := m.Get()
		sess, book, err := openSession(cmd, args[0], st)
		if err != nil {
			return err
		}

		out, err := os.Create(dest)
		if err != nil {
			return err
		}
		if f == "pdf" {
			err = export.PDF(out, book.Title, sess.Pages(), st.PageConfig().Font)
		} else {
			err = export.Markdown(out, book.Title, sess.Pages())
		}
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		logger.Info("exported", "file", dest, "format", f, "pages", len(sess.Pages()))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "markdown or pdf (default: from DEST extension)")
	rootCmd.AddCommand(exportCmd)
}
