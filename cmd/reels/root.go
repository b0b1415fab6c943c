package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/simp-lee/reels"
	"github.com/simp-lee/reels/session"
	"github.com/simp-lee/reels/settings"
)

var (
	cfgFile      string
	outputFormat string
	logLevel     string

	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "reels",
	Short: "EPUB reader with viewport pagination",
	Long: `Reels loads EPUB files, extracts their meaningful chapters and splits
them into pages sized for a reader window.

Typography and window size come from config.yaml (./config.yaml or
~/.reels/config.yaml) and REELS_* environment variables, e.g.
REELS_TYPOGRAPHY_FONT_SIZE=20.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q", logLevel)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return setOutputFormat(outputFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.reels/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level: debug, info, warn or error",
	)
}

// loadSettings reads the configured settings.
func loadSettings() (*settings.Manager, error) {
	return settings.NewManager(cfgFile, logger)
}

// openSession loads name into a fresh session using st.
func openSession(cmd *cobra.Command, name string, st settings.Settings) (*session.Session, *reels.Book, error) {
	sess, err := session.New(session.WithSettings(st), session.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	book, err := reels.Open(cmd.Context(), name, append(st.LoadOptions(), reels.WithLogger(logger))...)
	if err != nil {
		return nil, nil, err
	}
	if err := sess.LoadBook(cmd.Context(), book); err != nil {
		return nil, nil, err
	}
	return sess, book, nil
}
