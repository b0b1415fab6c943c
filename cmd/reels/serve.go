package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/simp-lee/reels"
	"github.com/simp-lee/reels/httpapi"
	"github.com/simp-lee/reels/kvstore"
	"github.com/simp-lee/reels/session"
	"github.com/simp-lee/reels/settings"
)

var (
	serveAddr  string
	serveDemo  bool
	serveState string
)

var serveCmd = &cobra.Command{
	Use:   "serve [FILE]",
	Short: "Serve a reader session over HTTP",
	Long: `Serve starts an HTTP API for one reader session. The session starts with
FILE loaded, or the sample book with --demo, or empty; books can also be
uploaded with POST /api/book.

Reading progress, annotations, bookmarks and settings are kept in the
--state file. Edits to the config file are picked up while serving and
re-paginate the open book.

Examples:
  reels serve book.epub
  reels serve --demo --addr 127.0.0.1:3000`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, err := loadSettings()
		if err != nil {
			return err
		}
		statePath := serveState
		if statePath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			statePath = filepath.Join(home, ".reels", "state.yaml")
		}
		store, err := kvstore.OpenFile(statePath)
		if err != nil {
			return err
		}

		opts := []session.Option{session.WithStore(store), session.WithLogger(logger)}
		// A config file wins over settings saved by the API.
		if m.ConfigFile() != "" {
			opts = append(opts, session.WithSettings(m.Get()))
		}
		sess, err := session.New(opts...)
		if err != nil {
			return err
		}

		switch {
		case len(args) == 1:
			st := sess.Settings()
			book, err := reels.Open(ctx, args[0], append(st.LoadOptions(), reels.WithLogger(logger))...)
			if err != nil {
				return err
			}
			if err := sess.LoadBook(ctx, book); err != nil {
				return err
			}
			if _, ok := sess.Resume(); ok {
				logger.Info("resumed", "book", book.Title, "page", sess.State().Current)
			}
		case serveDemo:
			if err := sess.LoadBook(ctx, session.DemoBook()); err != nil {
				return err
			}
		}

		m.OnChange(func(st settings.Settings) {
			if err := sess.ApplySettings(ctx, st); err != nil && !errors.Is(err, session.ErrSuperseded) {
				logger.Error("applying reloaded settings", "error", err)
			}
		})
		if m.ConfigFile() != "" {
			m.WatchConfig()
		}

		srv := &http.Server{
			Addr:         serveAddr,
			Handler:      httpapi.New(sess, httpapi.WithLogger(logger)),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting HTTP server", "addr", serveAddr, "state", store.Path())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "address to listen on")
	serveCmd.Flags().BoolVar(&serveDemo, "demo", false, "start with the sample book loaded")
	serveCmd.Flags().StringVar(&serveState, "state", "", "state file (default: ~/.reels/state.yaml)")

	rootCmd.AddCommand(serveCmd)
}
