// Package httpapi exposes a reader session over HTTP so that an external
// rendering layer can load books, fetch pages and drive navigation.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/simp-lee/reels"
	"github.com/simp-lee/reels/annotate"
	"github.com/simp-lee/reels/export"
	"github.com/simp-lee/reels/navigate"
	"github.com/simp-lee/reels/paginate"
	"github.com/simp-lee/reels/session"
	"github.com/simp-lee/reels/settings"
)

// DefaultMaxUploadBytes caps uploaded archives.
const DefaultMaxUploadBytes = 64 << 20

// Server routes HTTP requests to a session.
type Server struct {
	router      chi.Router
	sess        *session.Session
	logger      *slog.Logger
	maxUpload   int64
	uploadLimit int
	uploadEvery time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxUploadBytes caps the size of uploaded archives.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// WithUploadRateLimit allows n book uploads per client IP per window.
func WithUploadRateLimit(n int, window time.Duration) Option {
	return func(s *Server) {
		s.uploadLimit = n
		s.uploadEvery = window
	}
}

// New returns a Server for sess.
func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		sess:        sess,
		logger:      slog.New(slog.DiscardHandler),
		maxUpload:   DefaultMaxUploadBytes,
		uploadLimit: 10,
		uploadEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.With(httprate.LimitByIP(s.uploadLimit, s.uploadEvery)).Post("/book", s.handleUpload)
		r.Post("/demo", s.handleDemo)
		r.Get("/book", s.handleBook)

		r.Get("/pages", s.handlePages)
		r.Get("/pages/{index}", s.handlePage)
		r.Get("/state", s.handleState)

		r.Post("/next", s.handleMove(func(*http.Request) (navigate.Transition, bool) { return s.sess.Next() }))
		r.Post("/previous", s.handleMove(func(*http.Request) (navigate.Transition, bool) { return s.sess.Previous() }))
		r.Post("/resume", s.handleMove(func(*http.Request) (navigate.Transition, bool) { return s.sess.Resume() }))
		r.Post("/goto/{index}", s.handleIndexedMove(s.sess.GoToPage))
		r.Post("/chapters/{index}", s.handleIndexedMove(s.sess.GoToChapter))

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/annotations", s.handleAnnotations)
		r.Post("/annotations", s.handleAnnotate)
		r.Delete("/annotations/{id}", s.handleRemoveAnnotation)
		r.Post("/annotations/{id}/goto", s.handleGoToAnnotation)

		r.Get("/bookmarks", s.handleBookmarks)
		r.Post("/bookmarks", s.handleBookmark)

		r.Get("/export/markdown", s.handleExportMarkdown)
	})
}

type chapterResponse struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

type bookResponse struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Authors  []string          `json:"authors,omitempty"`
	Language string            `json:"language,omitempty"`
	Chapters []chapterResponse `json:"chapters"`
	Warnings []string          `json:"warnings,omitempty"`
	State    navigate.State    `json:"state"`
}

type moveResponse struct {
	Moved      bool                 `json:"moved"`
	Transition *navigate.Transition `json:"transition,omitempty"`
	State      navigate.State       `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) bookResponse(b *reels.Book) bookResponse {
	resp := bookResponse{
		ID:       b.ID,
		Title:    b.Title,
		Authors:  b.Authors,
		Language: b.Language,
		Chapters: make([]chapterResponse, len(b.Chapters)),
		Warnings: b.Warnings(),
		State:    s.sess.State(),
	}
	for i, ch := range b.Chapters {
		resp.Chapters[i] = chapterResponse{Index: ch.Index, ID: ch.ID, Title: ch.Title}
	}
	return resp
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	book, err := s.sess.Load(r.Context(), data)
	switch {
	case errors.Is(err, session.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded by a newer upload")
		return
	case err != nil:
		s.logger.Warn("upload rejected", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusUnprocessableEntity, session.ErrLoad.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.bookResponse(book))
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	book := session.DemoBook()
	if err := s.sess.LoadBook(r.Context(), book); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.bookResponse(book))
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	book := s.sess.Book()
	if book == nil {
		writeError(w, http.StatusNotFound, "no book loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.bookResponse(book))
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	pages := s.sess.Pages()
	if pages == nil {
		pages = []paginate.Page{}
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	pages := s.sess.Pages()
	if i >= len(pages) {
		writeError(w, http.StatusNotFound, "page out of range")
		return
	}
	content, err := s.sess.HighlightedPage(i)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	p := pages[i]
	p.Content = content
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.State())
}

func (s *Server) handleMove(move func(*http.Request) (navigate.Transition, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr, ok := move(r)
		writeJSON(w, http.StatusOK, s.moveResponse(tr, ok))
	}
}

func (s *Server) handleIndexedMove(move func(int) (navigate.Transition, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := indexParam(w, r)
		if !ok {
			return
		}
		tr, moved := move(i)
		writeJSON(w, http.StatusOK, s.moveResponse(tr, moved))
	}
}

func (s *Server) moveResponse(tr navigate.Transition, moved bool) moveResponse {
	resp := moveResponse{Moved: moved, State: s.sess.State()}
	if moved {
		resp.Transition = &tr
	}
	return resp
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	st := s.sess.Settings()
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "malformed settings")
		return
	}
	if err := s.sess.ApplySettings(r.Context(), st); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Settings())
}

type annotateRequest struct {
	Selection string `json:"selection"`
	Note      string `json:"note"`
}

func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	anns := s.sess.Annotations()
	if anns == nil {
		anns = annotate.List{}
	}
	writeJSON(w, http.StatusOK, anns)
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed annotation")
		return
	}
	a, err := s.sess.Annotate(req.Selection, req.Note)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleRemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.RemoveAnnotation(chi.URLParam(r, "id")); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGoToAnnotation(w http.ResponseWriter, r *http.Request) {
	tr, moved, err := s.sess.GoToAnnotation(chi.URLParam(r, "id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.moveResponse(tr, moved))
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	b := s.sess.Bookmarks()
	if b == nil {
		b = []annotate.Bookmark{}
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed bookmark")
			return
		}
	}
	b, err := s.sess.AddBookmark(req.Note)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	book := s.sess.Book()
	if book == nil {
		writeError(w, http.StatusNotFound, "no book loaded")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if err := export.Markdown(w, book.Title, s.sess.Pages()); err != nil {
		s.logger.Error("markdown export failed", "error", err)
	}
}

// writeSessionError maps session and domain errors to status codes.
func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNoBook):
		writeError(w, http.StatusNotFound, "no book loaded")
	case errors.Is(err, session.ErrAnnotationNotFound):
		writeError(w, http.StatusNotFound, "annotation not found")
	case errors.Is(err, annotate.ErrSelectionNotFound):
		writeError(w, http.StatusUnprocessableEntity, "selection not found on the current page")
	case errors.Is(err, settings.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded by a newer request")
	default:
		s.logger.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		writeError(w, http.StatusBadRequest, "invalid index")
		return 0, false
	}
	return i, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
