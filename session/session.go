// Package session ties loading, pagination, navigation and persistence
// into one explicitly constructed reader session.
//
// A Session owns the loaded Book, the Page List derived from it and the
// reading position. Loads and re-paginations may be triggered from any
// goroutine; a newer trigger supersedes an older one in flight, and a
// Page List is only published once it is complete.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/simp-lee/reels"
	"github.com/simp-lee/reels/annotate"
	"github.com/simp-lee/reels/kvstore"
	"github.com/simp-lee/reels/navigate"
	"github.com/simp-lee/reels/paginate"
	"github.com/simp-lee/reels/settings"
)

var (
	// ErrLoad wraps every fatal load failure. Its message is the generic
	// text shown to readers; the wrapped cause is for diagnostics.
	ErrLoad = errors.New("could not load file")

	// ErrSuperseded is returned by a load or re-pagination whose result was
	// discarded because a newer one started.
	ErrSuperseded = errors.New("session: superseded by a newer request")

	// ErrNoBook is returned by operations that need a loaded book.
	ErrNoBook = errors.New("session: no book loaded")

	// ErrAnnotationNotFound is returned for an unknown annotation id.
	ErrAnnotationNotFound = errors.New("session: annotation not found")
)

// Session is a reader session. It is safe for concurrent use. Navigator
// observers registered through OnChange must not call back into the
// Session.
type Session struct {
	logger   *slog.Logger
	store    kvstore.Store
	measurer paginate.Measurer
	nav      *navigate.Navigator
	now      func() time.Time

	scheduler   navigate.Scheduler
	settings    settings.Settings
	hasSettings bool

	mu          sync.Mutex
	settingsGen uint64
	book        *reels.Book
	annotations annotate.List
	bookmarks   []annotate.Bookmark
	loadGen     uint64
	loadCancel  context.CancelFunc
	pageGen     uint64
	pageCancel  context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the persistence port. The default is an in-memory store.
func WithStore(st kvstore.Store) Option {
	return func(s *Session) { s.store = st }
}

// WithMeasurer sets the text measurer. The default is a cached
// paginate.FaceMeasurer.
func WithMeasurer(m paginate.Measurer) Option {
	return func(s *Session) { s.measurer = m }
}

// WithSettings sets the initial settings, taking precedence over settings
// saved in the store.
func WithSettings(st settings.Settings) Option {
	return func(s *Session) {
		s.settings = st.Clone()
		s.hasSettings = true
	}
}

// WithScheduler sets the timer that settles page transitions.
func WithScheduler(sched navigate.Scheduler) Option {
	return func(s *Session) { s.scheduler = sched }
}

// WithClock sets the time source for annotation and progress timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New constructs a Session with no book loaded.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = kvstore.NewMemory()
	}
	if s.measurer == nil {
		fm, err := paginate.NewFaceMeasurer()
		if err != nil {
			return nil, err
		}
		s.measurer = paginate.NewCachedMeasurer(fm)
	}
	if !s.hasSettings {
		s.settings = s.savedSettings()
	}
	if err := s.settings.Validate(); err != nil {
		return nil, err
	}

	navOpts := []navigate.Option{navigate.WithSettleDelay(s.settings.Navigation.SettleDelay)}
	if s.scheduler != nil {
		navOpts = append(navOpts, navigate.WithScheduler(s.scheduler))
	}
	s.nav = navigate.New(navOpts...)
	return s, nil
}

// Load parses data as an EPUB, paginates it with the current settings and
// makes it the session's book at page 0. A Load in flight when another
// starts is cancelled and returns ErrSuperseded. On any failure the
// previous book, Page List and position are left untouched.
func (s *Session) Load(ctx context.Context, data []byte) (*reels.Book, error) {
	ctx, gen, cancel := s.beginLoad(ctx)
	defer cancel()

	st := s.Settings()
	opts := append(st.LoadOptions(), reels.WithLogger(s.logger))
	book, err := reels.Load(ctx, data, opts...)
	if err != nil {
		if s.loadSuperseded(gen) {
			return nil, ErrSuperseded
		}
		s.logger.Error("load failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := s.install(ctx, gen, book); err != nil {
		return nil, err
	}
	return book, nil
}

// LoadBook installs an already built book, such as DemoBook.
func (s *Session) LoadBook(ctx context.Context, book *reels.Book) error {
	ctx, gen, cancel := s.beginLoad(ctx)
	defer cancel()
	return s.install(ctx, gen, book)
}

func (s *Session) beginLoad(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadCancel != nil {
		s.loadCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.loadGen++
	s.loadCancel = cancel
	return ctx, s.loadGen, cancel
}

func (s *Session) loadSuperseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.loadGen
}

// install paginates book and publishes it if no newer load started. When
// the settings change while paginating, the pass is repeated with the
// newer snapshot.
func (s *Session) install(ctx context.Context, gen uint64, book *reels.Book) error {
	for {
		st := s.Settings()
		pages, err := paginate.Paginate(ctx, book.Chapters, st.PageConfig(), s.measurer)
		if err != nil {
			if s.loadSuperseded(gen) {
				return ErrSuperseded
			}
			return fmt.Errorf("%w: %w", ErrLoad, err)
		}

		s.mu.Lock()
		if gen != s.loadGen {
			s.mu.Unlock()
			return ErrSuperseded
		}
		if !settings.PaginationEqual(st, s.settings) {
			s.mu.Unlock()
			continue
		}
		if s.pageCancel != nil {
			s.pageCancel()
			s.pageCancel = nil
		}
		s.pageGen++
		s.book = book
		s.annotations = s.loadAnnotations(book.ID)
		s.bookmarks = s.loadBookmarks(book.ID)
		s.nav.Reset(pages)
		s.mu.Unlock()

		s.logger.Info("book ready", "book_id", book.ID, "title", book.Title,
			"chapters", len(book.Chapters), "pages", len(pages))
		return nil
	}
}

// Book returns the loaded book, or nil.
func (s *Session) Book() *reels.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book
}

// Settings returns the current settings.
func (s *Session) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

// ApplySettings validates and adopts st, persists it, and re-paginates the
// loaded book when the change affects layout.
func (s *Session) ApplySettings(ctx context.Context, st settings.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.settings
	s.settings = st.Clone()
	s.settingsGen++
	gen := s.settingsGen
	hasBook := s.book != nil
	s.mu.Unlock()

	s.adoptSettings(st)
	if !hasBook || settings.PaginationEqual(prev, st) {
		return nil
	}

	s.flushMeasurements()
	err := s.repaginate(ctx)
	if err == nil || errors.Is(err, ErrSuperseded) {
		return err
	}

	// The published Page List still reflects prev.
	s.mu.Lock()
	restore := gen == s.settingsGen
	if restore {
		s.settings = prev
		s.settingsGen++
	}
	s.mu.Unlock()
	if restore {
		s.adoptSettings(prev)
	}
	return err
}

func (s *Session) adoptSettings(st settings.Settings) {
	s.nav.SetSettleDelay(st.Navigation.SettleDelay)
	if err := s.saveJSON(settingsKey, st); err != nil {
		s.logger.Warn("saving settings failed", "error", err)
	}
}

// flushMeasurements drops cached heights measured under a previous layout.
func (s *Session) flushMeasurements() {
	if f, ok := s.measurer.(interface{ Flush() }); ok {
		f.Flush()
	}
}

// SetFontSize switches to one of the selectable font sizes.
func (s *Session) SetFontSize(ctx context.Context, size float64) error {
	st := s.Settings()
	st.Typography.FontSize = size
	return s.ApplySettings(ctx, st)
}

// CycleFontSize advances to the next selectable font size.
func (s *Session) CycleFontSize(ctx context.Context) error {
	st := s.Settings()
	st.Typography.FontSize = st.NextFontSize()
	return s.ApplySettings(ctx, st)
}

// Resize adopts new window dimensions.
func (s *Session) Resize(ctx context.Context, width, height float64) error {
	st := s.Settings()
	st.Viewport.Width = width
	st.Viewport.Height = height
	return s.ApplySettings(ctx, st)
}

// repaginate rebuilds the Page List from chapter markup with the latest
// settings and swaps it in, clamping the reading position. A newer
// re-pagination or load cancels this one.
func (s *Session) repaginate(ctx context.Context) error {
	s.mu.Lock()
	if s.pageCancel != nil {
		s.pageCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.pageGen++
	gen := s.pageGen
	s.pageCancel = cancel
	book := s.book
	cfg := s.settings.PageConfig()
	s.mu.Unlock()

	pages, err := paginate.Paginate(ctx, book.Chapters, cfg, s.measurer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.pageGen {
		return ErrSuperseded
	}
	if err != nil {
		s.logger.Error("re-pagination failed; keeping previous pages", "error", err)
		return err
	}
	s.nav.Replace(pages)
	s.logger.Debug("re-paginated", "pages", len(pages),
		"font_size", cfg.Font.Size, "width", cfg.Viewport.Width, "height", cfg.Viewport.Height)
	return nil
}

// Pages returns the current Page List.
func (s *Session) Pages() []paginate.Page {
	return s.nav.Pages()
}

// State returns the navigation state.
func (s *Session) State() navigate.State {
	return s.nav.State()
}

// CurrentPage returns the page at the reading position.
func (s *Session) CurrentPage() (paginate.Page, bool) {
	return s.nav.CurrentPage()
}

// OnChange registers an observer of navigation state changes.
func (s *Session) OnChange(fn func(navigate.State)) {
	s.nav.OnChange(fn)
}

// Next turns to the next page.
func (s *Session) Next() (navigate.Transition, bool) {
	return s.moved(s.nav.Next())
}

// Previous turns to the previous page.
func (s *Session) Previous() (navigate.Transition, bool) {
	return s.moved(s.nav.Previous())
}

// GoToPage jumps to page i of the Page List.
func (s *Session) GoToPage(i int) (navigate.Transition, bool) {
	return s.moved(s.nav.GoToPage(i))
}

// GoToChapter jumps to the first page of a chapter.
func (s *Session) GoToChapter(chapterIndex int) (navigate.Transition, bool) {
	return s.moved(s.nav.GoToChapter(chapterIndex))
}

func (s *Session) moved(tr navigate.Transition, ok bool) (navigate.Transition, bool) {
	if ok {
		s.saveProgress()
	}
	return tr, ok
}
