package session

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/simp-lee/reels/annotate"
	"github.com/simp-lee/reels/navigate"
	"github.com/simp-lee/reels/settings"
)

const settingsKey = "settings"

func progressKey(bookID string) string    { return "progress/" + bookID }
func annotationsKey(bookID string) string { return "annotations/" + bookID }
func bookmarksKey(bookID string) string   { return "bookmarks/" + bookID }

// Progress is the saved reading position of a book.
type Progress struct {
	Page       int       `json:"page"`
	Total      int       `json:"total"`
	Percentage float64   `json:"percentage"`
	Chapter    int       `json:"chapter"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Session) saveJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", key, err)
	}
	if err := s.store.Set(key, string(data)); err != nil {
		return fmt.Errorf("session: save %s: %w", key, err)
	}
	return nil
}

// loadJSON decodes the value at key into v. Missing and undecodable values
// report false; the latter are logged.
func (s *Session) loadJSON(key string, v any) bool {
	raw, ok := s.store.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("ignoring unreadable saved value", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Session) savedSettings() settings.Settings {
	var st settings.Settings
	if s.loadJSON(settingsKey, &st) {
		if err := st.Validate(); err == nil {
			return st
		}
		s.logger.Warn("ignoring invalid saved settings")
	}
	return settings.Default()
}

func (s *Session) saveProgress() {
	book := s.Book()
	if book == nil {
		return
	}
	st := s.nav.State()
	p := Progress{
		Page:       st.Current,
		Total:      st.Total,
		Percentage: st.Progress * 100,
		Chapter:    st.Chapter,
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.saveJSON(progressKey(book.ID), p); err != nil {
		s.logger.Warn("saving progress failed", "error", err)
	}
}

// SavedProgress returns the saved position of the loaded book.
func (s *Session) SavedProgress() (Progress, bool) {
	book := s.Book()
	if book == nil {
		return Progress{}, false
	}
	var p Progress
	return p, s.loadJSON(progressKey(book.ID), &p)
}

// Resume jumps to the saved position of the loaded book. A position saved
// against a Page List of a different length is scaled to the current one.
func (s *Session) Resume() (navigate.Transition, bool) {
	p, ok := s.SavedProgress()
	if !ok {
		return navigate.Transition{}, false
	}
	target := p.Page
	total := s.nav.State().Total
	if p.Total > 0 && p.Total != total {
		target = int(math.Floor(float64(p.Page) / float64(p.Total) * float64(total)))
	}
	if target >= total {
		target = total - 1
	}
	return s.GoToPage(target)
}

func (s *Session) loadAnnotations(bookID string) annotate.List {
	var l annotate.List
	s.loadJSON(annotationsKey(bookID), &l)
	return l
}

func (s *Session) loadBookmarks(bookID string) []annotate.Bookmark {
	var b []annotate.Bookmark
	s.loadJSON(bookmarksKey(bookID), &b)
	return b
}

// Annotations returns the annotations of the loaded book.
func (s *Session) Annotations() annotate.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(annotate.List(nil), s.annotations...)
}

// Annotate highlights selection on the current page and saves it with note.
func (s *Session) Annotate(selection, note string) (annotate.Annotation, error) {
	book := s.Book()
	if book == nil {
		return annotate.Annotation{}, ErrNoBook
	}
	index, page, ok := s.nav.Current()
	if !ok {
		return annotate.Annotation{}, ErrNoBook
	}
	found, err := annotate.Contains(page.Content, selection)
	if err != nil {
		return annotate.Annotation{}, err
	}
	if !found {
		return annotate.Annotation{}, fmt.Errorf("%w: %q", annotate.ErrSelectionNotFound, selection)
	}

	a := annotate.New(book.ID, index, page.ChapterIndex, selection, note, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations = append(s.annotations, a)
	if err := s.saveJSON(annotationsKey(book.ID), s.annotations); err != nil {
		s.annotations = s.annotations[:len(s.annotations)-1]
		return annotate.Annotation{}, err
	}
	return a, nil
}

// RemoveAnnotation deletes an annotation.
func (s *Session) RemoveAnnotation(id string) error {
	book := s.Book()
	if book == nil {
		return ErrNoBook
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rest, ok := s.annotations.Remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAnnotationNotFound, id)
	}
	if err := s.saveJSON(annotationsKey(book.ID), rest); err != nil {
		return err
	}
	s.annotations = rest
	return nil
}

// locate returns the page an annotation is on in the current Page List.
// Page boundaries move on re-pagination, so the recorded page is checked
// first and then the pages of the recorded chapter are searched.
func (s *Session) locate(a annotate.Annotation) int {
	pages := s.nav.Pages()
	contains := func(i int) bool {
		ok, err := annotate.Contains(pages[i].Content, a.Selection)
		return err == nil && ok
	}
	if a.PageIndex >= 0 && a.PageIndex < len(pages) &&
		pages[a.PageIndex].ChapterIndex == a.ChapterIndex && contains(a.PageIndex) {
		return a.PageIndex
	}
	for i, p := range pages {
		if p.ChapterIndex == a.ChapterIndex && contains(i) {
			return i
		}
	}
	return -1
}

// GoToAnnotation jumps to the page holding an annotation.
func (s *Session) GoToAnnotation(id string) (navigate.Transition, bool, error) {
	a, ok := s.Annotations().Find(id)
	if !ok {
		return navigate.Transition{}, false, fmt.Errorf("%w: %s", ErrAnnotationNotFound, id)
	}
	i := s.locate(a)
	if i < 0 {
		return navigate.Transition{}, false, fmt.Errorf("%w: %s is no longer in the book", ErrAnnotationNotFound, id)
	}
	tr, moved := s.GoToPage(i)
	return tr, moved, nil
}

// HighlightedPage returns the content of page i with its annotations
// rendered as marks.
func (s *Session) HighlightedPage(i int) (string, error) {
	pages := s.nav.Pages()
	if i < 0 || i >= len(pages) {
		return "", fmt.Errorf("session: page %d out of range [0, %d)", i, len(pages))
	}
	var onPage []annotate.Annotation
	for _, a := range s.Annotations() {
		if s.locate(a) == i {
			onPage = append(onPage, a)
		}
	}
	if len(onPage) == 0 {
		return pages[i].Content, nil
	}
	return annotate.Apply(pages[i].Content, onPage)
}

// Bookmarks returns the bookmarks of the loaded book ordered by page.
func (s *Session) Bookmarks() []annotate.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := append([]annotate.Bookmark(nil), s.bookmarks...)
	annotate.SortBookmarks(b)
	return b
}

// AddBookmark bookmarks the current page.
func (s *Session) AddBookmark(note string) (annotate.Bookmark, error) {
	book := s.Book()
	if book == nil {
		return annotate.Bookmark{}, ErrNoBook
	}
	index, _, _ := s.nav.Current()
	b := annotate.Bookmark{
		BookID:    book.ID,
		PageIndex: index,
		Note:      note,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]annotate.Bookmark(nil), s.bookmarks...), b)
	if err := s.saveJSON(bookmarksKey(book.ID), next); err != nil {
		return annotate.Bookmark{}, err
	}
	s.bookmarks = next
	return b, nil
}
