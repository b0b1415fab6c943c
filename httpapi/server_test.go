package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/simp-lee/reels/annotate"
	"github.com/simp-lee/reels/navigate"
	"github.com/simp-lee/reels/paginate"
	"github.com/simp-lee/reels/session"
	"github.com/simp-lee/reels/settings"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	measure := paginate.MeasurerFunc(func(fragment string, _ float64, f paginate.Font) (float64, error) {
		n := strings.Count(fragment, "</p>") + strings.Count(fragment, "</h1>")
		return float64(n) * 100 * f.Size / 18, nil
	})
	sess, err := session.New(
		session.WithMeasurer(measure),
		session.WithScheduler(navigate.Immediate),
		session.WithClock(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return New(sess)
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, rec.Body.String())
	}
	return v
}

func TestUpload_Rejected(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/book", []byte("not a zip"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error != "could not load file" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	sess, err := session.New()
	if err != nil {
		t.Fatal(err)
	}
	srv := New(sess, WithMaxUploadBytes(4))
	rec := do(t, srv, http.MethodPost, "/api/book", []byte("0123456789"))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestUpload_RateLimited(t *testing.T) {
	sess, err := session.New()
	if err != nil {
		t.Fatal(err)
	}
	srv := New(sess, WithUploadRateLimit(1, time.Hour))
	if rec := do(t, srv, http.MethodPost, "/api/book", []byte("x")); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("first upload status = %d, want 422", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/book", []byte("x")); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second upload status = %d, want 429", rec.Code)
	}
}

func TestBook_NoneLoaded(t *testing.T) {
	srv := newTestServer(t)
	for _, target := range []string{"/api/book", "/api/export/markdown"} {
		if rec := do(t, srv, http.MethodGet, target, nil); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", target, rec.Code)
		}
	}
	rec := do(t, srv, http.MethodGet, "/api/pages", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("GET /api/pages = %d %q, want 200 []", rec.Code, rec.Body.String())
	}
}

func TestDemoAndNavigation(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/demo", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/demo status = %d", rec.Code)
	}
	book := decode[bookResponse](t, rec)
	if book.ID != session.DemoBookID || len(book.Chapters) != 3 {
		t.Fatalf("book = %+v", book)
	}
	if book.State.Total != 3 || book.State.Current != 0 {
		t.Errorf("state = %+v", book.State)
	}

	pages := decode[[]paginate.Page](t, do(t, srv, http.MethodGet, "/api/pages", nil))
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}

	move := decode[moveResponse](t, do(t, srv, http.MethodPost, "/api/next", nil))
	if !move.Moved || move.State.Current != 1 || move.Transition.Direction != navigate.Forward {
		t.Errorf("next = %+v", move)
	}

	move = decode[moveResponse](t, do(t, srv, http.MethodPost, "/api/goto/1", nil))
	if move.Moved || move.Transition != nil {
		t.Errorf("goto current page = %+v, want no move", move)
	}

	move = decode[moveResponse](t, do(t, srv, http.MethodPost, "/api/chapters/2", nil))
	if !move.Moved || move.State.Current != 2 || move.State.Chapter != 2 {
		t.Errorf("chapter 2 = %+v", move)
	}

	move = decode[moveResponse](t, do(t, srv, http.MethodPost, "/api/previous", nil))
	if !move.Moved || move.Transition.Direction != navigate.Backward {
		t.Errorf("previous = %+v", move)
	}

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodPost, "/api/goto/abc", http.StatusBadRequest},
		{http.MethodPost, "/api/goto/-1", http.StatusBadRequest},
		{http.MethodGet, "/api/pages/9", http.StatusNotFound},
		{http.MethodGet, "/api/pages/0", http.StatusOK},
		{http.MethodGet, "/api/state", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(t, srv, tt.method, tt.target, nil); rec.Code != tt.want {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
		}
	}
}

func TestSettings(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/demo", nil)

	st := decode[settings.Settings](t, do(t, srv, http.MethodGet, "/api/settings", nil))
	if st.Typography.FontSize != 18 {
		t.Fatalf("font size = %g, want 18", st.Typography.FontSize)
	}

	rec := do(t, srv, http.MethodPut, "/api/settings", []byte(`{"typography":{"font_size":24}}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body.String())
	}
	st = decode[settings.Settings](t, rec)
	if st.Typography.FontSize != 24 || st.Typography.LineHeight != 1.8 {
		t.Errorf("settings = %+v", st.Typography)
	}
	// Each demo chapter is five blocks; at 24px that is over 658px.
	pages := decode[[]paginate.Page](t, do(t, srv, http.MethodGet, "/api/pages", nil))
	if len(pages) <= 3 {
		t.Errorf("pages after font change = %d, want more than 3", len(pages))
	}

	for _, body := range []string{`{"typography":{"font_size":0}}`, `{`} {
		if rec := do(t, srv, http.MethodPut, "/api/settings", []byte(body)); rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s status = %d, want 400", body, rec.Code)
		}
	}
}

func TestAnnotationsAndBookmarks(t *testing.T) {
	srv := newTestServer(t)
	if rec := do(t, srv, http.MethodPost, "/api/annotations", []byte(`{"selection":"Alice"}`)); rec.Code != http.StatusNotFound {
		t.Errorf("annotate without book status = %d, want 404", rec.Code)
	}
	do(t, srv, http.MethodPost, "/api/demo", nil)

	rec := do(t, srv, http.MethodPost, "/api/annotations", []byte(`{"selection":"White Rabbit","note":"late"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("annotate status = %d: %s", rec.Code, rec.Body.String())
	}
	a := decode[annotate.Annotation](t, rec)
	if a.PageIndex != 0 || a.Note != "late" {
		t.Errorf("annotation = %+v", a)
	}

	if rec := do(t, srv, http.MethodPost, "/api/annotations", []byte(`{"selection":"Cheshire Cat"}`)); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing selection status = %d, want 422", rec.Code)
	}

	page := decode[paginate.Page](t, do(t, srv, http.MethodGet, "/api/pages/0", nil))
	if !strings.Contains(page.Content, `<mark data-annotation-id="`+a.ID+`">White Rabbit</mark>`) {
		t.Errorf("page 0 not highlighted: %s", page.Content)
	}

	do(t, srv, http.MethodPost, "/api/chapters/2", nil)
	move := decode[moveResponse](t, do(t, srv, http.MethodPost, "/api/annotations/"+a.ID+"/goto", nil))
	if !move.Moved || move.State.Current != 0 {
		t.Errorf("goto annotation = %+v", move)
	}

	anns := decode[annotate.List](t, do(t, srv, http.MethodGet, "/api/annotations", nil))
	if len(anns) != 1 {
		t.Errorf("annotations = %d, want 1", len(anns))
	}
	if rec := do(t, srv, http.MethodDelete, "/api/annotations/"+a.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/annotations/"+a.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}

	if rec := do(t, srv, http.MethodPost, "/api/bookmarks", nil); rec.Code != http.StatusCreated {
		t.Errorf("bookmark status = %d", rec.Code)
	}
	marks := decode[[]annotate.Bookmark](t, do(t, srv, http.MethodGet, "/api/bookmarks", nil))
	if len(marks) != 1 || marks[0].PageIndex != 0 {
		t.Errorf("bookmarks = %+v", marks)
	}
}

func TestExportMarkdown(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/demo", nil)
	rec := do(t, srv, http.MethodGet, "/api/export/markdown", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "# Alice's Adventures in Wonderland\n") {
		t.Errorf("unexpected body start: %.60q", rec.Body.String())
	}
}
