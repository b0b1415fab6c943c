// Package annotate models reader annotations and bookmarks and renders
// highlights into page markup.
//
// Highlighting works on the parsed page tree: the selected text is located
// across the concatenated text nodes, the nodes at the range boundaries are
// split, and each covered piece is wrapped in a mark element. Element
// structure and attribute values are never searched.
package annotate

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrSelectionNotFound is returned when the selected text does not occur in
// the page.
var ErrSelectionNotFound = errors.New("annotate: selection not found")

// IDAttr is the attribute carrying the annotation id on rendered marks.
const IDAttr = "data-annotation-id"

// Annotation is a highlighted text selection on a page, with an optional note.
type Annotation struct {
	ID           string    `json:"id"`
	BookID       string    `json:"book_id"`
	PageIndex    int       `json:"page_index"`
	ChapterIndex int       `json:"chapter_index"`
	Selection    string    `json:"selection"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// New returns an annotation with a fresh random id.
func New(bookID string, pageIndex, chapterIndex int, selection, note string, now time.Time) Annotation {
	return Annotation{
		ID:           uuid.NewString(),
		BookID:       bookID,
		PageIndex:    pageIndex,
		ChapterIndex: chapterIndex,
		Selection:    selection,
		Note:         note,
		CreatedAt:    now.UTC(),
	}
}

// List is an ordered collection of annotations.
type List []Annotation

// ForPage returns the annotations on page i in creation order.
func (l List) ForPage(i int) List {
	var out List
	for _, a := range l {
		if a.PageIndex == i {
			out = append(out, a)
		}
	}
	return out
}

// Find returns the annotation with the given id.
func (l List) Find(id string) (Annotation, bool) {
	for _, a := range l {
		if a.ID == id {
			return a, true
		}
	}
	return Annotation{}, false
}

// Remove returns l without the annotation id and whether it was present.
func (l List) Remove(id string) (List, bool) {
	for i, a := range l {
		if a.ID == id {
			return append(l[:i:i], l[i+1:]...), true
		}
	}
	return l, false
}

// Bookmark marks a page.
type Bookmark struct {
	BookID    string    `json:"book_id"`
	PageIndex int       `json:"page_index"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SortBookmarks orders bookmarks by page, oldest first within a page.
func SortBookmarks(b []Bookmark) {
	sort.SliceStable(b, func(i, j int) bool {
		if b[i].PageIndex != b[j].PageIndex {
			return b[i].PageIndex < b[j].PageIndex
		}
		return b[i].CreatedAt.Before(b[j].CreatedAt)
	})
}

// Highlight wraps the first occurrence of selection in fragment with
// mark elements tagged with id. Whitespace runs in the selection match any
// whitespace run in the text.
func Highlight(fragment, selection, id string) (string, error) {
	root, err := parse(fragment)
	if err != nil {
		return "", err
	}
	if err := highlight(root, selection, id); err != nil {
		return "", err
	}
	return render(root)
}

// Apply renders every annotation in anns onto fragment in order.
// Annotations whose selection no longer occurs are skipped.
func Apply(fragment string, anns []Annotation) (string, error) {
	root, err := parse(fragment)
	if err != nil {
		return "", err
	}
	for _, a := range anns {
		err := highlight(root, a.Selection, a.ID)
		if err != nil && !errors.Is(err, ErrSelectionNotFound) {
			return "", err
		}
	}
	return render(root)
}

func parse(fragment string) (*html.Node, error) {
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return nil, fmt.Errorf("annotate: parse page: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

func render(root *html.Node) (string, error) {
	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("annotate: render page: %w", err)
		}
	}
	return b.String(), nil
}

// textSpan is a text node and its byte offset in the concatenated text.
type textSpan struct {
	node  *html.Node
	start int
}

// Contains reports whether selection occurs in the text of fragment, using
// the same matching rules as Highlight.
func Contains(fragment, selection string) (bool, error) {
	root, err := parse(fragment)
	if err != nil {
		return false, err
	}
	_, _, _, err = find(root, selection)
	switch {
	case errors.Is(err, ErrSelectionNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// wordGap matches any run of the characters strings.Fields splits on.
// RE2's \s is ASCII only, so no-break and other Unicode spaces are listed.
const wordGap = `[\s\p{Z}\x{85}]+`

// find locates selection in the concatenated text under root and returns
// the text nodes with the matched byte range.
func find(root *html.Node, selection string) (spans []textSpan, from, to int, err error) {
	if !utf8.ValidString(selection) {
		return nil, 0, 0, fmt.Errorf("%w: selection is not valid UTF-8", ErrSelectionNotFound)
	}
	words := strings.Fields(selection)
	if len(words) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: empty selection", ErrSelectionNotFound)
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(strings.Join(words, wordGap))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrSelectionNotFound, err)
	}

	var text strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			spans = append(spans, textSpan{node: n, start: text.Len()})
			text.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(root)

	loc := re.FindStringIndex(text.String())
	if loc == nil {
		return nil, 0, 0, fmt.Errorf("%w: %q", ErrSelectionNotFound, selection)
	}
	return spans, loc[0], loc[1], nil
}

func highlight(root *html.Node, selection, id string) error {
	spans, from, to, err := find(root, selection)
	if err != nil {
		return err
	}
	for _, s := range spans {
		end := s.start + len(s.node.Data)
		lo, hi := max(from, s.start), min(to, end)
		if lo >= hi || strings.TrimSpace(s.node.Data[lo-s.start:hi-s.start]) == "" {
			continue
		}
		wrapRange(s.node, lo-s.start, hi-s.start, id)
	}
	return nil
}

// wrapRange splits the text node t so that bytes [lo, hi) sit in their own
// mark element.
func wrapRange(t *html.Node, lo, hi int, id string) {
	parent := t.Parent
	data := t.Data

	if lo > 0 {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: data[:lo]}, t)
	}
	mark := &html.Node{
		Type:     html.ElementNode,
		Data:     "mark",
		DataAtom: atom.Mark,
		Attr:     []html.Attribute{{Key: IDAttr, Val: id}},
	}
	parent.InsertBefore(mark, t)
	if hi < len(data) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: data[hi:]}, t)
	}
	parent.RemoveChild(t)
	t.Data = data[lo:hi]
	mark.AppendChild(t)
}
