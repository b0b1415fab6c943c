package paginate

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type faceKind int

const (
	faceRegular faceKind = iota
	faceBold
	faceMono
)

// blockStyle approximates the user-agent stylesheet for a block element.
// Margins are in em of the element's own font size; indent is in pixels and
// applies to the element's content box.
type blockStyle struct {
	scale        float64
	kind         faceKind
	marginTop    float64
	marginBottom float64
	indent       float64
	pre          bool
}

var blockStyles = map[atom.Atom]blockStyle{
	atom.P:          {scale: 1, marginTop: 1, marginBottom: 1},
	atom.H1:         {scale: 2, kind: faceBold, marginTop: 0.67, marginBottom: 0.67},
	atom.H2:         {scale: 1.5, kind: faceBold, marginTop: 0.83, marginBottom: 0.83},
	atom.H3:         {scale: 1.17, kind: faceBold, marginTop: 1, marginBottom: 1},
	atom.H4:         {scale: 1, kind: faceBold, marginTop: 1.33, marginBottom: 1.33},
	atom.H5:         {scale: 0.83, kind: faceBold, marginTop: 1.67, marginBottom: 1.67},
	atom.H6:         {scale: 0.67, kind: faceBold, marginTop: 2.33, marginBottom: 2.33},
	atom.Ul:         {scale: 1, marginTop: 1, marginBottom: 1, indent: 40},
	atom.Ol:         {scale: 1, marginTop: 1, marginBottom: 1, indent: 40},
	atom.Dl:         {scale: 1, marginTop: 1, marginBottom: 1},
	atom.Dd:         {scale: 1, indent: 40},
	atom.Blockquote: {scale: 1, marginTop: 1, marginBottom: 1, indent: 80},
	atom.Figure:     {scale: 1, marginTop: 1, marginBottom: 1, indent: 80},
	atom.Pre:        {scale: 1, kind: faceMono, marginTop: 1, marginBottom: 1, pre: true},
	atom.Li:         {scale: 1},
	atom.Dt:         {scale: 1},
	atom.Div:        {scale: 1},
	atom.Section:    {scale: 1},
	atom.Article:    {scale: 1},
	atom.Aside:      {scale: 1},
	atom.Header:     {scale: 1},
	atom.Footer:     {scale: 1},
	atom.Main:       {scale: 1},
	atom.Nav:        {scale: 1},
	atom.Address:    {scale: 1},
	atom.Figcaption: {scale: 1},
	atom.Center:     {scale: 1},
	atom.Table:      {scale: 1},
	atom.Tbody:      {scale: 1},
	atom.Thead:      {scale: 1},
	atom.Tfoot:      {scale: 1},
	atom.Tr:         {scale: 1},
	atom.Caption:    {scale: 1},
}

// hrHeight is the border height of a horizontal rule.
const hrHeight = 2

// FaceMeasurer lays out markup headlessly with the Go fonts: proportional
// regular and bold faces for text and headings, monospace for pre and code.
// It models greedy word wrapping, forced line breaks, user-agent block
// margins (adjacent margins collapse), and list and quotation indents.
// Images and CSS are ignored.
//
// A FaceMeasurer is safe for concurrent use.
type FaceMeasurer struct {
	mu    sync.Mutex
	fonts [3]*opentype.Font
	faces map[faceKey]font.Face
}

type faceKey struct {
	kind faceKind
	size float64
}

// NewFaceMeasurer parses the embedded Go fonts.
func NewFaceMeasurer() (*FaceMeasurer, error) {
	m := &FaceMeasurer{faces: make(map[faceKey]font.Face)}
	for i, ttf := range [][]byte{goregular.TTF, gobold.TTF, gomono.TTF} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("paginate: parse embedded font: %w", err)
		}
		m.fonts[i] = f
	}
	return m, nil
}

// face returns the cached face for kind at size pixels. Callers hold m.mu.
func (m *FaceMeasurer) face(kind faceKind, size float64) (font.Face, error) {
	key := faceKey{kind: kind, size: size}
	if f, ok := m.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(m.fonts[kind], &opentype.FaceOptions{
		Size:    size,
		DPI:     72, // 1pt == 1px
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("paginate: build %gpx face: %w", size, err)
	}
	m.faces[key] = f
	return f, nil
}

// Measure returns the laid-out height of fragment.
func (m *FaceMeasurer) Measure(fragment string, width float64, f Font) (float64, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), bodyContext())
	if err != nil {
		return 0, fmt.Errorf("paginate: parse fragment: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	root := &layoutContext{
		m:          m,
		size:       f.Size,
		lineHeight: f.LineHeight,
		width:      width,
		style:      blockStyle{scale: 1},
	}
	boxes, err := root.layoutChildren(nodes)
	if err != nil {
		return 0, err
	}
	return stackHeight(boxes), nil
}

// box is a laid-out block: its content height and vertical margins in pixels.
type box struct {
	height       float64
	marginTop    float64
	marginBottom float64
}

// stackHeight sums stacked boxes, collapsing adjacent margins.
func stackHeight(boxes []box) float64 {
	if len(boxes) == 0 {
		return 0
	}
	total := boxes[0].marginTop
	for i, b := range boxes {
		total += b.height
		if i+1 < len(boxes) {
			total += math.Max(b.marginBottom, boxes[i+1].marginTop)
		}
	}
	return total + boxes[len(boxes)-1].marginBottom
}

type layoutContext struct {
	m          *FaceMeasurer
	size       float64
	lineHeight float64
	width      float64
	style      blockStyle
}

// child returns the context for a block child styled by s.
func (c *layoutContext) child(s blockStyle) *layoutContext {
	return &layoutContext{
		m:          c.m,
		size:       c.size * s.scale,
		lineHeight: c.lineHeight,
		width:      math.Max(1, c.width-s.indent),
		style:      s,
	}
}

// layoutChildren lays out sibling nodes. Runs of inline content between
// block children form anonymous boxes.
func (c *layoutContext) layoutChildren(nodes []*html.Node) ([]box, error) {
	var (
		boxes  []box
		inline []*html.Node
	)
	flushInline := func() error {
		if len(inline) == 0 {
			return nil
		}
		h, err := c.inlineHeight(inline)
		if err != nil {
			return err
		}
		if h > 0 {
			boxes = append(boxes, box{height: h})
		}
		inline = inline[:0]
		return nil
	}

	for _, n := range nodes {
		if n.Type != html.ElementNode || !isBlockLevel(n) {
			inline = append(inline, n)
			continue
		}
		if err := flushInline(); err != nil {
			return nil, err
		}
		b, err := c.layoutBlock(n)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b...)
	}
	if err := flushInline(); err != nil {
		return nil, err
	}
	return boxes, nil
}

// layoutBlock lays out a block-level element and returns its boxes with the
// element's own margins folded into the first and last of them.
func (c *layoutContext) layoutBlock(n *html.Node) ([]box, error) {
	if n.DataAtom == atom.Hr {
		return []box{{height: hrHeight, marginTop: 0.5 * c.size, marginBottom: 0.5 * c.size}}, nil
	}

	s := blockStyles[n.DataAtom]
	cc := c.child(s)
	mt, mb := s.marginTop*cc.size, s.marginBottom*cc.size

	var children []*html.Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		children = append(children, ch)
	}

	if !hasBlockDescendant(n) {
		h, err := cc.inlineHeight(children)
		if err != nil {
			return nil, err
		}
		return []box{{height: h, marginTop: mt, marginBottom: mb}}, nil
	}

	boxes, err := cc.layoutChildren(children)
	if err != nil {
		return nil, err
	}
	if len(boxes) == 0 {
		return []box{{marginTop: mt, marginBottom: mb}}, nil
	}
	boxes[0].marginTop = math.Max(boxes[0].marginTop, mt)
	last := len(boxes) - 1
	boxes[last].marginBottom = math.Max(boxes[last].marginBottom, mb)
	return boxes, nil
}

// isBlockLevel reports whether n is laid out as a block.
func isBlockLevel(n *html.Node) bool {
	if n.DataAtom == atom.Hr {
		return true
	}
	_, ok := blockStyles[n.DataAtom]
	return ok
}

// hasBlockDescendant reports whether any descendant of n is block-level.
func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (isBlockLevel(c) || hasBlockDescendant(c)) {
			return true
		}
	}
	return false
}

// token is a wrap-unit: a word, or a pre-formatted line.
type token struct {
	width  fixed.Int26_6
	breaks int // forced line breaks before this token
}

// inliner collects tokens from inline content.
type inliner struct {
	c       *layoutContext
	tokens  []token
	space   bool
	breaks  int
	started bool
}

// inlineHeight wraps the inline content of nodes to the context width and
// returns the resulting line box height.
func (c *layoutContext) inlineHeight(nodes []*html.Node) (float64, error) {
	in := &inliner{c: c}
	for _, n := range nodes {
		if err := in.walk(n, c.style.kind); err != nil {
			return 0, err
		}
	}
	if len(in.tokens) == 0 {
		return 0, nil
	}
	face, err := c.m.face(c.style.kind, c.size)
	if err != nil {
		return 0, err
	}
	spaceWidth := font.MeasureString(face, " ")
	lines := countLines(in.tokens, spaceWidth, fixed.Int26_6(c.width*64))
	return float64(lines) * c.size * c.lineHeight, nil
}

func (in *inliner) walk(n *html.Node, kind faceKind) error {
	switch n.Type {
	case html.TextNode:
		return in.text(n.Data, kind)
	case html.ElementNode:
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.Br:
		in.breaks++
		in.space = false
		return nil
	case atom.Img, atom.Svg, atom.Script, atom.Style:
		return nil
	case atom.B, atom.Strong:
		if kind == faceRegular {
			kind = faceBold
		}
	case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
		kind = faceMono
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := in.walk(c, kind); err != nil {
			return err
		}
	}
	return nil
}

// text tokenizes a text node. Words not separated by whitespace from the
// previous token are glued to it so that they wrap together.
func (in *inliner) text(s string, kind faceKind) error {
	face, err := in.c.m.face(kind, in.c.size)
	if err != nil {
		return err
	}

	if in.c.style.pre {
		for i, line := range strings.Split(s, "\n") {
			if i > 0 {
				in.breaks++
			}
			if line == "" && i > 0 {
				continue
			}
			in.push(font.MeasureString(face, line), true)
		}
		return nil
	}

	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				in.push(font.MeasureString(face, s[start:i]), false)
				start = -1
			}
			in.space = true
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		in.push(font.MeasureString(face, s[start:]), false)
	}
	return nil
}

func (in *inliner) push(w fixed.Int26_6, separate bool) {
	glue := in.started && !in.space && in.breaks == 0 && !separate
	if glue {
		in.tokens[len(in.tokens)-1].width += w
	} else {
		in.tokens = append(in.tokens, token{width: w, breaks: in.breaks})
	}
	in.started = true
	in.space = false
	in.breaks = 0
}

// countLines greedily fills lines of at most limit width. A token wider than
// a line occupies a line of its own.
func countLines(tokens []token, space, limit fixed.Int26_6) int {
	lines := 1
	var used fixed.Int26_6
	for i, t := range tokens {
		if t.breaks > 0 {
			lines += t.breaks
			used = t.width
			continue
		}
		if i == 0 {
			used = t.width
			continue
		}
		if used+space+t.width > limit {
			lines++
			used = t.width
			continue
		}
		used += space + t.width
	}
	return lines
}
