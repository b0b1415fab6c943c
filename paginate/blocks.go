package paginate

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms are the elements the paginator measures and places on pages.
var blockAtoms = map[atom.Atom]bool{
	atom.P:  true,
	atom.H1: true,
	atom.H2: true,
	atom.H3: true,
	atom.H4: true,
	atom.H5: true,
	atom.H6: true,
}

// bodyContext is the parse context for chapter markup, which is the inner
// HTML of a body element.
func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// splitBlocks returns the paginable blocks of markup in document order.
//
// Paragraphs and headings are blocks. An element that contains blocks is
// unwrapped and its children are walked. Any other non-blank content is
// appended to the preceding block; content before the first block is
// prepended to it. Markup without any block yields no blocks.
func splitBlocks(markup string) ([]string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), bodyContext())
	if err != nil {
		return nil, fmt.Errorf("paginate: parse chapter markup: %w", err)
	}

	var (
		blocks  []string
		leading bytes.Buffer
	)
	attach := func(n *html.Node) error {
		var buf bytes.Buffer
		if err := html.Render(&buf, n); err != nil {
			return err
		}
		if len(blocks) == 0 {
			leading.Write(buf.Bytes())
			return nil
		}
		blocks[len(blocks)-1] += buf.String()
		return nil
	}

	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		switch {
		case n.Type == html.ElementNode && blockAtoms[n.DataAtom]:
			var buf bytes.Buffer
			if len(blocks) == 0 {
				buf.Write(leading.Bytes())
				leading.Reset()
			}
			if err := html.Render(&buf, n); err != nil {
				return err
			}
			blocks = append(blocks, buf.String())
		case n.Type == html.ElementNode && containsBlock(n):
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if err := walk(c); err != nil {
					return err
				}
			}
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) == "":
		case n.Type == html.CommentNode:
		default:
			return attach(n)
		}
		return nil
	}

	for _, n := range nodes {
		if err := walk(n); err != nil {
			return nil, fmt.Errorf("paginate: render block: %w", err)
		}
	}
	return blocks, nil
}

// containsBlock reports whether any descendant of n is a block element.
func containsBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if blockAtoms[c.DataAtom] || containsBlock(c) {
			return true
		}
	}
	return false
}
