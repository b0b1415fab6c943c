package reels

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// presentationAttrs are stripped from every element so that page layout
// depends only on the reader's own typography.
var presentationAttrs = map[string]bool{
	"style": true,
	"class": true,
}

// Sanitize removes script and style elements and presentation attributes
// from the parsed document and returns the inner HTML of its body. Event
// handler attributes and href/src values with unsafe schemes are removed as
// well. The tree is modified in place. A document without a body yields "".
func Sanitize(doc *html.Node) string {
	if doc == nil {
		return ""
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		return ""
	}
	cleanNode(body)
	return renderChildren(body)
}

// SanitizeString parses markup as an HTML document and sanitizes it.
func SanitizeString(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return Sanitize(doc)
}

// findElement performs a depth-first search for a node with the given atom tag.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, a); result != nil {
			return result
		}
	}
	return nil
}

// removeScripts deletes every script and style subtree below n.
func removeScripts(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && (c.DataAtom == atom.Script || c.DataAtom == atom.Style) {
			n.RemoveChild(c)
			continue
		}
		removeScripts(c)
	}
}

// cleanNode removes script and style subtrees and strips attributes from
// every remaining element below n.
func cleanNode(n *html.Node) {
	removeScripts(n)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				stripAttributes(c)
			}
			walk(c)
		}
	}
	walk(n)
}

// stripAttributes drops presentation, event handler, and unsafe URI attributes.
func stripAttributes(n *html.Node) {
	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if attr.Namespace == "" && presentationAttrs[key] {
			continue
		}
		if strings.HasPrefix(key, "on") {
			continue
		}
		if isURIAttribute(attr) && !isSafeURI(attr.Val) {
			continue
		}
		kept = append(kept, attr)
	}
	n.Attr = kept
}

// isURIAttribute reports whether attr may carry a URL.
func isURIAttribute(attr html.Attribute) bool {
	switch {
	case attr.Key == "href" || attr.Key == "src":
		return true
	case attr.Key == "xlink:href":
		return true
	}
	return false
}

// isSafeURI accepts relative references, fragments, http(s), mailto and
// data:image URIs.
func isSafeURI(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "/") || strings.HasPrefix(v, ".") {
		return true
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(v), "data:image/")
	}
	return false
}

// renderChildren serializes the children of n and trims the result.
func renderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return strings.TrimSpace(buf.String())
		}
	}
	return strings.TrimSpace(buf.String())
}
