// Package dom wraps golang.org/x/net/html document trees: decoding of
// input markup, small node helpers and serialization of converted results.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// Parse decodes markup into document tree. When enc is nil the input
// encoding is detected from BOM, contentType and meta elements, otherwise
// enc is forced.
func Parse(r io.Reader, contentType string, enc encoding.Encoding) (*html.Node, error) {
	var err error
	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	} else if r, err = charset.NewReader(r, contentType); err != nil {
		return nil, fmt.Errorf("unable to detect document encoding: %w", err)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse document: %w", err)
	}
	return doc, nil
}

// ParseString parses UTF-8 markup.
func ParseString(markup string) (*html.Node, error) {
	return html.Parse(strings.NewReader(markup))
}

// Attr returns value of attribute without namespace.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr replaces value of attribute or adds new one.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Text concatenates text of immediate text children. For raw text elements
// (style, script) this is the element content.
func Text(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
	}
	return buf.String()
}

// Remove detaches node from its parent. Detached nodes are left alone.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
