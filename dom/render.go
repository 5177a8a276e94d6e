package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"inliner/common"
)

const (
	nsXHTML = "http://www.w3.org/1999/xhtml"
	nsSVG   = "http://www.w3.org/2000/svg"
	nsMath  = "http://www.w3.org/1998/Math/MathML"
	nsXLink = "http://www.w3.org/1999/xlink"
)

// carriage return references produced by both serializers
var crRefs = strings.NewReplacer("&#13;", "", "&#xD;", "", "&#xd;", "")

// Render serializes document in requested format and removes carriage return
// character references from the result. Indentation is only supported for
// XHTML, pretty is ignored for HTML.
func Render(w io.Writer, doc *html.Node, format common.OutputFmt, pretty bool) error {
	var buf bytes.Buffer
	switch format {
	case common.OutputFmtHtml:
		if err := html.Render(&buf, doc); err != nil {
			return fmt.Errorf("unable to render html: %w", err)
		}
	case common.OutputFmtXhtml:
		if _, err := toXML(doc, pretty).WriteTo(&buf); err != nil {
			return fmt.Errorf("unable to render xhtml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format %s", format)
	}
	_, err := crRefs.WriteString(w, buf.String())
	return err
}

// RenderString is Render into a string.
func RenderString(doc *html.Node, format common.OutputFmt, pretty bool) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, doc, format, pretty); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func toXML(doc *html.Node, pretty bool) *etree.Document {
	out := etree.NewDocument()
	out.WriteSettings.CanonicalText = true
	out.WriteSettings.CanonicalAttrVal = true
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	var convert func(parent *etree.Element, n *html.Node)
	convert = func(parent *etree.Element, n *html.Node) {
		switch n.Type {
		case html.DocumentNode:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				convert(parent, c)
			}
		case html.DoctypeNode:
			parent.CreateDirective("DOCTYPE " + n.Data)
		case html.CommentNode:
			parent.CreateComment(n.Data)
		case html.TextNode:
			parent.CreateText(n.Data)
		case html.ElementNode:
			e := parent.CreateElement(n.Data)
			if ns := rootNamespace(n); ns != "" && e.SelectAttr("xmlns") == nil {
				e.CreateAttr("xmlns", ns)
			}
			for _, a := range n.Attr {
				if !validName(a.Key) {
					continue
				}
				key := a.Key
				switch a.Namespace {
				case "":
				case "xlink":
					key = "xlink:" + a.Key
					if e.SelectAttr("xmlns:xlink") == nil {
						e.CreateAttr("xmlns:xlink", nsXLink)
					}
				default:
					key = a.Namespace + ":" + a.Key
				}
				e.CreateAttr(key, a.Val)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				convert(e, c)
			}
		}
	}
	convert(&out.Element, doc)

	if pretty {
		s := etree.NewIndentSettings()
		s.Spaces = 2
		s.PreserveLeafWhitespace = true
		s.SuppressTrailingWhitespace = false
		out.IndentWithSettings(s)
	}
	// must follow indentation which drops whitespace only children
	closeEmpty(&out.Element)
	return out
}

// rootNamespace returns namespace declaration an element needs when it starts
// a namespace subtree.
func rootNamespace(n *html.Node) string {
	parentNS := ""
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		parentNS = n.Parent.Namespace
	}
	switch {
	case n.Namespace == "" && n.DataAtom == atom.Html:
		return nsXHTML
	case n.Namespace == "svg" && parentNS != "svg":
		return nsSVG
	case n.Namespace == "math" && parentNS != "math":
		return nsMath
	}
	return ""
}

// closeEmpty forces end tags on empty non-void HTML elements, "<div/>" opens
// a div for HTML parsers.
func closeEmpty(e *etree.Element) {
	for _, c := range e.ChildElements() {
		closeEmpty(c)
	}
	if e.Tag == "" || len(e.Child) > 0 || e.Space != "" {
		return
	}
	if a := atom.Lookup([]byte(e.Tag)); a != 0 && voidElements[a] {
		return
	}
	if inForeign(e) {
		return
	}
	e.CreateText("")
}

func inForeign(e *etree.Element) bool {
	for p := e; p != nil; p = p.Parent() {
		switch p.Tag {
		case "svg", "math":
			return true
		}
	}
	return false
}

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Keygen: true, atom.Link: true, atom.Meta: true, atom.Param: true,
	atom.Source: true, atom.Track: true, atom.Wbr: true,
}

// validName reports if attribute name could be written as XML name. HTML
// parser accepts names XML does not.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == ':' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 0x7f:
		case i > 0 && (r == '-' || r == '.' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
