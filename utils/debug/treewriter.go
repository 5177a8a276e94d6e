// Package debug renders resolved style tables as indented text for the
// debug report.
package debug

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"inliner/cascade"
	"inliner/dom"
)

// TreeWriter accumulates indented lines.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label with quoted value, empty value is left as is.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	if value != "" {
		value = strconv.Quote(value)
	}
	tw.w.WriteString(value)
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

// StyleTree dumps element tree under root. Every element present in table is
// followed by its resolved properties with priority and specificity they
// won with, elements outside of the table are listed for context only.
func StyleTree(root *html.Node, table *cascade.Table) string {
	tw := NewTreeWriter()
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode {
			tw.Line(depth, "%s", describe(n))
			if props, ok := table.Properties(n); ok {
				for name, v := range props.AllFromFront() {
					prio := ""
					if v.Important {
						prio = " !important"
					}
					tw.Line(depth+1, "- %s: %s%s %s", name, v.Value, prio, v.Specificity)
				}
			}
			depth++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth)
		}
	}
	walk(root, 0)
	return tw.String()
}

// describe returns short selector-like element name: tag#id.class1.class2
func describe(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString(n.Data)
	if id, ok := dom.Attr(n, "id"); ok && id != "" {
		sb.WriteByte('#')
		sb.WriteString(id)
	}
	if class, ok := dom.Attr(n, "class"); ok {
		for c := range strings.FieldsSeq(class) {
			sb.WriteByte('.')
			sb.WriteString(c)
		}
	}
	return sb.String()
}
