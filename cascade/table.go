package cascade

import (
	"iter"

	"github.com/elliotchance/orderedmap/v3"
	"golang.org/x/net/html"

	"inliner/css"
)

// StyleValue is the current winner for a property on an element.
type StyleValue struct {
	Value       string
	Important   bool
	Specificity Specificity
}

// Wins reports if candidate declaration replaces current winner: differing
// priority is decided by !important alone, otherwise candidate wins when its
// specificity is not less than the winner's, so later rules win ties.
func Wins(candidate, current StyleValue) bool {
	if candidate.Important != current.Important {
		return candidate.Important
	}
	return !candidate.Specificity.Less(current.Specificity)
}

// Properties holds winning values of a single element in order of first
// appearance of each property.
type Properties = orderedmap.OrderedMap[string, StyleValue]

// Table maps elements to their resolved properties. Only elements matched
// by at least one rule are present.
type Table struct {
	root   *html.Node
	styles map[*html.Node]*Properties
}

// NewTable creates empty table for elements under root.
func NewTable(root *html.Node) *Table {
	return &Table{
		root:   root,
		styles: make(map[*html.Node]*Properties),
	}
}

// Len returns number of elements in the table.
func (t *Table) Len() int {
	return len(t.styles)
}

// Properties returns resolved properties of the element.
func (t *Table) Properties(n *html.Node) (*Properties, bool) {
	props, ok := t.styles[n]
	return props, ok
}

// Get returns resolved value of a single property.
func (t *Table) Get(n *html.Node, property string) (StyleValue, bool) {
	props, ok := t.styles[n]
	if !ok {
		return StyleValue{}, false
	}
	return props.Get(property)
}

// All iterates over table elements in document order.
func (t *Table) All() iter.Seq2[*html.Node, *Properties] {
	return func(yield func(*html.Node, *Properties) bool) {
		if len(t.styles) == 0 || t.root == nil {
			return
		}
		var walk func(*html.Node) bool
		walk = func(n *html.Node) bool {
			if props, ok := t.styles[n]; ok {
				if !yield(n, props) {
					return false
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(t.root)
	}
}

// seed registers element seen for the first time with its style attribute
// declarations. Returns false if element was already known.
func (t *Table) seed(n *html.Node, inline []css.Declaration) bool {
	if _, ok := t.styles[n]; ok {
		return false
	}
	props := orderedmap.NewOrderedMap[string, StyleValue]()
	for _, d := range inline {
		props.Set(d.Property, StyleValue{Value: d.Value, Important: d.Important, Specificity: Inline})
	}
	t.styles[n] = props
	return true
}

// apply offers candidate value for the property, returns true if it won.
func (t *Table) apply(n *html.Node, property string, candidate StyleValue) bool {
	props := t.styles[n]
	if current, ok := props.Get(property); ok && !Wins(candidate, current) {
		return false
	}
	props.Set(property, candidate)
	return true
}
