// Package cascade resolves which declaration wins for every property of
// every matched element and accounts for email client support of the
// properties used.
package cascade

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Specificity is (origin, ids, classes/attributes/pseudo-classes, types),
// compared lexicographically.
type Specificity [4]int

// Inline is the specificity of declarations coming from style attribute.
// It outranks anything a selector could produce.
var Inline = Specificity{1, 0, 0, 0}

// FromSelector returns specificity of a rule declaration for a compiled
// selector.
func FromSelector(sel cascadia.Sel) Specificity {
	s := sel.Specificity()
	return Specificity{0, s[0], s[1], s[2]}
}

// Compare returns -1, 0 or +1 when s is less than, equal to or greater than o.
func (s Specificity) Compare(o Specificity) int {
	for i := range s {
		switch {
		case s[i] < o[i]:
			return -1
		case s[i] > o[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether s is strictly less than o.
func (s Specificity) Less(o Specificity) bool {
	return s.Compare(o) < 0
}

func (s Specificity) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", s[0], s[1], s[2], s[3])
}
