package css

import (
	"fmt"
	"io"
	"strings"
)

// Declaration is a single property assignment.
type Declaration struct {
	Property  string // lowercase property name, custom properties keep their case
	Value     string // value text without priority marker
	Important bool   // declaration was marked !important
}

// String returns declaration in "property: value" form suitable for debug output.
func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Rule is a qualified rule: a selector list with ordered declarations.
type Rule struct {
	Selectors    []string      // selector list split on top-level commas
	Declarations []Declaration // in source order, duplicates preserved
	Line         int           // line of the opening brace in parsed text, 1 based
}

// Selector returns full selector list text.
func (r *Rule) Selector() string {
	return strings.Join(r.Selectors, ", ")
}

// Stylesheet is the result of parsing CSS text. Only qualified rules are
// kept, at-rules are skipped and reported as warnings.
type Stylesheet struct {
	Rules    []Rule
	Warnings []string
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range s.Rules {
		n, err := writeRule(w, &s.Rules[i])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(w io.Writer, r *Rule) (int, error) {
	total, err := fmt.Fprintf(w, "%s {\n", r.Selector())
	if err != nil {
		return total, err
	}
	for _, d := range r.Declarations {
		n, err := fmt.Fprintf(w, "  %s;\n", d)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err := fmt.Fprint(w, "}\n")
	return total + n, err
}
