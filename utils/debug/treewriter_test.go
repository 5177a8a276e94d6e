package debug

import (
	"strings"
	"testing"

	"inliner/cascade"
	"inliner/css"
	"inliner/dom"
)

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "test", nil, "test\n"},
		{"depth 2", 2, "double indent", nil, "    double indent\n"},
		{"with formatting", 1, "value: %d", []any{42}, "  value: 42\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_TextBlock(t *testing.T) {
	tw := NewTreeWriter()
	tw.TextBlock(1, "css", "p {\n}")
	tw.TextBlock(0, "empty", "")

	want := "  css: \"p {\\n}\"\nempty: \n"
	if got := tw.String(); got != want {
		t.Errorf("TextBlock() = %q, want %q", got, want)
	}
}

func TestStyleTree(t *testing.T) {
	doc, err := dom.ParseString(`<div id="main" class="a  b"><p style="margin:0">x</p><span>y</span></div>`)
	if err != nil {
		t.Fatal(err)
	}
	parser := css.NewParser(nil)
	sheet := parser.Parse([]byte(`#main p { color: red !important } div { width: 10px }`))
	res := cascade.NewResolver(parser, nil).Resolve(doc, sheet.Rules, nil)

	got := StyleTree(doc, res.Table)
	for _, want := range []string{
		"html\n",
		"  body\n",
		"    div#main.a.b\n",
		"      - width: 10px (0,0,0,1)\n",
		"      p\n",
		"        - margin: 0 (1,0,0,0)\n",
		"        - color: red !important (0,1,0,1)\n",
		"      span\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("StyleTree() missing %q in\n%s", want, got)
		}
	}
	if strings.Contains(got, "span\n        -") {
		t.Errorf("unmatched element has properties:\n%s", got)
	}
}
