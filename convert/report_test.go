package convert

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/elliotchance/orderedmap/v3"
)

func TestDiagnostics_WriteMarkdown(t *testing.T) {
	unsupported := orderedmap.NewOrderedMap[string, []string]()
	unsupported.Set("float", []string{"Alpha", "Beta (partial support)"})
	unsupported.Set("display", []string{"Gamma"})

	var d Diagnostics
	d.Add(Outcome{Source: "clean.html", Output: "out/clean.inlined.html", Conv: &Conversion{
		Unsupported:       orderedmap.NewOrderedMap[string, []string](),
		SupportPercentage: 100,
	}})
	d.Add(Outcome{Source: "broken.html", Err: errors.New("the stylesheet x.css could not be found: boom")})
	d.Add(Outcome{Source: "news.html", Output: "out/news.inlined.html", Conv: &Conversion{
		SelectorErrors:    []string{`selector "::bad": unexpected token`},
		Unsupported:       unsupported,
		SupportPercentage: 87.5,
		Warnings:          []string{"line 3: at-rule @media skipped"},
		Styled:            4,
	}})

	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}

	var buf bytes.Buffer
	if err := d.WriteMarkdown(&buf); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Inliner diagnostics",
		"Documents: 3, failed: 1.",
		"100.00%",
		"87.50%",
		"## broken.html",
		"[!CAUTION]",
		"the stylesheet x.css could not be found: boom",
		"## news.html",
		"Support: 87.50%, styled elements: 4.",
		"### Selector errors",
		"`selector \"::bad\": unexpected token`",
		"### Unsupported properties",
		"Alpha, Beta (partial support)",
		"### Stylesheet warnings",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report does not contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "## clean.html") {
		t.Error("document without problems has details section")
	}
	section := out[strings.Index(out, "### Unsupported properties"):]
	if strings.Index(section, "display") > strings.Index(section, "float") {
		t.Error("unsupported properties are not sorted")
	}
}

func TestDiagnostics_Nil(t *testing.T) {
	var d *Diagnostics
	d.Add(Outcome{Source: "x.html"})
	if d.Len() != 0 {
		t.Errorf("Len() = %d on nil diagnostics", d.Len())
	}
}

func TestFormatScore(t *testing.T) {
	tests := map[float64]string{100: "100.00%", 0: "0.00%", 66.666: "66.67%"}
	for in, want := range tests {
		if got := formatScore(in); got != want {
			t.Errorf("formatScore(%v) = %q, want %q", in, got, want)
		}
	}
}
