package convert

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
	"github.com/nao1215/markdown"
)

// Outcome is diagnostics of a single processed document.
type Outcome struct {
	Source string
	Output string
	Conv   *Conversion
	Err    error
}

// Diagnostics accumulates outcomes of processed documents.
type Diagnostics struct {
	outcomes []Outcome
}

// Add records outcome of document processing.
func (d *Diagnostics) Add(o Outcome) {
	if d == nil {
		return
	}
	d.outcomes = append(d.outcomes, o)
}

// Len returns number of recorded outcomes.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.outcomes)
}

// WriteMarkdown writes summary table followed by details for every document
// with problems.
func (d *Diagnostics) WriteMarkdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)
	md.H1("Inliner diagnostics")
	md.PlainText("")

	var failed int
	rows := make([][]string, 0, len(d.outcomes))
	for _, o := range d.outcomes {
		if o.Err != nil {
			failed++
			rows = append(rows, []string{o.Source, "-", "failed", "-", "-"})
			continue
		}
		rows = append(rows, []string{
			o.Source,
			o.Output,
			formatScore(o.Conv.SupportPercentage),
			strconv.Itoa(len(o.Conv.SelectorErrors)),
			strconv.Itoa(o.Conv.Unsupported.Len()),
		})
	}
	md.PlainTextf("Documents: %d, failed: %d.", len(d.outcomes), failed)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Document", "Output", "Support", "Selector errors", "Unsupported properties"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, o := range d.outcomes {
		writeOutcome(md, o)
	}
	return md.Build()
}

func writeOutcome(md *markdown.Markdown, o Outcome) {
	if o.Err != nil {
		md.H2(o.Source)
		md.PlainText("")
		md.Caution(o.Err.Error())
		md.PlainText("")
		return
	}
	c := o.Conv
	if len(c.SelectorErrors) == 0 && c.Unsupported.Len() == 0 && len(c.Warnings) == 0 {
		return
	}

	md.H2(o.Source)
	md.PlainText("")
	md.PlainTextf("Support: %s, styled elements: %d.", formatScore(c.SupportPercentage), c.Styled)
	md.PlainText("")

	if len(c.SelectorErrors) > 0 {
		md.H3("Selector errors")
		md.PlainText("")
		md.BulletList(quoteAll(c.SelectorErrors)...)
		md.PlainText("")
	}

	if c.Unsupported.Len() > 0 {
		props := slices.Collect(c.Unsupported.Keys())
		sort.Sort(natural.StringSlice(props))
		rows := make([][]string, 0, len(props))
		for _, p := range props {
			clients, _ := c.Unsupported.Get(p)
			rows = append(rows, []string{p, strings.Join(clients, ", ")})
		}
		md.H3("Unsupported properties")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Clients"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(c.Warnings) > 0 {
		md.H3("Stylesheet warnings")
		md.PlainText("")
		md.BulletList(quoteAll(c.Warnings)...)
		md.PlainText("")
	}
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func quoteAll(items []string) []string {
	res := make([]string, len(items))
	for i, s := range items {
		res[i] = "`" + s + "`"
	}
	return res
}
