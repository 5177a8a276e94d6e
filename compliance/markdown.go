package compliance

import (
	"io"
	"slices"
	"sort"

	"github.com/maruel/natural"
	"github.com/nao1215/markdown"
)

// WriteMarkdown writes matrix as markdown table, properties in natural order.
func (m *Matrix) WriteMarkdown(w io.Writer, title string) error {
	md := markdown.NewMarkdown(w)
	if len(title) > 0 {
		md.H1(title)
		md.PlainText("")
	}
	md.PlainTextf("Clients: %d, properties: %d. Y - supported, P - partially supported, N - not supported.", len(m.clients), len(m.properties))
	md.PlainText("")

	properties := slices.Clone(m.properties)
	sort.Sort(natural.StringSlice(properties))

	rows := make([][]string, 0, len(properties))
	for _, p := range properties {
		row := make([]string, 0, len(m.clients)+1)
		row = append(row, p)
		for _, c := range m.clients {
			row = append(row, m.entries[p][c].Code())
		}
		rows = append(rows, row)
	}
	md.Table(markdown.TableSet{
		Header: append([]string{PropertyColumn}, m.clients...),
		Rows:   rows,
	})
	return md.Build()
}
