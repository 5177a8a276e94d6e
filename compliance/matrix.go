// Package compliance loads the table describing which email clients support
// which CSS properties.
package compliance

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

//go:embed css_compliance.csv
var defaultMatrix []byte

// PropertyColumn is the required name of the first column.
const PropertyColumn = "property"

// Support is a client support level for a single property.
type Support int

const (
	SupportYes Support = iota
	SupportPartial
	SupportNo
)

// ParseSupport converts matrix cell (Y, P or N, case insensitive) to Support.
func ParseSupport(cell string) (Support, error) {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case "Y":
		return SupportYes, nil
	case "P":
		return SupportPartial, nil
	case "N":
		return SupportNo, nil
	}
	return SupportYes, fmt.Errorf("unknown support value %q", cell)
}

// Code returns matrix cell representation.
func (s Support) Code() string {
	switch s {
	case SupportYes:
		return "Y"
	case SupportPartial:
		return "P"
	case SupportNo:
		return "N"
	}
	return "?"
}

func (s Support) String() string {
	switch s {
	case SupportYes:
		return "yes"
	case SupportPartial:
		return "partial"
	case SupportNo:
		return "no"
	}
	return fmt.Sprintf("Support(%d)", int(s))
}

// Entry maps client name to support level for a single property.
type Entry map[string]Support

// Matrix is the loaded compliance table. It is read-only after loading and
// safe for concurrent use.
type Matrix struct {
	clients    []string
	properties []string
	entries    map[string]Entry
}

func newMatrix(clients []string) *Matrix {
	return &Matrix{
		clients: clients,
		entries: make(map[string]Entry),
	}
}

func (m *Matrix) set(property string, e Entry) {
	if _, exists := m.entries[property]; !exists {
		m.properties = append(m.properties, property)
	}
	m.entries[property] = e
}

// Load reads matrix from CSV data. First header column must be "property",
// the rest are client names.
func Load(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("compliance matrix is empty")
		}
		return nil, fmt.Errorf("unable to read compliance matrix header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	if !strings.EqualFold(header[0], PropertyColumn) {
		return nil, fmt.Errorf("first column of compliance matrix must be %q, got %q", PropertyColumn, header[0])
	}
	if len(header) < 2 {
		return nil, errors.New("compliance matrix has no clients")
	}
	for i, name := range header[1:] {
		if name == "" {
			return nil, fmt.Errorf("compliance matrix client name in column %d is empty", i+2)
		}
		if slices.Contains(header[1:i+1], name) {
			return nil, fmt.Errorf("compliance matrix client %q is duplicated", name)
		}
	}

	m := newMatrix(slices.Clone(header[1:]))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read compliance matrix: %w", err)
		}
		property := strings.ToLower(strings.TrimSpace(record[0]))
		if property == "" {
			continue
		}
		line, _ := cr.FieldPos(0)
		e := make(Entry, len(m.clients))
		for i, client := range m.clients {
			s, err := ParseSupport(record[i+1])
			if err != nil {
				return nil, fmt.Errorf("compliance matrix line %d, column %q: %w", line, client, err)
			}
			e[client] = s
		}
		m.set(property, e)
	}
	return m, nil
}

// Default returns matrix built into the program.
func Default() (*Matrix, error) {
	return Load(bytes.NewReader(defaultMatrix))
}

// DefaultData returns CSV data of the built-in matrix.
func DefaultData() []byte {
	return defaultMatrix
}

// Clients returns client names in matrix column order.
func (m *Matrix) Clients() []string {
	return slices.Clone(m.clients)
}

// ClientCount is the number of matrix columns without property name column.
func (m *Matrix) ClientCount() int {
	return len(m.clients)
}

// Properties returns property names in matrix row order.
func (m *Matrix) Properties() []string {
	return slices.Clone(m.properties)
}

// Lookup returns support entry for the property.
func (m *Matrix) Lookup(property string) (Entry, bool) {
	e, ok := m.entries[property]
	return e, ok
}

// Failures returns labels of clients which do not fully support the
// property in matrix column order. Partial support is marked with suffix.
// Second value is false when property is not in the matrix.
func (m *Matrix) Failures(property string) ([]string, bool) {
	e, ok := m.entries[property]
	if !ok {
		return nil, false
	}
	var labels []string
	for _, client := range m.clients {
		switch e[client] {
		case SupportNo:
			labels = append(labels, client)
		case SupportPartial:
			labels = append(labels, client+" (partial support)")
		}
	}
	return labels, true
}

// Equal reports whether two matrices have the same content and order.
func (m *Matrix) Equal(o *Matrix) bool {
	if m == nil || o == nil {
		return m == o
	}
	if !slices.Equal(m.clients, o.clients) || !slices.Equal(m.properties, o.properties) {
		return false
	}
	for _, p := range m.properties {
		a, b := m.entries[p], o.entries[p]
		for _, c := range m.clients {
			if a[c] != b[c] {
				return false
			}
		}
	}
	return true
}
