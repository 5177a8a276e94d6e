// Package common keeps enumerations shared by configuration and conversion
// code.
package common

//go:generate go tool go-enum --marshal --names

// OutputFmt selects serialization of converted documents.
// ENUM(html, xhtml)
type OutputFmt int

// Ext returns file extension for produced documents.
func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtHtml:
		return ".html"
	case OutputFmtXhtml:
		return ".xhtml"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
