package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/elliotchance/orderedmap/v3"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding"

	"inliner/cascade"
	"inliner/common"
	"inliner/compliance"
	"inliner/css"
	"inliner/dom"
	"inliner/fetch"
	"inliner/inline"
)

var (
	linkSelector  = cascadia.MustCompile(`link[rel="stylesheet" i]`)
	styleSelector = cascadia.MustCompile(`style`)
)

// Conversion is the outcome of inlining a single document.
type Conversion struct {
	// HTML is serialized converted document.
	HTML string
	// SelectorErrors lists distinct selectors which could not be used.
	SelectorErrors []string
	// Unsupported maps property to clients lacking full support for it.
	Unsupported *orderedmap.OrderedMap[string, []string]
	// SupportPercentage is share of property uses supported by clients.
	SupportPercentage float64
	// Warnings are stylesheet syntax problems.
	Warnings []string
	// CSS is aggregated text of all stylesheets.
	CSS string
	// Styled is number of elements which received style attribute.
	Styled int
	// Table keeps resolved styles.
	Table *cascade.Table
}

// Converter inlines stylesheets into documents. A single converter could be
// used for any number of documents, no state is carried between them.
type Converter struct {
	fetcher  fetch.Fetcher
	matrix   *compliance.Matrix
	parser   *css.Parser
	resolver *cascade.Resolver
	writer   *inline.Writer
	ignore   []string
	format   common.OutputFmt
	pretty   bool
	charset  encoding.Encoding
	log      *zap.Logger
}

// Option customizes Converter.
type Option func(*Converter)

// WithFetcher sets how linked stylesheets are retrieved. Default is plain
// HTTP fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(c *Converter) {
		c.fetcher = f
	}
}

// WithFormat selects output serialization.
func WithFormat(format common.OutputFmt, pretty bool) Option {
	return func(c *Converter) {
		c.format, c.pretty = format, pretty
	}
}

// WithIgnoreTags sets elements which never receive style attribute. Nil
// keeps inline.DefaultIgnore.
func WithIgnoreTags(tags []string) Option {
	return func(c *Converter) {
		c.ignore = tags
	}
}

// WithCharset forces input document encoding for Convert.
func WithCharset(enc encoding.Encoding) Option {
	return func(c *Converter) {
		c.charset = enc
	}
}

// NewConverter creates converter scoring support against matrix, nil matrix
// means no support accounting.
func NewConverter(matrix *compliance.Matrix, log *zap.Logger, opts ...Option) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Converter{
		matrix: matrix,
		format: common.OutputFmtHtml,
		log:    log.Named("convert"),
	}
	c.parser = css.NewParser(log)
	c.resolver = cascade.NewResolver(c.parser, log)
	for _, opt := range opts {
		opt(c)
	}
	c.writer = inline.NewWriter(c.ignore, log)
	if c.fetcher == nil {
		c.fetcher = fetch.NewHTTP(nil, log)
	}
	return c
}

// Convert parses document from r and performs conversion.
func (c *Converter) Convert(ctx context.Context, r io.Reader, sourceURL string) (*Conversion, error) {
	doc, err := dom.Parse(r, "", c.charset)
	if err != nil {
		return nil, err
	}
	return c.Perform(ctx, doc, sourceURL)
}

// Perform inlines styles of doc in place and serializes the result. Linked
// stylesheets are resolved against sourceURL, any retrieval failure aborts
// conversion with *fetch.Error.
func (c *Converter) Perform(ctx context.Context, doc *html.Node, sourceURL string) (*Conversion, error) {
	var aggregate bytes.Buffer

	for _, link := range cascadia.QueryAll(doc, linkSelector) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		href, ok := dom.Attr(link, "href")
		if !ok || strings.TrimSpace(href) == "" {
			return nil, &fetch.Error{Href: href, Err: errors.New("stylesheet link has no href")}
		}
		data, err := fetch.Get(ctx, c.fetcher, href, sourceURL)
		if err != nil {
			return nil, err
		}
		c.log.Debug("Linked stylesheet loaded", zap.String("href", href), zap.Int("size", len(data)))
		appendCSS(&aggregate, data)
		dom.Remove(link)
	}

	for _, style := range cascadia.QueryAll(doc, styleSelector) {
		appendCSS(&aggregate, []byte(dom.Text(style)))
		dom.Remove(style)
	}

	sheet := c.parser.Parse(aggregate.Bytes(), "aggregate")
	res := c.resolver.Resolve(doc, sheet.Rules, c.matrix)
	styled := c.writer.Write(res.Table)

	if c.pretty && c.format == common.OutputFmtHtml {
		c.log.Debug("Indentation is not supported for html output, ignoring")
	}
	out, err := dom.RenderString(doc, c.format, c.pretty)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize document: %w", err)
	}

	conv := &Conversion{
		HTML:              out,
		SelectorErrors:    res.Errors,
		Unsupported:       res.Unsupported,
		SupportPercentage: res.Score(),
		Warnings:          sheet.Warnings,
		CSS:               aggregate.String(),
		Styled:            styled,
		Table:             res.Table,
	}
	c.log.Debug("Document converted",
		zap.Int("rules", len(sheet.Rules)),
		zap.Int("styled", styled),
		zap.Int("selector errors", len(conv.SelectorErrors)),
		zap.Float64("support", conv.SupportPercentage))
	return conv, nil
}

// appendCSS adds stylesheet text to aggregate keeping sources on separate
// lines.
func appendCSS(buf *bytes.Buffer, data []byte) {
	if len(data) == 0 {
		return
	}
	if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.Write(data)
}
