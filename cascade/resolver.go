package cascade

import (
	"fmt"
	"slices"

	"github.com/andybalholm/cascadia"
	"github.com/elliotchance/orderedmap/v3"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"inliner/compliance"
	"inliner/css"
	"inliner/dom"
)

// Result is everything a single resolution pass produces.
type Result struct {
	Table *Table
	// Ratios accumulates support of every property applied.
	Ratios *Ratios
	// Unsupported maps property to labels of clients lacking full support
	// for it, in order of first use.
	Unsupported *orderedmap.OrderedMap[string, []string]
	// Errors lists distinct selector compilation problems.
	Errors []string
	// ClientCount is number of clients in compliance matrix used.
	ClientCount int
}

// Score returns overall support percentage for this result.
func (r *Result) Score() float64 {
	return Score(r.Ratios, r.ClientCount)
}

// Resolver computes winning declarations. It keeps no state between calls.
type Resolver struct {
	parser *css.Parser
	log    *zap.Logger
}

// NewResolver creates resolver, parser is used for style attributes.
func NewResolver(parser *css.Parser, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if parser == nil {
		parser = css.NewParser(log)
	}
	return &Resolver{parser: parser, log: log.Named("cascade")}
}

// pass holds accumulators of a single Resolve call.
type pass struct {
	*Result
	matrix    *compliance.Matrix
	diagnosed map[string]struct{}
}

// Resolve applies rules in order to elements under doc. Every branch of a
// rule selector list is matched independently. Selectors which could not be
// compiled are recorded and skipped. Matrix may be nil, support is not
// accounted for in this case.
func (r *Resolver) Resolve(doc *html.Node, rules []css.Rule, matrix *compliance.Matrix) *Result {
	p := &pass{
		Result: &Result{
			Table:       NewTable(doc),
			Ratios:      orderedmap.NewOrderedMap[string, SupportRatio](),
			Unsupported: orderedmap.NewOrderedMap[string, []string](),
		},
		matrix:    matrix,
		diagnosed: make(map[string]struct{}),
	}
	if matrix != nil {
		p.ClientCount = matrix.ClientCount()
	}

	for i := range rules {
		rule := &rules[i]
		for _, selector := range rule.Selectors {
			sel, err := compile(selector)
			if err != nil {
				msg := fmt.Sprintf("selector %q: %v", selector, err)
				if !slices.Contains(p.Errors, msg) {
					p.Errors = append(p.Errors, msg)
					r.log.Debug("Selector skipped", zap.String("selector", selector), zap.Int("line", rule.Line), zap.Error(err))
				}
				continue
			}
			spec := FromSelector(sel)
			matched := cascadia.QueryAll(doc, sel)
			r.log.Debug("Selector matched", zap.String("selector", selector), zap.Stringer("specificity", spec), zap.Int("elements", len(matched)))
			for _, n := range matched {
				r.applyRule(p, n, rule.Declarations, spec)
			}
		}
	}
	return p.Result
}

func (r *Resolver) applyRule(p *pass, n *html.Node, decls []css.Declaration, spec Specificity) {
	if p.Table.seed(n, r.inlineStyle(n)) {
		r.log.Debug("Element seeded", zap.String("element", n.Data))
	}
	for _, d := range decls {
		ratio, _ := p.Ratios.Get(d.Property)
		ratio.Usage++
		if _, done := p.diagnosed[d.Property]; !done {
			p.diagnosed[d.Property] = struct{}{}
			if p.matrix != nil {
				if labels, ok := p.matrix.Failures(d.Property); ok && len(labels) > 0 {
					ratio.FailedClients = len(labels)
					p.Unsupported.Set(d.Property, labels)
				}
			}
		}
		p.Ratios.Set(d.Property, ratio)
		p.Table.apply(n, d.Property, StyleValue{Value: d.Value, Important: d.Important, Specificity: spec})
	}
}

func (r *Resolver) inlineStyle(n *html.Node) []css.Declaration {
	if style, ok := dom.Attr(n, "style"); ok {
		return r.parser.ParseDeclarations(style)
	}
	return nil
}

// compile turns a single selector into matcher, error means selector cannot
// be used.
func compile(selector string) (cascadia.Sel, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, err
	}
	return sel, nil
}
