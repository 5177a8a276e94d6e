package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets and style attribute text.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. Syntax errors do not stop
// parsing, they are collected in Stylesheet.Warnings.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]Rule, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)
	for {
		gt, _, tok := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if p.stop(parser, sheet) {
				return sheet
			}

		case css.BeginAtRuleGrammar:
			p.warn(sheet, fmt.Sprintf("unsupported at-rule %s skipped", tok), zap.Int("line", lineAt(data, parser.Offset())))
			p.skipAtRuleBlock(parser, sheet)

		case css.AtRuleGrammar:
			p.warn(sheet, fmt.Sprintf("unsupported at-rule %s skipped", tok), zap.Int("line", lineAt(data, parser.Offset())))

		case css.BeginRulesetGrammar:
			rule := Rule{
				Selectors: splitSelectors(parser.Values()),
				Line:      lineAt(data, parser.Offset()),
			}
			rule.Declarations = p.parseDeclarations(parser, sheet, css.EndRulesetGrammar)
			if len(rule.Selectors) == 0 {
				p.warn(sheet, "rule without selector skipped", zap.Int("line", rule.Line))
				continue
			}
			sheet.Rules = append(sheet.Rules, rule)
		}
	}
}

// ParseDeclarations parses content of a style attribute. When the same
// property is declared more than once only the effective declaration is
// kept: the last one, unless an earlier one is !important and the later one
// is not.
func (p *Parser) ParseDeclarations(text string) []Declaration {
	sheet := &Stylesheet{}
	parser := css.NewParser(parse.NewInput(strings.NewReader(text)), true)
	decls := p.parseDeclarations(parser, sheet, css.ErrorGrammar)
	for _, w := range sheet.Warnings {
		p.log.Debug("Style attribute problem", zap.String("style", text), zap.String("warning", w))
	}
	return effective(decls)
}

// parseDeclarations reads declarations until grammar type "end" is reached
// or input is exhausted.
func (p *Parser) parseDeclarations(parser *css.Parser, sheet *Stylesheet, end css.GrammarType) []Declaration {
	var decls []Declaration
	for {
		gt, _, tok := parser.Next()

		switch gt {
		case end:
			if end != css.ErrorGrammar || p.stop(parser, sheet) {
				return decls
			}

		case css.ErrorGrammar:
			if p.stop(parser, sheet) {
				return decls
			}

		case css.EndRulesetGrammar:
			// unbalanced input, nothing more belongs to us
			return decls

		case css.DeclarationGrammar:
			d, ok := makeDeclaration(string(tok), parser.Values())
			if !ok {
				p.warn(sheet, fmt.Sprintf("declaration of %s has no value", tok))
				continue
			}
			decls = append(decls, d)

		case css.CustomPropertyGrammar:
			d := Declaration{Property: string(tok)}
			if values := parser.Values(); len(values) > 0 {
				d.Value, d.Important = cutImportant(strings.TrimSpace(string(values[0].Data)))
			}
			decls = append(decls, d)

		case css.BeginAtRuleGrammar:
			p.warn(sheet, fmt.Sprintf("unsupported nested at-rule %s skipped", tok))
			p.skipAtRuleBlock(parser, sheet)
		}
	}
}

// stop reports if ErrorGrammar marks the end of input. Any other error is
// recorded as warning and parsing continues.
func (p *Parser) stop(parser *css.Parser, sheet *Stylesheet) bool {
	err := parser.Err()
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	if !parser.HasParseError() {
		// reading failed, there is no point to continue
		p.log.Debug("CSS read error", zap.Error(err))
		return true
	}
	p.warn(sheet, err.Error())
	return false
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser, sheet *Stylesheet) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if p.stop(parser, sheet) {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

func (p *Parser) warn(sheet *Stylesheet, msg string, fields ...zap.Field) {
	sheet.Warnings = append(sheet.Warnings, msg)
	p.log.Debug("CSS warning", append(fields, zap.String("warning", msg))...)
}

// makeDeclaration builds declaration from property tokens, trailing
// "!important" (any case, optional whitespace) sets priority.
func makeDeclaration(property string, values []css.Token) (Declaration, bool) {
	d := Declaration{Property: property}

	end := trimWhitespace(values)
	if end > 0 && values[end-1].TokenType == css.IdentToken && strings.EqualFold(string(values[end-1].Data), "important") {
		bang := trimWhitespace(values[:end-1])
		if bang > 0 && values[bang-1].TokenType == css.DelimToken && string(values[bang-1].Data) == "!" {
			d.Important = true
			end = bang - 1
		}
	}

	var (
		sb    strings.Builder
		space bool
	)
	for _, t := range values[:end] {
		switch t.TokenType {
		case css.WhitespaceToken:
			space = true
		case css.CommaToken:
			sb.WriteByte(',')
			space = true
		default:
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.Write(t.Data)
		}
	}
	d.Value = sb.String()
	return d, len(d.Value) > 0
}

// cutImportant removes trailing "!important" from raw value text.
func cutImportant(value string) (string, bool) {
	const important = "important"
	if len(value) < len(important) || !strings.EqualFold(value[len(value)-len(important):], important) {
		return value, false
	}
	rest := strings.TrimRight(value[:len(value)-len(important)], " \t\r\n\f")
	if !strings.HasSuffix(rest, "!") {
		return value, false
	}
	return strings.TrimSpace(strings.TrimSuffix(rest, "!")), true
}

func trimWhitespace(values []css.Token) int {
	end := len(values)
	for end > 0 && values[end-1].TokenType == css.WhitespaceToken {
		end--
	}
	return end
}

// splitSelectors splits selector list on commas which are not inside
// parentheses or attribute brackets.
func splitSelectors(values []css.Token) []string {
	var (
		selectors []string
		sb        strings.Builder
		depth     int
	)
	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			selectors = append(selectors, s)
		}
		sb.Reset()
	}
	for _, t := range values {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				flush()
				continue
			}
		}
		sb.Write(t.Data)
	}
	flush()
	return selectors
}

// effective removes overridden duplicates keeping declaration order of
// survivors.
func effective(decls []Declaration) []Declaration {
	if len(decls) < 2 {
		return decls
	}
	winners := make(map[string]int, len(decls))
	for i, d := range decls {
		if w, ok := winners[d.Property]; ok && decls[w].Important && !d.Important {
			continue
		}
		winners[d.Property] = i
	}
	res := make([]Declaration, 0, len(winners))
	for i, d := range decls {
		if winners[d.Property] == i {
			res = append(res, d)
		}
	}
	return res
}

func lineAt(data []byte, offset int) int {
	if offset > len(data) {
		offset = len(data)
	}
	return bytes.Count(data[:offset], []byte{'\n'}) + 1
}
