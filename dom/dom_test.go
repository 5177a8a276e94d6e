package dom_test

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"inliner/common"
	"inliner/dom"
)

func find(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, tag); f != nil {
			return f
		}
	}
	return nil
}

func TestParse_Charset(t *testing.T) {
	src := []byte("<html><head><meta charset=\"windows-1251\"></head><body><p>\xcf\xf0\xe8\xe2\xe5\xf2</p></body></html>")

	doc, err := dom.Parse(bytes.NewReader(src), "", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := dom.Text(find(doc, "p")); got != "Привет" {
		t.Errorf("Text() = %q, want %q", got, "Привет")
	}
}

func TestParse_ContentType(t *testing.T) {
	src := []byte("<p>caf\xe9</p>")

	doc, err := dom.Parse(bytes.NewReader(src), "text/html; charset=iso-8859-1", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := dom.Text(find(doc, "p")); got != "café" {
		t.Errorf("Text() = %q, want %q", got, "café")
	}
}

func TestParse_ForcedEncoding(t *testing.T) {
	// meta claims utf-8 but forced encoding wins
	src := []byte("<meta charset=\"utf-8\"><p>\xe4</p>")

	doc, err := dom.Parse(bytes.NewReader(src), "", charmap.Windows1252)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := dom.Text(find(doc, "p")); got != "ä" {
		t.Errorf("Text() = %q, want %q", got, "ä")
	}
}

func TestAttr(t *testing.T) {
	doc, err := dom.ParseString(`<p id="x">text</p>`)
	if err != nil {
		t.Fatal(err)
	}
	p := find(doc, "p")

	if v, ok := dom.Attr(p, "id"); !ok || v != "x" {
		t.Errorf("Attr(id) = %q, %v", v, ok)
	}
	if _, ok := dom.Attr(p, "style"); ok {
		t.Error("Attr(style) should be absent")
	}

	dom.SetAttr(p, "style", "color:red")
	dom.SetAttr(p, "style", "color:blue")
	if len(p.Attr) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(p.Attr))
	}
	if v, _ := dom.Attr(p, "style"); v != "color:blue" {
		t.Errorf("Attr(style) = %q, want color:blue", v)
	}
}

func TestRemove(t *testing.T) {
	doc, err := dom.ParseString(`<head><style>p{color:red}</style></head><body><p>x</p></body>`)
	if err != nil {
		t.Fatal(err)
	}
	style := find(doc, "style")
	if got := dom.Text(style); got != "p{color:red}" {
		t.Errorf("Text() = %q", got)
	}

	dom.Remove(style)
	dom.Remove(style) // already detached
	if find(doc, "style") != nil {
		t.Error("style element still in document")
	}
}

func TestRender_HTML(t *testing.T) {
	doc, err := dom.ParseString("<!DOCTYPE html><p style=\"color:red\">a&#13;b</p><br>")
	if err != nil {
		t.Fatal(err)
	}
	got, err := dom.RenderString(doc, common.OutputFmtHtml, true)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	want := `<!DOCTYPE html><html><head></head><body><p style="color:red">ab</p><br/></body></html>`
	if got != want {
		t.Errorf("RenderString() =\n%s\nwant\n%s", got, want)
	}
}

func TestRender_XHTML(t *testing.T) {
	doc, err := dom.ParseString("<!DOCTYPE html><html><head><title>T</title></head><body><div></div><p class=\"a\">x &amp; y&#13;</p><br><img src=\"i.png\"></body></html>")
	if err != nil {
		t.Fatal(err)
	}
	got, err := dom.RenderString(doc, common.OutputFmtXhtml, false)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	want := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<!DOCTYPE html>` +
		`<html xmlns="http://www.w3.org/1999/xhtml"><head><title>T</title></head>` +
		`<body><div></div><p class="a">x &amp; y</p><br/><img src="i.png"/></body></html>`
	if got != want {
		t.Errorf("RenderString() =\n%s\nwant\n%s", got, want)
	}
}

func TestRender_XHTMLPretty(t *testing.T) {
	doc, err := dom.ParseString("<html><head></head><body><div><p>x</p></div><span></span></body></html>")
	if err != nil {
		t.Fatal(err)
	}
	got, err := dom.RenderString(doc, common.OutputFmtXhtml, true)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	for _, want := range []string{
		"\n  <body>\n",
		"\n      <p>x</p>\n",
		"<head></head>",
		"<span></span>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderString() missing %q in\n%s", want, got)
		}
	}
}

func TestRender_XHTMLForeign(t *testing.T) {
	doc, err := dom.ParseString(`<body><svg viewBox="0 0 1 1"><use xlink:href="#a"></use><circle r="1"></circle></svg></body>`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dom.RenderString(doc, common.OutputFmtXhtml, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1 1">`,
		`<use xmlns:xlink="http://www.w3.org/1999/xlink" xlink:href="#a"/>`,
		`<circle r="1"/>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderString() missing %q in\n%s", want, got)
		}
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	doc, _ := dom.ParseString("<p>x</p>")
	if _, err := dom.RenderString(doc, common.OutputFmt(42), false); err == nil {
		t.Error("expected error for unknown format")
	}
}
