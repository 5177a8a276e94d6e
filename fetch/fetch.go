// Package fetch retrieves linked stylesheets.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/net/html/charset"
)

// ErrStylesheet is matched by every stylesheet retrieval failure.
var ErrStylesheet = errors.New("stylesheet could not be retrieved")

// Error describes failed stylesheet retrieval.
type Error struct {
	// Href is link attribute value as found in the document.
	Href string
	// Location is what was actually requested, empty when href could not
	// be resolved.
	Location string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("the stylesheet %s could not be found: %v", e.Href, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrStylesheet, e.Err}
}

// Fetcher returns UTF-8 text of a stylesheet at location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Resolve makes href requestable. Hrefs with scheme are returned unchanged,
// as is everything when sourceURL is empty. Otherwise href is joined with
// scheme and host of sourceURL, path of sourceURL is not used.
func Resolve(href, sourceURL string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("malformed stylesheet reference: %w", err)
	}
	if ref.Scheme != "" || sourceURL == "" {
		return ref.String(), nil
	}
	src, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("malformed source url: %w", err)
	}
	if src.Scheme == "" || src.Host == "" {
		return "", fmt.Errorf("source url %q has no scheme or host", sourceURL)
	}
	base := &url.URL{Scheme: src.Scheme, Host: src.Host}
	return base.ResolveReference(ref).String(), nil
}

// Get resolves href against sourceURL and retrieves it. Any failure is
// returned as *Error.
func Get(ctx context.Context, f Fetcher, href, sourceURL string) ([]byte, error) {
	location, err := Resolve(href, sourceURL)
	if err != nil {
		return nil, &Error{Href: href, Err: err}
	}
	data, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, &Error{Href: href, Location: location, Err: err}
	}
	return data, nil
}

// decode checks that data looks like text and converts it to UTF-8. Encoding
// comes from BOM, content type charset or leading @charset rule, UTF-8 is
// assumed when nothing is known.
func decode(data []byte, contentType string) ([]byte, error) {
	if kind, _ := filetype.Match(data); kind != filetype.Unknown {
		return nil, fmt.Errorf("unexpected content %s", kind.MIME.Value)
	}

	enc, name, certain := charset.DetermineEncoding(data, contentType)
	if !certain {
		enc, name = charset.Lookup("utf-8")
		if label := atCharset(data); label != "" {
			if e, n := charset.Lookup(label); e != nil {
				enc, name = e, n
			}
		}
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode stylesheet from %s: %w", name, err)
	}
	return bytes.TrimPrefix(out, []byte("\ufeff")), nil
}

// atCharset returns encoding label of `@charset "label";` at the very start
// of stylesheet.
func atCharset(data []byte) string {
	const prefix = `@charset "`
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return ""
	}
	rest := data[len(prefix):]
	end := bytes.Index(rest, []byte(`";`))
	if end <= 0 || end > 40 {
		return ""
	}
	return string(rest[:end])
}
