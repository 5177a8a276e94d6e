package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Mux sends http(s) locations to Remote and everything else to Local.
type Mux struct {
	Remote Fetcher
	Local  Fetcher
}

// Fetch implements Fetcher.
func (m *Mux) Fetch(ctx context.Context, location string) ([]byte, error) {
	f := m.Local
	if u, err := url.Parse(location); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			f = m.Remote
		}
	}
	if f == nil {
		return nil, fmt.Errorf("no way to retrieve %s", location)
	}
	return f.Fetch(ctx, location)
}
