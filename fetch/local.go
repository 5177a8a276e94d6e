package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Local reads stylesheets from file system: a directory on disk or a zip
// archive. Relative locations are resolved against base directory, absolute
// ones against file system root. file:// URLs always refer to the disk.
type Local struct {
	fsys fs.FS
	base string
	log  *zap.Logger
}

// NewLocal creates fetcher over fsys, base is slash separated directory
// inside it.
func NewLocal(fsys fs.FS, base string, log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	if base == "" {
		base = "."
	}
	return &Local{fsys: fsys, base: path.Clean(base), log: log.Named("fetch")}
}

// Fetch implements Fetcher.
func (l *Local) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.HasPrefix(strings.ToLower(location), "file:") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("malformed file url: %w", err)
		}
		if u.Host != "" && u.Host != "localhost" {
			return nil, fmt.Errorf("remote file url host %q is not supported", u.Host)
		}
		data, err := os.ReadFile(filepath.FromSlash(u.Path))
		if err != nil {
			return nil, err
		}
		l.log.Debug("Stylesheet read", zap.String("file", u.Path), zap.Int("size", len(data)))
		return decode(data, "")
	}

	if l.fsys == nil {
		return nil, errors.New("no local file system available")
	}
	name, err := l.name(location)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, err
	}
	l.log.Debug("Stylesheet read", zap.String("file", name), zap.Int("size", len(data)))
	return decode(data, "")
}

func (l *Local) name(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("malformed stylesheet location: %w", err)
	}
	if u.Scheme != "" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	p := u.Path
	if strings.HasPrefix(p, "/") {
		p = path.Clean(strings.TrimPrefix(p, "/"))
	} else {
		p = path.Join(l.base, p)
	}
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("location %q is outside of document tree", location)
	}
	return p, nil
}
