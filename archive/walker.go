// Package archive visits documents stored in zip archives.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/encoding"
)

// Entry is a single file inside archive.
type Entry struct {
	// Archive is the path of the archive on disk.
	Archive string
	// Name is the entry name for display and output naming. Legacy names
	// are decoded with forced code page.
	Name string
	// File is the raw archive entry, File.Name is how FS knows it.
	File *zip.File
	// FS gives access to every other file of the archive, linked resources
	// are looked up through it.
	FS fs.FS
}

// Dir returns directory of the entry inside FS.
func (e *Entry) Dir() string {
	return path.Dir(e.File.Name)
}

// Open returns reader of entry content.
func (e *Entry) Open() (io.ReadCloser, error) {
	return e.File.Open()
}

// WalkFunc is called for every entry visited by Walk. If an error is
// returned, processing stops.
type WalkFunc func(entry *Entry) error

// Walk calls walkFn for every file in archive whose name starts with prefix,
// in archive order. Archives with absolute entry names or ".." components
// are rejected before anything is visited. When cp is not nil it is used to
// decode entry names not marked as UTF-8.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		entry := &Entry{Archive: archive, Name: f.Name, File: f, FS: &r.Reader}
		if cp != nil && f.NonUTF8 {
			name, err := cp.NewDecoder().String(f.Name)
			if err != nil {
				return fmt.Errorf("zip entry %q: unable to decode name: %w", f.Name, err)
			}
			entry.Name = name
		}
		if err := walkFn(entry); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for absolute names and names containing ".."
// components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
