package convert

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// sniffLen is how much of file head is looked at.
const sniffLen = 512

var htmlType = filetype.NewType("html", "text/html")

func init() {
	filetype.AddMatcher(htmlType, isMarkup)
}

// isMarkup recognizes beginning of HTML or XHTML document.
func isMarkup(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte{0xEF, 0xBB, 0xBF})
	buf = bytes.TrimLeft(buf, " \t\r\n\f")
	if len(buf) == 0 || buf[0] != '<' {
		return false
	}
	head := strings.ToLower(string(buf[:min(len(buf), 64)]))
	for _, p := range []string{"<!doctype html", "<html", "<head", "<body"} {
		if strings.HasPrefix(head, p) {
			return true
		}
	}
	return false
}

func hasDocumentExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// isArchiveFile checks if file is zip archive by extension and content.
func isArchiveFile(path string) (bool, error) {
	head, err := readHead(path)
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	return filetype.Is(head, "zip"), nil
}

// isDocumentFile checks if file is HTML document. Files with known extension
// are accepted unless their content is recognized as something else, files
// without one have to look like markup.
func isDocumentFile(path string) (bool, error) {
	head, err := readHead(path)
	if err != nil {
		return false, err
	}
	return isDocument(path, head), nil
}

// isDocumentInArchive is isDocumentFile for archive entries.
func isDocumentInArchive(f *zip.File) (bool, error) {
	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	return isDocument(f.Name, head[:n]), nil
}

func isDocument(name string, head []byte) bool {
	kind, _ := filetype.Match(head)
	if kind == htmlType {
		return true
	}
	return kind == filetype.Unknown && hasDocumentExt(name)
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:n], nil
}
