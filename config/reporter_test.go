package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	res := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		res[f.Name] = string(data)
	}
	return res
}

func TestReport_Finalize(t *testing.T) {
	dir := t.TempDir()

	stored := filepath.Join(dir, "final.log")
	if err := os.WriteFile(stored, []byte("log line"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}

	r.Store("final.log", stored)
	r.Store("missing.log", filepath.Join(dir, "does-not-exist"))
	r.StoreData("doc/source.html", []byte("<p>source</p>"))
	r.StoreData("doc/source.html", []byte("<p>again</p>"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	files := readArchive(t, r.Name())
	if files["final.log"] != "log line" {
		t.Errorf("final.log = %q", files["final.log"])
	}
	if files["doc/source.html"] != "<p>source</p>" {
		t.Errorf("doc/source.html = %q", files["doc/source.html"])
	}
	if _, ok := files["missing.log"]; ok {
		t.Error("absent file should not be archived")
	}

	var versioned int
	for name := range files {
		if strings.HasPrefix(name, "doc/source.html-") {
			versioned++
		}
	}
	if versioned != 1 {
		t.Errorf("expected one versioned duplicate, got %d", versioned)
	}
	if !strings.Contains(files["MANIFEST"], "final.log") {
		t.Errorf("MANIFEST does not list stored file:\n%s", files["MANIFEST"])
	}
}

func TestReport_OverwritePanics(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.Store("a", "/tmp/one")
	defer func() {
		if recover() == nil {
			t.Error("Store() with different path under the same name should panic")
		}
	}()
	r.Store("a", "/tmp/two")
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("c", []byte("d"))
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name() on nil report = %q", r.Name())
	}

	empty := &Report{entries: make(map[string]entry)}
	if err := empty.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
