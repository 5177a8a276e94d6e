package compliance_test

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"inliner/compliance"
	"inliner/config"
)

const sample = `property,Client A,Client B,Client C
color,Y,Y,Y
display,Y,P,N
float, n ,y,p

position,N,N,Y
`

func TestLoad(t *testing.T) {
	m, err := compliance.Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := m.Clients(); !slices.Equal(got, []string{"Client A", "Client B", "Client C"}) {
		t.Errorf("Clients() = %v", got)
	}
	if m.ClientCount() != 3 {
		t.Errorf("ClientCount() = %d, want 3", m.ClientCount())
	}
	if got := m.Properties(); !slices.Equal(got, []string{"color", "display", "float", "position"}) {
		t.Errorf("Properties() = %v", got)
	}

	e, ok := m.Lookup("float")
	if !ok {
		t.Fatal("Lookup(float) not found")
	}
	if e["Client A"] != compliance.SupportNo || e["Client B"] != compliance.SupportYes || e["Client C"] != compliance.SupportPartial {
		t.Errorf("Lookup(float) = %v", e)
	}
	if _, ok := m.Lookup("z-index"); ok {
		t.Error("Lookup(z-index) should not be found")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "empty"},
		{"wrong first column", "name,A\ncolor,Y\n", "first column"},
		{"no clients", "property\ncolor\n", "no clients"},
		{"duplicate client", "property,A,A\ncolor,Y,Y\n", "duplicated"},
		{"bad cell", "property,A,B\ncolor,Y,maybe\n", `line 2, column "B"`},
		{"short row", "property,A,B\ncolor,Y\n", "wrong number of fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compliance.Load(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFailures(t *testing.T) {
	m, err := compliance.Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	labels, ok := m.Failures("display")
	if !ok {
		t.Fatal("Failures(display) not found")
	}
	if want := []string{"Client B (partial support)", "Client C"}; !slices.Equal(labels, want) {
		t.Errorf("Failures(display) = %v, want %v", labels, want)
	}
	if labels, ok := m.Failures("color"); !ok || len(labels) != 0 {
		t.Errorf("Failures(color) = %v, %v", labels, ok)
	}
	if _, ok := m.Failures("unknown"); ok {
		t.Error("Failures(unknown) should report missing property")
	}
}

func TestDefault(t *testing.T) {
	m, err := compliance.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if m.ClientCount() < 2 {
		t.Errorf("built-in matrix has %d clients", m.ClientCount())
	}
	for _, p := range []string{"color", "background-image", "display", "margin", "width"} {
		if _, ok := m.Lookup(p); !ok {
			t.Errorf("built-in matrix misses %q", p)
		}
	}
}

func TestDefaultData(t *testing.T) {
	data := compliance.DefaultData()
	if !bytes.HasPrefix(data, []byte("property,")) {
		t.Errorf("built-in data starts with %q", data[:min(len(data), 20)])
	}

	loaded, err := compliance.Load(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Load(DefaultData()) error = %v", err)
	}
	m, err := compliance.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if !loaded.Equal(m) {
		t.Error("built-in data does not match built-in matrix")
	}
}

func TestSupport(t *testing.T) {
	for _, code := range []string{"Y", "P", "N"} {
		s, err := compliance.ParseSupport(strings.ToLower(code))
		if err != nil {
			t.Fatalf("ParseSupport(%q) error = %v", code, err)
		}
		if s.Code() != code {
			t.Errorf("Code() = %q, want %q", s.Code(), code)
		}
	}
	if compliance.SupportPartial.String() != "partial" {
		t.Errorf("String() = %q", compliance.SupportPartial.String())
	}
}

func TestWriteMarkdown(t *testing.T) {
	m, err := compliance.Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	var buf bytes.Buffer
	if err := m.WriteMarkdown(&buf, "Support"); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# Support", "Client A", "display", "| P", "Clients: 3, properties: 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output misses %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "color") > strings.Index(out, "position") {
		t.Error("properties are not sorted")
	}
}

func TestCache(t *testing.T) {
	log := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "cache.db")

	m, err := compliance.Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cache, err := compliance.OpenCache(path, log)
	if err != nil {
		t.Fatalf("OpenCache() error = %v", err)
	}
	defer cache.Close()

	digest := compliance.Digest([]byte(sample))
	if _, ok, err := cache.Get(digest); err != nil || ok {
		t.Fatalf("Get() on empty cache = %v, %v", ok, err)
	}
	if err := cache.Put(digest, m); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	// second put replaces
	if err := cache.Put(digest, m); err != nil {
		t.Fatalf("repeated Put() error = %v", err)
	}
	got, ok, err := cache.Get(digest)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if !got.Equal(m) {
		t.Errorf("cached matrix differs: clients %v properties %v", got.Clients(), got.Properties())
	}
}

func TestOpen(t *testing.T) {
	log := zaptest.NewLogger(t)
	dir := t.TempDir()

	matrixPath := filepath.Join(dir, "matrix.csv")
	if err := os.WriteFile(matrixPath, []byte(sample), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	direct, err := compliance.Open(&config.ComplianceConfig{MatrixPath: matrixPath}, log)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if direct.ClientCount() != 3 {
		t.Errorf("ClientCount() = %d, want 3", direct.ClientCount())
	}

	cfg := &config.ComplianceConfig{
		MatrixPath: matrixPath,
		Cache:      config.CacheConfig{Enable: true, Path: filepath.Join(dir, "cache.db")},
	}
	// first call fills the cache, second one reads from it
	for range 2 {
		cached, err := compliance.Open(cfg, log)
		if err != nil {
			t.Fatalf("Open() with cache error = %v", err)
		}
		if !cached.Equal(direct) {
			t.Error("matrix loaded through cache differs from direct load")
		}
	}

	builtin, err := compliance.Open(&config.ComplianceConfig{}, log)
	if err != nil {
		t.Fatalf("Open() built-in error = %v", err)
	}
	def, _ := compliance.Default()
	if !builtin.Equal(def) {
		t.Error("Open() without file should return built-in matrix")
	}

	if _, err := compliance.Open(&config.ComplianceConfig{MatrixPath: filepath.Join(dir, "missing.csv")}, log); err == nil {
		t.Error("Open() with missing file should fail")
	}
}
