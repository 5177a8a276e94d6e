package convert

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"inliner/common"
	"inliner/config"
	"inliner/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs bool, transliterate bool, format common.OutputFmt, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Document.FileNameTransliterate = transliterate
	cfg.Document.OutputNameTemplate = template

	return &state.LocalEnv{
		Log:    logger,
		Cfg:    cfg,
		NoDirs: noDirs,
		Format: format,
	}
}

func TestBuildOutputPath_SimpleCase_NoDirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, common.OutputFmtHtml, "")

	result := buildOutputPath("mail/weekly/news.html", "", "/output", env)
	expected := filepath.Join("/output", "news.inlined.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_SimpleCase_WithDirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, false, false, common.OutputFmtHtml, "")

	result := buildOutputPath(filepath.Join("mail", "weekly", "news.html"), "", "/output", env)
	expected := filepath.Join("/output", "mail", "weekly", "news.inlined.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_DifferentFormats(t *testing.T) {
	tests := []struct {
		name   string
		format common.OutputFmt
		ext    string
	}{
		{"HTML", common.OutputFmtHtml, ".html"},
		{"XHTML", common.OutputFmtXhtml, ".xhtml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, false, tt.format, "")

			result := buildOutputPath("news.htm", "", "/output", env)
			expected := filepath.Join("/output", "news.inlined"+tt.ext)

			if result != expected {
				t.Errorf("buildOutputPath() = %q, want %q", result, expected)
			}
		})
	}
}

func TestBuildOutputPath_Transliterate(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, true, common.OutputFmtHtml, "")

	result := buildOutputPath("Новости.html", "", "/output", env)
	expected := filepath.Join("/output", "novosti.inlined.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_Template(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, common.OutputFmtXhtml, `{{ .Host | default "local" }}/{{ .Name | upper }}`)

	tests := []struct {
		src, host string
		expected  string
	}{
		{"news.html", "example.com", filepath.Join("/output", "example.com", "NEWS.xhtml")},
		{"news.html", "", filepath.Join("/output", "local", "NEWS.xhtml")},
	}
	for _, tt := range tests {
		if result := buildOutputPath(tt.src, tt.host, "/output", env); result != tt.expected {
			t.Errorf("buildOutputPath(%q, %q) = %q, want %q", tt.src, tt.host, result, tt.expected)
		}
	}
}

func TestBuildOutputPath_BrokenTemplate(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, common.OutputFmtHtml, "{{ .Missing")

	result := buildOutputPath("news.html", "", "/output", env)
	expected := filepath.Join("/output", "news.inlined.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want fallback %q", result, expected)
	}
}

func TestDetermineOutputDir(t *testing.T) {
	src := filepath.Join("mail", "weekly", "news.html")

	env := setupTestEnvForOutputPath(t, true, false, common.OutputFmtHtml, "")
	if result := determineOutputDir(src, "/output", env); result != "/output" {
		t.Errorf("determineOutputDir() with nodirs = %q, want %q", result, "/output")
	}

	env = setupTestEnvForOutputPath(t, false, false, common.OutputFmtHtml, "")
	expected := filepath.Join("/output", "mail", "weekly")
	if result := determineOutputDir(src, "/output", env); result != expected {
		t.Errorf("determineOutputDir() = %q, want %q", result, expected)
	}
}

func TestBuildDefaultFileName(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, common.OutputFmtHtml, "")

	tests := []struct {
		src      string
		format   common.OutputFmt
		expected string
	}{
		{"news.html", common.OutputFmtHtml, "news.inlined.html"},
		{"news.html", common.OutputFmtXhtml, "news.inlined.xhtml"},
		{"archive.v2.htm", common.OutputFmtHtml, "archive.v2.inlined.html"},
		{"index", common.OutputFmtHtml, "index.inlined.html"},
	}
	for _, tt := range tests {
		if result := buildDefaultFileName(tt.src, tt.format, env); result != tt.expected {
			t.Errorf("buildDefaultFileName(%q) = %q, want %q", tt.src, result, tt.expected)
		}
	}
}

func TestIsInlinedOutput(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"news.inlined.html", true},
		{"news.inlined.xhtml", true},
		{filepath.Join("promo", "sale.inlined.htm"), true},
		{"site/index.inlined.html", true},
		{"news.html", false},
		{"inlined.html", false},
		{"news.inlined", false},
	}
	for _, tt := range tests {
		if result := isInlinedOutput(tt.name); result != tt.expected {
			t.Errorf("isInlinedOutput(%q) = %v, want %v", tt.name, result, tt.expected)
		}
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected []string
	}{
		{"single", "news", []string{"news"}},
		{"nested", filepath.Join("a", "b", "news"), []string{"a", "b", "news"}},
		{"dots dropped", filepath.Join("..", "a", ".", "news"), []string{"a", "news"}},
		{"trailing separator", filepath.Join("a", "b") + string(filepath.Separator), []string{"a", "b"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitPath(tt.path)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitPath() = %v, want %v", result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitPath()[%d] = %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestCleanPathSegment(t *testing.T) {
	tests := []struct {
		name          string
		segment       string
		transliterate bool
		expected      string
	}{
		{"simple segment", "news", false, "news"},
		{"with spaces", "My News", false, "My News"},
		{"transliterate cyrillic", "Новости", true, "novosti"},
		{"leading dots", "..hidden", false, "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, tt.transliterate, common.OutputFmtHtml, "")

			result := cleanPathSegment(tt.segment, env)
			if result != tt.expected {
				t.Errorf("cleanPathSegment() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAssemblePathWithSubdirs(t *testing.T) {
	tests := []struct {
		name          string
		expandedName  string
		transliterate bool
		format        common.OutputFmt
		expected      string
	}{
		{"nested", filepath.Join("campaign", "news"), false, common.OutputFmtHtml, filepath.Join("/output", "campaign", "news.html")},
		{"single level", "news", false, common.OutputFmtXhtml, filepath.Join("/output", "news.xhtml")},
		{"with transliterate", filepath.Join("Рассылка", "Новости"), true, common.OutputFmtHtml, filepath.Join("/output", "rassylka", "novosti.html")},
		{"empty", "", false, common.OutputFmtHtml, filepath.Join("/output", "index.html")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, tt.transliterate, tt.format, "")

			result := assemblePathWithSubdirs("/output", tt.expandedName, tt.format, env)
			if result != tt.expected {
				t.Errorf("assemblePathWithSubdirs() = %q, want %q", result, tt.expected)
			}
		})
	}
}
