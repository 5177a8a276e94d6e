package convert

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"inliner/common"
	"inliner/config"
	"inliner/state"
)

// defaultSuffix is added to source name when no template is configured.
const defaultSuffix = ".inlined"

// buildOutputPath returns output file path for the document. "src" is
// source path relative to the processed tree (just a name for single files
// and urls), "host" is source url host if any. Either default naming scheme
// or user-defined template is used, source directory structure is preserved
// unless requested otherwise. Path segments are cleaned and if requested
// transliterated.
func buildOutputPath(src, host, dst string, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	defaultFile := buildDefaultFileName(src, env.Format, env)

	if env.Cfg.Document.OutputNameTemplate == "" {
		return filepath.Join(outDir, defaultFile)
	}

	expandedName := expandOutputNameTemplate(src, host, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, defaultFile)
	}

	return assemblePathWithSubdirs(outDir, expandedName, env.Format, env)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

func baseName(src string) string {
	return strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
}

// isInlinedOutput reports if file name looks like one produced by default
// naming scheme, such files are results of earlier runs.
func isInlinedOutput(name string) bool {
	return strings.HasSuffix(baseName(name), defaultSuffix)
}

func buildDefaultFileName(src string, format common.OutputFmt, env *state.LocalEnv) string {
	return cleanPathSegment(baseName(src), env) + defaultSuffix + format.Ext()
}

func expandOutputNameTemplate(src, host string, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(config.OutputNameTemplateFieldName, env.Cfg.Document.OutputNameTemplate, Values{
		Name:   baseName(src),
		Host:   host,
		Format: env.Format.String(),
	})
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	return filepath.FromSlash(strings.TrimSpace(expandedName))
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName string, format common.OutputFmt, env *state.LocalEnv) string {
	pathSegments := splitPath(expandedName)
	if len(pathSegments) == 0 {
		return filepath.Join(outDir, "index"+format.Ext())
	}

	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}
	dirParts = append(dirParts, cleanPathSegment(pathSegments[len(pathSegments)-1], env)+format.Ext())
	return filepath.Join(dirParts...)
}

// splitPath returns non empty segments of path, "." and ".." are dropped so
// template cannot point outside of destination.
func splitPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); ; head, tail = filepath.Split(head) {
		if tail != "" && tail != "." && tail != ".." {
			segments = slices.Insert(segments, 0, tail)
		}
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" || head == path {
			break
		}
		path = head
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Document.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
