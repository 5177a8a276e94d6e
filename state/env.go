// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"inliner/common"
	"inliner/compliance"
	"inliner/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg    *config.Config
	Rpt    *config.Report
	Log    *zap.Logger
	Matrix *compliance.Matrix

	// used by convert subcommand
	NoDirs    bool
	Overwrite bool
	Format    common.OutputFmt
	Pretty    bool
	// SourceURL is base for relative stylesheet links, empty means links
	// are looked up next to the document.
	SourceURL string
	// Charset forces document encoding, nil means detection.
	Charset encoding.Encoding
	// CodePage decodes legacy file names in archives.
	CodePage encoding.Encoding
	// Diagnostics is path of markdown diagnostics report, empty when not
	// requested.
	Diagnostics string

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// IgnoreTags returns configured list of elements left without style
// attribute, nil when configuration is not loaded.
func (e *LocalEnv) IgnoreTags() []string {
	if e.Cfg == nil {
		return nil
	}
	return e.Cfg.Document.IgnoreTags
}
