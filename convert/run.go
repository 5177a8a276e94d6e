package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"inliner/archive"
	"inliner/common"
	"inliner/compliance"
	"inliner/config"
	"inliner/dom"
	"inliner/fetch"
	"inliner/state"
	debugutils "inliner/utils/debug"
)

// StdoutDestination requests writing single converted document to standard
// output.
const StdoutDestination = "-"

const acceptDocument = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1"

// Run is "convert" command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if !isURL(src) {
		if src, err = filepath.Abs(src); err != nil {
			return err
		}
	}

	dst := cmd.Args().Get(1)
	switch {
	case dst == StdoutDestination:
	case len(dst) == 0:
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	default:
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Format = env.Cfg.Document.OutputFormat
	if cmd.IsSet("to") {
		format, err := common.ParseOutputFmt(cmd.String("to"))
		if err != nil {
			log.Warn("Unknown output format requested, using configured one", zap.Stringer("format", env.Format), zap.Error(err))
		} else {
			env.Format = format
		}
	}
	env.Pretty = env.Cfg.Document.Pretty || cmd.Bool("pretty")
	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")
	env.SourceURL = cmd.String("url")
	env.Diagnostics = cmd.String("report")

	if cs := cmd.String("charset"); len(cs) > 0 {
		env.Charset, err = ianaindex.IANA.Encoding(cs)
		if err != nil || env.Charset == nil {
			log.Warn("Unknown or unsupported document character set. Ignoring...", zap.String("charset", cs), zap.Error(err))
			env.Charset = nil
		}
	}

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	if env.Matrix, err = compliance.Open(&env.Cfg.Compliance, env.Log); err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", env.Format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	r := newRunner(env, dst, os.Stdout, log)
	err = r.process(ctx, src)
	if len(env.Diagnostics) > 0 {
		err = multierr.Append(err, r.writeDiagnostics(env.Diagnostics))
	}
	return err
}

// runner carries state of a single "convert" invocation.
type runner struct {
	env    *state.LocalEnv
	dst    string
	stdout io.Writer
	remote *fetch.HTTP
	diag   *Diagnostics
	log    *zap.Logger
	count  int
}

func newRunner(env *state.LocalEnv, dst string, stdout io.Writer, log *zap.Logger) *runner {
	r := &runner{
		env:    env,
		dst:    dst,
		remote: fetch.NewHTTP(&env.Cfg.Fetch, env.Log),
		diag:   &Diagnostics{},
		log:    log,
	}
	if dst == StdoutDestination {
		r.stdout = stdout
	}
	return r
}

func isURL(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	}
	return false
}

// process determines the input type (url, directory, archive, or single file)
// and processes it accordingly.
func (r *runner) process(ctx context.Context, src string) error {
	if isURL(src) {
		return r.processURL(ctx, src)
	}

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if r.stdout != nil {
				return errors.New("only a single document could be written to standard output")
			}
			return r.processDir(ctx, head)
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := r.processArchive(ctx, head, filepath.ToSlash(tail), ""); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			return nil
		}

		doc, err := isDocumentFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if doc && len(tail) == 0 {
			local := fetch.NewLocal(os.DirFS(filepath.Dir(head)), ".", r.env.Log)
			return r.processFile(ctx, head, filepath.Base(head), local)
		}
		return fmt.Errorf("input was not recognized as HTML document (%s)", head)
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

// processDir walks directory tree finding documents and archives and
// processes them. Failures of individual documents do not stop the walk.
func (r *runner) processDir(ctx context.Context, dir string) error {
	var errs error
	count := r.count
	root := os.DirFS(dir)

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			r.log.Warn("Skipping path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if isInlinedOutput(p) {
			r.log.Debug("Skipping file, result of earlier conversion", zap.String("file", p))
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			r.log.Warn("Skipping path", zap.String("path", p), zap.Error(err))
			return nil
		}

		isArchive, err := isArchiveFile(p)
		if err != nil {
			r.log.Warn("Skipping file", zap.String("file", p), zap.Error(err))
			return nil
		}
		if isArchive {
			if err := r.processArchive(ctx, p, "", filepath.Dir(rel)); err != nil {
				r.log.Error("Unable to process archive", zap.String("file", p), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", rel, err))
			}
			return nil
		}

		doc, err := isDocumentFile(p)
		if err != nil {
			r.log.Warn("Skipping file", zap.String("file", p), zap.Error(err))
			return nil
		}
		if !doc {
			r.log.Debug("Skipping file, not recognized as document or archive", zap.String("file", p))
			return nil
		}

		local := fetch.NewLocal(root, path.Dir(filepath.ToSlash(rel)), r.env.Log)
		if err := r.processFile(ctx, p, rel, local); err != nil {
			r.log.Error("Unable to process file", zap.String("file", p), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", rel, err))
		}
		return nil
	})
	if err == nil && errs == nil && r.count == count {
		r.log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return multierr.Append(err, errs)
}

// processArchive walks all files inside archive, finds documents under
// "pathIn" and processes them. Linked stylesheets are looked up in the same
// archive.
func (r *runner) processArchive(ctx context.Context, file, pathIn, pathOut string) error {
	var errs error
	count := r.count

	err := archive.Walk(file, pathIn, r.env.CodePage, func(e *archive.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if isInlinedOutput(e.Name) {
			r.log.Debug("Skipping file in archive, result of earlier conversion", zap.String("archive", file), zap.String("file", e.Name))
			return nil
		}

		doc, err := isDocumentInArchive(e.File)
		if err != nil {
			r.log.Warn("Skipping file in archive", zap.String("archive", file), zap.String("path", e.Name), zap.Error(err))
			return nil
		}
		if !doc {
			r.log.Debug("Skipping file, not recognized as document", zap.String("archive", file), zap.String("file", e.Name))
			return nil
		}

		rc, err := e.Open()
		if err != nil {
			r.log.Error("Unable to process file in archive", zap.String("archive", file), zap.String("file", e.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", e.Name, err))
			return nil
		}
		defer rc.Close()

		local := fetch.NewLocal(e.FS, e.Dir(), r.env.Log)
		src := filepath.Join(pathOut, filepath.FromSlash(e.Name))
		if err := r.processDocument(ctx, rc, "", src, "", r.env.SourceURL, local); err != nil {
			r.log.Error("Unable to process file in archive", zap.String("archive", file), zap.String("file", e.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
		return nil
	})
	if err == nil && errs == nil && r.count == count {
		r.log.Debug("Nothing to process", zap.String("archive", file))
	}
	return multierr.Append(err, errs)
}

func (r *runner) processFile(ctx context.Context, file, src string, local fetch.Fetcher) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.processDocument(ctx, f, "", src, "", r.env.SourceURL, local)
}

// processURL downloads document and converts it. Relative links are resolved
// against document location unless base url is given explicitly.
func (r *runner) processURL(ctx context.Context, src string) error {
	u, err := url.Parse(src)
	if err != nil {
		return fmt.Errorf("malformed source url: %w", err)
	}
	data, contentType, err := r.remote.Download(ctx, src, acceptDocument)
	if err != nil {
		return fmt.Errorf("unable to download document: %w", err)
	}

	sourceURL := r.env.SourceURL
	if len(sourceURL) == 0 {
		sourceURL = src
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || len(name) == 0 {
		name = "index"
	}
	return r.processDocument(ctx, bytes.NewReader(data), contentType, name, u.Hostname(), sourceURL, nil)
}

// processDocument converts single document. "src" is part of the source path
// (always including file name) relative to the original path, it is used to
// name the output. "host" is set for downloaded documents. "local" retrieves
// stylesheets which do not point to the web.
func (r *runner) processDocument(ctx context.Context, in io.Reader, contentType, src, host, sourceURL string, local fetch.Fetcher) (rerr error) {
	env := r.env

	if r.stdout != nil && r.count > 0 {
		return errors.New("only a single document could be written to standard output")
	}
	r.count++
	seq := r.count

	var outputName string

	r.log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		if p := recover(); p != nil {
			r.log.Error("Conversion ended with panic",
				zap.Any("panic", p), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", p)
		} else if rerr == nil {
			r.log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
		if rerr != nil {
			r.diag.Add(Outcome{Source: src, Err: rerr})
		}
	}(time.Now())

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("unable to read document (%s): %w", src, err)
	}
	doc, err := dom.Parse(bytes.NewReader(data), contentType, env.Charset)
	if err != nil {
		return fmt.Errorf("unable to parse document (%s): %w", src, err)
	}

	conv := NewConverter(env.Matrix, env.Log,
		WithFetcher(&fetch.Mux{Remote: r.remote, Local: local}),
		WithFormat(env.Format, env.Pretty),
		WithIgnoreTags(env.IgnoreTags()),
	)
	c, err := conv.Perform(ctx, doc, sourceURL)
	if err != nil {
		return err
	}

	if r.stdout != nil {
		outputName = "STDOUT"
		if _, err := io.WriteString(r.stdout, c.HTML); err != nil {
			return fmt.Errorf("unable to write output: %w", err)
		}
	} else {
		outputName = buildOutputPath(src, host, r.dst, env)
		if err := prepareOutput(outputName, env.Overwrite, r.log); err != nil {
			return err
		}
		if err := os.WriteFile(outputName, []byte(c.HTML), 0644); err != nil {
			return fmt.Errorf("unable to write output: %w", err)
		}
	}

	// Store conversion details for debugging
	if env.Rpt != nil {
		prefix := fmt.Sprintf("documents/%03d-%s", seq, config.CleanFileName(filepath.Base(src)))
		env.Rpt.StoreData(prefix+"/source.html", data)
		env.Rpt.StoreData(prefix+"/aggregate.css", []byte(c.CSS))
		env.Rpt.StoreData(prefix+"/styles.txt", []byte(debugutils.StyleTree(doc, c.Table)))
		env.Rpt.StoreData(prefix+"/result"+env.Format.Ext(), []byte(c.HTML))
	}

	r.diag.Add(Outcome{Source: src, Output: outputName, Conv: c})
	return nil
}

// prepareOutput makes sure output file could be written.
func prepareOutput(name string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(name); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return os.Remove(name)
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

// writeDiagnostics saves markdown report of all processed documents.
func (r *runner) writeDiagnostics(name string) error {
	var buf bytes.Buffer
	if err := r.diag.WriteMarkdown(&buf); err != nil {
		return fmt.Errorf("unable to prepare diagnostics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create diagnostics directory: %w", err)
	}
	if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write diagnostics: %w", err)
	}
	r.env.Rpt.StoreData("diagnostics.md", buf.Bytes())
	r.log.Info("Diagnostics written", zap.String("file", name), zap.Int("documents", r.diag.Len()))
	return nil
}
