// Package build is the thin orchestrator that turns an app directory into one
// application bundle per target: make sure the runtime is present, lay out
// the per-platform shell, then place the app files, preprocessing the ones
// that carry platform conditionals.
//
// Every target owns <buildDir>/<platform>-<arch>, which holds its fetch cache,
// extracted runtime and the finished bundle, so targets never share paths.
package build

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/command"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/config"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/depscheck"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/fetch"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/preprocess"
)

// Progress phases.
const (
	PhaseDownload = "download"
	PhaseExtract  = "extract"
)

// DefaultConcurrency bounds parallel fetches in FetchAll.
const DefaultConcurrency = 4

// ProgressFunc receives transfer progress for one target. It may be called
// from several goroutines when fetching concurrently.
type ProgressFunc func(target platform.Target, phase string, done, total int64)

// Options configures a Builder.
type Options struct {
	// BuildDir is the root of all build output. Required.
	BuildDir string
	// Runtimes is the loaded descriptor file. Required.
	Runtimes *config.Runtimes

	Logger config.Logger
	// Verbose enables preprocessor diagnostics.
	Verbose bool

	// Runner, when set, is used to warn about missing packaging tools.
	Runner command.Runner
	// ContinueOnError keeps building remaining targets after a failure.
	ContinueOnError bool

	Progress    ProgressFunc
	Client      *http.Client
	Retries     int
	KeyringPath string
	// Concurrency bounds FetchAll; zero means DefaultConcurrency.
	Concurrency int
}

// Result is the outcome of one target.
type Result struct {
	Target    platform.Target
	OutputDir string
	Err       error
}

// Builder builds apps for targets.
type Builder struct {
	opts   Options
	logger config.Logger
	parser *preprocess.Parser
}

// New creates a Builder.
func New(opts Options) (*Builder, error) {
	if opts.BuildDir == "" {
		return nil, fmt.Errorf("BuildDir is required")
	}
	if opts.Runtimes == nil {
		return nil, fmt.Errorf("Runtimes is required")
	}
	abs, err := filepath.Abs(opts.BuildDir)
	if err != nil {
		return nil, fmt.Errorf("resolve build dir: %w", err)
	}
	opts.BuildDir = abs
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	logger := config.LoggerOrNop(opts.Logger)
	return &Builder{
		opts:   opts,
		logger: logger,
		parser: preprocess.NewParser(logger, opts.Verbose),
	}, nil
}

// TargetDir returns the directory owned by target.
func (b *Builder) TargetDir(target platform.Target) string {
	return filepath.Join(b.opts.BuildDir, target.Platform+"-"+target.Arch)
}

// Fetcher returns the fetcher for target's runtime.
func (b *Builder) Fetcher(target platform.Target) (*fetch.Fetcher, error) {
	desc, err := b.opts.Runtimes.Resolve(target.Platform, target.Arch)
	if err != nil {
		return nil, err
	}

	opts := fetch.Options{
		BuildDir:    b.TargetDir(target),
		Descriptor:  desc,
		Logger:      b.logger,
		Client:      b.opts.Client,
		Retries:     b.opts.Retries,
		KeyringPath: b.opts.KeyringPath,
	}
	if progress := b.opts.Progress; progress != nil {
		opts.Progress = func(p fetch.Progress) {
			progress(target, PhaseDownload, p.Transferred, p.Total)
		}
		opts.UnpackProgress = func(done, total int64) {
			progress(target, PhaseExtract, done, total)
		}
	}
	return fetch.New(opts)
}

// Fetch makes target's runtime present and verified.
func (b *Builder) Fetch(ctx context.Context, target platform.Target) (*fetch.Fetcher, error) {
	f, err := b.Fetcher(target)
	if err != nil {
		return nil, err
	}
	if err := f.FetchIfNeeded(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	return f, nil
}

// FetchAll fetches the runtimes of all targets concurrently and returns the
// first error. The other fetches are cancelled once one fails.
func (b *Builder) FetchAll(ctx context.Context, targets []platform.Target) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	seen := make(map[platform.Target]bool)
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true

		g.Go(func() error {
			_, err := b.Fetch(ctx, target)
			return err
		})
	}
	return g.Wait()
}

// Build builds app for each target in order. It stops at the first failing
// target unless ContinueOnError is set, in which case the returned error
// joins every failure.
func (b *Builder) Build(ctx context.Context, app *App, targets []platform.Target) ([]Result, error) {
	results := make([]Result, 0, len(targets))
	var errs []error

	for _, target := range targets {
		b.logger.Info("Building", "app", app.Name, "target", target.String())
		out, err := b.BuildTarget(ctx, app, target)
		results = append(results, Result{Target: target, OutputDir: out, Err: err})
		if err == nil {
			continue
		}
		if !b.opts.ContinueOnError || ctx.Err() != nil {
			return results, err
		}
		b.logger.Error("Target failed", "target", target.String(), "error", err)
		errs = append(errs, err)
	}
	return results, errors.Join(errs...)
}

// BuildTarget builds app for one target and returns the bundle path. The
// bundle is assembled next to its final location and swapped in only when
// complete.
func (b *Builder) BuildTarget(ctx context.Context, app *App, target platform.Target) (string, error) {
	b.checkTools(ctx, target)

	f, err := b.Fetch(ctx, target)
	if err != nil {
		return "", err
	}

	out := filepath.Join(b.TargetDir(target), app.Title)
	if target.Platform == platform.OSX {
		out += ".app"
	}
	staging := out + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return "", fmt.Errorf("%s: clear staging: %w", target, err)
	}

	if err := b.assemble(ctx, app, target, f, staging); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("%s: %w", target, err)
	}

	if err := os.RemoveAll(out); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("%s: remove previous bundle: %w", target, err)
	}
	if err := os.Rename(staging, out); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("%s: move bundle into place: %w", target, err)
	}

	b.logger.Info("Bundle ready", "target", target.String(), "path", out)
	return out, nil
}

// assemble lays out the platform shell in dir and places the app files.
func (b *Builder) assemble(ctx context.Context, app *App, target platform.Target, f *fetch.Fetcher, dir string) error {
	runtimeDst := filepath.Join(dir, f.Descriptor().RuntimeDir())
	appDst := dir
	if target.Platform == platform.OSX {
		runtimeDst = filepath.Join(dir, "Contents", "MacOS")
		appDst = filepath.Join(dir, "Contents", "Resources")
	}

	b.logger.Debug("Copying runtime", "from", f.RuntimePath(), "to", runtimeDst)
	if err := copyTree(f.RuntimePath(), runtimeDst, nil, nil); err != nil {
		return fmt.Errorf("copy runtime: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	symbols := preprocess.NewSymbolTable(target.Defines())
	for name, value := range app.Packaging.Defines {
		if _, stored := symbols.Define(name, value); !stored {
			b.logger.Warn("App define shadowed by target define", "name", name)
		}
	}

	skip := b.skipper(app)
	err := copyTree(app.Dir, appDst, skip, func(src, dst, rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !matchesSuffix(rel, app.Packaging.Preprocess) {
			return copyFile(src, dst)
		}
		b.logger.Debug("Preprocessing", "file", rel)
		return b.preprocessFile(src, dst, symbols)
	})
	if err != nil {
		return fmt.Errorf("place app files: %w", err)
	}
	return nil
}

// skipper excludes the app's Exclude suffixes and the build directory when
// it lives inside the app directory.
func (b *Builder) skipper(app *App) func(rel string) bool {
	buildRel := ""
	if rel, err := filepath.Rel(app.Dir, b.opts.BuildDir); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		buildRel = filepath.ToSlash(rel)
	}
	return func(rel string) bool {
		if buildRel != "" && rel == buildRel {
			return true
		}
		return matchesSuffix(rel, app.Packaging.Exclude)
	}
}

func (b *Builder) preprocessFile(src, dst string, symbols *preprocess.SymbolTable) error {
	content, err := b.parser.ParseFile(src, symbols)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(content), info.Mode().Perm())
}

// checkTools warns about packaging tools missing for target.
func (b *Builder) checkTools(ctx context.Context, target platform.Target) {
	if b.opts.Runner == nil {
		return
	}
	results, err := depscheck.Check(ctx, b.opts.Runner, []string{target.Platform}, nil)
	if err != nil {
		b.logger.Warn("Dependency check failed", "target", target.String(), "error", err)
		return
	}
	for _, r := range results {
		if !r.OK() {
			b.logger.Warn("Packaging tools missing", "target", target.String(), "tools", strings.Join(r.Missing, ","))
		}
	}
}
