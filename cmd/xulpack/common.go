package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/build"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/config"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/logging"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
)

// Environment overrides for flag defaults.
const (
	envBuildDir = "XULPACK_BUILD_DIR"
	envRuntimes = "XULPACK_RUNTIMES"
)

// errUsage signals a flag error that has already been reported.
var errUsage = errors.New("usage error")

// commonFlags are shared by the commands that fetch runtimes.
type commonFlags struct {
	buildDir    string
	runtimes    string
	targets     string
	verbose     bool
	quiet       bool
	retries     int
	keyring     string
	concurrency int
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.buildDir, "build-dir", envOr(envBuildDir, "build"), "build output directory (env "+envBuildDir+")")
	fs.StringVar(&c.runtimes, "runtimes", envOr(envRuntimes, "runtimes.json"), "runtime descriptor file (env "+envRuntimes+")")
	fs.StringVar(&c.targets, "targets", "", "comma-separated targets such as linux,osx/arm64,win/386 (default: host)")
	fs.BoolVar(&c.verbose, "v", false, "verbose output")
	fs.BoolVar(&c.quiet, "q", false, "hide progress bars")
	fs.IntVar(&c.retries, "retries", 0, "extra download attempts on network errors")
	fs.StringVar(&c.keyring, "keyring", "", "armored OpenPGP keyring for archive signatures")
	fs.IntVar(&c.concurrency, "j", build.DefaultConcurrency, "parallel runtime fetches")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newFlagSet creates a flag set that reports errors to stderr.
func newFlagSet(name string, stderr io.Writer, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: xulpack %s %s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args, mapping -h to a clean exit.
func parseFlags(fs *flag.FlagSet, args []string) (help bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, errUsage
	}
	return false, nil
}

// resolveTargets parses the -targets list, defaulting to the host.
func (c *commonFlags) resolveTargets(host *platform.Info) ([]platform.Target, error) {
	if strings.TrimSpace(c.targets) == "" {
		return []platform.Target{host.Target()}, nil
	}
	return platform.ParseTargets(c.targets)
}

// builder loads the runtimes config and creates a Builder.
func (c *commonFlags) builder(logger *logging.Logger, progress build.ProgressFunc) (*build.Builder, error) {
	return c.builderWith(logger, progress, nil)
}

// builderWith is builder with a hook to adjust command-specific options.
func (c *commonFlags) builderWith(logger *logging.Logger, progress build.ProgressFunc, mutate func(*build.Options)) (*build.Builder, error) {
	rt, err := config.Load(c.runtimes)
	if err != nil {
		return nil, err
	}
	opts := build.Options{
		BuildDir:    c.buildDir,
		Runtimes:    rt,
		Logger:      logger,
		Verbose:     c.verbose,
		Progress:    progress,
		Retries:     c.retries,
		KeyringPath: c.keyring,
		Concurrency: c.concurrency,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return build.New(opts)
}

// progressBars renders one bar per target and phase.
type progressBars struct {
	mu   sync.Mutex
	out  io.Writer
	bars map[string]*logging.ProgressBar
}

func newProgressBars(out io.Writer) *progressBars {
	return &progressBars{out: out, bars: make(map[string]*logging.ProgressBar)}
}

func (p *progressBars) update(target platform.Target, phase string, done, total int64) {
	key := target.String() + " " + phase
	p.mu.Lock()
	bar, ok := p.bars[key]
	if !ok {
		bar = logging.NewProgressBar(p.out, fmt.Sprintf("%-12s %-8s", target, phase))
		p.bars[key] = bar
	}
	p.mu.Unlock()

	bar.Update(done, total)
	if total > 0 && done >= total {
		bar.Done()
	}
}

// progress returns the Builder callback, or nil when bars are hidden.
func (c *commonFlags) progress(out io.Writer) build.ProgressFunc {
	if c.quiet {
		return nil
	}
	return newProgressBars(out).update
}
