package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/build"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/command"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/logging"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
)

// runBuild handles the `xulpack build` subcommand
func runBuild(args []string, stdout, stderr io.Writer) error {
	var opts commonFlags
	var continueOnError, skipToolCheck bool

	fs := newFlagSet("build", stderr, "[options] <app dir>")
	opts.register(fs)
	fs.BoolVar(&continueOnError, "continue", false, "keep building other targets after a failure")
	fs.BoolVar(&skipToolCheck, "no-tool-check", false, "do not warn about missing packaging tools")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := logging.New(stderr, opts.verbose)

	app, err := build.LoadApp(fs.Arg(0))
	if err != nil {
		return err
	}

	host, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect host platform: %w", err)
	}
	targets, err := opts.resolveTargets(host)
	if err != nil {
		return err
	}

	b, err := opts.builderWith(logger, opts.progress(stderr), func(o *build.Options) {
		o.ContinueOnError = continueOnError
		if !skipToolCheck {
			o.Runner = command.NewExecRunner()
		}
	})
	if err != nil {
		return err
	}

	// Fetch every runtime up front so downloads overlap.
	if len(targets) > 1 && !continueOnError {
		if err := b.FetchAll(ctx, targets); err != nil {
			return err
		}
	}

	results, err := b.Build(ctx, app, targets)
	for _, r := range results {
		if r.Err == nil {
			fmt.Fprintf(stdout, "%s\t%s\n", r.Target, r.OutputDir)
		}
	}
	return err
}
