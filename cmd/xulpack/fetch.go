package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/logging"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
)

// runFetch handles the `xulpack fetch` subcommand
func runFetch(args []string, stdout, stderr io.Writer) error {
	var opts commonFlags
	var status bool

	fs := newFlagSet("fetch", stderr, "[options]")
	opts.register(fs)
	fs.BoolVar(&status, "status", false, "only report whether each runtime needs fetching")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := logging.New(stderr, opts.verbose)

	host, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect host platform: %w", err)
	}
	targets, err := opts.resolveTargets(host)
	if err != nil {
		return err
	}

	b, err := opts.builder(logger, opts.progress(stderr))
	if err != nil {
		return err
	}

	if status {
		for _, target := range targets {
			f, err := b.Fetcher(target)
			if err != nil {
				return err
			}
			needs, err := f.NeedsFetch()
			if err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			state := "ready"
			if needs {
				state = "needs fetch"
			}
			fmt.Fprintf(stdout, "%s\t%s\t%s\n", target, state, f.RuntimePath())
		}
		return nil
	}

	if err := b.FetchAll(ctx, targets); err != nil {
		return err
	}
	for _, target := range targets {
		f, err := b.Fetcher(target)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\t%s\n", target, f.RuntimePath())
	}
	return nil
}
