package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/command"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/depscheck"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
)

// runCheck handles the `xulpack check` subcommand
func runCheck(args []string, stdout, stderr io.Writer) error {
	var platforms string

	fs := newFlagSet("check", stderr, "[options]")
	fs.StringVar(&platforms, "platforms", "", "comma-separated platforms to check: osx,linux,win (default: host)")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	host, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect host platform: %w", err)
	}

	var names []string
	for _, p := range strings.Split(platforms, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		name, err := platform.NormalizePlatform(p)
		if err != nil {
			return err
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		names = []string{host.Target().Platform}
	}

	results, err := depscheck.Check(ctx, command.NewExecRunner(), names, nil)
	if err != nil {
		return err
	}
	if err := depscheck.Report(stdout, results); err != nil {
		return err
	}

	var missing []string
	for _, r := range results {
		for _, tool := range r.Missing {
			if slices.Contains(missing, tool) {
				continue
			}
			missing = append(missing, tool)
			if hint := depscheck.InstallHint(host, tool); hint != "" {
				fmt.Fprintf(stdout, "  %s: %s\n", tool, hint)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing packaging tools: %s", strings.Join(missing, ", "))
	}
	return nil
}
