// Package depscheck reports which external packaging tools are available for
// each target platform.
package depscheck

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/command"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
)

// Features that may need an external tool.
const (
	ResizeImage  = "resize-image"
	Compression  = "compression"
	IconTool     = "icon-tool"
	ResourceEdit = "resource-edit"
)

// Features lists every checkable feature in report order.
var Features = []string{ResizeImage, Compression, IconTool, ResourceEdit}

// tools maps platform -> feature -> executables that must all be present.
// An empty list means the feature needs nothing on that platform.
var tools = map[string]map[string][]string{
	platform.OSX: {
		ResizeImage:  {"sips"},
		Compression:  {"tar", "bzip2"},
		IconTool:     {"iconutil"},
		ResourceEdit: nil,
	},
	platform.Linux: {
		ResizeImage:  {"convert"},
		Compression:  {"tar", "gzip"},
		IconTool:     nil,
		ResourceEdit: nil,
	},
	platform.Win: {
		ResizeImage:  {"convert"},
		Compression:  {"zip"},
		IconTool:     {"icotool"},
		ResourceEdit: {"rcedit"},
	},
}

var captions = map[string]string{
	platform.OSX:   "Mac OS X",
	platform.Linux: "Linux",
	platform.Win:   "Windows",
}

// Result is the outcome for one platform.
type Result struct {
	Platform string
	// Features maps each checked feature to whether its tools are present.
	// Features that were not checked are absent.
	Features map[string]bool
	// Missing lists absent executables in check order, without duplicates.
	Missing []string
}

// OK reports whether every checked feature is available.
func (r *Result) OK() bool {
	return len(r.Missing) == 0
}

// Caption is the human-readable platform name.
func Caption(p string) string {
	if c, ok := captions[p]; ok {
		return c
	}
	return p
}

// Check probes the tools for each platform. An empty platforms list checks
// the host platform; nil features checks all of them.
func Check(ctx context.Context, runner command.Runner, platforms, features []string) ([]Result, error) {
	if len(platforms) == 0 {
		info, err := platform.NewDetector().Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("detect host platform: %w", err)
		}
		platforms = []string{info.Target().Platform}
	}
	if features == nil {
		features = Features
	}

	results := make([]Result, 0, len(platforms))
	for _, p := range platforms {
		checks, ok := tools[p]
		if !ok {
			return nil, fmt.Errorf("unsupported platform: %q", p)
		}
		result := Result{Platform: p, Features: make(map[string]bool, len(features))}
		for _, feature := range features {
			required, ok := checks[feature]
			if !ok {
				return nil, fmt.Errorf("no check found for feature %q", feature)
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			present := true
			for _, tool := range required {
				if command.Available(runner, tool) {
					continue
				}
				present = false
				if !slices.Contains(result.Missing, tool) {
					result.Missing = append(result.Missing, tool)
				}
			}
			result.Features[feature] = present
		}
		results = append(results, result)
	}
	return results, nil
}

var (
	okColor  = color.New(color.FgHiBlack)
	errColor = color.New(color.FgRed)
	dotColor = color.New(color.FgHiBlack)
)

const (
	symbolOK  = "✓"
	symbolErr = "✖"
	symbolDot = "․"
)

// Report writes a feature table for results. Colors follow color.NoColor.
func Report(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Dependencies Check Results:")
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "\t%s\tMissing\n", strings.Join(Features, "\t"))

	for _, r := range results {
		cells := make([]string, 0, len(Features))
		for _, feature := range Features {
			present, checked := r.Features[feature]
			switch {
			case !checked:
				cells = append(cells, dotColor.Sprint(symbolDot))
			case present:
				cells = append(cells, okColor.Sprint(symbolOK))
			default:
				cells = append(cells, errColor.Sprint(symbolErr))
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", Caption(r.Platform), strings.Join(cells, "\t"), dotColor.Sprint(strings.Join(r.Missing, ",")))
	}
	return tw.Flush()
}
