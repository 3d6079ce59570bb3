package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/logging"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/preprocess"
)

// defineFlags collects repeated -D NAME[=VALUE] flags.
type defineFlags map[string]string

func (d defineFlags) String() string {
	parts := make([]string, 0, len(d))
	for k, v := range d {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (d defineFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("empty symbol name in %q", s)
	}
	if !ok {
		value = "1"
	}
	d[name] = value
	return nil
}

// runPreprocess handles the `xulpack preprocess` subcommand
func runPreprocess(args []string, stdout, stderr io.Writer) error {
	defines := make(defineFlags)
	var target, output string
	var verbose bool

	fs := newFlagSet("preprocess", stderr, "[options] <file|->")
	fs.Var(defines, "D", "define a symbol as NAME or NAME=VALUE (repeatable, wins over target symbols)")
	fs.StringVar(&target, "target", "", "seed the target's symbols, e.g. osx or win/386 (default: host)")
	fs.StringVar(&output, "o", "", "write to this file instead of stdout")
	fs.BoolVar(&verbose, "v", false, "log ignored code and definitions")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	var t platform.Target
	if target == "" {
		host, err := platform.NewDetector().Detect(context.Background())
		if err != nil {
			return fmt.Errorf("detect host platform: %w", err)
		}
		t = host.Target()
	} else {
		p, a, _ := strings.Cut(target, "/")
		var err error
		if t, err = platform.ParseTarget(p, a); err != nil {
			return err
		}
	}

	symbols := preprocess.NewSymbolTable(defines)
	for name, value := range t.Defines() {
		symbols.Define(name, value)
	}

	logger := logging.New(stderr, verbose).With("target", t.String())
	logger.Debug("Seeded symbols", "count", symbols.Len(), "names", strings.Join(symbols.Names(), " "))
	parser := preprocess.NewParser(logger, verbose)

	var (
		result string
		err    error
	)
	if src := fs.Arg(0); src == "-" {
		data, readErr := io.ReadAll(os.Stdin)
		if readErr != nil {
			return fmt.Errorf("read stdin: %w", readErr)
		}
		result, err = parser.Parse(string(data), symbols, "")
	} else {
		result, err = parser.ParseFile(src, symbols)
	}
	if err != nil {
		return err
	}

	if output == "" {
		_, err = io.WriteString(stdout, result)
		return err
	}
	return os.WriteFile(output, []byte(result), 0o644)
}
