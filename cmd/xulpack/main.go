package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/config"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/fetch"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/preprocess"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/unpack"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return 0
	}

	var err error
	switch args[0] {
	case "--version", "version":
		fmt.Fprintf(stdout, "xulpack %s\n", Version)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	case "build":
		err = runBuild(args[1:], stdout, stderr)
	case "fetch":
		err = runFetch(args[1:], stdout, stderr)
	case "check":
		err = runCheck(args[1:], stdout, stderr)
	case "preprocess":
		err = runPreprocess(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Error: unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err == nil {
		return 0
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	if kind := errorKind(err); kind != "" {
		fmt.Fprintf(stderr, "Error (%s): %v\n", kind, err)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xulpack - package web apps with a XULRunner runtime")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xulpack --version                   Show version information")
	fmt.Fprintln(w, "  xulpack build [options] <app dir>   Build the app for one or more targets")
	fmt.Fprintln(w, "  xulpack fetch [options]             Download and verify runtimes")
	fmt.Fprintln(w, "  xulpack check [options]             Check for external packaging tools")
	fmt.Fprintln(w, "  xulpack preprocess [options] <file> Run a file through the preprocessor")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'xulpack <command> -h' for command options.")
}

// errorKind names the typed failure in err's chain, or "" for plain errors.
func errorKind(err error) string {
	var (
		cfgErr        *config.ConfigurationError
		missingSig    *fetch.MissingSignatureError
		checksumErr   *fetch.ChecksumMismatchError
		sigErr        *fetch.SignatureMismatchError
		formatErr     *unpack.UnsupportedFormatError
		unbalanced    *preprocess.UnbalancedDirectiveError
		nested        *preprocess.NestedBlockDefError
		unterminated  *preprocess.UnterminatedBlockDefError
		invalidExpr   *preprocess.InvalidExpressionError
		httpStatusErr *fetch.HTTPStatusError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "ConfigurationError"
	case errors.As(err, &missingSig):
		return "MissingSignatureError"
	case errors.As(err, &checksumErr):
		return "ChecksumMismatchError"
	case errors.As(err, &sigErr):
		return "SignatureMismatchError"
	case errors.As(err, &formatErr):
		return "UnsupportedFormatError"
	case errors.As(err, &unbalanced):
		return "UnbalancedDirectiveError"
	case errors.As(err, &nested):
		return "NestedBlockDefError"
	case errors.As(err, &unterminated):
		return "UnterminatedBlockDefError"
	case errors.As(err, &invalidExpr):
		return "InvalidExpressionError"
	case errors.As(err, &httpStatusErr):
		return "HTTPStatusError"
	case errors.Is(err, fetch.ErrLockExists):
		return "LockError"
	}
	return ""
}
