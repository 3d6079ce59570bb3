package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrLockExists is returned when another xulpack process holds the
	// build-directory lock.
	ErrLockExists = errors.New("build lock exists: another xulpack run may be in progress")
)

// ChecksumMismatchError reports a downloaded archive whose digest differs
// from the descriptor. The offending file has already been deleted.
type ChecksumMismatchError struct {
	Path      string
	Algorithm string
	Expected  string
	Actual    string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s checksum mismatch for %s: expected %s, got %s", e.Algorithm, e.Path, e.Expected, e.Actual)
}

// SignatureMismatchError reports an extracted runtime whose signature
// differs from the descriptor even though extraction itself succeeded.
type SignatureMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("extracted runtime signature mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// MissingSignatureError reports a descriptor without bin.sig. This is not
// "needs fetch": the configuration must record the signature. Actual is set
// once a fetch has computed it.
type MissingSignatureError struct {
	Platform string
	Arch     string
	BinPath  string
	Actual   string
}

func (e *MissingSignatureError) Error() string {
	msg := fmt.Sprintf("no extraction signature (bin.sig) configured for %s - %s", e.Platform, e.Arch)
	if e.Actual != "" {
		msg += fmt.Sprintf("; computed signature of %s is %s", e.BinPath, e.Actual)
	}
	return msg
}

// HTTPStatusError reports a non-200 response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// retryable reports whether another attempt could succeed.
func (e *HTTPStatusError) retryable() bool {
	return e.StatusCode < 400 || e.StatusCode >= 500 || e.StatusCode == 429
}
