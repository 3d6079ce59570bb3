// Package fetch makes sure the binary runtime for one platform target is
// present and trustworthy in the build directory.
//
// Layout below the build directory:
//
//	cache/<archive name>     downloaded archive (never modified in place)
//	<runtime dir>/           extracted runtime
//	<runtime dir>.<algo>     extraction marker holding the verified bin.sig
//
// A runtime is trusted only when its binary exists and the marker equals the
// descriptor's bin.sig. Anything else is "needs fetch". Fetching is
// idempotent: a second FetchIfNeeded performs no network I/O.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/checksum"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/config"
	"github.com/ZebulonRouseFrantzich/xulpack/internal/unpack"
)

// CacheDirName is the cache directory below the build directory.
const CacheDirName = "cache"

// Options configures a Fetcher.
type Options struct {
	// BuildDir is the build output tree. Required.
	BuildDir string
	// Descriptor is the runtime to fetch. Required.
	Descriptor *config.Descriptor

	Logger config.Logger
	// Progress receives download progress events.
	Progress ProgressFunc
	// UnpackProgress receives extraction progress (compressed bytes read).
	UnpackProgress unpack.ProgressFunc

	// Client overrides the HTTP client.
	Client *http.Client
	// Retries is the number of extra download attempts. Zero disables retries.
	Retries int

	// KeyringPath enables OpenPGP verification of archives whose descriptor
	// has a SignatureURL.
	KeyringPath string
}

// Fetcher fetches one runtime into one build directory.
type Fetcher struct {
	buildDir    string
	desc        *config.Descriptor
	algo        checksum.Algorithm
	logger      config.Logger
	progress    ProgressFunc
	unpackProg  unpack.ProgressFunc
	keyringPath string

	downloader *Downloader
	unpacker   *unpack.Unpacker
}

// New creates a Fetcher.
func New(opts Options) (*Fetcher, error) {
	if opts.BuildDir == "" {
		return nil, fmt.Errorf("BuildDir is required")
	}
	if opts.Descriptor == nil {
		return nil, fmt.Errorf("Descriptor is required")
	}
	if !localBinPath(opts.Descriptor.BinPath) || opts.Descriptor.RuntimeDir() == "" || opts.Descriptor.BinRelPath() == "" {
		return nil, fmt.Errorf("descriptor bin.path %q must name a file inside the runtime directory", opts.Descriptor.BinPath)
	}
	algo, err := checksum.ParseAlgorithm(opts.Descriptor.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}

	logger := config.LoggerOrNop(opts.Logger)
	return &Fetcher{
		buildDir:    opts.BuildDir,
		desc:        opts.Descriptor,
		algo:        algo,
		logger:      logger,
		progress:    opts.Progress,
		unpackProg:  opts.UnpackProgress,
		keyringPath: opts.KeyringPath,
		downloader:  NewDownloader(opts.Client, opts.Retries, logger),
		unpacker:    unpack.New(logger),
	}, nil
}

// Descriptor returns the runtime descriptor.
func (f *Fetcher) Descriptor() *config.Descriptor {
	return f.desc
}

// CacheDir returns <buildDir>/cache.
func (f *Fetcher) CacheDir() string {
	return filepath.Join(f.buildDir, CacheDirName)
}

// ArchivePath returns the cache path of the archive.
func (f *Fetcher) ArchivePath() string {
	return filepath.Join(f.CacheDir(), f.desc.ArchiveName())
}

// localBinPath reports whether p stays below the build directory and has no
// empty, "." or ".." components.
func localBinPath(p string) bool {
	if !filepath.IsLocal(filepath.FromSlash(p)) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// RuntimePath returns the extracted runtime directory.
func (f *Fetcher) RuntimePath() string {
	return filepath.Join(f.buildDir, f.desc.RuntimeDir())
}

// BinaryPath returns the runtime binary whose digest is the extraction
// signature.
func (f *Fetcher) BinaryPath() string {
	return filepath.Join(f.buildDir, filepath.FromSlash(f.desc.BinPath))
}

// MarkerPath returns the extraction marker file.
func (f *Fetcher) MarkerPath() string {
	return f.RuntimePath() + "." + string(f.algo)
}

// NeedsFetch reports whether the runtime must be (re)fetched. A descriptor
// without bin.sig yields *MissingSignatureError instead of an answer.
func (f *Fetcher) NeedsFetch() (bool, error) {
	if f.desc.BinSig == "" {
		return false, f.missingSignature("")
	}

	if _, err := os.Stat(f.BinaryPath()); err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat runtime binary: %w", err)
	}

	recorded, err := f.readMarker()
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("read extraction marker: %w", err)
	}

	return !strings.EqualFold(recorded, f.desc.BinSig), nil
}

// FetchIfNeeded makes the runtime present and verified. It is a no-op when
// NeedsFetch is false.
//
// When the descriptor has no bin.sig the runtime is still fetched and
// unpacked, the computed signature is logged, and *MissingSignatureError
// carrying it is returned.
func (f *Fetcher) FetchIfNeeded(ctx context.Context) error {
	need, err := f.NeedsFetch()
	var missing *MissingSignatureError
	bootstrap := errors.As(err, &missing)
	if err != nil && !bootstrap {
		return err
	}
	if !need && !bootstrap {
		f.logger.Debug("runtime is up to date", "platform", f.desc.Platform, "arch", f.desc.Arch, "path", f.RuntimePath())
		return nil
	}

	lock, err := AcquireLock(ctx, f.buildDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := os.MkdirAll(f.CacheDir(), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	archive := f.ArchivePath()
	cached, err := f.cachedArchiveValid(archive)
	if err != nil {
		return err
	}
	if !cached {
		if err := f.Download(ctx, f.desc.URL, archive); err != nil {
			return err
		}
	}

	if err := f.verifyArchiveSignature(ctx, archive); err != nil {
		return err
	}

	actual, err := f.unpack(ctx, archive)
	if err != nil {
		return err
	}

	if bootstrap {
		f.logger.Warn("Extraction signature for the record, add it as bin.sig",
			"platform", f.desc.Platform, "arch", f.desc.Arch,
			"path", f.desc.BinPath, string(f.algo), actual)
		return f.missingSignature(actual)
	}

	// Self-check: the marker just written must now satisfy NeedsFetch.
	need, err = f.NeedsFetch()
	if err != nil {
		return err
	}
	if need {
		return &SignatureMismatchError{Path: f.BinaryPath(), Expected: f.desc.BinSig, Actual: actual}
	}

	f.logger.Info("Runtime ready", "platform", f.desc.Platform, "arch", f.desc.Arch, "path", f.RuntimePath())
	return nil
}

// Download fetches url to dest and verifies it against the descriptor
// checksum. A mismatch deletes dest and returns *ChecksumMismatchError. With
// no checksum configured the computed digest is logged so it can be added.
func (f *Fetcher) Download(ctx context.Context, url, dest string) error {
	f.logger.Info("Downloading "+url, "dest", dest)

	if err := f.downloader.DownloadToFile(ctx, url, dest, f.progress); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	if f.desc.Checksum == "" {
		actual, err := checksum.Hash(dest, f.algo)
		if err != nil {
			return fmt.Errorf("checksum downloaded archive: %w", err)
		}
		f.logger.Warn("No archive checksum configured, add it to the runtimes config",
			"platform", f.desc.Platform, "arch", f.desc.Arch,
			"file", filepath.Base(dest), string(f.algo), actual)
		return nil
	}

	ok, actual, err := checksum.Matches(dest, f.desc.Checksum, f.algo)
	if err != nil {
		return fmt.Errorf("checksum downloaded archive: %w", err)
	}
	if !ok {
		f.removeCorrupt(dest)
		return &ChecksumMismatchError{
			Path:      dest,
			Algorithm: string(f.algo),
			Expected:  f.desc.Checksum,
			Actual:    actual,
		}
	}

	f.logger.Debug("archive checksum verified", "path", dest, string(f.algo), actual)
	return nil
}

// cachedArchiveValid reports whether a previously downloaded archive can be
// reused. A stale one is deleted.
func (f *Fetcher) cachedArchiveValid(archive string) (bool, error) {
	info, err := os.Stat(archive)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat cached archive: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("cached archive %s is not a regular file", archive)
	}

	if f.desc.Checksum != "" {
		ok, actual, err := checksum.Matches(archive, f.desc.Checksum, f.algo)
		if err != nil {
			return false, fmt.Errorf("checksum cached archive: %w", err)
		}
		if ok {
			f.logger.Info("Using cached archive", "path", archive)
			return true, nil
		}
		f.logger.Warn("Cached archive is stale, downloading again", "path", archive, "expected", f.desc.Checksum, "actual", actual)
	} else {
		f.logger.Warn("No archive checksum configured, cannot trust cached archive", "path", archive)
	}

	if err := os.Remove(archive); err != nil {
		return false, fmt.Errorf("remove stale archive: %w", err)
	}
	return false, nil
}

// removeCorrupt deletes downloads that failed verification. Failures are
// logged so the original verification error is what the caller sees.
func (f *Fetcher) removeCorrupt(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			f.logger.Error("Failed to remove corrupt download", "path", p, "error", err)
		}
	}
}

// verifyArchiveSignature checks the detached OpenPGP signature when both a
// signature URL and a keyring are configured. On failure the archive and the
// signature are deleted.
func (f *Fetcher) verifyArchiveSignature(ctx context.Context, archive string) error {
	if f.desc.SignatureURL == "" || f.keyringPath == "" {
		return nil
	}

	sigPath := filepath.Join(f.CacheDir(), f.desc.SignatureName())
	if err := f.downloader.DownloadToFile(ctx, f.desc.SignatureURL, sigPath, nil); err != nil {
		return fmt.Errorf("download signature %s: %w", f.desc.SignatureURL, err)
	}

	if err := checksum.VerifyDetached(archive, sigPath, f.keyringPath); err != nil {
		f.removeCorrupt(archive, sigPath)
		return fmt.Errorf("archive %s failed OpenPGP verification: %w", filepath.Base(archive), err)
	}

	f.logger.Debug("archive signature verified", "path", archive, "keyring", f.keyringPath)
	return nil
}

// unpack extracts the archive into the runtime directory and records the
// extraction signature. It returns the computed signature.
func (f *Fetcher) unpack(ctx context.Context, archive string) (string, error) {
	// Any earlier marker no longer describes what is about to be on disk.
	if err := os.Remove(f.MarkerPath()); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove extraction marker: %w", err)
	}

	var actual string
	err := f.unpacker.Unpack(ctx, archive, f.RuntimePath(), unpack.Options{
		Progress: f.unpackProg,
		Validate: func(staging string) error {
			bin := filepath.Join(staging, f.desc.BinRelPath())
			sig, err := checksum.Hash(bin, f.algo)
			if err != nil {
				return fmt.Errorf("compute extraction signature: %w", err)
			}
			actual = sig
			if f.desc.BinSig != "" && !strings.EqualFold(sig, f.desc.BinSig) {
				return &SignatureMismatchError{Path: f.BinaryPath(), Expected: f.desc.BinSig, Actual: sig}
			}
			return nil
		},
	})
	if err != nil {
		var sigErr *SignatureMismatchError
		if errors.As(err, &sigErr) {
			// The archive decompressed fine but holds the wrong runtime.
			os.Remove(archive)
		}
		return "", err
	}

	if err := writeMarker(f.MarkerPath(), actual); err != nil {
		return "", err
	}
	return actual, nil
}

func (f *Fetcher) readMarker() (string, error) {
	data, err := os.ReadFile(f.MarkerPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *Fetcher) missingSignature(actual string) *MissingSignatureError {
	return &MissingSignatureError{
		Platform: f.desc.Platform,
		Arch:     f.desc.Arch,
		BinPath:  f.desc.BinPath,
		Actual:   actual,
	}
}

// writeMarker writes the marker atomically.
func writeMarker(path, sig string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sig+"\n"), 0644); err != nil {
		return fmt.Errorf("write extraction marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write extraction marker: %w", err)
	}
	return nil
}
