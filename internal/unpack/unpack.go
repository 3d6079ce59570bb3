// Package unpack extracts runtime archives into a destination directory.
//
// Extraction is staged: entries are written into a temporary sibling of the
// destination, the optional Validate hook inspects the staged tree, and only
// then is the previous destination replaced by an atomic rename. A failed
// unpack therefore never leaves a half-extracted tree at the destination.
//
// Tar-based archives have their first path component stripped so that the
// archive's top-level directory is flattened into the destination. Zip
// archives are extracted as-is.
package unpack

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/config"
)

// State is a step of a single Unpack call.
type State int

const (
	StateStart State = iota
	StateValidatingInput
	StateDecompressing
	StateExtracting
	StateVerifying
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateValidatingInput:
		return "validating input"
	case StateDecompressing:
		return "decompressing"
	case StateExtracting:
		return "extracting"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressFunc receives (bytes consumed, total bytes).
type ProgressFunc func(done, total int64)

// Options configures one Unpack call.
type Options struct {
	// Progress reports how much of the *compressed* archive file has been
	// read, against its size on disk. It approximates extraction progress; it
	// is not a percentage of decompressed output.
	Progress ProgressFunc

	// Validate runs against the staged tree before it replaces the
	// destination. A non-nil error fails the unpack.
	Validate func(stagingDir string) error
}

// Unpacker extracts archives.
type Unpacker struct {
	logger config.Logger
}

// New creates an Unpacker. A nil logger discards output.
func New(logger config.Logger) *Unpacker {
	return &Unpacker{logger: config.LoggerOrNop(logger)}
}

// Unpack extracts archivePath into destDir.
func (u *Unpacker) Unpack(ctx context.Context, archivePath, destDir string, opts Options) error {
	state := StateStart
	fail := func(err error) error {
		u.logger.Debug("unpack failed", "archive", archivePath, "state", state.String(), "error", err)
		return &Error{Archive: archivePath, State: state, Err: err}
	}

	state = StateValidatingInput
	format, err := DetectFormat(archivePath)
	if err != nil {
		return err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return fail(fmt.Errorf("path doesn't exist, cannot unpack: %w", err))
	}
	if !info.Mode().IsRegular() {
		return fail(fmt.Errorf("not a regular file: %s", archivePath))
	}

	u.logger.Info("Extracting "+filepath.Base(archivePath), "format", format.String(), "dest", destDir)

	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fail(fmt.Errorf("create parent dir: %w", err))
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(destDir)+".staging-")
	if err != nil {
		return fail(fmt.Errorf("create staging dir: %w", err))
	}

	// Remove the staging tree unless it was renamed into place.
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	file, err := os.Open(archivePath)
	if err != nil {
		return fail(fmt.Errorf("open archive: %w", err))
	}
	defer file.Close()

	counter := newProgressCounter(ctx, info.Size(), opts.Progress)

	root, err := os.OpenRoot(staging)
	if err != nil {
		return fail(fmt.Errorf("open staging dir: %w", err))
	}
	defer root.Close()

	if format.IsTar() {
		state = StateDecompressing
		r, closeFn, err := decompress(format, counter.reader(file))
		if err != nil {
			return fail(err)
		}
		state = StateExtracting
		err = extractTar(r, root, 1)
		closeFn()
		if err != nil {
			return fail(err)
		}
	} else {
		state = StateExtracting
		zr, err := zip.NewReader(counter.readerAt(file), info.Size())
		if err != nil {
			return fail(fmt.Errorf("open zip: %w", err))
		}
		if err := extractZip(ctx, zr, root); err != nil {
			return fail(err)
		}
	}
	counter.finish()
	if err := root.Close(); err != nil {
		return fail(fmt.Errorf("close staging dir: %w", err))
	}

	state = StateVerifying
	if opts.Validate != nil {
		if err := opts.Validate(staging); err != nil {
			return fail(err)
		}
	}

	if err := os.RemoveAll(destDir); err != nil {
		return fail(fmt.Errorf("remove previous destination: %w", err))
	}
	if err := os.Rename(staging, destDir); err != nil {
		return fail(fmt.Errorf("move staged tree into place: %w", err))
	}
	committed = true
	state = StateDone

	u.logger.Debug("unpack finished", "archive", archivePath, "dest", destDir)
	return nil
}

// progressCounter tracks compressed bytes read and forwards updates to the
// callback, throttled to whole-percent steps. It also aborts reads once the
// context is cancelled.
type progressCounter struct {
	ctx      context.Context
	total    int64
	done     int64
	lastPct  int64
	callback ProgressFunc
}

func newProgressCounter(ctx context.Context, total int64, cb ProgressFunc) *progressCounter {
	return &progressCounter{ctx: ctx, total: total, lastPct: -1, callback: cb}
}

func (p *progressCounter) add(n int) {
	if n <= 0 {
		return
	}
	p.done = min(p.done+int64(n), p.total)
	if p.callback == nil || p.total <= 0 {
		return
	}
	pct := p.done * 100 / p.total
	if pct != p.lastPct {
		p.lastPct = pct
		p.callback(p.done, p.total)
	}
}

func (p *progressCounter) finish() {
	if p.callback != nil && p.lastPct != 100 {
		p.lastPct = 100
		p.callback(p.total, p.total)
	}
}

func (p *progressCounter) reader(r io.Reader) io.Reader {
	return &countingReader{r: r, p: p}
}

func (p *progressCounter) readerAt(r io.ReaderAt) io.ReaderAt {
	return &countingReaderAt{r: r, p: p}
}

type countingReader struct {
	r io.Reader
	p *progressCounter
}

func (c *countingReader) Read(b []byte) (int, error) {
	if err := c.p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(b)
	c.p.add(n)
	return n, err
}

type countingReaderAt struct {
	r io.ReaderAt
	p *progressCounter
}

func (c *countingReaderAt) ReadAt(b []byte, off int64) (int, error) {
	if err := c.p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.ReadAt(b, off)
	c.p.add(n)
	return n, err
}
