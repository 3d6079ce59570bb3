package unpack

import (
	"compress/bzip2"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Format identifies a supported archive type.
type Format int

const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatTarBz2
	FormatTarXz
	FormatTarZst
	FormatZip
)

// String returns the conventional extension for the format.
func (f Format) String() string {
	switch f {
	case FormatTarGz:
		return "tar.gz"
	case FormatTarBz2:
		return "tar.bz2"
	case FormatTarXz:
		return "tar.xz"
	case FormatTarZst:
		return "tar.zst"
	case FormatZip:
		return "zip"
	default:
		return "unknown"
	}
}

// IsTar reports whether the format is a compressed tarball.
func (f Format) IsTar() bool {
	switch f {
	case FormatTarGz, FormatTarBz2, FormatTarXz, FormatTarZst:
		return true
	default:
		return false
	}
}

var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.zst", FormatTarZst},
	{".zip", FormatZip},
}

// DetectFormat picks the archive format from the file name, case-insensitively.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(filepath.Base(name))
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, nil
		}
	}
	return FormatUnknown, &UnsupportedFormatError{Path: name}
}

// decompress wraps r in the streaming decoder for a tar format. The returned
// closer releases decoder resources and must always be called.
func decompress(format Format, r io.Reader) (io.Reader, func(), error) {
	switch format {
	case FormatTarGz:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case FormatTarBz2:
		return bzip2.NewReader(r), func() {}, nil
	case FormatTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("create xz reader: %w", err)
		}
		return xr, func() {}, nil
	case FormatTarZst:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, fmt.Errorf("no decompressor for %s", format)
	}
}
