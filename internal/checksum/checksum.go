// Package checksum computes and compares content digests of files on disk,
// and verifies OpenPGP detached signatures.
//
// It is used both before a download (is the cached archive still good?) and
// after an extraction (does the unpacked runtime match its recorded
// signature?).
package checksum

import (
	"crypto/md5"  //nolint:gosec // md5 is what existing runtime configs record
	"crypto/sha1" //nolint:gosec // kept for older descriptor files
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// Default is used when no algorithm is given.
const Default = MD5

// ParseAlgorithm normalises an algorithm name. Empty means Default.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return Default, nil
	case MD5:
		return MD5, nil
	case SHA1:
		return SHA1, nil
	case SHA256:
		return SHA256, nil
	case SHA512:
		return SHA512, nil
	default:
		return "", fmt.Errorf("unsupported checksum algorithm: %s", name)
	}
}

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case MD5, "":
		return md5.New(), nil //nolint:gosec
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %s", string(a))
	}
}

// HashReader streams r through the algorithm and returns the lowercase hex
// digest.
func HashReader(r io.Reader, algo Algorithm) (string, error) {
	h, err := algo.New()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Hash computes the digest of the file at path.
func Hash(path string, algo Algorithm) (string, error) {
	if _, err := algo.New(); err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	sum, err := HashReader(file, algo)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return sum, nil
}

// Matches hashes the file at path and compares it case-insensitively with
// expected. The computed digest is returned either way so callers can report
// it. A mismatch is not an error.
func Matches(path, expected string, algo Algorithm) (bool, string, error) {
	actual, err := Hash(path, algo)
	if err != nil {
		return false, "", err
	}
	return strings.EqualFold(actual, strings.TrimSpace(expected)), actual, nil
}
