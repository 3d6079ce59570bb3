// Package config loads the runtime descriptor file that tells xulpack where
// to fetch the binary runtime for each target platform and what the archive
// and the extracted runtime should hash to.
//
// The file is read once per process and the resulting *Runtimes is treated as
// immutable; it is handed explicitly to every component that needs it.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ArchAll is the architecture key used when a platform ships one runtime for
// every architecture.
const ArchAll = "all"

// DefaultChecksumAlgorithm is used when a descriptor carries no digest at all.
const DefaultChecksumAlgorithm = "md5"

// digestKeys lists the accepted digest fields in order of preference.
var digestKeys = []string{"sha512", "sha256", "sha1", "md5"}

// Descriptor describes where to fetch one runtime archive and what it must
// hash to. Descriptors are produced by Runtimes.Resolve and never mutated.
type Descriptor struct {
	Platform string
	Arch     string

	// URL of the runtime archive.
	URL string

	// Checksum is the expected archive digest (lowercase hex). Empty means
	// "not recorded yet"; the fetcher logs the computed value instead.
	Checksum          string
	ChecksumAlgorithm string

	// BinPath is the runtime binary relative to the build directory. Its
	// first path component is the runtime directory.
	BinPath string

	// BinSig is the expected digest of the extracted BinPath file, computed
	// with ChecksumAlgorithm.
	BinSig string

	// SignatureURL optionally points at a detached OpenPGP signature of the
	// archive.
	SignatureURL string
}

// ArchiveName returns the cache file name for the archive: the basename of
// the URL path.
func (d *Descriptor) ArchiveName() string {
	u, err := url.Parse(d.URL)
	if err != nil || u.Path == "" {
		return path.Base(d.URL)
	}
	return path.Base(u.Path)
}

// SignatureName returns the cache file name for the detached signature.
func (d *Descriptor) SignatureName() string {
	if d.SignatureURL == "" {
		return ""
	}
	u, err := url.Parse(d.SignatureURL)
	if err != nil || u.Path == "" {
		return path.Base(d.SignatureURL)
	}
	return path.Base(u.Path)
}

// RuntimeDir returns the first path component of BinPath.
func (d *Descriptor) RuntimeDir() string {
	clean := filepath.ToSlash(filepath.Clean(d.BinPath))
	first, _, _ := strings.Cut(clean, "/")
	return first
}

// BinRelPath returns BinPath relative to RuntimeDir.
func (d *Descriptor) BinRelPath() string {
	clean := filepath.ToSlash(filepath.Clean(d.BinPath))
	_, rest, found := strings.Cut(clean, "/")
	if !found {
		return ""
	}
	return filepath.FromSlash(rest)
}

// rawBin mirrors the "bin" object of the descriptor file.
type rawBin struct {
	Path string `json:"path"`
	Sig  string `json:"sig,omitempty"`
}

// rawDescriptor mirrors one platform/arch entry of the descriptor file.
type rawDescriptor struct {
	URL          string `json:"url"`
	MD5          string `json:"md5,omitempty"`
	SHA1         string `json:"sha1,omitempty"`
	SHA256       string `json:"sha256,omitempty"`
	SHA512       string `json:"sha512,omitempty"`
	Bin          rawBin `json:"bin"`
	SignatureURL string `json:"signatureUrl,omitempty"`
}

func (r rawDescriptor) digest() (algo, value string) {
	values := map[string]string{
		"sha512": r.SHA512,
		"sha256": r.SHA256,
		"sha1":   r.SHA1,
		"md5":    r.MD5,
	}
	for _, key := range digestKeys {
		if v := strings.TrimSpace(values[key]); v != "" {
			return key, strings.ToLower(v)
		}
	}
	return DefaultChecksumAlgorithm, ""
}

// Runtimes is the parsed descriptor file.
type Runtimes struct {
	path    string
	entries map[string]map[string]rawDescriptor
}

// Load reads, validates and decodes a descriptor file.
func Load(path string) (*Runtimes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Message: "cannot read runtimes config", Err: err}
	}
	return Parse(data, path)
}

// Parse validates and decodes descriptor file contents. source is only used
// in error messages.
func Parse(data []byte, source string) (*Runtimes, error) {
	if err := validateDocument(data); err != nil {
		return nil, &ConfigurationError{Source: source, Message: "invalid runtimes config", Err: err}
	}

	var entries map[string]map[string]rawDescriptor
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &ConfigurationError{Source: source, Message: "decode runtimes config", Err: err}
	}

	return &Runtimes{path: source, entries: entries}, nil
}

// Source returns the path the descriptors were loaded from.
func (r *Runtimes) Source() string {
	return r.path
}

// Platforms returns the configured platform names, sorted.
func (r *Runtimes) Platforms() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the descriptor for a platform and architecture. A platform
// without an exact arch entry falls back to its "all" entry. A missing
// combination is a *ConfigurationError.
func (r *Runtimes) Resolve(platform, arch string) (*Descriptor, error) {
	archs, ok := r.entries[platform]
	if !ok {
		return nil, &ConfigurationError{
			Source:  r.path,
			Message: fmt.Sprintf("no runtime configured for platform %q", platform),
		}
	}

	raw, ok := archs[arch]
	if !ok {
		raw, ok = archs[ArchAll]
	}
	if !ok {
		return nil, &ConfigurationError{
			Source:  r.path,
			Message: fmt.Sprintf("no runtime configured for %s - %s", platform, arch),
		}
	}

	algo, digest := raw.digest()
	return &Descriptor{
		Platform:          platform,
		Arch:              arch,
		URL:               raw.URL,
		Checksum:          digest,
		ChecksumAlgorithm: algo,
		BinPath:           raw.Bin.Path,
		BinSig:            strings.ToLower(strings.TrimSpace(raw.Bin.Sig)),
		SignatureURL:      raw.SignatureURL,
	}, nil
}
