package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRuntimes = `{
  "osx": {
    "all": {
      "url": "https://ftp.example.org/xulrunner/xulrunner-22.0.en-US.mac.tar.bz2?raw=1",
      "md5": "9E107D9D372BB6826BD81D3542A419D6",
      "bin": { "path": "XUL.framework/Versions/Current/xulrunner", "sig": "e4d909c290d0fb1ca068ffaddf22cbd0" }
    }
  },
  "linux": {
    "amd64": {
      "url": "https://ftp.example.org/xulrunner/xulrunner-22.0.en-US.linux-x86_64.tar.bz2",
      "sha256": "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
      "bin": { "path": "xulrunner/xulrunner" },
      "signatureUrl": "https://ftp.example.org/xulrunner/xulrunner-22.0.en-US.linux-x86_64.tar.bz2.asc"
    },
    "386": {
      "url": "https://ftp.example.org/xulrunner/xulrunner-22.0.en-US.linux-i686.tar.bz2",
      "bin": { "path": "xulrunner/xulrunner" }
    }
  }
}`

func TestParseAndResolve(t *testing.T) {
	rt, err := Parse([]byte(testRuntimes), "runtimes.json")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		name       string
		platform   string
		arch       string
		wantAlgo   string
		wantSum    string
		wantName   string
		wantDir    string
		wantBinRel string
	}{
		{
			name:       "all fallback",
			platform:   "osx",
			arch:       "arm64",
			wantAlgo:   "md5",
			wantSum:    "9e107d9d372bb6826bd81d3542a419d6",
			wantName:   "xulrunner-22.0.en-US.mac.tar.bz2",
			wantDir:    "XUL.framework",
			wantBinRel: filepath.Join("Versions", "Current", "xulrunner"),
		},
		{
			name:       "exact arch with sha256",
			platform:   "linux",
			arch:       "amd64",
			wantAlgo:   "sha256",
			wantSum:    "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
			wantName:   "xulrunner-22.0.en-US.linux-x86_64.tar.bz2",
			wantDir:    "xulrunner",
			wantBinRel: "xulrunner",
		},
		{
			name:       "no digest defaults to md5",
			platform:   "linux",
			arch:       "386",
			wantAlgo:   "md5",
			wantSum:    "",
			wantName:   "xulrunner-22.0.en-US.linux-i686.tar.bz2",
			wantDir:    "xulrunner",
			wantBinRel: "xulrunner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := rt.Resolve(tt.platform, tt.arch)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if d.ChecksumAlgorithm != tt.wantAlgo {
				t.Errorf("ChecksumAlgorithm = %q, want %q", d.ChecksumAlgorithm, tt.wantAlgo)
			}
			if d.Checksum != tt.wantSum {
				t.Errorf("Checksum = %q, want %q", d.Checksum, tt.wantSum)
			}
			if got := d.ArchiveName(); got != tt.wantName {
				t.Errorf("ArchiveName() = %q, want %q", got, tt.wantName)
			}
			if got := d.RuntimeDir(); got != tt.wantDir {
				t.Errorf("RuntimeDir() = %q, want %q", got, tt.wantDir)
			}
			if got := d.BinRelPath(); got != tt.wantBinRel {
				t.Errorf("BinRelPath() = %q, want %q", got, tt.wantBinRel)
			}
		})
	}
}

func TestResolveMissing(t *testing.T) {
	rt, err := Parse([]byte(testRuntimes), "runtimes.json")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		name     string
		platform string
		arch     string
		wantMsg  string
	}{
		{"unknown platform", "win", "amd64", `platform "win"`},
		{"unknown arch without all", "linux", "arm64", "linux - arm64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Resolve(tt.platform, tt.arch)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Resolve() error = %v, want *ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
			if !strings.Contains(err.Error(), "runtimes.json") {
				t.Errorf("error %q does not name the config file", err)
			}
		})
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"empty object", `{}`},
		{"missing url", `{"osx": {"all": {"bin": {"path": "a/b"}}}}`},
		{"missing bin", `{"osx": {"all": {"url": "https://x/y.tar.gz"}}}`},
		{"bin path without directory", `{"osx": {"all": {"url": "https://x/y.tar.gz", "bin": {"path": "xulrunner"}}}}`},
		{"bin path leaving the build dir", `{"osx": {"all": {"url": "https://x/y.tar.gz", "bin": {"path": "../xulrunner"}}}}`},
		{"bin path starting with dot", `{"osx": {"all": {"url": "https://x/y.tar.gz", "bin": {"path": "./xulrunner/xulrunner"}}}}`},
		{"bin path with parent component", `{"osx": {"all": {"url": "https://x/y.tar.gz", "bin": {"path": "a/../b"}}}}`},
		{"absolute bin path", `{"osx": {"all": {"url": "https://x/y.tar.gz", "bin": {"path": "/usr/bin/xulrunner"}}}}`},
		{"bad digest", `{"osx": {"all": {"url": "https://x/y.tar.gz", "md5": "zz", "bin": {"path": "a/b"}}}}`},
		{"unknown field", `{"osx": {"all": {"url": "https://x/y.tar.gz", "crc": "1", "bin": {"path": "a/b"}}}}`},
		{"non http url", `{"osx": {"all": {"url": "ftp://x/y.tar.gz", "bin": {"path": "a/b"}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "bad.json")
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Parse() error = %v, want *ConfigurationError", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtimes.json")
	if err := os.WriteFile(path, []byte(testRuntimes), 0644); err != nil {
		t.Fatal(err)
	}

	rt, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rt.Source() != path {
		t.Errorf("Source() = %q, want %q", rt.Source(), path)
	}
	if got := strings.Join(rt.Platforms(), ","); got != "linux,osx" {
		t.Errorf("Platforms() = %q", got)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Load() of missing file error = %v, want *ConfigurationError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error should wrap os.ErrNotExist, got %v", err)
	}
}
