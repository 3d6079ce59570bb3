package checksum

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestHash(t *testing.T) {
	tests := []struct {
		name    string
		content string
		algo    Algorithm
		want    string
	}{
		{"md5 hello", "hello", MD5, "5d41402abc4b2a76b9719d911017c592"},
		{"md5 empty", "", MD5, "d41d8cd98f00b204e9800998ecf8427e"},
		{"sha1 hello", "hello", SHA1, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"sha256 hello", "hello", SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hash(writeFile(t, tt.content), tt.algo)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Hash() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHashSHA512Length(t *testing.T) {
	got, err := Hash(writeFile(t, "hello"), SHA512)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if len(got) != 128 || strings.ToLower(got) != got {
		t.Errorf("Hash() = %q, want 128 lowercase hex chars", got)
	}
}

func TestHashErrors(t *testing.T) {
	if _, err := Hash(filepath.Join(t.TempDir(), "missing"), MD5); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Hash() of missing file error = %v, want fs.ErrNotExist", err)
	}
	if _, err := Hash(writeFile(t, "x"), Algorithm("crc32")); err == nil {
		t.Error("Hash() with unknown algorithm should fail")
	}
}

func TestMatches(t *testing.T) {
	path := writeFile(t, "hello")

	tests := []struct {
		name     string
		expected string
		want     bool
	}{
		{"exact", "5d41402abc4b2a76b9719d911017c592", true},
		{"uppercase", "5D41402ABC4B2A76B9719D911017C592", true},
		{"surrounding space", " 5d41402abc4b2a76b9719d911017c592\n", true},
		{"mismatch", "00000000000000000000000000000000", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, actual, err := Matches(path, tt.expected, MD5)
			if err != nil {
				t.Fatalf("Matches() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
			if actual != "5d41402abc4b2a76b9719d911017c592" {
				t.Errorf("actual = %s", actual)
			}
		})
	}
}

func TestMatchesPropagatesIOError(t *testing.T) {
	_, _, err := Matches(filepath.Join(t.TempDir(), "missing"), "abc", MD5)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Matches() error = %v, want fs.ErrNotExist", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", MD5, false},
		{"MD5", MD5, false},
		{" sha256 ", SHA256, false},
		{"sha1", SHA1, false},
		{"sha512", SHA512, false},
		{"blake3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
