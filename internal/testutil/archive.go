package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"path"
	"sort"
	"testing"
)

// TarGz builds a gzip-compressed tarball from name -> content. Parent
// directories get their own entries, as in real runtime archives. Every
// file is mode 0755.
func TarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	dirs := make(map[string]bool)
	for name := range files {
		names = append(names, name)
		for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
			dirs[dir] = true
		}
	}
	for dir := range dirs {
		names = append(names, dir+"/")
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		content, isFile := files[name]
		hdr := &tar.Header{Name: name, Typeflag: tar.TypeDir, Mode: 0755}
		if isFile {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(content))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", name, err)
		}
		if isFile {
			if _, err := tw.Write([]byte(content)); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

// MD5Hex returns the lowercase hex MD5 of data.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
