package testutil_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	buildDir := testutil.SetupTestEnv(t)

	if got := os.Getenv("XULPACK_BUILD_DIR"); got != buildDir {
		t.Errorf("XULPACK_BUILD_DIR = %q, want %q", got, buildDir)
	}
	if os.Getenv("XULPACK_RUNTIMES") == "" {
		t.Error("XULPACK_RUNTIMES not set")
	}
	if testMode := os.Getenv("XULPACK_TEST_MODE"); testMode != "1" {
		t.Errorf("XULPACK_TEST_MODE = %q, want \"1\"", testMode)
	}

	for _, dir := range []string{buildDir, filepath.Join(buildDir, "cache")} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory %s does not exist", dir)
		}
		if !filepath.IsAbs(dir) {
			t.Errorf("path %s is not absolute", dir)
		}
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	dir1 := testutil.SetupTestEnv(t)

	t.Run("subtest", func(t *testing.T) {
		dir2 := testutil.SetupTestEnv(t)
		if dir1 == dir2 {
			t.Error("expected different temp directories for different test contexts")
		}
	})
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "a/b/c.txt", "hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}
}

func TestLogger(t *testing.T) {
	var l testutil.Logger
	l.Debug("defining", "name", "XP_OSX")
	l.Warn("careful")

	if got := len(l.Entries()); got != 2 {
		t.Fatalf("len(Entries()) = %d, want 2", got)
	}
	if !l.Contains("debug", "name=XP_OSX") {
		t.Errorf("expected debug entry with name=XP_OSX, got %v", l.Entries())
	}
	if l.Contains("debug", "careful") {
		t.Error("level filter should exclude warn entries")
	}
	if !l.Contains("", "careful") {
		t.Error("empty level should match any entry")
	}
}

func TestTarGz(t *testing.T) {
	data := testutil.TarGz(t, map[string]string{"sdk/bin/run": "x", "sdk/readme": "y"})

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar.Next() error = %v", err)
		}
		names = append(names, hdr.Name)
	}

	want := []string{"sdk/", "sdk/bin/", "sdk/bin/run", "sdk/readme"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", names, want)
	}
	if got := testutil.MD5Hex([]byte("")); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("MD5Hex(\"\") = %s", got)
	}
}
