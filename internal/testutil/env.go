// Package testutil provides utilities for testing xulpack in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv creates an isolated build tree for each test and points the
// XULPACK_* environment at it, so tests never touch a real build directory
// or the user's descriptor file.
//
// The cleanup function is automatically handled by t.TempDir(),
// so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	// Create temp directory (auto-cleaned by testing framework)
	tmpDir := t.TempDir()
	buildDir := filepath.Join(tmpDir, "build")

	t.Setenv("XULPACK_BUILD_DIR", buildDir)
	t.Setenv("XULPACK_RUNTIMES", filepath.Join(tmpDir, "runtimes.json"))

	// Mark as test mode
	t.Setenv("XULPACK_TEST_MODE", "1")

	for _, dir := range []string{buildDir, filepath.Join(buildDir, "cache")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return buildDir
}

// WriteFile writes content below dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
