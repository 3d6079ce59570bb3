package build

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// matchesSuffix reports whether the slash path rel ends with any pattern.
func matchesSuffix(rel string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.HasSuffix(rel, filepath.ToSlash(p)) {
			return true
		}
	}
	return false
}

// walkFunc handles one regular file; rel is slash-separated.
type walkFunc func(src, dst, rel string) error

// copyTree mirrors src into dst. Regular files go through fn when it is
// non-nil and are copied otherwise; symlinks are recreated as-is.
func copyTree(src, dst string, skip func(rel string) bool, fn walkFunc) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		slashRel := filepath.ToSlash(rel)

		if rel != "." && skip != nil && skip(slashRel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			if fn != nil {
				return fn(path, target, slashRel)
			}
			return copyFile(path, target)
		default:
			return fmt.Errorf("unsupported file type %s: %s", d.Type(), path)
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
