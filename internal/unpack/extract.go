package unpack

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// extractTar writes every entry of a tar stream below root, dropping the
// first strip path components of each name.
func extractTar(r io.Reader, root *os.Root, strip int) error {
	tarReader := tar.NewReader(r)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break // End of archive
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		name, ok := stripComponents(header.Name, strip)
		if !ok {
			continue
		}
		target, err := localName(root, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := root.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeFile(root, target, tarReader, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := writeSymlink(root, target, header.Linkname); err != nil {
				return err
			}

		case tar.TypeLink:
			linkName, ok := stripComponents(header.Linkname, strip)
			if !ok {
				return fmt.Errorf("%w: hard link %s -> %s", ErrIllegalPath, header.Name, header.Linkname)
			}
			source, err := localName(root, linkName)
			if err != nil {
				return err
			}
			if err := mkdirParent(root, target); err != nil {
				return err
			}
			if err := root.Link(source, target); err != nil {
				return fmt.Errorf("create hard link %s: %w", target, err)
			}

		default:
			// Skip other types (char devices, block devices, fifos, etc.)
			continue
		}
	}

	return nil
}

// extractZip writes every entry of a zip archive below root without
// stripping any path component.
func extractZip(ctx context.Context, zr *zip.Reader, root *os.Root) error {
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := path.Clean(strings.ReplaceAll(f.Name, "\\", "/"))
		if name == "." {
			continue
		}
		target, err := localName(root, name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir() || strings.HasSuffix(f.Name, "/"):
			if err := root.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(f)
			if err != nil {
				return err
			}
			if err := writeSymlink(root, target, linkname); err != nil {
				return err
			}

		default:
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open zip entry %s: %w", f.Name, err)
			}
			err = writeFile(root, target, rc, mode.Perm())
			rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	return string(data), nil
}

// stripComponents removes the first n slash-separated components of an
// archive entry name. ok is false when nothing remains.
func stripComponents(name string, n int) (string, bool) {
	clean := path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./"))
	if clean == "." || clean == "/" {
		return "", false
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	if len(parts) <= n {
		return "", false
	}
	return strings.Join(parts[n:], "/"), true
}

// localName converts an archive entry name into a path relative to root. It
// rejects absolute names, names that escape root, and names whose parent
// directories include a symlink already extracted from the archive.
func localName(root *os.Root, name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrIllegalPath, name)
	}
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %s", ErrIllegalPath, name)
	}

	parent := ""
	for _, part := range strings.Split(filepath.Dir(local), string(filepath.Separator)) {
		if part == "." {
			break
		}
		parent = filepath.Join(parent, part)
		info, err := root.Lstat(parent)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", parent, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("%w: %s passes through symlink %s", ErrIllegalPath, name, parent)
		}
	}
	return local, nil
}

func mkdirParent(root *os.Root, target string) error {
	dir := filepath.Dir(target)
	if dir == "." {
		return nil
	}
	if err := root.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	return nil
}

func writeFile(root *os.Root, target string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0644
	}
	if err := mkdirParent(root, target); err != nil {
		return err
	}

	outFile, err := root.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0200)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

// writeSymlink creates a symlink whose resolved target stays inside root.
func writeSymlink(root *os.Root, target, linkname string) error {
	if linkname == "" || filepath.IsAbs(linkname) || path.IsAbs(linkname) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrIllegalPath, target, linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	if !filepath.IsLocal(resolved) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrIllegalPath, target, linkname)
	}

	if err := mkdirParent(root, target); err != nil {
		return err
	}
	if err := root.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", target, err)
	}
	if err := root.Symlink(linkname, target); err != nil {
		return fmt.Errorf("create symlink %s: %w", target, err)
	}
	return nil
}
