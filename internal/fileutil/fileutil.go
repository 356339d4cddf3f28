// Package fileutil copies files and directory trees across filesystems.
package fileutil

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

// CopyFileVerified copies src to dst with mode, then re-reads dst and
// compares its size and SHA-256 against the bytes read from src. dst is
// removed on mismatch.
func CopyFileVerified(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	dstSum, dstSize, err := hashFile(dst)
	if err != nil {
		return fmt.Errorf("verify copy: %w", err)
	}
	if dstSize != written {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, destination %d bytes", written, dstSize)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstSum) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: %s corrupted during copy", dst)
	}
	return nil
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, err
	}
	return h.Sum(nil), n, nil
}

// TreeOptions controls CopyTree.
type TreeOptions struct {
	// Verify re-reads every copied file and compares SHA-256 sums.
	Verify bool
}

// CopyTree recursively copies the directory src to dst, which must not
// exist yet. Regular files keep their permission bits and symlinks are
// recreated as links. Other file types are skipped. ctx is checked between
// files. It returns the number of bytes copied.
func CopyTree(ctx context.Context, src, dst string, opts TreeOptions) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("copy tree: %s is not a directory", src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return 0, fmt.Errorf("copy tree: destination %s already exists", dst)
	} else if !os.IsNotExist(err) {
		return 0, err
	}

	var copied int64
	err = filepath.WalkDir(src, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := entry.Info()
		if err != nil {
			return err
		}
		switch mode := info.Mode(); {
		case mode.IsDir():
			return os.MkdirAll(target, mode.Perm()|0o700)
		case mode&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case mode.IsRegular():
			if opts.Verify {
				err = CopyFileVerified(path, target, mode.Perm())
			} else {
				err = CopyFileMode(path, target, mode.Perm())
			}
			if err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
			copied += info.Size()
			return nil
		default:
			return nil
		}
	})
	return copied, err
}

// TreeSize returns the total size of regular files under root.
func TreeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
