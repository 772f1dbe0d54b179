package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// WriteFileAtomic writes chunks to path so that readers see either the old
// file, no file, or the complete new content. Data goes to a temporary file
// in the destination directory which is synced and then renamed over path.
func WriteFileAtomic(path string, chunks ...[]byte) error {
	return writeAtomic(path, func(f *os.File) error {
		for _, c := range chunks {
			if _, err := f.Write(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// CommitFile moves src to dst. When a plain rename is impossible because the
// two paths are on different filesystems, the content is copied into place
// atomically and src is removed.
func CommitFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("rename %s: %w", dst, err)
	}

	in, err := os.Open(src) // #nosec G304 - src is produced by the caller's workspace
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := writeAtomic(dst, func(f *os.File) error {
		_, err := io.Copy(f, in)
		return err
	}); err != nil {
		return err
	}
	_ = os.Remove(src)
	return nil
}

func writeAtomic(path string, fill func(f *os.File) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmp := f.Name()

	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := fill(f); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Chmod(0644); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
