// Package fsutil provides the file primitives the format engines share:
// memory-mapped reads, atomic-replace writes, and mtime stamping.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/renameio"
	"golang.org/x/sys/unix"
)

// MmapFile maps a file read-only and returns the mapping plus a closer that
// releases it. An empty file yields an empty slice and a no-op closer.
//
// The mapping lives until the closer runs; callers must not touch the
// returned slice afterwards.
func MmapFile(path string) (data []byte, close func() error, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	size := info.Size()
	if size == 0 {
		return nil, func() error { return nil }, nil
	}

	data, err = unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return data, func() error { return unix.Munmap(data) }, nil
}

// AtomicWrite writes data to path through a temporary file that is flushed,
// fsynced, and renamed into place. A crash at any point leaves either the
// complete old file or the complete new file under the final name.
func AtomicWrite(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0o644)
}

// SetMtime sets a file's modification time to the given epoch second with
// sub-second precision zeroed.
func SetMtime(path string, seconds int64) error {
	t := time.Unix(seconds, 0)

	return os.Chtimes(path, t, t)
}

// CopyFile copies src to dst, truncating any existing destination.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
