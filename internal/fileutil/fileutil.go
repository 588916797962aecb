package fileutil

import (
	"io"
	"os"
	"path/filepath"
)

// PartialSuffix marks files that are still being written.
const PartialSuffix = ".part"

// WriteAtomic streams r into dst via dst+".part", fsyncs, and renames into
// place. On any failure the partial file is removed and dst is untouched.
// It returns the number of bytes written.
func WriteAtomic(dst string, r io.Reader, mode os.FileMode) (int64, error) {
	partial := dst + PartialSuffix
	out, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, r)
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(partial, dst)
	}
	if err != nil {
		_ = os.Remove(partial)
		return written, err
	}
	return written, nil
}

// DirSize reports the total size of regular files below path. Unreadable
// entries are skipped.
func DirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
