//go:build linux || darwin || freebsd

package workspace

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// CheckFreeSpace fails when the filesystem holding dir has fewer than minMiB
// mebibytes available to unprivileged users. minMiB <= 0 disables the check.
func CheckFreeSpace(dir string, minMiB int64) error {
	if minMiB <= 0 {
		return nil
	}
	available, err := FreeBytes(dir)
	if err != nil {
		return err
	}
	required := uint64(minMiB) << 20
	if available < required {
		return fmt.Errorf("only %s free under %s, need %s", humanize.IBytes(available), dir, humanize.IBytes(required))
	}
	return nil
}

// FreeBytes reports the bytes available to unprivileged users on dir's filesystem.
func FreeBytes(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
