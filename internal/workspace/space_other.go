//go:build !(linux || darwin || freebsd)

package workspace

import "errors"

// CheckFreeSpace is a no-op where statfs is unavailable.
func CheckFreeSpace(string, int64) error { return nil }

// FreeBytes is unsupported on this platform.
func FreeBytes(string) (uint64, error) {
	return 0, errors.New("free space query unsupported on this platform")
}
