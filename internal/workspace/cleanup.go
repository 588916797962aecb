package workspace

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hlsingest/internal/fileutil"
	"hlsingest/internal/logging"
)

// CleanupOptions selects which artifacts survive a successful item.
type CleanupOptions struct {
	KeepMetadata bool
	KeepOutput   bool
}

// Cleanup removes the transient parts of the workspace. The input is always
// removed; metadata and output are kept on request. The directory itself is
// removed once empty. Failures are logged and returned joined, callers must
// not treat them as item failures.
func (w *Workspace) Cleanup(opts CleanupOptions, logger *slog.Logger) error {
	targets := []string{w.InputPath(), w.InputPath() + fileutil.PartialSuffix}
	if !opts.KeepOutput {
		targets = append(targets, w.OutputDir())
	}
	if !opts.KeepMetadata {
		targets = append(targets, w.MetadataPath())
	}

	var errs []error
	for _, target := range targets {
		if err := os.RemoveAll(target); err != nil {
			errs = append(errs, err)
			logging.WarnWithContext(logger, "workspace cleanup failed; artifact remains", "workspace_cleanup_failed",
				logging.String("path", target),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check workspace_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}

	if entries, err := os.ReadDir(w.Dir); err == nil && len(entries) == 0 {
		if err := os.Remove(w.Dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes workspace directories older than maxAge. Workspaces of
// items still in flight are refreshed by their workers and stay younger than
// any sensible maxAge.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale workspace", "workspace_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check workspace_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale workspace",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "workspace_cleanup"),
			)
		}
	}
	return result
}

// DirInfo contains metadata about a workspace directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListDirectories returns all workspace directories under root with their metadata.
func ListDirectories(root string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    fileutil.DirSize(dirPath),
		})
	}
	return dirs, nil
}
