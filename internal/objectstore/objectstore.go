// Package objectstore defines the key/value blob store the uploader publishes
// HLS artifacts to, plus a local filesystem implementation.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"hlsingest/internal/fileutil"
)

// PutInput describes one object write.
type PutInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	// PublicRead requests world-readable visibility where the backend supports it.
	PublicRead bool
}

// Store accepts object writes. Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, in PutInput) error
	Health(ctx context.Context, bucket string) error
}

// Filesystem stores objects under <root>/<bucket>/<key>. It backs local runs
// and tests; PublicRead has no effect.
type Filesystem struct {
	root string
}

// NewFilesystem returns a Filesystem rooted at root.
func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: root}
}

// Path returns the local file that holds bucket/key.
func (f *Filesystem) Path(bucket, key string) (string, error) {
	cleanKey := path.Clean("/" + key)
	if key == "" || cleanKey == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if bucket == "" || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	return filepath.Join(f.root, bucket, filepath.FromSlash(strings.TrimPrefix(cleanKey, "/"))), nil
}

func (f *Filesystem) Put(ctx context.Context, in PutInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := f.Path(in.Bucket, in.Key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	written, err := fileutil.WriteAtomic(dst, in.Body, 0o644)
	if err != nil {
		return fmt.Errorf("write object %s: %w", in.Key, err)
	}
	if in.Size > 0 && written != in.Size {
		_ = os.Remove(dst)
		return fmt.Errorf("write object %s: wrote %d bytes, expected %d", in.Key, written, in.Size)
	}
	return nil
}

// Health ensures the bucket directory exists and is writable.
func (f *Filesystem) Health(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(f.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bucket directory: %w", err)
	}
	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("bucket not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
