package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hlsingest/internal/fileutil"
	"hlsingest/internal/identity"
	"hlsingest/internal/services"
)

// File layout inside a workspace.
const (
	InputName    = "input.mp4"
	OutputDir    = "output"
	PlaylistName = "output.m3u8"
	MetadataName = "meta.json"
)

// Options control workspace allocation.
type Options struct {
	// TimestampSuffix appends _<unixmillis> so reruns never reuse a directory.
	TimestampSuffix bool
	// MinFreeMiB rejects allocation when the root filesystem has less space.
	MinFreeMiB int64
	Now        func() time.Time
}

// Workspace is the local directory owned by one in-flight item.
type Workspace struct {
	Identity identity.Identity
	Dir      string
}

// Create allocates the workspace directory for id under root. A leftover
// directory from an earlier failed run is reset unless timestamp suffixes are
// enabled. Failures wrap services.ErrStorage and carry the stage found on ctx.
func Create(ctx context.Context, root string, id identity.Identity, opts Options) (*Workspace, error) {
	stage, _ := services.StageFromContext(ctx)
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrStorage, stage, "create workspace", "workspace root is empty", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, stage, "create workspace root", root, err)
	}
	if err := CheckFreeSpace(root, opts.MinFreeMiB); err != nil {
		return nil, services.Wrap(services.ErrStorage, stage, "preflight free space", root, err)
	}

	name := string(id)
	if opts.TimestampSuffix {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		name += "_" + strconv.FormatInt(now().UnixMilli(), 10)
	}
	dir := filepath.Join(root, name)

	if !opts.TimestampSuffix {
		if err := os.RemoveAll(dir); err != nil {
			return nil, services.Wrap(services.ErrStorage, stage, "reset workspace", dir, err)
		}
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, stage, "create workspace", dir, err)
	}
	return &Workspace{Identity: id, Dir: dir}, nil
}

// InputPath is where the fetched source is stored.
func (w *Workspace) InputPath() string { return filepath.Join(w.Dir, InputName) }

// OutputDir is the root of the HLS tree that gets uploaded.
func (w *Workspace) OutputDir() string { return filepath.Join(w.Dir, OutputDir) }

// PlaylistPath is the HLS playlist the transcoder writes.
func (w *Workspace) PlaylistPath() string { return filepath.Join(w.OutputDir(), PlaylistName) }

// MetadataPath is the local copy of the catalog record.
func (w *Workspace) MetadataPath() string { return filepath.Join(w.Dir, MetadataName) }

// PrepareOutput creates an empty output directory, discarding any previous
// contents.
func (w *Workspace) PrepareOutput() error {
	dir := w.OutputDir()
	if err := os.RemoveAll(dir); err != nil {
		return services.Wrap(services.ErrStorage, "transcoding", "reset output directory", dir, err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "transcoding", "create output directory", dir, err)
	}
	return nil
}

// WriteMetadata serializes v to meta.json atomically.
func (w *Workspace) WriteMetadata(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrStorage, "recording", "encode metadata", "", err)
	}
	data = append(data, '\n')
	if _, err := fileutil.WriteAtomic(w.MetadataPath(), bytes.NewReader(data), 0o644); err != nil {
		return services.Wrap(services.ErrStorage, "recording", "write metadata", w.MetadataPath(), err)
	}
	return nil
}
