// Package upload publishes a workspace's HLS output tree to the object store
// and reports what was published.
package upload

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"hlsingest/internal/logging"
	"hlsingest/internal/objectstore"
	"hlsingest/internal/services"
)

// Content types by file extension. Anything else is uploaded as
// application/octet-stream.
var contentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
}

// ContentType returns the content type used for name.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Object is one published file.
type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Manifest lists everything one Upload call published. It is only returned
// when every object was written.
type Manifest struct {
	Keys        []string `json:"keys"`
	PlaylistKey string   `json:"playlistKey"`
	Objects     []Object `json:"objects"`
	TotalBytes  int64    `json:"totalBytes"`
}

// Uploader walks a local tree and writes each file to a Store.
type Uploader struct {
	store  objectstore.Store
	logger *slog.Logger
}

// New returns an Uploader writing to store.
func New(store objectstore.Store, logger *slog.Logger) *Uploader {
	return &Uploader{store: store, logger: logging.NewComponentLogger(logger, "upload")}
}

// KeyPrefix joins the optional configured prefix with the item identity.
func KeyPrefix(configured, identity string) string {
	configured = strings.Trim(configured, "/")
	if configured == "" {
		return identity
	}
	return path.Join(configured, identity)
}

// PublicURL builds the public link for key under base.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// Upload publishes every regular file under localRoot to bucket with
// public-read visibility. Each key is keyPrefix joined with the file's
// slash-separated path relative to localRoot. The tree must contain exactly
// one .m3u8 playlist. Failures wrap services.ErrUpload; already-written
// objects are left in place since a retry overwrites the same keys.
func (u *Uploader) Upload(ctx context.Context, localRoot, bucket, keyPrefix string) (Manifest, error) {
	files, err := collect(localRoot)
	if err != nil {
		return Manifest{}, services.Wrap(services.ErrUpload, "uploading", "walk output", localRoot, err)
	}

	var playlists []string
	for _, rel := range files {
		if strings.EqualFold(path.Ext(rel), ".m3u8") {
			playlists = append(playlists, rel)
		}
	}
	if len(playlists) != 1 {
		return Manifest{}, services.Wrap(services.ErrUpload, "uploading", "locate playlist",
			fmt.Sprintf("expected exactly one playlist under %s, found %d", localRoot, len(playlists)), nil)
	}

	manifest := Manifest{
		Keys:    make([]string, 0, len(files)),
		Objects: make([]Object, 0, len(files)),
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return Manifest{}, services.Wrap(services.ErrUpload, "uploading", "upload", "canceled", err)
		}
		key := path.Join(keyPrefix, rel)
		obj, err := u.putFile(ctx, filepath.Join(localRoot, filepath.FromSlash(rel)), bucket, key)
		if err != nil {
			return Manifest{}, services.Wrap(services.ErrUpload, "uploading", "put object", key, err)
		}
		manifest.Keys = append(manifest.Keys, key)
		manifest.Objects = append(manifest.Objects, obj)
		manifest.TotalBytes += obj.Size
		if rel == playlists[0] {
			manifest.PlaylistKey = key
		}
	}

	u.logger.Info("output published",
		logging.String(logging.FieldEventType, "upload_complete"),
		logging.String("bucket", bucket),
		logging.String("playlist_key", manifest.PlaylistKey),
		logging.Int("objects", len(manifest.Objects)),
		logging.String("size", humanize.IBytes(uint64(manifest.TotalBytes))),
	)
	return manifest, nil
}

func (u *Uploader) putFile(ctx context.Context, localPath, bucket, key string) (Object, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return Object{}, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return Object{}, err
	}
	obj := Object{Key: key, Size: info.Size(), ContentType: ContentType(localPath)}
	err = u.store.Put(ctx, objectstore.PutInput{
		Bucket:      bucket,
		Key:         key,
		Body:        file,
		Size:        obj.Size,
		ContentType: obj.ContentType,
		PublicRead:  true,
	})
	if err != nil {
		return Object{}, err
	}
	u.logger.Debug("object uploaded",
		logging.String("key", key),
		logging.String("content_type", obj.ContentType),
		logging.Int64("bytes", obj.Size),
	)
	return obj, nil
}

// collect returns the slash-separated relative paths of regular files under
// root in lexical order.
func collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}
