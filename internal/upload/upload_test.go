package upload_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"hlsingest/internal/logging"
	"hlsingest/internal/objectstore"
	"hlsingest/internal/services"
	"hlsingest/internal/upload"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

type recordingStore struct {
	mu      sync.Mutex
	puts    []objectstore.PutInput
	failKey string
}

func (r *recordingStore) Put(ctx context.Context, in objectstore.PutInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if in.Key == r.failKey {
		return errors.New("connection reset")
	}
	in.Body = nil
	r.puts = append(r.puts, in)
	return nil
}

func (r *recordingStore) Health(context.Context, string) error { return nil }

func TestUploadPublishesTree(t *testing.T) {
	root := writeTree(t, map[string]string{
		"output.m3u8": "#EXTM3U\n",
		"output0.ts":  "seg0",
		"output1.ts":  "seg11",
	})
	objects := t.TempDir()
	fs := objectstore.NewFilesystem(objects)
	uploader := upload.New(fs, logging.NewNop())

	manifest, err := uploader.Upload(context.Background(), root, "media", upload.KeyPrefix("videos", "v_redd_it_abc123"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if manifest.PlaylistKey != "videos/v_redd_it_abc123/output.m3u8" {
		t.Fatalf("unexpected playlist key %q", manifest.PlaylistKey)
	}
	if len(manifest.Keys) != 3 || manifest.TotalBytes != int64(len("#EXTM3U\n")+4+5) {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	for _, obj := range manifest.Objects {
		path, err := fs.Path("media", obj.Key)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("object %s not written: %v", obj.Key, err)
		}
	}
	url := upload.PublicURL("https://cdn.example.com/", manifest.PlaylistKey)
	if !strings.HasSuffix(url, "v_redd_it_abc123/output.m3u8") || !strings.HasPrefix(url, "https://cdn.example.com/videos/") {
		t.Fatalf("unexpected public url %q", url)
	}
}

func TestUploadContentTypesAndVisibility(t *testing.T) {
	root := writeTree(t, map[string]string{
		"output.m3u8":     "#EXTM3U\n",
		"output0.ts":      "seg",
		"extra/notes.bin": "?",
	})
	store := &recordingStore{}
	if _, err := upload.New(store, nil).Upload(context.Background(), root, "media", "id"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	want := map[string]string{
		"id/output.m3u8":     "application/vnd.apple.mpegurl",
		"id/output0.ts":      "video/mp2t",
		"id/extra/notes.bin": "application/octet-stream",
	}
	if len(store.puts) != len(want) {
		t.Fatalf("expected %d puts, got %d", len(want), len(store.puts))
	}
	for _, put := range store.puts {
		if want[put.Key] != put.ContentType {
			t.Fatalf("key %s has content type %q, want %q", put.Key, put.ContentType, want[put.Key])
		}
		if !put.PublicRead {
			t.Fatalf("key %s not published public-read", put.Key)
		}
		if put.Bucket != "media" {
			t.Fatalf("unexpected bucket %q", put.Bucket)
		}
	}
}

func TestUploadRequiresExactlyOnePlaylist(t *testing.T) {
	cases := map[string]map[string]string{
		"none": {"output0.ts": "seg"},
		"two":  {"a.m3u8": "#EXTM3U\n", "b.m3u8": "#EXTM3U\n"},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			store := &recordingStore{}
			_, err := upload.New(store, nil).Upload(context.Background(), writeTree(t, files), "media", "id")
			if !errors.Is(err, services.ErrUpload) {
				t.Fatalf("expected upload error, got %v", err)
			}
			if len(store.puts) != 0 {
				t.Fatalf("expected no objects published, got %d", len(store.puts))
			}
		})
	}
}

func TestUploadFailsOnStoreError(t *testing.T) {
	root := writeTree(t, map[string]string{"output.m3u8": "#EXTM3U\n", "output0.ts": "seg"})
	store := &recordingStore{failKey: "id/output0.ts"}

	manifest, err := upload.New(store, nil).Upload(context.Background(), root, "media", "id")
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if manifest.PlaylistKey != "" || len(manifest.Keys) != 0 {
		t.Fatalf("manifest must be empty on failure, got %+v", manifest)
	}
}

func TestUploadMissingRoot(t *testing.T) {
	_, err := upload.New(&recordingStore{}, nil).Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), "media", "id")
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
}
