package workspace_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hlsingest/internal/logging"
	"hlsingest/internal/services"
	"hlsingest/internal/workspace"
)

func TestCreateLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "workspaces")
	ws, err := workspace.Create(context.Background(), root, "v_redd_it_abc123", workspace.Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.Dir != filepath.Join(root, "v_redd_it_abc123") {
		t.Fatalf("unexpected dir %q", ws.Dir)
	}
	if ws.InputPath() != filepath.Join(ws.Dir, "input.mp4") {
		t.Fatalf("unexpected input path %q", ws.InputPath())
	}
	if ws.PlaylistPath() != filepath.Join(ws.Dir, "output", "output.m3u8") {
		t.Fatalf("unexpected playlist path %q", ws.PlaylistPath())
	}
	if _, err := os.Stat(ws.OutputDir()); !os.IsNotExist(err) {
		t.Fatalf("output dir must not exist before PrepareOutput, stat err=%v", err)
	}
	if err := ws.PrepareOutput(); err != nil {
		t.Fatalf("PrepareOutput: %v", err)
	}
	if info, err := os.Stat(ws.OutputDir()); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir, stat err=%v", err)
	}
}

func TestCreateResetsLeftoverDirectory(t *testing.T) {
	root := t.TempDir()
	leftover := filepath.Join(root, "a_com_x", "input.mp4")
	if err := os.MkdirAll(filepath.Dir(leftover), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(leftover, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := workspace.Create(context.Background(), root, "a_com_x", workspace.Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Stat(ws.InputPath()); !os.IsNotExist(err) {
		t.Fatalf("expected leftover input to be reset, stat err=%v", err)
	}
}

func TestCreateWithTimestampSuffix(t *testing.T) {
	root := t.TempDir()
	fixed := time.UnixMilli(1714557600123)
	ws, err := workspace.Create(context.Background(), root, "a_com_x", workspace.Options{
		TimestampSuffix: true,
		Now:             func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Base(ws.Dir) != "a_com_x_1714557600123" {
		t.Fatalf("unexpected suffixed dir %q", ws.Dir)
	}
}

func TestCreateRejectsInsufficientSpace(t *testing.T) {
	if _, err := workspace.FreeBytes(t.TempDir()); err != nil {
		t.Skipf("free space unsupported: %v", err)
	}
	_, err := workspace.Create(context.Background(), t.TempDir(), "x", workspace.Options{MinFreeMiB: 1 << 40})
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestCreateReportsStageFromContext(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := services.WithStage(context.Background(), "fetching")
	_, err := workspace.Create(ctx, blocker, "a_com_x", workspace.Options{})
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "fetching") || strings.Contains(err.Error(), "pending") {
		t.Fatalf("expected fetching stage in %q", err.Error())
	}
}

func TestCleanupRemovesInputKeepsRequested(t *testing.T) {
	root := t.TempDir()
	ws, err := workspace.Create(context.Background(), root, "v_redd_it_abc123", workspace.Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(ws.InputPath(), []byte("raw"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.PrepareOutput(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.PlaylistPath(), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteMetadata(map[string]string{"identity": "v_redd_it_abc123"}); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}

	if err := ws.Cleanup(workspace.CleanupOptions{KeepMetadata: true}, logging.NewNop()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(ws.InputPath()); !os.IsNotExist(err) {
		t.Fatalf("expected input removed, stat err=%v", err)
	}
	if _, err := os.Stat(ws.OutputDir()); !os.IsNotExist(err) {
		t.Fatalf("expected output removed, stat err=%v", err)
	}
	if _, err := os.Stat(ws.MetadataPath()); err != nil {
		t.Fatalf("expected metadata kept: %v", err)
	}

	if err := ws.Cleanup(workspace.CleanupOptions{}, logging.NewNop()); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected empty workspace dir removed, stat err=%v", err)
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	root := t.TempDir()
	oldDir := filepath.Join(root, "old_item")
	recentDir := filepath.Join(root, "recent_item")
	for _, dir := range []string{oldDir, recentDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	result := workspace.CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("unexpected removal set %v", result.Removed)
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Fatalf("recent dir should remain: %v", err)
	}

	dirs, err := workspace.ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "recent_item" {
		t.Fatalf("unexpected listing %+v", dirs)
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := workspace.CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Fatalf("expected empty result for path %q", dir)
		}
	}
}
