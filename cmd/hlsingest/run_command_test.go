package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newSourceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("fake mp4 payload"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeBacklog(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "backlog.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write backlog: %v", err)
	}
	return path
}

func TestEnqueueRunAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	srv := newSourceServer(t)

	backlog := writeBacklog(t, env.baseDir,
		"# clips",
		srv.URL+"/clips/alpha.mp4",
		srv.URL+"/clips/beta.mp4",
		srv.URL+"/clips/missing.mp4",
		srv.URL+"/clips/alpha.mp4",
	)

	out, _, err := runCLI(t, []string{"enqueue", backlog}, env.configPath)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, "Enqueued 3 of 3 items")

	out, _, err = runCLI(t, []string{"enqueue", backlog}, env.configPath)
	if err != nil {
		t.Fatalf("enqueue again: %v", err)
	}
	requireContains(t, out, "Enqueued 0 of 3 items (3 already known)")

	out, _, err = runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "succeeded: 2")
	requireContains(t, out, "failed: 1")
	requireContains(t, out, "stage=fetching")

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Records: 2")
	requireContains(t, out, "Pending: 1")
	requireContains(t, out, "Failing: 1")
	requireContains(t, out, "https://cdn.example.com/")

	out, _, err = runCLI(t, []string{"run", "--workers", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "succeeded: 0")
	requireContains(t, out, "failed: 1")
}

func TestRunRejectsNonPositiveWorkers(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run", "--workers", "0"}, env.configPath); err == nil {
		t.Fatal("expected error for --workers 0")
	}
}

func TestEnqueueRejectsMalformedLines(t *testing.T) {
	env := setupCLITestEnv(t)
	backlog := writeBacklog(t, env.baseDir, "https://a.com/x.mp4", "not a url")
	_, _, err := runCLI(t, []string{"enqueue", backlog}, env.configPath)
	if err == nil {
		t.Fatal("expected malformed line to fail enqueue")
	}
	requireContains(t, err.Error(), "line 2")
}

func TestCleanupListsAndRemovesWorkspaces(t *testing.T) {
	env := setupCLITestEnv(t)
	stale := filepath.Join(env.cfg.Paths.WorkspaceDir, "old_item")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, _, err := runCLI(t, []string{"cleanup", "--list"}, env.configPath)
	if err != nil {
		t.Fatalf("cleanup --list: %v", err)
	}
	requireContains(t, out, "old_item")

	out, _, err = runCLI(t, []string{"cleanup", "--older-than", "1ns"}, env.configPath)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	requireContains(t, out, "Removed 1 stale workspaces")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err=%v", stale, err)
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "ffmpeg: ok")
	requireContains(t, out, "catalog: ok")
	requireContains(t, out, "object store: ok")
}
