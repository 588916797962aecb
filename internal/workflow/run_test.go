package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"hlsingest/internal/testsupport"
	"hlsingest/internal/workflow"
)

func TestRunDrainsBacklogAndIsolatesFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.Enqueue(t, h.store,
		"https://v.redd.it/abc123.mp4",
		"https://v.redd.it/missing.mp4",
		"https://a.com/x.mp4",
	)

	summary, err := h.orchestrator().Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 || summary.Skipped != 0 || summary.Deferred != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Total() != 3 || summary.RunID == "" {
		t.Fatalf("unexpected summary metadata: %+v", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].FailedStage != workflow.StateFetching {
		t.Fatalf("unexpected failures: %+v", summary.Failures)
	}
	pending := h.pending()
	if len(pending) != 1 || pending[0].SourceURL != "https://v.redd.it/missing.mp4" {
		t.Fatalf("expected only the failed item pending, got %+v", pending)
	}
}

func TestRunSecondPassDoesNoWork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.Enqueue(t, h.store, "https://v.redd.it/abc123.mp4", "https://a.com/x.mp4")
	orch := h.orchestrator()

	if _, err := orch.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	fetches, transcodes, puts := h.fetches.Load(), h.ffmpeg.Calls(), h.objects.puts()

	summary, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Total() != 0 {
		t.Fatalf("expected empty second run, got %+v", summary)
	}
	if h.fetches.Load() != fetches || h.ffmpeg.Calls() != transcodes || h.objects.puts() != puts {
		t.Fatal("expected zero fetch, transcode, and upload on the second run")
	}
}

func TestRunWithWorkerPool(t *testing.T) {
	h := newHarness(t, testsupport.WithWorkers(4))
	ctx := context.Background()
	const total = 12
	urls := make([]string, 0, total)
	for i := range total {
		urls = append(urls, fmt.Sprintf("https://cdn%d.example.org/clip%d.mp4", i, i))
	}
	testsupport.Enqueue(t, h.store, urls...)

	summary, err := h.orchestrator().Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != total {
		t.Fatalf("expected %d succeeded, got %+v", total, summary)
	}
	if int(h.fetches.Load()) != total || h.ffmpeg.Calls() != total {
		t.Fatalf("expected each item processed once: fetches=%d transcodes=%d", h.fetches.Load(), h.ffmpeg.Calls())
	}
	stats, err := h.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Records != total || stats.Pending != 0 || stats.ActiveClaims != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunCanceledBeforeStart(t *testing.T) {
	h := newHarness(t)
	testsupport.Enqueue(t, h.store, "https://v.redd.it/abc123.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orchestrator().Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if h.fetches.Load() != 0 {
		t.Fatal("expected no fetch")
	}
}

func TestAcquireRunLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hlsingest.lock")
	first, err := workflow.AcquireRunLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if first.Path() != path {
		t.Fatalf("unexpected lock path %q", first.Path())
	}
	if _, err := workflow.AcquireRunLock(path); !errors.Is(err, workflow.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := workflow.AcquireRunLock(path)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	_ = second.Release()
}
