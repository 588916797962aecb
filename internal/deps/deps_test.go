package deps_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hlsingest/internal/deps"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckReportsPresentAndMissing(t *testing.T) {
	dir := t.TempDir()
	present := writeScript(t, dir, "present", "exit 0")
	reqs := []deps.Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := deps.Check(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("unexpected present status: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" || results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected missing status: %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank status: %#v", results[2])
	}
}

func TestCheckFFmpegReadsVersion(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ffmpeg", "echo 'ffmpeg version 7.1 Copyright (c) 2000-2024'\necho 'built with gcc'")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	status := deps.CheckFFmpeg(context.Background(), "")
	if !status.Available {
		t.Fatalf("expected ffmpeg available, got %q", status.Detail)
	}
	if status.Version != "ffmpeg version 7.1 Copyright (c) 2000-2024" {
		t.Fatalf("unexpected version %q", status.Version)
	}
}

func TestCheckFFmpegVersionFailure(t *testing.T) {
	dir := t.TempDir()
	broken := writeScript(t, dir, "ffmpeg-broken", "exit 3")

	status := deps.CheckFFmpeg(context.Background(), broken)
	if status.Available {
		t.Fatal("expected failing version probe to mark ffmpeg unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected detail for failing probe")
	}
}
