package transcode_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"hlsingest/internal/services"
	"hlsingest/internal/transcode"
)

type stubExecutor struct {
	binary string
	args   []string
	lines  []string
	err    error
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	s.binary = binary
	s.args = append([]string(nil), args...)
	for _, line := range s.lines {
		onOutput(line)
	}
	if s.err != nil {
		return s.err
	}
	playlist := args[len(args)-1]
	dir := filepath.Dir(playlist)
	if err := os.WriteFile(playlist, []byte("#EXTM3U\n#EXTINF:10,\noutput0.ts\n#EXT-X-ENDLIST\n"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "output0.ts"), []byte("segment"), 0o644)
}

func TestTranscodeInvokesFFmpegWithHLSProfile(t *testing.T) {
	stub := &stubExecutor{}
	client, err := transcode.New("/usr/bin/ffmpeg", 10, 0, transcode.WithExecutor(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dir := t.TempDir()
	playlist := filepath.Join(dir, "output.m3u8")

	if err := client.Transcode(context.Background(), "/work/input.mp4", playlist); err != nil {
		t.Fatalf("Transcode: %v", err)
	}

	want := []string{
		"-hide_banner", "-y", "-i", "/work/input.mp4",
		"-codec", "copy", "-start_number", "0",
		"-hls_time", "10", "-hls_list_size", "0",
		"-f", "hls", playlist,
	}
	if stub.binary != "/usr/bin/ffmpeg" {
		t.Fatalf("unexpected binary %q", stub.binary)
	}
	if !slices.Equal(stub.args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", stub.args, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "output0.ts")); err != nil {
		t.Fatalf("expected segment: %v", err)
	}
}

func TestTranscodeFailureCarriesDiagnostics(t *testing.T) {
	stub := &stubExecutor{
		lines: []string{"Input #0, mov,mp4", "moov atom not found", "/work/input.mp4: Invalid data found when processing input"},
		err:   errors.New("wait command: exit status 1"),
	}
	client, err := transcode.New("ffmpeg", 10, 0, transcode.WithExecutor(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = client.Transcode(context.Background(), "/work/input.mp4", filepath.Join(t.TempDir(), "output.m3u8"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected transcode marker, got %v", err)
	}
	var procErr *transcode.Error
	if !errors.As(err, &procErr) {
		t.Fatalf("expected *transcode.Error, got %T", err)
	}
	if len(procErr.Tail) != 3 {
		t.Fatalf("expected three tail lines, got %v", procErr.Tail)
	}
	if !strings.Contains(transcode.Diagnostic(err), "Invalid data found") {
		t.Fatalf("diagnostic missing ffmpeg message: %q", transcode.Diagnostic(err))
	}
}

func TestTranscodeTailIsBounded(t *testing.T) {
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = "line " + strings.Repeat("x", i)
	}
	client, _ := transcode.New("ffmpeg", 6, 0, transcode.WithExecutor(&stubExecutor{lines: lines, err: errors.New("boom")}))

	err := client.Transcode(context.Background(), "in", "out.m3u8")
	var procErr *transcode.Error
	if !errors.As(err, &procErr) {
		t.Fatalf("expected *transcode.Error, got %v", err)
	}
	if len(procErr.Tail) != 20 || procErr.Tail[19] != lines[49] {
		t.Fatalf("unexpected tail (%d lines)", len(procErr.Tail))
	}
}

func TestTranscodeRealProcessExitCode(t *testing.T) {
	binary, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false binary not available")
	}
	client, err := transcode.New(binary, 10, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = client.Transcode(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "output.m3u8"))
	var procErr *transcode.Error
	if !errors.As(err, &procErr) {
		t.Fatalf("expected *transcode.Error, got %v", err)
	}
	if procErr.ExitCode != 1 {
		t.Fatalf("expected exit status 1, got %d", procErr.ExitCode)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := transcode.New(" ", 10, 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
	if _, err := transcode.New("ffmpeg", 0, 0); err == nil {
		t.Fatal("expected error for zero segment length")
	}
}
