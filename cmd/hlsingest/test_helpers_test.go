package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hlsingest/internal/config"
	"hlsingest/internal/testsupport"
)

// stubFFmpeg writes one segment and a playlist next to the last argument,
// which is where the transcoder puts the playlist path.
const stubFFmpeg = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version stub"
  exit 0
fi
for last; do :; done
dir=$(dirname "$last")
printf 'segment' > "$dir/output0.ts"
printf '#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10.0,\noutput0.ts\n#EXT-X-ENDLIST\n' > "$last"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	binDir := filepath.Join(base, "bin")
	testsupport.WriteFile(t, filepath.Join(binDir, "ffmpeg"), stubFFmpeg)
	if err := os.Chmod(filepath.Join(binDir, "ffmpeg"), 0o755); err != nil {
		t.Fatalf("chmod stub: %v", err)
	}
	cfg.Transcoder.FFmpegBinary = filepath.Join(binDir, "ffmpeg")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--env-file", ""}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
