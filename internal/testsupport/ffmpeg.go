package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FFmpegStub stands in for the ffmpeg process. On success it writes a
// playlist plus Segments segment files next to the requested playlist path.
type FFmpegStub struct {
	Segments int
	Lines    []string
	Err      error

	mu    sync.Mutex
	calls int
	args  [][]string
}

// Run satisfies transcode.Executor.
func (s *FFmpegStub) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	s.mu.Lock()
	s.calls++
	s.args = append(s.args, append([]string(nil), args...))
	s.mu.Unlock()

	for _, line := range s.Lines {
		onOutput(line)
	}
	if s.Err != nil {
		return s.Err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	segments := s.Segments
	if segments <= 0 {
		segments = 2
	}
	playlist := args[len(args)-1]
	dir := filepath.Dir(playlist)
	body := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-MEDIA-SEQUENCE:0\n"
	for i := range segments {
		name := fmt.Sprintf("output%d.ts", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("segment-"+name), 0o644); err != nil {
			return err
		}
		body += "#EXTINF:10.0,\n" + name + "\n"
	}
	body += "#EXT-X-ENDLIST\n"
	return os.WriteFile(playlist, []byte(body), 0o644)
}

// Calls returns how many times Run was invoked.
func (s *FFmpegStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastArgs returns the arguments of the most recent call.
func (s *FFmpegStub) LastArgs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.args) == 0 {
		return nil
	}
	return s.args[len(s.args)-1]
}
