package deps

import (
	"context"
	"strings"
)

// FFmpeg returns the requirement for the configured ffmpeg binary.
func FFmpeg(binary string) Requirement {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return Requirement{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Repackages downloads into HLS playlists and segments",
		VersionArg:  "-version",
	}
}

// CheckFFmpeg reports availability of the configured ffmpeg binary.
func CheckFFmpeg(ctx context.Context, binary string) Status {
	return check(ctx, FFmpeg(binary))
}
