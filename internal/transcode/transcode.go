// Package transcode repackages a downloaded source into an HLS playlist and
// segments by invoking ffmpeg with stream copy.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"hlsingest/internal/services"
)

const tailLines = 20

// Executor abstracts command execution for testability. onOutput receives
// every line the process writes to stdout or stderr.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithOutput forwards every process output line to fn.
func WithOutput(fn func(string)) Option {
	return func(c *Client) {
		c.onOutput = fn
	}
}

// Client wraps ffmpeg HLS packaging.
type Client struct {
	binary         string
	segmentSeconds int
	timeout        time.Duration
	exec           Executor
	onOutput       func(string)
}

// New constructs a transcode client. timeout <= 0 leaves the run bounded only
// by the caller's context.
func New(binary string, segmentSeconds int, timeout time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if segmentSeconds <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %d", segmentSeconds)
	}
	client := &Client{
		binary:         binary,
		segmentSeconds: segmentSeconds,
		timeout:        timeout,
		exec:           commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Args returns the ffmpeg argument list for packaging input into playlist.
// Streams are copied, segment numbering starts at 0, and the playlist lists
// every segment.
func (c *Client) Args(input, playlist string) []string {
	return []string{
		"-hide_banner",
		"-y",
		"-i", input,
		"-codec", "copy",
		"-start_number", "0",
		"-hls_time", strconv.Itoa(c.segmentSeconds),
		"-hls_list_size", "0",
		"-f", "hls",
		playlist,
	}
}

// Error describes a failed ffmpeg invocation.
type Error struct {
	Binary   string
	ExitCode int
	// Tail holds the last lines of process output for diagnosis.
	Tail []string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Binary)
	if e.ExitCode >= 0 {
		b.WriteString(" exited with status ")
		b.WriteString(strconv.Itoa(e.ExitCode))
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Tail) > 0 {
		b.WriteString(": ")
		b.WriteString(e.Tail[len(e.Tail)-1])
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Transcode runs ffmpeg to produce playlist (and its sibling segments) from
// input. Partial output is left in place on failure. Errors wrap
// services.ErrTranscode and carry a *Error.
func (c *Client) Transcode(ctx context.Context, input, playlist string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	tail := make([]string, 0, tailLines)
	collect := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		if len(tail) == tailLines {
			copy(tail, tail[1:])
			tail = tail[:tailLines-1]
		}
		tail = append(tail, line)
		if c.onOutput != nil {
			c.onOutput(line)
		}
	}

	err := c.exec.Run(ctx, c.binary, c.Args(input, playlist), collect)
	if err == nil {
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
		exitCode = -1
	}
	procErr := &Error{Binary: c.binary, ExitCode: exitCode, Tail: tail, Err: err}
	return services.Wrap(services.ErrTranscode, "transcoding", "ffmpeg", "", procErr)
}

// Diagnostic returns the output tail carried by err, if any.
func Diagnostic(err error) string {
	var procErr *Error
	if errors.As(err, &procErr) {
		return strings.Join(procErr.Tail, "\n")
	}
	return ""
}
