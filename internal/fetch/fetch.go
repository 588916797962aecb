// Package fetch downloads a work item's source media into its workspace.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hlsingest/internal/fileutil"
	"hlsingest/internal/services"
)

const defaultUserAgent = "hlsingest/dev"

// Config describes the fetch client configuration.
type Config struct {
	UserAgent string
	// Timeout bounds one whole download. Zero relies on the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client performs single-attempt streaming downloads.
type Client struct {
	userAgent string
	timeout   time.Duration
	http      *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) *Client {
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{userAgent: userAgent, timeout: cfg.Timeout, http: client}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// Result describes a completed download.
type Result struct {
	Bytes       int64
	ContentType string
}

// Fetch streams sourceURL into dest. The body is written to dest+".part" and
// renamed into place only after a complete, synced write; any failure leaves
// no file at dest. Errors wrap services.ErrFetch. No retries are attempted.
func (c *Client) Fetch(ctx context.Context, sourceURL, dest string) (Result, error) {
	if c == nil {
		return Result{}, services.Wrap(services.ErrFetch, "fetching", "fetch", "client is nil", nil)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return Result{}, services.Wrap(services.ErrFetch, "fetching", "build request", sourceURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrFetch, "fetching", "request", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		statusErr := &StatusError{URL: sourceURL, StatusCode: resp.StatusCode, Status: resp.Status}
		return Result{}, services.Wrap(services.ErrFetch, "fetching", "request", "", statusErr)
	}

	written, err := fileutil.WriteAtomic(dest, resp.Body, 0o644)
	if err != nil {
		return Result{Bytes: written}, services.Wrap(services.ErrFetch, "fetching", "write body", dest, err)
	}
	return Result{Bytes: written, ContentType: resp.Header.Get("Content-Type")}, nil
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
