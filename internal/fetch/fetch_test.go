package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hlsingest/internal/fetch"
	"hlsingest/internal/services"
)

func TestFetchWritesBody(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "input.mp4")
	client := fetch.New(fetch.Config{UserAgent: "hlsingest/test"})

	result, err := client.Fetch(context.Background(), server.URL+"/abc123.mp4", dest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Bytes != int64(len("mp4-bytes")) || result.ContentType != "video/mp4" {
		t.Fatalf("unexpected result %+v", result)
	}
	if gotAgent != "hlsingest/test" {
		t.Fatalf("unexpected user agent %q", gotAgent)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "mp4-bytes" {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "input.mp4")
	_, err := fetch.New(fetch.Config{}).Fetch(context.Background(), server.URL+"/missing.mp4", dest)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch marker, got %v", err)
	}
	if code := fetch.StatusCode(err); code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", code)
	}
	for _, path := range []string{dest, dest + ".part"} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be absent, stat err=%v", path, err)
		}
	}
}

func TestFetchTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := fetch.New(fetch.Config{}).Fetch(context.Background(), url+"/x.mp4", filepath.Join(t.TempDir(), "input.mp4"))
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch marker, got %v", err)
	}
	if fetch.StatusCode(err) != 0 {
		t.Fatal("transport failures carry no status code")
	}
}

func TestFetchTimeoutSurfacesAsFetchKind(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := fetch.New(fetch.Config{Timeout: 50 * time.Millisecond})
	_, err := client.Fetch(context.Background(), server.URL+"/slow.mp4", filepath.Join(t.TempDir(), "input.mp4"))
	if err == nil {
		t.Fatal("expected timeout")
	}
	if services.Kind(err) != services.KindFetch {
		t.Fatalf("expected fetch kind, got %q (%v)", services.Kind(err), err)
	}
}
