package workflow_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hlsingest/internal/catalog"
	"hlsingest/internal/config"
	"hlsingest/internal/fetch"
	"hlsingest/internal/logging"
	"hlsingest/internal/objectstore"
	"hlsingest/internal/testsupport"
	"hlsingest/internal/transcode"
	"hlsingest/internal/upload"
	"hlsingest/internal/workflow"
)

const sourceBody = "fake mp4 payload"

// countingObjects records every Put and can be told to fail.
type countingObjects struct {
	objectstore.Store
	mu   sync.Mutex
	keys []string
	err  error
}

func (c *countingObjects) Put(ctx context.Context, in objectstore.PutInput) error {
	c.mu.Lock()
	c.keys = append(c.keys, in.Key)
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.Store.Put(ctx, in)
}

func (c *countingObjects) puts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// failingRecords wraps a catalog and rejects RecordCompletion.
type failingRecords struct {
	catalog.Store
}

func (failingRecords) RecordCompletion(context.Context, catalog.Record) (bool, error) {
	return false, errors.New("catalog unavailable")
}

type harness struct {
	t       *testing.T
	cfg     *config.Config
	store   *catalog.SQLiteStore
	ffmpeg  *testsupport.FFmpegStub
	objects *countingObjects
	fetches atomic.Int32
	fetcher *fetch.Client
	tc      *transcode.Client
	up      *upload.Uploader
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		t:      t,
		cfg:    cfg,
		store:  testsupport.MustOpenCatalog(t, cfg),
		ffmpeg: &testsupport.FFmpegStub{},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.fetches.Add(1)
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte(sourceBody))
	}))
	t.Cleanup(server.Close)

	h.fetcher = fetch.New(fetch.Config{UserAgent: "hlsingest-test", Timeout: 5 * time.Second, HTTPClient: testsupport.RedirectClient(server)})
	tc, err := transcode.New("ffmpeg", cfg.Transcoder.SegmentSeconds, time.Minute, transcode.WithExecutor(h.ffmpeg))
	if err != nil {
		t.Fatalf("transcode.New: %v", err)
	}
	h.tc = tc
	h.objects = &countingObjects{Store: objectstore.NewFilesystem(cfg.Storage.FilesystemDir)}
	h.up = upload.New(h.objects, logging.NewNop())
	return h
}

func (h *harness) orchestrator(mutate ...func(*workflow.Settings, *workflow.Dependencies)) *workflow.Orchestrator {
	settings := workflow.SettingsFromConfig(h.cfg)
	deps := workflow.Dependencies{
		Store:      h.store,
		Fetcher:    h.fetcher,
		Transcoder: h.tc,
		Uploader:   h.up,
	}
	for _, fn := range mutate {
		fn(&settings, &deps)
	}
	return workflow.New(settings, deps, logging.NewNop())
}

func (h *harness) objectPath(key string) string {
	return filepath.Join(h.cfg.Storage.FilesystemDir, h.cfg.Storage.Bucket, filepath.FromSlash(key))
}

func (h *harness) workspaceDir(identity string) string {
	return filepath.Join(h.cfg.Paths.WorkspaceDir, identity)
}

func (h *harness) pending() []catalog.WorkItem {
	h.t.Helper()
	var items []catalog.WorkItem
	for item, err := range h.store.Unprocessed(context.Background()) {
		if err != nil {
			h.t.Fatalf("Unprocessed: %v", err)
		}
		items = append(items, item)
	}
	return items
}

func states(o workflow.Outcome) []workflow.State {
	out := make([]workflow.State, 0, len(o.Transitions))
	for _, tr := range o.Transitions {
		out = append(out, tr.To)
	}
	return out
}
