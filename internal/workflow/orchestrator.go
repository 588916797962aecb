package workflow

import (
	"context"
	"log/slog"
	"time"

	"hlsingest/internal/catalog"
	"hlsingest/internal/config"
	"hlsingest/internal/fetch"
	"hlsingest/internal/logging"
	"hlsingest/internal/upload"
	"hlsingest/internal/workspace"
)

// Fetcher downloads a source URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, dest string) (fetch.Result, error)
}

// Transcoder repackages input into an HLS playlist with sibling segments.
type Transcoder interface {
	Transcode(ctx context.Context, input, playlist string) error
}

// Uploader publishes a local directory tree under a key prefix.
type Uploader interface {
	Upload(ctx context.Context, localRoot, bucket, keyPrefix string) (upload.Manifest, error)
}

// Settings holds the orchestration knobs taken from configuration.
type Settings struct {
	WorkspaceDir        string
	Bucket              string
	KeyPrefix           string
	PublicBaseURL       string
	Workers             int
	UploadTimeout       time.Duration
	ClaimTTL            time.Duration
	HeartbeatInterval   time.Duration
	Cleanup             workspace.CleanupOptions
	TimestampWorkspaces bool
	Disambiguate        bool
	MinFreeMiB          int64
}

// SettingsFromConfig maps cfg onto Settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		WorkspaceDir:      cfg.Paths.WorkspaceDir,
		Bucket:            cfg.Storage.Bucket,
		KeyPrefix:         cfg.Storage.KeyPrefix,
		PublicBaseURL:     cfg.Storage.PublicBaseURL,
		Workers:           cfg.Workflow.Workers,
		UploadTimeout:     cfg.UploadTimeout(),
		ClaimTTL:          cfg.ClaimTTL(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		Cleanup: workspace.CleanupOptions{
			KeepMetadata: cfg.Workflow.KeepMetadata,
			KeepOutput:   cfg.Workflow.KeepOutput,
		},
		TimestampWorkspaces: cfg.Workflow.TimestampWorkspaces,
		Disambiguate:        cfg.Workflow.DisambiguateCollisions,
		MinFreeMiB:          cfg.Workflow.MinFreeMiB,
	}
}

// Dependencies are the collaborators an Orchestrator drives.
type Dependencies struct {
	Store      catalog.Store
	Fetcher    Fetcher
	Transcoder Transcoder
	Uploader   Uploader
}

// Orchestrator runs items through the pipeline.
type Orchestrator struct {
	settings Settings
	store    catalog.Store
	fetcher  Fetcher
	tc       Transcoder
	uploader Uploader
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithClock overrides the time source used for transitions and records.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an Orchestrator.
func New(settings Settings, deps Dependencies, logger *slog.Logger, opts ...Option) *Orchestrator {
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	o := &Orchestrator{
		settings: settings,
		store:    deps.Store,
		fetcher:  deps.Fetcher,
		tc:       deps.Transcoder,
		uploader: deps.Uploader,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
