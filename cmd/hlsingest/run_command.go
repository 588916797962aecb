package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"hlsingest/internal/config"
	"hlsingest/internal/fetch"
	"hlsingest/internal/logging"
	"hlsingest/internal/transcode"
	"hlsingest/internal/upload"
	"hlsingest/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every unprocessed backlog item",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				if workers <= 0 {
					return fmt.Errorf("--workers must be positive, got %d", workers)
				}
				cfg.Workflow.Workers = workers
			}
			summary, err := runPipeline(cmd.Context(), cfg, logger)
			if summary != nil {
				printSummary(cmd.OutOrStdout(), *summary)
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent items (overrides workflow.workers)")
	return cmd
}

// runPipeline wires the configured backends and drains the backlog. Failing
// items are reported in the summary; only setup, iteration, and shutdown
// failures are returned.
func runPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (summary *workflow.Summary, err error) {
	lock, err := workflow.AcquireRunLock(cfg.LockPath())
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			logger.Warn("failed to release run lock", logging.Error(relErr))
		}
	}()

	if removed := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.DailyLogTarget(cfg.Paths.LogDir, time.Now())); removed > 0 {
		logger.Info("pruned old log files", logging.Int("removed", removed))
	}

	store, err := openCatalog(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close catalog: %w", closeErr))
		}
	}()
	if err := store.Health(ctx); err != nil {
		return nil, fmt.Errorf("catalog health: %w", err)
	}

	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}

	ffmpegLogger := logging.NewComponentLogger(logger, "ffmpeg")
	tc, err := transcode.New(cfg.Transcoder.FFmpegBinary, cfg.Transcoder.SegmentSeconds, cfg.TranscodeTimeout(),
		transcode.WithOutput(func(line string) {
			ffmpegLogger.Debug(line)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("configure transcoder: %w", err)
	}

	orch := workflow.New(workflow.SettingsFromConfig(cfg), workflow.Dependencies{
		Store:      store,
		Fetcher:    fetch.New(fetch.Config{UserAgent: cfg.Fetch.UserAgent, Timeout: cfg.FetchTimeout()}),
		Transcoder: tc,
		Uploader:   upload.New(objects, logger),
	}, logger)

	result, runErr := orch.Run(ctx)
	return &result, runErr
}
