package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hlsingest/internal/catalog"
	"hlsingest/internal/logging"
	"hlsingest/internal/services"
)

// Run drains the unprocessed backlog. One goroutine pages through the
// catalog and feeds Settings.Workers workers. Item failures are counted in
// the Summary; the returned error is reserved for run-fatal problems
// (catalog iteration failure or cancellation).
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	summary := Summary{RunID: runID, Started: o.now()}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("workers", o.settings.Workers),
	)

	var mu sync.Mutex
	items := make(chan catalog.WorkItem)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(items)
		// Source collections may repeat a URL; each is handled once per run.
		seen := make(map[string]struct{})
		for item, err := range o.store.Unprocessed(gctx) {
			if err != nil {
				return err
			}
			if _, dup := seen[item.SourceURL]; dup {
				continue
			}
			seen[item.SourceURL] = struct{}{}
			select {
			case items <- item:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for range o.settings.Workers {
		g.Go(func() error {
			for item := range items {
				// Items already handed out finish even if the run is canceled
				// mid-flight; cancellation surfaces as the stage error.
				outcome := o.ProcessItem(ctx, item)
				mu.Lock()
				summary.add(outcome)
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	summary.Duration = o.now().Sub(summary.Started)
	if err == nil {
		err = ctx.Err()
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("skipped", summary.Skipped),
		logging.Int("deferred", summary.Deferred),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	}
	switch {
	case err == nil:
		logger.Info("run complete", logging.Args(attrs...)...)
	case errors.Is(err, context.Canceled):
		logger.Warn("run interrupted", logging.Args(append(attrs, logging.Error(err))...)...)
	default:
		attrs = append(attrs, logging.Error(err), logging.ErrorKind(err))
		logging.ErrorWithContext(logger, "run aborted", "run_failed", attrs...)
	}
	return summary, err
}
