package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"hlsingest/internal/catalog"
	"hlsingest/internal/identity"
	"hlsingest/internal/logging"
	"hlsingest/internal/services"
	"hlsingest/internal/upload"
	"hlsingest/internal/workspace"
)

// ProcessItem runs one item to a terminal state, or leaves it Pending when
// deferred. Errors are reported on the Outcome, never returned.
func (o *Orchestrator) ProcessItem(ctx context.Context, item catalog.WorkItem) Outcome {
	start := o.now()
	out := Outcome{SourceURL: item.SourceURL, State: StatePending}
	ctx = services.WithSourceURL(ctx, item.SourceURL)

	id, err := identity.Derive(item.SourceURL)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "identity derivation degraded; using hashed identity", "identity_fallback",
			logging.String(logging.FieldIdentity, id.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the source url"),
		)
	}

	id, match, err := o.resolve(ctx, id, item.SourceURL)
	out.Identity = id.String()
	ctx = services.WithIdentity(ctx, id.String())
	logger := logging.WithContext(ctx, o.logger)
	if err != nil {
		o.fail(ctx, logger, &out, StatePending, err)
		out.Duration = o.now().Sub(start)
		return out
	}
	if match == catalog.MatchSame {
		o.skip(ctx, logger, &out, item)
		out.Duration = o.now().Sub(start)
		return out
	}

	owner := uuid.NewString()
	claimed, err := o.store.Claim(ctx, id.String(), owner, o.settings.ClaimTTL)
	if err != nil {
		o.fail(ctx, logger, &out, StatePending, err)
		out.Duration = o.now().Sub(start)
		return out
	}
	if !claimed {
		out.Deferred = true
		logger.Info("identity claimed by another worker; deferring",
			logging.String(logging.FieldEventType, "item_deferred"),
		)
		out.Duration = o.now().Sub(start)
		return out
	}
	defer func() {
		if err := o.store.Release(context.WithoutCancel(ctx), id.String(), owner); err != nil {
			logger.Warn("claim release failed; claim expires on its own",
				logging.Error(err),
				logging.String(logging.FieldEventType, "claim_release_failed"),
			)
		}
	}()

	// Stages run under itemCtx so a lost claim stops them.
	itemCtx, lose := context.WithCancelCause(ctx)
	defer lose(nil)
	hbCtx, hbCancel := context.WithCancel(itemCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go o.heartbeat(hbCtx, &hbWG, logger, id.String(), owner, lose)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	// Another worker may have published the identity between the check and the claim.
	match, _, err = catalog.Check(ctx, o.store, id.String(), item.SourceURL)
	switch {
	case err != nil:
		o.fail(ctx, logger, &out, StatePending, err)
	case match == catalog.MatchSame:
		o.skip(ctx, logger, &out, item)
	case match == catalog.MatchCollision:
		out.Deferred = true
		logger.Info("identity published by another source while waiting; deferring",
			logging.String(logging.FieldEventType, "item_deferred"),
		)
	default:
		o.run(itemCtx, logger, &out, item, id)
	}
	out.Duration = o.now().Sub(start)
	return out
}

// resolve settles the identity the item publishes under. A collision is
// disambiguated once when enabled; a second collision fails the item.
func (o *Orchestrator) resolve(ctx context.Context, id identity.Identity, sourceURL string) (identity.Identity, catalog.Match, error) {
	match, rec, err := catalog.Check(ctx, o.store, id.String(), sourceURL)
	if err != nil || match != catalog.MatchCollision {
		return id, match, err
	}
	if !o.settings.Disambiguate {
		return id, match, services.Wrap(services.ErrDerivation, string(StatePending), "resolve identity",
			fmt.Sprintf("identity %s already published from %s", id, rec.SourceURL), nil)
	}
	alt := identity.Disambiguate(id, sourceURL)
	logging.WithContext(ctx, o.logger).Info("identity collision; using disambiguated identity",
		logging.String(logging.FieldEventType, "identity_collision"),
		logging.String(logging.FieldIdentity, alt.String()),
		logging.String("base_identity", id.String()),
		logging.String("existing_source_url", rec.SourceURL),
	)
	match, rec, err = catalog.Check(ctx, o.store, alt.String(), sourceURL)
	if err != nil {
		return alt, match, err
	}
	if match == catalog.MatchCollision {
		return alt, match, services.Wrap(services.ErrDerivation, string(StatePending), "resolve identity",
			fmt.Sprintf("disambiguated identity %s already published from %s", alt, rec.SourceURL), nil)
	}
	return alt, match, nil
}

func (o *Orchestrator) skip(ctx context.Context, logger *slog.Logger, out *Outcome, item catalog.WorkItem) {
	out.Skipped = true
	if !item.Processed {
		// Record written but flag never flipped: heal it.
		if err := o.store.MarkProcessed(ctx, item.SourceURL); err != nil {
			logger.Warn("failed to mark already published item processed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "mark_processed_failed"),
				logging.String(logging.FieldErrorHint, "item will be skipped again on the next run"),
			)
		}
	}
	out.transition(StateDone, o.now())
	logger.Info("item already published; skipping",
		logging.String(logging.FieldEventType, "item_skipped"),
	)
}

// run executes the stages for a claimed identity. ctx is canceled with
// ErrClaimLost when the heartbeat loses the claim; the item then fails at the
// stage it was in.
func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, out *Outcome, item catalog.WorkItem, id identity.Identity) {
	failAt := func(stage State, err error) {
		if lost := claimLost(ctx, stage); lost != nil {
			err = lost
		}
		o.fail(ctx, logger, out, stage, err)
	}
	held := func(stage State) bool {
		if lost := claimLost(ctx, stage); lost != nil {
			o.fail(ctx, logger, out, stage, lost)
			return false
		}
		return true
	}

	o.enter(logger, out, StateFetching)
	ws, err := workspace.Create(services.WithStage(ctx, string(StateFetching)), o.settings.WorkspaceDir, id, workspace.Options{
		TimestampSuffix: o.settings.TimestampWorkspaces,
		MinFreeMiB:      o.settings.MinFreeMiB,
		Now:             o.now,
	})
	if err != nil {
		failAt(StateFetching, err)
		return
	}
	logger = logger.With(logging.String("workspace", ws.Dir))

	result, err := o.fetcher.Fetch(services.WithStage(ctx, string(StateFetching)), item.SourceURL, ws.InputPath())
	if err != nil {
		failAt(StateFetching, err)
		if claimLost(ctx, StateFetching) == nil {
			removeIfEmpty(ws.Dir)
		}
		return
	}
	if !held(StateFetching) {
		return
	}
	out.Bytes = result.Bytes
	logger.Info("source fetched",
		logging.String(logging.FieldEventType, "fetch_complete"),
		logging.String("size", humanize.Bytes(uint64(max(result.Bytes, 0)))),
		logging.String("content_type", result.ContentType),
	)

	o.enter(logger, out, StateTranscoding)
	if err := ws.PrepareOutput(); err != nil {
		failAt(StateTranscoding, err)
		return
	}
	if err := o.tc.Transcode(services.WithStage(ctx, string(StateTranscoding)), ws.InputPath(), ws.PlaylistPath()); err != nil {
		failAt(StateTranscoding, err)
		return
	}
	if !held(StateTranscoding) {
		return
	}

	o.enter(logger, out, StateUploading)
	uploadCtx := services.WithStage(ctx, string(StateUploading))
	if o.settings.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(uploadCtx, o.settings.UploadTimeout)
		defer cancel()
	}
	manifest, err := o.uploader.Upload(uploadCtx, ws.OutputDir(), o.settings.Bucket, upload.KeyPrefix(o.settings.KeyPrefix, id.String()))
	if err != nil {
		failAt(StateUploading, err)
		return
	}
	if !held(StateUploading) {
		return
	}

	o.enter(logger, out, StateRecording)
	rec := catalog.NewRecord(item, id.String())
	rec.PlaylistKey = manifest.PlaylistKey
	rec.PublicPlaylistURL = upload.PublicURL(o.settings.PublicBaseURL, manifest.PlaylistKey)
	rec.ObjectKeys = manifest.Keys
	rec.ProcessedAt = o.now().UTC()
	if err := ws.WriteMetadata(rec); err != nil {
		failAt(StateRecording, err)
		return
	}
	inserted, err := o.store.RecordCompletion(services.WithStage(ctx, string(StateRecording)), rec)
	if err != nil {
		failAt(StateRecording, err)
		return
	}
	out.PlaylistURL = rec.PublicPlaylistURL
	if !inserted {
		logger.Warn("record already existed; kept the original",
			logging.String(logging.FieldEventType, "record_exists"),
			logging.String(logging.FieldImpact, "uploaded objects overwrote the same keys"),
		)
	}

	o.enter(logger, out, StateCleaning)
	if err := ws.Cleanup(o.settings.Cleanup, logger); err != nil {
		logger.Debug("workspace cleanup incomplete", logging.Error(err))
	}

	out.transition(StateDone, o.now())
	logger.Info("item published",
		logging.String(logging.FieldEventType, "item_complete"),
		logging.String("playlist_url", out.PlaylistURL),
		logging.Int("objects", len(manifest.Keys)),
		logging.String("uploaded", humanize.Bytes(uint64(max(manifest.TotalBytes, 0)))),
	)
}

func (o *Orchestrator) enter(logger *slog.Logger, out *Outcome, state State) {
	out.transition(state, o.now())
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, string(state)),
	)
}

// fail moves the outcome to Failed and records the failure on the source
// item. Bookkeeping errors are logged only.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, out *Outcome, stage State, err error) {
	out.FailedStage = stage
	out.Err = err
	out.transition(StateFailed, o.now())

	attrs := []logging.Attr{
		logging.String(logging.FieldStage, string(stage)),
		logging.ErrorKind(err),
		logging.Error(err),
		logging.Alert("item_failed"),
		logging.String(logging.FieldImpact, "item left unprocessed for the next run"),
	}
	if hint := failureHint(err); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	logging.ErrorWithContext(logger, "item failed", "item_failed", attrs...)

	if errors.Is(err, context.Canceled) {
		return
	}
	if recErr := o.store.RecordFailure(context.WithoutCancel(ctx), out.SourceURL, string(stage), err.Error()); recErr != nil {
		logger.Warn("failed to record item failure",
			logging.Error(recErr),
			logging.String(logging.FieldEventType, "record_failure_failed"),
		)
	}
}

func failureHint(err error) string {
	if errors.Is(err, ErrClaimLost) {
		return "another worker holds the identity; the next run retries"
	}
	switch services.Kind(err) {
	case services.KindFetch:
		return "check that the source url is reachable"
	case services.KindTranscode:
		return "inspect the ffmpeg output tail and the retained input"
	case services.KindUpload:
		return "check storage credentials and bucket permissions"
	case services.KindCatalog:
		return "check catalog connectivity"
	case services.KindStorage:
		return "check workspace_dir permissions and free space"
	case services.KindDerivation:
		return "enable workflow.disambiguate_collisions or fix the source url"
	default:
		return ""
	}
}

func removeIfEmpty(dir string) {
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
}
