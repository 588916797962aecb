package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"hlsingest/internal/logging"
	"hlsingest/internal/services"
)

// ErrClaimLost marks an item abandoned because another worker took over its
// identity claim.
var ErrClaimLost = errors.New("identity claim lost")

// heartbeat refreshes the identity claim until ctx is done. When the claim
// turns out to belong to someone else, lose is called with ErrClaimLost and
// the loop stops.
func (o *Orchestrator) heartbeat(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, identity, owner string, lose context.CancelCauseFunc) {
	defer wg.Done()
	interval := o.settings.HeartbeatInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := o.store.Claim(ctx, identity, owner, o.settings.ClaimTTL)
			switch {
			case err != nil && errors.Is(err, context.Canceled):
				return
			case err != nil:
				logger.Warn("claim heartbeat failed", logging.Error(err),
					logging.String(logging.FieldEventType, "claim_heartbeat_failed"))
			case !ok:
				logger.Warn("claim lost to another worker; abandoning item",
					logging.String(logging.FieldEventType, "claim_lost"),
					logging.String(logging.FieldImpact, "item left unprocessed for the next run"),
				)
				lose(ErrClaimLost)
				return
			}
		}
	}
}

// claimLost returns the failure for stage once the heartbeat has given up
// the claim on ctx, or nil while the claim is held.
func claimLost(ctx context.Context, stage State) error {
	if !errors.Is(context.Cause(ctx), ErrClaimLost) {
		return nil
	}
	return services.Wrap(services.ErrCatalog, string(stage), "hold claim",
		"another worker took over the identity", ErrClaimLost)
}
