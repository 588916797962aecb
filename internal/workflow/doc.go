// Package workflow drives backlog items through the ingestion pipeline.
//
// Each item moves Pending -> Fetching -> Transcoding -> Uploading ->
// Recording -> Cleaning -> Done, or stops in Failed at the first stage that
// errors. Before any work the Orchestrator derives the item identity, checks
// the catalog (already published items are skipped, colliding identities are
// disambiguated), and takes a catalog claim so no two workers touch the same
// identity. The claim is refreshed by a heartbeat while the item runs.
//
// Run drains every unprocessed catalog item through a bounded worker pool and
// returns a Summary. A failing item never aborts the run; it is logged,
// recorded on the source item, and left unprocessed for the next run.
// AcquireRunLock keeps two runs from sharing a workspace root.
package workflow
