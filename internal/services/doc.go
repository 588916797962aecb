// Package services defines shared utilities consumed by the ingestion stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item identities, stage names, and run
//     identifiers for logging.
//   - Sentinel error markers plus the Wrap helper so every stage failure
//     carries one of the pipeline's error kinds (fetch, transcode, upload,
//     catalog, storage, derivation).
//
// Use these helpers when wiring new stage logic so failure classification and
// log shape stay uniform across the pipeline.
package services
