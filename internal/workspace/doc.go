// Package workspace manages the per-item scratch directories the pipeline
// works in.
//
// Each item owns <workspace_dir>/<identity> holding the raw download
// (input.mp4), the HLS output tree (output/output.m3u8 plus segments), and an
// optional meta.json copy of the catalog record. The output directory exists
// only once transcoding starts, and cleanup is best-effort.
package workspace
