// Command hlsingest repackages remote video files into HLS, publishes them to
// object storage, and records their metadata in the catalog.
//
// Subcommands:
//
//	run       drain the unprocessed backlog
//	enqueue   add source URLs (or JSON Lines items) to the backlog
//	status    show catalog counts and recent records
//	doctor    check ffmpeg, the catalog, object storage, and disk space
//	cleanup   remove abandoned workspaces and expired log files
//	config    create or validate the configuration file
package main
