package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hlsingest/internal/config"
	"hlsingest/internal/deps"
	"hlsingest/internal/workspace"
)

type doctorCheck struct {
	name   string
	ok     bool
	detail string
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, catalog, object store, and disk space",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checks := runDoctor(cmd.Context(), cfg)
			printDoctor(cmd.OutOrStdout(), checks)
			for _, c := range checks {
				if !c.ok {
					return fmt.Errorf("doctor: %s check failed", c.name)
				}
			}
			return nil
		},
	}
}

func runDoctor(ctx context.Context, cfg *config.Config) []doctorCheck {
	var checks []doctorCheck

	ffmpeg := deps.CheckFFmpeg(ctx, cfg.Transcoder.FFmpegBinary)
	detail := ffmpeg.Detail
	if ffmpeg.Available {
		detail = fmt.Sprintf("%s (%s)", ffmpeg.Path, ffmpeg.Version)
	}
	checks = append(checks, doctorCheck{name: "ffmpeg", ok: ffmpeg.Available, detail: detail})

	checks = append(checks, checkCatalog(ctx, cfg))
	checks = append(checks, checkObjectStore(ctx, cfg))

	free, err := workspace.FreeBytes(cfg.Paths.WorkspaceDir)
	switch {
	case err != nil:
		checks = append(checks, doctorCheck{name: "workspace", detail: err.Error()})
	default:
		minBytes := uint64(max(cfg.Workflow.MinFreeMiB, 0)) * 1024 * 1024
		checks = append(checks, doctorCheck{
			name:   "workspace",
			ok:     free >= minBytes,
			detail: fmt.Sprintf("%s free in %s (minimum %s)", humanize.IBytes(free), cfg.Paths.WorkspaceDir, humanize.IBytes(minBytes)),
		})
	}
	return checks
}

func checkCatalog(ctx context.Context, cfg *config.Config) doctorCheck {
	check := doctorCheck{name: "catalog"}
	store, err := openCatalog(ctx, cfg)
	if err != nil {
		check.detail = err.Error()
		return check
	}
	defer store.Close()
	if err := store.Health(ctx); err != nil {
		check.detail = err.Error()
		return check
	}
	check.ok = true
	check.detail = cfg.Catalog.Backend
	if cfg.Catalog.Backend == config.CatalogSQLite {
		check.detail += " " + cfg.Paths.CatalogPath
	}
	return check
}

func checkObjectStore(ctx context.Context, cfg *config.Config) doctorCheck {
	check := doctorCheck{name: "object store"}
	store, err := openObjectStore(ctx, cfg)
	if err != nil {
		check.detail = err.Error()
		return check
	}
	if err := store.Health(ctx, cfg.Storage.Bucket); err != nil {
		check.detail = err.Error()
		return check
	}
	check.ok = true
	check.detail = fmt.Sprintf("%s bucket %s", cfg.Storage.Backend, cfg.Storage.Bucket)
	return check
}

func printDoctor(w io.Writer, checks []doctorCheck) {
	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		status := "ok"
		if !c.ok {
			status = "FAIL"
		}
		rows = append(rows, []string{c.name, status, c.detail})
	}
	if isTerminal(w) {
		fmt.Fprintln(w, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s: %s %s\n", row[0], row[1], row[2])
	}
}
