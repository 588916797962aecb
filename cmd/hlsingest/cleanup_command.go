package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hlsingest/internal/logging"
	"hlsingest/internal/workspace"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var list bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale workspaces and expired log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				dirs, err := workspace.ListDirectories(cfg.Paths.WorkspaceDir)
				if err != nil {
					return err
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "No workspaces")
					return nil
				}
				rows := make([][]string, 0, len(dirs))
				for _, d := range dirs {
					rows = append(rows, []string{d.Name, humanize.Time(d.ModTime), humanize.IBytes(uint64(max(d.Size, 0)))})
				}
				if isTerminal(out) {
					fmt.Fprintln(out, renderTable([]string{"Workspace", "Modified", "Size"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				} else {
					for _, row := range rows {
						fmt.Fprintf(out, "%s\t%s\t%s\n", row[0], row[1], row[2])
					}
				}
				return nil
			}

			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			result := workspace.CleanStale(cmd.Context(), cfg.Paths.WorkspaceDir, olderThan, logger)
			logs := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.DailyLogTarget(cfg.Paths.LogDir, time.Now()))

			fmt.Fprintf(out, "Removed %d stale workspaces and %d log files\n", len(result.Removed), logs)
			if len(result.Errors) > 0 {
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  %s: %v\n", e.Path, e.Error)
				}
				return fmt.Errorf("cleanup: %d workspaces could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 72*time.Hour, "Remove workspaces not modified within this duration")
	cmd.Flags().BoolVar(&list, "list", false, "List workspaces instead of removing them")
	return cmd
}
