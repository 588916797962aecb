package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hlsingest/internal/producer"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "enqueue <file>",
		Short: "Add source URLs to the backlog",
		Long: `Reads a newline-delimited list of source URLs, or with --format jsonl one
work item object per line (videoUrl, id, rawUrl, imageUrl, username, tags,
description, views). URLs already in the catalog are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			items, err := producer.ReadFile(strings.TrimSpace(args[0]), format)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			store, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			inserted, err := store.Enqueue(cmd.Context(), items)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %d of %d items (%d already known)\n", inserted, len(items), len(items)-inserted)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", producer.FormatLines, "Input format: lines or jsonl")
	return cmd
}
