package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hlsingest/internal/catalog"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog counts and recently published items",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			var records []catalog.Record
			if recent > 0 {
				if records, err = store.RecentRecords(cmd.Context(), recent); err != nil {
					return err
				}
			}
			printStatus(cmd.OutOrStdout(), stats, records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&recent, "recent", "n", 10, "Number of recent records to list (0 disables)")
	return cmd
}

func printStatus(w io.Writer, stats catalog.Stats, records []catalog.Record) {
	rows := [][]string{
		{"Items", strconv.Itoa(stats.Items)},
		{"Processed", strconv.Itoa(stats.Processed)},
		{"Pending", strconv.Itoa(stats.Pending)},
		{"Failing", strconv.Itoa(stats.Failing)},
		{"Records", strconv.Itoa(stats.Records)},
		{"Active claims", strconv.Itoa(stats.ActiveClaims)},
	}
	if isTerminal(w) {
		fmt.Fprintln(w, renderTable([]string{"Catalog", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	} else {
		for _, row := range rows {
			fmt.Fprintf(w, "%s: %s\n", row[0], row[1])
		}
	}
	if len(records) == 0 {
		return
	}

	recRows := make([][]string, 0, len(records))
	for _, rec := range records {
		recRows = append(recRows, []string{
			rec.Identity,
			humanize.Time(rec.ProcessedAt),
			strconv.Itoa(len(rec.ObjectKeys)),
			rec.PublicPlaylistURL,
		})
	}
	if isTerminal(w) {
		fmt.Fprintln(w, renderTable([]string{"Identity", "Published", "Objects", "Playlist"}, recRows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
		return
	}
	for _, row := range recRows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3])
	}
}
