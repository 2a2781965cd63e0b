package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ads-guardrail/internal/reporting"
	"ads-guardrail/internal/storage/sqlite"
)

func (c *cli) historyCmd() *cobra.Command {
	var (
		recordDB     string
		experimentID string
		limit        int
		format       string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs of an experiment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.Open(cmd.Context(), recordDB)
			if err != nil {
				return err
			}
			defer store.Close()

			hist, err := reporting.NewGenerator(store).Generate(cmd.Context(), experimentID, limit)
			if err != nil {
				return err
			}

			switch format {
			case "markdown":
				fmt.Fprint(c.stdout, reporting.RenderHistoryMarkdown(hist))
			case "csv":
				fmt.Fprint(c.stdout, reporting.RenderHistoryCSV(hist.Runs))
			case "json":
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(hist)
			default:
				return fmt.Errorf("unknown format %q (markdown, csv, json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recordDB, "record-db", "", "SQLite file written by evaluate --record-db")
	cmd.Flags().StringVar(&experimentID, "experiment", "default", "Experiment ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Newest runs to include (0 = all)")
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format: markdown, csv or json")
	_ = cmd.MarkFlagRequired("record-db")
	return cmd
}
