package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/docutag/curator/models"
)

func newIngestCmd(c *cli) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Ingest one URL and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.curator.Ingest(ctx, models.IngestRequest{URL: args[0], Source: source})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Response())
		},
	}
	cmd.Flags().StringVar(&source, "source", models.DefaultSource, "source label stored with the item")
	return cmd
}
