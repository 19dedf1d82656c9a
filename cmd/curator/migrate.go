package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/docutag/curator/db"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|status|down]",
		Short:     "Manage the database schema",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "status", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			database, err := db.Open(db.Config{DSN: c.cfg.Database.DSN()})
			if err != nil {
				return err
			}
			defer database.Close()

			m := db.NewMigrator(database.DB(), c.logger)
			ctx := cmd.Context()
			switch action {
			case "up":
				n, err := m.Up(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s), schema is up to date\n", n)
				return nil
			case "down":
				mig, err := m.Down(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d (%s)\n", mig.Version, mig.Name)
				return nil
			case "status":
				status, err := m.Status(ctx)
				if err != nil {
					return err
				}
				return renderMigrationStatus(cmd.OutOrStdout(), status)
			}
			return fmt.Errorf("unknown migrate action %q (want up, status or down)", action)
		},
	}
	return cmd
}

func renderMigrationStatus(w io.Writer, status []db.MigrationStatus) error {
	table := tablewriter.NewWriter(w)
	table.Header("Version", "Name", "Applied At")
	for _, s := range status {
		applied := "pending"
		if s.AppliedAt != nil {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		if err := table.Append([]string{fmt.Sprint(s.Version), s.Name, applied}); err != nil {
			return err
		}
	}
	return table.Render()
}
