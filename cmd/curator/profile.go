package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docutag/curator/config"
	"github.com/docutag/curator/db"
)

func newProfileCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or replace the curation profile stored in the database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored profile as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Open(db.Config{DSN: c.cfg.Database.DSN()})
			if err != nil {
				return err
			}
			defer database.Close()

			cc, err := database.CurationContext(cmd.Context())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cc)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored profile with a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := config.LoadProfile(args[0])
			if err != nil {
				return err
			}
			cc, err := profile.CurationContext(cmd.Context())
			if err != nil {
				return err
			}

			database, err := db.New(db.Config{DSN: c.cfg.Database.DSN()})
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.ReplaceCurationContext(cmd.Context(), cc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d interests, %d themes, %d tags\n",
				len(cc.Interests), len(cc.OrgThemes), len(cc.TagVocabulary))
			return nil
		},
	})
	return cmd
}
