package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/docutag/curator/db"
	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		view      string
		cursor    string
		limit     int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of a ranked view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := pagination.ParseView(view)
			if err != nil {
				return err
			}
			req := pagination.Request{View: v, Cursor: cursor, Limit: limit}
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}

			database, err := db.Open(db.Config{DSN: c.cfg.Database.DSN()})
			if err != nil {
				return err
			}
			defer database.Close()

			page, err := pagination.List(cmd.Context(), database, req)
			if err != nil {
				return err
			}
			return renderPage(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().StringVar(&view, "view", string(pagination.ViewBrowse), "view: browse, recent or org")
	cmd.Flags().StringVar(&cursor, "cursor", "", "cursor from a previous page")
	cmd.Flags().IntVar(&limit, "limit", pagination.DefaultLimit, "page size (max 100)")
	cmd.Flags().Float64Var(&threshold, "threshold", pagination.DefaultOrgThreshold, "minimum org score for the org view")
	return cmd
}

// renderPage prints items as a table followed by the next cursor, if any.
func renderPage(w io.Writer, page pagination.Page) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Pin", "Base", "Org", "Novelty", "Status", "Created", "Title")
	for _, it := range page.Items {
		if err := table.Append(row(it)); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if page.NextCursor != nil {
		fmt.Fprintf(w, "next cursor: %s\n", *page.NextCursor)
	} else {
		fmt.Fprintln(w, "end of results")
	}
	return nil
}

func row(it models.Item) []string {
	pin := ""
	if it.Pin == 1 {
		pin = "*"
	}
	return []string{
		shorten(it.ID, 12),
		pin,
		fmt.Sprintf("%.2f", it.BaseScore),
		fmt.Sprintf("%.2f", it.OrgScore),
		fmt.Sprintf("%.2f", it.Novelty),
		string(it.Status),
		it.CreatedAt.Format(time.DateTime),
		shorten(strings.TrimSpace(it.Title), 60),
	}
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
