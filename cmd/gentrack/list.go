package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gentrack/internal/domain"
)

func newListCmd() *cobra.Command {
	var (
		status  string
		kind    string
		page    int
		perPage int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs known to the service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, client, err := setup()
			if err != nil {
				return err
			}
			result, err := client.List(cmd.Context(), domain.ListQuery{
				Status:  domain.JobStatus(status),
				Kind:    domain.JobKind(kind),
				Page:    page,
				PerPage: perPage,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tSTATUS\tPROGRESS\tTITLE")
			for _, job := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n", job.ID, job.Kind, job.Status, job.Progress, job.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("page %d/%d, %d jobs total\n", result.Page.Page, result.Page.TotalPages, result.Page.TotalItems)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "rows per page")
	return cmd
}
