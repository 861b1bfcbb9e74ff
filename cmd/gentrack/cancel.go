package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gentrack/internal/domain"
)

func newCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Delete a job from the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, client, err := setup()
			if err != nil {
				return err
			}
			jobID := args[0]
			if err := client.Delete(cmd.Context(), jobID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("job %s not found", jobID)
				}
				return err
			}
			fmt.Printf("deleted %s\n", jobID)
			return nil
		},
	}
	return cmd
}
