package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gentrack/internal/domain"
)

func newSubmitCmd() *cobra.Command {
	var (
		kind     string
		prompt   string
		title    string
		provider string
		aspect   string
		quantity int
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a generation job without waiting for it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, client, err := setup()
			if err != nil {
				return err
			}
			job, err := client.Submit(cmd.Context(), domain.SubmitRequest{
				Kind:        domain.JobKind(kind),
				Prompt:      prompt,
				Title:       title,
				Provider:    provider,
				AspectRatio: aspect,
				Quantity:    quantity,
			})
			if err != nil {
				return err
			}
			fmt.Printf("accepted %s (%s)\n", job.ID, job.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(domain.JobKindImageGenerate), "job kind: image_generate, image_enhance or video_generate")
	cmd.Flags().StringVar(&prompt, "prompt", "", "generation prompt")
	cmd.Flags().StringVar(&title, "title", "", "display title")
	cmd.Flags().StringVar(&provider, "provider", "", "preferred provider")
	cmd.Flags().StringVar(&aspect, "aspect", "", "aspect ratio, e.g. 16:9")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "number of assets to generate")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}
