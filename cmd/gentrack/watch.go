package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gentrack/internal/domain"
	"gentrack/internal/track"
)

func newWatchCmd() *cobra.Command {
	var (
		kind     string
		prompt   string
		title    string
		provider string
		aspect   string
		quantity int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Submit a generation job and follow it until it finishes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, client, err := setup()
			if err != nil {
				return err
			}
			tracker, err := track.NewTracker(track.Options{
				Service:      client,
				Logger:       logger,
				PollInterval: cfg.PollInterval,
				PollCeiling:  cfg.PollCeiling,
				BackoffCap:   cfg.BackoffCap,
				Retention:    cfg.RetentionWindow,
				Notify: func(n track.Notification) {
					switch n.Kind {
					case track.NotifyPollDegraded, track.NotifyPollTimeout, track.NotifyRefreshFailed:
						fmt.Printf("warning: %s\n", n.Message)
					}
				},
			})
			if err != nil {
				return err
			}
			defer tracker.Close()

			job, err := tracker.Submit(cmd.Context(), domain.SubmitRequest{
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
			fmt.Printf("accepted %s, watching...\n", job.ID)

			lastLine := ""
			for tracker.Tracking(job.ID) {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(500 * time.Millisecond):
				}
				if current, ok := tracker.Store().Get(job.ID); ok {
					line := fmt.Sprintf("%s %d%%", current.Status, current.Progress)
					if line != lastLine {
						fmt.Println(line)
						lastLine = line
					}
				}
			}

			final, ok := tracker.Completed(job.ID)
			if !ok {
				// Tracking stopped without a terminal state: timeout or the
				// job vanished server-side.
				fmt.Println("stopped watching; the job may still finish server-side")
				return nil
			}
			switch final.Status {
			case domain.JobStatusSucceeded:
				fmt.Printf("succeeded:\n  %s\n", strings.Join(final.ResultRefs, "\n  "))
			case domain.JobStatusFailed:
				return fmt.Errorf("job failed: %s", final.ErrorInfo)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(domain.JobKindVideoGenerate), "job kind: image_generate, image_enhance or video_generate")
	cmd.Flags().StringVar(&prompt, "prompt", "", "generation prompt")
	cmd.Flags().StringVar(&title, "title", "", "display title")
	cmd.Flags().StringVar(&provider, "provider", "", "preferred provider")
	cmd.Flags().StringVar(&aspect, "aspect", "", "aspect ratio, e.g. 16:9")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "number of assets to generate")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}
