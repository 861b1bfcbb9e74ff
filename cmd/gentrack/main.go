package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gentrack/internal/infra"
	"gentrack/internal/remote"
)

var (
	flagBaseURL string
	flagAPIKey  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gentrack",
		Short:        "Submit and track asynchronous generation jobs",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "job service base URL (defaults to GENTRACK_BASE_URL)")
	root.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "bearer token for the job service (defaults to GENTRACK_API_KEY)")

	root.AddCommand(newSubmitCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newCancelCmd())
	return root
}

// setup resolves configuration and builds the service client shared by all
// subcommands. Flags win over environment variables.
func setup() (*infra.Config, infra.Logger, *remote.Client, error) {
	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, infra.Logger{}, nil, err
	}
	if flagBaseURL != "" {
		cfg.RemoteBaseURL = flagBaseURL
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	logger := infra.NewLogger(cfg.AppEnv)
	client := remote.NewClient(remote.Options{
		BaseURL: cfg.RemoteBaseURL,
		APIKey:  cfg.APIKey,
	})
	return cfg, logger, client, nil
}
