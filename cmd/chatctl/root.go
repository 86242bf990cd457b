package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/homefix-api/pkg/chatclient"
)

const defaultAPIURL = "http://localhost:8080"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatctl",
		Short:         "Operator CLI for the Homefix chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("api", envOr("HOMEFIX_API_URL", defaultAPIURL), "API base URL")
	cmd.PersistentFlags().String("token", os.Getenv("HOMEFIX_TOKEN"), "bearer token of the acting user")

	cmd.AddCommand(
		newThreadIDCmd(),
		newSendCmd(),
		newWatchCmd(),
		newSeedCmd(),
	)
	return cmd
}

func apiClient(cmd *cobra.Command) (*chatclient.Client, error) {
	baseURL, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	return chatclient.NewClient(baseURL, token)
}

func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
