package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noah-isme/homefix-api/internal/dto"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a thread's messages live until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID, _ := cmd.Flags().GetString("thread")
			threadID = strings.TrimSpace(threadID)
			if threadID == "" {
				return fmt.Errorf("--thread is required")
			}

			client, err := apiClient(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			seen := uint(0)
			err = client.Watch(ctx, threadID, func(views []dto.MessageView) {
				for _, view := range views {
					if view.ID <= seen {
						continue
					}
					fmt.Fprintln(cmd.OutOrStdout(), formatView(view))
					seen = view.ID
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().String("thread", "", "thread id")
	return cmd
}

func formatView(view dto.MessageView) string {
	line := fmt.Sprintf("[%s] %-5s %s", view.Timestamp, view.Sender, view.Text)
	for _, attachment := range view.Attachments {
		line += " <" + attachment.URL + ">"
	}
	return line
}
