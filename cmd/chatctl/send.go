package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/homefix-api/pkg/chatclient"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message, opening the thread first when --to is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID, _ := cmd.Flags().GetString("thread")
			to, _ := cmd.Flags().GetString("to")
			text, _ := cmd.Flags().GetString("text")

			threadID = strings.TrimSpace(threadID)
			to = strings.TrimSpace(to)
			if threadID == "" && to == "" {
				return fmt.Errorf("either --thread or --to is required")
			}

			client, err := apiClient(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if threadID == "" {
				thread, err := client.StartChat(ctx, to)
				if err != nil {
					return fmt.Errorf("open thread with %s: %w", to, err)
				}
				threadID = thread.ID
			}

			composer := chatclient.NewComposer(client, threadID, cliLogger(cmd))
			composer.OnChange(func(d chatclient.Delivery) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", d.ID[:8], d.State)
			})
			composer.SetInput(text)

			delivery, err := composer.Send(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", threadID, delivery.Message.ID, delivery.Message.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}

	cmd.Flags().String("thread", "", "thread id")
	cmd.Flags().String("to", "", "recipient user id (opens the thread if needed)")
	cmd.Flags().String("text", "", "message text")
	return cmd
}
