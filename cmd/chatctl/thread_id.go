package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/homefix-api/internal/utils"
)

func newThreadIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thread-id <user-a> <user-b>",
		Short: "Print the thread id shared by two users",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			if a == "" || b == "" {
				return fmt.Errorf("both user ids are required")
			}
			for _, id := range []string{a, b} {
				if !utils.ValidUserID(id) {
					return fmt.Errorf("invalid user id %q", id)
				}
			}
			if a == b {
				return fmt.Errorf("a thread needs two different users")
			}
			fmt.Fprintln(cmd.OutOrStdout(), utils.DeriveThreadID(a, b))
			return nil
		},
	}
}
