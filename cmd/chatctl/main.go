// Command chatctl is an operator tool for the chat API: derive thread ids,
// send and watch messages, and seed demo data.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
