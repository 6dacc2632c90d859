// Command trawl is a terminal research assistant: a chat model with a text
// web browser whose answers cite the pages it read.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var opts rootOptions
	root := &cobra.Command{
		Use:           "trawl",
		Short:         "Research assistant with a text web browser",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $TRAWL_CONFIG or trawl.toml)")
	root.PersistentFlags().StringVarP(&opts.sessionID, "session", "s", "", "session id to resume (default: a new one)")

	root.AddCommand(chatCMD(&opts), askCMD(&opts), sessionsCMD(&opts))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
