package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/votsa/ssr/cmd/hotelsearch/commands"
)

func main() {
	root := &cobra.Command{
		Use:           "hotelsearch",
		Short:         "Run hotel searches against the mock or live upstream",
		Long:          "Runs the same reconcile, anchor and load-more flows as the HTTP service, in process, and prints JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("mode", "", "Upstream mode: mock or live (default from config/env)")

	root.AddCommand(commands.SearchCmd())
	root.AddCommand(commands.AnchorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print hotelsearch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "hotelsearch v0.1.0")
		},
	}
}
