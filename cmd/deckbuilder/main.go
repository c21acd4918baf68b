// Command deckbuilder runs the Deck Builder API gateway.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/koustreak/deckbuilder/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts config.Options

	root := &cobra.Command{
		Use:           "deckbuilder",
		Short:         "Deck Builder API gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load; it must exist (empty to skip)")
	root.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "optional YAML file with tuning settings")

	root.AddCommand(
		newServeCmd(&opts),
		newMigrateCmd(&opts),
		newHealthcheckCmd(&opts),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "deckbuilder v%s (%s, %s/%s)\n",
					version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			},
		},
	)
	return root
}
