package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "guardian — emergency monitoring agent coordination runtime",
	Long: "guardian coordinates autonomous monitoring agents that detect, assess,\n" +
		"and respond to emergency events: a message bus, a priority scheduler\n" +
		"with resource allocation, and a rate-limited multi-channel notifier.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}
