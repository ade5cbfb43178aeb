package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "attack-tui version %s\n", Version)
		fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
		fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	},
}
