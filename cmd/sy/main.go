package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// defaultConfig is the config path every command falls back to.
const defaultConfig = "shiftyard.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sy",
		Short: "Shiftyard: shift roster editing",
		Long:  "Shiftyard edits draft shift rosters: leaves, auto-scheduling, verification, subtype assignment and publication.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newCycleCmd())
	cmd.AddCommand(newLeaveCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sy %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
