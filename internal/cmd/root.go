package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/turbolytics/ckandiff/internal/cmd/harvest"
)

func NewRootCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "ckandiff",
		Short: "Reports datasets added to and removed from a CKAN catalog",
		Long: `ckandiff compares the current identifier list of a CKAN catalog against
an earlier snapshot, extracts metadata for every new dataset and writes
the new items and deleted items reports for review.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(harvest.NewCommands()...)

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
