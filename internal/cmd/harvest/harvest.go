package harvest

import (
	"github.com/spf13/cobra"
)

// NewCommands returns the report, snapshot, diff and extract commands.
func NewCommands() []*cobra.Command {
	return []*cobra.Command{
		newReportCommand(),
		newSnapshotCommand(),
		newDiffCommand(),
		newExtractCommand(),
	}
}
