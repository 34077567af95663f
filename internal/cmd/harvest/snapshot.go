package harvest

import (
	"github.com/spf13/cobra"
)

func newSnapshotCommand() *cobra.Command {
	var f *flags

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetches the current identifier list and stores it as the snapshot of the report date.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.load()
			if err != nil {
				return err
			}

			logger, err := c.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			l := logger.Named("ckandiff.snapshot")

			repository, err := newRepository(c, l)
			if err != nil {
				return err
			}

			_, err = newHarvester(c, newClient(c, l), repository, l).Snapshot(cmd.Context(), c.Report.Date)
			return err
		},
	}

	f = newFlags(cmd)
	cmd.MarkFlagRequired("config")
	return cmd
}
