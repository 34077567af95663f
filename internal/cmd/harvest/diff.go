package harvest

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/turbolytics/ckandiff/internal/snapshot"
)

func newDiffCommand() *cobra.Command {
	var f *flags

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Prints identifiers added (+) and removed (-) between two stored snapshots.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, err := f.load()
			if err != nil {
				return err
			}

			logger, err := c.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			l := logger.Named("ckandiff.diff")

			repository, err := newRepository(c, l)
			if err != nil {
				return err
			}

			store := snapshot.NewStore(repository, snapshot.WithLogger(l))
			current, err := store.Load(ctx, c.Report.Date)
			if err != nil {
				return err
			}

			h := newHarvester(c, nil, repository, l)
			previous, err := h.Previous(ctx, c.Report.Date, c.Report.PreviousDate)
			if err != nil {
				return err
			}

			changes := snapshot.Diff(previous, current)
			out := cmd.OutOrStdout()
			for _, id := range changes.Added {
				fmt.Fprintf(out, "+ %s\n", id)
			}
			for _, id := range changes.Removed {
				fmt.Fprintf(out, "- %s\n", id)
			}
			return nil
		},
	}

	f = newFlags(cmd)
	cmd.MarkFlagRequired("config")
	return cmd
}
