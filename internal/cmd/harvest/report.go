package harvest

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/turbolytics/ckandiff/internal/harvest"
)

func newReportCommand() *cobra.Command {
	var f *flags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compares the catalog against an earlier snapshot and writes the new and deleted items reports.",
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
			l := logger.Named("ckandiff.report")

			repository, err := newRepository(c, l)
			if err != nil {
				return err
			}

			a, err := newArchive(ctx, c, repository, l)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			notifier, err := newNotifier(ctx, c, l)
			if err != nil {
				return err
			}
			defer notifier.Close(ctx)

			h := newHarvester(c, newClient(c, l), repository, l,
				harvest.WithArchive(a),
				harvest.WithNotifier(notifier),
			)

			cat, err := h.Run(ctx, c.Report.Date, c.Report.PreviousDate)
			if err != nil {
				return err
			}

			l.Info("report complete",
				zap.String("run", cat.ID),
				zap.String("date", cat.ReportDate),
				zap.String("previous_date", cat.PreviousDate),
				zap.Int("added", cat.NumAdded),
				zap.Int("removed", cat.NumRemoved),
				zap.Int("reported", cat.NumReported),
				zap.Bool("aborted", cat.Aborted),
			)
			if cat.Aborted {
				fmt.Fprintf(cmd.ErrOrStderr(), "fetch aborted at %s; new items report is partial\n", cat.AbortedAt)
			}
			return nil
		},
	}

	f = newFlags(cmd)
	cmd.MarkFlagRequired("config")
	return cmd
}
