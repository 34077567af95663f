package harvest

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/turbolytics/ckandiff/internal/ckan"
	"github.com/turbolytics/ckandiff/internal/extract"
)

func newExtractCommand() *cobra.Command {
	var f *flags

	cmd := &cobra.Command{
		Use:   "extract FILE...",
		Short: "Runs the field extractor on stored package_show responses and prints the rows as CSV.",
		Args:  cobra.MinimumNArgs(1),
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
			l := logger.Named("ckandiff.extract")

			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write(c.Fields); err != nil {
				return err
			}

			opts := c.ExtractOptions()
			for _, fpath := range args {
				bs, err := os.ReadFile(fpath)
				if err != nil {
					return err
				}

				pkg, err := ckan.DecodePackage(bs)
				if err != nil {
					return fmt.Errorf("%s: %w", fpath, err)
				}

				row, res := extract.Extract(pkg, opts)
				for _, d := range res.Degradations {
					l.Debug("extraction degraded",
						zap.String("file", fpath),
						zap.String("step", d.Step),
						zap.Error(d.Err),
					)
				}
				if !res.Included {
					l.Info("record excluded", zap.String("file", fpath))
					continue
				}
				if err := w.Write(row.Values()); err != nil {
					return err
				}
			}

			w.Flush()
			return w.Error()
		},
	}

	f = newFlags(cmd)
	return cmd
}
