package harvest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/turbolytics/ckandiff/internal"
	"github.com/turbolytics/ckandiff/internal/archive"
	"github.com/turbolytics/ckandiff/internal/ckan"
	"github.com/turbolytics/ckandiff/internal/config"
	"github.com/turbolytics/ckandiff/internal/harvest"
	"github.com/turbolytics/ckandiff/internal/integrations/kafka"
	"github.com/turbolytics/ckandiff/internal/integrations/mongo"
	"github.com/turbolytics/ckandiff/internal/integrations/postgres"
	"github.com/turbolytics/ckandiff/internal/local"
	"github.com/turbolytics/ckandiff/internal/report"
	"github.com/turbolytics/ckandiff/internal/s3"
	"go.uber.org/zap"
)

// flags are shared by every command that reads a config file. Values
// set on the command line or as CKANDIFF_* environment variables win
// over the file.
type flags struct {
	v          *viper.Viper
	configPath string
}

func newFlags(cmd *cobra.Command) *flags {
	f := &flags{v: viper.New()}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().String("date", "", "Report date, YYYYMMDD (default today)")
	cmd.Flags().String("previous-date", "", "Date of the snapshot to compare against, YYYYMMDD (default latest stored)")
	cmd.Flags().String("directory", "", "Directory reports and snapshots are written to")

	f.v.BindPFlag("report.date", cmd.Flags().Lookup("date"))
	f.v.BindPFlag("report.previous_date", cmd.Flags().Lookup("previous-date"))
	f.v.BindPFlag("report.directory", cmd.Flags().Lookup("directory"))
	f.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	f.v.SetEnvPrefix("CKANDIFF")
	f.v.AutomaticEnv()

	return f
}

// load reads the config file, applies overrides and validates the result.
func (f *flags) load() (*config.CKANDiff, error) {
	c := config.Default()
	if f.configPath != "" {
		var err error
		if c, err = config.NewFromFile(f.configPath); err != nil {
			return nil, err
		}
	}

	if d := f.v.GetString("report.date"); d != "" {
		c.Report.Date = d
	}
	if d := f.v.GetString("report.previous_date"); d != "" {
		c.Report.PreviousDate = d
	}
	if d := f.v.GetString("report.directory"); d != "" {
		c.Report.Directory = d
		if c.Repository.Type == "local" {
			c.Repository.LocalConfig.Path = d
		}
	}
	if c.Repository.Type == "local" && c.Repository.LocalConfig.Path == "" {
		c.Repository.LocalConfig.Path = c.Report.Directory
	}
	if c.Report.Date == "" {
		c.Report.Date = time.Now().Format(config.DateLayout)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func newRepository(c *config.CKANDiff, l *zap.Logger) (internal.Repository, error) {
	switch c.Repository.Type {
	case "local":
		return local.New(
			c.Repository.LocalConfig.Path,
			local.WithLogger(l),
		), nil
	case "s3":
		return s3.New(
			s3.WithLogger(l),
			s3.WithRegion(c.Repository.S3Config.Region),
			s3.WithBucket(c.Repository.S3Config.Bucket),
			s3.WithEndpoint(c.Repository.S3Config.Endpoint),
			s3.WithPrefix(c.Repository.S3Config.Prefix),
			s3.WithForcePathStyle(c.Repository.S3Config.ForcePathStyle),
		)
	default:
		return nil, fmt.Errorf("unknown repository type: %s", c.Repository.Type)
	}
}

func newArchive(ctx context.Context, c *config.CKANDiff, repository internal.Repository, l *zap.Logger) (archive.Archive, error) {
	switch c.Archive.Type {
	case "repository":
		return archive.NewRepository(repository, archive.WithLogger(l)), nil
	case "mongodb":
		uri, err := url.Parse(c.Archive.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid archive connection string: %w", err)
		}
		return mongo.NewArchive(ctx, uri, l.Named("mongodb"))
	case "postgres":
		return postgres.NewArchive(ctx, c.Archive.ConnectionString, l.Named("postgres"))
	default:
		return nil, fmt.Errorf("unknown archive type: %s", c.Archive.Type)
	}
}

func newNotifier(ctx context.Context, c *config.CKANDiff, l *zap.Logger) (internal.Notifier, error) {
	switch c.Notify.Type {
	case "":
		return internal.NopNotifier{}, nil
	case "kafka":
		uri, err := url.Parse(c.Notify.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid notify URL: %w", err)
		}
		p, err := kafka.NewPublisher(uri, l.Named("kafka"))
		if err != nil {
			return nil, err
		}
		if err := p.Connect(ctx); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown notify type: %s", c.Notify.Type)
	}
}

func newClient(c *config.CKANDiff, l *zap.Logger) *ckan.Client {
	return ckan.New(
		c.Catalog.ListURL,
		c.Catalog.ShowURL,
		ckan.WithLogger(l.Named("ckan")),
		ckan.WithTimeout(c.Catalog.Timeout),
		ckan.WithRateLimit(c.Catalog.RequestsPerSecond),
		ckan.WithUserAgent(c.Catalog.UserAgent),
	)
}

func newHarvester(c *config.CKANDiff, portal harvest.Portal, repository internal.Repository, l *zap.Logger, opts ...harvest.Option) *harvest.Harvester {
	portalName := c.Catalog.ListURL
	if u, err := url.Parse(c.Catalog.ListURL); err == nil {
		portalName = u.Host
	}

	return harvest.New(append([]harvest.Option{
		harvest.WithLogger(l.Named("harvest")),
		harvest.WithPortal(portal),
		harvest.WithRepository(repository),
		harvest.WithExtractOptions(c.ExtractOptions()),
		harvest.WithSkipMissing(c.Catalog.OnMissing == config.OnMissingSkip),
		harvest.WithStatus(c.Report.StatusEnabled()),
		harvest.WithPortalName(portalName),
		harvest.WithReportOptions(
			report.WithLogger(l.Named("report")),
			report.WithFields(c.Fields),
			report.WithDeletedFields(c.DeletedFields),
			report.WithParquet(c.Report.Parquet),
		),
	}, opts...)...)
}
