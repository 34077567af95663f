package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/turbolytics/ckandiff/internal/extract"
	"github.com/turbolytics/ckandiff/internal/report"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DateLayout is the YYYYMMDD form used for report and snapshot dates.
const DateLayout = "20060102"

var ErrInvalid = errors.New("invalid config")

type Logger struct {
	Level string `yaml:"level"`
}

type Global struct {
	Logger Logger `yaml:"logger"`
}

type Report struct {
	Date         string `yaml:"date"`
	PreviousDate string `yaml:"previous_date"`
	Directory    string `yaml:"directory"`
	Parquet      bool   `yaml:"parquet"`
	Status       *bool  `yaml:"status"`
}

// StatusEnabled reports whether the portal status report is written.
// It is on unless explicitly disabled.
func (r Report) StatusEnabled() bool {
	return r.Status == nil || *r.Status
}

type Catalog struct {
	ListURL           string        `yaml:"list_url"`
	ShowURL           string        `yaml:"show_url"`
	LandingURL        string        `yaml:"landing_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	UserAgent         string        `yaml:"user_agent"`
	OnMissing         string        `yaml:"on_missing"`
}

const (
	OnMissingAbort = "abort"
	OnMissingSkip  = "skip"
)

type Portal struct {
	OriginatorKey    string `yaml:"originator_key"`
	SpatialKey       string `yaml:"spatial_key"`
	DefaultPublisher string `yaml:"default_publisher"`
	State            string `yaml:"state"`
	Language         string `yaml:"language"`
	Provenance       string `yaml:"provenance"`
	Code             string `yaml:"code"`
	IsPartOf         string `yaml:"is_part_of"`
	Status           string `yaml:"status"`
	AccrualMethod    string `yaml:"accrual_method"`
	Rights           string `yaml:"rights"`
	Suppressed       string `yaml:"suppressed"`
	Child            string `yaml:"child"`
}

type LocalConfig struct {
	Path string `yaml:"path"`
}

type S3Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

type Repository struct {
	Type        string      `yaml:"type"`
	LocalConfig LocalConfig `yaml:"local"`
	S3Config    S3Config    `yaml:"s3"`
}

type Archive struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connection_string"`
}

type Notify struct {
	Type string `yaml:"type"`
	URL  string `yaml:"url"`
}

type CKANDiff struct {
	Global        Global     `yaml:"global"`
	Report        Report     `yaml:"report"`
	Catalog       Catalog    `yaml:"catalog"`
	Portal        Portal     `yaml:"portal"`
	Fields        []string   `yaml:"fields"`
	DeletedFields []string   `yaml:"deleted_fields"`
	Repository    Repository `yaml:"repository"`
	Archive       Archive    `yaml:"archive"`
	Notify        Notify     `yaml:"notify"`
}

// Default returns the configuration for the Minnesota Geospatial Commons.
func Default() *CKANDiff {
	opts := extract.DefaultOptions()
	return &CKANDiff{
		Global: Global{Logger: Logger{Level: "info"}},
		Report: Report{Directory: "."},
		Catalog: Catalog{
			ListURL:    "https://gisdata.mn.gov/api/3/action/package_list",
			ShowURL:    "https://gisdata.mn.gov/api/3/action/package_show?id=",
			LandingURL: opts.LandingURL,
			Timeout:    30 * time.Second,
			OnMissing:  OnMissingAbort,
		},
		Portal: Portal{
			OriginatorKey:    opts.OriginatorKey,
			SpatialKey:       opts.SpatialKey,
			DefaultPublisher: opts.DefaultPublisher,
			State:            opts.State,
			Language:         opts.Language,
			Provenance:       opts.Provenance,
			Code:             opts.Code,
			IsPartOf:         opts.IsPartOf,
			Status:           opts.Status,
			AccrualMethod:    opts.AccrualMethod,
			Rights:           opts.Rights,
			Suppressed:       opts.Suppressed,
			Child:            opts.Child,
		},
		Fields:        append([]string(nil), extract.Fields...),
		DeletedFields: append([]string(nil), report.DefaultDeletedFields...),
		Repository:    Repository{Type: "local"},
		Archive:       Archive{Type: "repository"},
	}
}

// NewFromFile reads a YAML config on top of Default.
func NewFromFile(fpath string) (*CKANDiff, error) {
	bs, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}

	c := Default()
	if err := yaml.Unmarshal(bs, c); err != nil {
		return nil, err
	}

	if c.Repository.Type == "local" && c.Repository.LocalConfig.Path == "" {
		c.Repository.LocalConfig.Path = c.Report.Directory
	}

	return c, nil
}

// Validate is run before any network call.
func (c *CKANDiff) Validate() error {
	for name, d := range map[string]string{
		"report.date":          c.Report.Date,
		"report.previous_date": c.Report.PreviousDate,
	} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("%w: %s %q is not YYYYMMDD", ErrInvalid, name, d)
		}
	}
	if c.Report.Date != "" && c.Report.PreviousDate != "" && c.Report.PreviousDate >= c.Report.Date {
		return fmt.Errorf("%w: report.previous_date %s is not before report.date %s",
			ErrInvalid, c.Report.PreviousDate, c.Report.Date)
	}

	if len(c.Fields) != len(extract.Fields) {
		return fmt.Errorf("%w: fields has %d names, want %d", ErrInvalid, len(c.Fields), len(extract.Fields))
	}
	if len(c.DeletedFields) != len(report.DefaultDeletedFields) {
		return fmt.Errorf("%w: deleted_fields has %d names, want %d",
			ErrInvalid, len(c.DeletedFields), len(report.DefaultDeletedFields))
	}

	for name, u := range map[string]string{
		"catalog.list_url": c.Catalog.ListURL,
		"catalog.show_url": c.Catalog.ShowURL,
	} {
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}

	switch c.Catalog.OnMissing {
	case OnMissingAbort, OnMissingSkip:
	default:
		return fmt.Errorf("%w: unknown catalog.on_missing: %q", ErrInvalid, c.Catalog.OnMissing)
	}

	switch c.Repository.Type {
	case "local":
		if c.Repository.LocalConfig.Path == "" {
			return fmt.Errorf("%w: repository.local.path is required", ErrInvalid)
		}
	case "s3":
		if c.Repository.S3Config.Bucket == "" {
			return fmt.Errorf("%w: repository.s3.bucket is required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown repository type: %q", ErrInvalid, c.Repository.Type)
	}

	switch c.Archive.Type {
	case "repository":
	case "mongodb", "postgres":
		if c.Archive.ConnectionString == "" {
			return fmt.Errorf("%w: archive.connection_string is required for %s", ErrInvalid, c.Archive.Type)
		}
	default:
		return fmt.Errorf("%w: unknown archive type: %q", ErrInvalid, c.Archive.Type)
	}

	switch c.Notify.Type {
	case "":
	case "kafka":
		if _, err := url.Parse(c.Notify.URL); err != nil || c.Notify.URL == "" {
			return fmt.Errorf("%w: notify.url is required for kafka", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown notify type: %q", ErrInvalid, c.Notify.Type)
	}

	if _, err := zapcore.ParseLevel(c.Global.Logger.Level); err != nil {
		return fmt.Errorf("%w: global.logger.level: %v", ErrInvalid, err)
	}

	return nil
}

// ExtractOptions returns the portal facts used by the field extractor.
func (c *CKANDiff) ExtractOptions() extract.Options {
	return extract.Options{
		LandingURL:       c.Catalog.LandingURL,
		OriginatorKey:    c.Portal.OriginatorKey,
		SpatialKey:       c.Portal.SpatialKey,
		DefaultPublisher: c.Portal.DefaultPublisher,
		State:            c.Portal.State,
		Language:         c.Portal.Language,
		Provenance:       c.Portal.Provenance,
		Code:             c.Portal.Code,
		IsPartOf:         c.Portal.IsPartOf,
		Status:           c.Portal.Status,
		AccrualMethod:    c.Portal.AccrualMethod,
		Rights:           c.Portal.Rights,
		Suppressed:       c.Portal.Suppressed,
		Child:            c.Portal.Child,
	}
}

// NewLogger builds a development logger at the configured level.
func (c *CKANDiff) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Global.Logger.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
