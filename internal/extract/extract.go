// Package extract turns a CKAN package record into a new items report row.
//
// The record is loosely structured and portals are inconsistent, so most
// steps can degrade: the affected fields are left empty and the reason is
// reported in Result rather than failing the record.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/turbolytics/ckandiff/internal/ckan"
)

const (
	GenreGeospatial = "Geospatial data"
	GenreAerial     = "Aerial imagery"

	aerialTag = "aerial photography"
)

var (
	ErrMalformedDistribution = errors.New("malformed distribution")
	ErrNoGroups              = errors.New("no groups")
)

// Options are the facts about the harvested portal that are not carried
// by the records themselves.
type Options struct {
	LandingURL       string
	OriginatorKey    string
	SpatialKey       string
	DefaultPublisher string
	State            string

	Language      string
	Provenance    string
	Code          string
	IsPartOf      string
	Status        string
	AccrualMethod string
	Rights        string
	Suppressed    string
	Child         string
}

// DefaultOptions describe the Minnesota Geospatial Commons.
func DefaultOptions() Options {
	return Options{
		LandingURL:       "https://gisdata.mn.gov/dataset/",
		OriginatorKey:    "dsOriginator",
		SpatialKey:       "spatial",
		DefaultPublisher: "State of Minnesota",
		State:            "Minnesota",
		Language:         "English",
		Provenance:       "Minnesota",
		Code:             "05a-01",
		IsPartOf:         "05a-01",
		Status:           "Active",
		AccrualMethod:    "CKAN",
		Rights:           "Public",
		Suppressed:       "FALSE",
		Child:            "FALSE",
	}
}

// Degradation is a step that fell back to empty values.
type Degradation struct {
	Step string
	Err  error
}

func (d Degradation) String() string {
	return fmt.Sprintf("%s: %v", d.Step, d.Err)
}

type Result struct {
	// Included is false when no distribution classified the dataset; the
	// row must then be left out of the report.
	Included     bool
	Degradations []Degradation
}

func (r *Result) degrade(step string, err error) {
	r.Degradations = append(r.Degradations, Degradation{Step: step, Err: err})
}

// Extract builds the report row for pkg. It is a pure function of its
// arguments.
func Extract(pkg *ckan.Package, opts Options) (Row, Result) {
	var res Result

	description, err := StripTags(pkg.Notes)
	if err != nil {
		res.degrade("description", err)
		description = pkg.Notes
	}

	creator, publisher, coverage := originator(pkg, opts)

	dist, errs := scanDistributions(pkg)
	for _, err := range errs {
		res.degrade("distribution", err)
	}

	ws, err := ClassifyWebService(dist.webService)
	if err != nil {
		res.degrade("webservice", err)
	}

	bbox, err := boundingBox(pkg, opts.SpatialKey)
	if err != nil {
		res.degrade("bounding box", err)
	}

	subj, err := subject(pkg.Groups)
	if err != nil {
		res.degrade("subject", err)
	}

	row := Row{
		AlternativeTitle: pkg.Title,
		Description:      NormalizeDescription(description),
		Language:         opts.Language,
		Creator:          creator,
		Publisher:        publisher,
		Genre:            dist.genre,
		Subject:          subj,
		Keyword:          keywords(pkg.Tags),
		DateIssued:       pkg.MetadataCreated,
		SpatialCoverage:  coverage,
		BoundingBox:      bbox,
		Type:             dist.typ,
		GeometryType:     dist.geometry,
		Format:           dist.format,
		Information:      opts.LandingURL + pkg.Name,
		Download:         dist.download,
		MapServer:        ws.MapServer,
		FeatureServer:    ws.FeatureServer,
		ImageServer:      ws.ImageServer,
		HTML:             dist.html,
		Image:            dist.image,
		Identifier:       pkg.ID,
		Provenance:       opts.Provenance,
		Code:             opts.Code,
		IsPartOf:         opts.IsPartOf,
		Status:           opts.Status,
		AccrualMethod:    opts.AccrualMethod,
		Rights:           opts.Rights,
		Suppressed:       opts.Suppressed,
		Child:            opts.Child,
	}

	res.Included = row.Genre != ""
	return row, res
}

// originator derives Creator, Publisher and Spatial Coverage from the last
// originator extra. County agencies publish for their county; anything
// else is attributed to the state.
func originator(pkg *ckan.Package, opts Options) (creator, publisher, coverage string) {
	for _, v := range pkg.ExtrasFor(opts.OriginatorKey) {
		creator = v
	}

	if i := strings.Index(creator, "County"); i != -1 {
		publisher = creator[:i+len("County")]
		return creator, publisher, publisher + ", " + opts.State + "|" + opts.State
	}
	return creator, opts.DefaultPublisher, opts.State
}

func boundingBox(pkg *ckan.Package, key string) (string, error) {
	values := pkg.ExtrasFor(key)
	if len(values) == 0 {
		return "", ErrNoBoundingBox
	}
	return BoundingBox(values[len(values)-1])
}

func subject(groups []ckan.Group) (string, error) {
	if len(groups) == 0 {
		return "", ErrNoGroups
	}
	name, ok := groups[0].Name()
	if !ok {
		return "", fmt.Errorf("%w: first group has no display name", ErrNoGroups)
	}
	return strings.ReplaceAll(name, "+", "and"), nil
}

// keywords joins tag names with "|". Commas inside a tag name are treated
// as separators too.
func keywords(tags []ckan.Tag) string {
	var names []string
	for _, t := range tags {
		if name, ok := t.Name(); ok {
			names = append(names, name)
		}
	}
	return strings.ReplaceAll(strings.Join(names, ","), ",", "|")
}
