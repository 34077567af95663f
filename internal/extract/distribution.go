package extract

import (
	"fmt"
	"slices"

	"github.com/turbolytics/ckandiff/internal/ckan"
)

// distribution accumulates what the resource list says about a dataset.
// Entries are applied in order and later matches overwrite earlier ones.
type distribution struct {
	genre    string
	format   string
	typ      string
	geometry string
	download string

	webService string
	html       string
	image      string

	formats []string
}

// reset clears the classification after a malformed entry. Geometry and
// the captured service, page and image URLs survive.
func (d *distribution) reset() {
	d.genre = ""
	d.format = ""
	d.typ = ""
	d.download = ""
}

func (d *distribution) apply(r ckan.Resource, tags []ckan.Tag) error {
	format, ok := r.FormatValue()
	if !ok {
		return fmt.Errorf("%w: no format", ErrMalformedDistribution)
	}
	d.formats = append(d.formats, format)

	url, hasURL := r.URLValue()
	requireURL := func() error {
		if !hasURL {
			return fmt.Errorf("%w: %s entry has no url", ErrMalformedDistribution, format)
		}
		return nil
	}

	switch format {
	case "SHP":
		if err := requireURL(); err != nil {
			return err
		}
		d.genre = GenreGeospatial
		d.format = "Shapefile"
		d.download = url
		d.typ = "Dataset"
		d.geometry = "Vector"

	case "WMS":
		aerial, err := hasTag(tags, aerialTag)
		if err != nil {
			return err
		}
		if !aerial {
			return nil
		}
		if err := requireURL(); err != nil {
			return err
		}
		d.genre = GenreAerial
		d.format = "Imagery"
		d.download = url
		d.typ = "Image|Service"
		d.geometry = "Imagery"

	case "ags_mapserver":
		if err := requireURL(); err != nil {
			return err
		}
		d.webService = url

	case "HTML":
		if err := requireURL(); err != nil {
			return err
		}
		d.html = url

	case "JPEG":
		if err := requireURL(); err != nil {
			return err
		}
		d.image = url
	}
	return nil
}

func hasTag(tags []ckan.Tag, want string) (bool, error) {
	found := false
	for _, t := range tags {
		name, ok := t.Name()
		if !ok {
			return false, fmt.Errorf("%w: tag without display name", ErrMalformedDistribution)
		}
		if name == want {
			found = true
		}
	}
	return found, nil
}

// scanDistributions classifies the dataset from its resources. A shapefile
// served alongside an ArcGIS map service is both a dataset and a service.
func scanDistributions(pkg *ckan.Package) (distribution, []error) {
	var d distribution
	var errs []error
	for _, r := range pkg.Resources {
		if err := d.apply(r, pkg.Tags); err != nil {
			d.reset()
			errs = append(errs, err)
		}
	}

	if slices.Contains(d.formats, "ags_mapserver") && slices.Contains(d.formats, "SHP") {
		d.typ = "Dataset|Service"
	}
	return d, errs
}
