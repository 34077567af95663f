package extract

// Fields are the canonical report column names, in Row order.
var Fields = []string{
	"Title", "Alternative Title", "Description", "Language", "Creator", "Publisher", "Genre",
	"Subject", "Keyword", "Date Issued", "Temporal Coverage", "Date Range", "Solr Year", "Spatial Coverage",
	"Bounding Box", "Type", "Geometry Type", "Format", "Information", "Download", "MapServer",
	"FeatureServer", "ImageServer", "HTML", "Image", "Identifier", "Provenance", "Code", "Is Part Of", "Status",
	"Accrual Method", "Date Accessioned", "Rights", "Access Rights", "Suppressed", "Child",
}

// Row is one dataset in the new items report. Fields left empty by the
// extractor are completed by hand after the report is produced.
type Row struct {
	Title            string
	AlternativeTitle string
	Description      string
	Language         string
	Creator          string
	Publisher        string
	Genre            string
	Subject          string
	Keyword          string
	DateIssued       string
	TemporalCoverage string
	DateRange        string
	SolrYear         string
	SpatialCoverage  string
	BoundingBox      string
	Type             string
	GeometryType     string
	Format           string
	Information      string
	Download         string
	MapServer        string
	FeatureServer    string
	ImageServer      string
	HTML             string
	Image            string
	Identifier       string
	Provenance       string
	Code             string
	IsPartOf         string
	Status           string
	AccrualMethod    string
	DateAccessioned  string
	Rights           string
	AccessRights     string
	Suppressed       string
	Child            string
}

// Values returns the row in Fields order.
func (r Row) Values() []string {
	return []string{
		r.Title, r.AlternativeTitle, r.Description, r.Language, r.Creator, r.Publisher, r.Genre,
		r.Subject, r.Keyword, r.DateIssued, r.TemporalCoverage, r.DateRange, r.SolrYear, r.SpatialCoverage,
		r.BoundingBox, r.Type, r.GeometryType, r.Format, r.Information, r.Download, r.MapServer,
		r.FeatureServer, r.ImageServer, r.HTML, r.Image, r.Identifier, r.Provenance, r.Code, r.IsPartOf, r.Status,
		r.AccrualMethod, r.DateAccessioned, r.Rights, r.AccessRights, r.Suppressed, r.Child,
	}
}
