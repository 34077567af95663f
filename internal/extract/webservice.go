package extract

import (
	"errors"
	"strings"
)

var ErrNoWebService = errors.New("no recognised web service")

// WebServices is an ArcGIS REST endpoint sorted by service type.
type WebServices struct {
	MapServer     string
	FeatureServer string
	ImageServer   string
}

// ClassifyWebService checks the URL for each ArcGIS service type
// independently, so a URL can land in more than one field.
func ClassifyWebService(u string) (WebServices, error) {
	var ws WebServices
	if strings.Contains(u, "FeatureServer") {
		ws.FeatureServer = u
	}
	if strings.Contains(u, "MapServer") {
		ws.MapServer = u
	}
	if strings.Contains(u, "ImageServer") {
		ws.ImageServer = u
	}
	if ws == (WebServices{}) {
		return ws, ErrNoWebService
	}
	return ws, nil
}
