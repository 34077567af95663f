package ckan

import (
	"encoding/json"
	"strings"
)

// Response is the envelope every CKAN action API call returns.
type Response[T any] struct {
	Help    string    `json:"help"`
	Success bool      `json:"success"`
	Result  T         `json:"result"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Type + ": " + e.Message
}

// Package is the metadata record returned by package_show. Only the parts
// read by the extractor are modelled; the verbatim body is archived
// separately.
type Package struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Title           string     `json:"title"`
	Notes           string     `json:"notes"`
	MetadataCreated string     `json:"metadata_created"`
	Extras          []Extra    `json:"extras"`
	Resources       []Resource `json:"resources"`
	Tags            []Tag      `json:"tags"`
	Groups          []Group    `json:"groups"`
}

type Extra struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts non-string values, keeping their JSON text.
func (e *Extra) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Key = raw.Key
	e.Value = ""
	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw.Value, &e.Value); err != nil {
		e.Value = strings.TrimSpace(string(raw.Value))
	}
	return nil
}

// Resource is one distribution of a dataset. Format and URL are pointers
// because portals publish entries without them. A key present as null
// decodes to an empty string, not nil.
type Resource struct {
	Format *string `json:"format"`
	URL    *string `json:"url"`
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Format = present(raw, "format")
	r.URL = present(raw, "url")
	return nil
}

// present returns nil only when key is absent.
func present(raw map[string]json.RawMessage, key string) *string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	var s string
	if string(v) == "null" {
		return &s
	}
	if err := json.Unmarshal(v, &s); err != nil {
		s = strings.TrimSpace(string(v))
	}
	return &s
}

func (r Resource) FormatValue() (string, bool) {
	if r.Format == nil {
		return "", false
	}
	return *r.Format, true
}

func (r Resource) URLValue() (string, bool) {
	if r.URL == nil {
		return "", false
	}
	return *r.URL, true
}

type Tag struct {
	DisplayName *string `json:"display_name"`
}

func (t Tag) Name() (string, bool) {
	if t.DisplayName == nil {
		return "", false
	}
	return *t.DisplayName, true
}

type Group struct {
	DisplayName *string `json:"display_name"`
}

func (g Group) Name() (string, bool) {
	if g.DisplayName == nil {
		return "", false
	}
	return *g.DisplayName, true
}

// ExtrasFor returns every value stored under key, in record order.
func (p *Package) ExtrasFor(key string) []string {
	var values []string
	for _, e := range p.Extras {
		if e.Key == key {
			values = append(values, e.Value)
		}
	}
	return values
}

// DecodePackage reads a package_show response body.
func DecodePackage(body []byte) (*Package, error) {
	var resp Response[*Package]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Result == nil {
		return nil, ErrNoResult
	}
	return resp.Result, nil
}
