package internal

import "context"

const (
	OpCreate = "c"
	OpDelete = "d"
)

// Change is a dataset appearing in or disappearing from the catalog
// between two report dates.
type Change struct {
	Op          string `json:"op"`
	Identifier  string `json:"identifier"`
	ReportDate  string `json:"report_date"`
	Title       string `json:"title,omitempty"`
	Genre       string `json:"genre,omitempty"`
	LandingPage string `json:"landing_page"`
}

// Notifier publishes changes to downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
	// Close delivers anything still buffered.
	Close(ctx context.Context) error
}

// NopNotifier drops every change.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, change Change) error { return nil }
func (NopNotifier) Close(ctx context.Context) error                 { return nil }
