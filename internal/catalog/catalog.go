package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/turbolytics/ckandiff/internal"
)

/*
The catalog is a record of what a run processed.
It is written next to the reports so a curator can verify what was
compared, fetched and reported, and whether the run stopped early.
*/

// Catalog represents one comparison run
type Catalog struct {
	ID           string    `json:"id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Portal       string    `json:"portal"`
	ReportDate   string    `json:"report_date"`
	PreviousDate string    `json:"previous_date"`

	NumCurrent  int `json:"num_current"`
	NumPrevious int `json:"num_previous"`
	NumAdded    int `json:"num_added"`
	NumRemoved  int `json:"num_removed"`
	NumFetched  int `json:"num_fetched"`
	NumReported int `json:"num_reported"`
	NumExcluded int `json:"num_excluded"`
	NumMissing  int `json:"num_missing"`

	// Aborted is set when a missing record stopped the fetch loop.
	Aborted   bool   `json:"aborted"`
	AbortedAt string `json:"aborted_at,omitempty"`

	Completed bool `json:"completed"`
}

func Path(date string) string {
	return path.Join("reports", fmt.Sprintf("catalog_%s.json", date))
}

func (c *Catalog) Write(ctx context.Context, repository internal.Repository) error {
	bs, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return repository.Write(ctx, Path(c.ReportDate), bytes.NewReader(bs))
}
