// Package report writes the new items, deleted items and portal status
// tables a curator reviews after a run.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"

	"github.com/turbolytics/ckandiff/internal"
	"github.com/turbolytics/ckandiff/internal/extract"
	"github.com/turbolytics/ckandiff/internal/parquet"
	"go.uber.org/zap"
)

var (
	DefaultDeletedFields = []string{"identifier", "resourceName", "landingPage"}
	StatusFields         = []string{"total", "new_items", "deleted_items"}
)

func NewItemsPath(date string) string {
	return path.Join("reports", fmt.Sprintf("allNewItems_%s.csv", date))
}

func DeletedItemsPath(date string) string {
	return path.Join("reports", fmt.Sprintf("allDeletedItems_%s.csv", date))
}

func StatusPath(date string) string {
	return path.Join("reports", fmt.Sprintf("portal_status_report_%s.csv", date))
}

type Option func(*Writer)

func WithLogger(l *zap.Logger) Option {
	return func(w *Writer) {
		w.logger = l
	}
}

// WithParquet also writes each table as a .parquet file next to the CSV.
func WithParquet(enabled bool) Option {
	return func(w *Writer) {
		w.parquet = enabled
	}
}

func WithFields(fields []string) Option {
	return func(w *Writer) {
		w.fields = fields
	}
}

func WithDeletedFields(fields []string) Option {
	return func(w *Writer) {
		w.deletedFields = fields
	}
}

type Writer struct {
	repository    internal.Repository
	date          string
	fields        []string
	deletedFields []string
	parquet       bool
	logger        *zap.Logger
}

func New(repository internal.Repository, date string, opts ...Option) *Writer {
	w := &Writer{
		repository:    repository,
		date:          date,
		fields:        extract.Fields,
		deletedFields: DefaultDeletedFields,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewItems writes one row per retained dataset under the canonical
// header, in the order given.
func (w *Writer) NewItems(ctx context.Context, rows [][]string) error {
	return w.table(ctx, NewItemsPath(w.date), w.fields, rows)
}

// DeletedItems zips the three columns positionally. Rows stop at the
// shortest column.
func (w *Writer) DeletedItems(ctx context.Context, placeholders, ids, urls []string) error {
	return w.table(ctx, DeletedItemsPath(w.date), w.deletedFields, Zip(placeholders, ids, urls))
}

type Status struct {
	Total   int
	New     int
	Deleted int
}

func (w *Writer) Status(ctx context.Context, s Status) error {
	return w.table(ctx, StatusPath(w.date), StatusFields, [][]string{{
		strconv.Itoa(s.Total),
		strconv.Itoa(s.New),
		strconv.Itoa(s.Deleted),
	}})
}

func (w *Writer) table(ctx context.Context, p string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}

	w.logger.Info("writing report",
		zap.String("path", p),
		zap.Int("rows", len(rows)),
	)
	if err := w.repository.Write(ctx, p, &buf); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	if !w.parquet {
		return nil
	}

	bs, err := parquet.StringSchema(header).Encode(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	pp := p[:len(p)-len(path.Ext(p))] + ".parquet"
	if err := w.repository.Write(ctx, pp, bytes.NewReader(bs)); err != nil {
		return fmt.Errorf("write %s: %w", pp, err)
	}
	return nil
}

// Zip builds rows from parallel columns, truncated to the shortest.
func Zip(columns ...[]string) [][]string {
	if len(columns) == 0 {
		return nil
	}
	n := len(columns[0])
	for _, c := range columns[1:] {
		n = min(n, len(c))
	}

	rows := make([][]string, n)
	for i := range rows {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = c[i]
		}
		rows[i] = row
	}
	return rows
}
