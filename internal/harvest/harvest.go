// Package harvest compares the current catalog listing against an
// earlier snapshot and reports what was added and removed.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/turbolytics/ckandiff/internal"
	"github.com/turbolytics/ckandiff/internal/archive"
	"github.com/turbolytics/ckandiff/internal/catalog"
	"github.com/turbolytics/ckandiff/internal/ckan"
	"github.com/turbolytics/ckandiff/internal/extract"
	"github.com/turbolytics/ckandiff/internal/report"
	"github.com/turbolytics/ckandiff/internal/snapshot"
	"go.uber.org/zap"
)

// Portal is the subset of a CKAN catalog the harvester talks to.
type Portal interface {
	List(ctx context.Context) ([]string, []byte, error)
	Show(ctx context.Context, id string) (*ckan.Package, []byte, error)
	ShowURLFor(id string) string
}

type Option func(*Harvester)

func WithLogger(logger *zap.Logger) Option {
	return func(h *Harvester) {
		h.logger = logger
	}
}

func WithPortal(portal Portal) Option {
	return func(h *Harvester) {
		h.portal = portal
	}
}

func WithRepository(repository internal.Repository) Option {
	return func(h *Harvester) {
		h.repository = repository
	}
}

func WithArchive(a archive.Archive) Option {
	return func(h *Harvester) {
		h.archive = a
	}
}

func WithNotifier(n internal.Notifier) Option {
	return func(h *Harvester) {
		h.notifier = n
	}
}

func WithExtractOptions(opts extract.Options) Option {
	return func(h *Harvester) {
		h.extractOptions = opts
	}
}

// WithSkipMissing continues with the next identifier when a record can
// no longer be fetched instead of abandoning the rest of the batch.
func WithSkipMissing(skip bool) Option {
	return func(h *Harvester) {
		h.skipMissing = skip
	}
}

func WithReportOptions(opts ...report.Option) Option {
	return func(h *Harvester) {
		h.reportOptions = append(h.reportOptions, opts...)
	}
}

// WithStatus toggles the portal status report.
func WithStatus(enabled bool) Option {
	return func(h *Harvester) {
		h.status = enabled
	}
}

func WithPortalName(name string) Option {
	return func(h *Harvester) {
		h.portalName = name
	}
}

type Harvester struct {
	logger         *zap.Logger
	portal         Portal
	repository     internal.Repository
	archive        archive.Archive
	notifier       internal.Notifier
	extractOptions extract.Options
	reportOptions  []report.Option
	skipMissing    bool
	status         bool
	portalName     string
	now            func() time.Time
}

func New(opts ...Option) *Harvester {
	h := &Harvester{
		logger:         zap.NewNop(),
		archive:        archive.Nop{},
		notifier:       internal.NopNotifier{},
		extractOptions: extract.DefaultOptions(),
		status:         true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Harvester) store() *snapshot.Store {
	return snapshot.NewStore(h.repository, snapshot.WithLogger(h.logger))
}

// Snapshot fetches the current identifier list and stores it under date.
func (h *Harvester) Snapshot(ctx context.Context, date string) (*snapshot.Snapshot, error) {
	ids, body, err := h.portal.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	store := h.store()
	if err := store.SaveList(ctx, date, body); err != nil {
		return nil, err
	}

	current := snapshot.New(date, ids)
	if err := store.Save(ctx, current); err != nil {
		return nil, err
	}

	h.logger.Info("stored snapshot",
		zap.String("date", date),
		zap.Int("identifiers", current.Len()),
	)
	return current, nil
}

// Previous resolves the snapshot to compare against. An empty
// previousDate selects the newest snapshot stored before date.
func (h *Harvester) Previous(ctx context.Context, date, previousDate string) (*snapshot.Snapshot, error) {
	store := h.store()
	if previousDate == "" {
		latest, err := store.Latest(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("find snapshot before %s: %w", date, err)
		}
		previousDate = latest
	}
	return store.Load(ctx, previousDate)
}

// Run performs one full comparison for date and writes every report.
func (h *Harvester) Run(ctx context.Context, date, previousDate string) (*catalog.Catalog, error) {
	cat := &catalog.Catalog{
		ID:         uuid.New().String(),
		StartTime:  h.now(),
		Portal:     h.portalName,
		ReportDate: date,
	}
	l := h.logger.With(zap.String("run", cat.ID))

	current, err := h.Snapshot(ctx, date)
	if err != nil {
		return nil, err
	}

	previous, err := h.Previous(ctx, date, previousDate)
	if err != nil {
		return nil, err
	}

	changes := snapshot.Diff(previous, current)
	cat.PreviousDate = previous.Date
	cat.NumCurrent = current.Len()
	cat.NumPrevious = previous.Len()
	cat.NumAdded = len(changes.Added)
	cat.NumRemoved = len(changes.Removed)

	l.Info("compared snapshots",
		zap.String("previous_date", previous.Date),
		zap.Int("added", len(changes.Added)),
		zap.Int("removed", len(changes.Removed)),
	)

	if len(changes.Added) == 0 {
		l.Info("there is no new resource")
	}

	rows, err := h.fetch(ctx, l, date, changes.Added, cat)
	if err != nil {
		return nil, err
	}

	writer := report.New(h.repository, date, h.reportOptions...)
	if err := writer.NewItems(ctx, rows); err != nil {
		return nil, err
	}

	if h.status {
		if err := writer.Status(ctx, report.Status{
			Total:   current.Len(),
			New:     len(changes.Added),
			Deleted: len(changes.Removed),
		}); err != nil {
			return nil, err
		}
	}

	urls := make([]string, len(changes.Removed))
	for i, id := range changes.Removed {
		urls[i] = h.portal.ShowURLFor(id)
		if err := h.notifier.Notify(ctx, internal.Change{
			Op:          internal.OpDelete,
			Identifier:  id,
			ReportDate:  date,
			LandingPage: urls[i],
		}); err != nil {
			return nil, fmt.Errorf("notify %s: %w", id, err)
		}
	}

	if len(changes.Removed) == 0 {
		l.Info("there is no deleted resource")
		return cat, h.finish(ctx, cat, nil)
	}

	placeholders := make([]string, len(changes.Removed))
	err = writer.DeletedItems(ctx, placeholders, changes.Removed, urls)
	return cat, h.finish(ctx, cat, err)
}

// finish writes the run catalog. A failed run is recorded as incomplete
// and its error is returned.
func (h *Harvester) finish(ctx context.Context, cat *catalog.Catalog, runErr error) error {
	cat.EndTime = h.now()
	cat.Completed = runErr == nil
	if err := cat.Write(ctx, h.repository); err != nil {
		return errors.Join(runErr, fmt.Errorf("write catalog: %w", err))
	}
	return runErr
}

func (h *Harvester) fetch(ctx context.Context, l *zap.Logger, date string, added []string, cat *catalog.Catalog) ([][]string, error) {
	var rows [][]string

	for _, id := range added {
		l.Info("fetching record", zap.String("identifier", id))

		pkg, body, err := h.portal.Show(ctx, id)
		if errors.Is(err, ckan.ErrNotFound) {
			cat.NumMissing++
			l.Error("record could not be retrieved",
				zap.String("identifier", id),
				zap.String("url", h.portal.ShowURLFor(id)),
				zap.Error(err),
			)
			if h.skipMissing {
				continue
			}
			cat.Aborted = true
			cat.AbortedAt = id
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, err)
		}
		cat.NumFetched++

		if err := h.archive.Put(ctx, archive.Record{
			Identifier: id,
			Date:       date,
			FetchedAt:  h.now(),
			Body:       body,
		}); err != nil {
			return nil, fmt.Errorf("archive %s: %w", id, err)
		}

		row, res := extract.Extract(pkg, h.extractOptions)
		for _, d := range res.Degradations {
			l.Debug("extraction degraded",
				zap.String("identifier", id),
				zap.String("step", d.Step),
				zap.Error(d.Err),
			)
		}

		change := internal.Change{
			Op:          internal.OpCreate,
			Identifier:  id,
			ReportDate:  date,
			LandingPage: h.extractOptions.LandingURL + pkg.Name,
		}
		if res.Included {
			rows = append(rows, row.Values())
			cat.NumReported++
			change.Title = row.AlternativeTitle
			change.Genre = row.Genre
		} else {
			cat.NumExcluded++
		}

		if err := h.notifier.Notify(ctx, change); err != nil {
			return nil, fmt.Errorf("notify %s: %w", id, err)
		}
	}

	return rows, nil
}
