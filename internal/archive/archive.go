// Package archive keeps a verbatim copy of every fetched metadata record,
// keyed by identifier and fetch date, for later audit.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/turbolytics/ckandiff/internal"
	"go.uber.org/zap"
)

type Record struct {
	Identifier string
	Date       string
	FetchedAt  time.Time
	// Body is the package_show response as received.
	Body []byte
}

type Archive interface {
	Put(ctx context.Context, rec Record) error
	Close(ctx context.Context) error
}

// Path is where the record of id fetched on date lives in a repository.
func Path(id, date string) string {
	return path.Join("jsons", fmt.Sprintf("%s_%s.json", id, date))
}

type Option func(*Repository)

func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// Repository archives records as JSON files in a repository.
type Repository struct {
	repository internal.Repository
	logger     *zap.Logger
}

func NewRepository(repository internal.Repository, opts ...Option) *Repository {
	r := &Repository{
		repository: repository,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Put(ctx context.Context, rec Record) error {
	p := Path(rec.Identifier, rec.Date)
	r.logger.Debug("archiving record",
		zap.String("identifier", rec.Identifier),
		zap.String("path", p),
	)
	return r.repository.Write(ctx, p, bytes.NewReader(rec.Body))
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}

// Nop discards records.
type Nop struct{}

func (Nop) Put(ctx context.Context, rec Record) error { return nil }
func (Nop) Close(ctx context.Context) error           { return nil }
