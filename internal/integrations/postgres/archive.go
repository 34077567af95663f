package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/turbolytics/ckandiff/internal/archive"
	"go.uber.org/zap"
)

const createTable = `
CREATE TABLE IF NOT EXISTS ckan_records (
	identifier TEXT NOT NULL,
	fetch_date TEXT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	record JSONB NOT NULL,
	PRIMARY KEY (identifier, fetch_date)
)`

const upsertRecord = `
INSERT INTO ckan_records (identifier, fetch_date, fetched_at, record)
VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (identifier, fetch_date)
DO UPDATE SET fetched_at = EXCLUDED.fetched_at, record = EXCLUDED.record`

// Archive stores fetched records in the ckan_records table.
type Archive struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewArchive(ctx context.Context, connStr string, logger *zap.Logger) (*Archive, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create ckan_records: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("postgres archive connected")

	return &Archive{
		pool:   pool,
		logger: logger,
	}, nil
}

func (a *Archive) Put(ctx context.Context, rec archive.Record) error {
	if !json.Valid(rec.Body) {
		return fmt.Errorf("record %s is not valid JSON", rec.Identifier)
	}

	if _, err := a.pool.Exec(ctx, upsertRecord,
		rec.Identifier,
		rec.Date,
		rec.FetchedAt,
		string(rec.Body),
	); err != nil {
		return err
	}

	a.logger.Debug("archived record",
		zap.String("identifier", rec.Identifier),
		zap.String("fetch_date", rec.Date),
	)
	return nil
}

func (a *Archive) Close(ctx context.Context) error {
	a.pool.Close()
	return nil
}
