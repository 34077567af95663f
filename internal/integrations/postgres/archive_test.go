package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/turbolytics/ckandiff/internal/archive"
)

func TestIntegrationPostgresArchive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate pgContainer: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	a, err := NewArchive(ctx, connStr, nil)
	require.NoError(t, err)
	defer a.Close(ctx)

	rec := archive.Record{
		Identifier: "us-mn-state-dnr-lakes",
		Date:       "20200915",
		FetchedAt:  time.Now().UTC(),
		Body:       []byte(`{"success": true, "result": {"title": "Lakes"}}`),
	}
	require.NoError(t, a.Put(ctx, rec))

	rec.Body = []byte(`{"success": true, "result": {"title": "Lakes v2"}}`)
	require.NoError(t, a.Put(ctx, rec))

	assert.Error(t, a.Put(ctx, archive.Record{Identifier: "bad", Date: "20200915", Body: []byte("<html>")}))

	var count int
	require.NoError(t, a.pool.QueryRow(ctx, `SELECT count(*) FROM ckan_records`).Scan(&count))
	assert.Equal(t, 1, count)

	var title string
	require.NoError(t, a.pool.QueryRow(ctx,
		`SELECT record->'result'->>'title' FROM ckan_records WHERE identifier = $1 AND fetch_date = $2`,
		rec.Identifier, rec.Date,
	).Scan(&title))
	assert.Equal(t, "Lakes v2", title)
}
