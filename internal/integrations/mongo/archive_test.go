package mongo

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/turbolytics/ckandiff/internal/archive"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "us-mn-state-dnr-lakes_20200915", DocumentID("us-mn-state-dnr-lakes", "20200915"))
}

func TestIntegrationMongoArchive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx,
		"mongo:6",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate mongoContainer: %s", err)
		}
	})

	connStr, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	uri, err := url.Parse(connStr)
	require.NoError(t, err)
	uri.Path = "/archive_test"
	q := uri.Query()
	q.Set("collection", "records")
	uri.RawQuery = q.Encode()

	a, err := NewArchive(ctx, uri, nil)
	require.NoError(t, err)
	defer a.Close(ctx)

	rec := archive.Record{
		Identifier: "us-mn-state-dnr-lakes",
		Date:       "20200915",
		FetchedAt:  time.Now().UTC(),
		Body:       []byte(`{"success": true, "result": {"name": "us-mn-state-dnr-lakes", "title": "Lakes"}}`),
	}
	require.NoError(t, a.Put(ctx, rec))

	// Archiving the same record twice replaces it.
	rec.Body = []byte(`{"success": true, "result": {"name": "us-mn-state-dnr-lakes", "title": "Lakes v2"}}`)
	require.NoError(t, a.Put(ctx, rec))

	n, err := a.collection.CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got struct {
		Identifier string `bson:"identifier"`
		FetchDate  string `bson:"fetch_date"`
		Record     struct {
			Result struct {
				Title string `bson:"title"`
			} `bson:"result"`
		} `bson:"record"`
	}
	require.NoError(t, a.collection.FindOne(ctx, bson.M{"_id": DocumentID(rec.Identifier, rec.Date)}).Decode(&got))
	assert.Equal(t, "us-mn-state-dnr-lakes", got.Identifier)
	assert.Equal(t, "20200915", got.FetchDate)
	assert.Equal(t, "Lakes v2", got.Record.Result.Title)
}
