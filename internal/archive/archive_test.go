package archive

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turbolytics/ckandiff/internal/local"
)

func TestRepositoryPut(t *testing.T) {
	ctx := context.Background()
	repo := local.New(t.TempDir())
	a := NewRepository(repo)

	body := []byte(`{"success": true, "result": {"id": "x"}}`)
	require.NoError(t, a.Put(ctx, Record{
		Identifier: "us-mn-state-dnr-lakes",
		Date:       "20200915",
		FetchedAt:  time.Now(),
		Body:       body,
	}))

	rc, err := repo.Read(ctx, "jsons/us-mn-state-dnr-lakes_20200915.json")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}
