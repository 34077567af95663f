package snapshot

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turbolytics/ckandiff/internal/local"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save then load", func(t *testing.T) {
		s := NewStore(local.New(t.TempDir()))
		require.NoError(t, s.Save(ctx, New("20200915", []string{"b", "a"})))

		snap, err := s.Load(ctx, "20200915")
		require.NoError(t, err)
		assert.Equal(t, "20200915", snap.Date)
		assert.Equal(t, []string{"a", "b"}, snap.IDs())
		assert.False(t, snap.Contains(header))
	})

	t.Run("load without header", func(t *testing.T) {
		repo := local.New(t.TempDir())
		require.NoError(t, repo.Write(ctx, Path("20200821"), strings.NewReader("x\ny\n")))

		snap, err := NewStore(repo).Load(ctx, "20200821")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, snap.IDs())
	})

	t.Run("missing snapshot", func(t *testing.T) {
		_, err := NewStore(local.New(t.TempDir())).Load(ctx, "19990101")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("latest earlier date", func(t *testing.T) {
		s := NewStore(local.New(t.TempDir()))
		for _, d := range []string{"20200701", "20200821", "20200915"} {
			require.NoError(t, s.Save(ctx, New(d, []string{"a"})))
		}
		require.NoError(t, s.SaveList(ctx, "20200901", []byte(`{}`)))

		d, err := s.Latest(ctx, "20200915")
		require.NoError(t, err)
		assert.Equal(t, "20200821", d)

		_, err = s.Latest(ctx, "20200701")
		assert.True(t, errors.Is(err, ErrNoPrevious))
	})
}
