package harvest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turbolytics/ckandiff/internal"
	"github.com/turbolytics/ckandiff/internal/archive"
	"github.com/turbolytics/ckandiff/internal/catalog"
	"github.com/turbolytics/ckandiff/internal/ckan"
	"github.com/turbolytics/ckandiff/internal/extract"
	"github.com/turbolytics/ckandiff/internal/local"
	"github.com/turbolytics/ckandiff/internal/snapshot"
)

const (
	anoka   = "us-mn-co-anoka-trans-roads"
	pdfOnly = "us-mn-state-pdf-only"
	shpOnly = "us-mn-state-dnr-lakes"
	missing = "us-mn-gone-missing"
	showURL = "https://example.test/api/3/action/package_show?id="
)

func packageBody(name, format string) []byte {
	return []byte(fmt.Sprintf(`{"success": true, "result": {
		"id": "id-%[1]s", "name": %[1]q, "title": "Title %[1]s", "notes": "",
		"resources": [{"format": %[2]q, "url": "https://example.test/%[1]s"}],
		"tags": [], "groups": [], "extras": []
	}}`, name, format))
}

type fakePortal struct {
	ids    []string
	bodies map[string][]byte
	errs   map[string]error
	shown  []string
}

func (p *fakePortal) List(ctx context.Context) ([]string, []byte, error) {
	body, err := json.Marshal(map[string]any{"success": true, "result": p.ids})
	return p.ids, body, err
}

func (p *fakePortal) Show(ctx context.Context, id string) (*ckan.Package, []byte, error) {
	p.shown = append(p.shown, id)
	if err, ok := p.errs[id]; ok {
		return nil, nil, err
	}
	body, ok := p.bodies[id]
	if !ok {
		return nil, nil, ckan.ErrNotFound
	}
	pkg, err := ckan.DecodePackage(body)
	return pkg, body, err
}

func (p *fakePortal) ShowURLFor(id string) string {
	return showURL + id
}

type recordingNotifier struct {
	changes []internal.Change
}

func (n *recordingNotifier) Notify(ctx context.Context, c internal.Change) error {
	n.changes = append(n.changes, c)
	return nil
}

func (n *recordingNotifier) Close(ctx context.Context) error { return nil }

// failingRepository rejects writes to one path.
type failingRepository struct {
	internal.Repository
	path string
}

func (r failingRepository) Write(ctx context.Context, p string, reader io.Reader) error {
	if p == r.path {
		return errors.New("disk full")
	}
	return r.Repository.Write(ctx, p, reader)
}

func readCSV(t *testing.T, repo internal.Repository, p string) [][]string {
	t.Helper()
	rc, err := repo.Read(context.Background(), p)
	require.NoError(t, err)
	defer rc.Close()
	records, err := csv.NewReader(rc).ReadAll()
	require.NoError(t, err)
	return records
}

func seed(t *testing.T, repo internal.Repository, date string, ids ...string) {
	t.Helper()
	require.NoError(t, snapshot.NewStore(repo).Save(context.Background(), snapshot.New(date, ids)))
}

func newFixture(t *testing.T) (*local.Repository, *fakePortal) {
	t.Helper()
	anokaBody, err := os.ReadFile("testdata/anoka_roads.json")
	require.NoError(t, err)

	return local.New(t.TempDir()), &fakePortal{
		bodies: map[string][]byte{
			anoka:   anokaBody,
			pdfOnly: packageBody(pdfOnly, "PDF"),
			shpOnly: packageBody(shpOnly, "SHP"),
		},
	}
}

func TestHarvesterRun(t *testing.T) {
	ctx := context.Background()

	t.Run("added and removed", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{"kept", pdfOnly, anoka}
		seed(t, repo, "20200901", "kept", "removed-b", "removed-a")

		notifier := &recordingNotifier{}
		h := New(
			WithPortal(portal),
			WithRepository(repo),
			WithArchive(archive.NewRepository(repo)),
			WithNotifier(notifier),
			WithPortalName("gisdata.mn.gov"),
		)

		cat, err := h.Run(ctx, "20200915", "")
		require.NoError(t, err)

		assert.Equal(t, "20200901", cat.PreviousDate)
		assert.Equal(t, 3, cat.NumCurrent)
		assert.Equal(t, 2, cat.NumAdded)
		assert.Equal(t, 2, cat.NumRemoved)
		assert.Equal(t, 2, cat.NumFetched)
		assert.Equal(t, 1, cat.NumReported)
		assert.Equal(t, 1, cat.NumExcluded)
		assert.False(t, cat.Aborted)
		assert.True(t, cat.Completed)
		assert.Equal(t, []string{anoka, pdfOnly}, portal.shown)

		newItems := readCSV(t, repo, "reports/allNewItems_20200915.csv")
		require.Len(t, newItems, 2)
		assert.Equal(t, extract.Fields, newItems[0])
		assert.Equal(t, "Anoka County Road Centerlines", newItems[1][1])
		assert.Equal(t, extract.GenreGeospatial, newItems[1][6])

		deleted := readCSV(t, repo, "reports/allDeletedItems_20200915.csv")
		assert.Equal(t, [][]string{
			{"identifier", "resourceName", "landingPage"},
			{"", "removed-a", showURL + "removed-a"},
			{"", "removed-b", showURL + "removed-b"},
		}, deleted)

		status := readCSV(t, repo, "reports/portal_status_report_20200915.csv")
		assert.Equal(t, []string{"3", "2", "2"}, status[1])

		current, err := snapshot.NewStore(repo).Load(ctx, "20200915")
		require.NoError(t, err)
		assert.Equal(t, []string{"kept", anoka, pdfOnly}, current.IDs())

		rc, err := repo.Read(ctx, archive.Path(anoka, "20200915"))
		require.NoError(t, err)
		archived, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Contains(t, string(archived), "Anoka County Road Centerlines")

		rc, err = repo.Read(ctx, catalog.Path("20200915"))
		require.NoError(t, err)
		var stored catalog.Catalog
		require.NoError(t, json.NewDecoder(rc).Decode(&stored))
		rc.Close()
		assert.Equal(t, cat.ID, stored.ID)

		require.Len(t, notifier.changes, 4)
		assert.Equal(t, internal.OpCreate, notifier.changes[0].Op)
		assert.Equal(t, extract.GenreGeospatial, notifier.changes[0].Genre)
		assert.Equal(t, internal.OpCreate, notifier.changes[1].Op)
		assert.Empty(t, notifier.changes[1].Genre)
		assert.Equal(t, internal.Change{
			Op:          internal.OpDelete,
			Identifier:  "removed-a",
			ReportDate:  "20200915",
			LandingPage: showURL + "removed-a",
		}, notifier.changes[2])
	})

	t.Run("zero deleted skips deleted report", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{"kept", shpOnly}
		seed(t, repo, "20200901", "kept")

		cat, err := New(WithPortal(portal), WithRepository(repo)).Run(ctx, "20200915", "20200901")
		require.NoError(t, err)
		assert.Equal(t, 1, cat.NumReported)

		assert.Len(t, readCSV(t, repo, "reports/allNewItems_20200915.csv"), 2)
		_, err = repo.Read(ctx, "reports/allDeletedItems_20200915.csv")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("no new resources still writes header", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{"kept"}
		seed(t, repo, "20200901", "kept", "removed")

		_, err := New(WithPortal(portal), WithRepository(repo)).Run(ctx, "20200915", "")
		require.NoError(t, err)

		assert.Equal(t, [][]string{extract.Fields}, readCSV(t, repo, "reports/allNewItems_20200915.csv"))
		assert.Len(t, readCSV(t, repo, "reports/allDeletedItems_20200915.csv"), 2)
		assert.Empty(t, portal.shown)
	})

	t.Run("missing record aborts remaining batch", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{missing, shpOnly, "kept"}
		seed(t, repo, "20200901", "kept", "removed")

		cat, err := New(WithPortal(portal), WithRepository(repo)).Run(ctx, "20200915", "")
		require.NoError(t, err)

		assert.True(t, cat.Aborted)
		assert.Equal(t, missing, cat.AbortedAt)
		assert.Equal(t, 1, cat.NumMissing)
		assert.Equal(t, []string{missing}, portal.shown)

		assert.Len(t, readCSV(t, repo, "reports/allNewItems_20200915.csv"), 1)
		assert.Len(t, readCSV(t, repo, "reports/allDeletedItems_20200915.csv"), 2)
	})

	t.Run("missing record skipped", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{missing, shpOnly}
		seed(t, repo, "20200901")

		cat, err := New(
			WithPortal(portal),
			WithRepository(repo),
			WithSkipMissing(true),
		).Run(ctx, "20200915", "")
		require.NoError(t, err)

		assert.False(t, cat.Aborted)
		assert.Equal(t, 1, cat.NumMissing)
		assert.Equal(t, 1, cat.NumReported)
		assert.Len(t, readCSV(t, repo, "reports/allNewItems_20200915.csv"), 2)
	})

	t.Run("other fetch errors fail the run", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{shpOnly}
		portal.errs = map[string]error{shpOnly: errors.New("connection reset")}
		seed(t, repo, "20200901")

		_, err := New(WithPortal(portal), WithRepository(repo)).Run(ctx, "20200915", "")
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("no earlier snapshot", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{shpOnly}

		_, err := New(WithPortal(portal), WithRepository(repo)).Run(ctx, "20200915", "")
		assert.ErrorIs(t, err, snapshot.ErrNoPrevious)
	})

	t.Run("failed deleted report leaves catalog incomplete", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{"kept"}
		seed(t, repo, "20200901", "kept", "removed")

		h := New(
			WithPortal(portal),
			WithRepository(failingRepository{Repository: repo, path: "reports/allDeletedItems_20200915.csv"}),
		)
		cat, err := h.Run(ctx, "20200915", "")
		assert.ErrorContains(t, err, "disk full")
		require.NotNil(t, cat)
		assert.False(t, cat.Completed)

		rc, err := repo.Read(ctx, catalog.Path("20200915"))
		require.NoError(t, err)
		defer rc.Close()
		var stored catalog.Catalog
		require.NoError(t, json.NewDecoder(rc).Decode(&stored))
		assert.False(t, stored.Completed)
		assert.Equal(t, 1, stored.NumRemoved)
	})

	t.Run("status counts every new identifier", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{missing, pdfOnly, shpOnly}
		seed(t, repo, "20200901")

		_, err := New(WithPortal(portal), WithRepository(repo)).Run(ctx, "20200915", "")
		require.NoError(t, err)

		status := readCSV(t, repo, "reports/portal_status_report_20200915.csv")
		assert.Equal(t, []string{"3", "3", "0"}, status[1])
		assert.Len(t, readCSV(t, repo, "reports/allNewItems_20200915.csv"), 1)
	})

	t.Run("status report disabled", func(t *testing.T) {
		repo, portal := newFixture(t)
		portal.ids = []string{"kept"}
		seed(t, repo, "20200901", "kept")

		_, err := New(WithPortal(portal), WithRepository(repo), WithStatus(false)).Run(ctx, "20200915", "")
		require.NoError(t, err)

		_, err = repo.Read(ctx, "reports/portal_status_report_20200915.csv")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})
}
