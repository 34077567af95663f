package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/turbolytics/ckandiff/internal"
	"go.uber.org/zap"
)

const (
	dir    = "resource"
	header = "result"
)

var ErrNoPrevious = errors.New("no earlier snapshot stored")

// Path is where the snapshot of date lives in a repository.
func Path(date string) string {
	return path.Join(dir, fmt.Sprintf("resource_%s.csv", date))
}

// ListPath is where the verbatim package_list response of date lives.
func ListPath(date string) string {
	return path.Join(dir, fmt.Sprintf("package_list_%s.json", date))
}

type StoreOption func(*Store)

func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// Store persists snapshots as single column CSV files, one per date.
type Store struct {
	repository internal.Repository
	logger     *zap.Logger
}

func NewStore(repository internal.Repository, opts ...StoreOption) *Store {
	s := &Store{
		repository: repository,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{header}); err != nil {
		return err
	}
	for _, id := range snap.IDs() {
		if err := w.Write([]string{id}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	s.logger.Info("saving snapshot",
		zap.String("date", snap.Date),
		zap.Int("identifiers", snap.Len()),
	)
	return s.repository.Write(ctx, Path(snap.Date), &buf)
}

// SaveList keeps the raw package_list response next to the snapshot.
func (s *Store) SaveList(ctx context.Context, date string, body []byte) error {
	return s.repository.Write(ctx, ListPath(date), bytes.NewReader(body))
}

// Load reads the snapshot of date. Files written without the header row
// are accepted.
func (s *Store) Load(ctx context.Context, date string) (*Snapshot, error) {
	rc, err := s.repository.Read(ctx, Path(date))
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", date, err)
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1

	var ids []string
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", date, err)
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == header {
				continue
			}
		}
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		ids = append(ids, rec[0])
	}

	s.logger.Info("loaded snapshot",
		zap.String("date", date),
		zap.Int("identifiers", len(ids)),
	)
	return New(date, ids), nil
}

// Latest returns the most recent stored date strictly before date.
// Dates are YYYYMMDD so they order lexically.
func (s *Store) Latest(ctx context.Context, before string) (string, error) {
	keys, err := s.repository.List(ctx, dir+"/resource_")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	latest := ""
	for _, k := range keys {
		base := path.Base(k)
		if !strings.HasPrefix(base, "resource_") || !strings.HasSuffix(base, ".csv") {
			continue
		}
		d := strings.TrimSuffix(strings.TrimPrefix(base, "resource_"), ".csv")
		if d >= before {
			continue
		}
		if d > latest {
			latest = d
		}
	}
	if latest == "" {
		return "", fmt.Errorf("before %s: %w", before, ErrNoPrevious)
	}
	return latest, nil
}
