package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type Option func(*Repository)

type Repository struct {
	basePath string
	prefix   string
	logger   *zap.Logger
}

func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		r.prefix = prefix
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

func New(basePath string, opts ...Option) *Repository {
	r := &Repository{
		basePath: basePath,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) fullPath(key string) string {
	return filepath.Join(
		r.basePath,
		r.prefix,
		filepath.FromSlash(key),
	)
}

func (r *Repository) Write(ctx context.Context, key string, reader io.Reader) error {
	fullPath := r.fullPath(key)
	r.logger.Info("writing file", zap.String("path", fullPath))

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, reader)
	return err
}

func (r *Repository) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath := r.fullPath(key)
	r.logger.Debug("reading file", zap.String("path", fullPath))
	return os.Open(fullPath)
}

// List walks the directory holding prefix and returns every file whose
// repository path starts with prefix.
func (r *Repository) List(ctx context.Context, prefix string) ([]string, error) {
	root := filepath.Join(r.basePath, r.prefix)
	dir := r.fullPath(prefix)
	if !strings.HasSuffix(prefix, "/") {
		dir = filepath.Dir(dir)
	}

	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}
