package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
)

// fileStore keeps one JSON file per key in a flat directory. Concurrent
// access across processes is coordinated with an advisory lock file next to
// each entry.
type fileStore struct {
	dir string
}

func newFileStore(dir string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *fileStore) Get(key string) (*Entry, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// a corrupt entry is treated as a miss and rewritten on the
		// next Put
		logging.Warnf("Discarding corrupt cache entry %s: %v", key, err)
		return nil, nil
	}
	return &e, nil
}

func (s *fileStore) Put(key string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("committing cache entry %s: %w", key, err)
	}
	return nil
}

func (s *fileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *fileStore) Lock(key string) (func(), error) {
	fl := flock.New(filepath.Join(s.dir, key+".lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking cache entry %s: %w", key, err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			logging.Warnf("Releasing cache lock for %s: %v", key, err)
		}
	}, nil
}
