// Package cache provides the on-disk metadata cache shared by the
// repository accessor. Each key holds one JSON payload together with the
// server timestamp it was harvested at.
package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached payload.
type Entry struct {
	// Stamp is the server-side timestamp the payload was current at.
	Stamp   time.Time       `json:"stamp"`
	Payload json.RawMessage `json:"payload"`
}

// Store is the cache backend interface. A miss is reported as (nil, nil).
type Store interface {
	Get(key string) (*Entry, error)
	Put(key string, e *Entry) error
	Delete(key string) error
	// Lock takes an exclusive advisory lock covering the key and returns
	// the release function.
	Lock(key string) (func(), error)
}

// Config selects and configures a cache backend.
type Config struct {
	// Enabled turns caching on. When false New returns a no-op store.
	Enabled bool
	// Dir is the backing directory of the file store.
	Dir string
}

// New creates the configured cache backend.
func New(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}
	return newFileStore(cfg.Dir)
}

// Disabled returns a store on which every lookup misses and every write is
// discarded.
func Disabled() Store {
	return disabledStore{}
}

type disabledStore struct{}

func (disabledStore) Get(string) (*Entry, error)  { return nil, nil }
func (disabledStore) Put(string, *Entry) error    { return nil }
func (disabledStore) Delete(string) error         { return nil }
func (disabledStore) Lock(string) (func(), error) { return func() {}, nil }
