package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundtrip(t *testing.T) {
	store, err := New(Config{Enabled: true, Dir: t.TempDir()})
	require.NoError(t, err)

	miss, err := store.Get("abc")
	require.NoError(t, err)
	assert.Nil(t, miss)

	stamp := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := &Entry{Stamp: stamp, Payload: json.RawMessage(`{"doi": "10.5281/zenodo.123"}`)}
	require.NoError(t, store.Put("abc", entry))

	got, err := store.Get("abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Stamp.Equal(stamp))
	assert.JSONEq(t, string(entry.Payload), string(got.Payload))

	require.NoError(t, store.Delete("abc"))
	miss, err = store.Get("abc")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestFileStoreCorruptEntryIsAMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := New(Config{Enabled: true, Dir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	got, err := store.Get("bad")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreDeleteMissing(t *testing.T) {
	store, err := New(Config{Enabled: true, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, store.Delete("never-written"))
}

func TestFileStoreLock(t *testing.T) {
	store, err := New(Config{Enabled: true, Dir: t.TempDir()})
	require.NoError(t, err)

	release, err := store.Lock("abc")
	require.NoError(t, err)
	release()

	// relocking after release must succeed
	release, err = store.Lock("abc")
	require.NoError(t, err)
	release()
}

func TestDisabledStore(t *testing.T) {
	store, err := New(Config{Enabled: false})
	require.NoError(t, err)

	require.NoError(t, store.Put("abc", &Entry{Stamp: time.Now()}))
	got, err := store.Get("abc")
	require.NoError(t, err)
	assert.Nil(t, got)

	release, err := store.Lock("abc")
	require.NoError(t, err)
	release()
}
