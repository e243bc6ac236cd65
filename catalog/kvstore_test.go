package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKV(t *testing.T, limit int64) *KVStore {
	t.Helper()
	store, err := OpenKV(filepath.Join(t.TempDir(), "kv.db"), limit)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestKVRoundTrip(t *testing.T) {
	store := openTestKV(t, 0)

	got, err := store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Set("a", []byte("hello")))
	got, err = store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	// Overwrite replaces, not appends.
	require.NoError(t, store.Set("a", []byte("world!")))
	got, err = store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("world!"), got)
}

func TestKVSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	store, err := OpenKV(path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Set("k", []byte("durable")))
	store.TransientSet("k", []byte("session"))
	require.NoError(t, store.Close())

	store, err = OpenKV(path, 0)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), got)
	assert.Nil(t, store.TransientGet("k"))
}

func TestKVCeiling(t *testing.T) {
	store := openTestKV(t, 32)

	require.NoError(t, store.Set("a", []byte("small")))

	err := store.Set("b", make([]byte, 100))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// Failed write leaves the namespace untouched.
	got, err := store.Get("b")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Overwriting an existing key only counts the delta, so shrinking a value
	// is always allowed.
	require.NoError(t, store.Set("a", []byte("s")))
}

func TestKVUsedBytes(t *testing.T) {
	store := openTestKV(t, 0)

	used, err := store.UsedBytes()
	require.NoError(t, err)
	assert.Zero(t, used)

	require.NoError(t, store.Set("key", []byte("value")))
	used, err = store.UsedBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(len("key")+len("value")), used)

	n, err := store.ValueSize("key")
	require.NoError(t, err)
	assert.Equal(t, int64(len("value")), n)

	n, err = store.ValueSize("absent")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKVRemoveAndClear(t *testing.T) {
	store := openTestKV(t, 0)

	require.NoError(t, store.Set("a", []byte("1")))
	require.NoError(t, store.Set("b", []byte("2")))
	store.TransientSet("t", []byte("3"))

	require.NoError(t, store.Remove("a"))
	require.NoError(t, store.Remove("a")) // absent key is a no-op
	got, err := store.Get("a")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.ClearAll())
	used, err := store.UsedBytes()
	require.NoError(t, err)
	assert.Zero(t, used)
	assert.Nil(t, store.TransientGet("t"))
}

func TestKVTransientNamespace(t *testing.T) {
	store := openTestKV(t, 16)

	// Transient writes bypass the durable ceiling entirely.
	store.TransientSet("big", make([]byte, 1<<20))
	assert.Len(t, store.TransientGet("big"), 1<<20)

	used, err := store.UsedBytes()
	require.NoError(t, err)
	assert.Zero(t, used)

	store.TransientRemove("big")
	assert.Nil(t, store.TransientGet("big"))
}
