package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
}

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "cache"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint("ГОСТ 12.1.004-91")

	assert.Equal(t, base, Fingerprint("  гост 12.1.004-91  "), "case and edge whitespace must not matter")
	assert.NotEqual(t, base, Fingerprint("ГОСТ 12.1.004-91."), "punctuation is part of the identity")
	assert.NotEqual(t, base, Fingerprint("12.1.004-91 ГОСТ"), "word order is part of the identity")
	assert.Len(t, base, 32)
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put("ГОСТ 2.105-95", payload{Status: "active", Confidence: 0.89}))

	var got payload
	require.True(t, store.GetInto("гост 2.105-95", &got), "lookup must be case-insensitive")
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, 0.89, got.Confidence)

	_, ok := store.Get("другой запрос")
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	store := openTestStore(t, 50*time.Millisecond)

	require.NoError(t, store.Put("старый", payload{Status: "expired"}))
	time.Sleep(80 * time.Millisecond)

	_, ok := store.Get("старый")
	assert.False(t, ok, "expired entry must read as a miss")

	// The expired read deletes the entry, so a purge finds nothing left.
	removed, err := store.PurgeExpired()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStorePurgeExpired(t *testing.T) {
	store := openTestStore(t, 50*time.Millisecond)

	require.NoError(t, store.Put("один", payload{}))
	require.NoError(t, store.Put("два", payload{}))
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, store.Put("свежий", payload{}))

	removed, err := store.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRecords)
}

func TestStoreAccessCounting(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put("популярный", payload{Status: "active"}))

	var got payload
	require.True(t, store.GetInto("популярный", &got))
	require.True(t, store.GetInto("популярный", &got))

	stats, err := store.Stats()
	require.NoError(t, err)
	require.Len(t, stats.PopularTop, 1)
	assert.Equal(t, 3, stats.PopularTop[0].AccessCount, "put seeds the counter at 1, each hit adds 1")

	// A fresh put overwrites the payload and resets the counter.
	require.NoError(t, store.Put("популярный", payload{Status: "expired"}))

	stats, err = store.Stats()
	require.NoError(t, err)
	require.Len(t, stats.PopularTop, 1)
	assert.Equal(t, 1, stats.PopularTop[0].AccessCount)

	require.True(t, store.GetInto("популярный", &got))
	assert.Equal(t, "expired", got.Status)
}

func TestStoreClear(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put("а", payload{}))
	require.NoError(t, store.Put("б", payload{}))
	require.NoError(t, store.Clear())

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRecords)
}

func TestStoreExport(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put("первый", payload{Status: "active"}))
	require.NoError(t, store.Put("второй", payload{Status: "expired"}))

	path := filepath.Join(t.TempDir(), "export.json")
	count, err := store.Export(path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.FileExists(t, path)
}

func TestStoreStatsRecent(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put("новый", payload{}))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Recent24h)
	assert.Equal(t, 1.0, stats.TTLHours)
}
