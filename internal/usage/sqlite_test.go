package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_AbsentBucket(t *testing.T) {
	store := openTestStore(t)
	key := UserKey("alice", "m", PeriodStart(testNow))

	rec, ok, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Record{}, rec)
}

func TestSQLiteStore_AddCreatesBucket(t *testing.T) {
	store := openTestStore(t)
	key := UserKey("alice", "m", PeriodStart(testNow))

	delta := Delta{InvocationCount: 1, InputTokens: 10, OutputTokens: 20, TotalTokens: 30}
	require.NoError(t, store.Add(context.Background(), key, delta))

	rec, ok, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Record{InvocationCount: 1, InputTokens: 10, OutputTokens: 20, TotalTokens: 30}, rec)
}

func TestSQLiteStore_AddIsAdditive(t *testing.T) {
	store := openTestStore(t)
	key := GlobalKey("m", PeriodStart(testNow))
	delta := Delta{InvocationCount: 1, InputTokens: 5, OutputTokens: 7, TotalTokens: 12}

	// The same delta applied twice must yield exactly double the counters.
	require.NoError(t, store.Add(context.Background(), key, delta))
	require.NoError(t, store.Add(context.Background(), key, delta))

	rec, _, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, Record{InvocationCount: 2, InputTokens: 10, OutputTokens: 14, TotalTokens: 24}, rec)
}

func TestSQLiteStore_BucketsAreIsolated(t *testing.T) {
	store := openTestStore(t)
	period := PeriodStart(testNow)

	require.NoError(t, store.Add(context.Background(), UserKey("alice", "m", period), Delta{InvocationCount: 1}))
	require.NoError(t, store.Add(context.Background(), UserKey("bob", "m", period), Delta{InvocationCount: 2}))

	alice, _, err := store.Get(context.Background(), UserKey("alice", "m", period))
	require.NoError(t, err)
	bob, _, err := store.Get(context.Background(), UserKey("bob", "m", period))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), alice.InvocationCount)
	assert.Equal(t, uint64(2), bob.InvocationCount)
}

func TestSQLiteStore_MonthRolloverStartsFresh(t *testing.T) {
	store := openTestStore(t)
	jan := time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC)
	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Add(context.Background(), GlobalKey("m", PeriodStart(jan)), Delta{InvocationCount: 50}))

	rec, ok, err := store.Get(context.Background(), GlobalKey("m", PeriodStart(feb)))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, rec.InvocationCount)
}
