package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for guard and recorder tests.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]Record
	getErr  error
	// failPKs makes Add fail for the listed partition keys.
	failPKs map[string]bool
	adds    []Key
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]Record{}, failPKs: map[string]bool{}}
}

func (f *fakeStore) Get(ctx context.Context, key Key) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return Record{}, false, f.getErr
	}
	rec, ok := f.records[key.PK()]
	return rec, ok, nil
}

func (f *fakeStore) Add(ctx context.Context, key Key, delta Delta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPKs[key.PK()] {
		return errors.New("add failed")
	}
	rec := f.records[key.PK()]
	rec.InvocationCount += delta.InvocationCount
	rec.InputTokens += delta.InputTokens
	rec.OutputTokens += delta.OutputTokens
	rec.TotalTokens += delta.TotalTokens
	f.records[key.PK()] = rec
	f.adds = append(f.adds, key)
	return nil
}

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestGuard_AllowsUnderBothLimits(t *testing.T) {
	store := newFakeStore()
	period := PeriodStart(testNow)
	store.records[UserKey("alice", "m", period).PK()] = Record{InvocationCount: 9}
	store.records[GlobalKey("m", period).PK()] = Record{InvocationCount: 99}

	guard := NewGuard(store, 10, 100)
	dec, err := guard.Admit(context.Background(), "alice", "m", testNow)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestGuard_MissingBucketsCountAsZero(t *testing.T) {
	guard := NewGuard(newFakeStore(), 1, 1)

	dec, err := guard.Admit(context.Background(), "alice", "m", testNow)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestGuard_UserLimitRejectsIndependently(t *testing.T) {
	store := newFakeStore()
	period := PeriodStart(testNow)
	store.records[UserKey("alice", "m", period).PK()] = Record{InvocationCount: 10}

	guard := NewGuard(store, 10, 1000)
	dec, err := guard.Admit(context.Background(), "alice", "m", testNow)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.NotEmpty(t, dec.Reason)
}

func TestGuard_GlobalLimitRejectsEvenWithZeroUserUsage(t *testing.T) {
	store := newFakeStore()
	period := PeriodStart(testNow)
	store.records[GlobalKey("m", period).PK()] = Record{InvocationCount: 1000}

	guard := NewGuard(store, 10, 1000)
	dec, err := guard.Admit(context.Background(), "brand-new-user", "m", testNow)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
}

func TestGuard_TokenCountersDoNotGate(t *testing.T) {
	store := newFakeStore()
	period := PeriodStart(testNow)
	store.records[UserKey("alice", "m", period).PK()] = Record{InvocationCount: 1, TotalTokens: 1 << 40}

	guard := NewGuard(store, 10, 1000)
	dec, err := guard.Admit(context.Background(), "alice", "m", testNow)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestGuard_StoreErrorIsHardFailure(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("table unavailable")

	guard := NewGuard(store, 10, 1000)
	_, err := guard.Admit(context.Background(), "alice", "m", testNow)
	assert.Error(t, err)
}
