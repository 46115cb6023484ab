package usage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Recorder applies post-stream usage deltas to the user and global buckets.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder on the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record adds the same delta to the user and global buckets.
//
// The two updates run concurrently and are not wrapped in a cross-key
// transaction; if one succeeds and the other fails the counters diverge by
// one request's worth. That partial write is logged and swallowed: the chat
// response has already been sent, and bookkeeping must never block or fail
// a completed response.
func (r *Recorder) Record(ctx context.Context, subject, resource string, periodStart time.Time, delta Delta) {
	keys := []Key{
		UserKey(subject, resource, periodStart),
		GlobalKey(resource, periodStart),
	}

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key Key) {
			defer wg.Done()
			if err := r.store.Add(ctx, key, delta); err != nil {
				log.Error().
					Err(err).
					Str("bucket", key.PK()).
					Uint64("invocations", delta.InvocationCount).
					Uint64("total_tokens", delta.TotalTokens).
					Msg("usage: failed to record increment")
			}
		}(key)
	}
	wg.Wait()
}
