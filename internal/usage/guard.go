package usage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool
	// Reason is set when the request is rejected; it is safe to show to
	// the caller.
	Reason string
}

// Guard admits or rejects requests against the per-user and global monthly
// invocation ceilings.
type Guard struct {
	store       Store
	userLimit   uint64
	globalLimit uint64
}

// NewGuard creates a Guard with the configured ceilings.
func NewGuard(store Store, userLimit, globalLimit uint64) *Guard {
	return &Guard{store: store, userLimit: userLimit, globalLimit: globalLimit}
}

// Admit checks both ceilings for the current calendar-month bucket.
//
// Only the invocation count gates admission; token counters are
// informational. The user and global lookups are independent and run
// concurrently. A missing bucket counts as zero. A store read failure is a
// hard error: the request must fail rather than silently bypass quota.
func (g *Guard) Admit(ctx context.Context, subject, resource string, now time.Time) (Decision, error) {
	period := PeriodStart(now)

	var userRec, globalRec Record
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rec, _, err := g.store.Get(ctx, UserKey(subject, resource, period))
		userRec = rec
		return err
	})
	eg.Go(func() error {
		rec, _, err := g.store.Get(ctx, GlobalKey(resource, period))
		globalRec = rec
		return err
	})
	if err := eg.Wait(); err != nil {
		return Decision{}, fmt.Errorf("quota lookup: %w", err)
	}

	if userRec.InvocationCount >= g.userLimit || globalRec.InvocationCount >= g.globalLimit {
		return Decision{
			Allowed: false,
			Reason:  "User has exceeded the user or global monthly usage limit",
		}, nil
	}
	return Decision{Allowed: true}, nil
}
