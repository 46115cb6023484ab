// Package usage tracks per-month invocation and token counters and gates
// admission against monthly ceilings.
//
// DESIGN: counters live in an external key-value store under composite
// bucket keys:
//   - PK: USER#<subject>#<periodStart> or GLOBAL#<periodStart>
//   - SK: MODEL#<resource>
//
// A bucket covers exactly one calendar month by construction of the key; the
// key is recomputed from the wall clock on every request and never stored on
// its own. Counters only ever grow, and all mutation goes through atomic
// additive updates at the store so concurrent requests never lose an
// increment.
package usage

import (
	"fmt"
	"time"
)

// Scope identifies whose usage a bucket counts.
type Scope int

const (
	// ScopeUser counts a single subject's usage.
	ScopeUser Scope = iota
	// ScopeGlobal counts aggregate usage across all subjects.
	ScopeGlobal
)

// Key addresses one usage bucket.
type Key struct {
	Scope Scope
	// Subject is set only for ScopeUser.
	Subject     string
	PeriodStart time.Time
	// Resource is the model identifier the bucket is scoped to.
	Resource string
}

// UserKey builds the per-subject bucket key.
func UserKey(subject, resource string, periodStart time.Time) Key {
	return Key{Scope: ScopeUser, Subject: subject, PeriodStart: periodStart, Resource: resource}
}

// GlobalKey builds the aggregate bucket key.
func GlobalKey(resource string, periodStart time.Time) Key {
	return Key{Scope: ScopeGlobal, PeriodStart: periodStart, Resource: resource}
}

// PK returns the partition key string for the bucket.
func (k Key) PK() string {
	period := k.PeriodStart.Format(time.RFC3339)
	if k.Scope == ScopeGlobal {
		return "GLOBAL#" + period
	}
	return fmt.Sprintf("USER#%s#%s", k.Subject, period)
}

// SK returns the sort key string for the bucket.
func (k Key) SK() string {
	return "MODEL#" + k.Resource
}

// PeriodStart returns the start of the calendar month containing now, in UTC.
// Every timestamp within one month maps to the same bucket; the boundary
// rolls at month start.
func PeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Record holds the counters of one bucket. A missing bucket reads as the
// zero Record.
type Record struct {
	InvocationCount uint64 `json:"invocationCount"`
	InputTokens     uint64 `json:"inputTokens"`
	OutputTokens    uint64 `json:"outputTokens"`
	TotalTokens     uint64 `json:"totalTokens"`
}

// Delta is an additive update to a bucket's counters.
type Delta struct {
	InvocationCount uint64
	InputTokens     uint64
	OutputTokens    uint64
	TotalTokens     uint64
}
