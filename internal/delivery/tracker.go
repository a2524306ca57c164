// Package delivery is the Delivery Tracker (§4.E): per-alert
// target-set vs delivered-set accounting with TTL cleanup. Grounded on
// the teacher's hub.go seenNonces map + cleanupNonces ticker (a
// TTL-keyed map with periodic GC), generalized from a dedup set to a
// target/delivered pair per alert.
package delivery

import (
	"sync"
	"time"
)

// Status is the snapshot returned by Status: target/delivered sets,
// the derived pending set, delivery rate, and creation time.
type Status struct {
	AlertID     string
	Targets     map[string]struct{}
	Delivered   map[string]struct{}
	Pending     map[string]struct{}
	Rate        float64
	CreatedAt   time.Time
}

type record struct {
	targets   map[string]struct{}
	delivered map[string]struct{}
	createdAt time.Time
}

// Tracker holds one record per in-flight alert_id.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*record
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{records: make(map[string]*record)}
}

// Track creates a delivery record for alertID with the given target
// user set and no deliveries yet confirmed (§3: delivered_users ⊆
// target_users, invariant 5).
func (t *Tracker) Track(alertID string, targets []string, now time.Time) {
	set := make(map[string]struct{}, len(targets))
	for _, u := range targets {
		set[u] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[alertID] = &record{
		targets:   set,
		delivered: make(map[string]struct{}),
		createdAt: now,
	}
}

// Confirm records userID as delivered for alertID, but only if userID
// is a member of the original target set (invariant 5 is preserved by
// construction: Confirm can never grow delivered beyond targets).
func (t *Tracker) Confirm(alertID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[alertID]
	if !ok {
		return
	}
	if _, isTarget := rec.targets[userID]; !isTarget {
		return
	}
	rec.delivered[userID] = struct{}{}
}

// Status returns the current delivery status for alertID, or false if
// no record exists (e.g. already GC'd).
func (t *Tracker) Status(alertID string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[alertID]
	if !ok {
		return Status{}, false
	}

	pending := make(map[string]struct{})
	for u := range rec.targets {
		if _, delivered := rec.delivered[u]; !delivered {
			pending[u] = struct{}{}
		}
	}

	rate := 0.0
	if len(rec.targets) > 0 {
		rate = float64(len(rec.delivered)) / float64(len(rec.targets))
	}

	return Status{
		AlertID:   alertID,
		Targets:   copySet(rec.targets),
		Delivered: copySet(rec.delivered),
		Pending:   pending,
		Rate:      rate,
		CreatedAt: rec.createdAt,
	}, true
}

// AllStatuses returns the current Status of every live record, for
// callers that want to observe final delivery rates before a GC pass
// drops them.
func (t *Tracker) AllStatuses() []Status {
	t.mu.Lock()
	ids := make([]string, 0, len(t.records))
	for id := range t.records {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	out := make([]Status, 0, len(ids))
	for _, id := range ids {
		if s, ok := t.Status(id); ok {
			out = append(out, s)
		}
	}
	return out
}

// GC drops records older than maxAge (default 24h, §4.E).
func (t *Tracker) GC(now time.Time, maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-maxAge)
	dropped := 0
	for id, rec := range t.records {
		if rec.createdAt.Before(cutoff) {
			delete(t.records, id)
			dropped++
		}
	}
	return dropped
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
