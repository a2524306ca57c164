package delivery

import (
	"testing"
	"time"
)

func TestConfirmRestrictedToTargets(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.Track("a1", []string{"u1", "u2"}, now)

	tr.Confirm("a1", "u1")
	tr.Confirm("a1", "not-a-target")

	status, ok := tr.Status("a1")
	if !ok {
		t.Fatal("expected status present")
	}
	if _, ok := status.Delivered["u1"]; !ok {
		t.Fatal("expected u1 delivered")
	}
	if _, ok := status.Delivered["not-a-target"]; ok {
		t.Fatal("delivered must be a subset of targets (invariant 5)")
	}
	for u := range status.Delivered {
		if _, isTarget := status.Targets[u]; !isTarget {
			t.Fatalf("delivered user %s is not a target", u)
		}
	}
}

func TestStatusRateAndPending(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.Track("a1", []string{"u1", "u2"}, now)
	tr.Confirm("a1", "u1")

	status, _ := tr.Status("a1")
	if status.Rate != 0.5 {
		t.Fatalf("expected rate 0.5, got %v", status.Rate)
	}
	if _, pending := status.Pending["u2"]; !pending {
		t.Fatal("expected u2 pending")
	}
}

func TestGCDropsOldRecords(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.Track("old", []string{"u1"}, now.Add(-25*time.Hour))
	tr.Track("new", []string{"u1"}, now)

	dropped := tr.GC(now, 24*time.Hour)
	if dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	if _, ok := tr.Status("old"); ok {
		t.Fatal("expected old record gone")
	}
	if _, ok := tr.Status("new"); !ok {
		t.Fatal("expected new record retained")
	}
}

func TestAllStatusesReturnsEveryLiveRecord(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.Track("a1", []string{"u1", "u2"}, now)
	tr.Track("a2", []string{"u3"}, now)
	tr.Confirm("a1", "u1")

	statuses := tr.AllStatuses()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	byID := make(map[string]Status)
	for _, s := range statuses {
		byID[s.AlertID] = s
	}
	if byID["a1"].Rate != 0.5 {
		t.Fatalf("expected a1 rate 0.5, got %v", byID["a1"].Rate)
	}
}
