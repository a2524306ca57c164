package registry

import (
	"testing"
	"time"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
)

type fakeTransport struct{}

func (fakeTransport) SendText(data []byte) error { return nil }
func (fakeTransport) Close() error               { return nil }
func (fakeTransport) RemoteAddr() string         { return "127.0.0.1:0" }

func TestAuthenticateInsertsUserIndex(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add("c1", fakeTransport{}, now)

	if err := r.Authenticate("c1", "u1", alert.TierPro); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	ids := r.ByUser("u1")
	if len(ids) != 1 || ids[0] != "c1" {
		t.Fatalf("expected [c1], got %v", ids)
	}
}

func TestAuthenticateIdempotent(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add("c1", fakeTransport{}, now)

	if err := r.Authenticate("c1", "u1", alert.TierPro); err != nil {
		t.Fatal(err)
	}
	if err := r.Authenticate("c1", "u1", alert.TierPro); err != nil {
		t.Fatal(err)
	}
	if n := r.CountForUser("u1"); n != 1 {
		t.Fatalf("expected 1 connection for u1, got %d", n)
	}
}

func TestRemoveCleansUserIndex(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add("c1", fakeTransport{}, now)
	if err := r.Authenticate("c1", "u1", alert.TierFree); err != nil {
		t.Fatal(err)
	}

	r.Remove("c1")

	if ids := r.ByUser("u1"); ids != nil {
		t.Fatalf("expected user index absent after remove, got %v", ids)
	}
	if _, ok := r.Get("c1"); ok {
		t.Fatal("expected connection removed")
	}
}

func TestUpdateThresholdsValidation(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add("c1", fakeTransport{}, now)

	good := alert.Thresholds{Low: 0.1, Medium: 0.4, High: 0.7}
	if err := r.UpdateThresholds("c1", good); err != nil {
		t.Fatalf("expected valid thresholds accepted: %v", err)
	}
	conn, _ := r.Get("c1")
	if conn.Thresholds != good {
		t.Fatalf("thresholds not applied: %+v", conn.Thresholds)
	}

	bad := alert.Thresholds{Low: 0.9, Medium: 0.5, High: 0.4}
	if err := r.UpdateThresholds("c1", bad); err != ErrInvalidThresholds {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
	conn, _ = r.Get("c1")
	if conn.Thresholds != good {
		t.Fatal("thresholds must be unchanged after rejected update")
	}
}

func TestIdleSince(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add("stale", fakeTransport{}, now.Add(-400*time.Second))
	r.Add("fresh", fakeTransport{}, now)

	idle := r.IdleSince(now.Add(-300 * time.Second))
	if len(idle) != 1 || idle[0] != "stale" {
		t.Fatalf("expected [stale], got %v", idle)
	}
}

func TestSnapshotIsPointInTime(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add("c1", fakeTransport{}, now)
	r.Add("c2", fakeTransport{}, now)

	snap := r.Snapshot()
	r.Remove("c1")

	if len(snap) != 2 {
		t.Fatalf("expected snapshot of 2, got %d", len(snap))
	}
	if r.Count() != 1 {
		t.Fatalf("expected live count 1 after remove, got %d", r.Count())
	}
}
