package heartbeat

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/registry"
)

type fakeTransport struct{ closed bool }

func (f *fakeTransport) SendText([]byte) error { return nil }
func (f *fakeTransport) Close() error           { f.closed = true; return nil }
func (f *fakeTransport) RemoteAddr() string     { return "test" }

func TestSweepHeartbeatLeavesLastHeartbeatUntouchedOnSuccess(t *testing.T) {
	reg := registry.New()
	connectedAt := time.Now().Add(-time.Minute)
	reg.Add("c1", &fakeTransport{}, connectedAt)

	sweepHeartbeat(reg, func(registry.Connection) error { return nil }, zap.NewNop())

	conn, ok := reg.Get("c1")
	if !ok {
		t.Fatal("expected connection to remain")
	}
	if !conn.LastHeartbeat.Equal(connectedAt) {
		t.Fatalf("expected last heartbeat untouched by a server-sent heartbeat, got %v (connected at %v)", conn.LastHeartbeat, connectedAt)
	}
}

func TestSweepHeartbeatRemovesOnSendFailure(t *testing.T) {
	reg := registry.New()
	reg.Add("c1", &fakeTransport{}, time.Now())

	sweepHeartbeat(reg, func(registry.Connection) error { return errors.New("broken pipe") }, zap.NewNop())

	if _, ok := reg.Get("c1"); ok {
		t.Fatal("expected connection removed after send failure")
	}
}

func TestSweepReapEvictsIdleConnections(t *testing.T) {
	reg := registry.New()
	now := time.Now()
	reg.Add("stale", &fakeTransport{}, now.Add(-10*time.Minute))
	reg.Add("fresh", &fakeTransport{}, now)

	sweepReap(reg, now, 5*time.Minute, zap.NewNop())

	if _, ok := reg.Get("stale"); ok {
		t.Fatal("expected stale connection reaped")
	}
	if _, ok := reg.Get("fresh"); !ok {
		t.Fatal("expected fresh connection retained")
	}
}
