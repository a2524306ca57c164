// Package heartbeat runs the Heartbeat & Reaper tasks (§4.B) as two
// independently cancellable goroutines on their own periods. Grounded
// on the teacher's hub.go ticker-driven background loops (the
// cleanupNonces ticker in particular), split into two tasks because
// the two sweeps run on different periods and must be independently
// observable/cancellable.
package heartbeat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/clock"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/registry"
)

// Sender is the minimal capability the heartbeat task needs to push a
// server heartbeat frame to a connection. cmd/alertcored supplies one
// that encodes the heartbeat message and calls the connection's
// registry.Transport.SendText; kept as a function type here so this
// package does not need to import the push protocol's message encoding.
type Sender func(conn registry.Connection) error

// Heartbeat runs until ctx is canceled, sending a heartbeat frame to
// every live connection once per interval. A send failure is treated
// as a dead connection and removed immediately (§4.B). A successful
// send does NOT refresh last_heartbeat — that field only moves on the
// client's own heartbeat message (§4.H step 6); otherwise the idle
// reaper could never evict a connection the server can still enqueue
// writes to but whose client has stopped responding.
func Heartbeat(ctx context.Context, reg *registry.Registry, clk clock.Clock, interval time.Duration, send Sender, log *zap.Logger) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			sweepHeartbeat(reg, send, log)
		}
	}
}

func sweepHeartbeat(reg *registry.Registry, send Sender, log *zap.Logger) {
	for _, conn := range reg.Snapshot() {
		if err := send(conn); err != nil {
			log.Info("heartbeat send failed, dropping connection",
				zap.String("connection_id", conn.ID), zap.Error(err))
			reg.Remove(conn.ID)
		}
	}
}

// Reaper runs until ctx is canceled, evicting connections whose last
// heartbeat is older than idleTimeout once per interval (§4.B, §3
// invariant on connection idle timeout).
func Reaper(ctx context.Context, reg *registry.Registry, clk clock.Clock, interval, idleTimeout time.Duration, log *zap.Logger) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			sweepReap(reg, now, idleTimeout, log)
		}
	}
}

func sweepReap(reg *registry.Registry, now time.Time, idleTimeout time.Duration, log *zap.Logger) {
	cutoff := now.Add(-idleTimeout)
	idle := reg.IdleSince(cutoff)
	for _, id := range idle {
		log.Info("reaping idle connection", zap.String("connection_id", id))
		reg.Remove(id)
	}
}
