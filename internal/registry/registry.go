// Package registry is the in-memory Connection Registry (§4.A): the
// live set of push connections, their auth/tier/threshold state, and
// the user_id -> connection_ids index. Grounded on the teacher's
// pkg/websocket/hub.go clients map, generalized from a single
// hub-goroutine-owned map to a directly callable, mutex-guarded
// registry so broadcast, the push endpoint, and the heartbeat/reaper
// tasks can all call it concurrently.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
)

// ErrInvalidThresholds is returned by UpdateThresholds when the
// candidate triple fails the monotonicity/range invariant (§3 invariant 3).
var ErrInvalidThresholds = errors.New("registry: thresholds must be in [0,1] and low <= medium <= high")

// ErrNotFound is returned when an operation names an unknown connection_id.
var ErrNotFound = errors.New("registry: connection not found")

// Transport is the capability a push connection exposes to the
// registry/broadcast engine: send a text frame, or close the
// underlying link. Concrete transports (gorilla/websocket) implement
// this in internal/push; the registry never imports a transport
// library directly, per the teacher's Design Notes on duck-typed
// transport capabilities.
type Transport interface {
	SendText(data []byte) error
	Close() error
	RemoteAddr() string
}

// Connection is one live push connection and its mutable state. All
// fields besides ID and ConnectedAt are guarded by the owning
// Registry's mutex during mutation.
type Connection struct {
	ID             string
	UserID         string
	Tier           alert.Tier
	Thresholds     alert.Thresholds
	ConnectedAt    time.Time
	LastHeartbeat  time.Time
	Authenticated  bool
	Transport      Transport
}

// Registry is the single source of truth for live connections. Every
// operation is serialized behind mu; readers that need to perform I/O
// must take a Snapshot first and release the lock before sending, per
// the "no lock across a suspension" discipline (§5).
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	byUser      map[string]map[string]struct{}
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		byUser:      make(map[string]map[string]struct{}),
	}
}

// Add registers a brand-new connection with default state (FREE,
// unauthenticated, default thresholds) and returns it. The caller
// supplies the connection_id (generated by the push endpoint) and the
// transport handle.
func (r *Registry) Add(id string, transport Transport, now time.Time) *Connection {
	conn := &Connection{
		ID:            id,
		Tier:          alert.TierFree,
		Thresholds:    alert.DefaultThresholds(),
		ConnectedAt:   now,
		LastHeartbeat: now,
		Transport:     transport,
	}

	r.mu.Lock()
	r.connections[id] = conn
	r.mu.Unlock()
	return conn
}

// Remove deletes the connection and, if authenticated, cleans its
// entry out of the user index (invariant 1: removal is atomic across
// both maps; invariant 2: empty user sets are removed).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) {
	conn, ok := r.connections[id]
	if !ok {
		return
	}
	delete(r.connections, id)

	if conn.Authenticated && conn.UserID != "" {
		set := r.byUser[conn.UserID]
		delete(set, id)
		if len(set) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
}

// Get returns a copy of the connection's current state and whether it
// was found. The returned Transport is shared (it is a handle, not
// mutable state).
func (r *Registry) Get(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[id]
	if !ok {
		return Connection{}, false
	}
	return *conn, true
}

// Snapshot returns a point-in-time copy of every live connection. The
// broadcast engine and heartbeat/reaper tasks use this to enumerate
// without holding the lock during I/O, mirroring the teacher's
// broadcastMessage (which ranges h.clients while only the hub
// goroutine can mutate it; here any goroutine may call Snapshot).
func (r *Registry) Snapshot() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.connections))
	for _, c := range r.connections {
		out = append(out, *c)
	}
	return out
}

// Authenticate marks a connection authenticated for userID/tier and
// inserts it into the user->connections index. Idempotent when called
// again with the same userID.
func (r *Registry) Authenticate(id, userID string, tier alert.Tier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[id]
	if !ok {
		return ErrNotFound
	}

	if conn.Authenticated && conn.UserID != "" && conn.UserID != userID {
		// Re-authenticating as a different user: remove the stale index entry first.
		if set := r.byUser[conn.UserID]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(r.byUser, conn.UserID)
			}
		}
	}

	conn.UserID = userID
	conn.Tier = tier
	conn.Authenticated = true

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[userID] = set
	}
	set[id] = struct{}{}

	return nil
}

// UpdateThresholds validates and applies a new threshold triple for a
// connection (§4.A update_thresholds). On validation failure, the
// connection's thresholds are left untouched.
func (r *Registry) UpdateThresholds(id string, t alert.Thresholds) error {
	if !t.Valid() {
		return ErrInvalidThresholds
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[id]
	if !ok {
		return ErrNotFound
	}
	conn.Thresholds = t
	return nil
}

// Touch updates a connection's last-heartbeat timestamp.
func (r *Registry) Touch(id string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.connections[id]; ok {
		conn.LastHeartbeat = now
	}
}

// ByUser returns the set of connection_ids currently authenticated for
// userID, or nil if none.
func (r *Registry) ByUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Count returns the total number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// CountAuthenticated returns the number of authenticated live connections.
func (r *Registry) CountAuthenticated() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.connections {
		if c.Authenticated {
			n++
		}
	}
	return n
}

// CountForUser returns how many live connections userID currently has.
func (r *Registry) CountForUser(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// IdleSince returns the connection_ids whose last heartbeat is older
// than cutoff, for the reaper sweep (§4.B).
func (r *Registry) IdleSince(cutoff time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for id, c := range r.connections {
		if c.LastHeartbeat.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}
