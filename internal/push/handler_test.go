package push

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/auth"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/broadcast"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/clock"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/delivery"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/protocol"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/queue"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/registry"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/repository"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/webhook"
)

type fakeRecorder struct {
	mu          sync.Mutex
	increments  int
	decrements  int
	lastElapsed time.Duration
}

func (f *fakeRecorder) IncrementConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
}

func (f *fakeRecorder) DecrementConnections(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrements++
	f.lastElapsed = d
}

func (f *fakeRecorder) snapshot() (increments, decrements int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.increments, f.decrements
}

func newTestHandler(t *testing.T) (*httptest.Server, *registry.Registry) {
	srv, reg, _ := newTestHandlerWithRecorder(t, nil)
	return srv, reg
}

func newTestHandlerWithRecorder(t *testing.T, recorder Recorder) (*httptest.Server, *registry.Registry, *broadcast.Engine) {
	t.Helper()
	reg := registry.New()
	validator := auth.NewJWTValidator("test-secret", time.Hour)
	dispatcher := webhook.New(&repository.InMemorySubscriptions{}, time.Second, 4, nil, zap.NewNop())
	engine := broadcast.New(reg, queue.New(queue.DefaultCapacity), delivery.New(), dispatcher,
		&repository.InMemoryAlertHistory{}, clock.Real{}, alert.DefaultThresholds(), time.Hour, zap.NewNop())
	handler := NewHandler(reg, validator, engine, clock.Real{}, recorder, zap.NewNop())

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, reg, engine
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return env
}

func TestAcceptSendsConnectionMessage(t *testing.T) {
	srv, _ := newTestHandler(t)
	conn := dial(t, srv, "")

	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeConnection {
		t.Fatalf("expected connection message first, got %s", env.Type)
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	srv, _ := newTestHandler(t)
	conn := dial(t, srv, "")
	readEnvelope(t, conn) // connection message

	conn.WriteJSON(protocol.ClientMessage{Type: protocol.TypeHeartbeat})
	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeHeartbeatAck {
		t.Fatalf("expected heartbeat_ack, got %s", env.Type)
	}
}

func TestAuthenticateThenUpdateThresholds(t *testing.T) {
	srv, reg := newTestHandler(t)
	conn := dial(t, srv, "")
	readEnvelope(t, conn)

	validator := auth.NewJWTValidator("test-secret", time.Hour)
	token, err := validator.Generate("u1", alert.TierPro)
	if err != nil {
		t.Fatal(err)
	}

	conn.WriteJSON(protocol.ClientMessage{Type: protocol.TypeAuthenticate, Token: token})
	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeAuthSuccess {
		t.Fatalf("expected auth_success, got %s", env.Type)
	}

	if reg.CountForUser("u1") != 1 {
		t.Fatalf("expected registry to reflect authenticated connection for u1")
	}

	conn.WriteJSON(protocol.ClientMessage{
		Type:       protocol.TypeUpdateThresholds,
		Thresholds: &protocol.ClientThresholds{Low: 0.2, Medium: 0.5, High: 0.9},
	})
	env = readEnvelope(t, conn)
	if env.Type != protocol.TypeThresholdsUpdated {
		t.Fatalf("expected thresholds_updated, got %s", env.Type)
	}
}

func TestRecorderObservesConnectionLifecycle(t *testing.T) {
	recorder := &fakeRecorder{}
	srv, _, _ := newTestHandlerWithRecorder(t, recorder)

	conn := dial(t, srv, "")
	readEnvelope(t, conn)

	if increments, _ := recorder.snapshot(); increments != 1 {
		t.Fatalf("expected IncrementConnections called once on accept, got %d", increments)
	}

	conn.Close()
	// ServeHTTP's defer runs once the server detects the closed socket;
	// give the read loop a moment to unwind before asserting.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, decrements := recorder.snapshot(); decrements == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected DecrementConnections called once after the connection closed")
}

func TestUnknownMessageTypeKeepsConnectionOpen(t *testing.T) {
	srv, _ := newTestHandler(t)
	conn := dial(t, srv, "")
	readEnvelope(t, conn)

	conn.WriteJSON(map[string]string{"type": "not_a_real_type"})
	conn.WriteJSON(protocol.ClientMessage{Type: protocol.TypeHeartbeat})
	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeHeartbeatAck {
		t.Fatalf("expected connection to survive unknown message and answer heartbeat, got %s", env.Type)
	}
}
