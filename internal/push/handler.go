package push

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/auth"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/broadcast"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/clock"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/protocol"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/registry"
)

var errSendBufferFull = errors.New("push: send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Recorder is an optional observer for connection lifecycle metrics,
// mirroring webhook.Recorder/broadcast.Recorder. A nil Recorder is a no-op.
type Recorder interface {
	IncrementConnections()
	DecrementConnections(duration time.Duration)
}

// Handler wires an HTTP endpoint to the connection registry, the
// token validator, and the broadcast engine's queue-flush path.
type Handler struct {
	reg       *registry.Registry
	validator auth.Validator
	engine    *broadcast.Engine
	clk       clock.Clock
	recorder  Recorder
	log       *zap.Logger
}

// NewHandler constructs a push Handler. recorder may be nil.
func NewHandler(reg *registry.Registry, validator auth.Validator, engine *broadcast.Engine, clk clock.Clock, recorder Recorder, log *zap.Logger) *Handler {
	return &Handler{reg: reg, validator: validator, engine: engine, clk: clk, recorder: recorder, log: log}
}

// ServeHTTP implements §4.H step 1-7: upgrade, register, optional
// handshake auth, connection message, queue flush, then the read loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Info("websocket upgrade failed", zap.Error(err))
		return
	}

	transport := newTransport(conn)
	now := h.clk.Now()
	id := uuid.NewString()
	h.reg.Add(id, transport, now)
	if h.recorder != nil {
		h.recorder.IncrementConnections()
	}

	defer func() {
		h.reg.Remove(id)
		transport.Close()
		if h.recorder != nil {
			h.recorder.DecrementConnections(h.clk.Now().Sub(now))
		}
	}()

	if identity, err := h.validator.FromRequest(r); err == nil {
		_ = h.reg.Authenticate(id, identity.UserID, identity.Tier)
	}

	registered, _ := h.reg.Get(id)
	h.sendConnectionMessage(transport, registered)
	if registered.Authenticated {
		h.engine.FlushUserQueue(registered.UserID)
	}

	h.readLoop(conn, id, transport)
}

func (h *Handler) sendConnectionMessage(transport *wsTransport, conn registry.Connection) {
	payload, err := protocol.Encode(protocol.TypeConnection, protocol.ConnectionData{
		ConnectionID:  conn.ID,
		Authenticated: conn.Authenticated,
		Tier:          conn.Tier,
		Message:       "connected",
	}, h.clk.Now())
	if err != nil {
		h.log.Error("failed to encode connection message", zap.Error(err))
		return
	}
	_ = transport.SendText(payload)
}

func (h *Handler) readLoop(conn *websocket.Conn, id string, transport *wsTransport) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Info("malformed client message, ignoring", zap.String("connection_id", id), zap.Error(err))
			continue
		}

		switch msg.Type {
		case protocol.TypeHeartbeat:
			h.handleHeartbeat(id, transport)
		case protocol.TypeAuthenticate:
			h.handleAuthenticate(id, msg.Token, transport)
		case protocol.TypeUpdateThresholds:
			h.handleUpdateThresholds(id, msg.Thresholds, transport)
		default:
			h.log.Info("unknown client message type, ignoring", zap.String("connection_id", id), zap.String("type", string(msg.Type)))
		}
	}
}

func (h *Handler) handleHeartbeat(id string, transport *wsTransport) {
	h.reg.Touch(id, h.clk.Now())
	payload, err := protocol.Encode(protocol.TypeHeartbeatAck, protocol.HeartbeatData{Message: "pong"}, h.clk.Now())
	if err != nil {
		return
	}
	_ = transport.SendText(payload)
}

func (h *Handler) handleAuthenticate(id, token string, transport *wsTransport) {
	identity, err := h.validator.Validate(token)
	if err != nil {
		payload, encErr := protocol.Encode(protocol.TypeAuthError, protocol.AuthResultData{Message: "invalid token"}, h.clk.Now())
		if encErr == nil {
			_ = transport.SendText(payload)
		}
		return
	}

	if err := h.reg.Authenticate(id, identity.UserID, identity.Tier); err != nil {
		payload, encErr := protocol.Encode(protocol.TypeAuthError, protocol.AuthResultData{Message: "authentication failed"}, h.clk.Now())
		if encErr == nil {
			_ = transport.SendText(payload)
		}
		return
	}

	payload, err := protocol.Encode(protocol.TypeAuthSuccess, protocol.AuthResultData{
		UserID: identity.UserID, Tier: identity.Tier, Message: "authenticated",
	}, h.clk.Now())
	if err == nil {
		_ = transport.SendText(payload)
	}
	h.engine.FlushUserQueue(identity.UserID)
}

func (h *Handler) handleUpdateThresholds(id string, wire *protocol.ClientThresholds, transport *wsTransport) {
	if wire == nil {
		h.sendThresholdsError(transport, "missing thresholds")
		return
	}

	t := wire.ToThresholds()
	if err := h.reg.UpdateThresholds(id, t); err != nil {
		h.sendThresholdsError(transport, err.Error())
		return
	}

	payload, err := protocol.Encode(protocol.TypeThresholdsUpdated, protocol.ThresholdsResultData{
		Thresholds: &t, Message: "thresholds updated",
	}, h.clk.Now())
	if err == nil {
		_ = transport.SendText(payload)
	}
}

func (h *Handler) sendThresholdsError(transport *wsTransport, message string) {
	payload, err := protocol.Encode(protocol.TypeError, protocol.ThresholdsResultData{Message: message}, h.clk.Now())
	if err == nil {
		_ = transport.SendText(payload)
	}
}
