// Package prediction is the Prediction Source external interface
// adapter (§4.I): a NATS subscription that decodes each inbound
// message into an alert.Prediction and hands it to the broadcast
// engine. Grounded on the teacher's pkg/nats/client.go Client
// (Subscribe/connection-event-handler idiom) and server.go's
// setupNATSSubscriptions/handlePriceUpdate wiring, repointed from
// price-tick subjects to a single flare-prediction subject.
package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
)

// Recorder is an optional observer for NATS connection lifecycle and
// throughput events, mirroring webhook.Recorder/broadcast.Recorder.
type Recorder interface {
	SetNATSConnected(connected bool)
	IncrementNATSReconnects()
	IncrementNATSMessages()
}

// wireMessage is the on-wire shape published to the prediction
// subject; field names follow original_source's prediction schema.
type wireMessage struct {
	PredictionID string    `json:"prediction_id"`
	Timestamp    time.Time `json:"timestamp"`
	Probability  float64   `json:"flare_probability"`
	ModelVersion string    `json:"model_version"`
	Confidence   float64   `json:"confidence_score"`
}

// Config holds the NATS connection parameters (§4.I). The subject to
// subscribe to is passed separately to Subscribe, since a Source may
// subscribe to more than one subject over its lifetime.
type Config struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
}

// Handler is called with each decoded prediction, in the goroutine
// the NATS client dispatches it on.
type Handler func(context.Context, alert.Prediction)

// decodePrediction parses a raw NATS payload into an alert.Prediction,
// mirroring the teacher's ParseMessage shape (decode the wire struct,
// translate field names to the domain type).
func decodePrediction(data []byte) (alert.Prediction, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return alert.Prediction{}, fmt.Errorf("unmarshal prediction payload: %w", err)
	}
	return alert.Prediction{
		PredictionID: wire.PredictionID,
		Timestamp:    wire.Timestamp,
		Probability:  wire.Probability,
		ModelVersion: wire.ModelVersion,
		Confidence:   wire.Confidence,
		RawOutput:    data,
	}, nil
}

// Source wraps a NATS subscription that feeds predictions to a Handler.
type Source struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	recorder Recorder
	log      *zap.Logger
}

// Connect dials NATS and installs connection-lifecycle handlers, but
// does not yet subscribe (§4.I: the connection and the subscription
// are separate steps so callers can wire a Handler after connecting).
func Connect(cfg Config, recorder Recorder, log *zap.Logger) (*Source, error) {
	s := &Source{recorder: recorder, log: log}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.ConnectHandler(s.onConnect),
		nats.DisconnectErrHandler(s.onDisconnect),
		nats.ReconnectHandler(s.onReconnect),
		nats.ErrorHandler(s.onError),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("prediction: connect to NATS: %w", err)
	}
	s.conn = conn
	if s.recorder != nil {
		s.recorder.SetNATSConnected(true)
	}
	return s, nil
}

// Subscribe starts delivering decoded predictions on subject to fn,
// until the Source is closed. Malformed payloads are logged and
// dropped rather than crashing the subscription (§7: adapter errors
// are caught at the boundary).
func (s *Source) Subscribe(ctx context.Context, subject string, fn Handler) error {
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		if s.recorder != nil {
			s.recorder.IncrementNATSMessages()
		}

		p, err := decodePrediction(msg.Data)
		if err != nil {
			s.log.Warn("discarding malformed prediction payload", zap.Error(err))
			return
		}
		fn(ctx, p)
	})
	if err != nil {
		return fmt.Errorf("prediction: subscribe to %s: %w", subject, err)
	}
	s.sub = sub
	return nil
}

// Close unsubscribes and closes the underlying NATS connection.
func (s *Source) Close() error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.log.Warn("failed to unsubscribe from prediction subject", zap.Error(err))
		}
	}
	if s.conn != nil {
		s.conn.Close()
		if s.recorder != nil {
			s.recorder.SetNATSConnected(false)
		}
	}
	return nil
}

func (s *Source) onConnect(conn *nats.Conn) {
	s.log.Info("connected to NATS", zap.String("url", conn.ConnectedUrl()))
	if s.recorder != nil {
		s.recorder.SetNATSConnected(true)
	}
}

func (s *Source) onDisconnect(_ *nats.Conn, err error) {
	if err != nil {
		s.log.Warn("disconnected from NATS", zap.Error(err))
	} else {
		s.log.Info("disconnected from NATS")
	}
	if s.recorder != nil {
		s.recorder.SetNATSConnected(false)
	}
}

func (s *Source) onReconnect(conn *nats.Conn) {
	s.log.Info("reconnected to NATS", zap.String("url", conn.ConnectedUrl()))
	if s.recorder != nil {
		s.recorder.SetNATSConnected(true)
		s.recorder.IncrementNATSReconnects()
	}
}

func (s *Source) onError(_ *nats.Conn, _ *nats.Subscription, err error) {
	s.log.Warn("NATS error", zap.Error(err))
}
