// Package protocol defines the push protocol's wire shapes (§6):
// server-to-client and client-to-server text-framed JSON messages.
// Grounded on the teacher's internal/types.BaseMessage envelope
// pattern, generalized from price-tick payloads to alert-core
// payloads.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
)

// Type enumerates the server->client and client->server message kinds.
type Type string

const (
	TypeConnection         Type = "connection"
	TypeAuthSuccess        Type = "auth_success"
	TypeAuthError          Type = "auth_error"
	TypeThresholdsUpdated  Type = "thresholds_updated"
	TypeError              Type = "error"
	TypeHeartbeat          Type = "heartbeat"
	TypeHeartbeatAck       Type = "heartbeat_ack"
	TypeAlert              Type = "alert"
	TypeAuthenticate       Type = "authenticate"
	TypeUpdateThresholds   Type = "update_thresholds"
)

// Envelope is the outer shape every server->client message shares.
type Envelope struct {
	Type      Type        `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Encode wraps data in an Envelope of the given type and marshals it.
func Encode(typ Type, data interface{}, now time.Time) ([]byte, error) {
	return json.Marshal(Envelope{Type: typ, Data: data, Timestamp: now})
}

// ConnectionData is the payload of a "connection" message, sent once
// per accepted connection (§4.H step 4).
type ConnectionData struct {
	ConnectionID  string     `json:"connection_id"`
	Authenticated bool       `json:"authenticated"`
	Tier          alert.Tier `json:"tier"`
	Message       string     `json:"message"`
}

// AuthResultData is the payload of "auth_success"/"auth_error".
type AuthResultData struct {
	UserID  string     `json:"user_id,omitempty"`
	Tier    alert.Tier `json:"tier,omitempty"`
	Message string     `json:"message"`
}

// ThresholdsResultData is the payload of "thresholds_updated"/"error".
type ThresholdsResultData struct {
	Thresholds *alert.Thresholds `json:"thresholds,omitempty"`
	Message    string            `json:"message"`
}

// HeartbeatData is the payload of "heartbeat"/"heartbeat_ack".
type HeartbeatData struct {
	Message string `json:"message"`
}

// AlertData is the payload of an "alert" message (§6).
type AlertData struct {
	AlertID          string  `json:"alert_id"`
	PredictionID     string  `json:"prediction_id"`
	Timestamp        string  `json:"timestamp"`
	FlareProbability float64 `json:"flare_probability"`
	SeverityLevel    string  `json:"severity_level"`
	AlertTriggered   bool    `json:"alert_triggered"`
	Message          string  `json:"message"`
	ModelVersion     string  `json:"model_version"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

// AlertDataFromAlert builds the wire payload for a.
func AlertDataFromAlert(a alert.Alert) AlertData {
	return AlertData{
		AlertID:          a.AlertID,
		PredictionID:     a.PredictionID,
		Timestamp:        a.Timestamp.UTC().Format(time.RFC3339),
		FlareProbability: a.Probability,
		SeverityLevel:    string(a.Severity),
		AlertTriggered:   true,
		Message:          a.Message,
		ModelVersion:     a.ModelVersion,
		ConfidenceScore:  a.Confidence,
	}
}

// ClientMessage is the shape every client->server message is first
// parsed into, to dispatch on Type before decoding the rest (§4.H
// step 6, grounded on the teacher's fast-path JSON type extraction in
// pkg/websocket/client.go).
type ClientMessage struct {
	Type       Type              `json:"type"`
	Token      string            `json:"token"`
	Thresholds *ClientThresholds `json:"thresholds"`
}

// ClientThresholds is the raw {low, medium, high} triple a client
// sends for update_thresholds, before validation.
type ClientThresholds struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// ToThresholds converts the wire shape to the domain type.
func (c ClientThresholds) ToThresholds() alert.Thresholds {
	return alert.Thresholds{Low: c.Low, Medium: c.Medium, High: c.High}
}
