package prediction

import (
	"testing"
	"time"
)

func TestDecodePredictionMapsWireFields(t *testing.T) {
	raw := []byte(`{
		"prediction_id": "pred-1",
		"timestamp": "2026-07-29T12:00:00Z",
		"flare_probability": 0.82,
		"model_version": "v3",
		"confidence_score": 0.91
	}`)

	p, err := decodePrediction(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PredictionID != "pred-1" {
		t.Fatalf("expected prediction_id pred-1, got %s", p.PredictionID)
	}
	if p.Probability != 0.82 {
		t.Fatalf("expected probability 0.82, got %v", p.Probability)
	}
	if p.ModelVersion != "v3" {
		t.Fatalf("expected model_version v3, got %s", p.ModelVersion)
	}
	if p.Confidence != 0.91 {
		t.Fatalf("expected confidence 0.91, got %v", p.Confidence)
	}
	wantTime, _ := time.Parse(time.RFC3339, "2026-07-29T12:00:00Z")
	if !p.Timestamp.Equal(wantTime) {
		t.Fatalf("expected timestamp %v, got %v", wantTime, p.Timestamp)
	}
	if string(p.RawOutput) != string(raw) {
		t.Fatal("expected RawOutput to retain the original payload")
	}
}

func TestDecodePredictionRejectsMalformedJSON(t *testing.T) {
	if _, err := decodePrediction([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
