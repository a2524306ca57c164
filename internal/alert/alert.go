// Package alert holds the data model and pure decision logic for solar
// flare alerts: predictions coming in, alerts going out, severities and
// subscription tiers, and the threshold evaluation + hysteresis rules
// that decide whether a prediction should fire.
package alert

import (
	"strconv"
	"time"
)

// Tier is a user's subscription class, gating which alerts reach them.
type Tier string

const (
	TierFree       Tier = "FREE"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// Severity classifies a prediction's flare probability against a
// threshold triple.
type Severity string

const (
	SeverityNone   Severity = ""
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Thresholds is the {low, medium, high} probability triple that maps a
// probability onto a Severity. LOW <= MEDIUM <= HIGH must hold.
type Thresholds struct {
	Low    float64
	Medium float64
	High   float64
}

// DefaultThresholds returns the system-wide defaults used for the
// decision-to-fire step (§4.G step 1). Per-connection thresholds only
// gate delivery, never the fire decision.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.3, Medium: 0.6, High: 0.8}
}

// Valid reports whether t satisfies the monotonicity invariant and each
// value lies in [0, 1].
func (t Thresholds) Valid() bool {
	inRange := func(v float64) bool { return v >= 0 && v <= 1 }
	if !inRange(t.Low) || !inRange(t.Medium) || !inRange(t.High) {
		return false
	}
	return t.Low <= t.Medium && t.Medium <= t.High
}

// Prediction is a single scalar flare-probability estimate fed in by
// the (out-of-scope) ML predictor.
type Prediction struct {
	PredictionID string
	Timestamp    time.Time
	Probability  float64
	ModelVersion string
	Confidence   float64
	RawOutput    []byte
}

// Alert is the derived, fresh record constructed when a prediction
// meets the firing criteria.
type Alert struct {
	AlertID      string
	PredictionID string
	Timestamp    time.Time
	Probability  float64
	Severity     Severity
	Message      string
	ModelVersion string
	Confidence   float64
}

// Message renders the human-readable alert body the way the original
// service phrases it, scaled to a whole-number percentage.
func Message(sev Severity, probability float64) string {
	pct := strconv.Itoa(int(probability * 100))
	switch sev {
	case SeverityHigh:
		return "HIGH ALERT: High solar flare risk detected (" + pct + "% probability)"
	case SeverityMedium:
		return "Moderate solar flare risk detected (" + pct + "% probability)"
	case SeverityLow:
		return "Low solar flare risk detected (" + pct + "% probability)"
	default:
		return "No significant solar flare risk detected"
	}
}
