package alert

import "time"

// Evaluate maps a probability onto a Severity given a threshold triple,
// per §4.C: highest matching band wins, SeverityNone if none match.
func Evaluate(probability float64, t Thresholds) Severity {
	switch {
	case probability >= t.High:
		return SeverityHigh
	case probability >= t.Medium:
		return SeverityMedium
	case probability >= t.Low:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// ShouldFire applies the hysteresis rules of §4.C in order. current and
// previous are evaluated against thresholds by the caller; reAlertWindow
// is the minimum interval between two consecutive HIGH alerts (1h by
// default). previous may be nil if there is no prior prediction.
func ShouldFire(current Prediction, currentSeverity Severity, previous *Prediction, previousSeverity Severity, reAlertWindow time.Duration) bool {
	if currentSeverity == SeverityNone {
		return false
	}

	if currentSeverity == SeverityHigh {
		if previous == nil || previousSeverity != SeverityHigh {
			return true
		}
		if current.Timestamp.Sub(previous.Timestamp) >= reAlertWindow {
			return true
		}
		return false
	}

	if previous == nil || previousSeverity == SeverityNone {
		return true
	}

	if currentSeverity != previousSeverity {
		return true
	}

	return false
}
