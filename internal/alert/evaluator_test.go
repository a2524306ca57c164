package alert

import (
	"testing"
	"time"
)

func TestEvaluateBoundaries(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		p    float64
		want Severity
	}{
		{0.0, SeverityNone},
		{0.29, SeverityNone},
		{0.3, SeverityLow},
		{0.59, SeverityLow},
		{0.6, SeverityMedium},
		{0.79, SeverityMedium},
		{0.8, SeverityHigh},
		{1.0, SeverityHigh},
	}
	for _, c := range cases {
		if got := Evaluate(c.p, th); got != c.want {
			t.Errorf("Evaluate(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestShouldFireFreshHigh(t *testing.T) {
	now := time.Now()
	cur := Prediction{Probability: 0.95, Timestamp: now}
	if !ShouldFire(cur, SeverityHigh, nil, SeverityNone, time.Hour) {
		t.Fatal("expected fresh HIGH prediction to fire")
	}
}

func TestShouldFireReAlertSuppression(t *testing.T) {
	base := time.Now()
	prev := Prediction{Probability: 0.95, Timestamp: base}

	within := Prediction{Probability: 0.9, Timestamp: base.Add(10 * time.Minute)}
	if ShouldFire(within, SeverityHigh, &prev, SeverityHigh, time.Hour) {
		t.Fatal("expected re-alert suppression within 1h window")
	}

	after := Prediction{Probability: 0.9, Timestamp: base.Add(time.Hour + time.Second)}
	if !ShouldFire(after, SeverityHigh, &prev, SeverityHigh, time.Hour) {
		t.Fatal("expected re-alert to fire after 1h window elapses")
	}
}

func TestShouldFireNoSeverityNeverFires(t *testing.T) {
	cur := Prediction{Probability: 0.1, Timestamp: time.Now()}
	if ShouldFire(cur, SeverityNone, nil, SeverityNone, time.Hour) {
		t.Fatal("expected no-severity prediction to never fire")
	}
}

func TestShouldFireSeverityChangeFires(t *testing.T) {
	base := time.Now()
	prev := Prediction{Probability: 0.35, Timestamp: base}
	cur := Prediction{Probability: 0.65, Timestamp: base.Add(time.Minute)}
	if !ShouldFire(cur, SeverityMedium, &prev, SeverityLow, time.Hour) {
		t.Fatal("expected severity escalation to fire")
	}
}

func TestShouldFireSteadyStateSuppressed(t *testing.T) {
	base := time.Now()
	prev := Prediction{Probability: 0.4, Timestamp: base}
	cur := Prediction{Probability: 0.42, Timestamp: base.Add(time.Minute)}
	if ShouldFire(cur, SeverityLow, &prev, SeverityLow, time.Hour) {
		t.Fatal("expected steady-state LOW to be suppressed")
	}
}
